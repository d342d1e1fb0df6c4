package services

import (
	"context"
	"time"
)

// PeriodSvc manages the accounting-period status used when reversing journals.
type PeriodSvc interface {
	IsOpen(ctx context.Context, tenantID string, date time.Time) (bool, error)
	ClosePeriod(ctx context.Context, tenantID, actorID, fiscalPeriod string) error
	ReopenPeriod(ctx context.Context, tenantID, actorID, fiscalPeriod string) error
}

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers.
type ServiceContainer struct {
	Journal JournalSvcFacade
	Account AccountSvcFacade
	Period  PeriodSvc
}
