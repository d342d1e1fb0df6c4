package apperrors_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperrors.Kind
	}{
		{"nil", nil, apperrors.KindUnknown},
		{"plain", errors.New("boom"), apperrors.KindUnknown},
		{"not found", fmt.Errorf("stream x: %w", apperrors.ErrNotFound), apperrors.KindNotFound},
		{"validation", fmt.Errorf("%w: name required", apperrors.ErrValidation), apperrors.KindValidation},
		{"duplicate", apperrors.ErrDuplicate, apperrors.KindState},
		{"concurrency", apperrors.NewConcurrencyError("s", 1, 2), apperrors.KindConcurrency},
		{"wrapped concurrency", fmt.Errorf("save: %w", apperrors.NewConcurrencyError("s", 1, 2)), apperrors.KindConcurrency},
		{"infra", apperrors.NewInfraError("op", "t", "a", errors.New("down")), apperrors.KindInfrastructure},
		{"app 400", apperrors.NewAppError(http.StatusBadRequest, "invalid nextToken", nil), apperrors.KindValidation},
		{"app 404", apperrors.NewAppError(http.StatusNotFound, "gone", nil), apperrors.KindNotFound},
		{"app 409", apperrors.NewAppError(http.StatusConflict, "taken", nil), apperrors.KindState},
		{"app 503", apperrors.NewAppError(http.StatusServiceUnavailable, "down", nil), apperrors.KindInfrastructure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.KindOf(tt.err))
		})
	}
}

func TestNewInfraError_KeepsSpecificKinds(t *testing.T) {
	conflict := apperrors.NewConcurrencyError("tenant/t/journal/j", 3, 4)
	assert.Same(t, conflict, apperrors.NewInfraError("append", "t", "j", conflict))

	notFound := fmt.Errorf("row: %w", apperrors.ErrNotFound)
	assert.Equal(t, notFound, apperrors.NewInfraError("find", "t", "j", notFound))

	assert.Nil(t, apperrors.NewInfraError("find", "t", "j", nil))

	err := apperrors.NewInfraError("event_store.append", "t", "j", context.DeadlineExceeded)
	var infra *apperrors.InfraError
	assert.ErrorAs(t, err, &infra)
	assert.Equal(t, "event_store.append", infra.Op)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "event_store.append tenant=t aggregate=j: context deadline exceeded", err.Error())
}

func TestConcurrencyError(t *testing.T) {
	err := apperrors.NewConcurrencyError("tenant/t/account/a", 1, 2)
	assert.ErrorIs(t, err, apperrors.ErrConcurrencyConflict)
	assert.Contains(t, err.Error(), "expected version 1, actual 2")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(apperrors.ErrValidation))
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(apperrors.ErrNotFound))
	assert.Equal(t, http.StatusConflict, apperrors.HTTPStatus(apperrors.NewConcurrencyError("s", 0, 1)))
	assert.Equal(t, http.StatusConflict, apperrors.HTTPStatus(apperrors.ErrDuplicate))
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(apperrors.NewInfraError("op", "", "", errors.New("x"))))
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(errors.New("x")))
	assert.Equal(t, http.StatusTooManyRequests, apperrors.HTTPStatus(apperrors.NewAppError(http.StatusTooManyRequests, "slow down", nil)))
}
