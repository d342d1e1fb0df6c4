package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// userIDKey and tenantIDKey store the authenticated caller in the request context.
const (
	userIDKey   = contextKey("userID")
	tenantIDKey = contextKey("tenantID")
)

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if userIDVal, exists := c.Get(string(userIDKey)); exists {
		userID, ok := userIDVal.(string)
		return userID, ok && userID != ""
	}
	// check in the request context as well
	userID, ok := c.Request.Context().Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// GetTenantIDFromContext retrieves the tenant the authenticated caller acts for.
func GetTenantIDFromContext(c *gin.Context) (string, bool) {
	if tenantIDVal, exists := c.Get(string(tenantIDKey)); exists {
		tenantID, ok := tenantIDVal.(string)
		return tenantID, ok && tenantID != ""
	}
	tenantID, ok := c.Request.Context().Value(tenantIDKey).(string)
	return tenantID, ok && tenantID != ""
}

// WithIdentity returns a copy of ctx carrying the caller's user and tenant.
func WithIdentity(ctx context.Context, userID, tenantID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, tenantIDKey, tenantID)
}
