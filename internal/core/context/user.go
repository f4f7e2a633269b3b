// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// OperatorContext contains the authenticated store operator identity.
// It is supplied by the session layer (outside this subsystem) and consumed
// by handlers and audit logging.
type OperatorContext struct {
	UserID  string
	Email   string
	StoreID string
	Role    string
	IsAdmin bool
}

type operatorContextKey struct{}

// WithOperator adds OperatorContext to context.
func WithOperator(ctx context.Context, op *OperatorContext) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, op)
}

// GetOperator returns OperatorContext from context.
func GetOperator(ctx context.Context) *OperatorContext {
	if v, ok := ctx.Value(operatorContextKey{}).(*OperatorContext); ok {
		return v
	}
	return nil
}

// GetUserID returns operator user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if op := GetOperator(ctx); op != nil {
		return op.UserID
	}
	return ""
}

// GetStoreID returns the operator's store from context or empty string.
func GetStoreID(ctx context.Context) string {
	if op := GetOperator(ctx); op != nil {
		return op.StoreID
	}
	return ""
}

// IsAdmin checks if the operator has the admin role.
func IsAdmin(ctx context.Context) bool {
	op := GetOperator(ctx)
	return op != nil && (op.IsAdmin || op.Role == "admin")
}
