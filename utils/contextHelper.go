package utils

import (
	"context"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyEmployeeId    = appctx.ContextKeyEmployeeId
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyIsAdmin       = appctx.ContextKeyIsAdmin
)

func GetEmployeeIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyEmployeeId)
}

func SetEmployeeIdInContext(ctx context.Context, employeeId int) context.Context {
	return appctx.Set(ctx, ContextKeyEmployeeId, employeeId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetIsAdminFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeyIsAdmin)
}

func SetIsAdminInContext(ctx context.Context, isAdmin bool) context.Context {
	return appctx.Set(ctx, ContextKeyIsAdmin, isAdmin)
}
