package middleware

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type contextKey string

const ctxCaller contextKey = "caller"

// Caller is the authenticated identity Auth and OptionalAuth attach to the
// request. Guests have no Caller.
type Caller struct {
	UserID   string
	Role     enums.UserRole
	AccessID string
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	c, ok := ctx.Value(ctxCaller).(Caller)
	return c, ok
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCaller, c)
}

func updateCaller(ctx context.Context, fn func(*Caller)) context.Context {
	c, _ := CallerFromContext(ctx)
	fn(&c)
	return WithCaller(ctx, c)
}

func UserIDFromContext(ctx context.Context) string {
	c, _ := CallerFromContext(ctx)
	return c.UserID
}

func RoleFromContext(ctx context.Context) string {
	c, _ := CallerFromContext(ctx)
	return string(c.Role)
}

// AccessIDFromContext returns the caller's session id, which is the JWT jti.
func AccessIDFromContext(ctx context.Context) string {
	c, _ := CallerFromContext(ctx)
	return c.AccessID
}

func IsAdmin(ctx context.Context) bool {
	c, _ := CallerFromContext(ctx)
	return c.Role == enums.UserRoleAdmin
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return updateCaller(ctx, func(c *Caller) { c.UserID = userID })
}

func WithRole(ctx context.Context, role enums.UserRole) context.Context {
	return updateCaller(ctx, func(c *Caller) { c.Role = role })
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	return updateCaller(ctx, func(c *Caller) { c.AccessID = accessID })
}
