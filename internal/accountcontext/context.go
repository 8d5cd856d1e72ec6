package accountcontext

import (
	"context"

	accountdomain "github.com/billingworks/subsync/internal/account/domain"
)

type contextKey struct{}

// WithUser stores the authenticated user (and through it the owning
// account) on the request context.
func WithUser(ctx context.Context, user accountdomain.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

func UserFromContext(ctx context.Context) (accountdomain.User, bool) {
	user, ok := ctx.Value(contextKey{}).(accountdomain.User)
	return user, ok
}
