package identity

import "context"

type contextKey string

const userIDKey contextKey = "inkroll_user_id"

// WithUserID attaches the authenticated caller's id to the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFrom returns the authenticated caller's id, or "" for anonymous
// requests.
func UserIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
