package middleware

import "context"

type ctxKey int

const (
	userIDKey ctxKey = iota
	accessIDKey
	guestTokenKey
	requestIDKey
)

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func withString(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

// UserIDFromContext returns the authenticated user id, or "" for guests.
func UserIDFromContext(ctx context.Context) string { return stringValue(ctx, userIDKey) }

// AccessIDFromContext returns the jti of the access token that authenticated the request.
func AccessIDFromContext(ctx context.Context) string { return stringValue(ctx, accessIDKey) }

func GuestTokenFromContext(ctx context.Context) string { return stringValue(ctx, guestTokenKey) }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withString(ctx, userIDKey, userID)
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	return withString(ctx, accessIDKey, accessID)
}

// WithGuestToken stores the X-Guest-Cart token resolved for an anonymous cart.
func WithGuestToken(ctx context.Context, token string) context.Context {
	return withString(ctx, guestTokenKey, token)
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string { return stringValue(ctx, requestIDKey) }
