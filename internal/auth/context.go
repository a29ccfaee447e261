package auth

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned by accessors that require a signed-in user.
var ErrUnauthenticated = errors.New("unauthenticated")

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxEmail
)

func WithIdentity(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxEmail, email)
	return ctx
}

// UserID returns the authenticated user id from context.
// Services use this as the ownership scope for every read and write.
func UserID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxUserID).(string); ok && s != "" {
		return s, nil
	}
	return "", ErrUnauthenticated
}

func Email(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxEmail).(string); ok && s != "" {
		return s, nil
	}
	return "", ErrUnauthenticated
}
