package auth

import (
	"context"
	"slices"
)

type claimsKey struct{}

// Claims is what JWTAuth stores on the request context after a token and its
// session check out.
type Claims struct {
	Subject string
	JWTID   string
	Roles   []string
}

func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// FromContext returns the zero Claims on unauthenticated requests.
func FromContext(ctx context.Context) Claims {
	c, _ := ctx.Value(claimsKey{}).(Claims)
	return c
}

// Subject is the user id of the caller.
func Subject(ctx context.Context) string {
	return FromContext(ctx).Subject
}

// SessionID is the jti of the caller's token, the key of its session row.
func SessionID(ctx context.Context) string {
	return FromContext(ctx).JWTID
}
