package access

import (
	"context"
	"strings"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole normalizes a claim value. Anything unknown is a plain user.
func ParseRole(s string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Actor is the caller identity attached to a request. The zero value is an
// anonymous caller.
type Actor struct {
	UserID string
	Name   string
	Email  string
	Phone  string
	Role   Role
}

func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// Key type biar aman di context (tidak bentrok)
type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext returns the actor on ctx, or an anonymous actor.
func FromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}
