package actorcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Role names assigned by the fronting identity provider.
const (
	RoleAttendee  = "attendee"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// Actor is the verified caller identity attached to every mutating
// operation. The core never reads ambient session state itself; the HTTP
// layer resolves the identity headers once and passes Actor down explicitly.
type Actor struct {
	ID    snowflake.ID
	Role  string
	Email string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsOrganizer() bool {
	return a.Role == RoleOrganizer
}

// ActorContextKey is the request context key for the verified actor.
type ActorContextKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ActorContextKey{}, actor)
}

// ActorFromContext returns the actor from context, if set.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	value := ctx.Value(ActorContextKey{})
	if value == nil {
		return Actor{}, false
	}
	actor, ok := value.(Actor)
	if !ok || actor.ID == 0 {
		return Actor{}, false
	}
	return actor, true
}

// ParseRole normalizes a role header value, returning false for unknown roles.
func ParseRole(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case RoleAttendee:
		return RoleAttendee, true
	case RoleOrganizer:
		return RoleOrganizer, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}
