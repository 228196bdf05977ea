package shared

import "context"

// Actor identifies the authenticated caller and the outlet it operates on.
// The upstream gateway authenticates the user; this service only scopes.
type Actor struct {
	UserID   int64
	OutletID int64
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// CheckOutlet returns ErrForbidden when the actor is scoped to a different outlet.
func (a Actor) CheckOutlet(outletID int64) error {
	if a.OutletID != 0 && outletID != 0 && a.OutletID != outletID {
		return ErrForbidden
	}
	return nil
}
