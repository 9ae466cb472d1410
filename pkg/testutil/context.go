package testutil

import (
	"context"

	id "roadbook/pkg/domain"
	"roadbook/pkg/requestcontext"
)

// WithActor injects an acting person into the context, simulating what the
// calling layer does after authentication. If the actorID is not a valid
// UUID, it will not be added to the context.
func WithActor(ctx context.Context, actorID string) context.Context {
	if parsed, err := id.ParsePersonID(actorID); err == nil {
		return requestcontext.WithActorID(ctx, parsed)
	}
	return ctx
}

// WithRequest injects both an actor and a request ID into the context.
// This is the typical state for a traced, authenticated call.
// Invalid IDs are silently ignored.
func WithRequest(ctx context.Context, actorID, requestID string) context.Context {
	ctx = WithActor(ctx, actorID)
	if requestID != "" {
		ctx = requestcontext.WithRequestID(ctx, requestID)
	}
	return ctx
}
