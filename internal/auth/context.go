package auth

import (
	"context"

	"manutec/internal/identity"
)

type ctxKey string

const actorKey ctxKey = "actor"

type Claims struct {
	Subject string
	Email   string
	Role    string
}

func WithActor(ctx context.Context, a identity.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

func ActorFrom(ctx context.Context) identity.Actor {
	if v, ok := ctx.Value(actorKey).(identity.Actor); ok {
		return v
	}
	return identity.Actor{}
}
