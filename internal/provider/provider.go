package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/ILLUVRSE/council/internal/models"
)

var (
	ErrUnknownProvider  = errors.New("no client configured for provider")
	ErrProviderMismatch = errors.New("participant served by a different provider")
	ErrEmptyResponse    = errors.New("provider returned no choices")
)

// Generator is the generation capability the deliberation engine consumes for
// answers, reviews and synthesis alike.
type Generator interface {
	Generate(ctx context.Context, p models.Participant, messages []models.Message) (models.Completion, error)
}

// Error is a sanitized per-call failure. Error() never contains upstream bodies or
// credentials; the wrapped cause is kept for errors.Is and server-side logging.
type Error struct {
	ParticipantID string
	Status        int
	Reason        string
	cause         error
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.cause }

// Router sends each call to the client registered for the participant's provider.
type Router struct {
	clients map[models.Provider]Generator
}

func NewRouter(clients map[models.Provider]Generator) *Router {
	cp := make(map[models.Provider]Generator, len(clients))
	for k, v := range clients {
		cp[k] = v
	}
	return &Router{clients: cp}
}

func (r *Router) Generate(ctx context.Context, p models.Participant, messages []models.Message) (models.Completion, error) {
	client, ok := r.clients[p.Provider]
	if !ok {
		return models.Completion{}, fmt.Errorf("%w: %s", ErrUnknownProvider, p.Provider)
	}
	return client.Generate(ctx, p, messages)
}
