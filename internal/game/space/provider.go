package space

import "context"

// Provider looks up the static description of a space by id.
// The real-time layer calls this exactly once per join; the production
// implementation is the PostgreSQL space repository.
type Provider interface {
	// GetSpace returns the space with the given id, or ErrSpaceNotFound.
	GetSpace(ctx context.Context, id string) (*Space, error)
}
