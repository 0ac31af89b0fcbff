package state

import "context"

// Repository stores run status.
type Repository interface {
	// Load retrieves the last saved status.
	// Returns an empty state and nil error if none was saved.
	Load(ctx context.Context) (State, error)

	// Save persists the status atomically.
	Save(ctx context.Context, state State) error
}
