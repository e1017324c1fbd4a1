package conversation

import "context"

// Checkpointer persists per-thread state. A missing thread is not an error:
// Load returns (nil, nil) and the caller starts from a fresh state.
type Checkpointer interface {
	// Load returns the saved state for a thread, or nil when none exists.
	Load(ctx context.Context, threadID string) (*State, error)

	// Save persists the full state snapshot, replacing any previous one.
	Save(ctx context.Context, state *State) error

	// Delete removes a thread's state and reports how many messages were
	// discarded. Deleting an absent thread returns (0, nil).
	Delete(ctx context.Context, threadID string) (int, error)
}
