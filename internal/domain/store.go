package domain

import "context"

// Store bundles the per-session repositories behind one transactional
// boundary. WithTx runs fn against a store whose writes are applied
// all-or-nothing, so a crash mid-operation never leaves, e.g., a
// message processing with no corresponding sandbox dispatch.
type Store interface {
	Sessions() SessionRepository
	Participants() ParticipantRepository
	Messages() MessageRepository
	Sandboxes() SandboxRepository
	Events() EventRepository
	Artifacts() ArtifactRepository

	WithTx(ctx context.Context, fn func(Store) error) error
}
