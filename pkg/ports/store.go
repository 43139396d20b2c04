package ports

import (
	"context"

	"github.com/onrampd/onramp/pkg/domain"
)

// StateStore persists one execution state record per subject id.
//
// Save must be atomic per subject: a reader must never observe a partially
// written record. The store does not serialize concurrent writers beyond
// that; per-subject serialization is the session manager's job. Transient
// storage errors are surfaced immediately with no internal retry.
type StateStore interface {
	// Save overwrites the full record for a subject.
	Save(ctx context.Context, subjectID string, state *domain.ExecutionState) error

	// Load retrieves the record for a subject.
	// Returns domain.ErrSessionNotFound if no record exists.
	Load(ctx context.Context, subjectID string) (*domain.ExecutionState, error)

	// Delete removes the record for a subject. Deleting a missing record
	// is not an error.
	Delete(ctx context.Context, subjectID string) error

	// List returns every persisted subject id.
	List(ctx context.Context) ([]string, error)
}
