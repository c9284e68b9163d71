// Package driven defines the ports the application core drives outward
// through, plus the error taxonomy their implementations map into.
package driven

import (
	"context"

	"github.com/aledeev/tracklink/internal/domain/model"
)

// CredentialStore defines the driven port for credential CRUD against the
// product backend.
// Add returns ErrConflict if an equal credential is already registered and
// ErrValidation if the backend rejects the input.
// Remove returns ErrNotFound if the credential is already gone.
type CredentialStore interface {
	List(ctx context.Context) ([]model.Credential, error)
	Add(ctx context.Context, nc model.NewCredential) (model.Credential, error)
	Remove(ctx context.Context, id int64) error
}

// ProjectDiscoverer fetches the external projects currently visible to a
// credential. Read-only: Discover never mutates backend state.
// An empty, nil-error result means the credential can see no projects;
// ErrAuth distinguishes an unusable credential from an empty one.
type ProjectDiscoverer interface {
	Discover(ctx context.Context, credentialID int64) ([]model.ExternalProject, error)
}

// ProjectStore defines the driven port for the linked-project registry.
// Link returns ErrConflict on a duplicate import. Unlink returns ErrNotFound
// if the project is already gone. Reindex only requests the rebuild of
// derived search/embedding artifacts; the backend owns execution and
// serialization of concurrent requests.
type ProjectStore interface {
	Link(ctx context.Context, credential model.Credential, ext model.ExternalProject) (model.Project, error)
	Unlink(ctx context.Context, id int64) error
	Reindex(ctx context.Context, projectKey string) error
}
