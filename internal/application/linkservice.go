package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aledeev/tracklink/internal/domain/model"
	"github.com/aledeev/tracklink/internal/domain/port/driven"
)

// Engine-level errors. Backend failures carry the driven taxonomy; these
// cover rejections the engine makes before any network call.
var (
	// ErrBusy rejects a mutating call while another one is outstanding.
	// Rejected, not queued, so optimistic session updates never interleave.
	ErrBusy = errors.New("another operation is in progress")

	// ErrNoCredentialSelected rejects operations that need a selected and
	// loaded credential.
	ErrNoCredentialSelected = errors.New("no credential selected")

	// ErrAlreadyLinked rejects importing a project the matcher already finds
	// in the local registry.
	ErrAlreadyLinked = errors.New("project already linked")
)

// LinkService is the mutating orchestrator: import a discovered project,
// soft-remove a linked one, and trigger reindexing of its derived artifacts.
// Link and unlink share one busy flag; reindex keeps a per-project
// outstanding set instead, so it never blocks the other operations but a
// second reindex of the same project is still rejected while one is in
// flight.
type LinkService struct {
	store   driven.ProjectStore
	session *Session
	hooks   Hooks
	match   Matcher
	logger  *slog.Logger

	mu         sync.Mutex
	busy       bool
	reindexing map[string]bool
}

// NewLinkService creates a LinkService with all required dependencies and
// the default matcher.
func NewLinkService(store driven.ProjectStore, session *Session, hooks Hooks, logger *slog.Logger) *LinkService {
	return &LinkService{
		store:      store,
		session:    session,
		hooks:      hooks,
		match:      DefaultMatcher,
		logger:     logger,
		reindexing: make(map[string]bool),
	}
}

// SetMatcher overrides the default link matcher. Intended for tests and for
// deployments with their own identity rules.
func (s *LinkService) SetMatcher(m Matcher) {
	if m != nil {
		s.match = m
	}
}

// CurrentView builds the reconciled view for the current session state.
func (s *LinkService) CurrentView() []ProjectView {
	st := s.session.Snapshot()
	return BuildView(st.External, st.Projects, st.NewlyLinked, st.Deleted, s.match)
}

// Link imports an external project through the selected credential. The call
// is rejected with ErrAlreadyLinked when the matcher finds an existing
// linked project, and nothing in the session changes unless the backend
// accepts the import.
func (s *LinkService) Link(ctx context.Context, credentialID int64, ext model.ExternalProject) (model.Project, error) {
	if err := s.begin(); err != nil {
		return model.Project{}, err
	}
	defer s.end()

	st := s.session.Snapshot()
	if st.SelectedID == 0 || st.SelectedID != credentialID {
		return model.Project{}, fmt.Errorf("credential %d: %w", credentialID, ErrNoCredentialSelected)
	}

	cred, ok := st.SelectedCredential()
	if !ok {
		return model.Project{}, fmt.Errorf("credential %d: %w", credentialID, driven.ErrNotFound)
	}

	for _, p := range st.Projects {
		if s.match(ext, p) {
			return model.Project{}, fmt.Errorf("project %s: %w", ext.Key, ErrAlreadyLinked)
		}
	}

	project, err := s.store.Link(ctx, cred, ext)
	if err != nil {
		s.logger.Error("link failed", "credential_id", credentialID, "key", ext.Key, "error", err)
		return model.Project{}, err
	}

	st = s.session.dispatch(projectLinked{project: project})
	s.hooks.projectsUpdated(st.Projects)
	s.logger.Info("project linked", "id", project.ID, "key", project.Key, "credential_id", credentialID)
	return project, nil
}

// Unlink soft-removes a linked project: the backend record is deleted, the
// project leaves the in-memory registry, and the view row keeps a deleted
// marker until the next discovery. A backend 404 counts as success, so
// repeating an unlink stays harmless.
func (s *LinkService) Unlink(ctx context.Context, project model.Project) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	if err := s.store.Unlink(ctx, project.ID); err != nil && !errors.Is(err, driven.ErrNotFound) {
		s.logger.Error("unlink failed", "id", project.ID, "key", project.Key, "error", err)
		return err
	}

	st := s.session.dispatch(projectUnlinked{project: project})
	s.hooks.refreshInternal()
	s.hooks.projectsUpdated(st.Projects)
	s.logger.Info("project unlinked", "id", project.ID, "key", project.Key)
	return nil
}

// Reindex asks the backend to rebuild the search and embedding artifacts for
// a linked project. Fire-and-trigger: no retry, no rollback. Requests for
// different projects may overlap; a second request for the same project
// while one is outstanding is rejected so the UI's busy state holds.
func (s *LinkService) Reindex(ctx context.Context, project model.Project) error {
	s.mu.Lock()
	if s.reindexing[project.Key] {
		s.mu.Unlock()
		return fmt.Errorf("reindex of %s: %w", project.Key, ErrBusy)
	}
	s.reindexing[project.Key] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.reindexing, project.Key)
		s.mu.Unlock()
	}()

	if err := s.store.Reindex(ctx, project.Key); err != nil {
		s.logger.Error("reindex failed", "key", project.Key, "error", err)
		return err
	}

	s.logger.Info("reindex requested", "key", project.Key)
	return nil
}

func (s *LinkService) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *LinkService) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}
