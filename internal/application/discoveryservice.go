package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aledeev/tracklink/internal/domain/model"
	"github.com/aledeev/tracklink/internal/domain/port/driven"
)

// DiscoveryService drives source-mode selection and per-credential project
// discovery. Every discovery call is generation-tagged: Select bumps the
// session generation before the network call, and the response is applied
// only while that generation is still current, so a slow response for a
// previously selected credential can never clobber a newer selection.
type DiscoveryService struct {
	discoverer driven.ProjectDiscoverer
	session    *Session
	logger     *slog.Logger
}

// NewDiscoveryService creates a DiscoveryService with all required
// dependencies.
func NewDiscoveryService(discoverer driven.ProjectDiscoverer, session *Session, logger *slog.Logger) *DiscoveryService {
	return &DiscoveryService{
		discoverer: discoverer,
		session:    session,
		logger:     logger,
	}
}

// SetMode switches between the new-credential and existing-credential flows.
// Switching to New clears the selection, the external list, and the
// transient markers. Existing requires at least one known credential.
func (s *DiscoveryService) SetMode(mode model.SourceMode) error {
	switch mode {
	case model.SourceModeNew, model.SourceModeExisting:
	default:
		return fmt.Errorf("source mode %q: %w", string(mode), driven.ErrValidation)
	}

	if mode == model.SourceModeExisting && len(s.session.Snapshot().Credentials) == 0 {
		return fmt.Errorf("no credentials registered: %w", driven.ErrValidation)
	}

	s.session.dispatch(modeSelected{mode: mode})
	return nil
}

// Select makes the credential current and runs discovery for it. A fresh
// discovery is authoritative: the external list and all transient markers
// are reset before the fetch.
func (s *DiscoveryService) Select(ctx context.Context, credentialID int64) error {
	st := s.session.Snapshot()
	if !hasCredential(st.Credentials, credentialID) {
		return fmt.Errorf("credential %d: %w", credentialID, driven.ErrNotFound)
	}

	st = s.session.dispatch(credentialSelected{id: credentialID})
	gen := st.Generation

	projects, err := s.discoverer.Discover(ctx, credentialID)
	if err != nil {
		auth := errors.Is(err, driven.ErrAuth)
		notice := driven.ErrorMessage(err)
		if auth {
			notice = "check your API key"
		}
		s.session.dispatch(discoveryFailed{gen: gen, notice: notice, auth: auth})
		s.logger.Error("discovery failed",
			"credential_id", credentialID,
			"generation", gen,
			"error", err,
		)
		return err
	}

	s.session.dispatch(discoveryResolved{
		gen:      gen,
		projects: projects,
		notice:   discoveryNotice(len(projects)),
	})
	s.logger.Info("discovery complete",
		"credential_id", credentialID,
		"generation", gen,
		"count", len(projects),
	)
	return nil
}

// Refresh re-runs discovery for the currently selected credential.
func (s *DiscoveryService) Refresh(ctx context.Context) error {
	id := s.session.Snapshot().SelectedID
	if id == 0 {
		return ErrNoCredentialSelected
	}
	return s.Select(ctx, id)
}

// discoveryNotice is the user-facing summary for a discovery result.
func discoveryNotice(n int) string {
	switch n {
	case 0:
		return "No external projects found"
	case 1:
		return "1 external project found"
	default:
		return fmt.Sprintf("%d external projects found", n)
	}
}

func hasCredential(creds []model.Credential, id int64) bool {
	for _, c := range creds {
		if c.ID == id {
			return true
		}
	}
	return false
}
