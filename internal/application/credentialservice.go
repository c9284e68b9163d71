package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aledeev/tracklink/internal/domain/model"
	"github.com/aledeev/tracklink/internal/domain/port/driven"
)

// CredentialService orchestrates credential CRUD and the session bookkeeping
// that follows each mutation.
type CredentialService struct {
	store     driven.CredentialStore
	session   *Session
	discovery *DiscoveryService
	hooks     Hooks
	logger    *slog.Logger
}

// NewCredentialService creates a CredentialService with all required
// dependencies.
func NewCredentialService(
	store driven.CredentialStore,
	session *Session,
	discovery *DiscoveryService,
	hooks Hooks,
	logger *slog.Logger,
) *CredentialService {
	return &CredentialService{
		store:     store,
		session:   session,
		discovery: discovery,
		hooks:     hooks,
		logger:    logger,
	}
}

// Load fetches the stored credentials into the session. A non-empty list
// with no current selection defaults the source mode to Existing.
func (s *CredentialService) Load(ctx context.Context) ([]model.Credential, error) {
	creds, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	st := s.session.dispatch(credentialsLoaded{credentials: creds})
	s.logger.Info("credentials loaded", "count", len(creds), "mode", string(st.Mode))
	return creds, nil
}

// Add validates and registers a credential. On success the new credential
// becomes the selected one and discovery runs for it immediately; a
// discovery failure does not undo the registration, it only lands in the
// session notice.
func (s *CredentialService) Add(ctx context.Context, nc model.NewCredential) (model.Credential, error) {
	if err := validateNewCredential(nc); err != nil {
		return model.Credential{}, err
	}

	cred, err := s.store.Add(ctx, nc)
	if err != nil {
		return model.Credential{}, err
	}

	s.session.dispatch(credentialAdded{credential: cred})
	s.logger.Info("credential added",
		"id", cred.ID,
		"service_type", string(cred.ServiceType),
		"domain", cred.Domain,
	)

	if err := s.discovery.Select(ctx, cred.ID); err != nil {
		s.logger.Error("initial discovery failed", "credential_id", cred.ID, "error", err)
	}

	return cred, nil
}

// Remove deletes a credential and cascades in-session: the selection and
// view are cleared and every project linked through the credential is
// dropped from the in-memory registry.
func (s *CredentialService) Remove(ctx context.Context, id int64) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}

	st := s.session.dispatch(credentialRemoved{id: id})
	s.hooks.projectsUpdated(st.Projects)
	s.logger.Info("credential removed", "id", id, "projects_remaining", len(st.Projects))
	return nil
}

// validateNewCredential rejects incomplete input before any network call.
func validateNewCredential(nc model.NewCredential) error {
	switch {
	case !nc.ServiceType.Valid():
		return fmt.Errorf("service type %q: %w", string(nc.ServiceType), driven.ErrValidation)
	case nc.Token == "":
		return fmt.Errorf("token is required: %w", driven.ErrValidation)
	case nc.Domain == "":
		return fmt.Errorf("domain is required: %w", driven.ErrValidation)
	case nc.AccountEmail == "":
		return fmt.Errorf("account email is required: %w", driven.ErrValidation)
	}
	return nil
}
