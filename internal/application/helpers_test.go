package application_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aledeev/tracklink/internal/application"
	"github.com/aledeev/tracklink/internal/domain/model"
)

// --- Mock implementations ---

type mockCredentialStore struct {
	list   func(ctx context.Context) ([]model.Credential, error)
	add    func(ctx context.Context, nc model.NewCredential) (model.Credential, error)
	remove func(ctx context.Context, id int64) error

	addCalls    int
	removeCalls int
}

func (m *mockCredentialStore) List(ctx context.Context) ([]model.Credential, error) {
	return m.list(ctx)
}

func (m *mockCredentialStore) Add(ctx context.Context, nc model.NewCredential) (model.Credential, error) {
	m.addCalls++
	return m.add(ctx, nc)
}

func (m *mockCredentialStore) Remove(ctx context.Context, id int64) error {
	m.removeCalls++
	return m.remove(ctx, id)
}

type mockDiscoverer struct {
	discover func(ctx context.Context, credentialID int64) ([]model.ExternalProject, error)
	calls    int
}

func (m *mockDiscoverer) Discover(ctx context.Context, credentialID int64) ([]model.ExternalProject, error) {
	m.calls++
	return m.discover(ctx, credentialID)
}

type mockProjectStore struct {
	link    func(ctx context.Context, credential model.Credential, ext model.ExternalProject) (model.Project, error)
	unlink  func(ctx context.Context, id int64) error
	reindex func(ctx context.Context, projectKey string) error

	linkCalls    int
	unlinkCalls  int
	reindexCalls int
}

func (m *mockProjectStore) Link(ctx context.Context, credential model.Credential, ext model.ExternalProject) (model.Project, error) {
	m.linkCalls++
	return m.link(ctx, credential, ext)
}

func (m *mockProjectStore) Unlink(ctx context.Context, id int64) error {
	m.unlinkCalls++
	return m.unlink(ctx, id)
}

func (m *mockProjectStore) Reindex(ctx context.Context, projectKey string) error {
	m.reindexCalls++
	return m.reindex(ctx, projectKey)
}

// --- Shared fixtures ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func jiraCredential(id int64) model.Credential {
	return model.Credential{
		ID:           id,
		ServiceType:  model.ServiceJira,
		Domain:       "https://acme.atlassian.net",
		AccountEmail: "dev@acme.io",
		TokenHint:    "ATAT...x9",
	}
}

// loadCredentials seeds the session with the given credentials through the
// regular service path.
func loadCredentials(t *testing.T, session *application.Session, discovery *application.DiscoveryService, creds ...model.Credential) *application.CredentialService {
	t.Helper()

	store := &mockCredentialStore{
		list: func(context.Context) ([]model.Credential, error) { return creds, nil },
	}
	svc := application.NewCredentialService(store, session, discovery, application.Hooks{}, testLogger())

	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	return svc
}
