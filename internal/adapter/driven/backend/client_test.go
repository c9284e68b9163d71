package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	backendadapter "github.com/aledeev/tracklink/internal/adapter/driven/backend"
	"github.com/aledeev/tracklink/internal/domain/model"
	"github.com/aledeev/tracklink/internal/domain/port/driven"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) *backendadapter.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := backendadapter.NewClientWithHTTPClient(server.Client(), server.URL)
	require.NoError(t, err)

	return client
}

// writeErrorBody writes the backend's structured error body.
func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}

func TestList_MapsCredentials(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api-keys", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 7, "service_type": "jira", "domain": "https://acme.atlassian.net",
			 "domain_email": "dev@acme.io", "token_hint": "ATAT...x9",
			 "created_at": "2026-02-01T10:00:00Z"}
		]`))
	})

	client := newTestClient(t, handler)
	creds, err := client.List(context.Background())

	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, int64(7), creds[0].ID)
	assert.Equal(t, model.ServiceJira, creds[0].ServiceType)
	assert.Equal(t, "https://acme.atlassian.net", creds[0].Domain)
	assert.Equal(t, "dev@acme.io", creds[0].AccountEmail)
	assert.Equal(t, "ATAT...x9", creds[0].TokenHint)
	assert.Nil(t, creds[0].ExpiresAt)
}

func TestList_Unauthorized(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorBody(w, http.StatusUnauthorized, "", "session expired")
	})

	client := newTestClient(t, handler)
	creds, err := client.List(context.Background())

	assert.Nil(t, creds)
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrAuth)
	assert.Equal(t, "session expired", driven.ErrorMessage(err))
}

func TestAdd_SendsWireFieldsAndMapsResponse(t *testing.T) {
	var gotBody map[string]string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api-keys/add", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 12, "service_type": "jira",
			"domain": "https://acme.atlassian.net", "domain_email": "dev@acme.io",
			"token_hint": "ATAT...x9", "created_at": "2026-02-01T10:00:00Z"}`))
	})

	client := newTestClient(t, handler)
	cred, err := client.Add(context.Background(), model.NewCredential{
		ServiceType:  model.ServiceJira,
		Token:        "ATATT3xFfGF0-secret",
		Domain:       "https://acme.atlassian.net",
		AccountEmail: "dev@acme.io",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(12), cred.ID)

	// The wire contract names the token api_key and the email domain_email.
	assert.Equal(t, "jira", gotBody["service_type"])
	assert.Equal(t, "ATATT3xFfGF0-secret", gotBody["api_key"])
	assert.Equal(t, "https://acme.atlassian.net", gotBody["domain"])
	assert.Equal(t, "dev@acme.io", gotBody["domain_email"])
}

func TestAdd_Conflict(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorBody(w, http.StatusConflict, "", "credential already exists")
	})

	client := newTestClient(t, handler)
	_, err := client.Add(context.Background(), model.NewCredential{
		ServiceType:  model.ServiceJira,
		Token:        "tok",
		Domain:       "https://acme.atlassian.net",
		AccountEmail: "dev@acme.io",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrConflict)
}

func TestAdd_ValidationRejected(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation", "domain_email is not an email")
	})

	client := newTestClient(t, handler)
	_, err := client.Add(context.Background(), model.NewCredential{
		ServiceType:  model.ServiceJira,
		Token:        "tok",
		Domain:       "https://acme.atlassian.net",
		AccountEmail: "not-an-email",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrValidation)
	assert.Equal(t, "domain_email is not an email", driven.ErrorMessage(err))
}

func TestRemove_Success(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api-keys/7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, handler)
	require.NoError(t, client.Remove(context.Background(), 7))
}

func TestRemove_AlreadyGone(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorBody(w, http.StatusNotFound, "not_found", "api key not found")
	})

	client := newTestClient(t, handler)
	err := client.Remove(context.Background(), 7)

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func TestDiscover_MapsProjects(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/projects/external/id/7", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "10001", "key": "PZ", "name": "Pizza Ops",
			 "avatarUrl": "https://acme.atlassian.net/a/pz.png", "typeKey": "software"},
			{"id": "10002", "key": "SCRUM", "name": "Scrum Board", "typeKey": "software"}
		]`))
	})

	client := newTestClient(t, handler)
	projects, err := client.Discover(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "10001", projects[0].ID)
	assert.Equal(t, "PZ", projects[0].Key)
	assert.Equal(t, "Pizza Ops", projects[0].Name)
	assert.Equal(t, "https://acme.atlassian.net/a/pz.png", projects[0].AvatarURL)
	assert.Equal(t, "software", projects[0].TypeKey)
	assert.Equal(t, "SCRUM", projects[1].Key)
}

// A 404 tagged no_external_projects is an empty result, not an error.
func TestDiscover_NoProjectsCode(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorBody(w, http.StatusNotFound, "no_external_projects", "No projects found in external service")
	})

	client := newTestClient(t, handler)
	projects, err := client.Discover(context.Background(), 7)

	require.NoError(t, err)
	assert.Empty(t, projects)
	assert.NotNil(t, projects)
}

// A 404 tagged invalid_credential is an auth failure, even though the status
// matches the empty case. Classification is on the code, not the message.
func TestDiscover_InvalidCredentialCode(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorBody(w, http.StatusNotFound, "invalid_credential", "external service rejected the key")
	})

	client := newTestClient(t, handler)
	projects, err := client.Discover(context.Background(), 7)

	assert.Nil(t, projects)
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrAuth)
}

func TestDiscover_TokenExpired(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorBody(w, http.StatusUnauthorized, "", "token expired")
	})

	client := newTestClient(t, handler)
	_, err := client.Discover(context.Background(), 7)

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrAuth)
}

func TestDiscover_ServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	client := newTestClient(t, handler)
	_, err := client.Discover(context.Background(), 7)

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrServer)
}

func TestDiscover_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client, err := backendadapter.NewClientWithHTTPClient(server.Client(), server.URL)
	require.NoError(t, err)
	server.Close() // connection refused from here on

	_, err = client.Discover(context.Background(), 7)

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrNetwork)
}

func TestLink_SendsWireFieldsAndMapsResponse(t *testing.T) {
	var gotBody map[string]any

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/projects/internal/add", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 31, "name": "Pizza Ops", "key": "PZ",
			"domain": "https://acme.atlassian.net", "service_type": "jira",
			"api_key_id": 7, "internal_id": "10001"}`))
	})

	client := newTestClient(t, handler)
	cred := model.Credential{
		ID:          7,
		ServiceType: model.ServiceJira,
		Domain:      "https://acme.atlassian.net",
	}
	ext := model.ExternalProject{ID: "10001", Key: "PZ", Name: "Pizza Ops"}

	project, err := client.Link(context.Background(), cred, ext)

	require.NoError(t, err)
	assert.Equal(t, int64(31), project.ID)
	assert.Equal(t, "PZ", project.Key)
	assert.Equal(t, int64(7), project.CredentialID)
	assert.Equal(t, "10001", project.ExternalID)
	assert.Equal(t, model.ServiceJira, project.ServiceType)

	assert.Equal(t, "Pizza Ops", gotBody["name"])
	assert.Equal(t, "https://acme.atlassian.net", gotBody["domain"])
	assert.Equal(t, "jira", gotBody["service_type"])
	assert.Equal(t, "10001", gotBody["internal_id"])
	assert.Equal(t, "PZ", gotBody["key"])
	assert.Equal(t, float64(7), gotBody["api_key_id"])
}

func TestLink_Duplicate(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorBody(w, http.StatusConflict, "duplicate_project", "project already linked")
	})

	client := newTestClient(t, handler)
	_, err := client.Link(context.Background(), model.Credential{ID: 7}, model.ExternalProject{Key: "PZ"})

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrConflict)
	assert.Equal(t, "project already linked", driven.ErrorMessage(err))
}

func TestUnlink_Success(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/projects/internal/31", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, handler)
	require.NoError(t, client.Unlink(context.Background(), 31))
}

func TestReindex_SendsProjectKey(t *testing.T) {
	var gotBody map[string]string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/projects/reload-embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, handler)
	require.NoError(t, client.Reindex(context.Background(), "PZ"))
	assert.Equal(t, "PZ", gotBody["projectKey"])
}

func TestReindex_ServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorBody(w, http.StatusInternalServerError, "", "embedding worker unavailable")
	})

	client := newTestClient(t, handler)
	err := client.Reindex(context.Background(), "PZ")

	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrServer)
	assert.Equal(t, "embedding worker unavailable", driven.ErrorMessage(err))
}
