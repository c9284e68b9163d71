// Package backend implements the driven ports against the product backend's
// REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gregjones/httpcache"

	"github.com/aledeev/tracklink/internal/domain/model"
	"github.com/aledeev/tracklink/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.CredentialStore   = (*Client)(nil)
	_ driven.ProjectDiscoverer = (*Client)(nil)
	_ driven.ProjectStore      = (*Client)(nil)
)

// Error codes the backend emits in its structured error body. Classification
// happens on these codes, never on the display message.
const (
	codeNoExternalProjects = "no_external_projects"
	codeInvalidCredential  = "invalid_credential"
)

// Client implements the CredentialStore, ProjectDiscoverer, and ProjectStore
// ports over the backend's JSON API.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a backend API client. Responses go through an in-memory
// httpcache transport so unchanged GET results are served via ETag-conditional
// revalidation.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(u.String(), "/"),
	}, nil
}

// List fetches all stored credentials.
func (c *Client) List(ctx context.Context) ([]model.Credential, error) {
	var body []credentialJSON
	if err := c.do(ctx, http.MethodGet, "/api-keys", nil, &body); err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}

	creds := make([]model.Credential, 0, len(body))
	for _, cj := range body {
		creds = append(creds, mapCredential(cj))
	}

	return creds, nil
}

// Add registers a new credential. The full token appears only in the request
// body; the response carries a short hint in its place.
func (c *Client) Add(ctx context.Context, nc model.NewCredential) (model.Credential, error) {
	req := addCredentialJSON{
		ServiceType: string(nc.ServiceType),
		APIKey:      nc.Token,
		Domain:      nc.Domain,
		DomainEmail: nc.AccountEmail,
	}

	var body credentialJSON
	if err := c.do(ctx, http.MethodPost, "/api-keys/add", req, &body); err != nil {
		return model.Credential{}, fmt.Errorf("adding credential: %w", err)
	}

	return mapCredential(body), nil
}

// Remove deletes a stored credential.
func (c *Client) Remove(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api-keys/%d", id), nil, nil); err != nil {
		return fmt.Errorf("removing credential %d: %w", id, err)
	}
	return nil
}

// Discover fetches the external projects visible to the credential. A 404
// tagged no_external_projects is not an error: the credential simply sees
// nothing, and an empty slice is returned. A 404 tagged invalid_credential
// classifies as ErrAuth so callers can tell an unusable key from an empty
// result set.
func (c *Client) Discover(ctx context.Context, credentialID int64) ([]model.ExternalProject, error) {
	var body []externalProjectJSON
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/projects/external/id/%d", credentialID), nil, &body)
	if err != nil {
		var be *driven.BackendError
		if errors.As(err, &be) && be.Status == http.StatusNotFound && be.Code == codeNoExternalProjects {
			return []model.ExternalProject{}, nil
		}
		return nil, fmt.Errorf("discovering projects for credential %d: %w", credentialID, err)
	}

	projects := make([]model.ExternalProject, 0, len(body))
	for _, pj := range body {
		projects = append(projects, mapExternalProject(pj))
	}

	return projects, nil
}

// Link imports an external project into the linked-project registry.
func (c *Client) Link(ctx context.Context, credential model.Credential, ext model.ExternalProject) (model.Project, error) {
	req := linkRequestJSON{
		Name:        ext.Name,
		Domain:      credential.Domain,
		ServiceType: string(credential.ServiceType),
		InternalID:  ext.ID,
		Key:         ext.Key,
		APIKeyID:    credential.ID,
	}

	var body projectJSON
	if err := c.do(ctx, http.MethodPost, "/projects/internal/add", req, &body); err != nil {
		return model.Project{}, fmt.Errorf("linking project %s: %w", ext.Key, err)
	}

	return mapProject(body), nil
}

// Unlink deletes a linked project from the registry.
func (c *Client) Unlink(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/projects/internal/%d", id), nil, nil); err != nil {
		return fmt.Errorf("unlinking project %d: %w", id, err)
	}
	return nil
}

// Reindex asks the backend to rebuild the search/embedding artifacts for a
// linked project. The call returns as soon as the backend accepts the request.
func (c *Client) Reindex(ctx context.Context, projectKey string) error {
	req := reindexRequestJSON{ProjectKey: projectKey}
	if err := c.do(ctx, http.MethodPost, "/projects/reload-embeddings", req, nil); err != nil {
		return fmt.Errorf("reindexing project %s: %w", projectKey, err)
	}
	return nil
}

// do performs one backend call: marshal body, tag the request, classify the
// response. out may be nil for calls whose success body is ignored.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("building %s %s request: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, driven.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	slog.Debug("backend call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
	)

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
		return nil
	}

	return classify(resp)
}

// classify maps a non-2xx response to the port error taxonomy. The backend's
// structured code drives the mapping; the display message is only carried.
func classify(resp *http.Response) error {
	var body apiErrorJSON
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(raw, &body)

	message := body.Message
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	var class error
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		class = driven.ErrAuth
	case resp.StatusCode == http.StatusNotFound && body.Code == codeInvalidCredential:
		class = driven.ErrAuth
	case resp.StatusCode == http.StatusNotFound:
		class = driven.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		class = driven.ErrConflict
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		class = driven.ErrValidation
	default:
		class = driven.ErrServer
	}

	return &driven.BackendError{
		Status:  resp.StatusCode,
		Code:    body.Code,
		Message: message,
		Class:   class,
	}
}
