// Package httphandler is the HTTP driving adapter that exposes the linking
// engine to the product UI as a JSON API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aledeev/tracklink/internal/application"
	"github.com/aledeev/tracklink/internal/domain/model"
	"github.com/aledeev/tracklink/internal/domain/port/driven"
)

// Handler serves the REST API consumed by the project-linking UI.
type Handler struct {
	credentials *application.CredentialService
	discovery   *application.DiscoveryService
	links       *application.LinkService
	session     *application.Session
	logger      *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	credentials *application.CredentialService,
	discovery *application.DiscoveryService,
	links *application.LinkService,
	session *application.Session,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		credentials: credentials,
		discovery:   discovery,
		links:       links,
		session:     session,
		logger:      logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/credentials", h.ListCredentials)
	mux.HandleFunc("POST /api/v1/credentials", h.AddCredential)
	mux.HandleFunc("DELETE /api/v1/credentials/{id}", h.RemoveCredential)
	mux.HandleFunc("POST /api/v1/credentials/{id}/select", h.SelectCredential)
	mux.HandleFunc("PUT /api/v1/session/mode", h.SetMode)
	mux.HandleFunc("GET /api/v1/view", h.GetView)
	mux.HandleFunc("POST /api/v1/view/refresh", h.RefreshView)
	mux.HandleFunc("POST /api/v1/projects", h.LinkProject)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", h.UnlinkProject)
	mux.HandleFunc("POST /api/v1/projects/{id}/reindex", h.ReindexProject)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListCredentials returns the stored credentials, refreshed from the backend.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.credentials.Load(r.Context())
	if err != nil {
		h.writeClassified(w, err, "failed to list credentials")
		return
	}

	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddCredential registers a credential. On success the credential is
// selected and discovery has already run, so the fresh view rides along.
func (h *Handler) AddCredential(w http.ResponseWriter, r *http.Request) {
	var req AddCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cred, err := h.credentials.Add(r.Context(), model.NewCredential{
		ServiceType:  model.ServiceType(req.ServiceType),
		Token:        req.Token,
		Domain:       req.Domain,
		AccountEmail: req.AccountEmail,
	})
	if err != nil {
		h.writeClassified(w, err, "failed to add credential")
		return
	}

	writeJSON(w, http.StatusCreated, AddCredentialResponse{
		Credential: toCredentialResponse(cred),
		View:       h.viewResponse(),
	})
}

// RemoveCredential deletes a credential and its in-session cascade.
func (h *Handler) RemoveCredential(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid credential id")
		return
	}

	if err := h.credentials.Remove(r.Context(), id); err != nil {
		h.writeClassified(w, err, "failed to remove credential")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SelectCredential makes the credential current, runs discovery, and returns
// the reconciled view.
func (h *Handler) SelectCredential(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid credential id")
		return
	}

	if err := h.discovery.Select(r.Context(), id); err != nil {
		h.writeClassified(w, err, "discovery failed")
		return
	}

	writeJSON(w, http.StatusOK, h.viewResponse())
}

// SetMode switches the session between the new-credential and
// existing-credential flows.
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.discovery.SetMode(model.SourceMode(req.Mode)); err != nil {
		h.writeClassified(w, err, "failed to set mode")
		return
	}

	writeJSON(w, http.StatusOK, h.viewResponse())
}

// GetView returns the current reconciled view without touching the backend.
func (h *Handler) GetView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.viewResponse())
}

// RefreshView re-runs discovery for the selected credential and returns the
// fresh view. Transient markers are cleared: the new discovery is
// authoritative.
func (h *Handler) RefreshView(w http.ResponseWriter, r *http.Request) {
	if err := h.discovery.Refresh(r.Context()); err != nil {
		h.writeClassified(w, err, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, h.viewResponse())
}

// LinkProject imports a discovered external project.
func (h *Handler) LinkProject(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	project, err := h.links.Link(r.Context(), req.CredentialID, model.ExternalProject{
		ID:        req.External.ID,
		Key:       req.External.Key,
		Name:      req.External.Name,
		AvatarURL: req.External.AvatarURL,
		TypeKey:   req.External.TypeKey,
	})
	if err != nil {
		h.writeClassified(w, err, "link failed")
		return
	}

	writeJSON(w, http.StatusCreated, toProjectResponse(project))
}

// UnlinkProject soft-removes a linked project. Unknown ids return 204: the
// project is already gone and the operation is idempotent.
func (h *Handler) UnlinkProject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	project, ok := h.findProject(id)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.links.Unlink(r.Context(), project); err != nil {
		h.writeClassified(w, err, "unlink failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReindexProject triggers a backend rebuild of the project's derived
// artifacts.
func (h *Handler) ReindexProject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	project, ok := h.findProject(id)
	if !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	if err := h.links.Reindex(r.Context(), project); err != nil {
		h.writeClassified(w, err, "reindex failed")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// viewResponse assembles the view payload from the current session state.
func (h *Handler) viewResponse() ViewResponse {
	return toViewResponse(h.session.Snapshot(), h.links.CurrentView())
}

// findProject resolves a linked project by id from the session registry.
func (h *Handler) findProject(id int64) (model.Project, bool) {
	for _, p := range h.session.Snapshot().Projects {
		if p.ID == id {
			return p, true
		}
	}
	return model.Project{}, false
}

// writeClassified maps an engine error to a status code and surfaces the
// backend's message verbatim. Unclassified errors are logged and hidden
// behind a generic 500.
func (h *Handler) writeClassified(w http.ResponseWriter, err error, logMsg string) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(logMsg, "error", err)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, driven.ErrorMessage(err))
}

// errorStatus maps the error taxonomy to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, driven.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, driven.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, driven.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, driven.ErrConflict),
		errors.Is(err, application.ErrAlreadyLinked),
		errors.Is(err, application.ErrBusy),
		errors.Is(err, application.ErrNoCredentialSelected):
		return http.StatusConflict
	case errors.Is(err, driven.ErrNetwork), errors.Is(err, driven.ErrServer):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
