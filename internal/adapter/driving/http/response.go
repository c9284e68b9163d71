package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aledeev/tracklink/internal/application"
	"github.com/aledeev/tracklink/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CredentialResponse is the JSON representation of a stored credential.
// Only the token hint is ever rendered; the full secret never leaves the
// backend after creation.
type CredentialResponse struct {
	ID           int64  `json:"id"`
	ServiceType  string `json:"service_type"`
	Domain       string `json:"domain"`
	AccountEmail string `json:"account_email"`
	TokenHint    string `json:"token_hint"`
	CreatedAt    string `json:"created_at"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}

// AddCredentialRequest is the JSON body for the add credential endpoint.
type AddCredentialRequest struct {
	ServiceType  string `json:"service_type"`
	Token        string `json:"token"`
	Domain       string `json:"domain"`
	AccountEmail string `json:"account_email"`
}

// AddCredentialResponse couples the created credential with the view of its
// first discovery run.
type AddCredentialResponse struct {
	Credential CredentialResponse `json:"credential"`
	View       ViewResponse       `json:"view"`
}

// ModeRequest is the JSON body for the set mode endpoint.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// ExternalProjectPayload is the wire shape of an external project, used both
// in view rows and in link requests.
type ExternalProjectPayload struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	TypeKey   string `json:"type_key"`
}

// ViewItemResponse is one row of the reconciled view.
type ViewItemResponse struct {
	External    ExternalProjectPayload `json:"external"`
	Status      string                 `json:"status"`
	NewlyLinked bool                   `json:"newly_linked"`
	Deleted     bool                   `json:"deleted"`
	State       string                 `json:"state"`
}

// ViewResponse is the full reconciled view plus the session context it was
// built under.
type ViewResponse struct {
	Mode         string             `json:"mode"`
	CredentialID int64              `json:"credential_id,omitempty"`
	Discovering  bool               `json:"discovering"`
	Notice       string             `json:"notice,omitempty"`
	Items        []ViewItemResponse `json:"items"`
}

// LinkRequest is the JSON body for the link endpoint.
type LinkRequest struct {
	CredentialID int64                  `json:"credential_id"`
	External     ExternalProjectPayload `json:"external"`
}

// ProjectResponse is the JSON representation of a linked project.
type ProjectResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Key          string `json:"key"`
	Domain       string `json:"domain"`
	ServiceType  string `json:"service_type"`
	CredentialID int64  `json:"credential_id"`
	ExternalID   string `json:"external_id"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toCredentialResponse converts a domain Credential to its JSON representation.
func toCredentialResponse(c model.Credential) CredentialResponse {
	resp := CredentialResponse{
		ID:           c.ID,
		ServiceType:  string(c.ServiceType),
		Domain:       c.Domain,
		AccountEmail: c.AccountEmail,
		TokenHint:    c.TokenHint,
		CreatedAt:    c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if c.ExpiresAt != nil {
		resp.ExpiresAt = c.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// toExternalProjectPayload converts a domain ExternalProject to its wire shape.
func toExternalProjectPayload(p model.ExternalProject) ExternalProjectPayload {
	return ExternalProjectPayload{
		ID:        p.ID,
		Key:       p.Key,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
		TypeKey:   p.TypeKey,
	}
}

// toViewResponse converts the session state and its reconciled rows to the
// view payload.
func toViewResponse(st application.State, views []application.ProjectView) ViewResponse {
	items := make([]ViewItemResponse, 0, len(views))
	for _, v := range views {
		items = append(items, ViewItemResponse{
			External:    toExternalProjectPayload(v.External),
			Status:      string(v.Status),
			NewlyLinked: v.NewlyLinked,
			Deleted:     v.Deleted,
			State:       string(v.Render()),
		})
	}

	return ViewResponse{
		Mode:         string(st.Mode),
		CredentialID: st.SelectedID,
		Discovering:  st.Discovering,
		Notice:       st.Notice,
		Items:        items,
	}
}

// toProjectResponse converts a domain Project to its JSON representation.
func toProjectResponse(p model.Project) ProjectResponse {
	return ProjectResponse{
		ID:           p.ID,
		Name:         p.Name,
		Key:          p.Key,
		Domain:       p.Domain,
		ServiceType:  string(p.ServiceType),
		CredentialID: p.CredentialID,
		ExternalID:   p.ExternalID,
	}
}
