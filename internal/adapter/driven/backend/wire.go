package backend

import (
	"time"

	"github.com/aledeev/tracklink/internal/domain/model"
)

// apiErrorJSON is the backend's structured error body. Code is the machine
// classification; Message is display text and never drives control flow.
type apiErrorJSON struct {
	Message string `json:"error"`
	Code    string `json:"code"`
}

// credentialJSON mirrors the backend's credential representation.
type credentialJSON struct {
	ID          int64      `json:"id"`
	ServiceType string     `json:"service_type"`
	Domain      string     `json:"domain"`
	DomainEmail string     `json:"domain_email"`
	TokenHint   string     `json:"token_hint"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// addCredentialJSON is the body of POST /api-keys/add. The only request that
// carries a full token.
type addCredentialJSON struct {
	ServiceType string `json:"service_type"`
	APIKey      string `json:"api_key"`
	Domain      string `json:"domain"`
	DomainEmail string `json:"domain_email"`
}

// externalProjectJSON mirrors one entry of the external discovery response.
type externalProjectJSON struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	TypeKey   string `json:"typeKey"`
}

// projectJSON mirrors the backend's linked-project representation.
type projectJSON struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	Domain      string `json:"domain"`
	ServiceType string `json:"service_type"`
	APIKeyID    int64  `json:"api_key_id"`
	InternalID  string `json:"internal_id"`
}

// linkRequestJSON is the body of POST /projects/internal/add.
type linkRequestJSON struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	ServiceType string `json:"service_type"`
	InternalID  string `json:"internal_id"`
	Key         string `json:"key"`
	APIKeyID    int64  `json:"api_key_id"`
}

// reindexRequestJSON is the body of POST /projects/reload-embeddings.
type reindexRequestJSON struct {
	ProjectKey string `json:"projectKey"`
}

// mapCredential converts a wire credential to its domain model.
func mapCredential(cj credentialJSON) model.Credential {
	return model.Credential{
		ID:           cj.ID,
		ServiceType:  model.ServiceType(cj.ServiceType),
		Domain:       cj.Domain,
		AccountEmail: cj.DomainEmail,
		TokenHint:    cj.TokenHint,
		CreatedAt:    cj.CreatedAt,
		ExpiresAt:    cj.ExpiresAt,
	}
}

// mapExternalProject converts a wire external project to its domain model.
func mapExternalProject(pj externalProjectJSON) model.ExternalProject {
	return model.ExternalProject{
		ID:        pj.ID,
		Key:       pj.Key,
		Name:      pj.Name,
		AvatarURL: pj.AvatarURL,
		TypeKey:   pj.TypeKey,
	}
}

// mapProject converts a wire linked project to its domain model.
func mapProject(pj projectJSON) model.Project {
	return model.Project{
		ID:           pj.ID,
		Name:         pj.Name,
		Key:          pj.Key,
		Domain:       pj.Domain,
		ServiceType:  model.ServiceType(pj.ServiceType),
		CredentialID: pj.APIKeyID,
		ExternalID:   pj.InternalID,
	}
}
