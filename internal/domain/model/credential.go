package model

import "time"

// Credential is a stored access grant for one external ticket tracker:
// token + base URL + account email. The full token is write-only from this
// engine's perspective; after creation the backend returns only TokenHint,
// a short prefix safe to render.
type Credential struct {
	ID           int64
	ServiceType  ServiceType
	Domain       string
	AccountEmail string
	TokenHint    string
	CreatedAt    time.Time
	ExpiresAt    *time.Time
}

// NewCredential carries the fields required to register a credential.
// Token is the only place the full secret ever appears.
type NewCredential struct {
	ServiceType  ServiceType
	Token        string
	Domain       string
	AccountEmail string
}
