package model

// ExternalProject is a project as currently visible through a given
// credential on the external platform. Never persisted; re-fetched on every
// discovery call. Two ExternalProjects obtained through different
// credentials may describe the same real project -- the engine does not
// deduplicate across credentials.
type ExternalProject struct {
	ID        string // platform-side identifier
	Key       string
	Name      string
	AvatarURL string
	TypeKey   string
}
