package model

// ServiceType identifies the external ticket-tracking platform a credential
// belongs to.
type ServiceType string

const (
	ServiceJira     ServiceType = "jira"
	ServiceYouTrack ServiceType = "youtrack"
)

// Valid reports whether s is a known service type.
func (s ServiceType) Valid() bool {
	switch s {
	case ServiceJira, ServiceYouTrack:
		return true
	}
	return false
}

// LinkStatus says whether an external project corresponds to a project in
// the local registry.
type LinkStatus string

const (
	LinkStatusLinked    LinkStatus = "linked"
	LinkStatusNotLinked LinkStatus = "not_linked"
)

// SourceMode selects between registering a new credential and browsing
// projects through an existing one.
type SourceMode string

const (
	SourceModeNew      SourceMode = "new"
	SourceModeExisting SourceMode = "existing"
)
