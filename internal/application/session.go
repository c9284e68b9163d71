package application

import (
	"sync"

	"github.com/aledeev/tracklink/internal/domain/model"
)

// State is a snapshot of the linking session: the cached credential list,
// the in-memory linked-project registry, the current discovery result, and
// the transient view markers. Values handed out by Snapshot are treated as
// immutable; every transition goes through reduce so stale discovery
// responses are discarded at a single seam.
type State struct {
	Mode        model.SourceMode
	Credentials []model.Credential
	SelectedID  int64 // 0 when no credential is selected
	Projects    []model.Project
	External    []model.ExternalProject
	NewlyLinked map[string]bool // external project keys linked since the last discovery
	Deleted     map[string]bool // external project keys unlinked since the last discovery
	Generation  uint64
	Discovering bool
	Notice      string
}

// SelectedCredential returns the currently selected credential, if any.
func (s State) SelectedCredential() (model.Credential, bool) {
	if s.SelectedID == 0 {
		return model.Credential{}, false
	}
	for _, c := range s.Credentials {
		if c.ID == s.SelectedID {
			return c, true
		}
	}
	return model.Credential{}, false
}

// Event is a session state transition. Concrete event types below are the
// only way session state changes.
type Event interface{ isEvent() }

type credentialsLoaded struct{ credentials []model.Credential }

type modeSelected struct{ mode model.SourceMode }

// credentialSelected bumps the generation so any in-flight discovery for a
// previous selection resolves stale.
type credentialSelected struct{ id int64 }

type discoveryResolved struct {
	gen      uint64
	projects []model.ExternalProject
	notice   string
}

type discoveryFailed struct {
	gen    uint64
	notice string
	// auth failures clear the external list; transient failures keep it.
	auth bool
}

type credentialAdded struct{ credential model.Credential }

type credentialRemoved struct{ id int64 }

type projectsReplaced struct{ projects []model.Project }

type projectLinked struct{ project model.Project }

type projectUnlinked struct{ project model.Project }

func (credentialsLoaded) isEvent()  {}
func (modeSelected) isEvent()       {}
func (credentialSelected) isEvent() {}
func (discoveryResolved) isEvent()  {}
func (discoveryFailed) isEvent()    {}
func (credentialAdded) isEvent()    {}
func (credentialRemoved) isEvent()  {}
func (projectsReplaced) isEvent()   {}
func (projectLinked) isEvent()      {}
func (projectUnlinked) isEvent()    {}

// reduce applies one event to a state and returns the next state. Pure;
// slices and maps are replaced, never mutated in place.
func reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case credentialsLoaded:
		s.Credentials = e.credentials
		// A non-empty credential list with nothing selected defaults the
		// session to the existing-credential flow, unless the user already
		// chose a mode.
		if len(e.credentials) > 0 && s.SelectedID == 0 && s.Mode == "" {
			s.Mode = model.SourceModeExisting
		}

	case modeSelected:
		s.Mode = e.mode
		if e.mode == model.SourceModeNew {
			s = clearSelection(s)
		}

	case credentialSelected:
		s.Mode = model.SourceModeExisting
		// Re-selecting the same credential is a refresh: the old list stays
		// visible until the fetch resolves, and survives a transient failure.
		// Switching credentials clears it, so the old credential's projects
		// can never show under the new selection.
		if e.id != s.SelectedID {
			s.External = nil
		}
		s.SelectedID = e.id
		s.NewlyLinked = nil
		s.Deleted = nil
		s.Notice = ""
		s.Generation++
		s.Discovering = true

	case discoveryResolved:
		if e.gen != s.Generation {
			return s // stale response for a superseded selection
		}
		s.External = e.projects
		s.Discovering = false
		s.Notice = e.notice

	case discoveryFailed:
		if e.gen != s.Generation {
			return s
		}
		s.Discovering = false
		s.Notice = e.notice
		if e.auth {
			s.External = nil
		}

	case credentialAdded:
		s.Credentials = append(cloneCredentials(s.Credentials), e.credential)

	case credentialRemoved:
		creds := make([]model.Credential, 0, len(s.Credentials))
		for _, c := range s.Credentials {
			if c.ID != e.id {
				creds = append(creds, c)
			}
		}
		s.Credentials = creds

		// Cascade: drop every project linked through the removed credential.
		projects := make([]model.Project, 0, len(s.Projects))
		for _, p := range s.Projects {
			if p.CredentialID != e.id {
				projects = append(projects, p)
			}
		}
		s.Projects = projects

		s = clearSelection(s)

	case projectsReplaced:
		s.Projects = e.projects

	case projectLinked:
		s.Projects = append(cloneProjects(s.Projects), e.project)
		s.NewlyLinked = withKey(s.NewlyLinked, e.project.Key)

	case projectUnlinked:
		projects := make([]model.Project, 0, len(s.Projects))
		for _, p := range s.Projects {
			if p.ID != e.project.ID {
				projects = append(projects, p)
			}
		}
		s.Projects = projects
		s.Deleted = withKey(s.Deleted, e.project.Key)
	}

	return s
}

// clearSelection resets everything that depends on the selected credential.
// The generation bump invalidates any discovery still in flight.
func clearSelection(s State) State {
	s.SelectedID = 0
	s.External = nil
	s.NewlyLinked = nil
	s.Deleted = nil
	s.Notice = ""
	s.Discovering = false
	s.Generation++
	return s
}

func cloneCredentials(in []model.Credential) []model.Credential {
	out := make([]model.Credential, len(in))
	copy(out, in)
	return out
}

func cloneProjects(in []model.Project) []model.Project {
	out := make([]model.Project, len(in))
	copy(out, in)
	return out
}

func withKey(in map[string]bool, key string) map[string]bool {
	out := make(map[string]bool, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	out[key] = true
	return out
}

// Session owns the engine's shared mutable state. Snapshot returns the
// current state for reading; dispatch applies an event under the lock and
// returns the resulting state.
type Session struct {
	mu    sync.RWMutex
	state State
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// Snapshot returns the current state. The returned value shares slices and
// maps with the session; callers must not modify them.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) dispatch(ev Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = reduce(s.state, ev)
	return s.state
}
