package application

import "github.com/aledeev/tracklink/internal/domain/model"

// Hooks are the collaborator callbacks the surrounding product registers so
// its own caches follow the engine's project registry. Both fields are
// optional.
type Hooks struct {
	// OnProjectsUpdate is called after any successful mutation of the linked
	// project list, with the full post-mutation list.
	OnProjectsUpdate func([]model.Project)

	// RefreshInternalProjects is called after an unlink so dependent views
	// re-derive from the backend instead of trusting the transient deleted
	// marker indefinitely.
	RefreshInternalProjects func()
}

func (h Hooks) projectsUpdated(projects []model.Project) {
	if h.OnProjectsUpdate != nil {
		h.OnProjectsUpdate(projects)
	}
}

func (h Hooks) refreshInternal() {
	if h.RefreshInternalProjects != nil {
		h.RefreshInternalProjects()
	}
}
