// Package application contains the linking engine: session state, the
// reconciliation view builder, and the use-case orchestration services.
package application

import "github.com/aledeev/tracklink/internal/domain/model"

// ProjectView is one row of the reconciled project list: an external project
// plus its derived relationship to the local registry and the transient
// client-side markers.
type ProjectView struct {
	External    model.ExternalProject
	Status      model.LinkStatus
	NewlyLinked bool
	Deleted     bool
}

// RenderState is the single display state a view row collapses to.
type RenderState string

const (
	RenderDeleted     RenderState = "deleted"
	RenderNewlyLinked RenderState = "newly_linked"
	RenderLinked      RenderState = "linked"
	RenderNotLinked   RenderState = "not_linked"
)

// Render collapses the row's flags into the one state the UI shows.
// Priority: deleted > newly linked > linked > not linked.
func (v ProjectView) Render() RenderState {
	switch {
	case v.Deleted:
		return RenderDeleted
	case v.NewlyLinked:
		return RenderNewlyLinked
	case v.Status == model.LinkStatusLinked:
		return RenderLinked
	default:
		return RenderNotLinked
	}
}

// Matcher reports whether a linked project corresponds to an external one.
// It decides both the Linked/NotLinked status in the view and the duplicate
// check on import.
type Matcher func(ext model.ExternalProject, p model.Project) bool

// DefaultMatcher matches on the platform-side id when the linked project
// carries one, and falls back to key or name equality when it does not.
// The fallback covers projects linked before external ids were stored.
func DefaultMatcher(ext model.ExternalProject, p model.Project) bool {
	if p.ExternalID != "" {
		return p.ExternalID == ext.ID
	}
	return p.Key == ext.Key || p.Name == ext.Name
}

// BuildView merges the externally visible projects with the local registry
// and the transient markers into one ordered view. Pure: same inputs always
// produce the same view, in discovery order.
func BuildView(external []model.ExternalProject, local []model.Project, newlyLinked, deleted map[string]bool, match Matcher) []ProjectView {
	if match == nil {
		match = DefaultMatcher
	}

	views := make([]ProjectView, 0, len(external))
	for _, ext := range external {
		status := model.LinkStatusNotLinked
		for _, p := range local {
			if match(ext, p) {
				status = model.LinkStatusLinked
				break
			}
		}

		views = append(views, ProjectView{
			External:    ext,
			Status:      status,
			NewlyLinked: newlyLinked[ext.Key],
			Deleted:     deleted[ext.Key],
		})
	}

	return views
}
