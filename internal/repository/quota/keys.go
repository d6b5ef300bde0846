package quota

import (
	"fmt"

	"github.com/kailas-cloud/limitwatch/internal/domain/project"
	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
)

// projectLookup is the consumer interface over the project registry (ISP).
type projectLookup interface {
	Get(id string) (project.Project, error)
}

// Resolver maps project ids to store keys.
type Resolver struct {
	projects projectLookup
}

// NewResolver creates a Resolver over the configured projects.
func NewResolver(projects projectLookup) *Resolver {
	return &Resolver{projects: projects}
}

// Resolve returns the keys for a project id.
func (r *Resolver) Resolve(projectID string) (domquota.Keys, error) {
	p, err := r.projects.Get(projectID)
	if err != nil {
		return domquota.Keys{}, fmt.Errorf("resolve keys: %w", err)
	}
	return domquota.KeysFor(p), nil
}
