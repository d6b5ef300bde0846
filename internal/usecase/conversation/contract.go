package conversation

import (
	"context"

	"github.com/kailas-cloud/limitwatch/internal/domain/project"
	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
	"github.com/kailas-cloud/limitwatch/internal/usecase/quota"
)

// Projects is the configured project registry.
type Projects interface {
	ForUser(userID int64) []project.Project
	Authorize(projectID string, userID int64, access project.Access) (project.Project, error)
}

// Quotas reads and mutates project quotas.
type Quotas interface {
	Status(ctx context.Context, projectID string) (domquota.Quota, error)
	Apply(ctx context.Context, projectID string, mode domquota.Mode, value int64) (quota.Result, error)
}
