package quota

import (
	"context"

	"github.com/kailas-cloud/limitwatch/internal/domain/project"
	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
)

// ProjectLookup resolves configured projects.
type ProjectLookup interface {
	Get(id string) (project.Project, error)
}

// KeyResolver maps a project id to its store keys.
type KeyResolver interface {
	Resolve(projectID string) (domquota.Keys, error)
}

// Store is the quota counter storage.
type Store interface {
	GetInt(ctx context.Context, key string) (int64, error)
	SetInt(ctx context.Context, key string, val int64) error
	SetFlag(ctx context.Context, key string, on bool) error
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	Load(ctx context.Context, keys domquota.Keys) (domquota.Quota, error)
}
