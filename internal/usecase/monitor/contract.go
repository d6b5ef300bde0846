package monitor

import (
	"context"

	"github.com/kailas-cloud/limitwatch/internal/domain/project"
	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
)

// ProjectSource lists the configured projects.
type ProjectSource interface {
	All() []project.Project
}

// Store reads quota snapshots and toggles the warning flag.
type Store interface {
	Load(ctx context.Context, keys domquota.Keys) (domquota.Quota, error)
	SetFlag(ctx context.Context, key string, on bool) error
}

// Notifier delivers a message to a single user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}
