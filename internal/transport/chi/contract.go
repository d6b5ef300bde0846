package chi

import (
	"context"

	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
	healthuc "github.com/kailas-cloud/limitwatch/internal/usecase/health"
)

// QuotaService reads and consumes project quotas.
type QuotaService interface {
	Status(ctx context.Context, projectID string) (domquota.Quota, error)
	Consume(ctx context.Context, projectID string, amount int64) (domquota.Quota, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
