package quota

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kailas-cloud/limitwatch/internal/domain"
	"github.com/kailas-cloud/limitwatch/internal/domain/project"
	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
	"github.com/kailas-cloud/limitwatch/internal/metrics"
)

// Result is the outcome of a limit mutation.
type Result struct {
	Project project.Project
	Mode    domquota.Mode
	Value   int64
	Limit   int64
	Used    int64
}

// Remaining returns the balance after the mutation.
func (r Result) Remaining() int64 { return domquota.Remaining(r.Limit, r.Used) }

// Service applies limit mutations and reads quota state.
//
// Multi-key updates are not atomic: two admins adding to the same project
// concurrently may lose one update (last write wins per key).
type Service struct {
	projects ProjectLookup
	keys     KeyResolver
	store    Store
	policy   domquota.Policy
	logger   *zap.Logger
}

// New creates a quota service.
func New(projects ProjectLookup, keys KeyResolver, store Store, policy domquota.Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		projects: projects,
		keys:     keys,
		store:    store,
		policy:   policy,
		logger:   logger,
	}
}

// Policy returns the warning policy in effect.
func (s *Service) Policy() domquota.Policy { return s.policy }

// Status reads the current quota of a project.
func (s *Service) Status(ctx context.Context, projectID string) (domquota.Quota, error) {
	keys, err := s.keys.Resolve(projectID)
	if err != nil {
		return domquota.Quota{}, err
	}
	q, err := s.store.Load(ctx, keys)
	if err != nil {
		return domquota.Quota{}, fmt.Errorf("load quota: %w", err)
	}
	return q, nil
}

// Apply sets or grows the limit of a project.
func (s *Service) Apply(ctx context.Context, projectID string, mode domquota.Mode, value int64) (Result, error) {
	if !mode.IsValid() {
		return Result{}, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}
	if value < 0 {
		return Result{}, fmt.Errorf("%w: %d", domain.ErrInvalidValue, value)
	}

	p, err := s.projects.Get(projectID)
	if err != nil {
		return Result{}, err
	}
	keys, err := s.keys.Resolve(projectID)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch mode {
	case domquota.ModeSet:
		res, err = s.set(ctx, keys, value)
	case domquota.ModeAdd:
		res, err = s.add(ctx, keys, value)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%s limit: %w", mode, err)
	}
	res.Project = p
	res.Mode = mode
	res.Value = value

	metrics.QuotaMutationsTotal.WithLabelValues(string(mode)).Inc()
	s.logger.Info("Quota limit changed",
		zap.String("project", projectID),
		zap.String("mode", string(mode)),
		zap.Int64("value", value),
		zap.Int64("limit", res.Limit),
		zap.Int64("used", res.Used),
	)
	return res, nil
}

func (s *Service) set(ctx context.Context, keys domquota.Keys, value int64) (Result, error) {
	if err := s.store.SetInt(ctx, keys.Limit, value); err != nil {
		return Result{}, err
	}
	if err := s.store.SetInt(ctx, keys.Used, 0); err != nil {
		return Result{}, err
	}
	if s.policy.ClearsAfterSet(value) {
		if err := s.store.SetFlag(ctx, keys.Warning, false); err != nil {
			return Result{}, err
		}
	}
	return Result{Limit: value, Used: 0}, nil
}

func (s *Service) add(ctx context.Context, keys domquota.Keys, value int64) (Result, error) {
	limit, err := s.store.GetInt(ctx, keys.Limit)
	if err != nil {
		return Result{}, err
	}
	used, err := s.store.GetInt(ctx, keys.Used)
	if err != nil {
		return Result{}, err
	}

	if limit > 0 && value > math.MaxInt64-limit {
		return Result{}, fmt.Errorf("%w: adding %d to limit %d overflows", domain.ErrInvalidValue, value, limit)
	}
	newLimit := limit + value
	if err := s.store.SetInt(ctx, keys.Limit, newLimit); err != nil {
		return Result{}, err
	}
	if s.policy.ClearsAfterAdd(newLimit, used) {
		if err := s.store.SetFlag(ctx, keys.Warning, false); err != nil {
			return Result{}, err
		}
	}
	return Result{Limit: newLimit, Used: used}, nil
}

// Consume atomically advances the used counter of a project.
func (s *Service) Consume(ctx context.Context, projectID string, amount int64) (domquota.Quota, error) {
	if amount <= 0 {
		return domquota.Quota{}, fmt.Errorf("%w: amount must be positive, got %d", domain.ErrInvalidValue, amount)
	}
	keys, err := s.keys.Resolve(projectID)
	if err != nil {
		return domquota.Quota{}, err
	}
	if _, err := s.store.IncrBy(ctx, keys.Used, amount); err != nil {
		return domquota.Quota{}, fmt.Errorf("consume quota: %w", err)
	}
	return s.Status(ctx, projectID)
}
