package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"github.com/kailas-cloud/limitwatch/internal/domain/project"
	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
	"github.com/kailas-cloud/limitwatch/internal/metrics"
)

// DefaultInterval is the period between two evaluations.
const DefaultInterval = time.Hour

// Outcome is what a tick did for one project.
type Outcome string

// Tick outcomes.
const (
	OutcomeNone    Outcome = "none"
	OutcomeWarned  Outcome = "warned"
	OutcomeCleared Outcome = "cleared"
	OutcomeFailed  Outcome = "failed"
)

// Monitor periodically warns project stakeholders about a low remaining balance.
type Monitor struct {
	projects ProjectSource
	store    Store
	notifier Notifier
	policy   domquota.Policy
	interval time.Duration
	clock    quartz.Clock
	logger   *zap.Logger
}

// New creates a Monitor. Non-positive intervals fall back to DefaultInterval.
func New(projects ProjectSource, store Store, notifier Notifier, policy domquota.Policy,
	interval time.Duration, logger *zap.Logger,
) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		projects: projects,
		store:    store,
		notifier: notifier,
		policy:   policy,
		interval: interval,
		clock:    quartz.NewReal(),
		logger:   logger,
	}
}

// WithClock replaces the wall clock (tests).
func (m *Monitor) WithClock(clock quartz.Clock) *Monitor {
	m.clock = clock
	return m
}

// Run evaluates all projects immediately and then once per interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("Warning monitor started",
		zap.Duration("interval", m.interval),
		zap.Int64("threshold", m.policy.Threshold),
	)
	m.Tick(ctx)

	err := m.clock.TickerFunc(ctx, m.interval, func() error {
		m.Tick(ctx)
		return nil
	}, "monitor").Wait()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		m.logger.Info("Warning monitor stopped")
		return nil
	}
	return err
}

// Tick evaluates every project once. A failing project never stops the others.
func (m *Monitor) Tick(ctx context.Context) map[string]Outcome {
	m.logger.Info("Checking project limits")
	outcomes := make(map[string]Outcome)
	for _, p := range m.projects.All() {
		if ctx.Err() != nil {
			break
		}
		outcome, err := m.evaluateSafe(ctx, p)
		outcomes[p.ID()] = outcome
		if err != nil {
			metrics.MonitorTicksTotal.WithLabelValues("error").Inc()
			m.logger.Error("Limit check failed",
				zap.String("project", p.ID()),
				zap.Error(err),
			)
			continue
		}
		metrics.MonitorTicksTotal.WithLabelValues("ok").Inc()
	}
	return outcomes
}

func (m *Monitor) evaluateSafe(ctx context.Context, p project.Project) (outcome Outcome, err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			outcome = OutcomeFailed
			err = fmt.Errorf("panic: %v", rvr)
		}
	}()
	return m.evaluate(ctx, p)
}

func (m *Monitor) evaluate(ctx context.Context, p project.Project) (Outcome, error) {
	keys := domquota.KeysFor(p)
	q, err := m.store.Load(ctx, keys)
	if err != nil {
		return OutcomeFailed, err
	}
	metrics.QuotaRemaining.WithLabelValues(p.ID()).Set(float64(q.Remaining()))

	switch {
	case m.policy.ShouldWarn(q):
		m.notifyAll(ctx, p, WarningText(p, q))
		if err := m.store.SetFlag(ctx, keys.Warning, true); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeWarned, nil
	case m.policy.ShouldClear(q):
		if err := m.store.SetFlag(ctx, keys.Warning, false); err != nil {
			return OutcomeFailed, err
		}
		m.logger.Info("Low balance warning cleared",
			zap.String("project", p.ID()),
			zap.Int64("remaining", q.Remaining()),
		)
		return OutcomeCleared, nil
	default:
		return OutcomeNone, nil
	}
}

func (m *Monitor) notifyAll(ctx context.Context, p project.Project, text string) {
	for _, userID := range p.Recipients() {
		if err := m.notifier.Notify(ctx, userID, text); err != nil {
			metrics.NotificationsTotal.WithLabelValues("failed").Inc()
			m.logger.Warn("Failed to deliver low balance warning",
				zap.String("project", p.ID()),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	}
}

// WarningText is the low-balance notification sent to each stakeholder.
func WarningText(p project.Project, q domquota.Quota) string {
	return fmt.Sprintf("⚠️ Project '%s' has only %d of %d limits left!", p.Name(), q.Remaining(), q.Limit())
}
