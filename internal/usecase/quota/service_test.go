package quota

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/kailas-cloud/limitwatch/internal/domain"
	"github.com/kailas-cloud/limitwatch/internal/domain/project"
	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
)

// --- Mocks ---

type mockStore struct {
	mu     sync.Mutex
	ints   map[string]int64
	flags  map[string]bool
	err    error
	writes []string
}

func newMockStore() *mockStore {
	return &mockStore{ints: map[string]int64{}, flags: map[string]bool{}}
}

func (m *mockStore) GetInt(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.ints[key], nil
}

func (m *mockStore) SetInt(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.ints[key] = val
	m.writes = append(m.writes, key)
	return nil
}

func (m *mockStore) SetFlag(_ context.Context, key string, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.flags[key] = on
	m.writes = append(m.writes, key)
	return nil
}

func (m *mockStore) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.ints[key] += delta
	return m.ints[key], nil
}

func (m *mockStore) Load(_ context.Context, keys domquota.Keys) (domquota.Quota, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domquota.Quota{}, m.err
	}
	return domquota.New(m.ints[keys.Limit], m.ints[keys.Used], m.flags[keys.Warning]), nil
}

type registryResolver struct {
	reg *project.Registry
}

func (r registryResolver) Resolve(id string) (domquota.Keys, error) {
	p, err := r.reg.Get(id)
	if err != nil {
		return domquota.Keys{}, err
	}
	return domquota.KeysFor(p), nil
}

func newTestService(t *testing.T) (*Service, *mockStore) {
	t.Helper()
	reg, err := project.NewRegistry(
		project.New("shop", "Shop", []int64{1}, []int64{2}, false),
		project.New("legacy", "Legacy", []int64{1}, nil, true),
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	st := newMockStore()
	return New(reg, registryResolver{reg: reg}, st, domquota.NewPolicy(15), nil), st
}

const (
	shopLimit   = "project:shop:limit"
	shopUsed    = "project:shop:count"
	shopWarning = "project:shop:warning_sent"
)

// --- Tests ---

func TestApply_SetResetsUsed(t *testing.T) {
	svc, st := newTestService(t)
	st.ints[shopLimit] = 10
	st.ints[shopUsed] = 7

	res, err := svc.Apply(context.Background(), "shop", domquota.ModeSet, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Limit != 100 || res.Used != 0 || res.Remaining() != 100 {
		t.Errorf("unexpected result: %+v", res)
	}
	if st.ints[shopLimit] != 100 || st.ints[shopUsed] != 0 {
		t.Errorf("store not updated: limit=%d used=%d", st.ints[shopLimit], st.ints[shopUsed])
	}
	if res.Project.Name() != "Shop" || res.Mode != domquota.ModeSet || res.Value != 100 {
		t.Errorf("result metadata not filled: %+v", res)
	}
}

func TestApply_SetAboveThresholdClearsFlag(t *testing.T) {
	svc, st := newTestService(t)
	st.flags[shopWarning] = true

	if _, err := svc.Apply(context.Background(), "shop", domquota.ModeSet, 16); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.flags[shopWarning] {
		t.Error("warning flag should be cleared")
	}
}

func TestApply_SetAtOrBelowThresholdKeepsFlag(t *testing.T) {
	for _, value := range []int64{0, 10, 15} {
		svc, st := newTestService(t)
		st.flags[shopWarning] = true

		if _, err := svc.Apply(context.Background(), "shop", domquota.ModeSet, value); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !st.flags[shopWarning] {
			t.Errorf("set(%d): warning flag must be left untouched", value)
		}
		for _, k := range st.writes {
			if k == shopWarning {
				t.Errorf("set(%d): warning flag must not be written", value)
			}
		}
	}
}

func TestApply_AddKeepsUsedAndClearsFlag(t *testing.T) {
	// limit=100, used=90 with an outstanding warning; admin adds 20.
	svc, st := newTestService(t)
	st.ints[shopLimit] = 100
	st.ints[shopUsed] = 90
	st.flags[shopWarning] = true

	res, err := svc.Apply(context.Background(), "shop", domquota.ModeAdd, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Limit != 120 || res.Used != 90 || res.Remaining() != 30 {
		t.Errorf("unexpected result: %+v", res)
	}
	if st.ints[shopUsed] != 90 {
		t.Errorf("used must be unchanged, got %d", st.ints[shopUsed])
	}
	if st.flags[shopWarning] {
		t.Error("warning flag should be cleared when remaining > 15")
	}
}

func TestApply_AddStillLowKeepsFlag(t *testing.T) {
	svc, st := newTestService(t)
	st.ints[shopLimit] = 100
	st.ints[shopUsed] = 95
	st.flags[shopWarning] = true

	res, err := svc.Apply(context.Background(), "shop", domquota.ModeAdd, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Remaining() != 10 {
		t.Errorf("expected remaining 10, got %d", res.Remaining())
	}
	if !st.flags[shopWarning] {
		t.Error("warning flag must stay set while remaining <= 15")
	}
}

func TestApply_AddOverflowRejected(t *testing.T) {
	svc, st := newTestService(t)
	st.ints[shopLimit] = math.MaxInt64 - 10

	_, err := svc.Apply(context.Background(), "shop", domquota.ModeAdd, 100)
	if !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if st.ints[shopLimit] != math.MaxInt64-10 {
		t.Errorf("limit must be unchanged, got %d", st.ints[shopLimit])
	}
	if len(st.writes) != 0 {
		t.Errorf("no writes expected, got %v", st.writes)
	}
}

func TestApply_AddUpToMaxInt(t *testing.T) {
	svc, st := newTestService(t)
	st.ints[shopLimit] = 8

	res, err := svc.Apply(context.Background(), "shop", domquota.ModeAdd, math.MaxInt64-8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Limit != math.MaxInt64 {
		t.Errorf("expected limit %d, got %d", int64(math.MaxInt64), res.Limit)
	}

	// One more overflows.
	if _, err := svc.Apply(context.Background(), "shop", domquota.ModeAdd, 1); !errors.Is(err, domain.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestApply_AddToNegativeStoredLimit(t *testing.T) {
	svc, st := newTestService(t)
	st.ints[shopLimit] = -5

	res, err := svc.Apply(context.Background(), "shop", domquota.ModeAdd, math.MaxInt64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Limit != math.MaxInt64-5 {
		t.Errorf("unexpected limit %d", res.Limit)
	}
}

func TestApply_LegacyKeys(t *testing.T) {
	svc, st := newTestService(t)
	if _, err := svc.Apply(context.Background(), "legacy", domquota.ModeSet, 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.ints["chat_limit"] != 50 {
		t.Errorf("expected chat_limit=50, got %d", st.ints["chat_limit"])
	}
}

func TestApply_InvalidInput(t *testing.T) {
	svc, st := newTestService(t)

	if _, err := svc.Apply(context.Background(), "shop", domquota.Mode("mul"), 5); !errors.Is(err, domain.ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
	if _, err := svc.Apply(context.Background(), "shop", domquota.ModeSet, -1); !errors.Is(err, domain.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
	if _, err := svc.Apply(context.Background(), "ghost", domquota.ModeSet, 5); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
	if len(st.writes) != 0 {
		t.Errorf("no writes expected, got %v", st.writes)
	}
}

func TestApply_StoreError(t *testing.T) {
	svc, st := newTestService(t)
	st.err = domain.ErrStoreUnavailable

	_, err := svc.Apply(context.Background(), "shop", domquota.ModeAdd, 5)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	svc, st := newTestService(t)
	st.ints[shopLimit] = 100
	st.ints[shopUsed] = 120

	q, err := svc.Status(context.Background(), "shop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Remaining() != 0 {
		t.Errorf("remaining must be floored at 0, got %d", q.Remaining())
	}
}

func TestConsume(t *testing.T) {
	svc, st := newTestService(t)
	st.ints[shopLimit] = 100
	st.ints[shopUsed] = 10

	q, err := svc.Consume(context.Background(), "shop", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Used() != 15 || q.Remaining() != 85 {
		t.Errorf("unexpected quota after consume: used=%d remaining=%d", q.Used(), q.Remaining())
	}

	if _, err := svc.Consume(context.Background(), "shop", 0); !errors.Is(err, domain.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}
