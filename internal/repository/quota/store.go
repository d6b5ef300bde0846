package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/limitwatch/internal/db"
	"github.com/kailas-cloud/limitwatch/internal/domain"
	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
)

const (
	flagOn  = "1"
	flagOff = "0"
)

// store is the consumer interface for quota operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
}

// Store reads and writes quota counters. It never caches: every call is a round trip.
type Store struct {
	store  store
	logger *zap.Logger
}

// New creates a quota store.
func New(s store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{store: s, logger: logger}
}

// GetInt returns the integer at key. Missing and non-numeric values read as 0.
func (s *Store) GetInt(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, unavailable(db.OpGet, key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		s.logger.Debug("Non-numeric quota value treated as 0",
			zap.String("key", key),
			zap.ByteString("value", data),
		)
		return 0, nil
	}
	return val, nil
}

// SetInt stores an integer at key.
func (s *Store) SetInt(ctx context.Context, key string, val int64) error {
	if err := s.store.Set(ctx, key, []byte(strconv.FormatInt(val, 10))); err != nil {
		return unavailable(db.OpSet, key, err)
	}
	return nil
}

// GetFlag reports whether the flag at key is exactly "1".
func (s *Store) GetFlag(ctx context.Context, key string) (bool, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, unavailable(db.OpGet, key, err)
	}
	return string(data) == flagOn, nil
}

// SetFlag stores "1" or "0" at key.
func (s *Store) SetFlag(ctx context.Context, key string, on bool) error {
	val := flagOff
	if on {
		val = flagOn
	}
	if err := s.store.Set(ctx, key, []byte(val)); err != nil {
		return unavailable(db.OpSet, key, err)
	}
	return nil
}

// IncrBy atomically adds delta to the integer at key and returns the new value.
// A rejected increment (overflow, non-integer value) is ErrInvalidValue.
func (s *Store) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := s.store.IncrBy(ctx, key, delta)
	if err != nil {
		if errors.Is(err, db.ErrRejected) {
			return 0, fmt.Errorf("quota %s %s: %w: %w", db.OpIncrBy, key, domain.ErrInvalidValue, err)
		}
		return 0, unavailable(db.OpIncrBy, key, err)
	}
	return n, nil
}

// Load reads limit, used and the warning flag of one project.
func (s *Store) Load(ctx context.Context, keys domquota.Keys) (domquota.Quota, error) {
	limit, err := s.GetInt(ctx, keys.Limit)
	if err != nil {
		return domquota.Quota{}, err
	}
	used, err := s.GetInt(ctx, keys.Used)
	if err != nil {
		return domquota.Quota{}, err
	}
	warning, err := s.GetFlag(ctx, keys.Warning)
	if err != nil {
		return domquota.Quota{}, err
	}
	return domquota.New(limit, used, warning), nil
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("quota %s %s: %w: %w", op, key, domain.ErrStoreUnavailable, err)
}
