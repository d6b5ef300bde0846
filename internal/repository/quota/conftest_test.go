package quota

import (
	"context"
	"strconv"
	"sync"

	"github.com/kailas-cloud/limitwatch/internal/db"
)

// memKV is an in-memory KV used in place of Redis.
type memKV struct {
	mu     sync.Mutex
	data   map[string]string
	getErr  error
	setErr  error
	incrErr error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte(v), nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = string(value)
	return nil
}

func (m *memKV) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	if m.setErr != nil {
		return 0, m.setErr
	}
	cur, _ := strconv.ParseInt(m.data[key], 10, 64)
	cur += val
	m.data[key] = strconv.FormatInt(cur, 10)
	return cur, nil
}
