package redisclient

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// localLocker is an in-process Locker for tests and single-node dev runs
// where Redis is not available. It holds one mutex per (doctor, slot) key.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() Locker {
	return &localLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *localLocker) WithSlotLock(ctx context.Context, doctorID uuid.UUID, slotKey string, fn func(ctx context.Context) error) error {
	key := doctorID.String() + ":" + slotKey

	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
