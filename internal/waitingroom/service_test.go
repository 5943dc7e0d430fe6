package waitingroom

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// memQueue implements queueCommands over in-process lists.
type memQueue struct {
	mu    sync.Mutex
	lists map[string][]string
}

func newMemQueue() *memQueue {
	return &memQueue{lists: make(map[string][]string)}
}

func (m *memQueue) LPos(ctx context.Context, key, value string, _ redis.LPosArgs) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range m.lists[key] {
		if v == value {
			return redis.NewIntResult(int64(i), nil)
		}
	}
	return redis.NewIntResult(0, redis.Nil)
}

func (m *memQueue) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		m.lists[key] = append(m.lists[key], v.(string))
	}
	return redis.NewIntResult(int64(len(m.lists[key])), nil)
}

func (m *memQueue) LRem(ctx context.Context, key string, count int64, value interface{}) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	list := m.lists[key][:0]
	for _, v := range m.lists[key] {
		if v == value.(string) && (count <= 0 || removed < count) {
			removed++
			continue
		}
		list = append(list, v)
	}
	m.lists[key] = list
	return redis.NewIntResult(removed, nil)
}

func (m *memQueue) LLen(ctx context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	return redis.NewIntResult(int64(len(m.lists[key])), nil)
}

func TestWaitingRoom(t *testing.T) {
	ctx := context.Background()
	doctor := uuid.New()

	t.Run("EnrollGrowsQueue", func(t *testing.T) {
		svc := newServiceWithCommands(newMemQueue())

		count, err := svc.Enroll(ctx, doctor, "token-a")
		if err != nil {
			t.Fatalf("enroll: %v", err)
		}
		if count != 1 {
			t.Errorf("expected count 1, got %d", count)
		}
		count, err = svc.Enroll(ctx, doctor, "token-b")
		if err != nil {
			t.Fatalf("enroll: %v", err)
		}
		if count != 2 {
			t.Errorf("expected count 2, got %d", count)
		}
	})

	t.Run("DuplicateEnrollRejected", func(t *testing.T) {
		svc := newServiceWithCommands(newMemQueue())
		if _, err := svc.Enroll(ctx, doctor, "token-a"); err != nil {
			t.Fatalf("enroll: %v", err)
		}
		if _, err := svc.Enroll(ctx, doctor, "token-a"); !errors.Is(err, ErrAlreadyEnrolled) {
			t.Errorf("expected ErrAlreadyEnrolled, got %v", err)
		}
	})

	t.Run("VerifyDequeues", func(t *testing.T) {
		svc := newServiceWithCommands(newMemQueue())
		if _, err := svc.Enroll(ctx, doctor, "token-a"); err != nil {
			t.Fatalf("enroll: %v", err)
		}
		if _, err := svc.Enroll(ctx, doctor, "token-b"); err != nil {
			t.Fatalf("enroll: %v", err)
		}

		verified, count, err := svc.Verify(ctx, doctor, "token-a")
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if !verified || count != 1 {
			t.Errorf("expected verified with count 1, got %v/%d", verified, count)
		}

		// Verifying again finds nothing but still reports the count.
		verified, count, err = svc.Verify(ctx, doctor, "token-a")
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if verified || count != 1 {
			t.Errorf("expected not verified with count 1, got %v/%d", verified, count)
		}
	})

	t.Run("QueuesAreDoctorScoped", func(t *testing.T) {
		svc := newServiceWithCommands(newMemQueue())
		otherDoctor := uuid.New()

		if _, err := svc.Enroll(ctx, doctor, "token-a"); err != nil {
			t.Fatalf("enroll: %v", err)
		}
		count, err := svc.Count(ctx, otherDoctor)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 0 {
			t.Errorf("expected empty queue for other doctor, got %d", count)
		}
		if _, err := svc.Enroll(ctx, otherDoctor, "token-a"); err != nil {
			t.Errorf("same token in another queue should be fine: %v", err)
		}
	})

	t.Run("EmptyTokenRejected", func(t *testing.T) {
		svc := newServiceWithCommands(newMemQueue())
		if _, err := svc.Enroll(ctx, doctor, ""); !errors.Is(err, ErrEmptyToken) {
			t.Errorf("expected ErrEmptyToken, got %v", err)
		}
		if _, _, err := svc.Verify(ctx, doctor, ""); !errors.Is(err, ErrEmptyToken) {
			t.Errorf("expected ErrEmptyToken, got %v", err)
		}
	})
}
