// Package waitingroom keeps a FIFO queue of checked-in patients per doctor.
// Patients enroll with an opaque token issued at check-in; verification
// dequeues the matching entry. Counts are polled by the waiting-room display.
package waitingroom

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyEnrolled = errors.New("token already enrolled in this queue")
	ErrEmptyToken      = errors.New("enrollment token must not be empty")
)

// queueCommands is the slice of redis commands the queue needs. *redis.Client
// satisfies it; tests provide an in-memory implementation.
type queueCommands interface {
	LPos(ctx context.Context, key, value string, args redis.LPosArgs) *redis.IntCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRem(ctx context.Context, key string, count int64, value interface{}) *redis.IntCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

type Service struct {
	rdb queueCommands
}

func NewService(rdb *redis.Client) *Service {
	return &Service{rdb: rdb}
}

func newServiceWithCommands(rdb queueCommands) *Service {
	return &Service{rdb: rdb}
}

func queueKey(doctorID uuid.UUID) string {
	return "waitingroom:" + doctorID.String()
}

// Enroll appends the token to the doctor's queue and returns the new queue
// length. Duplicate tokens are rejected so one patient cannot occupy two
// positions.
func (s *Service) Enroll(ctx context.Context, doctorID uuid.UUID, token string) (int64, error) {
	if token == "" {
		return 0, ErrEmptyToken
	}
	key := queueKey(doctorID)

	_, err := s.rdb.LPos(ctx, key, token, redis.LPosArgs{}).Result()
	if err == nil {
		return 0, ErrAlreadyEnrolled
	}
	if !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("check enrollment: %w", err)
	}

	count, err := s.rdb.RPush(ctx, key, token).Result()
	if err != nil {
		return 0, fmt.Errorf("enroll: %w", err)
	}
	return count, nil
}

// Verify dequeues the token if it is waiting. The returned count reflects
// the queue after the removal attempt either way.
func (s *Service) Verify(ctx context.Context, doctorID uuid.UUID, token string) (verified bool, count int64, err error) {
	if token == "" {
		return false, 0, ErrEmptyToken
	}
	key := queueKey(doctorID)

	removed, err := s.rdb.LRem(ctx, key, 1, token).Result()
	if err != nil {
		return false, 0, fmt.Errorf("verify: %w", err)
	}

	count, err = s.rdb.LLen(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("queue length: %w", err)
	}
	return removed > 0, count, nil
}

// Count returns the doctor's current queue length.
func (s *Service) Count(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	count, err := s.rdb.LLen(ctx, queueKey(doctorID)).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return count, nil
}
