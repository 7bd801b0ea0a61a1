// Package runstate provides the Redis-backed coordination primitives for
// analysis runs: the per-job run lock, the cancellation flag, and the
// progress counter. All cross-process coordination goes through this store,
// so multiple service instances can coexist safely.
package runstate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/applicant-analyzer/internal/types"
)

// DefaultLockTTL bounds lock lifetime so a crashed supervisor cannot hold a
// job forever. The supervisor renews it while work remains.
const DefaultLockTTL = 300 * time.Second

// renewScript extends the lock TTL only if the caller still owns it.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript removes the lock only if the caller is the current owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store implements the run lock, cancellation flag, and progress counter on
// a Redis-compatible key-value store.
type Store struct {
	client redis.UniversalClient
}

// New creates a Store backed by the given Redis client.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func lockKey(jobID string) string     { return "analysis:lock:" + jobID }
func cancelKey(jobID string) string   { return "analysis:cancel:" + jobID }
func progressKey(jobID string) string { return "analysis:progress:" + jobID }

// TryAcquire atomically acquires the run lock for a job if no other run holds
// it. Returns false when the lock is already held.
func (s *Store) TryAcquire(ctx context.Context, jobID, runID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	acquired, err := s.client.SetNX(ctx, lockKey(jobID), runID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock for job %s: %w", jobID, err)
	}
	return acquired, nil
}

// Renew extends the lock TTL only if runID still owns it. A false return
// means the lock was lost (expired or force-released); the caller must abort
// rather than keep writing.
func (s *Store) Renew(ctx context.Context, jobID, runID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	res, err := renewScript.Run(ctx, s.client, []string{lockKey(jobID)}, runID, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to renew run lock for job %s: %w", jobID, err)
	}
	return res == 1, nil
}

// Release removes the lock if runID is the current owner. Releasing a lock
// that is already gone, or owned by another run, is not an error.
func (s *Store) Release(ctx context.Context, jobID, runID string) error {
	if _, err := releaseScript.Run(ctx, s.client, []string{lockKey(jobID)}, runID).Result(); err != nil {
		return fmt.Errorf("failed to release run lock for job %s: %w", jobID, err)
	}
	return nil
}

// SetCancelled raises the cancellation flag for a job. The supervisor
// observes it at the next wave boundary.
func (s *Store) SetCancelled(ctx context.Context, jobID string) error {
	if err := s.client.Set(ctx, cancelKey(jobID), "1", DefaultLockTTL).Err(); err != nil {
		return fmt.Errorf("failed to set cancellation flag for job %s: %w", jobID, err)
	}
	return nil
}

// IsCancelled reports whether the cancellation flag is raised.
func (s *Store) IsCancelled(ctx context.Context, jobID string) (bool, error) {
	_, err := s.client.Get(ctx, cancelKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cancellation flag for job %s: %w", jobID, err)
	}
	return true, nil
}

// ClearCancelled lowers the cancellation flag. Called when a new run starts.
func (s *Store) ClearCancelled(ctx context.Context, jobID string) error {
	if err := s.client.Del(ctx, cancelKey(jobID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cancellation flag for job %s: %w", jobID, err)
	}
	return nil
}

// InitProgress fixes the progress counter at run start: processed=0 and the
// total discovered at that time.
func (s *Store) InitProgress(ctx context.Context, jobID string, total int, startedAt time.Time) error {
	err := s.client.HSet(ctx, progressKey(jobID), map[string]any{
		"processed":  0,
		"total":      total,
		"started_at": startedAt.UTC().Format(time.RFC3339),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to initialize progress for job %s: %w", jobID, err)
	}
	return nil
}

// IncrProcessed advances the processed counter by n. Analyzed and unprocessed
// applicants both count as processed.
func (s *Store) IncrProcessed(ctx context.Context, jobID string, n int) error {
	if err := s.client.HIncrBy(ctx, progressKey(jobID), "processed", int64(n)).Err(); err != nil {
		return fmt.Errorf("failed to increment progress for job %s: %w", jobID, err)
	}
	return nil
}

// GetProgress returns the current progress counter. The second return value
// is false when no counter exists for the job.
func (s *Store) GetProgress(ctx context.Context, jobID string) (types.Progress, bool, error) {
	fields, err := s.client.HGetAll(ctx, progressKey(jobID)).Result()
	if err != nil {
		return types.Progress{}, false, fmt.Errorf("failed to read progress for job %s: %w", jobID, err)
	}
	if len(fields) == 0 {
		return types.Progress{}, false, nil
	}

	var progress types.Progress
	if v, ok := fields["processed"]; ok {
		if progress.Processed, err = strconv.Atoi(v); err != nil {
			return types.Progress{}, false, fmt.Errorf("corrupt processed counter for job %s: %w", jobID, err)
		}
	}
	if v, ok := fields["total"]; ok {
		if progress.Total, err = strconv.Atoi(v); err != nil {
			return types.Progress{}, false, fmt.Errorf("corrupt total counter for job %s: %w", jobID, err)
		}
	}
	if v, ok := fields["started_at"]; ok {
		if progress.StartedAt, err = time.Parse(time.RFC3339, v); err != nil {
			return types.Progress{}, false, fmt.Errorf("corrupt started_at for job %s: %w", jobID, err)
		}
	}
	return progress, true, nil
}

// ClearProgress removes the progress counter at run end.
func (s *Store) ClearProgress(ctx context.Context, jobID string) error {
	if err := s.client.Del(ctx, progressKey(jobID)).Err(); err != nil {
		return fmt.Errorf("failed to clear progress for job %s: %w", jobID, err)
	}
	return nil
}
