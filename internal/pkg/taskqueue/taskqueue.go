package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisc "github.com/bookableu/core/internal/pkg/redis"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// JobStatus represents the lifecycle state of a background job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is a unit of background work recorded in Redis. The record is
// observability only: the work itself runs in-process.
type Job struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    JobStatus       `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	DedupKey  string          `json:"dedup_key,omitempty"`
	BookID    string          `json:"book_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const (
	keyPrefix   = "bk:job:"
	keyIndex    = "bk:jobs:index"  // sorted set: score=created_at, member=job_id
	keyDedupSet = "bk:jobs:dedup:" // hash: dedup_key -> job_id
	jobTTL      = 7 * 24 * time.Hour
)

// Service manages the Redis-backed job records.
type Service struct {
	rc *redisc.Client
}

func NewService(rc *redisc.Client) *Service {
	return &Service{rc: rc}
}

func (s *Service) jobKey(id string) string { return keyPrefix + id }

// Enqueue records a new job, respecting deduplication: while a job with the
// same dedup key is still in flight, the existing record is returned instead.
func (s *Service) Enqueue(ctx context.Context, jobType string, payload interface{}, dedupKey, bookID string) (*Job, error) {
	if dedupKey != "" {
		existing, err := s.rc.Raw().HGet(ctx, keyDedupSet+jobType, dedupKey).Result()
		if err == nil && existing != "" {
			return s.GetByID(ctx, existing)
		}
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payloadBytes,
		Status:    JobPending,
		DedupKey:  dedupKey,
		BookID:    bookID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}

	pipe := s.rc.Raw().TxPipeline()
	pipe.Set(ctx, s.jobKey(job.ID), data, jobTTL)
	pipe.ZAdd(ctx, keyIndex, redis.Z{
		Score:  float64(job.CreatedAt.UnixMilli()),
		Member: job.ID,
	})
	if dedupKey != "" {
		pipe.HSet(ctx, keyDedupSet+jobType, dedupKey, job.ID)
		pipe.Expire(ctx, keyDedupSet+jobType, jobTTL)
	}
	_, err = pipe.Exec(ctx)
	return job, err
}

// GetByID retrieves a job by its ID. Returns (nil, nil) when unknown.
func (s *Service) GetByID(ctx context.Context, id string) (*Job, error) {
	data, err := s.rc.Raw().Get(ctx, s.jobKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job Job
	return &job, json.Unmarshal(data, &job)
}

// UpdateStatus sets a job's status and optional result/error. Terminal
// statuses release the dedup key so the work can be re-run.
func (s *Service) UpdateStatus(ctx context.Context, id string, status JobStatus, result interface{}, errMsg string) error {
	job, err := s.GetByID(ctx, id)
	if err != nil || job == nil {
		return fmt.Errorf("job not found")
	}

	job.Status = status
	job.UpdatedAt = time.Now()
	job.Error = errMsg

	if result != nil {
		job.Result, _ = json.Marshal(result)
	}

	if (status == JobCompleted || status == JobFailed) && job.DedupKey != "" {
		s.rc.Raw().HDel(ctx, keyDedupSet+job.Type, job.DedupKey)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.rc.Raw().Set(ctx, s.jobKey(id), data, jobTTL).Err()
}

// ListByBook returns all recorded jobs for a book, newest first.
func (s *Service) ListByBook(ctx context.Context, bookID string) ([]*Job, error) {
	ids, err := s.rc.Raw().ZRevRange(ctx, keyIndex, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]*Job, 0, 4)
	for _, id := range ids {
		job, err := s.GetByID(ctx, id)
		if err != nil || job == nil {
			continue
		}
		if job.BookID != bookID {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
