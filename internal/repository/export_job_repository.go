package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/muni-gth/papeletas-api/internal/models"
)

// ErrExportJobNotFound is returned when no job exists for an id.
var ErrExportJobNotFound = errors.New("export job not found")

const exportJobKeyPrefix = "papeletas:export:"

// ExportJobRepository keeps export job state in Redis with a TTL so stale
// jobs age out together with their artifacts.
type ExportJobRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewExportJobRepository builds the repository. TTL bounds how long job
// status remains queryable.
func NewExportJobRepository(client *redis.Client, ttl time.Duration) *ExportJobRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ExportJobRepository{client: client, ttl: ttl}
}

// Save upserts the job state.
func (r *ExportJobRepository) Save(ctx context.Context, job *models.ExportJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal export job: %w", err)
	}
	if err := r.client.Set(ctx, exportJobKeyPrefix+job.ID, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("persist export job: %w", err)
	}
	return nil
}

// Find loads a job by id.
func (r *ExportJobRepository) Find(ctx context.Context, id string) (*models.ExportJob, error) {
	payload, err := r.client.Get(ctx, exportJobKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrExportJobNotFound
		}
		return nil, fmt.Errorf("load export job: %w", err)
	}
	var job models.ExportJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("decode export job: %w", err)
	}
	return &job, nil
}
