package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/muni-gth/papeletas-api/internal/dto"
)

// ErrSummaryMiss is returned on a cache miss.
var ErrSummaryMiss = errors.New("summary cache miss")

const summaryKeyPrefix = "papeletas:summary:"

// SummaryCacheRepository caches dashboard summaries per document id.
type SummaryCacheRepository struct {
	client *redis.Client
}

// NewSummaryCacheRepository builds a Redis-backed summary cache.
func NewSummaryCacheRepository(client *redis.Client) *SummaryCacheRepository {
	return &SummaryCacheRepository{client: client}
}

// Get loads a cached summary for the document id.
func (r *SummaryCacheRepository) Get(ctx context.Context, nroDocumento string) (*dto.SummaryResponse, error) {
	payload, err := r.client.Get(ctx, summaryKeyPrefix+nroDocumento).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSummaryMiss
		}
		return nil, fmt.Errorf("load summary: %w", err)
	}
	var summary dto.SummaryResponse
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &summary, nil
}

// Set stores the summary with the given TTL.
func (r *SummaryCacheRepository) Set(ctx context.Context, nroDocumento string, summary *dto.SummaryResponse, ttl time.Duration) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := r.client.Set(ctx, summaryKeyPrefix+nroDocumento, payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary, used after a new registration.
func (r *SummaryCacheRepository) Invalidate(ctx context.Context, nroDocumento string) error {
	if err := r.client.Del(ctx, summaryKeyPrefix+nroDocumento).Err(); err != nil {
		return fmt.Errorf("invalidate summary: %w", err)
	}
	return nil
}
