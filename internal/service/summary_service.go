package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/muni-gth/papeletas-api/internal/dto"
	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/internal/repository"
)

type summaryCache interface {
	Get(ctx context.Context, nroDocumento string) (*dto.SummaryResponse, error)
	Set(ctx context.Context, nroDocumento string, summary *dto.SummaryResponse, ttl time.Duration) error
	Invalidate(ctx context.Context, nroDocumento string) error
}

// SummaryService computes the dashboard stat cards from the remote
// listing totals, cached per employee.
type SummaryService struct {
	remote exportLister
	cache  summaryCache
	logger *zap.Logger
	ttl    time.Duration
}

// NewSummaryService builds a SummaryService.
func NewSummaryService(remote exportLister, cache summaryCache, logger *zap.Logger, ttl time.Duration) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SummaryService{
		remote: remote,
		cache:  cache,
		logger: logger,
		ttl:    ttl,
	}
}

// Get returns the employee's totals, serving from cache when fresh. The
// remote service owns the counts, so each figure comes from the
// totalRecords it reports for the matching filter.
func (s *SummaryService) Get(ctx context.Context, nroDocumento string) (*dto.SummaryResponse, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, nroDocumento)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, repository.ErrSummaryMiss) {
			s.logger.Warn("summary cache read failed", zap.String("nro_documento", nroDocumento), zap.Error(err))
		}
	}

	total, err := s.countFor(ctx, nroDocumento, models.FilterTodas)
	if err != nil {
		return nil, mapRemoteError(err)
	}
	aprobadas, err := s.countFor(ctx, nroDocumento, models.FilterAprobadas)
	if err != nil {
		return nil, mapRemoteError(err)
	}
	pendientes, err := s.countFor(ctx, nroDocumento, models.FilterPendientes)
	if err != nil {
		return nil, mapRemoteError(err)
	}

	summary := &dto.SummaryResponse{
		Total:      total,
		Aprobadas:  aprobadas,
		Pendientes: pendientes,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, nroDocumento, summary, s.ttl); err != nil {
			s.logger.Warn("summary cache write failed", zap.String("nro_documento", nroDocumento), zap.Error(err))
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary after a state change.
func (s *SummaryService) Invalidate(ctx context.Context, nroDocumento string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, nroDocumento)
}

func (s *SummaryService) countFor(ctx context.Context, nroDocumento string, filter int) (int, error) {
	_, pagination, err := s.remote.Listar(ctx, models.ListQuery{
		NroDocumento: nroDocumento,
		Page:         1,
		PageSize:     1,
		StatusFilter: filter,
	})
	if err != nil {
		return 0, err
	}
	return pagination.TotalRecords, nil
}
