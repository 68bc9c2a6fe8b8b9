package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fra-connect/atlas-api/internal/models"
	appErrors "github.com/fra-connect/atlas-api/pkg/errors"
)

const analyticsCacheKey = "analytics:summary"

// Mock figures carried alongside the real counters until processing metrics
// are tracked per claim.
const (
	mockAverageProcessingDays  = 15.5
	mockOCRAccuracy            = 0.92
	mockSchemeIntegrationCount = 150
)

type analyticsClaimCounter interface {
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status models.ClaimStatus) (int, error)
}

type analyticsVillageCounter interface {
	Count(ctx context.Context) (int, error)
}

type analyticsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, key string)
}

// AnalyticsService computes the dashboard summary, caching it in Redis for a
// configured TTL. Writes to claims invalidate the cache.
type AnalyticsService struct {
	claims   analyticsClaimCounter
	villages analyticsVillageCounter
	cache    analyticsCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewAnalyticsService constructs the analytics service. A nil cache disables
// caching.
func NewAnalyticsService(claims analyticsClaimCounter, villages analyticsVillageCounter, cache analyticsCache, cacheTTL time.Duration, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{claims: claims, villages: villages, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Summary returns the dashboard counters. The second return reports whether
// the payload came from the cache.
func (s *AnalyticsService) Summary(ctx context.Context) (*models.Analytics, bool, error) {
	if s.cache != nil {
		var cached models.Analytics
		err := s.cache.Get(ctx, analyticsCacheKey, &cached)
		if err == nil {
			return &cached, true, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("analytics cache read failed", zap.Error(err))
		}
	}

	summary, err := s.compute(ctx)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, analyticsCacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("analytics cache write failed", zap.Error(err))
		}
	}
	return summary, false, nil
}

// InvalidateCache drops the cached summary so the next read recomputes it.
func (s *AnalyticsService) InvalidateCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, analyticsCacheKey)
	}
}

func (s *AnalyticsService) compute(ctx context.Context) (*models.Analytics, error) {
	totalVillages, err := s.villages.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count villages")
	}
	totalClaims, err := s.claims.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count claims")
	}
	pending, err := s.claims.CountByStatus(ctx, models.ClaimStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending claims")
	}
	approved, err := s.claims.CountByStatus(ctx, models.ClaimStatusApproved)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count approved claims")
	}
	rejected, err := s.claims.CountByStatus(ctx, models.ClaimStatusRejected)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count rejected claims")
	}

	return &models.Analytics{
		TotalVillages:          totalVillages,
		TotalClaims:            totalClaims,
		PendingClaims:          pending,
		ApprovedClaims:         approved,
		RejectedClaims:         rejected,
		AverageProcessingTime:  mockAverageProcessingDays,
		OCRAccuracy:            mockOCRAccuracy,
		SchemeIntegrationCount: mockSchemeIntegrationCount,
	}, nil
}
