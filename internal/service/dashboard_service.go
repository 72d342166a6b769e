package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-web-api/internal/models"
)

const dashboardCacheKey = "dashboard:admin"

// StatsProvider reports row counts for one resource.
type StatsProvider interface {
	Stats(ctx context.Context) (*models.ContentStats, error)
}

// DashboardSummary is the admin landing page payload.
type DashboardSummary struct {
	Content     []models.ContentStats `json:"content"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// DashboardService composes the admin dashboard.
type DashboardService struct {
	providers []StatsProvider
	cache     *CacheService
	cacheTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(providers []StatsProvider, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{providers: providers, cache: cache, cacheTTL: cacheTTL, logger: logger, now: time.Now}
}

// Admin returns content counts per resource and reports whether the cache answered.
func (s *DashboardService) Admin(ctx context.Context) (*DashboardSummary, bool, error) {
	var cached DashboardSummary
	if s.cache.Get(ctx, dashboardCacheKey, &cached) {
		return &cached, true, nil
	}

	summary := &DashboardSummary{
		Content:     make([]models.ContentStats, 0, len(s.providers)),
		GeneratedAt: s.now().UTC(),
	}
	for _, provider := range s.providers {
		stats, err := provider.Stats(ctx)
		if err != nil {
			return nil, false, err
		}
		summary.Content = append(summary.Content, *stats)
	}
	s.cache.Set(ctx, dashboardCacheKey, summary, s.cacheTTL)
	return summary, false, nil
}
