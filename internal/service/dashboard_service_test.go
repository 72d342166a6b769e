package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-web-api/internal/models"
)

type stubStats struct {
	stats models.ContentStats
	err   error
	calls int
}

func (s *stubStats) Stats(ctx context.Context) (*models.ContentStats, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &s.stats, nil
}

func TestDashboardAdminCachesSummary(t *testing.T) {
	news := &stubStats{stats: models.ContentStats{Resource: ResourceNews, Label: "Berita", Total: 12, Visible: 10}}
	staff := &stubStats{stats: models.ContentStats{Resource: ResourceStaff, Label: "Guru dan Staf", Total: 40, Visible: 38}}
	cache := NewCacheService(newFakeCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	svc := NewDashboardService([]StatsProvider{news, staff}, cache, 0, zap.NewNop())

	summary, cached, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, summary.Content, 2)
	assert.Equal(t, 12, summary.Content[0].Total)

	summary, cached, err = svc.Admin(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 40, summary.Content[1].Total)
	assert.Equal(t, 1, news.calls)
}

func TestDashboardAdminPropagatesErrors(t *testing.T) {
	failing := &stubStats{err: errors.New("db down")}
	svc := NewDashboardService([]StatsProvider{failing}, nil, time.Second, zap.NewNop())

	_, _, err := svc.Admin(context.Background())
	require.Error(t, err)
}
