package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucu-innovators/hub/internal/infra/cache"
	"github.com/ucu-innovators/hub/internal/modules/analytics"
	"github.com/ucu-innovators/hub/internal/modules/model"
	"github.com/ucu-innovators/hub/internal/modules/policy"
)

func newAnalyticsEnv(t *testing.T, withCache bool) (*env, AnalyticsService, *miniredis.Miniredis) {
	t.Helper()
	e := newEnv(t, nil)

	var mr *miniredis.Miniredis
	var sc SummaryCache
	d := ProjectServiceDeps{
		Projects: e.projects,
		Users:    e.users,
		Gate:     policy.NewGate(),
		Now:      e.clock.Now,
	}
	if withCache {
		mr = miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		vc := cache.NewVersionedCache(rdb, "hub:analytics", time.Minute)
		d.Invalidator = vc
		sc = vc
	}
	e.svc = NewProjectService(d)
	return e, NewAnalyticsService(e.projects, policy.NewGate(), sc, analytics.Options{TopN: 5, RecentN: 3}, nil), mr
}

// seedScenario leaves 3 approved, 2 pending and 1 rejected project.
func seedScenario(t *testing.T, e *env) {
	t.Helper()
	ctx := context.Background()
	_, student := e.user(t, model.RoleStudent, "Amina")
	_, sup := e.user(t, model.RoleSupervisor, "Sup")

	decisions := []string{"approved", "approved", "approved", "", "", "rejected"}
	for i, d := range decisions {
		p, err := e.svc.Submit(ctx, student, draft("Project "+string(rune('A'+i))))
		require.NoError(t, err)
		if d != "" {
			_, err = e.svc.Review(ctx, sup, p.ID, ReviewInput{Status: d})
			require.NoError(t, err)
		}
	}
}

func TestAnalyticsService_Summary(t *testing.T) {
	ctx := context.Background()
	e, svc, _ := newAnalyticsEnv(t, false)
	seedScenario(t, e)
	_, sup := e.user(t, model.RoleSupervisor, "Viewer")

	sum, err := svc.Summary(ctx, sup)
	require.NoError(t, err)
	assert.Equal(t, 6, sum.Total)
	assert.Equal(t, analytics.ApprovalRate{Approved: 3, Pending: 2, Rejected: 1}, sum.ApprovalRate)

	total := 0
	for _, c := range sum.ProjectsByStatus {
		total += c.Count
	}
	assert.Equal(t, 6, total)
	require.Len(t, sum.ActiveInnovators, 1)
	assert.Equal(t, 6, sum.ActiveInnovators[0].ProjectCount)
	assert.Len(t, sum.RecentProjects, 3)
	assert.Equal(t, "Project F", sum.RecentProjects[0].Title)
}

func TestAnalyticsService_Forbidden(t *testing.T) {
	ctx := context.Background()
	e, svc, _ := newAnalyticsEnv(t, false)
	_, student := e.user(t, model.RoleStudent, "Amina")

	_, err := svc.Summary(ctx, student)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Summary(ctx, nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAnalyticsService_CacheInvalidatedByWrites(t *testing.T) {
	ctx := context.Background()
	e, svc, mr := newAnalyticsEnv(t, true)
	seedScenario(t, e)
	_, admin := e.user(t, model.RoleAdmin, "Admin")

	first, err := svc.Summary(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 6, first.Total)

	version, err := mr.Get("hub:analytics:version")
	require.NoError(t, err)
	assert.True(t, mr.Exists("hub:analytics:v"+version))

	second, err := svc.Summary(ctx, admin)
	require.NoError(t, err)
	assert.True(t, first.GeneratedAt.Equal(second.GeneratedAt), "second read is served from cache")

	_, student := e.user(t, model.RoleStudent, "Brian")
	_, err = e.svc.Submit(ctx, student, draft("Fresh"))
	require.NoError(t, err)

	third, err := svc.Summary(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 7, third.Total)
	assert.Equal(t, 3, third.ApprovalRate.Pending)
}

func TestAnalyticsService_SnapshotFailure(t *testing.T) {
	ctx := context.Background()
	e, svc, _ := newAnalyticsEnv(t, false)
	_, admin := e.user(t, model.RoleAdmin, "Admin")

	sqlDB, err := e.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = svc.Summary(ctx, admin)
	assert.ErrorIs(t, err, ErrUnavailable)
}
