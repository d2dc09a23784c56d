package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ucu-innovators/hub/internal/infra/cache"
	"github.com/ucu-innovators/hub/internal/modules/analytics"
	"github.com/ucu-innovators/hub/internal/modules/policy"
	"github.com/ucu-innovators/hub/internal/modules/repo"
	"github.com/ucu-innovators/hub/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SummaryCache stores computed summaries under a version that every write bumps.
// *cache.VersionedCache implements it.
type SummaryCache interface {
	Enabled() bool
	Version(ctx context.Context) (int64, error)
	Get(ctx context.Context, version int64, dest any) error
	Set(ctx context.Context, version int64, v any) error
}

type AnalyticsService interface {
	Summary(ctx context.Context, p *policy.Principal) (*analytics.Summary, error)
}

type analyticsService struct {
	projects repo.ProjectRepo
	gate     *policy.Gate
	cache    SummaryCache
	opts     analytics.Options
	group    singleflight.Group
	log      *zap.Logger
}

func NewAnalyticsService(projects repo.ProjectRepo, gate *policy.Gate, c SummaryCache, opts analytics.Options, log *zap.Logger) AnalyticsService {
	if log == nil {
		log = zap.NewNop()
	}
	return &analyticsService{
		projects: projects,
		gate:     gate,
		cache:    c,
		opts:     opts,
		log:      log,
	}
}

func (s *analyticsService) Summary(ctx context.Context, p *policy.Principal) (*analytics.Summary, error) {
	if err := fromPolicy(s.gate.Authorize(ctx, p, policy.ActionViewAnalytics, nil)); err != nil {
		return nil, err
	}
	if s.cache == nil || !s.cache.Enabled() {
		return s.compute(ctx)
	}

	version, err := s.cache.Version(ctx)
	if err != nil {
		s.log.Warn("analytics cache version", zap.Error(err))
		return s.compute(ctx)
	}

	var cached analytics.Summary
	err = s.cache.Get(ctx, version, &cached)
	switch {
	case err == nil:
		telemetry.RecordAnalyticsCache(ctx, true)
		return &cached, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		s.log.Warn("analytics cache read", zap.Error(err))
	}
	telemetry.RecordAnalyticsCache(ctx, false)

	// concurrent misses on the same version share one computation
	v, err, _ := s.group.Do(strconv.FormatInt(version, 10), func() (any, error) {
		sum, err := s.compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(context.WithoutCancel(ctx), version, sum); err != nil {
			s.log.Warn("analytics cache write", zap.Error(err))
		}
		return sum, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*analytics.Summary), nil
}

func (s *analyticsService) compute(ctx context.Context) (*analytics.Summary, error) {
	started := time.Now()
	snap, err := s.projects.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: analytics snapshot: %v", ErrUnavailable, err)
	}
	sum := analytics.Aggregate(snap.Projects, snap.Submitters, s.opts, snap.TakenAt)
	s.log.Debug("analytics computed",
		zap.Int("projects", len(snap.Projects)),
		zap.Duration("took", time.Since(started)))
	return sum, nil
}
