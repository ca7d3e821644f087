// Package ratelimit enforces the per-user daily scan quota.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

// TierSource resolves a user's subscription tier.
type TierSource interface {
	GetTier(ctx context.Context, userID uuid.UUID) (models.Tier, error)
}

// ScanCounter counts journaled scans.
type ScanCounter interface {
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

// Quotas is the static tier to daily-limit table.
type Quotas map[models.Tier]int

func DefaultQuotas() Quotas {
	return Quotas{models.TierFree: 5, models.TierPremium: 50}
}

func (q Quotas) For(tier models.Tier) int {
	if limit, ok := q[tier]; ok {
		return limit
	}
	return q[models.TierFree]
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// Check is a pure read. Remaining is never negative.
	Check(ctx context.Context, userID uuid.UUID) (models.RateLimitState, error)
}

type ServiceImpl struct {
	logger   *zap.Logger
	tiers    TierSource
	scans    ScanCounter
	quotas   Quotas
	location *time.Location
	timeout  time.Duration
	now      func() time.Time
}

func NewService(tiers TierSource, scans ScanCounter, quotas Quotas, location *time.Location, timeout time.Duration, logger *zap.Logger) *ServiceImpl {
	if location == nil {
		location = time.UTC
	}
	return &ServiceImpl{
		logger:   logger,
		tiers:    tiers,
		scans:    scans,
		quotas:   quotas,
		location: location,
		timeout:  timeout,
		now:      time.Now,
	}
}

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func (s *ServiceImpl) Check(ctx context.Context, userID uuid.UUID) (models.RateLimitState, error) {
	ctx, span := otel.Tracer("RateLimiter").Start(ctx, "Check", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	l := s.logger.With(zap.String("method", "Check"), zap.String("user_id", userID.String()))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	since := StartOfDay(s.now(), s.location)

	// Tier and usage are independent reads.
	tier := models.TierFree
	var used int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tiers.GetTier(gctx, userID)
		if err != nil {
			l.Warn("Tier lookup failed, applying free quota", zap.Error(err))
			return nil
		}
		tier = t
		return nil
	})
	g.Go(func() error {
		n, err := s.scans.CountSince(gctx, userID, since)
		if err != nil {
			return err
		}
		used = n
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "usage lookup failed")
		return models.RateLimitState{}, fmt.Errorf("failed to compute scan quota: %w", err)
	}

	limit := s.quotas.For(tier)
	state := models.RateLimitState{
		Tier:      tier,
		Limit:     limit,
		UsedToday: used,
		Remaining: max(0, limit-used),
		Allowed:   used < limit,
	}

	span.SetAttributes(
		attribute.String("tier", string(tier)),
		attribute.Int("quota.limit", limit),
		attribute.Int("quota.used", used),
		attribute.Bool("quota.allowed", state.Allowed),
	)
	span.SetStatus(codes.Ok, "quota computed")
	return state, nil
}
