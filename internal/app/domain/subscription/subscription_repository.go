package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
	database "github.com/FACorreiaa/loci-visits/internal/db"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	// GetTier never fails for a missing user; it reports free instead.
	GetTier(ctx context.Context, userID uuid.UUID) (models.Tier, error)
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.Querier
	now    func() time.Time
}

func NewRepository(pgxpool database.Querier, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgxpool,
		now:    time.Now,
	}
}

func (r *RepositoryImpl) GetTier(ctx context.Context, userID uuid.UUID) (models.Tier, error) {
	ctx, span := otel.Tracer("SubscriptionRepository").Start(ctx, "GetTier", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	l := r.logger.With(zap.String("method", "GetTier"), zap.String("user_id", userID.String()))

	var tier string
	var expiresAt *time.Time
	start := time.Now()
	err := r.pgpool.QueryRow(ctx,
		`SELECT subscription_tier, subscription_expires_at FROM users WHERE id = $1`, userID,
	).Scan(&tier, &expiresAt)
	database.ObserveQuery(ctx, "subscription_tier", start)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.Warn("User not found, defaulting to free tier")
			span.SetAttributes(attribute.String("tier", string(models.TierFree)))
			return models.TierFree, nil
		}
		l.Error("Failed to load subscription tier", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return "", fmt.Errorf("failed to load subscription tier: %w", err)
	}

	resolved := models.ParseTier(tier)
	if resolved == models.TierPremium && expiresAt != nil && !expiresAt.After(r.now()) {
		l.Debug("Premium subscription expired", zap.Time("expired_at", *expiresAt))
		resolved = models.TierFree
	}

	span.SetAttributes(attribute.String("tier", string(resolved)))
	return resolved, nil
}
