package catalog

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
	"github.com/FACorreiaa/loci-visits/internal/pkg/cache"
)

const nearbyCacheTTL = 5 * time.Minute

const unavailableMessage = "The attraction catalog is temporarily unavailable. Please try again."

var _ Service = (*ServiceImpl)(nil)

// Service is the catalog as seen by the verification pipeline. Storage
// failures surface as ErrCatalogUnavailable; a missing attraction as ErrNotFound.
type Service interface {
	NearbySearch(ctx context.Context, q models.NearbyQuery) ([]models.AttractionSummary, error)
	TextSearch(ctx context.Context, query string, limit int) ([]models.AttractionSummary, error)
	GetByID(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*models.AttractionSummary, error)
}

type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
	nearby *cache.UnifiedCache[[]models.AttractionSummary]
}

func NewService(repo Repository, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		nearby: cache.NewUnifiedCache[[]models.AttractionSummary](nearbyCacheTTL, "catalog_nearby", logger),
	}
}

// Coordinates are rounded to ~11m so jittery GPS readings share an entry.
func nearbyKey(q models.NearbyQuery) string {
	round := func(v float64) float64 { return math.Round(v*1e4) / 1e4 }
	user := ""
	if q.UserID != nil {
		user = q.UserID.String()
	}
	return cache.NewKeyBuilder().
		Add("lat", round(q.Latitude)).
		Add("lng", round(q.Longitude)).
		Add("radius", math.Round(q.RadiusMeters)).
		Add("category", q.Category).
		Add("limit", q.Limit).
		Add("user", user).
		BuildOrEmpty()
}

func (s *ServiceImpl) NearbySearch(ctx context.Context, q models.NearbyQuery) ([]models.AttractionSummary, error) {
	ctx, span := otel.Tracer("CatalogService").Start(ctx, "NearbySearch", trace.WithAttributes(
		attribute.Float64("location.lat", q.Latitude),
		attribute.Float64("location.lon", q.Longitude),
		attribute.Float64("radius.meters", q.RadiusMeters),
	))
	defer span.End()

	key := nearbyKey(q)
	if key != "" {
		if cached, ok := s.nearby.Get(key); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	results, err := s.repo.NearbySearch(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "nearby search failed")
		return nil, unavailable(err)
	}
	if key != "" {
		s.nearby.Set(key, results)
	}
	return results, nil
}

func (s *ServiceImpl) TextSearch(ctx context.Context, query string, limit int) ([]models.AttractionSummary, error) {
	ctx, span := otel.Tracer("CatalogService").Start(ctx, "TextSearch", trace.WithAttributes(
		attribute.String("search.query", query),
	))
	defer span.End()

	results, err := s.repo.TextSearch(ctx, query, limit)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return []models.AttractionSummary{}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "text search failed")
		return nil, unavailable(err)
	}
	return results, nil
}

func (s *ServiceImpl) GetByID(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*models.AttractionSummary, error) {
	ctx, span := otel.Tracer("CatalogService").Start(ctx, "GetByID", trace.WithAttributes(
		attribute.String("attraction.id", id.String()),
	))
	defer span.End()

	a, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewDomainError(models.ErrNotFound, "Attraction not found.", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "get attraction failed")
		return nil, unavailable(err)
	}
	return a, nil
}

func unavailable(err error) error {
	return models.NewDomainError(models.ErrCatalogUnavailable, unavailableMessage, err)
}
