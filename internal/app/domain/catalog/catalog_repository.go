package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
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

// Repository reads the attraction catalog.
type Repository interface {
	NearbySearch(ctx context.Context, q models.NearbyQuery) ([]models.AttractionSummary, error)
	TextSearch(ctx context.Context, query string, limit int) ([]models.AttractionSummary, error)
	GetByID(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*models.AttractionSummary, error)
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.Querier
}

func NewRepository(pgxpool database.Querier, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgxpool,
	}
}

const nearbyQuery = `
	SELECT
		a.id,
		a.name,
		ci.name,
		ci.id,
		co.name,
		co.id,
		a.category,
		a.short_description,
		a.image_url,
		ST_Y(a.location::geometry) AS latitude,
		ST_X(a.location::geometry) AS longitude,
		ST_Distance(a.location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) AS distance_meters,
		(f.user_id IS NOT NULL) AS is_favorite
	FROM attractions a
	JOIN cities ci ON ci.id = a.city_id
	JOIN countries co ON co.id = ci.country_id
	LEFT JOIN favorites f ON f.attraction_id = a.id AND f.user_id = $4
	WHERE ST_DWithin(a.location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
	  AND ($5::text IS NULL OR a.category = $5)
	ORDER BY distance_meters ASC
	LIMIT $6`

// NearbySearch leaves FamousFor and Highlights unset.
func (r *RepositoryImpl) NearbySearch(ctx context.Context, q models.NearbyQuery) ([]models.AttractionSummary, error) {
	ctx, span := otel.Tracer("CatalogRepository").Start(ctx, "NearbySearch", trace.WithAttributes(
		attribute.Float64("location.lat", q.Latitude),
		attribute.Float64("location.lon", q.Longitude),
		attribute.Float64("radius.meters", q.RadiusMeters),
		attribute.Int("limit", q.Limit),
	))
	defer span.End()
	l := r.logger.With(zap.String("method", "NearbySearch"))

	var category *string
	if q.Category != "" {
		category = &q.Category
	}

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, nearbyQuery, q.Longitude, q.Latitude, q.RadiusMeters, q.UserID, category, q.Limit)
	database.ObserveQuery(ctx, "catalog_nearby", start)
	if err != nil {
		l.Error("Failed to query attractions by distance", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to query attractions by distance: %w", err)
	}
	defer rows.Close()

	results := make([]models.AttractionSummary, 0, q.Limit)
	for rows.Next() {
		var a models.AttractionSummary
		var distance float64
		if err := rows.Scan(
			&a.ID, &a.Name, &a.City, &a.CityID, &a.Country, &a.CountryID,
			&a.Category, &a.ShortDescription, &a.ImageURL,
			&a.Latitude, &a.Longitude, &distance, &a.IsFavorite,
		); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Scan failed")
			return nil, fmt.Errorf("failed to scan attraction row: %w", err)
		}
		a.DistanceMeters = &distance
		a.Highlights = []string{}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Row iteration failed")
		return nil, fmt.Errorf("error iterating attraction rows: %w", err)
	}

	l.Debug("Nearby attractions found", zap.Int("count", len(results)))
	span.SetAttributes(attribute.Int("results.count", len(results)))
	span.SetStatus(codes.Ok, "Nearby attractions retrieved")
	return results, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *RepositoryImpl) buildTextSearch(query string, limit int) (string, []any, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return "", nil, fmt.Errorf("%w: empty search query", models.ErrValidation)
	}

	matches := sq.Or{}
	for _, term := range terms {
		pattern := "%" + likeEscaper.Replace(term) + "%"
		matches = append(matches,
			sq.ILike{"a.name": pattern},
			sq.ILike{"ci.name": pattern},
			sq.ILike{"co.name": pattern},
			sq.ILike{"a.category": pattern},
		)
	}

	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(
			"a.id", "a.name", "ci.name", "ci.id", "co.name", "co.id",
			"a.category", "a.short_description", "a.famous_for", "a.highlights", "a.image_url",
			"ST_Y(a.location::geometry)", "ST_X(a.location::geometry)",
		).
		From("attractions a").
		Join("cities ci ON ci.id = a.city_id").
		Join("countries co ON co.id = ci.country_id").
		Where(matches).
		OrderBy("a.name ASC").
		Limit(uint64(limit)).
		ToSql()
}

// TextSearch matches every whitespace-separated term against attraction, city, country and category.
func (r *RepositoryImpl) TextSearch(ctx context.Context, query string, limit int) ([]models.AttractionSummary, error) {
	ctx, span := otel.Tracer("CatalogRepository").Start(ctx, "TextSearch", trace.WithAttributes(
		attribute.String("search.query", query),
		attribute.Int("limit", limit),
	))
	defer span.End()
	l := r.logger.With(zap.String("method", "TextSearch"))

	sqlStr, args, err := r.buildTextSearch(query, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query build failed")
		return nil, err
	}

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, sqlStr, args...)
	database.ObserveQuery(ctx, "catalog_text", start)
	if err != nil {
		l.Error("Failed to search attractions", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to search attractions: %w", err)
	}
	defer rows.Close()

	results := make([]models.AttractionSummary, 0, limit)
	for rows.Next() {
		var a models.AttractionSummary
		if err := rows.Scan(
			&a.ID, &a.Name, &a.City, &a.CityID, &a.Country, &a.CountryID,
			&a.Category, &a.ShortDescription, &a.FamousFor, &a.Highlights, &a.ImageURL,
			&a.Latitude, &a.Longitude,
		); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Scan failed")
			return nil, fmt.Errorf("failed to scan attraction row: %w", err)
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Row iteration failed")
		return nil, fmt.Errorf("error iterating attraction rows: %w", err)
	}

	l.Debug("Text search completed", zap.String("query", query), zap.Int("count", len(results)))
	span.SetAttributes(attribute.Int("results.count", len(results)))
	span.SetStatus(codes.Ok, "Attractions searched")
	return results, nil
}

const getByIDQuery = `
	SELECT
		a.id,
		a.name,
		ci.name,
		ci.id,
		co.name,
		co.id,
		a.category,
		a.short_description,
		a.famous_for,
		a.highlights,
		a.image_url,
		ST_Y(a.location::geometry) AS latitude,
		ST_X(a.location::geometry) AS longitude,
		(f.user_id IS NOT NULL) AS is_favorite
	FROM attractions a
	JOIN cities ci ON ci.id = a.city_id
	JOIN countries co ON co.id = ci.country_id
	LEFT JOIN favorites f ON f.attraction_id = a.id AND f.user_id = $2
	WHERE a.id = $1`

func (r *RepositoryImpl) GetByID(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*models.AttractionSummary, error) {
	ctx, span := otel.Tracer("CatalogRepository").Start(ctx, "GetByID", trace.WithAttributes(
		attribute.String("attraction.id", id.String()),
	))
	defer span.End()

	var a models.AttractionSummary
	start := time.Now()
	err := r.pgpool.QueryRow(ctx, getByIDQuery, id, userID).Scan(
		&a.ID, &a.Name, &a.City, &a.CityID, &a.Country, &a.CountryID,
		&a.Category, &a.ShortDescription, &a.FamousFor, &a.Highlights, &a.ImageURL,
		&a.Latitude, &a.Longitude, &a.IsFavorite,
	)
	database.ObserveQuery(ctx, "catalog_get", start)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Attraction not found")
			return nil, fmt.Errorf("attraction %s: %w", id, models.ErrNotFound)
		}
		r.logger.Error("Failed to get attraction", zap.String("attraction_id", id.String()), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to get attraction: %w", err)
	}

	span.SetStatus(codes.Ok, "Attraction retrieved")
	return &a, nil
}
