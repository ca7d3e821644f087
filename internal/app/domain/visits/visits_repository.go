package visits

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

	"github.com/FACorreiaa/loci-visits/internal/app/models"
	database "github.com/FACorreiaa/loci-visits/internal/db"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository persists visits. Create returns models.ErrConflict when the user already visited the attraction.
type Repository interface {
	Create(ctx context.Context, v models.Visit) (*models.Visit, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Visit, error)
	SetPhotoURL(ctx context.Context, visitID uuid.UUID, photoURL string) error
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.Querier
}

func NewRepository(pgxpool database.Querier, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgxpool}
}

const visitColumns = `id, user_id, attraction_id, visit_date, photo_url, notes, is_verified, source, created_at`

const insertVisitQuery = `
	INSERT INTO visits (user_id, attraction_id, photo_url, notes, is_verified, source)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + visitColumns

const listVisitsQuery = `
	SELECT ` + visitColumns + `
	FROM visits
	WHERE user_id = $1
	ORDER BY visit_date DESC
	LIMIT $2 OFFSET $3`

const setPhotoQuery = `UPDATE visits SET photo_url = $2 WHERE id = $1`

type scanner interface {
	Scan(dest ...any) error
}

func scanVisit(row scanner) (models.Visit, error) {
	var v models.Visit
	var source string
	err := row.Scan(&v.ID, &v.UserID, &v.AttractionID, &v.VisitDate, &v.PhotoURL, &v.Notes, &v.IsVerified, &source, &v.CreatedAt)
	v.Source = models.VisitSource(source)
	return v, err
}

func (r *RepositoryImpl) Create(ctx context.Context, v models.Visit) (*models.Visit, error) {
	ctx, span := otel.Tracer("VisitsRepository").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("user.id", v.UserID.String()),
		attribute.String("attraction.id", v.AttractionID.String()),
		attribute.String("visit.source", string(v.Source)),
	))
	defer span.End()
	l := r.logger.With(zap.String("method", "Create"))

	start := time.Now()
	created, err := scanVisit(r.pgpool.QueryRow(ctx, insertVisitQuery,
		v.UserID, v.AttractionID, v.PhotoURL, v.Notes, v.IsVerified, string(v.Source)))
	database.ObserveQuery(ctx, "insert_visit", start)
	if err != nil {
		if database.IsUniqueViolation(err) {
			span.SetStatus(codes.Error, "visit already exists")
			return nil, fmt.Errorf("visit for attraction %s: %w", v.AttractionID, models.ErrConflict)
		}
		l.Error("Failed to insert visit", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("failed to insert visit: %w", err)
	}

	span.SetAttributes(attribute.String("visit.id", created.ID.String()))
	span.SetStatus(codes.Ok, "visit created")
	return &created, nil
}

func (r *RepositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Visit, error) {
	ctx, span := otel.Tracer("VisitsRepository").Start(ctx, "ListByUser", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	))
	defer span.End()

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, listVisitsQuery, userID, limit, offset)
	database.ObserveQuery(ctx, "list_visits", start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer rows.Close()

	out := []models.Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "scan failed")
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rows error")
		return nil, fmt.Errorf("error iterating visits: %w", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(out)))
	span.SetStatus(codes.Ok, "visits listed")
	return out, nil
}

func (r *RepositoryImpl) SetPhotoURL(ctx context.Context, visitID uuid.UUID, photoURL string) error {
	ctx, span := otel.Tracer("VisitsRepository").Start(ctx, "SetPhotoURL", trace.WithAttributes(
		attribute.String("visit.id", visitID.String()),
	))
	defer span.End()

	start := time.Now()
	tag, err := r.pgpool.Exec(ctx, setPhotoQuery, visitID, photoURL)
	database.ObserveQuery(ctx, "set_visit_photo", start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("failed to set visit photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "visit not found")
		return fmt.Errorf("visit %s: %w", visitID, models.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "photo attached")
	return nil
}
