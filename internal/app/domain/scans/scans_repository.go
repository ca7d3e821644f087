package scans

import (
	"context"
	"encoding/json"
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

// Repository persists daily scan records. Rows are append-only.
type Repository interface {
	Record(ctx context.Context, rec models.DailyScanRecord) error
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
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

const insertScanQuery = `
	INSERT INTO daily_scans (id, user_id, scan_date, image_preview, result)
	VALUES ($1, $2, $3, $4, $5)`

func (r *RepositoryImpl) Record(ctx context.Context, rec models.DailyScanRecord) error {
	ctx, span := otel.Tracer("ScanRepository").Start(ctx, "Record", trace.WithAttributes(
		attribute.String("user.id", rec.UserID.String()),
		attribute.Bool("result.matched", rec.Result.Matched),
	))
	defer span.End()

	payload, err := json.Marshal(rec.Result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal failed")
		return fmt.Errorf("failed to marshal scan result: %w", err)
	}

	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	start := time.Now()
	_, err = r.pgpool.Exec(ctx, insertScanQuery, id, rec.UserID, rec.ScanDate, rec.ImagePreview, payload)
	database.ObserveQuery(ctx, "scan_insert", start)
	if err != nil {
		r.logger.Error("Failed to insert scan record", zap.String("user_id", rec.UserID.String()), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database insert failed")
		return fmt.Errorf("failed to insert scan record: %w", err)
	}

	span.SetStatus(codes.Ok, "Scan recorded")
	return nil
}

const countScansQuery = `SELECT COUNT(*) FROM daily_scans WHERE user_id = $1 AND created_at >= $2`

func (r *RepositoryImpl) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	ctx, span := otel.Tracer("ScanRepository").Start(ctx, "CountSince", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("since", since.Format(time.RFC3339)),
	))
	defer span.End()

	var count int
	start := time.Now()
	err := r.pgpool.QueryRow(ctx, countScansQuery, userID, since).Scan(&count)
	database.ObserveQuery(ctx, "scan_count", start)
	if err != nil {
		r.logger.Error("Failed to count scans", zap.String("user_id", userID.String()), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return 0, fmt.Errorf("failed to count scans: %w", err)
	}

	span.SetAttributes(attribute.Int("scans.count", count))
	return count, nil
}
