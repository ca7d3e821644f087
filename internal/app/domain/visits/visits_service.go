// Package visits records attraction visits and reacts to them with badges and events.
package visits

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/domain/events"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/photos"
	"github.com/FACorreiaa/loci-visits/internal/app/models"
	"github.com/FACorreiaa/loci-visits/internal/app/observability/metrics"
)

const alreadyVisitedMessage = "You have already visited this attraction."

// AttractionLookup resolves the attraction a visit points at.
type AttractionLookup interface {
	GetByID(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*models.AttractionSummary, error)
}

type BadgeAwarder interface {
	CheckAndAward(ctx context.Context, userID uuid.UUID, loc models.LocationContext) ([]models.AwardedBadge, error)
}

// Recorded is the outcome of a successful Record call. NewBadges holds only badges first awarded by it.
type Recorded struct {
	Visit      models.Visit
	Attraction models.AttractionSummary
	NewBadges  []models.AwardedBadge
}

// Recorder creates visits. Photos and events are optional and may be nil.
type Recorder struct {
	logger      *zap.Logger
	repo        Repository
	attractions AttractionLookup
	badges      BadgeAwarder
	photos      photos.Store
	events      events.Publisher
}

func NewRecorder(repo Repository, attractions AttractionLookup, badges BadgeAwarder, logger *zap.Logger) *Recorder {
	return &Recorder{logger: logger, repo: repo, attractions: attractions, badges: badges}
}

func (r *Recorder) WithPhotoStore(s photos.Store) *Recorder {
	r.photos = s
	return r
}

func (r *Recorder) WithPublisher(p events.Publisher) *Recorder {
	r.events = p
	return r
}

// Record stores a visit for the given source. A missing attraction yields
// models.ErrNotFound and a repeat visit models.ErrConflict, both as *models.DomainError.
// Photo, badge and event failures are logged and never fail the visit.
func (r *Recorder) Record(ctx context.Context, p models.NewVisitParams) (*Recorded, error) {
	ctx, span := otel.Tracer("VisitsService").Start(ctx, "Record", trace.WithAttributes(
		attribute.String("user.id", p.UserID.String()),
		attribute.String("attraction.id", p.AttractionID.String()),
		attribute.String("visit.source", string(p.Source)),
	))
	defer span.End()
	l := r.logger.With(zap.String("method", "Record"),
		zap.String("user_id", p.UserID.String()),
		zap.String("attraction_id", p.AttractionID.String()))

	attraction, err := r.resolveAttraction(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attraction lookup failed")
		return nil, err
	}

	created, err := r.repo.Create(ctx, models.Visit{
		UserID:       p.UserID,
		AttractionID: p.AttractionID,
		Notes:        p.Notes,
		IsVerified:   p.Source.IsVerified(),
		Source:       p.Source,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			span.SetStatus(codes.Error, "already visited")
			return nil, models.NewDomainError(models.ErrConflict, alreadyVisitedMessage, err)
		}
		l.Error("Failed to create visit", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, err
	}
	metrics.Get().VisitsRecordedTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", string(created.Source))))
	l.Info("Visit recorded", zap.String("visit_id", created.ID.String()), zap.Bool("verified", created.IsVerified))

	// Uploaded only once the visit row exists, so repeat scans store nothing.
	if len(p.Photo) > 0 && r.photos != nil {
		r.attachPhoto(ctx, l, created, p)
	}

	out := &Recorded{Visit: *created, Attraction: *attraction, NewBadges: []models.AwardedBadge{}}

	awarded, err := r.badges.CheckAndAward(ctx, p.UserID, models.LocationContext{
		AttractionID: attraction.ID,
		CityID:       attraction.CityID,
		CountryID:    attraction.CountryID,
		Category:     attraction.Category,
	})
	if err != nil {
		l.Error("Badge evaluation failed", zap.Error(err))
	}
	for _, b := range awarded {
		if b.IsNew {
			out.NewBadges = append(out.NewBadges, b)
		}
	}

	if r.events != nil {
		event := models.VisitRecordedEvent{
			VisitID:      created.ID,
			UserID:       created.UserID,
			AttractionID: created.AttractionID,
			IsVerified:   created.IsVerified,
			Source:       created.Source,
			VisitDate:    created.VisitDate,
		}
		if err := r.events.PublishVisitRecorded(ctx, event); err != nil {
			l.Warn("Failed to publish visit event", zap.Error(err))
		}
	}

	span.SetAttributes(attribute.Int("badges.new", len(out.NewBadges)))
	span.SetStatus(codes.Ok, "visit recorded")
	return out, nil
}

func (r *Recorder) resolveAttraction(ctx context.Context, p models.NewVisitParams) (*models.AttractionSummary, error) {
	if p.Attraction != nil && p.Attraction.ID == p.AttractionID {
		return p.Attraction, nil
	}
	return r.attractions.GetByID(ctx, p.AttractionID, &p.UserID)
}

func (r *Recorder) attachPhoto(ctx context.Context, l *zap.Logger, visit *models.Visit, p models.NewVisitParams) {
	url, err := r.photos.Upload(ctx, p.UserID, p.AttractionID, p.Photo, p.MediaType)
	if err != nil {
		l.Warn("Photo upload failed, visit kept without photo", zap.Error(err))
		return
	}
	if err := r.repo.SetPhotoURL(ctx, visit.ID, url); err != nil {
		l.Warn("Failed to attach photo to visit", zap.String("photo_url", url), zap.Error(err))
		return
	}
	visit.PhotoURL = &url
}

// List returns the user's visits, newest first.
func (r *Recorder) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Visit, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return r.repo.ListByUser(ctx, userID, limit, offset)
}
