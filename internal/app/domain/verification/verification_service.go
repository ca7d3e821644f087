// Package verification runs the scan pipeline: quota check, candidate lookup,
// image matching, decision and visit recording.
package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/domain/decision"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/locator"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/oracle"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/visits"
	"github.com/FACorreiaa/loci-visits/internal/app/models"
	"github.com/FACorreiaa/loci-visits/internal/app/observability/metrics"
	"github.com/FACorreiaa/loci-visits/internal/pkg/config"
)

const (
	msgNoKeywords     = "Could not identify a tourist attraction in this photo."
	msgNoTextMatches  = "No matching attractions found in our database."
	msgNoNearby       = "No attractions found within the search radius."
	msgNoMatch        = "We could not match this photo to any of the attractions we know."
	msgRateLimited    = "You have used all of today's scans. Come back tomorrow or upgrade to premium for more."
	msgRadiusRange    = "Search radius must be between %.0f and %.0f meters."
	msgAlreadyVisited = "You have already visited %s."
	msgVisitVerified  = "Visit to %s verified!"
	msgSuggestion     = "Is this %s? Confirm to record your visit."
	msgConfirmed      = "Visit to %s recorded."
)

type RateLimiter interface {
	Check(ctx context.Context, userID uuid.UUID) (models.RateLimitState, error)
}

type CandidateLocator interface {
	Locate(ctx context.Context, userID uuid.UUID, search locator.Search, image oracle.Image) (*locator.Located, error)
}

type Matcher interface {
	Match(ctx context.Context, image oracle.Image, candidates []models.AttractionCandidate) (models.VerificationResult, error)
}

type AuditLog interface {
	Record(ctx context.Context, userID uuid.UUID, result models.VerificationResult, preview string)
}

type VisitRecorder interface {
	Record(ctx context.Context, p models.NewVisitParams) (*visits.Recorded, error)
}

type AttractionLookup interface {
	GetByID(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*models.AttractionSummary, error)
}

var _ Service = (*ServiceImpl)(nil)

// Service is the verification workflow exposed to the HTTP layer.
type Service interface {
	Verify(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error)
	ConfirmSuggestion(ctx context.Context, userID, attractionID uuid.UUID) (*models.ConfirmResponse, error)
	GetStatus(ctx context.Context, userID uuid.UUID) (*models.ScanStatus, error)
}

type Deps struct {
	RateLimiter RateLimiter
	Locator     CandidateLocator
	Oracle      Matcher
	Audit       AuditLog
	Recorder    VisitRecorder
	Attractions AttractionLookup
	Policy      *decision.Policy
}

type ServiceImpl struct {
	logger   *zap.Logger
	deps     Deps
	settings config.VerificationConfig
}

func NewService(deps Deps, settings config.VerificationConfig, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, deps: deps, settings: settings}
}

func (s *ServiceImpl) validate(req *models.VerifyRequest) (oracle.Image, error) {
	image, err := DecodeImage(req.RawImage, s.settings.MinImageLength, s.settings.MaxImageBytes)
	if err != nil {
		return oracle.Image{}, err
	}
	if req.RadiusMeters == 0 {
		req.RadiusMeters = s.settings.DefaultRadiusMeters
	}
	if req.RadiusMeters < s.settings.MinRadiusMeters || req.RadiusMeters > s.settings.MaxRadiusMeters {
		return oracle.Image{}, models.NewDomainError(models.ErrValidation,
			fmt.Sprintf(msgRadiusRange, s.settings.MinRadiusMeters, s.settings.MaxRadiusMeters),
			fmt.Errorf("radius %.0f out of range", req.RadiusMeters))
	}
	return image, nil
}

// Verify runs one scan. Validation and quota errors abort before any write.
// A duplicate visit is reported as AlreadyVisited, not as an error.
func (s *ServiceImpl) Verify(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error) {
	ctx, span := otel.Tracer("VerificationService").Start(ctx, "Verify", trace.WithAttributes(
		attribute.String("user.id", req.UserID.String()),
	))
	defer span.End()
	l := s.logger.With(zap.String("method", "Verify"), zap.String("user_id", req.UserID.String()))

	image, err := s.validate(&req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	quota, err := s.deps.RateLimiter.Check(ctx, req.UserID)
	if err != nil {
		l.Error("Rate limit check failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limit check failed")
		return nil, err
	}
	if !quota.Allowed {
		metrics.Get().RateLimitRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", string(quota.Tier))))
		span.SetStatus(codes.Error, "rate limited")
		return nil, models.NewDomainError(models.ErrRateLimitExceeded, msgRateLimited,
			fmt.Errorf("%d of %d scans used", quota.UsedToday, quota.Limit))
	}
	scansRemaining := max(0, quota.Remaining-1)

	if (req.Latitude == nil) != (req.Longitude == nil) {
		l.Warn("Only one coordinate supplied, falling back to upload search")
	}
	search := locator.NewSearch(req.Latitude, req.Longitude, req.RadiusMeters)
	span.SetAttributes(attribute.String("search.mode", string(search.Mode)))

	located, err := s.deps.Locator.Locate(ctx, req.UserID, search, image)
	if err != nil {
		l.Error("Candidate lookup failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "locate failed")
		return nil, err
	}

	if len(located.Candidates) == 0 {
		d := s.deps.Policy.NoCandidates()
		message := noCandidatesMessage(located)
		s.deps.Audit.Record(ctx, req.UserID, models.VerificationResult{Explanation: message}, req.RawImage)
		s.countScan(ctx, d.Outcome, search.Mode)
		span.SetAttributes(attribute.String("outcome", string(d.Outcome)))
		return &models.VerifyResponse{
			Outcome:        d.Outcome,
			Mode:           search.Mode,
			Message:        message,
			ScansRemaining: scansRemaining,
		}, nil
	}

	result, err := s.deps.Oracle.Match(ctx, image, located.Candidates)
	if err != nil {
		l.Error("Image match failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "oracle failed")
		return nil, err
	}
	s.deps.Audit.Record(ctx, req.UserID, result, req.RawImage)

	d := s.deps.Policy.Decide(result)
	span.SetAttributes(
		attribute.String("outcome", string(d.Outcome)),
		attribute.Float64("confidence", d.Confidence),
	)
	s.countScan(ctx, d.Outcome, search.Mode)

	resp := &models.VerifyResponse{
		Outcome:        d.Outcome,
		Mode:           search.Mode,
		Confidence:     d.Confidence,
		Explanation:    result.Explanation,
		ScansRemaining: scansRemaining,
	}

	switch d.Outcome {
	case models.OutcomeAutoConfirm:
		attraction, err := s.summary(ctx, located, d.AttractionID, req.UserID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "attraction lookup failed")
			return nil, err
		}
		resp.Attraction = attraction
		resp.Matched = true

		recorded, err := s.deps.Recorder.Record(ctx, models.NewVisitParams{
			UserID:       req.UserID,
			AttractionID: d.AttractionID,
			Source:       models.VisitSourceAIAuto,
			Photo:        image.Data,
			MediaType:    image.MediaType,
			Attraction:   attraction,
		})
		switch {
		case errors.Is(err, models.ErrConflict):
			resp.AlreadyVisited = true
			resp.Message = fmt.Sprintf(msgAlreadyVisited, attraction.Name)
		case err != nil:
			l.Error("Failed to record auto confirmed visit", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "record visit failed")
			return nil, err
		default:
			resp.Visit = &recorded.Visit
			resp.Attraction = &recorded.Attraction
			resp.NewBadges = recorded.NewBadges
			resp.Message = fmt.Sprintf(msgVisitVerified, attraction.Name)
		}

	case models.OutcomeNeedsConfirmation:
		attraction, err := s.summary(ctx, located, d.AttractionID, req.UserID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "attraction lookup failed")
			return nil, err
		}
		resp.Attraction = attraction
		resp.RequiresConfirmation = true
		resp.Message = fmt.Sprintf(msgSuggestion, attraction.Name)

	default:
		resp.Message = msgNoMatch
	}

	l.Info("Scan verified",
		zap.String("outcome", string(d.Outcome)),
		zap.String("mode", string(search.Mode)),
		zap.Float64("confidence", d.Confidence))
	span.SetStatus(codes.Ok, "verified")
	return resp, nil
}

// ConfirmSuggestion records a user confirmed visit. It skips the quota, the oracle and the scan journal.
func (s *ServiceImpl) ConfirmSuggestion(ctx context.Context, userID, attractionID uuid.UUID) (*models.ConfirmResponse, error) {
	ctx, span := otel.Tracer("VerificationService").Start(ctx, "ConfirmSuggestion", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("attraction.id", attractionID.String()),
	))
	defer span.End()

	recorded, err := s.deps.Recorder.Record(ctx, models.NewVisitParams{
		UserID:       userID,
		AttractionID: attractionID,
		Source:       models.VisitSourceUserConfirmed,
	})
	if errors.Is(err, models.ErrConflict) {
		attraction, lookupErr := s.deps.Attractions.GetByID(ctx, attractionID, &userID)
		if lookupErr != nil {
			span.RecordError(lookupErr)
			span.SetStatus(codes.Error, "attraction lookup failed")
			return nil, lookupErr
		}
		span.SetAttributes(attribute.Bool("already_visited", true))
		span.SetStatus(codes.Ok, "already visited")
		return &models.ConfirmResponse{
			Matched:        true,
			AlreadyVisited: true,
			Message:        fmt.Sprintf(msgAlreadyVisited, attraction.Name),
			Attraction:     attraction,
		}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record visit failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "confirmed")
	return &models.ConfirmResponse{
		Matched:    true,
		Message:    fmt.Sprintf(msgConfirmed, recorded.Attraction.Name),
		Attraction: &recorded.Attraction,
		Visit:      &recorded.Visit,
		NewBadges:  recorded.NewBadges,
	}, nil
}

func (s *ServiceImpl) GetStatus(ctx context.Context, userID uuid.UUID) (*models.ScanStatus, error) {
	ctx, span := otel.Tracer("VerificationService").Start(ctx, "GetStatus", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	quota, err := s.deps.RateLimiter.Check(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limit check failed")
		return nil, err
	}
	return &models.ScanStatus{
		Tier:           quota.Tier,
		DailyLimit:     quota.Limit,
		ScansRemaining: quota.Remaining,
		ScansUsed:      quota.UsedToday,
	}, nil
}

// summary prefers the catalog entry already fetched for the candidates.
func (s *ServiceImpl) summary(ctx context.Context, located *locator.Located, id, userID uuid.UUID) (*models.AttractionSummary, error) {
	if a, ok := located.Summary(id); ok {
		return &a, nil
	}
	return s.deps.Attractions.GetByID(ctx, id, &userID)
}

func (s *ServiceImpl) countScan(ctx context.Context, outcome models.Outcome, mode models.SearchMode) {
	metrics.Get().ScansTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(outcome)),
		attribute.String("mode", string(mode)),
	))
}

func noCandidatesMessage(located *locator.Located) string {
	switch {
	case located.Mode == models.SearchModeCamera:
		return msgNoNearby
	case len(located.Keywords) == 0:
		return msgNoKeywords
	default:
		return msgNoTextMatches
	}
}
