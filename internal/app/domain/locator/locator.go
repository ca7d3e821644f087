// Package locator finds the attractions a photo may show, either around the
// caller's coordinates or from a description of the photo itself.
package locator

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/domain/keywords"
	"github.com/FACorreiaa/loci-visits/internal/app/domain/oracle"
	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

const defaultMaxKeywords = 5

type Catalog interface {
	NearbySearch(ctx context.Context, q models.NearbyQuery) ([]models.AttractionSummary, error)
	TextSearch(ctx context.Context, query string, limit int) ([]models.AttractionSummary, error)
}

type Describer interface {
	Describe(ctx context.Context, image oracle.Image) (string, error)
}

type KeywordExtractor interface {
	Extract(description string) []string
}

// Search is decided once per request. Coordinates are only meaningful in camera mode.
type Search struct {
	Mode         models.SearchMode
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
}

// NewSearch picks camera mode only when both coordinates are present.
func NewSearch(lat, lng *float64, radiusMeters float64) Search {
	if lat != nil && lng != nil {
		return Search{Mode: models.SearchModeCamera, Latitude: *lat, Longitude: *lng, RadiusMeters: radiusMeters}
	}
	return Search{Mode: models.SearchModeUpload}
}

// Located carries the candidates handed to the oracle plus what produced them.
// Keywords and Description are only set in upload mode.
type Located struct {
	Mode        models.SearchMode
	Candidates  []models.AttractionCandidate
	Summaries   []models.AttractionSummary
	Keywords    []string
	Description string
}

// Summary returns the catalog entry behind a candidate id.
func (l *Located) Summary(id uuid.UUID) (models.AttractionSummary, bool) {
	for _, s := range l.Summaries {
		if s.ID == id {
			return s, true
		}
	}
	return models.AttractionSummary{}, false
}

type Locator struct {
	logger        *zap.Logger
	catalog       Catalog
	describer     Describer
	extractor     KeywordExtractor
	maxCandidates int
	maxKeywords   int
}

func New(catalog Catalog, describer Describer, extractor KeywordExtractor, maxCandidates, maxKeywords int, logger *zap.Logger) *Locator {
	if maxKeywords <= 0 {
		maxKeywords = defaultMaxKeywords
	}
	return &Locator{
		logger:        logger,
		catalog:       catalog,
		describer:     describer,
		extractor:     extractor,
		maxCandidates: maxCandidates,
		maxKeywords:   maxKeywords,
	}
}

// Locate never returns more than the configured maximum of candidates.
// Catalog and oracle failures are returned as is.
func (l *Locator) Locate(ctx context.Context, userID uuid.UUID, search Search, image oracle.Image) (*Located, error) {
	ctx, span := otel.Tracer("CandidateLocator").Start(ctx, "Locate", trace.WithAttributes(
		attribute.String("search.mode", string(search.Mode)),
	))
	defer span.End()

	var (
		located *Located
		err     error
	)
	switch search.Mode {
	case models.SearchModeCamera:
		located, err = l.nearby(ctx, userID, search)
	default:
		located, err = l.fromDescription(ctx, image)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "locate failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("candidates.count", len(located.Candidates)))
	span.SetStatus(codes.Ok, "located")
	return located, nil
}

func (l *Locator) nearby(ctx context.Context, userID uuid.UUID, search Search) (*Located, error) {
	summaries, err := l.catalog.NearbySearch(ctx, models.NearbyQuery{
		Latitude:     search.Latitude,
		Longitude:    search.Longitude,
		RadiusMeters: search.RadiusMeters,
		Limit:        l.maxCandidates,
		UserID:       &userID,
	})
	if err != nil {
		return nil, err
	}
	return l.located(models.SearchModeCamera, summaries), nil
}

func (l *Locator) fromDescription(ctx context.Context, image oracle.Image) (*Located, error) {
	log := l.logger.With(zap.String("method", "fromDescription"))

	description, err := l.describer.Describe(ctx, image)
	if err != nil {
		return nil, err
	}

	kws := l.extractor.Extract(description)
	if len(kws) == 0 {
		log.Info("No keywords in image description", zap.Int("description_length", len(description)))
		located := l.located(models.SearchModeUpload, nil)
		located.Description = description
		located.Keywords = []string{}
		return located, nil
	}

	query := keywords.SearchQuery(kws, l.maxKeywords)
	log.Debug("Searching catalog from description", zap.String("query", query))
	summaries, err := l.catalog.TextSearch(ctx, query, l.maxCandidates)
	if err != nil {
		return nil, err
	}

	located := l.located(models.SearchModeUpload, summaries)
	located.Description = description
	located.Keywords = kws
	return located, nil
}

func (l *Locator) located(mode models.SearchMode, summaries []models.AttractionSummary) *Located {
	if l.maxCandidates > 0 && len(summaries) > l.maxCandidates {
		summaries = summaries[:l.maxCandidates]
	}
	if summaries == nil {
		summaries = []models.AttractionSummary{}
	}
	return &Located{
		Mode:       mode,
		Summaries:  summaries,
		Candidates: models.ToCandidates(summaries, l.maxCandidates),
	}
}
