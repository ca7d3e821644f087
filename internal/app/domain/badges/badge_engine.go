// Package badges awards achievement badges derived from a user's visits.
package badges

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

// VisitStats is what badge rules are evaluated against.
type VisitStats struct {
	TotalVisits    int
	VerifiedVisits int
	CityVisits     int
	Countries      int
}

type rule struct {
	badge  models.Badge
	earned func(VisitStats) bool
}

var catalogue = []rule{
	{models.Badge{Code: "first_visit", Name: "First Steps", Description: "Record your first visit"},
		func(s VisitStats) bool { return s.TotalVisits >= 1 }},
	{models.Badge{Code: "verified_5", Name: "Explorer", Description: "Verify 5 visits"},
		func(s VisitStats) bool { return s.VerifiedVisits >= 5 }},
	{models.Badge{Code: "verified_25", Name: "Adventurer", Description: "Verify 25 visits"},
		func(s VisitStats) bool { return s.VerifiedVisits >= 25 }},
	{models.Badge{Code: "verified_100", Name: "Legend", Description: "Verify 100 visits"},
		func(s VisitStats) bool { return s.VerifiedVisits >= 100 }},
	{models.Badge{Code: "city_3", Name: "Local Expert", Description: "Visit 3 attractions in one city"},
		func(s VisitStats) bool { return s.CityVisits >= 3 }},
	{models.Badge{Code: "countries_3", Name: "Globetrotter", Description: "Visit attractions in 3 countries"},
		func(s VisitStats) bool { return s.Countries >= 3 }},
	{models.Badge{Code: "countries_10", Name: "World Traveller", Description: "Visit attractions in 10 countries"},
		func(s VisitStats) bool { return s.Countries >= 10 }},
}

// Catalogue lists every badge definition.
func Catalogue() []models.Badge {
	out := make([]models.Badge, 0, len(catalogue))
	for _, r := range catalogue {
		out = append(out, r.badge)
	}
	return out
}

// Earned returns the badges whose rules hold for s, in catalogue order.
func Earned(s VisitStats) []models.Badge {
	var out []models.Badge
	for _, r := range catalogue {
		if r.earned(s) {
			out = append(out, r.badge)
		}
	}
	return out
}

type Engine struct {
	logger *zap.Logger
	pgpool database.Querier
}

func NewEngine(pgxpool database.Querier, logger *zap.Logger) *Engine {
	return &Engine{logger: logger, pgpool: pgxpool}
}

const statsQuery = `
	SELECT
		COUNT(*) AS total_visits,
		COUNT(*) FILTER (WHERE v.is_verified) AS verified_visits,
		COUNT(*) FILTER (WHERE a.city_id = $2) AS city_visits,
		COUNT(DISTINCT ci.country_id) AS countries
	FROM visits v
	JOIN attractions a ON a.id = v.attraction_id
	JOIN cities ci ON ci.id = a.city_id
	WHERE v.user_id = $1`

const awardQuery = `INSERT INTO user_badges (user_id, badge_code) VALUES ($1, $2) ON CONFLICT DO NOTHING`

// CheckAndAward grants every earned badge. IsNew marks badges inserted by this call.
func (e *Engine) CheckAndAward(ctx context.Context, userID uuid.UUID, loc models.LocationContext) ([]models.AwardedBadge, error) {
	ctx, span := otel.Tracer("BadgeEngine").Start(ctx, "CheckAndAward", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("city.id", loc.CityID.String()),
	))
	defer span.End()
	l := e.logger.With(zap.String("method", "CheckAndAward"), zap.String("user_id", userID.String()))

	var stats VisitStats
	start := time.Now()
	err := e.pgpool.QueryRow(ctx, statsQuery, userID, loc.CityID).
		Scan(&stats.TotalVisits, &stats.VerifiedVisits, &stats.CityVisits, &stats.Countries)
	database.ObserveQuery(ctx, "badge_stats", start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stats query failed")
		return nil, fmt.Errorf("failed to load visit stats: %w", err)
	}

	earned := Earned(stats)
	awarded := make([]models.AwardedBadge, 0, len(earned))
	for _, b := range earned {
		tag, err := e.pgpool.Exec(ctx, awardQuery, userID, b.Code)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "award insert failed")
			return awarded, fmt.Errorf("failed to award badge %s: %w", b.Code, err)
		}
		isNew := tag.RowsAffected() == 1
		if isNew {
			l.Info("Badge awarded", zap.String("badge", b.Code))
		}
		awarded = append(awarded, models.AwardedBadge{Badge: b, IsNew: isNew})
	}

	span.SetAttributes(attribute.Int("badges.earned", len(awarded)))
	span.SetStatus(codes.Ok, "badges evaluated")
	return awarded, nil
}
