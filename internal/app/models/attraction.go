package models

import (
	"github.com/google/uuid"
)

// AttractionSummary is the catalog's view of an attraction, as returned by
// nearby and text searches.
type AttractionSummary struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	City             string    `json:"city"`
	CityID           uuid.UUID `json:"cityId"`
	Country          string    `json:"country"`
	CountryID        uuid.UUID `json:"countryId"`
	Category         string    `json:"category"`
	ShortDescription string    `json:"shortDescription"`
	FamousFor        *string   `json:"famousFor,omitempty"`
	Highlights       []string  `json:"highlights,omitempty"`
	ImageURL         string    `json:"imageUrl,omitempty"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	DistanceMeters   *float64  `json:"distanceMeters,omitempty"`
	IsFavorite       bool      `json:"isFavorite"`
}

// NearbyQuery describes a radius search around a point.
type NearbyQuery struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	Category     string
	Limit        int
	UserID       *uuid.UUID
}

// AttractionCandidate is the read-only projection sent to the image oracle.
type AttractionCandidate struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	City             string    `json:"city"`
	Country          string    `json:"country"`
	Category         string    `json:"category"`
	ShortDescription string    `json:"shortDescription"`
	FamousFor        *string   `json:"famousFor,omitempty"`
	Highlights       []string  `json:"highlights"`
}

// ToCandidate is the only place a catalog summary becomes an oracle candidate.
func ToCandidate(a AttractionSummary) AttractionCandidate {
	highlights := a.Highlights
	if highlights == nil {
		highlights = []string{}
	}
	return AttractionCandidate{
		ID:               a.ID,
		Name:             a.Name,
		City:             a.City,
		Country:          a.Country,
		Category:         a.Category,
		ShortDescription: a.ShortDescription,
		FamousFor:        a.FamousFor,
		Highlights:       highlights,
	}
}

// ToCandidates maps a slice and caps it at limit (limit <= 0 means no cap).
func ToCandidates(summaries []AttractionSummary, limit int) []AttractionCandidate {
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	candidates := make([]AttractionCandidate, 0, len(summaries))
	for _, s := range summaries {
		candidates = append(candidates, ToCandidate(s))
	}
	return candidates
}
