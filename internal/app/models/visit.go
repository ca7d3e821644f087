package models

import (
	"time"

	"github.com/google/uuid"
)

// VisitSource records which path created a visit.
type VisitSource string

const (
	VisitSourceAIAuto        VisitSource = "ai_auto"
	VisitSourceUserConfirmed VisitSource = "user_confirmed"
	VisitSourceManual        VisitSource = "manual"
)

// IsVerified reports whether visits from this source count as verified.
func (s VisitSource) IsVerified() bool {
	return s == VisitSourceAIAuto || s == VisitSourceUserConfirmed
}

// Visit is unique per (UserID, AttractionID).
type Visit struct {
	ID           uuid.UUID   `json:"id"`
	UserID       uuid.UUID   `json:"userId"`
	AttractionID uuid.UUID   `json:"attractionId"`
	VisitDate    time.Time   `json:"visitDate"`
	PhotoURL     *string     `json:"photoUrl,omitempty"`
	Notes        *string     `json:"notes,omitempty"`
	IsVerified   bool        `json:"isVerified"`
	Source       VisitSource `json:"source"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// NewVisitParams carries what the recorder needs to create a visit. Attraction,
// when it matches AttractionID, spares the recorder a catalog lookup.
type NewVisitParams struct {
	UserID       uuid.UUID
	AttractionID uuid.UUID
	Source       VisitSource
	Notes        *string
	Photo        []byte
	MediaType    string
	Attraction   *AttractionSummary
}

// LocationContext is handed to the badge engine after a visit is stored.
type LocationContext struct {
	AttractionID uuid.UUID `json:"attractionId"`
	CityID       uuid.UUID `json:"cityId"`
	CountryID    uuid.UUID `json:"countryId"`
	Category     string    `json:"category"`
}

// VisitRecordedEvent is published for downstream leaderboard consumers.
type VisitRecordedEvent struct {
	VisitID      uuid.UUID   `json:"visitId"`
	UserID       uuid.UUID   `json:"userId"`
	AttractionID uuid.UUID   `json:"attractionId"`
	IsVerified   bool        `json:"isVerified"`
	Source       VisitSource `json:"source"`
	VisitDate    time.Time   `json:"visitDate"`
}
