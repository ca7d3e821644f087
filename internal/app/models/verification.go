package models

import (
	"math"

	"github.com/google/uuid"
)

// SearchMode tells how candidates were located.
type SearchMode string

const (
	SearchModeCamera SearchMode = "camera"
	SearchModeUpload SearchMode = "upload"
)

// Tier is a user's subscription level.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// ParseTier maps stored tier values, defaulting to free for anything unknown.
func ParseTier(s string) Tier {
	if Tier(s) == TierPremium {
		return TierPremium
	}
	return TierFree
}

// VerificationResult is the oracle's single best-match judgment.
type VerificationResult struct {
	Matched      bool       `json:"matched"`
	Confidence   float64    `json:"confidence"`
	AttractionID *uuid.UUID `json:"attractionId"`
	Explanation  string     `json:"explanation"`
}

// ClampConfidence forces c into [0,1]; NaN becomes 0.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// ParseFailureResult is what a garbled oracle answer degrades to.
func ParseFailureResult() VerificationResult {
	return VerificationResult{Matched: false, Confidence: 0, AttractionID: nil, Explanation: "parse failure"}
}

// Outcome is the decision reached for one scan.
type Outcome string

const (
	OutcomeNoCandidates      Outcome = "NO_CANDIDATES"
	OutcomeNoMatch           Outcome = "NO_MATCH"
	OutcomeAutoConfirm       Outcome = "AUTO_CONFIRM"
	OutcomeNeedsConfirmation Outcome = "NEEDS_CONFIRMATION"
)

// RateLimitState is derived on every read, never stored.
type RateLimitState struct {
	Tier      Tier `json:"tier"`
	Limit     int  `json:"dailyLimit"`
	UsedToday int  `json:"scansUsed"`
	Remaining int  `json:"scansRemaining"`
	Allowed   bool `json:"allowed"`
}

// VerifyRequest is the verification input. RawImage is decoded by the workflow.
type VerifyRequest struct {
	UserID       uuid.UUID
	RawImage     string
	Latitude     *float64
	Longitude    *float64
	RadiusMeters float64
}

// VerifyResponse covers every verify branch.
type VerifyResponse struct {
	Outcome              Outcome            `json:"outcome"`
	Mode                 SearchMode         `json:"mode"`
	Matched              bool               `json:"matched"`
	RequiresConfirmation bool               `json:"requiresConfirmation"`
	AlreadyVisited       bool               `json:"alreadyVisited"`
	Confidence           float64            `json:"confidence"`
	Explanation          string             `json:"explanation,omitempty"`
	Message              string             `json:"message,omitempty"`
	Attraction           *AttractionSummary `json:"attraction,omitempty"`
	Visit                *Visit             `json:"visit,omitempty"`
	NewBadges            []AwardedBadge     `json:"newBadges,omitempty"`
	ScansRemaining       int                `json:"scansRemaining"`
}

// ConfirmResponse is returned by confirmSuggestion.
type ConfirmResponse struct {
	Matched        bool               `json:"matched"`
	AlreadyVisited bool               `json:"alreadyVisited"`
	Message        string             `json:"message"`
	Attraction     *AttractionSummary `json:"attraction,omitempty"`
	Visit          *Visit             `json:"visit,omitempty"`
	NewBadges      []AwardedBadge     `json:"newBadges,omitempty"`
}

// ScanStatus is the getStatus payload.
type ScanStatus struct {
	Tier           Tier `json:"tier"`
	DailyLimit     int  `json:"dailyLimit"`
	ScansRemaining int  `json:"scansRemaining"`
	ScansUsed      int  `json:"scansUsed"`
}
