// Package decision turns an oracle judgment into a verification outcome.
package decision

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

const (
	DefaultAutoMatchThreshold = 0.85
	DefaultSuggestThreshold   = 0.6
)

// Thresholds must satisfy 0 <= Suggest < AutoMatch <= 1.
type Thresholds struct {
	AutoMatch float64
	Suggest   float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{AutoMatch: DefaultAutoMatchThreshold, Suggest: DefaultSuggestThreshold}
}

func (t Thresholds) Validate() error {
	if t.Suggest < 0 || t.AutoMatch > 1 || t.Suggest >= t.AutoMatch {
		return fmt.Errorf("%w: thresholds require 0 <= suggest < auto <= 1, got suggest=%.2f auto=%.2f",
			models.ErrValidation, t.Suggest, t.AutoMatch)
	}
	return nil
}

// Decision is the policy's verdict. AttractionID is set for AUTO_CONFIRM and NEEDS_CONFIRMATION.
type Decision struct {
	Outcome      models.Outcome
	AttractionID uuid.UUID
	Confidence   float64
}

type Policy struct {
	thresholds Thresholds
}

func NewPolicy(t Thresholds) (*Policy, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Policy{thresholds: t}, nil
}

func (p *Policy) Thresholds() Thresholds { return p.thresholds }

// NoCandidates is the terminal decision when nothing was sent to the oracle.
func (p *Policy) NoCandidates() Decision {
	return Decision{Outcome: models.OutcomeNoCandidates}
}

// Decide is pure; confidence is clamped before comparison.
func (p *Policy) Decide(result models.VerificationResult) Decision {
	confidence := models.ClampConfidence(result.Confidence)
	if !result.Matched || result.AttractionID == nil {
		return Decision{Outcome: models.OutcomeNoMatch, Confidence: confidence}
	}

	d := Decision{AttractionID: *result.AttractionID, Confidence: confidence}
	switch {
	case confidence >= p.thresholds.AutoMatch:
		d.Outcome = models.OutcomeAutoConfirm
	case confidence >= p.thresholds.Suggest:
		d.Outcome = models.OutcomeNeedsConfirmation
	default:
		d.Outcome = models.OutcomeNoMatch
		d.AttractionID = uuid.Nil
	}
	return d
}
