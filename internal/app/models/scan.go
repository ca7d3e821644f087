package models

import (
	"time"

	"github.com/google/uuid"
)

// DailyScanRecord is one journaled verification attempt. Never updated.
type DailyScanRecord struct {
	ID           uuid.UUID          `json:"id"`
	UserID       uuid.UUID          `json:"userId"`
	ScanDate     time.Time          `json:"scanDate"`
	ImagePreview *string            `json:"imagePreview,omitempty"`
	Result       VerificationResult `json:"result"`
	CreatedAt    time.Time          `json:"createdAt"`
}
