// Package oracle is the image-understanding boundary: it describes photos and
// judges them against candidate attractions.
package oracle

import (
	"context"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

// Image is a decoded upload ready to be sent inline.
type Image struct {
	Data      []byte
	MediaType string
}

// ImageMatchOracle must not be called with an empty candidate list.
type ImageMatchOracle interface {
	Match(ctx context.Context, image Image, candidates []models.AttractionCandidate) (models.VerificationResult, error)
	Describe(ctx context.Context, image Image) (string, error)
}
