package verification

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/FACorreiaa/loci-visits/internal/app/domain/oracle"
	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

const defaultMediaType = "image/jpeg"

// DecodeImage accepts plain base64 or a data URL of the form
// data:image/<type>;base64,<payload>. The media type defaults to image/jpeg.
func DecodeImage(raw string, minLength, maxBytes int) (oracle.Image, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < minLength || raw == "" {
		return oracle.Image{}, models.NewDomainError(models.ErrValidation,
			"A valid image is required.", fmt.Errorf("image payload of %d characters is below %d", len(raw), minLength))
	}

	mediaType := defaultMediaType
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		header, data, ok := strings.Cut(raw, ",")
		if !ok {
			return oracle.Image{}, models.NewDomainError(models.ErrValidation, "A valid image is required.",
				fmt.Errorf("data URL without payload"))
		}
		meta := strings.TrimPrefix(header, "data:")
		meta, isBase64 := strings.CutSuffix(meta, ";base64")
		if !isBase64 || !strings.HasPrefix(meta, "image/") {
			return oracle.Image{}, models.NewDomainError(models.ErrValidation, "Only base64 encoded images are supported.",
				fmt.Errorf("unsupported data URL header %q", header))
		}
		mediaType = meta
		payload = data
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
	}
	if err != nil {
		return oracle.Image{}, models.NewDomainError(models.ErrValidation, "The image could not be decoded.", err)
	}
	if len(data) == 0 {
		return oracle.Image{}, models.NewDomainError(models.ErrValidation, "A valid image is required.",
			fmt.Errorf("empty image"))
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return oracle.Image{}, models.NewDomainError(models.ErrValidation, "The image is too large.",
			fmt.Errorf("image of %d bytes exceeds %d", len(data), maxBytes))
	}

	return oracle.Image{Data: data, MediaType: mediaType}, nil
}
