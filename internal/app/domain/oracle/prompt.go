package oracle

import (
	"encoding/json"
	"fmt"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

const describePrompt = `Describe this photo as a travel guide would. Name the landmark, building or natural site if you recognise it, ` +
	`the city and country if identifiable, and the type of place (museum, cathedral, park, bridge...). ` +
	`Answer in plain prose, at most five sentences.`

func matchPrompt(candidates []models.AttractionCandidate) (string, error) {
	list, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}

	return fmt.Sprintf(`You verify that a traveller's photo was taken at a known attraction.
Compare the photo against these candidate attractions:
%s

Pick the single best match, or none if the photo shows none of them.
Reply with JSON only, no prose, using exactly this shape:
{"matched": true|false, "attractionId": "<id from the list or null>", "confidence": <number between 0 and 1>, "explanation": "<one or two sentences>"}`,
		string(list)), nil
}
