package oracle

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

// cleanJSONResponse strips markdown fences and surrounding prose from a model reply.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	first := strings.Index(response, "{")
	if first == -1 {
		return response
	}

	depth := 0
	inString := false
	escaped := false
	for i := first; i < len(response); i++ {
		ch := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[first : i+1]
			}
		}
	}

	if last := strings.LastIndex(response, "}"); last > first {
		return response[first : last+1]
	}
	return response
}

type matchPayload struct {
	Matched      *bool    `json:"matched"`
	AttractionID *string  `json:"attractionId"`
	Confidence   *float64 `json:"confidence"`
	Explanation  string   `json:"explanation"`
}

// parseMatch never fails: a reply that cannot be read degrades to the
// parse-failure result and ok=false. Ids outside the candidate set are dropped.
func parseMatch(raw string, candidates []models.AttractionCandidate) (result models.VerificationResult, ok bool) {
	var p matchPayload
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &p); err != nil || p.Matched == nil {
		return models.ParseFailureResult(), false
	}

	result = models.VerificationResult{
		Matched:     *p.Matched,
		Explanation: strings.TrimSpace(p.Explanation),
	}
	if p.Confidence != nil {
		result.Confidence = models.ClampConfidence(*p.Confidence)
	}

	if p.AttractionID != nil && *p.AttractionID != "" {
		if id, err := uuid.Parse(strings.TrimSpace(*p.AttractionID)); err == nil && containsCandidate(candidates, id) {
			result.AttractionID = &id
		}
	}

	return result, true
}

func containsCandidate(candidates []models.AttractionCandidate, id uuid.UUID) bool {
	for _, c := range candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}
