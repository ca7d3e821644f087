package oracle

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", `Sure! Here it is: {"a":{"b":2}} hope it helps`, `{"a":{"b":2}}`},
		{"brace inside string", `{"explanation":"looks like } a tower"}`, `{"explanation":"looks like } a tower"}`},
		{"no json", "I cannot tell", "I cannot tell"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSONResponse(tt.in))
		})
	}
}

func TestParseMatch(t *testing.T) {
	id := uuid.New()
	other := uuid.New()
	candidates := []models.AttractionCandidate{{ID: id, Name: "Eiffel Tower"}}

	tests := []struct {
		name   string
		raw    string
		wantOK bool
		want   models.VerificationResult
	}{
		{
			name:   "valid fenced reply",
			raw:    fmt.Sprintf("```json\n{\"matched\":true,\"attractionId\":\"%s\",\"confidence\":0.92,\"explanation\":\"Iron lattice tower\"}\n```", id),
			wantOK: true,
			want:   models.VerificationResult{Matched: true, Confidence: 0.92, AttractionID: &id, Explanation: "Iron lattice tower"},
		},
		{
			name:   "confidence above one is clamped",
			raw:    fmt.Sprintf(`{"matched":true,"attractionId":"%s","confidence":2,"explanation":"x"}`, id),
			wantOK: true,
			want:   models.VerificationResult{Matched: true, Confidence: 1, AttractionID: &id, Explanation: "x"},
		},
		{
			name:   "negative confidence is clamped",
			raw:    fmt.Sprintf(`{"matched":true,"attractionId":"%s","confidence":-1,"explanation":"x"}`, id),
			wantOK: true,
			want:   models.VerificationResult{Matched: true, Confidence: 0, AttractionID: &id, Explanation: "x"},
		},
		{
			name:   "missing confidence defaults to zero",
			raw:    `{"matched":false,"attractionId":null,"explanation":"nothing"}`,
			wantOK: true,
			want:   models.VerificationResult{Matched: false, Confidence: 0, Explanation: "nothing"},
		},
		{
			name:   "unknown attraction id is dropped",
			raw:    fmt.Sprintf(`{"matched":true,"attractionId":"%s","confidence":0.9,"explanation":"x"}`, other),
			wantOK: true,
			want:   models.VerificationResult{Matched: true, Confidence: 0.9, Explanation: "x"},
		},
		{
			name:   "non uuid id is dropped",
			raw:    `{"matched":true,"attractionId":"eiffel-tower","confidence":0.9,"explanation":"x"}`,
			wantOK: true,
			want:   models.VerificationResult{Matched: true, Confidence: 0.9, Explanation: "x"},
		},
		{
			name:   "not json",
			raw:    "The photo shows the Eiffel Tower.",
			wantOK: false,
			want:   models.ParseFailureResult(),
		},
		{
			name:   "confidence as string",
			raw:    `{"matched":true,"confidence":"high"}`,
			wantOK: false,
			want:   models.ParseFailureResult(),
		},
		{
			name:   "missing matched flag",
			raw:    `{"confidence":0.4}`,
			wantOK: false,
			want:   models.ParseFailureResult(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseMatch(tt.raw, candidates)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			require.GreaterOrEqual(t, got.Confidence, 0.0)
			require.LessOrEqual(t, got.Confidence, 1.0)
		})
	}
}
