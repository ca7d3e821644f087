package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

func TestBaseHandler_RespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewBaseHandler(zap.NewNop())

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
		retryAfter  string
	}{
		{
			name:        "validation with user message",
			err:         models.NewDomainError(models.ErrValidation, "A valid image is required.", nil),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "validation_error",
			wantMessage: "A valid image is required.",
		},
		{
			name:        "rate limited",
			err:         models.NewDomainError(models.ErrRateLimitExceeded, "Come back tomorrow.", nil),
			wantStatus:  http.StatusTooManyRequests,
			wantCode:    "rate_limit_exceeded",
			wantMessage: "Come back tomorrow.",
		},
		{
			name:        "oracle busy sets retry after",
			err:         fmt.Errorf("%w: 429", models.ErrOracleBusy),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    "ai_service_busy",
			wantMessage: "The AI service is busy. Please try again shortly.",
			retryAfter:  OracleRetryAfter,
		},
		{
			name:       "oracle timeout",
			err:        fmt.Errorf("%w: deadline", models.ErrOracleTimeout),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "ai_service_timeout",
		},
		{
			name:       "oracle unavailable",
			err:        models.ErrOracleUnavailable,
			wantStatus: http.StatusBadGateway,
			wantCode:   "ai_service_unavailable",
		},
		{
			name:       "catalog unavailable",
			err:        models.NewDomainError(models.ErrCatalogUnavailable, "down", nil),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "catalog_unavailable",
		},
		{
			name:        "not found",
			err:         models.NewDomainError(models.ErrNotFound, "Attraction not found.", nil),
			wantStatus:  http.StatusNotFound,
			wantCode:    "not_found",
			wantMessage: "Attraction not found.",
		},
		{
			name:       "unknown",
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.RespondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error)
			assert.NotEmpty(t, body.Message)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, body.Message)
			}
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))
		})
	}
}

func TestBaseHandler_UserIDMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := NewBaseHandler(zap.NewNop()).UserID(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
