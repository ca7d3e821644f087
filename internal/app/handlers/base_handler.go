package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/middleware"
	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

// OracleRetryAfter is the Retry-After hint, in seconds, sent when the image service is busy.
const OracleRetryAfter = "30"

type BaseHandler struct {
	Logger *zap.Logger
}

func NewBaseHandler(logger *zap.Logger) *BaseHandler {
	return &BaseHandler{Logger: logger}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorMapping struct {
	kind    error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{models.ErrValidation, http.StatusBadRequest, "validation_error", "The request is invalid."},
	{models.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", "Authentication required"},
	{models.ErrNotFound, http.StatusNotFound, "not_found", "Not found."},
	{models.ErrRateLimitExceeded, http.StatusTooManyRequests, "rate_limit_exceeded", "Daily scan limit reached."},
	{models.ErrOracleBusy, http.StatusServiceUnavailable, "ai_service_busy", "The AI service is busy. Please try again shortly."},
	{models.ErrOracleTimeout, http.StatusGatewayTimeout, "ai_service_timeout", "The AI service took too long to respond. Please try again."},
	{models.ErrOracleUnavailable, http.StatusBadGateway, "ai_service_unavailable", "The AI service is unavailable. Please try again later."},
	{models.ErrCatalogUnavailable, http.StatusServiceUnavailable, "catalog_unavailable", "The attraction catalog is temporarily unavailable. Please try again."},
	{models.ErrConflict, http.StatusConflict, "conflict", "Already exists."},
}

// RespondError maps domain errors onto HTTP statuses. Anything unrecognised is a 500.
func (h *BaseHandler) RespondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.kind) {
			continue
		}
		if m.kind == models.ErrOracleBusy {
			c.Header("Retry-After", OracleRetryAfter)
		}
		if m.status >= http.StatusInternalServerError {
			h.Logger.Error("Request failed", zap.String("path", c.FullPath()), zap.String("error_code", m.code), zap.Error(err))
		}
		c.JSON(m.status, ErrorBody{Error: m.code, Message: models.UserMessage(err, m.message)})
		return
	}

	h.Logger.Error("Unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorBody{Error: "internal_error", Message: "Something went wrong. Please try again."})
}

// UserID returns the authenticated caller or writes a 401.
func (h *BaseHandler) UserID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		h.Logger.Error("User not authenticated", zap.String("path", c.FullPath()))
		c.JSON(http.StatusUnauthorized, ErrorBody{Error: "unauthenticated", Message: "Authentication required"})
		return uuid.Nil, false
	}
	return userID, true
}

// BadRequest writes a 400 for a body that could not be bound.
func (h *BaseHandler) BadRequest(c *gin.Context, message string, err error) {
	h.Logger.Debug("Bad request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, ErrorBody{Error: "validation_error", Message: message})
}
