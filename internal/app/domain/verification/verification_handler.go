package verification

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/handlers"
	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

type verifyBody struct {
	Image     string   `json:"image" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	Radius    float64  `json:"radius"`
}

type confirmBody struct {
	AttractionID string `json:"attractionId" binding:"required"`
}

type Handler struct {
	*handlers.BaseHandler
	service Service
}

func NewHandler(service Service, log *zap.Logger) *Handler {
	return &Handler{BaseHandler: handlers.NewBaseHandler(log), service: service}
}

// Verify handles POST /api/v1/verify
func (h *Handler) Verify(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}

	var body verifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, "An image is required and coordinates must be valid.", err)
		return
	}

	resp, err := h.service.Verify(c.Request.Context(), models.VerifyRequest{
		UserID:       userID,
		RawImage:     body.Image,
		Latitude:     body.Latitude,
		Longitude:    body.Longitude,
		RadiusMeters: body.Radius,
	})
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Confirm handles POST /api/v1/verify/confirm
func (h *Handler) Confirm(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}

	var body confirmBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, "attractionId is required.", err)
		return
	}
	attractionID, err := uuid.Parse(body.AttractionID)
	if err != nil {
		h.BadRequest(c, "attractionId must be a valid id.", err)
		return
	}

	resp, err := h.service.ConfirmSuggestion(c.Request.Context(), userID, attractionID)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Status handles GET /api/v1/verify/status
func (h *Handler) Status(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), userID)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
