package visits

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/handlers"
	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

// Service is what the HTTP layer needs from the recorder.
type Service interface {
	Record(ctx context.Context, p models.NewVisitParams) (*Recorded, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Visit, error)
}

var _ Service = (*Recorder)(nil)

type markVisitedBody struct {
	AttractionID string  `json:"attractionId" binding:"required"`
	Notes        *string `json:"notes" binding:"omitempty,max=1000"`
}

type visitResponse struct {
	Visit      models.Visit             `json:"visit"`
	Attraction models.AttractionSummary `json:"attraction"`
	NewBadges  []models.AwardedBadge    `json:"newBadges"`
}

type Handler struct {
	*handlers.BaseHandler
	service Service
}

func NewHandler(service Service, log *zap.Logger) *Handler {
	return &Handler{BaseHandler: handlers.NewBaseHandler(log), service: service}
}

// MarkVisited handles POST /api/v1/visits. Manual visits are never verified.
func (h *Handler) MarkVisited(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}

	var body markVisitedBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, "attractionId is required.", err)
		return
	}
	attractionID, err := uuid.Parse(body.AttractionID)
	if err != nil {
		h.BadRequest(c, "attractionId must be a valid id.", err)
		return
	}

	recorded, err := h.service.Record(c.Request.Context(), models.NewVisitParams{
		UserID:       userID,
		AttractionID: attractionID,
		Source:       models.VisitSourceManual,
		Notes:        body.Notes,
	})
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, visitResponse{
		Visit:      recorded.Visit,
		Attraction: recorded.Attraction,
		NewBadges:  recorded.NewBadges,
	})
}

// List handles GET /api/v1/visits?limit=&offset=
func (h *Handler) List(c *gin.Context) {
	userID, ok := h.UserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	visits, err := h.service.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visits": visits})
}
