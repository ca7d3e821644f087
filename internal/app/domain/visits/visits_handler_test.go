package visits

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Record(ctx context.Context, p models.NewVisitParams) (*Recorded, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Recorded), args.Error(1)
}

func (m *MockService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Visit, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Visit), args.Error(1)
}

func newTestRouter(svc Service, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	h := NewHandler(svc, zap.NewNop())
	r.POST("/api/v1/visits", h.MarkVisited)
	r.GET("/api/v1/visits", h.List)
	return r
}

func TestHandler_MarkVisited(t *testing.T) {
	userID, attractionID := uuid.New(), uuid.New()

	tests := []struct {
		name       string
		body       string
		setupMock  func(m *MockService)
		wantStatus int
	}{
		{
			name: "manual visit",
			body: `{"attractionId":"` + attractionID.String() + `","notes":"great view"}`,
			setupMock: func(m *MockService) {
				m.On("Record", mock.Anything, mock.MatchedBy(func(p models.NewVisitParams) bool {
					return p.UserID == userID && p.AttractionID == attractionID &&
						p.Source == models.VisitSourceManual && p.Notes != nil && *p.Notes == "great view"
				})).Return(&Recorded{
					Visit:      models.Visit{ID: uuid.New(), Source: models.VisitSourceManual},
					Attraction: models.AttractionSummary{ID: attractionID, Name: "Belem Tower"},
					NewBadges:  []models.AwardedBadge{},
				}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "already visited",
			body: `{"attractionId":"` + attractionID.String() + `"}`,
			setupMock: func(m *MockService) {
				m.On("Record", mock.Anything, mock.Anything).
					Return(nil, models.NewDomainError(models.ErrConflict, alreadyVisitedMessage, nil))
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "unknown attraction",
			body: `{"attractionId":"` + attractionID.String() + `"}`,
			setupMock: func(m *MockService) {
				m.On("Record", mock.Anything, mock.Anything).
					Return(nil, models.NewDomainError(models.ErrNotFound, "Attraction not found.", nil))
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid id",
			body:       `{"attractionId":"nope"}`,
			setupMock:  func(m *MockService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/visits", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			newTestRouter(svc, userID).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_List(t *testing.T) {
	userID := uuid.New()
	svc := new(MockService)
	svc.On("List", mock.Anything, userID, 10, 5).Return([]models.Visit{{ID: uuid.New(), UserID: userID}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/visits?limit=10&offset=5", nil)
	w := httptest.NewRecorder()
	newTestRouter(svc, userID).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Visits []models.Visit `json:"visits"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Visits, 1)
	svc.AssertExpectations(t)
}
