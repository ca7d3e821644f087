package visits

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, v models.Visit) (*models.Visit, error) {
	args := m.Called(ctx, v)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Visit), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Visit, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Visit), args.Error(1)
}

func (m *MockRepository) SetPhotoURL(ctx context.Context, visitID uuid.UUID, photoURL string) error {
	return m.Called(ctx, visitID, photoURL).Error(0)
}

type MockAttractionLookup struct {
	mock.Mock
}

func (m *MockAttractionLookup) GetByID(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*models.AttractionSummary, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttractionSummary), args.Error(1)
}

type MockBadgeAwarder struct {
	mock.Mock
}

func (m *MockBadgeAwarder) CheckAndAward(ctx context.Context, userID uuid.UUID, loc models.LocationContext) ([]models.AwardedBadge, error) {
	args := m.Called(ctx, userID, loc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AwardedBadge), args.Error(1)
}

type MockPhotoStore struct {
	mock.Mock
}

func (m *MockPhotoStore) Upload(ctx context.Context, userID, attractionID uuid.UUID, data []byte, mediaType string) (string, error) {
	args := m.Called(ctx, userID, attractionID, data, mediaType)
	return args.String(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishVisitRecorded(ctx context.Context, event models.VisitRecordedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockPublisher) Close() {}

type recorderMocks struct {
	repo        *MockRepository
	attractions *MockAttractionLookup
	badges      *MockBadgeAwarder
	photos      *MockPhotoStore
	events      *MockPublisher
}

func newRecorder() (*Recorder, recorderMocks) {
	m := recorderMocks{
		repo:        new(MockRepository),
		attractions: new(MockAttractionLookup),
		badges:      new(MockBadgeAwarder),
		photos:      new(MockPhotoStore),
		events:      new(MockPublisher),
	}
	r := NewRecorder(m.repo, m.attractions, m.badges, zap.NewNop()).
		WithPhotoStore(m.photos).
		WithPublisher(m.events)
	return r, m
}

func TestRecorder_Record(t *testing.T) {
	userID, attractionID, cityID, countryID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	attraction := &models.AttractionSummary{ID: attractionID, Name: "Eiffel Tower", CityID: cityID, CountryID: countryID, Category: "landmark"}
	firstVisit := models.AwardedBadge{Badge: models.Badge{Code: "first_visit"}, IsNew: true}
	oldBadge := models.AwardedBadge{Badge: models.Badge{Code: "verified_5"}, IsNew: false}
	photoURL := "http://photos/visits/a.jpg"

	created := func(v models.Visit) *models.Visit {
		v.ID = uuid.New()
		v.VisitDate = time.Now()
		v.CreatedAt = v.VisitDate
		return &v
	}

	tests := []struct {
		name      string
		params    models.NewVisitParams
		setupMock func(m recorderMocks)
		wantErr   error
		validate  func(t *testing.T, got *Recorded)
	}{
		{
			name:   "auto confirmed visit awards new badges only",
			params: models.NewVisitParams{UserID: userID, AttractionID: attractionID, Source: models.VisitSourceAIAuto},
			setupMock: func(m recorderMocks) {
				m.attractions.On("GetByID", mock.Anything, attractionID, &userID).Return(attraction, nil)
				m.repo.On("Create", mock.Anything, mock.MatchedBy(func(v models.Visit) bool {
					return v.IsVerified && v.Source == models.VisitSourceAIAuto && v.PhotoURL == nil
				})).Return(created(models.Visit{UserID: userID, AttractionID: attractionID, IsVerified: true, Source: models.VisitSourceAIAuto}), nil)
				m.badges.On("CheckAndAward", mock.Anything, userID, models.LocationContext{
					AttractionID: attractionID, CityID: cityID, CountryID: countryID, Category: "landmark",
				}).Return([]models.AwardedBadge{firstVisit, oldBadge}, nil)
				m.events.On("PublishVisitRecorded", mock.Anything, mock.MatchedBy(func(e models.VisitRecordedEvent) bool {
					return e.UserID == userID && e.IsVerified
				})).Return(nil)
			},
			validate: func(t *testing.T, got *Recorded) {
				assert.True(t, got.Visit.IsVerified)
				assert.Equal(t, "Eiffel Tower", got.Attraction.Name)
				assert.Equal(t, []models.AwardedBadge{firstVisit}, got.NewBadges)
			},
		},
		{
			name:   "manual visit with photo is unverified",
			params: models.NewVisitParams{UserID: userID, AttractionID: attractionID, Source: models.VisitSourceManual, Photo: []byte("img"), MediaType: "image/png"},
			setupMock: func(m recorderMocks) {
				m.attractions.On("GetByID", mock.Anything, attractionID, &userID).Return(attraction, nil)
				m.repo.On("Create", mock.Anything, mock.MatchedBy(func(v models.Visit) bool {
					return !v.IsVerified && v.PhotoURL == nil
				})).Return(created(models.Visit{UserID: userID, AttractionID: attractionID, Source: models.VisitSourceManual}), nil)
				m.photos.On("Upload", mock.Anything, userID, attractionID, []byte("img"), "image/png").Return(photoURL, nil)
				m.repo.On("SetPhotoURL", mock.Anything, mock.AnythingOfType("uuid.UUID"), photoURL).Return(nil)
				m.badges.On("CheckAndAward", mock.Anything, userID, mock.Anything).Return([]models.AwardedBadge{}, nil)
				m.events.On("PublishVisitRecorded", mock.Anything, mock.Anything).Return(nil)
			},
			validate: func(t *testing.T, got *Recorded) {
				assert.False(t, got.Visit.IsVerified)
				require.NotNil(t, got.Visit.PhotoURL)
				assert.Equal(t, photoURL, *got.Visit.PhotoURL)
				assert.Empty(t, got.NewBadges)
			},
		},
		{
			name:   "side effect failures do not fail the visit",
			params: models.NewVisitParams{UserID: userID, AttractionID: attractionID, Source: models.VisitSourceUserConfirmed, Photo: []byte("img")},
			setupMock: func(m recorderMocks) {
				m.attractions.On("GetByID", mock.Anything, attractionID, &userID).Return(attraction, nil)
				m.repo.On("Create", mock.Anything, mock.MatchedBy(func(v models.Visit) bool {
					return v.PhotoURL == nil && v.IsVerified
				})).Return(created(models.Visit{UserID: userID, AttractionID: attractionID, IsVerified: true, Source: models.VisitSourceUserConfirmed}), nil)
				m.photos.On("Upload", mock.Anything, userID, attractionID, []byte("img"), "").Return("", assert.AnError)
				m.badges.On("CheckAndAward", mock.Anything, userID, mock.Anything).Return(nil, assert.AnError)
				m.events.On("PublishVisitRecorded", mock.Anything, mock.Anything).Return(assert.AnError)
			},
			validate: func(t *testing.T, got *Recorded) {
				assert.Equal(t, models.VisitSourceUserConfirmed, got.Visit.Source)
				assert.Nil(t, got.Visit.PhotoURL)
				assert.Empty(t, got.NewBadges)
			},
		},
		{
			name:   "photo attach failure keeps the visit",
			params: models.NewVisitParams{UserID: userID, AttractionID: attractionID, Source: models.VisitSourceAIAuto, Photo: []byte("img"), MediaType: "image/jpeg"},
			setupMock: func(m recorderMocks) {
				m.attractions.On("GetByID", mock.Anything, attractionID, &userID).Return(attraction, nil)
				m.repo.On("Create", mock.Anything, mock.Anything).
					Return(created(models.Visit{UserID: userID, AttractionID: attractionID, IsVerified: true, Source: models.VisitSourceAIAuto}), nil)
				m.photos.On("Upload", mock.Anything, userID, attractionID, []byte("img"), "image/jpeg").Return(photoURL, nil)
				m.repo.On("SetPhotoURL", mock.Anything, mock.Anything, photoURL).Return(assert.AnError)
				m.badges.On("CheckAndAward", mock.Anything, userID, mock.Anything).Return([]models.AwardedBadge{}, nil)
				m.events.On("PublishVisitRecorded", mock.Anything, mock.Anything).Return(nil)
			},
			validate: func(t *testing.T, got *Recorded) {
				assert.True(t, got.Visit.IsVerified)
				assert.Nil(t, got.Visit.PhotoURL)
			},
		},
		{
			name: "resolved attraction skips the catalog",
			params: models.NewVisitParams{
				UserID: userID, AttractionID: attractionID, Source: models.VisitSourceAIAuto, Attraction: attraction,
			},
			setupMock: func(m recorderMocks) {
				m.repo.On("Create", mock.Anything, mock.Anything).
					Return(created(models.Visit{UserID: userID, AttractionID: attractionID, IsVerified: true, Source: models.VisitSourceAIAuto}), nil)
				m.badges.On("CheckAndAward", mock.Anything, userID, mock.Anything).Return([]models.AwardedBadge{}, nil)
				m.events.On("PublishVisitRecorded", mock.Anything, mock.Anything).Return(nil)
			},
			validate: func(t *testing.T, got *Recorded) {
				assert.Equal(t, "Eiffel Tower", got.Attraction.Name)
			},
		},
		{
			name:   "unknown attraction",
			params: models.NewVisitParams{UserID: userID, AttractionID: attractionID, Source: models.VisitSourceManual},
			setupMock: func(m recorderMocks) {
				m.attractions.On("GetByID", mock.Anything, attractionID, &userID).
					Return(nil, models.NewDomainError(models.ErrNotFound, "Attraction not found.", nil))
			},
			wantErr: models.ErrNotFound,
		},
		{
			name:   "already visited",
			params: models.NewVisitParams{UserID: userID, AttractionID: attractionID, Source: models.VisitSourceAIAuto},
			setupMock: func(m recorderMocks) {
				m.attractions.On("GetByID", mock.Anything, attractionID, &userID).Return(attraction, nil)
				m.repo.On("Create", mock.Anything, mock.Anything).Return(nil, models.ErrConflict)
			},
			wantErr: models.ErrConflict,
		},
		{
			name: "already visited with photo uploads nothing",
			params: models.NewVisitParams{
				UserID: userID, AttractionID: attractionID, Source: models.VisitSourceAIAuto, Photo: []byte("img"), MediaType: "image/jpeg",
			},
			setupMock: func(m recorderMocks) {
				m.attractions.On("GetByID", mock.Anything, attractionID, &userID).Return(attraction, nil)
				m.repo.On("Create", mock.Anything, mock.Anything).Return(nil, models.ErrConflict)
			},
			wantErr: models.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, m := newRecorder()
			tt.setupMock(m)

			got, err := r.Record(context.Background(), tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				m.badges.AssertNotCalled(t, "CheckAndAward", mock.Anything, mock.Anything, mock.Anything)
				m.photos.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				m.repo.AssertNotCalled(t, "SetPhotoURL", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			tt.validate(t, got)
			m.attractions.AssertExpectations(t)
			m.repo.AssertExpectations(t)
			m.photos.AssertExpectations(t)
			m.badges.AssertExpectations(t)
			m.events.AssertExpectations(t)
		})
	}
}

func TestRecorder_RecordAlreadyVisitedMessage(t *testing.T) {
	r, m := newRecorder()
	userID, attractionID := uuid.New(), uuid.New()
	m.attractions.On("GetByID", mock.Anything, attractionID, &userID).Return(&models.AttractionSummary{ID: attractionID}, nil)
	m.repo.On("Create", mock.Anything, mock.Anything).Return(nil, models.ErrConflict)

	_, err := r.Record(context.Background(), models.NewVisitParams{UserID: userID, AttractionID: attractionID, Source: models.VisitSourceManual})
	assert.Equal(t, alreadyVisitedMessage, models.UserMessage(err, ""))
}

func TestRecorder_List(t *testing.T) {
	r, m := newRecorder()
	userID := uuid.New()
	m.repo.On("ListByUser", mock.Anything, userID, 20, 0).Return([]models.Visit{{UserID: userID}}, nil)

	got, err := r.List(context.Background(), userID, 0, -5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	m.repo.AssertExpectations(t)
}
