package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

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

func (m *MockRepository) NearbySearch(ctx context.Context, q models.NearbyQuery) ([]models.AttractionSummary, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AttractionSummary), args.Error(1)
}

func (m *MockRepository) TextSearch(ctx context.Context, query string, limit int) ([]models.AttractionSummary, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AttractionSummary), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*models.AttractionSummary, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttractionSummary), args.Error(1)
}

func TestService_NearbySearchCaches(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, zap.NewNop())
	q := models.NearbyQuery{Latitude: 48.85841, Longitude: 2.29451, RadiusMeters: 500, Limit: 8}
	want := []models.AttractionSummary{{ID: uuid.New(), Name: "Eiffel Tower"}}

	repo.On("NearbySearch", mock.Anything, q).Return(want, nil).Once()

	got, err := svc.NearbySearch(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	jitter := q
	jitter.Latitude = 48.858412
	got, err = svc.NearbySearch(context.Background(), jitter)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "NearbySearch", 1)
}

func TestService_ErrorMapping(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name      string
		setupMock func(r *MockRepository)
		call      func(s *ServiceImpl) error
		wantErr   error
	}{
		{
			name: "nearby failure is catalog unavailable",
			setupMock: func(r *MockRepository) {
				r.On("NearbySearch", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
			},
			call: func(s *ServiceImpl) error {
				_, err := s.NearbySearch(context.Background(), models.NearbyQuery{Limit: 1})
				return err
			},
			wantErr: models.ErrCatalogUnavailable,
		},
		{
			name: "text failure is catalog unavailable",
			setupMock: func(r *MockRepository) {
				r.On("TextSearch", mock.Anything, "paris", 8).Return(nil, errors.New("timeout"))
			},
			call: func(s *ServiceImpl) error {
				_, err := s.TextSearch(context.Background(), "paris", 8)
				return err
			},
			wantErr: models.ErrCatalogUnavailable,
		},
		{
			name: "missing attraction is not found",
			setupMock: func(r *MockRepository) {
				r.On("GetByID", mock.Anything, id, (*uuid.UUID)(nil)).
					Return(nil, fmt.Errorf("attraction %s: %w", id, models.ErrNotFound))
			},
			call: func(s *ServiceImpl) error {
				_, err := s.GetByID(context.Background(), id, nil)
				return err
			},
			wantErr: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMock(repo)
			err := tt.call(NewService(repo, zap.NewNop()))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_TextSearchEmptyQuery(t *testing.T) {
	repo := new(MockRepository)
	repo.On("TextSearch", mock.Anything, "", 8).Return(nil, fmt.Errorf("%w: empty search query", models.ErrValidation))

	got, err := NewService(repo, zap.NewNop()).TextSearch(context.Background(), "", 8)
	require.NoError(t, err)
	assert.Empty(t, got)
}
