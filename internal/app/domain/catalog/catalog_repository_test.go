package catalog

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

var summaryColumns = []string{
	"id", "name", "city", "city_id", "country", "country_id",
	"category", "short_description", "image_url", "latitude", "longitude", "distance_meters", "is_favorite",
}

func TestRepository_NearbySearch(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())
	id, cityID, countryID := uuid.New(), uuid.New(), uuid.New()

	mockPool.ExpectQuery(regexp.QuoteMeta("FROM attractions a")).
		WithArgs(2.2945, 48.8584, 500.0, pgxmock.AnyArg(), pgxmock.AnyArg(), 8).
		WillReturnRows(pgxmock.NewRows(summaryColumns).
			AddRow(id, "Eiffel Tower", "Paris", cityID, "France", countryID,
				"landmark", "Wrought-iron lattice tower", "", 48.8584, 2.2945, 12.5, true))

	got, err := repo.NearbySearch(context.Background(), models.NearbyQuery{
		Latitude: 48.8584, Longitude: 2.2945, RadiusMeters: 500, Limit: 8,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, "Paris", got[0].City)
	assert.Equal(t, countryID, got[0].CountryID)
	assert.True(t, got[0].IsFavorite)
	require.NotNil(t, got[0].DistanceMeters)
	assert.Equal(t, 12.5, *got[0].DistanceMeters)
	assert.Nil(t, got[0].FamousFor)
	assert.Empty(t, got[0].Highlights)

	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepository_NearbySearchError(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())
	mockPool.ExpectQuery(regexp.QuoteMeta("FROM attractions a")).WillReturnError(assert.AnError)

	_, err = repo.NearbySearch(context.Background(), models.NearbyQuery{Latitude: 1, Longitude: 2, RadiusMeters: 1000, Limit: 5})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepository_BuildTextSearch(t *testing.T) {
	repo := NewRepository(nil, zap.NewNop())

	sqlStr, args, err := repo.buildTextSearch("eiffel 50%", 8)
	require.NoError(t, err)
	assert.Contains(t, sqlStr, "FROM attractions a")
	assert.Contains(t, sqlStr, "a.name ILIKE $1")
	assert.Contains(t, sqlStr, "a.category ILIKE $8")
	assert.Contains(t, sqlStr, "ORDER BY a.name ASC")
	assert.Contains(t, sqlStr, "LIMIT 8")
	require.Len(t, args, 8)
	assert.Equal(t, "%eiffel%", args[0])
	assert.Equal(t, `%50\%%`, args[4])

	_, _, err = repo.buildTextSearch("   ", 8)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRepository_TextSearch(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())
	id := uuid.New()
	famous := "Views over Lisbon"

	mockPool.ExpectQuery("SELECT (.+) FROM attractions a (.+) ILIKE").
		WithArgs("%lisbon%", "%lisbon%", "%lisbon%", "%lisbon%").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "city", "city_id", "country", "country_id",
			"category", "short_description", "famous_for", "highlights", "image_url", "latitude", "longitude",
		}).AddRow(id, "Castelo de S. Jorge", "Lisbon", uuid.New(), "Portugal", uuid.New(),
			"castle", "Moorish castle", &famous, []string{"ramparts", "peacocks"}, "", 38.7139, -9.1335))

	got, err := repo.TextSearch(context.Background(), "lisbon", 8)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Castelo de S. Jorge", got[0].Name)
	require.NotNil(t, got[0].FamousFor)
	assert.Equal(t, famous, *got[0].FamousFor)
	assert.Equal(t, []string{"ramparts", "peacocks"}, got[0].Highlights)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepository_GetByIDNotFound(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())
	id := uuid.New()
	mockPool.ExpectQuery(regexp.QuoteMeta("WHERE a.id = $1")).
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByID(context.Background(), id, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
