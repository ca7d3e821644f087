package subscription

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

const tierQuery = "SELECT subscription_tier, subscription_expires_at FROM users WHERE id = $1"

func TestRepository_GetTier(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name      string
		setupMock func(m pgxmock.PgxPoolIface, userID uuid.UUID)
		want      models.Tier
		wantErr   bool
	}{
		{
			name: "premium active",
			setupMock: func(m pgxmock.PgxPoolIface, userID uuid.UUID) {
				m.ExpectQuery(regexp.QuoteMeta(tierQuery)).WithArgs(userID).
					WillReturnRows(pgxmock.NewRows([]string{"subscription_tier", "subscription_expires_at"}).AddRow("premium", &future))
			},
			want: models.TierPremium,
		},
		{
			name: "premium without expiry",
			setupMock: func(m pgxmock.PgxPoolIface, userID uuid.UUID) {
				m.ExpectQuery(regexp.QuoteMeta(tierQuery)).WithArgs(userID).
					WillReturnRows(pgxmock.NewRows([]string{"subscription_tier", "subscription_expires_at"}).AddRow("premium", nil))
			},
			want: models.TierPremium,
		},
		{
			name: "premium expired",
			setupMock: func(m pgxmock.PgxPoolIface, userID uuid.UUID) {
				m.ExpectQuery(regexp.QuoteMeta(tierQuery)).WithArgs(userID).
					WillReturnRows(pgxmock.NewRows([]string{"subscription_tier", "subscription_expires_at"}).AddRow("premium", &past))
			},
			want: models.TierFree,
		},
		{
			name: "unknown tier value",
			setupMock: func(m pgxmock.PgxPoolIface, userID uuid.UUID) {
				m.ExpectQuery(regexp.QuoteMeta(tierQuery)).WithArgs(userID).
					WillReturnRows(pgxmock.NewRows([]string{"subscription_tier", "subscription_expires_at"}).AddRow("gold", nil))
			},
			want: models.TierFree,
		},
		{
			name: "missing user fails open",
			setupMock: func(m pgxmock.PgxPoolIface, userID uuid.UUID) {
				m.ExpectQuery(regexp.QuoteMeta(tierQuery)).WithArgs(userID).WillReturnError(pgx.ErrNoRows)
			},
			want: models.TierFree,
		},
		{
			name: "database error",
			setupMock: func(m pgxmock.PgxPoolIface, userID uuid.UUID) {
				m.ExpectQuery(regexp.QuoteMeta(tierQuery)).WithArgs(userID).WillReturnError(assert.AnError)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPool, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mockPool.Close()

			userID := uuid.New()
			tt.setupMock(mockPool, userID)

			repo := NewRepository(mockPool, zap.NewNop())
			repo.now = func() time.Time { return now }

			got, err := repo.GetTier(context.Background(), userID)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mockPool.ExpectationsWereMet())
		})
	}
}
