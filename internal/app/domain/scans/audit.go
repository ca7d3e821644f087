package scans

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/loci-visits/internal/app/models"
)

// AuditLog journals every scan that reached the oracle step. Writes are
// best-effort: failures are logged and never returned.
type AuditLog struct {
	logger        *zap.Logger
	repo          Repository
	location      *time.Location
	previewLength int
	timeout       time.Duration
	now           func() time.Time
}

func NewAuditLog(repo Repository, location *time.Location, previewLength int, timeout time.Duration, logger *zap.Logger) *AuditLog {
	if location == nil {
		location = time.UTC
	}
	return &AuditLog{
		logger:        logger,
		repo:          repo,
		location:      location,
		previewLength: previewLength,
		timeout:       timeout,
		now:           time.Now,
	}
}

// Record writes the scan synchronously. The context's cancellation is
// detached so a client hang-up does not drop the journal entry.
func (a *AuditLog) Record(ctx context.Context, userID uuid.UUID, result models.VerificationResult, preview string) {
	ctx = context.WithoutCancel(ctx)
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	now := a.now().In(a.location)
	rec := models.DailyScanRecord{
		ID:       uuid.New(),
		UserID:   userID,
		ScanDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.location),
		Result:   result,
	}
	if p := Truncate(preview, a.previewLength); p != "" {
		rec.ImagePreview = &p
	}

	if err := a.repo.Record(ctx, rec); err != nil {
		a.logger.Warn("Scan audit write failed, continuing",
			zap.String("user_id", userID.String()),
			zap.Bool("matched", result.Matched),
			zap.Error(err))
	}
}

// Truncate cuts s to at most n characters without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
