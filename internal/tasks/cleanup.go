package tasks

import (
	"context"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

// CleanupExpiredSurveys transitions every active survey whose expiry
// timestamp has passed to closed. Idempotent: a second run with no new
// expirations closes nothing. All status changes commit in one session.
func (e *Executor) CleanupExpiredSurveys(ctx context.Context) (*models.CleanupResult, error) {
	var closed []uint

	err := e.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		expired, err := tx.Survey().ListExpired(ctx, time.Now().UTC())
		if err != nil {
			return err
		}

		for _, survey := range expired {
			if err := tx.Survey().UpdateStatus(ctx, survey.ID, models.StatusClosed); err != nil {
				return err
			}
			e.logger.Info("Closed expired survey", "survey_id", survey.ID)
		}

		closed = make([]uint, 0, len(expired))
		for _, survey := range expired {
			closed = append(closed, survey.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Status changed; drop the surveys' cached entries per the invalidation
	// policy. Best effort.
	for _, id := range closed {
		e.cache.InvalidateSurvey(ctx, id)
	}

	return &models.CleanupResult{
		Status:      models.TaskStatusSuccess,
		ClosedCount: len(closed),
	}, nil
}

// RunCleanupLoop sweeps expired surveys on a fixed interval until the context
// is cancelled. Cleanup is periodic, never user-triggered, and does not share
// the per-kind queues.
func (e *Executor) RunCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(e.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := e.CleanupExpiredSurveys(ctx)
			if err != nil {
				e.logger.Error("Cleanup sweep failed", "error", err)
				continue
			}
			if result.ClosedCount > 0 {
				e.logger.Info("Cleanup sweep finished", "closed_count", result.ClosedCount)
			}
			e.report("cleanup", result)
		}
	}
}
