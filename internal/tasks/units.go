package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP-F-2025/survey-service/internal/analytics"
	"github.com/SAP-F-2025/survey-service/internal/export"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

var errUnknownNotificationType = errors.New("unknown notification type")

// Each unit owns a single storage session for its own duration: writes commit
// on success and roll back on any failure path, so a half-finished unit never
// leaves partial state visible.

// sendSurveyNotification derives the message content for a survey event and
// hands it to the delivery channel. No persisted state change.
func (e *Executor) sendSurveyNotification(ctx context.Context, task models.NotificationTask) (*models.NotificationResult, error) {
	var result *models.NotificationResult

	err := e.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		survey, err := tx.Survey().GetByID(ctx, task.SurveyID)
		if err != nil {
			return err
		}

		var msg string
		recipient := ""

		switch task.NotificationType {
		case models.NotificationNewResponse:
			msg = fmt.Sprintf("New response received for survey: %s", survey.Title)
			if creator, err := tx.User().GetByID(ctx, survey.CreatorID); err == nil {
				recipient = creator.Email
			}

		case models.NotificationSurveyPublished:
			msg = fmt.Sprintf("Survey '%s' is now live!", survey.Title)

		case models.NotificationSurveyClosed:
			count, err := tx.Response().CountBySurvey(ctx, survey.ID)
			if err != nil {
				return err
			}
			msg = fmt.Sprintf("Survey '%s' has been closed. Total responses: %d", survey.Title, count)

		default:
			return fmt.Errorf("%w: %q", errUnknownNotificationType, task.NotificationType)
		}

		if task.UserID != nil {
			if user, err := tx.User().GetByID(ctx, *task.UserID); err == nil {
				recipient = user.Email
			}
		}

		if err := e.notifier.Send(ctx, recipient, msg); err != nil {
			return fmt.Errorf("failed to deliver notification: %w", err)
		}

		result = &models.NotificationResult{
			Status:  models.TaskStatusSuccess,
			Message: msg,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// processSurveyAnalytics runs the aggregator against the unit's storage
// session, then caches the result under the analytics key with the default
// TTL. The cache write is best-effort and never fails the unit. Two
// back-to-back recomputes for the same survey may race on the cache entry;
// last write wins, and since the aggregation is a pure function of current
// store state a stale overwrite corrects itself on the next compute.
func (e *Executor) processSurveyAnalytics(ctx context.Context, task models.AnalyticsTask) (*models.SurveyAnalytics, error) {
	var result *models.SurveyAnalytics

	err := e.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		aggregator := analytics.NewAggregator(tx, e.logger)
		computed, err := aggregator.Aggregate(ctx, task.SurveyID)
		if err != nil {
			return err
		}
		result = computed
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.cache.SetSurveyAnalytics(ctx, task.SurveyID, result)
	e.logger.Info("Analytics processed and cached", "survey_id", task.SurveyID)

	return result, nil
}

// exportSurveyResults renders the survey's responses in the requested format.
// No caching.
func (e *Executor) exportSurveyResults(ctx context.Context, task models.ExportTask) (*models.ExportResult, error) {
	var result *models.ExportResult

	err := e.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		formatter := export.NewFormatter(tx, e.logger)
		exported, err := formatter.Export(ctx, task.SurveyID, task.Format)
		if err != nil {
			return err
		}
		result = exported
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
