package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

// Queue names. Work is partitioned by kind so a backlog in one queue cannot
// starve another; cleanup runs on its own periodic schedule (see cleanup.go).
const (
	QueueNotifications = "notifications"
	QueueAnalytics     = "analytics"
	QueueExports       = "exports"
)

// ExecutorConfig bounds the retry/backoff policy for every unit of work.
type ExecutorConfig struct {
	MaxAttempts       int           // attempts per unit, including the first
	NotifyRetryDelay  time.Duration // fixed delay between notification attempts
	ProcessRetryDelay time.Duration // fixed delay between analytics/export attempts
	UnitTimeout       time.Duration // wall-clock bound per attempt
	CleanupInterval   time.Duration // period of the expired-survey sweep
}

func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxAttempts:       3,
		NotifyRetryDelay:  60 * time.Second,
		ProcessRetryDelay: 30 * time.Second,
		UnitTimeout:       300 * time.Second,
		CleanupInterval:   60 * time.Second,
	}
}

// Executor schedules units of work (notify, analytics, export) pulled from
// per-kind queues onto watermill router handlers. Delivery is at-least-once:
// a message is acknowledged only after its unit finishes (successfully,
// terminally, or permanently failed after the retry bound); a worker crash
// before acknowledgement causes redelivery.
type Executor struct {
	router   *message.Router
	repo     repositories.Repository
	cache    *cache.CacheService
	notifier Notifier
	config   ExecutorConfig
	logger   *slog.Logger

	// OnResult, when set, receives every unit result. Used by callers that
	// want to forward results somewhere (and by tests).
	OnResult func(queue string, result interface{})
}

// NewExecutor wires the per-queue handlers onto a watermill router reading
// from the given subscriber.
func NewExecutor(
	subscriber message.Subscriber,
	repo repositories.Repository,
	cacheService *cache.CacheService,
	notifier Notifier,
	config ExecutorConfig,
	logger *slog.Logger,
	wmLogger watermill.LoggerAdapter,
) (*Executor, error) {
	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}
	router.AddMiddleware(middleware.Recoverer, middleware.CorrelationID)

	e := &Executor{
		router:   router,
		repo:     repo,
		cache:    cacheService,
		notifier: notifier,
		config:   config,
		logger:   logger,
	}

	router.AddNoPublisherHandler("send_survey_notification", QueueNotifications, subscriber, e.handleNotification)
	router.AddNoPublisherHandler("process_survey_analytics", QueueAnalytics, subscriber, e.handleAnalytics)
	router.AddNoPublisherHandler("export_survey_results", QueueExports, subscriber, e.handleExport)

	return e, nil
}

// Run blocks processing queue messages until the context is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	return e.router.Run(ctx)
}

// Running returns a channel closed once all handlers are consuming.
func (e *Executor) Running() chan struct{} {
	return e.router.Running()
}

func (e *Executor) Close() error {
	return e.router.Close()
}

// ===== QUEUE HANDLERS =====

func (e *Executor) handleNotification(msg *message.Message) error {
	var task models.NotificationTask
	if err := json.Unmarshal(msg.Payload, &task); err != nil {
		e.logger.Error("Dropping malformed notification task", "message_id", msg.UUID, "error", err)
		return nil
	}

	return e.runUnit(msg.Context(), QueueNotifications, e.config.NotifyRetryDelay, func(ctx context.Context) error {
		result, err := e.sendSurveyNotification(ctx, task)
		if err != nil {
			return err
		}
		e.report(QueueNotifications, result)
		return nil
	})
}

func (e *Executor) handleAnalytics(msg *message.Message) error {
	var task models.AnalyticsTask
	if err := json.Unmarshal(msg.Payload, &task); err != nil {
		e.logger.Error("Dropping malformed analytics task", "message_id", msg.UUID, "error", err)
		return nil
	}

	return e.runUnit(msg.Context(), QueueAnalytics, e.config.ProcessRetryDelay, func(ctx context.Context) error {
		result, err := e.processSurveyAnalytics(ctx, task)
		if err != nil {
			return err
		}
		e.report(QueueAnalytics, result)
		return nil
	})
}

func (e *Executor) handleExport(msg *message.Message) error {
	var task models.ExportTask
	if err := json.Unmarshal(msg.Payload, &task); err != nil {
		e.logger.Error("Dropping malformed export task", "message_id", msg.UUID, "error", err)
		return nil
	}

	return e.runUnit(msg.Context(), QueueExports, e.config.ProcessRetryDelay, func(ctx context.Context) error {
		result, err := e.exportSurveyResults(ctx, task)
		if err != nil {
			return err
		}
		e.report(QueueExports, result)
		return nil
	})
}

// ===== RETRY SUPERVISOR =====

// runUnit executes one unit of work under the retry policy: a bounded number
// of attempts with a fixed delay in between. Not-found outcomes are terminal
// and reported without retry; once the bound is exhausted the unit is marked
// permanently failed and acknowledged so it is not redelivered. Only context
// cancellation propagates as an error (the message is redelivered after
// restart).
func (e *Executor) runUnit(ctx context.Context, queue string, delay time.Duration, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		unitCtx, cancel := context.WithTimeout(ctx, e.config.UnitTimeout)
		err := fn(unitCtx)
		cancel()

		if err == nil {
			return nil
		}

		if isTerminal(err) {
			e.logger.Warn("Task failed terminally",
				"queue", queue,
				"error", err)
			e.report(queue, &models.NotificationResult{
				Status:  models.TaskStatusError,
				Message: terminalMessage(err),
			})
			return nil
		}

		lastErr = err
		e.logger.Warn("Task attempt failed",
			"queue", queue,
			"attempt", attempt,
			"max_attempts", e.config.MaxAttempts,
			"error", err)

		if attempt == e.config.MaxAttempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e.logger.Error("Task permanently failed",
		"queue", queue,
		"attempts", e.config.MaxAttempts,
		"error", lastErr)
	e.report(queue, &models.NotificationResult{
		Status:  models.TaskStatusError,
		Message: "permanently failed: " + lastErr.Error(),
	})

	return nil
}

func (e *Executor) report(queue string, result interface{}) {
	if e.OnResult != nil {
		e.OnResult(queue, result)
	}
}

// isTerminal classifies errors that must not be retried.
func isTerminal(err error) bool {
	return errors.Is(err, repositories.ErrSurveyNotFound) ||
		errors.Is(err, repositories.ErrQuestionNotFound) ||
		errors.Is(err, errUnknownNotificationType)
}

func terminalMessage(err error) string {
	if errors.Is(err, repositories.ErrSurveyNotFound) {
		return "Survey not found"
	}
	return err.Error()
}
