package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/survey-service/internal/analytics"
	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/tasks"
	"github.com/SAP-F-2025/survey-service/internal/validator"
)

// Service-level errors
var (
	ErrEmptyUpdate       = errors.New("update contains no fields")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidFormat     = errors.New("unsupported export format")
)

type surveyService struct {
	repo      repositories.Repository
	cache     *cache.CacheService
	enqueuer  *tasks.Enqueuer
	logger    *slog.Logger
	validator *validator.Validator
}

func NewSurveyService(repo repositories.Repository, cacheService *cache.CacheService, enqueuer *tasks.Enqueuer, logger *slog.Logger, validator *validator.Validator) SurveyService {
	return &surveyService{
		repo:      repo,
		cache:     cacheService,
		enqueuer:  enqueuer,
		logger:    logger,
		validator: validator,
	}
}

// ===== CRUD =====

func (s *surveyService) Create(ctx context.Context, req *models.CreateSurveyRequest, creatorID string) (*models.Survey, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	survey := &models.Survey{
		Title:          req.Title,
		Description:    req.Description,
		Status:         models.StatusDraft,
		CreatorID:      creatorID,
		AllowAnonymous: req.AllowAnonymous,
		ExpiresAt:      req.ExpiresAt,
		MaxResponses:   req.MaxResponses,
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Survey().Create(ctx, survey); err != nil {
			return fmt.Errorf("failed to create survey: %w", err)
		}

		if len(req.Questions) == 0 {
			return nil
		}

		questions := make([]*models.Question, 0, len(req.Questions))
		for i, qr := range req.Questions {
			order := qr.OrderNumber
			if order == 0 {
				order = i + 1
			}
			q := &models.Question{
				SurveyID:    survey.ID,
				Title:       qr.Title,
				Description: qr.Description,
				Type:        qr.Type,
				IsRequired:  qr.IsRequired,
				OrderNumber: order,
				Settings:    []byte(qr.Settings),
			}
			// Reject malformed settings before they reach the store.
			if err := q.DecodeSettings(); err != nil {
				return err
			}
			questions = append(questions, q)
		}

		return tx.Question().CreateBatch(ctx, questions)
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidatePattern(ctx, "survey_list:*")
	s.logger.InfoContext(ctx, "Survey created", "survey_id", survey.ID, "creator_id", creatorID)

	return survey, nil
}

func (s *surveyService) GetByID(ctx context.Context, id uint) (*models.Survey, error) {
	return s.repo.Survey().GetByID(ctx, id)
}

func (s *surveyService) GetWithQuestions(ctx context.Context, id uint) (*models.Survey, error) {
	return s.repo.Survey().GetWithQuestions(ctx, id)
}

func (s *surveyService) Update(ctx context.Context, id uint, update *models.SurveyUpdate) (*models.Survey, error) {
	if update.IsEmpty() {
		return nil, ErrEmptyUpdate
	}
	if err := s.validator.Validate(update); err != nil {
		return nil, err
	}

	var survey *models.Survey
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		loaded, err := tx.Survey().GetByID(ctx, id)
		if err != nil {
			return err
		}

		update.Apply(loaded)
		if err := tx.Survey().Update(ctx, loaded); err != nil {
			return fmt.Errorf("failed to update survey: %w", err)
		}

		survey = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSurvey(ctx, id)
	s.logger.InfoContext(ctx, "Survey updated", "survey_id", id)

	return survey, nil
}

func (s *surveyService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Survey().Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateSurvey(ctx, id)
	s.logger.InfoContext(ctx, "Survey deleted", "survey_id", id)

	return nil
}

// ===== LIST =====

func (s *surveyService) List(ctx context.Context, filters repositories.SurveyFilters) (*models.SurveyListResponse, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	fingerprint := filters.Fingerprint()

	var cached models.SurveyListResponse
	if s.cache.GetSurveyList(ctx, fingerprint, &cached) {
		return &cached, nil
	}

	surveys, total, err := s.repo.Survey().List(ctx, filters)
	if err != nil {
		return nil, err
	}

	result := &models.SurveyListResponse{
		Surveys: surveys,
		Total:   total,
		Limit:   filters.Limit,
		Offset:  filters.Offset,
	}
	s.cache.SetSurveyList(ctx, fingerprint, result)

	return result, nil
}

// ===== STATUS MANAGEMENT =====

// Allowed transitions: draft -> active, active -> closed. Closed is terminal.
func validTransition(from, to models.SurveyStatus) bool {
	switch from {
	case models.StatusDraft:
		return to == models.StatusActive
	case models.StatusActive:
		return to == models.StatusClosed
	default:
		return false
	}
}

func (s *surveyService) UpdateStatus(ctx context.Context, id uint, status models.SurveyStatus) error {
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		survey, err := tx.Survey().GetByID(ctx, id)
		if err != nil {
			return err
		}

		if !validTransition(survey.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, survey.Status, status)
		}

		return tx.Survey().UpdateStatus(ctx, id, status)
	})
	if err != nil {
		return err
	}

	s.invalidateSurvey(ctx, id)

	// Notification delivery is asynchronous; a failed enqueue is logged but
	// never rolls back the committed status change.
	var notificationType models.NotificationType
	switch status {
	case models.StatusActive:
		notificationType = models.NotificationSurveyPublished
	case models.StatusClosed:
		notificationType = models.NotificationSurveyClosed
	default:
		return nil
	}

	task := models.NotificationTask{SurveyID: id, NotificationType: notificationType}
	if err := s.enqueuer.EnqueueNotification(ctx, task); err != nil {
		s.logger.ErrorContext(ctx, "Failed to enqueue status notification",
			"survey_id", id, "status", status, "error", err)
	}

	s.logger.InfoContext(ctx, "Survey status updated", "survey_id", id, "status", status)
	return nil
}

func (s *surveyService) Publish(ctx context.Context, id uint) error {
	return s.UpdateStatus(ctx, id, models.StatusActive)
}

func (s *surveyService) CloseSurvey(ctx context.Context, id uint) error {
	return s.UpdateStatus(ctx, id, models.StatusClosed)
}

// ===== ANALYTICS AND EXPORT =====

// GetAnalytics serves the cached aggregation when present, otherwise computes
// it synchronously and caches the result. Concurrent recomputes for the same
// survey may race on the cache entry; last write wins, and the entry
// self-corrects on the next recompute since aggregation is a pure function of
// stored answers.
func (s *surveyService) GetAnalytics(ctx context.Context, id uint) (*models.SurveyAnalytics, error) {
	if cached, ok := s.cache.GetSurveyAnalytics(ctx, id); ok {
		return cached, nil
	}

	var result *models.SurveyAnalytics
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		computed, err := analytics.NewAggregator(tx, s.logger).Aggregate(ctx, id)
		if err != nil {
			return err
		}
		result = computed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.SetSurveyAnalytics(ctx, id, result)
	return result, nil
}

func (s *surveyService) RequestExport(ctx context.Context, id uint, format models.ExportFormat) error {
	switch format {
	case models.ExportJSON, models.ExportCSV, models.ExportXLSX:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	// Existence check up front so callers get a 404 instead of a silently
	// dropped task.
	if _, err := s.repo.Survey().GetByID(ctx, id); err != nil {
		return err
	}

	return s.enqueuer.EnqueueExport(ctx, id, format)
}

// invalidateSurvey drops every cached entry scoped to the survey plus all
// cached list pages, which may reference it.
func (s *surveyService) invalidateSurvey(ctx context.Context, id uint) {
	s.cache.InvalidateSurvey(ctx, id)
	s.cache.InvalidatePattern(ctx, "survey_list:*")
}
