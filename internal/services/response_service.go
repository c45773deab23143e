package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/tasks"
	"github.com/SAP-F-2025/survey-service/internal/validator"
)

var (
	ErrSurveyNotAcceptingResponses = errors.New("survey is not accepting responses")
	ErrAnonymousNotAllowed         = errors.New("survey does not allow anonymous responses")
	ErrInvalidAnswer               = errors.New("invalid answer")
)

type responseService struct {
	repo      repositories.Repository
	cache     *cache.CacheService
	enqueuer  *tasks.Enqueuer
	logger    *slog.Logger
	validator *validator.Validator
}

func NewResponseService(repo repositories.Repository, cacheService *cache.CacheService, enqueuer *tasks.Enqueuer, logger *slog.Logger, validator *validator.Validator) ResponseService {
	return &responseService{
		repo:      repo,
		cache:     cacheService,
		enqueuer:  enqueuer,
		logger:    logger,
		validator: validator,
	}
}

// Submit validates the submission against the survey's questions and guards,
// then persists the response and its answers in one storage session. The
// submission guards (active status, expiry, max responses) and the insert
// share that session so the count check and the write see the same state.
func (s *responseService) Submit(ctx context.Context, surveyID uint, req *models.SubmitResponseRequest) (*models.Response, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	response := &models.Response{
		SurveyID:     surveyID,
		RespondentID: req.RespondentID,
		IsAnonymous:  req.IsAnonymous,
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		survey, err := tx.Survey().GetWithQuestions(ctx, surveyID)
		if err != nil {
			return err
		}

		count, err := tx.Response().CountBySurvey(ctx, surveyID)
		if err != nil {
			return err
		}
		if !survey.CanAcceptResponse(time.Now().UTC(), int(count)) {
			return ErrSurveyNotAcceptingResponses
		}
		if req.IsAnonymous && !survey.AllowAnonymous {
			return ErrAnonymousNotAllowed
		}

		answers, err := buildAnswers(survey.Questions, req.Answers)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		response.CompletedAt = &now
		response.Answers = answers

		return tx.Response().Create(ctx, response)
	})
	if err != nil {
		return nil, err
	}

	// The stored aggregate inputs changed; drop the survey's cached entries.
	s.cache.InvalidateSurvey(ctx, surveyID)

	task := models.NotificationTask{
		SurveyID:         surveyID,
		NotificationType: models.NotificationNewResponse,
	}
	if err := s.enqueuer.EnqueueNotification(ctx, task); err != nil {
		s.logger.ErrorContext(ctx, "Failed to enqueue response notification",
			"survey_id", surveyID, "error", err)
	}
	// Warm the analytics cache in the background.
	if err := s.enqueuer.EnqueueAnalytics(ctx, surveyID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to enqueue analytics recompute",
			"survey_id", surveyID, "error", err)
	}

	s.logger.InfoContext(ctx, "Response submitted",
		"survey_id", surveyID, "response_id", response.ID, "answers", len(response.Answers))

	return response, nil
}

func (s *responseService) ListBySurvey(ctx context.Context, surveyID uint) ([]*models.Response, error) {
	if _, err := s.repo.Survey().GetByID(ctx, surveyID); err != nil {
		return nil, err
	}
	return s.repo.Response().ListBySurvey(ctx, surveyID)
}

// buildAnswers resolves each submitted answer against its question and builds
// the storable rows. Answers referencing unknown questions, or carrying a
// value of the wrong shape for the question type, reject the whole submission.
func buildAnswers(questions []models.Question, submitted []models.SubmitAnswerRequest) ([]models.Answer, error) {
	byID := make(map[uint]*models.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	answered := make(map[uint]bool, len(submitted))
	answers := make([]models.Answer, 0, len(submitted))

	for _, sa := range submitted {
		q, ok := byID[sa.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: question %d does not belong to this survey", ErrInvalidAnswer, sa.QuestionID)
		}
		if answered[sa.QuestionID] {
			return nil, fmt.Errorf("%w: duplicate answer for question %d", ErrInvalidAnswer, sa.QuestionID)
		}
		answered[sa.QuestionID] = true

		answer := models.Answer{QuestionID: sa.QuestionID}

		switch q.Type {
		case models.QuestionText:
			if sa.AnswerText == nil {
				return nil, fmt.Errorf("%w: question %d expects text", ErrInvalidAnswer, sa.QuestionID)
			}
			answer.AnswerText = sa.AnswerText

		case models.QuestionRating:
			if sa.AnswerRating == nil {
				return nil, fmt.Errorf("%w: question %d expects a rating", ErrInvalidAnswer, sa.QuestionID)
			}
			min, max := q.RatingBounds()
			if *sa.AnswerRating < min || *sa.AnswerRating > max {
				return nil, fmt.Errorf("%w: question %d rating %d outside [%d, %d]",
					ErrInvalidAnswer, sa.QuestionID, *sa.AnswerRating, min, max)
			}
			answer.AnswerRating = sa.AnswerRating

		case models.QuestionSingleSelect, models.QuestionMultipleSelect:
			if len(sa.SelectedValues) == 0 {
				return nil, fmt.Errorf("%w: question %d expects selected values", ErrInvalidAnswer, sa.QuestionID)
			}
			if q.Type == models.QuestionSingleSelect && len(sa.SelectedValues) > 1 {
				return nil, fmt.Errorf("%w: question %d accepts a single value", ErrInvalidAnswer, sa.QuestionID)
			}
			declared := make(map[string]bool)
			for _, opt := range q.Options() {
				declared[opt.Value] = true
			}
			for _, v := range sa.SelectedValues {
				if !declared[v] {
					return nil, fmt.Errorf("%w: question %d has no option %q", ErrInvalidAnswer, sa.QuestionID, v)
				}
			}
			data, err := json.Marshal(sa.SelectedValues)
			if err != nil {
				return nil, fmt.Errorf("failed to encode selected values: %w", err)
			}
			answer.AnswerOptions = data
			answer.SelectedValues = sa.SelectedValues
		}

		answers = append(answers, answer)
	}

	for i := range questions {
		if questions[i].IsRequired && !answered[questions[i].ID] {
			return nil, fmt.Errorf("%w: question %d is required", ErrInvalidAnswer, questions[i].ID)
		}
	}

	return answers, nil
}
