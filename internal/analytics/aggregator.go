package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

// Aggregator turns a survey's stored responses into per-question statistics.
// It is a pure read: the only inputs are the survey store's current state, so
// recomputing against unchanged data always yields the same Questions slice.
// Retry policy lives in the task layer, not here.
type Aggregator struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewAggregator(repo repositories.Repository, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		repo:   repo,
		logger: logger,
	}
}

// Aggregate computes statistics for every question of the survey, in question
// order. Returns repositories.ErrSurveyNotFound for an absent survey; any
// other error is a transient store failure.
func (a *Aggregator) Aggregate(ctx context.Context, surveyID uint) (*models.SurveyAnalytics, error) {
	survey, err := a.repo.Survey().GetWithQuestions(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	responses, err := a.repo.Response().ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	totalResponses := len(responses)

	analytics := &models.SurveyAnalytics{
		SurveyID:       surveyID,
		TotalResponses: totalResponses,
		Questions:      make([]models.QuestionStatistics, 0, len(survey.Questions)),
		GeneratedAt:    time.Now().UTC(),
	}

	for i := range survey.Questions {
		question := &survey.Questions[i]

		stats := models.QuestionStatistics{
			QuestionID:    question.ID,
			QuestionTitle: question.Title,
			QuestionType:  question.Type,
			ResponseStats: []models.ResponseStat{},
		}

		switch question.Type {
		case models.QuestionSingleSelect, models.QuestionMultipleSelect:
			stats.ResponseStats = a.aggregateChoice(question, responses, totalResponses)

		case models.QuestionRating:
			var avg float64
			stats.ResponseStats, avg = a.aggregateRating(question, responses, totalResponses)
			stats.AverageRating = &avg

		default: // text
			texts := a.collectText(question, responses)
			count := len(texts)
			stats.TextResponses = texts
			stats.ResponseCount = &count
		}

		analytics.Questions = append(analytics.Questions, stats)
	}

	a.logger.Info("Analytics computed",
		"survey_id", surveyID,
		"total_responses", totalResponses,
		"questions", len(analytics.Questions))

	return analytics, nil
}

// aggregateChoice counts selections per declared option, in declared order.
// Options nobody picked still appear with a zero count. A multiple_select
// answer contributes to every option it selected, so option counts can sum
// above the response total; percentages are still computed against total
// responses (each voter counted once per option they picked).
func (a *Aggregator) aggregateChoice(question *models.Question, responses []*models.Response, totalResponses int) []models.ResponseStat {
	options := question.Options()

	counts := make(map[string]int, len(options))
	for _, opt := range options {
		counts[opt.Value] = 0
	}

	for _, response := range responses {
		answer := response.AnswerFor(question.ID)
		if answer == nil {
			continue
		}
		for _, value := range answer.SelectedValues {
			if _, declared := counts[value]; declared {
				counts[value]++
			}
		}
	}

	stats := make([]models.ResponseStat, 0, len(options))
	for _, opt := range options {
		count := counts[opt.Value]
		stats = append(stats, models.ResponseStat{
			Label:      opt.Label,
			Value:      opt.Value,
			Count:      count,
			Percentage: percentage(count, totalResponses),
		})
	}

	return stats
}

// aggregateRating buckets answers per integer value over the configured
// bounds, ascending, with zero defaults. Out-of-bounds answers get a bucket
// on demand and still feed the average. The average divides by the number of
// responses that answered this question; bucket percentages divide by the
// survey's total responses.
func (a *Aggregator) aggregateRating(question *models.Question, responses []*models.Response, totalResponses int) ([]models.ResponseStat, float64) {
	min, max := question.RatingBounds()

	counts := make(map[int]int, max-min+1)
	for v := min; v <= max; v++ {
		counts[v] = 0
	}

	totalRating := 0
	ratingResponses := 0
	for _, response := range responses {
		answer := response.AnswerFor(question.ID)
		if answer == nil || answer.AnswerRating == nil {
			continue
		}
		rating := *answer.AnswerRating
		counts[rating]++
		totalRating += rating
		ratingResponses++
	}

	average := 0.0
	if ratingResponses > 0 {
		average = round2(float64(totalRating) / float64(ratingResponses))
	}

	values := make([]int, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Ints(values)

	stats := make([]models.ResponseStat, 0, len(values))
	for _, v := range values {
		count := counts[v]
		stats = append(stats, models.ResponseStat{
			Value:      strconv.Itoa(v),
			Count:      count,
			Percentage: percentage(count, totalResponses),
		})
	}

	return stats, average
}

// collectText gathers every non-empty text answer in response order. No
// truncation or sampling.
func (a *Aggregator) collectText(question *models.Question, responses []*models.Response) []string {
	texts := []string{}
	for _, response := range responses {
		answer := response.AnswerFor(question.ID)
		if answer == nil || answer.AnswerText == nil || *answer.AnswerText == "" {
			continue
		}
		texts = append(texts, *answer.AnswerText)
	}
	return texts
}

func percentage(count, totalResponses int) float64 {
	if totalResponses == 0 {
		return 0
	}
	return round1(float64(count) / float64(totalResponses) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
