package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

// Formatter renders a survey and its responses as a JSON, CSV, or XLSX
// document. It reads through the exact same store queries as the aggregator
// (survey with ordered questions, responses in store order) so both views are
// consistent for a given database state. No caching.
type Formatter struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewFormatter(repo repositories.Repository, logger *slog.Logger) *Formatter {
	return &Formatter{
		repo:   repo,
		logger: logger,
	}
}

// ===== EXPORT DOCUMENT SCHEMA =====

type Document struct {
	Survey    SurveyInfo     `json:"survey"`
	Questions []QuestionInfo `json:"questions"`
	Responses []ResponseInfo `json:"responses"`
}

type SurveyInfo struct {
	ID             uint                `json:"id"`
	Title          string              `json:"title"`
	Description    *string             `json:"description"`
	Status         models.SurveyStatus `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	TotalResponses int                 `json:"total_responses"`
}

type QuestionInfo struct {
	ID      uint                  `json:"id"`
	Title   string                `json:"title"`
	Type    models.QuestionType   `json:"type"`
	Options []models.ChoiceOption `json:"options"`
}

type ResponseInfo struct {
	ID          uint                   `json:"id"`
	SubmittedAt time.Time              `json:"submitted_at"`
	Answers     map[string]interface{} `json:"answers"`
}

// Export produces the survey's responses in the requested format. Returns
// repositories.ErrSurveyNotFound for an absent survey; other errors are
// transient store failures.
func (f *Formatter) Export(ctx context.Context, surveyID uint, format models.ExportFormat) (*models.ExportResult, error) {
	survey, err := f.repo.Survey().GetWithQuestions(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	responses, err := f.repo.Response().ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	var data json.RawMessage
	switch format {
	case models.ExportCSV:
		data, err = marshalString(f.renderCSV(survey, responses))
	case models.ExportXLSX:
		data, err = f.renderXLSX(survey, responses)
	case models.ExportJSON:
		data, err = json.Marshal(f.buildDocument(survey, responses))
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}

	f.logger.Info("Export completed", "survey_id", surveyID, "format", format, "responses", len(responses))

	return &models.ExportResult{
		Status: models.TaskStatusSuccess,
		Data:   data,
		Format: format,
	}, nil
}

func (f *Formatter) buildDocument(survey *models.Survey, responses []*models.Response) *Document {
	doc := &Document{
		Survey: SurveyInfo{
			ID:             survey.ID,
			Title:          survey.Title,
			Description:    survey.Description,
			Status:         survey.Status,
			CreatedAt:      survey.CreatedAt,
			TotalResponses: len(responses),
		},
		Questions: make([]QuestionInfo, 0, len(survey.Questions)),
		Responses: make([]ResponseInfo, 0, len(responses)),
	}

	for i := range survey.Questions {
		question := &survey.Questions[i]
		options := question.Options()
		if options == nil {
			options = []models.ChoiceOption{}
		}
		doc.Questions = append(doc.Questions, QuestionInfo{
			ID:      question.ID,
			Title:   question.Title,
			Type:    question.Type,
			Options: options,
		})
	}

	for _, response := range responses {
		answers := make(map[string]interface{}, len(response.Answers))
		for i := range response.Answers {
			answer := &response.Answers[i]
			answers[strconv.FormatUint(uint64(answer.QuestionID), 10)] = answerValue(answer)
		}
		doc.Responses = append(doc.Responses, ResponseInfo{
			ID:          response.ID,
			SubmittedAt: submittedAt(response),
			Answers:     answers,
		})
	}

	return doc
}

// renderCSV builds the tabular view: header row Response ID, Submitted At,
// then one column per question title in question order; one row per response
// in store order; multi-value answers joined with ", "; absent answers render
// as empty cells.
func (f *Formatter) renderCSV(survey *models.Survey, responses []*models.Response) string {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := make([]string, 0, 2+len(survey.Questions))
	header = append(header, "Response ID", "Submitted At")
	for i := range survey.Questions {
		header = append(header, survey.Questions[i].Title)
	}
	writer.Write(header)

	for _, response := range responses {
		row := make([]string, 0, len(header))
		row = append(row,
			strconv.FormatUint(uint64(response.ID), 10),
			submittedAt(response).Format(time.RFC3339))
		for i := range survey.Questions {
			row = append(row, cellValue(&survey.Questions[i], response))
		}
		writer.Write(row)
	}

	writer.Flush()
	return buf.String()
}

// cellValue renders one response's answer to one question as a CSV/XLSX cell.
// Choice answers render their option labels so the table reads without the
// option legend; unknown values fall back to the raw stored value.
func cellValue(question *models.Question, response *models.Response) string {
	answer := response.AnswerFor(question.ID)
	if answer == nil {
		return ""
	}

	switch {
	case answer.AnswerText != nil:
		return *answer.AnswerText
	case answer.AnswerRating != nil:
		return strconv.Itoa(*answer.AnswerRating)
	case len(answer.SelectedValues) > 0:
		labels := make([]string, 0, len(answer.SelectedValues))
		for _, value := range answer.SelectedValues {
			labels = append(labels, optionLabel(question, value))
		}
		return strings.Join(labels, ", ")
	}

	return ""
}

func optionLabel(question *models.Question, value string) string {
	for _, opt := range question.Options() {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

// answerValue renders an answer for the JSON document: raw text, rating
// integer, or the list of selected option values.
func answerValue(answer *models.Answer) interface{} {
	switch {
	case answer.AnswerText != nil:
		return *answer.AnswerText
	case answer.AnswerRating != nil:
		return *answer.AnswerRating
	default:
		return answer.SelectedValues
	}
}

// submittedAt prefers the completion timestamp and falls back to creation for
// responses that never recorded one.
func submittedAt(response *models.Response) time.Time {
	if response.CompletedAt != nil {
		return *response.CompletedAt
	}
	return response.CreatedAt
}

func marshalString(s string) (json.RawMessage, error) {
	return json.Marshal(s)
}
