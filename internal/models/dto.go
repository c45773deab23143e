package models

import (
	"encoding/json"
	"time"
)

// ===== ANALYTICS STRUCTURES =====

// SurveyAnalytics is the cached aggregation result for one survey.
// The Questions slice is a deterministic function of stored answers;
// GeneratedAt is envelope metadata only.
type SurveyAnalytics struct {
	SurveyID       uint                 `json:"survey_id"`
	TotalResponses int                  `json:"total_responses"`
	Questions      []QuestionStatistics `json:"questions"`
	GeneratedAt    time.Time            `json:"generated_at"`
}

// QuestionStatistics holds the computed aggregate view for one question.
// ResponseStats is used by choice and rating questions; AverageRating only by
// rating questions; TextResponses/ResponseCount only by text questions.
type QuestionStatistics struct {
	QuestionID    uint           `json:"question_id"`
	QuestionTitle string         `json:"question_title"`
	QuestionType  QuestionType   `json:"question_type"`
	ResponseStats []ResponseStat `json:"response_stats"`
	AverageRating *float64       `json:"average_rating,omitempty"`
	TextResponses []string       `json:"text_responses,omitempty"`
	ResponseCount *int           `json:"response_count,omitempty"`
}

type ResponseStat struct {
	Label      string  `json:"label,omitempty"`
	Value      string  `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ===== TASK PAYLOADS =====

type NotificationType string

const (
	NotificationNewResponse     NotificationType = "new_response"
	NotificationSurveyPublished NotificationType = "survey_published"
	NotificationSurveyClosed    NotificationType = "survey_closed"
)

type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

type NotificationTask struct {
	SurveyID         uint             `json:"survey_id" validate:"required"`
	NotificationType NotificationType `json:"notification_type" validate:"required,oneof=new_response survey_published survey_closed"`
	UserID           *string          `json:"user_id,omitempty"`
}

type AnalyticsTask struct {
	SurveyID uint `json:"survey_id" validate:"required"`
}

type ExportTask struct {
	SurveyID uint         `json:"survey_id" validate:"required"`
	Format   ExportFormat `json:"format" validate:"required,oneof=json csv xlsx"`
}

// ===== TASK RESULTS =====

const (
	TaskStatusSuccess = "success"
	TaskStatusError   = "error"
)

type NotificationResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ExportResult struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Format ExportFormat    `json:"format"`
}

type CleanupResult struct {
	Status      string `json:"status"`
	ClosedCount int    `json:"closed_count"`
}

// ===== REQUEST DTOs =====

type CreateSurveyRequest struct {
	Title          string                  `json:"title" validate:"required,min=1,max=255"`
	Description    *string                 `json:"description" validate:"omitempty,max=2000"`
	AllowAnonymous bool                    `json:"allow_anonymous"`
	ExpiresAt      *time.Time              `json:"expires_at"`
	MaxResponses   *int                    `json:"max_responses" validate:"omitempty,min=1"`
	Questions      []CreateQuestionRequest `json:"questions" validate:"omitempty,dive"`
}

type CreateQuestionRequest struct {
	Title       string          `json:"title" validate:"required"`
	Description *string         `json:"description"`
	Type        QuestionType    `json:"type" validate:"required,oneof=text rating single_select multiple_select"`
	IsRequired  bool            `json:"is_required"`
	OrderNumber int             `json:"order_number"`
	Settings    json.RawMessage `json:"settings"`
}

// SurveyUpdate enumerates the updatable survey fields once. Handlers decode it
// with unknown-field rejection, so a misspelled field fails loudly instead of
// being silently skipped.
type SurveyUpdate struct {
	Title          *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description    *string    `json:"description" validate:"omitempty,max=2000"`
	AllowAnonymous *bool      `json:"allow_anonymous"`
	ExpiresAt      *time.Time `json:"expires_at"`
	MaxResponses   *int       `json:"max_responses" validate:"omitempty,min=1"`
}

// Apply copies the set fields onto the survey.
func (u *SurveyUpdate) Apply(s *Survey) {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Description != nil {
		s.Description = u.Description
	}
	if u.AllowAnonymous != nil {
		s.AllowAnonymous = *u.AllowAnonymous
	}
	if u.ExpiresAt != nil {
		s.ExpiresAt = u.ExpiresAt
	}
	if u.MaxResponses != nil {
		s.MaxResponses = u.MaxResponses
	}
}

// IsEmpty reports whether no field is set.
func (u *SurveyUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.AllowAnonymous == nil &&
		u.ExpiresAt == nil && u.MaxResponses == nil
}

type SubmitAnswerRequest struct {
	QuestionID     uint     `json:"question_id" validate:"required"`
	AnswerText     *string  `json:"answer_text"`
	AnswerRating   *int     `json:"answer_rating"`
	SelectedValues []string `json:"selected_values"`
}

type SubmitResponseRequest struct {
	RespondentID *string               `json:"respondent_id"`
	IsAnonymous  bool                  `json:"is_anonymous"`
	Answers      []SubmitAnswerRequest `json:"answers" validate:"required,min=1,dive"`
}

type UpdateStatusRequest struct {
	Status SurveyStatus `json:"status" validate:"required,oneof=draft active closed"`
}

// ===== LIST RESPONSES =====

type SurveyListResponse struct {
	Surveys []*Survey `json:"surveys"`
	Total   int64     `json:"total"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
}
