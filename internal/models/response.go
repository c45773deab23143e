package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type Response struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	SurveyID     uint       `json:"survey_id" gorm:"not null;index"`
	RespondentID *string    `json:"respondent_id" gorm:"index;size:255"` // nil for anonymous
	IsAnonymous  bool       `json:"is_anonymous" gorm:"default:false"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`

	// Relations
	Survey  Survey   `json:"-" gorm:"foreignKey:SurveyID"`
	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:ResponseID"`
}

func (Response) TableName() string {
	return "responses"
}

// AnswerFor returns the answer referencing the given question, or nil.
func (r *Response) AnswerFor(questionID uint) *Answer {
	for i := range r.Answers {
		if r.Answers[i].QuestionID == questionID {
			return &r.Answers[i]
		}
	}
	return nil
}

type Answer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	ResponseID uint `json:"response_id" gorm:"not null;index"`
	QuestionID uint `json:"question_id" gorm:"not null;index"`

	// Exactly one of the three value columns is set, by question type.
	AnswerText   *string        `json:"answer_text" gorm:"type:text"`
	AnswerRating *int           `json:"answer_rating"`
	AnswerOptions datatypes.JSON `json:"answer_options" gorm:"type:jsonb"` // []string of selected option values

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Response Response `json:"-" gorm:"foreignKey:ResponseID"`
	Question Question `json:"-" gorm:"foreignKey:QuestionID"`

	// Decoded option values, populated at the store boundary (not stored)
	SelectedValues []string `json:"-" gorm:"-"`
}

func (Answer) TableName() string {
	return "answers"
}

// DecodeOptions unmarshals the JSONB option values into SelectedValues.
// Repositories call this when loading answers.
func (a *Answer) DecodeOptions() error {
	if len(a.AnswerOptions) == 0 {
		a.SelectedValues = nil
		return nil
	}
	var values []string
	if err := json.Unmarshal(a.AnswerOptions, &values); err != nil {
		return fmt.Errorf("answer %d: invalid option values: %w", a.ID, err)
	}
	a.SelectedValues = values
	return nil
}

// HasValue reports whether the answer carries any value at all.
func (a *Answer) HasValue() bool {
	if a.AnswerText != nil && *a.AnswerText != "" {
		return true
	}
	if a.AnswerRating != nil {
		return true
	}
	return len(a.SelectedValues) > 0
}
