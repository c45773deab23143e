package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionRating         QuestionType = "rating"
	QuestionSingleSelect   QuestionType = "single_select"
	QuestionMultipleSelect QuestionType = "multiple_select"
)

// Default rating bounds when the question settings leave them unset.
const (
	DefaultRatingMin = 1
	DefaultRatingMax = 5
)

type Question struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	SurveyID    uint         `json:"survey_id" gorm:"not null;index"`
	Title       string       `json:"title" gorm:"type:text;not null" validate:"required"`
	Description *string      `json:"description" gorm:"type:text"`
	Type        QuestionType `json:"type" gorm:"not null;index;default:text" validate:"omitempty,oneof=text rating single_select multiple_select"`
	IsRequired  bool         `json:"is_required" gorm:"default:false"`
	OrderNumber int          `json:"order_number" gorm:"default:0;index"`

	// Raw settings stored as JSONB; decoded once at the store boundary
	// into the typed fields below.
	Settings datatypes.JSON `json:"settings" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Survey  Survey   `json:"-" gorm:"foreignKey:SurveyID"`
	Answers []Answer `json:"-" gorm:"foreignKey:QuestionID"`

	// Typed settings, populated by DecodeSettings (not stored)
	Choice     *ChoiceSettings `json:"-" gorm:"-"`
	RatingCfg  *RatingSettings `json:"-" gorm:"-"`
	TextCfg    *TextSettings   `json:"-" gorm:"-"`
}

func (Question) TableName() string {
	return "questions"
}

// ===== QUESTION SETTINGS SCHEMAS =====

type ChoiceOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type ChoiceSettings struct {
	Options []ChoiceOption `json:"options" validate:"min=1"`
}

type RatingSettings struct {
	MinValue int `json:"min_value"`
	MaxValue int `json:"max_value"`
}

type TextSettings struct {
	MaxLength *int `json:"max_length"`
}

// DecodeSettings unmarshals the JSONB settings blob into the typed structure
// matching the question type. Repositories call this when loading questions so
// downstream consumers never re-interpret raw JSON.
func (q *Question) DecodeSettings() error {
	switch q.Type {
	case QuestionSingleSelect, QuestionMultipleSelect:
		var s ChoiceSettings
		if len(q.Settings) > 0 {
			if err := json.Unmarshal(q.Settings, &s); err != nil {
				return fmt.Errorf("question %d: invalid choice settings: %w", q.ID, err)
			}
		}
		q.Choice = &s

	case QuestionRating:
		s := RatingSettings{MinValue: DefaultRatingMin, MaxValue: DefaultRatingMax}
		if len(q.Settings) > 0 {
			var raw struct {
				MinValue *int `json:"min_value"`
				MaxValue *int `json:"max_value"`
			}
			if err := json.Unmarshal(q.Settings, &raw); err != nil {
				return fmt.Errorf("question %d: invalid rating settings: %w", q.ID, err)
			}
			if raw.MinValue != nil {
				s.MinValue = *raw.MinValue
			}
			if raw.MaxValue != nil {
				s.MaxValue = *raw.MaxValue
			}
		}
		q.RatingCfg = &s

	case QuestionText, "":
		var s TextSettings
		if len(q.Settings) > 0 {
			if err := json.Unmarshal(q.Settings, &s); err != nil {
				return fmt.Errorf("question %d: invalid text settings: %w", q.ID, err)
			}
		}
		q.TextCfg = &s

	default:
		return fmt.Errorf("question %d: unknown question type %q", q.ID, q.Type)
	}

	return nil
}

// Options returns the declared options for choice questions, in declared order.
func (q *Question) Options() []ChoiceOption {
	if q.Choice == nil {
		return nil
	}
	return q.Choice.Options
}

// RatingBounds returns the inclusive rating bounds, falling back to the
// defaults when the question settings were never decoded.
func (q *Question) RatingBounds() (min, max int) {
	if q.RatingCfg == nil {
		return DefaultRatingMin, DefaultRatingMax
	}
	return q.RatingCfg.MinValue, q.RatingCfg.MaxValue
}
