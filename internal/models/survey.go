package models

import (
	"time"

	"gorm.io/gorm"
)

type SurveyStatus string

const (
	StatusDraft  SurveyStatus = "draft"
	StatusActive SurveyStatus = "active"
	StatusClosed SurveyStatus = "closed"
)

type Survey struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	Title        string       `json:"title" gorm:"not null;size:255;index" validate:"required,min=1,max=255"`
	Description  *string      `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Status       SurveyStatus `json:"status" gorm:"default:draft;index" validate:"omitempty,oneof=draft active closed"`
	CreatorID    string       `json:"creator_id" gorm:"not null;index;size:255"`
	AllowAnonymous bool       `json:"allow_anonymous" gorm:"default:false"`
	ExpiresAt    *time.Time   `json:"expires_at"`
	MaxResponses *int         `json:"max_responses"`

	// Metadata
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:SurveyID"`
	Responses []Response `json:"responses,omitempty" gorm:"foreignKey:SurveyID"`
	Creator   User       `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`

	// Computed fields (not stored)
	ResponseCount int `json:"response_count" gorm:"-"`
}

func (Survey) TableName() string {
	return "surveys"
}

// IsExpired reports whether the survey's expiry timestamp is at or before now.
// Surveys without an expiry never expire.
func (s *Survey) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// CanAcceptResponse checks the submission guards: the survey must be active,
// not expired, and under its max-responses bound.
func (s *Survey) CanAcceptResponse(now time.Time, currentResponses int) bool {
	if s.Status != StatusActive {
		return false
	}
	if s.IsExpired(now) {
		return false
	}
	if s.MaxResponses != nil && currentResponses >= *s.MaxResponses {
		return false
	}
	return true
}
