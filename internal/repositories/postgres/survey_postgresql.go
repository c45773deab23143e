package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

type SurveyPostgreSQL struct {
	db *gorm.DB
}

func NewSurveyPostgreSQL(db *gorm.DB) repositories.SurveyRepository {
	return &SurveyPostgreSQL{db: db}
}

func (s *SurveyPostgreSQL) Create(ctx context.Context, survey *models.Survey) error {
	if err := s.db.WithContext(ctx).Create(survey).Error; err != nil {
		return fmt.Errorf("failed to create survey: %w", err)
	}
	return nil
}

func (s *SurveyPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Survey, error) {
	var survey models.Survey
	err := s.db.WithContext(ctx).First(&survey, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to get survey: %w", err)
	}
	return &survey, nil
}

func (s *SurveyPostgreSQL) GetWithQuestions(ctx context.Context, id uint) (*models.Survey, error) {
	var survey models.Survey
	err := s.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_number ASC, questions.id ASC")
		}).
		First(&survey, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrSurveyNotFound
		}
		return nil, fmt.Errorf("failed to get survey with questions: %w", err)
	}

	for i := range survey.Questions {
		if err := survey.Questions[i].DecodeSettings(); err != nil {
			return nil, fmt.Errorf("failed to decode question settings: %w", err)
		}
	}

	return &survey, nil
}

func (s *SurveyPostgreSQL) List(ctx context.Context, filters repositories.SurveyFilters) ([]*models.Survey, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Survey{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CreatorID != nil {
		query = query.Where("creator_id = ?", *filters.CreatorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count surveys: %w", err)
	}

	sortBy := filters.SortBy
	switch sortBy {
	case "title", "expires_at", "created_at":
	default:
		sortBy = "created_at"
	}
	sortOrder := "DESC"
	if filters.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder))

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var surveys []*models.Survey
	if err := query.Find(&surveys).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list surveys: %w", err)
	}

	return surveys, total, nil
}

func (s *SurveyPostgreSQL) Update(ctx context.Context, survey *models.Survey) error {
	result := s.db.WithContext(ctx).Save(survey)
	if result.Error != nil {
		return fmt.Errorf("failed to update survey: %w", result.Error)
	}
	return nil
}

func (s *SurveyPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.SurveyStatus) error {
	result := s.db.WithContext(ctx).
		Model(&models.Survey{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update survey status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrSurveyNotFound
	}
	return nil
}

func (s *SurveyPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Survey{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete survey: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrSurveyNotFound
	}
	return nil
}

func (s *SurveyPostgreSQL) ListExpired(ctx context.Context, now time.Time) ([]*models.Survey, error) {
	var surveys []*models.Survey
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusActive).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Find(&surveys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired surveys: %w", err)
	}
	return surveys, nil
}
