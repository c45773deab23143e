package services

import (
	"context"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

// ===== SERVICE INTERFACES =====

type SurveyService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *models.CreateSurveyRequest, creatorID string) (*models.Survey, error)
	GetByID(ctx context.Context, id uint) (*models.Survey, error)
	GetWithQuestions(ctx context.Context, id uint) (*models.Survey, error)
	Update(ctx context.Context, id uint, update *models.SurveyUpdate) (*models.Survey, error)
	Delete(ctx context.Context, id uint) error

	// List operations (cached)
	List(ctx context.Context, filters repositories.SurveyFilters) (*models.SurveyListResponse, error)

	// Status management
	UpdateStatus(ctx context.Context, id uint, status models.SurveyStatus) error
	Publish(ctx context.Context, id uint) error
	CloseSurvey(ctx context.Context, id uint) error

	// Analytics and export
	GetAnalytics(ctx context.Context, id uint) (*models.SurveyAnalytics, error)
	RequestExport(ctx context.Context, id uint, format models.ExportFormat) error
}

type ResponseService interface {
	Submit(ctx context.Context, surveyID uint, req *models.SubmitResponseRequest) (*models.Response, error)
	ListBySurvey(ctx context.Context, surveyID uint) ([]*models.Response, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Survey() SurveyService
	Response() ResponseService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
