package repositories

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

// ===== SENTINEL ERRORS =====

// NotFound errors are terminal: callers (and the task executor in particular)
// must not retry them. Any other store error is treated as transient.
var (
	ErrSurveyNotFound   = errors.New("survey not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrResponseNotFound = errors.New("response not found")
	ErrUserNotFound     = errors.New("user not found")
)

// ===== SHARED FILTER STRUCTS =====

type SurveyFilters struct {
	Status    *models.SurveyStatus `json:"status"`
	CreatorID *string              `json:"creator_id"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "created_at", "title", "expires_at"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

// Fingerprint derives a stable cache-key fragment from the filter values, used
// for survey_list:{fingerprint} entries. Equal filters always hash equal.
func (f SurveyFilters) Fingerprint() string {
	h := fnv.New64a()

	status := ""
	if f.Status != nil {
		status = string(*f.Status)
	}
	creator := ""
	if f.CreatorID != nil {
		creator = *f.CreatorID
	}
	fmt.Fprintf(h, "status=%s|creator=%s|limit=%d|offset=%d|sort=%s:%s",
		status, creator, f.Limit, f.Offset, f.SortBy, f.SortOrder)

	return fmt.Sprintf("%016x", h.Sum64())
}

// ===== REPOSITORY INTERFACES =====

type SurveyRepository interface {
	Create(ctx context.Context, survey *models.Survey) error
	GetByID(ctx context.Context, id uint) (*models.Survey, error)
	// GetWithQuestions loads the survey and its questions in question order
	// (order_number ascending, ties broken by ID ascending), with question
	// settings decoded. The aggregator and the export formatter both read
	// through this method so the two views stay consistent.
	GetWithQuestions(ctx context.Context, id uint) (*models.Survey, error)
	List(ctx context.Context, filters SurveyFilters) ([]*models.Survey, int64, error)
	Update(ctx context.Context, survey *models.Survey) error
	UpdateStatus(ctx context.Context, id uint, status models.SurveyStatus) error
	Delete(ctx context.Context, id uint) error
	// ListExpired returns active surveys whose expiry timestamp is at or
	// before now.
	ListExpired(ctx context.Context, now time.Time) ([]*models.Survey, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	CreateBatch(ctx context.Context, questions []*models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	ListBySurvey(ctx context.Context, surveyID uint) ([]*models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
}

type ResponseRepository interface {
	Create(ctx context.Context, response *models.Response) error
	// ListBySurvey loads responses with their answers, in store order
	// (creation order), with answer option values decoded.
	ListBySurvey(ctx context.Context, surveyID uint) ([]*models.Response, error)
	CountBySurvey(ctx context.Context, surveyID uint) (int64, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}
