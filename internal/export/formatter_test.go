package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

// Minimal mock repository serving fixture data
type mockRepository struct {
	survey    *models.Survey
	responses []*models.Response
}

type mockSurveyRepo struct{ repo *mockRepository }

func (m *mockSurveyRepo) Create(ctx context.Context, s *models.Survey) error { return nil }
func (m *mockSurveyRepo) GetByID(ctx context.Context, id uint) (*models.Survey, error) {
	if m.repo.survey == nil || m.repo.survey.ID != id {
		return nil, repositories.ErrSurveyNotFound
	}
	return m.repo.survey, nil
}
func (m *mockSurveyRepo) GetWithQuestions(ctx context.Context, id uint) (*models.Survey, error) {
	return m.GetByID(ctx, id)
}
func (m *mockSurveyRepo) List(ctx context.Context, f repositories.SurveyFilters) ([]*models.Survey, int64, error) {
	return nil, 0, nil
}
func (m *mockSurveyRepo) Update(ctx context.Context, s *models.Survey) error { return nil }
func (m *mockSurveyRepo) UpdateStatus(ctx context.Context, id uint, status models.SurveyStatus) error {
	return nil
}
func (m *mockSurveyRepo) Delete(ctx context.Context, id uint) error { return nil }
func (m *mockSurveyRepo) ListExpired(ctx context.Context, now time.Time) ([]*models.Survey, error) {
	return nil, nil
}

type mockResponseRepo struct{ repo *mockRepository }

func (m *mockResponseRepo) Create(ctx context.Context, r *models.Response) error { return nil }
func (m *mockResponseRepo) ListBySurvey(ctx context.Context, surveyID uint) ([]*models.Response, error) {
	return m.repo.responses, nil
}
func (m *mockResponseRepo) CountBySurvey(ctx context.Context, surveyID uint) (int64, error) {
	return int64(len(m.repo.responses)), nil
}

func (m *mockRepository) Survey() repositories.SurveyRepository     { return &mockSurveyRepo{m} }
func (m *mockRepository) Question() repositories.QuestionRepository { return nil }
func (m *mockRepository) Response() repositories.ResponseRepository { return &mockResponseRepo{m} }
func (m *mockRepository) User() repositories.UserRepository         { return nil }
func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixtureSurvey() (*models.Survey, []*models.Response) {
	text := "Loved it"
	rating := 4
	completed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	survey := &models.Survey{
		ID:     1,
		Title:  "Customer Feedback",
		Status: models.StatusActive,
		Questions: []models.Question{
			{ID: 10, Title: "Comments", Type: models.QuestionText},
			{ID: 11, Title: "Rating", Type: models.QuestionRating,
				RatingCfg: &models.RatingSettings{MinValue: 1, MaxValue: 5}},
			{ID: 12, Title: "Channels", Type: models.QuestionMultipleSelect,
				Choice: &models.ChoiceSettings{Options: []models.ChoiceOption{
					{Label: "Email", Value: "email"},
					{Label: "Phone", Value: "phone"},
				}}},
		},
	}

	responses := []*models.Response{
		{
			ID:          100,
			CompletedAt: &completed,
			Answers: []models.Answer{
				{QuestionID: 10, AnswerText: &text},
				{QuestionID: 11, AnswerRating: &rating},
				{QuestionID: 12, SelectedValues: []string{"email", "phone"}},
			},
		},
		{
			ID:        101,
			CreatedAt: completed.Add(time.Hour),
			Answers: []models.Answer{
				{QuestionID: 12, SelectedValues: []string{"phone"}},
			},
		},
	}

	return survey, responses
}

func TestExport_JSON(t *testing.T) {
	survey, responses := fixtureSurvey()
	formatter := NewFormatter(&mockRepository{survey: survey, responses: responses}, testLogger())

	result, err := formatter.Export(context.Background(), 1, models.ExportJSON)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result.Status != models.TaskStatusSuccess || result.Format != models.ExportJSON {
		t.Errorf("Unexpected result envelope: %+v", result)
	}

	var doc Document
	if err := json.Unmarshal(result.Data, &doc); err != nil {
		t.Fatalf("Export data is not a valid document: %v", err)
	}

	if doc.Survey.ID != 1 || doc.Survey.TotalResponses != 2 {
		t.Errorf("Survey info mismatch: %+v", doc.Survey)
	}
	if len(doc.Questions) != 3 {
		t.Fatalf("Expected 3 questions, got %d", len(doc.Questions))
	}
	if len(doc.Questions[0].Options) != 0 {
		t.Errorf("Text question should have empty options, got %v", doc.Questions[0].Options)
	}
	if len(doc.Responses) != 2 {
		t.Fatalf("Expected 2 responses, got %d", len(doc.Responses))
	}

	// Answers keyed by question ID; JSON keeps raw option values
	first := doc.Responses[0].Answers
	if first["10"] != "Loved it" {
		t.Errorf("Expected text answer, got %v", first["10"])
	}
	if first["11"] != float64(4) {
		t.Errorf("Expected rating 4, got %v", first["11"])
	}
	values, ok := first["12"].([]interface{})
	if !ok || len(values) != 2 || values[0] != "email" {
		t.Errorf("Expected raw option values, got %v", first["12"])
	}
}

func TestExport_CSV(t *testing.T) {
	survey, responses := fixtureSurvey()
	formatter := NewFormatter(&mockRepository{survey: survey, responses: responses}, testLogger())

	result, err := formatter.Export(context.Background(), 1, models.ExportCSV)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var content string
	if err := json.Unmarshal(result.Data, &content); err != nil {
		t.Fatalf("CSV export data should be a JSON string: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	if err != nil {
		t.Fatalf("Invalid CSV: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d records", len(records))
	}

	header := records[0]
	want := []string{"Response ID", "Submitted At", "Comments", "Rating", "Channels"}
	for i, w := range want {
		if header[i] != w {
			t.Errorf("Header column %d: expected %q, got %q", i, w, header[i])
		}
	}

	row := records[1]
	if row[0] != "100" {
		t.Errorf("Expected response ID 100, got %s", row[0])
	}
	if row[2] != "Loved it" || row[3] != "4" {
		t.Errorf("Unexpected answer cells: %v", row)
	}
	// Multi-select renders labels joined with ", "
	if row[4] != "Email, Phone" {
		t.Errorf("Expected joined option labels, got %q", row[4])
	}

	// Second response answered only the last question; other cells empty
	row = records[2]
	if row[2] != "" || row[3] != "" {
		t.Errorf("Unanswered questions should render empty cells, got %v", row)
	}
	if row[4] != "Phone" {
		t.Errorf("Expected single label, got %q", row[4])
	}
}

func TestExport_XLSX(t *testing.T) {
	survey, responses := fixtureSurvey()
	formatter := NewFormatter(&mockRepository{survey: survey, responses: responses}, testLogger())

	result, err := formatter.Export(context.Background(), 1, models.ExportXLSX)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result.Format != models.ExportXLSX {
		t.Errorf("Expected xlsx format, got %s", result.Format)
	}

	// Data holds the workbook bytes base64-wrapped in a JSON string
	var raw []byte
	if err := json.Unmarshal(result.Data, &raw); err != nil {
		t.Fatalf("XLSX export data should decode to bytes: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("Expected non-empty workbook")
	}
	// XLSX containers are zip archives
	if raw[0] != 'P' || raw[1] != 'K' {
		t.Errorf("Expected zip magic, got %v", raw[:2])
	}
}

func TestExport_SurveyNotFound(t *testing.T) {
	formatter := NewFormatter(&mockRepository{}, testLogger())

	_, err := formatter.Export(context.Background(), 99, models.ExportJSON)
	if !errors.Is(err, repositories.ErrSurveyNotFound) {
		t.Fatalf("Expected ErrSurveyNotFound, got %v", err)
	}
}

func TestExport_UnsupportedFormat(t *testing.T) {
	survey, responses := fixtureSurvey()
	formatter := NewFormatter(&mockRepository{survey: survey, responses: responses}, testLogger())

	if _, err := formatter.Export(context.Background(), 1, "pdf"); err == nil {
		t.Fatal("Expected error for unsupported format")
	}
}
