package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/models"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
)

// ===== STATEFUL MOCK REPOSITORY =====

type mockStore struct {
	mu        sync.Mutex
	surveys   map[uint]*models.Survey
	responses map[uint][]*models.Response
	users     map[string]*models.User

	failuresLeft int // transient errors injected into survey reads
	getCalls     int
}

type mockRepository struct{ store *mockStore }

func newMockRepository() *mockRepository {
	return &mockRepository{store: &mockStore{
		surveys:   make(map[uint]*models.Survey),
		responses: make(map[uint][]*models.Response),
		users:     make(map[string]*models.User),
	}}
}

type mockSurveyRepo struct{ store *mockStore }

func (m *mockSurveyRepo) Create(ctx context.Context, s *models.Survey) error { return nil }
func (m *mockSurveyRepo) GetByID(ctx context.Context, id uint) (*models.Survey, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	m.store.getCalls++
	if m.store.failuresLeft > 0 {
		m.store.failuresLeft--
		return nil, errors.New("connection reset")
	}

	survey, ok := m.store.surveys[id]
	if !ok {
		return nil, repositories.ErrSurveyNotFound
	}
	return survey, nil
}
func (m *mockSurveyRepo) GetWithQuestions(ctx context.Context, id uint) (*models.Survey, error) {
	return m.GetByID(ctx, id)
}
func (m *mockSurveyRepo) List(ctx context.Context, f repositories.SurveyFilters) ([]*models.Survey, int64, error) {
	return nil, 0, nil
}
func (m *mockSurveyRepo) Update(ctx context.Context, s *models.Survey) error { return nil }
func (m *mockSurveyRepo) UpdateStatus(ctx context.Context, id uint, status models.SurveyStatus) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	survey, ok := m.store.surveys[id]
	if !ok {
		return repositories.ErrSurveyNotFound
	}
	survey.Status = status
	return nil
}
func (m *mockSurveyRepo) Delete(ctx context.Context, id uint) error { return nil }
func (m *mockSurveyRepo) ListExpired(ctx context.Context, now time.Time) ([]*models.Survey, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var expired []*models.Survey
	for _, s := range m.store.surveys {
		if s.Status == models.StatusActive && s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
			expired = append(expired, s)
		}
	}
	return expired, nil
}

type mockResponseRepo struct{ store *mockStore }

func (m *mockResponseRepo) Create(ctx context.Context, r *models.Response) error { return nil }
func (m *mockResponseRepo) ListBySurvey(ctx context.Context, surveyID uint) ([]*models.Response, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.store.responses[surveyID], nil
}
func (m *mockResponseRepo) CountBySurvey(ctx context.Context, surveyID uint) (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return int64(len(m.store.responses[surveyID])), nil
}

type mockUserRepo struct{ store *mockStore }

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	user, ok := m.store.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return user, nil
}

func (m *mockRepository) Survey() repositories.SurveyRepository     { return &mockSurveyRepo{m.store} }
func (m *mockRepository) Question() repositories.QuestionRepository { return nil }
func (m *mockRepository) Response() repositories.ResponseRepository {
	return &mockResponseRepo{m.store}
}
func (m *mockRepository) User() repositories.UserRepository { return &mockUserRepo{m.store} }
func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== RESULT COLLECTOR =====

type resultCollector struct {
	mu      sync.Mutex
	results []interface{}
}

func (rc *resultCollector) add(queue string, result interface{}) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.results = append(rc.results, result)
}

func (rc *resultCollector) wait(t *testing.T, n int) []interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rc.mu.Lock()
		if len(rc.results) >= n {
			out := make([]interface{}, len(rc.results))
			copy(out, rc.results)
			rc.mu.Unlock()
			return out
		}
		rc.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d results", n)
	return nil
}

// ===== TEST HARNESS =====

func testExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxAttempts:       3,
		NotifyRetryDelay:  time.Millisecond,
		ProcessRetryDelay: time.Millisecond,
		UnitTimeout:       5 * time.Second,
		CleanupInterval:   time.Hour,
	}
}

type harness struct {
	repo     *mockRepository
	cache    *cache.CacheService
	enqueuer *Enqueuer
	executor *Executor
	results  *resultCollector
	redis    *miniredis.Miniredis
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wmLogger := watermill.NopLogger{}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newMockRepository()
	cacheService := cache.NewCacheService(client)
	pubsub := NewGoChannelPubSub(wmLogger)

	executor, err := NewExecutor(pubsub, repo, cacheService, NewLogNotifier(logger), testExecutorConfig(), logger, wmLogger)
	if err != nil {
		t.Fatalf("Failed to build executor: %v", err)
	}

	results := &resultCollector{}
	executor.OnResult = results.add

	ctx, cancel := context.WithCancel(context.Background())
	go executor.Run(ctx)
	<-executor.Running()
	t.Cleanup(func() {
		cancel()
		executor.Close()
	})

	return &harness{
		repo:     repo,
		cache:    cacheService,
		enqueuer: NewEnqueuer(pubsub, logger),
		executor: executor,
		results:  results,
		redis:    mr,
	}
}

func activeSurvey(id uint, title string) *models.Survey {
	return &models.Survey{ID: id, Title: title, Status: models.StatusActive, CreatorID: "creator-1"}
}

// ===== TESTS =====

func TestExecutor_AnalyticsTask(t *testing.T) {
	h := newHarness(t)
	h.repo.store.surveys[1] = activeSurvey(1, "Test Survey")
	h.repo.store.responses[1] = []*models.Response{{ID: 1}, {ID: 2}}

	if err := h.enqueuer.EnqueueAnalytics(context.Background(), 1); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	results := h.results.wait(t, 1)
	analytics, ok := results[0].(*models.SurveyAnalytics)
	if !ok {
		t.Fatalf("Expected SurveyAnalytics result, got %T", results[0])
	}
	if analytics.TotalResponses != 2 {
		t.Errorf("Expected 2 responses, got %d", analytics.TotalResponses)
	}

	// Result must be cached under the analytics key
	if cached, ok := h.cache.GetSurveyAnalytics(context.Background(), 1); !ok {
		t.Error("Expected analytics cached after processing")
	} else if cached.TotalResponses != 2 {
		t.Errorf("Cached analytics mismatch: %+v", cached)
	}
}

func TestExecutor_NotificationMessages(t *testing.T) {
	h := newHarness(t)
	h.repo.store.surveys[1] = activeSurvey(1, "Customer Survey")
	h.repo.store.responses[1] = []*models.Response{{ID: 1}, {ID: 2}, {ID: 3}}

	ctx := context.Background()
	for _, task := range []models.NotificationTask{
		{SurveyID: 1, NotificationType: models.NotificationNewResponse},
		{SurveyID: 1, NotificationType: models.NotificationSurveyPublished},
		{SurveyID: 1, NotificationType: models.NotificationSurveyClosed},
	} {
		if err := h.enqueuer.EnqueueNotification(ctx, task); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	results := h.results.wait(t, 3)
	messages := make(map[string]bool)
	for _, r := range results {
		nr, ok := r.(*models.NotificationResult)
		if !ok {
			t.Fatalf("Expected NotificationResult, got %T", r)
		}
		if nr.Status != models.TaskStatusSuccess {
			t.Errorf("Expected success, got %+v", nr)
		}
		messages[nr.Message] = true
	}

	for _, want := range []string{
		"New response received for survey: Customer Survey",
		"Survey 'Customer Survey' is now live!",
		"Survey 'Customer Survey' has been closed. Total responses: 3",
	} {
		if !messages[want] {
			t.Errorf("Missing notification message %q in %v", want, messages)
		}
	}
}

func TestExecutor_NotFoundIsTerminal(t *testing.T) {
	h := newHarness(t)

	if err := h.enqueuer.EnqueueAnalytics(context.Background(), 404); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	results := h.results.wait(t, 1)
	nr, ok := results[0].(*models.NotificationResult)
	if !ok {
		t.Fatalf("Expected error result, got %T", results[0])
	}
	if nr.Status != models.TaskStatusError || nr.Message != "Survey not found" {
		t.Errorf("Expected terminal not-found report, got %+v", nr)
	}

	// Terminal outcome: exactly one attempt, no retries
	h.repo.store.mu.Lock()
	calls := h.repo.store.getCalls
	h.repo.store.mu.Unlock()
	if calls != 1 {
		t.Errorf("Expected 1 store read (no retry), got %d", calls)
	}
}

func TestExecutor_RetriesThenPermanentFailure(t *testing.T) {
	h := newHarness(t)
	h.repo.store.surveys[1] = activeSurvey(1, "Test Survey")
	h.repo.store.failuresLeft = 10 // more than the attempt bound

	if err := h.enqueuer.EnqueueAnalytics(context.Background(), 1); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	results := h.results.wait(t, 1)
	nr, ok := results[0].(*models.NotificationResult)
	if !ok {
		t.Fatalf("Expected error result, got %T", results[0])
	}
	if nr.Status != models.TaskStatusError {
		t.Errorf("Expected permanent failure report, got %+v", nr)
	}

	h.repo.store.mu.Lock()
	calls := h.repo.store.getCalls
	h.repo.store.mu.Unlock()
	if calls != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", calls)
	}

	// Nothing cached on failure
	if _, ok := h.cache.GetSurveyAnalytics(context.Background(), 1); ok {
		t.Error("Failed task must not cache partial results")
	}
}

func TestExecutor_RetryThenSuccess(t *testing.T) {
	h := newHarness(t)
	h.repo.store.surveys[1] = activeSurvey(1, "Test Survey")
	h.repo.store.failuresLeft = 2 // first two attempts fail, third succeeds

	if err := h.enqueuer.EnqueueAnalytics(context.Background(), 1); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	results := h.results.wait(t, 1)
	if _, ok := results[0].(*models.SurveyAnalytics); !ok {
		t.Fatalf("Expected success after retries, got %T", results[0])
	}
}

func TestExecutor_ExportTask(t *testing.T) {
	h := newHarness(t)
	h.repo.store.surveys[1] = activeSurvey(1, "Test Survey")

	if err := h.enqueuer.EnqueueExport(context.Background(), 1, models.ExportJSON); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	results := h.results.wait(t, 1)
	er, ok := results[0].(*models.ExportResult)
	if !ok {
		t.Fatalf("Expected ExportResult, got %T", results[0])
	}
	if er.Status != models.TaskStatusSuccess || er.Format != models.ExportJSON || len(er.Data) == 0 {
		t.Errorf("Unexpected export result: %+v", er)
	}
}

func TestCleanupExpiredSurveys(t *testing.T) {
	h := newHarness(t)

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	expired := activeSurvey(1, "Expired")
	expired.ExpiresAt = &past
	running := activeSurvey(2, "Running")
	running.ExpiresAt = &future
	open := activeSurvey(3, "No Expiry")

	h.repo.store.surveys[1] = expired
	h.repo.store.surveys[2] = running
	h.repo.store.surveys[3] = open

	// Stale cache entry for the expiring survey
	h.redis.Set("survey_analytics:1", "stale")

	result, err := h.executor.CleanupExpiredSurveys(context.Background())
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if result.ClosedCount != 1 {
		t.Errorf("Expected 1 closed survey, got %d", result.ClosedCount)
	}
	if expired.Status != models.StatusClosed {
		t.Errorf("Expected expired survey closed, got %s", expired.Status)
	}
	if running.Status != models.StatusActive || open.Status != models.StatusActive {
		t.Error("Unexpired surveys must stay active")
	}
	if h.redis.Exists("survey_analytics:1") {
		t.Error("Expected cached entry invalidated for closed survey")
	}

	// Idempotent: a second sweep closes nothing
	result, err = h.executor.CleanupExpiredSurveys(context.Background())
	if err != nil {
		t.Fatalf("Second cleanup failed: %v", err)
	}
	if result.ClosedCount != 0 {
		t.Errorf("Expected 0 closed on second sweep, got %d", result.ClosedCount)
	}
}

func TestExecutor_MalformedPayloadDropped(t *testing.T) {
	h := newHarness(t)
	h.repo.store.surveys[1] = activeSurvey(1, "Test Survey")

	// Publish junk, then a valid task: the junk must be dropped, the valid
	// task still processed.
	junk := message.NewMessage(watermill.NewUUID(), []byte("{not json"))
	if err := h.enqueuer.publisher.Publish(QueueAnalytics, junk); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := h.enqueuer.EnqueueAnalytics(context.Background(), 1); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	results := h.results.wait(t, 1)
	if _, ok := results[0].(*models.SurveyAnalytics); !ok {
		t.Fatalf("Expected analytics result after dropping junk, got %T", results[0])
	}
}
