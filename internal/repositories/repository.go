package repositories

import "context"

// Repository aggregates the survey store contracts.
type Repository interface {
	Survey() SurveyRepository
	Question() QuestionRepository
	Response() ResponseRepository

	// User domain (read-only for the survey service)
	User() UserRepository

	// WithTransaction runs fn against a repository bound to a single storage
	// session; the session commits when fn returns nil and rolls back
	// otherwise. Each unit of work owns exactly one such session.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
