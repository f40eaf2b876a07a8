package repositories

import "context"

// Repository aggregates the domain repositories behind one transactional
// boundary.
type Repository interface {
	Assessment() AssessmentRepository
	Question() QuestionRepository
	Answer() AnswerRepository
	Performance() PerformanceRepository
	CommunityAverage() CommunityAverageRepository

	// WithTransaction runs fn against a repository bound to a single
	// transaction. Returning an error rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
