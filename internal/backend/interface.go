package backend

import (
	"context"

	"financia/internal/snapshot"
)

// StateWriter persists a user's document. Implementations refuse to
// replace a newer revision and report core.ErrStaleRevision instead.
type StateWriter interface {
	SaveState(ctx context.Context, userID string, doc snapshot.Document) error
}

// StateReader loads a user's document. found is false for a new user.
type StateReader interface {
	LoadState(ctx context.Context, userID string) (doc snapshot.Document, found bool, err error)
}

// Backend represents a unified backend interface that provides all necessary operations
type Backend interface {
	StateWriter
	StateReader
}

// SyncPublisher announces new revisions to the sync worker.
type SyncPublisher interface {
	PublishStateSync(ctx context.Context, userID string, revision uint64) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend   Backend
	Publisher SyncPublisher // nil unless AMQP is configured
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Firestore specific
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	FirestoreCollection      string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend    BackendType = "sqlite"
	FirestoreBackend BackendType = "firestore"
	MemoryBackend    BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, FirestoreBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
