package backend

import (
	"context"
	"fmt"
	"log/slog"

	"financia/internal/amqp"
	"financia/internal/budget"
	"financia/internal/cloud/firestore"
	"financia/internal/storage"
	"financia/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case FirestoreBackend:
		return f.createFirestoreBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	result := &BackendResult{Backend: repo, Cleanup: repo.Close}

	// AMQP is optional: without it the worker's poller still picks up
	// unsynced revisions.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Publisher = client
			result.Cleanup = func() error {
				client.Close()
				return repo.Close()
			}
		}
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", result.Publisher != nil)
	return result, nil
}

func (f *DefaultFactory) createFirestoreBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := firestore.NewClient(ctx, config.FirestoreProjectID, config.FirestoreCredentialsFile, config.FirestoreCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore backend: %w", err)
	}

	f.logger.Info("Initialized Firestore backend",
		"project_id", config.FirestoreProjectID,
		"collection", config.FirestoreCollection)
	return &BackendResult{Backend: client, Cleanup: client.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := memory.New()
	f.logger.Info("Initialized memory backend")
	return &BackendResult{Backend: store, Cleanup: store.Close}, nil
}

// LoadState reads userID's state from r. A user without saved state gets
// budget.DefaultState with seed applied.
func LoadState(ctx context.Context, r StateReader, userID string, seed func(*budget.State)) (budget.State, bool, error) {
	doc, found, err := r.LoadState(ctx, userID)
	if err != nil {
		return budget.State{}, false, err
	}
	if !found {
		st := budget.DefaultState()
		if seed != nil {
			seed(&st)
		}
		return st, false, nil
	}
	st, err := doc.ToState()
	if err != nil {
		return budget.State{}, true, fmt.Errorf("convert stored state for %s: %w", userID, err)
	}
	return st, true, nil
}
