package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"financia/internal/backend"
	"financia/internal/budget"
	"financia/internal/config"
	apphttp "financia/internal/http"
	"financia/internal/log"
	"financia/internal/services"
)

// App is one user's budget wired to the configured backend.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	UserID    string
	Store     *budget.Store
	Persister *services.Persister
	Backend   backend.Backend

	// Found is false when the user had no saved state and got the seed.
	Found bool

	cleanup backend.CleanupFunc
}

// OpenApp creates the backend, loads userID's state (or the seed) and
// subscribes a Persister to the store.
func OpenApp(ctx context.Context, cfg *config.Config, logger *log.Logger, userID string) (*App, error) {
	if userID == "" {
		userID = cfg.UserID
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}

	st, found, err := backend.LoadState(ctx, res.Backend, userID, func(s *budget.State) {
		s.EmergencyFundMonths = max(cfg.EmergencyFundMonths, 0)
	})
	if err != nil {
		_ = res.Cleanup()
		return nil, fmt.Errorf("load state for %s: %w", userID, err)
	}

	opts := []services.PersisterOption{
		services.WithLogger(logger),
		services.WithPersistTimeout(cfg.PersistTimeout),
	}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	persister := services.NewPersister(res.Backend, userID, opts...)

	logger.Info("Budget loaded",
		log.FieldUserID, userID,
		log.FieldBackend, string(bcfg.Type),
		log.FieldRevision, st.Revision,
		"found", found)

	return &App{
		Config:    cfg,
		Logger:    logger,
		UserID:    userID,
		Store:     budget.NewStore(budget.WithState(st), budget.WithObserver(persister)),
		Persister: persister,
		Backend:   res.Backend,
		Found:     found,
		cleanup:   res.Cleanup,
	}, nil
}

// Close saves any pending change and releases the backend.
func (a *App) Close(ctx context.Context) error {
	flushErr := a.Persister.Flush(ctx)
	var cleanupErr error
	if a.cleanup != nil {
		cleanupErr = a.cleanup()
	}
	return errors.Join(flushErr, cleanupErr)
}

// Serve runs the HTTP API and the persistence loop until ctx is done.
func (a *App) Serve(ctx context.Context, addr string) error {
	srv := apphttp.NewServer(addr, a.Store, apphttp.Options{
		Logger: a.Logger,
		Ready: func(ctx context.Context) error {
			_, _, err := a.Backend.LoadState(ctx, a.UserID)
			return err
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Persister.Run(gctx)
	})
	g.Go(func() error {
		a.Logger.Info("Starting financia server", "addr", addr, log.FieldUserID, a.UserID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("Server shutdown error", log.FieldError, err)
		}
		return nil
	})

	err := g.Wait()
	a.Logger.Info("Server stopped gracefully")
	return err
}
