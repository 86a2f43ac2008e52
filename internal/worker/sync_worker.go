package worker

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"financia/internal/amqp"
	"financia/internal/backend"
	"financia/internal/cache"
	"financia/internal/core"
	"financia/internal/log"
	"financia/internal/sheets"
	"financia/internal/snapshot"
	"financia/internal/storage"
)

// Repository is the local store the worker syncs from.
type Repository interface {
	backend.StateReader
	PendingSync(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, userID string, revision uint64) error
	ExportedHistory(ctx context.Context, userID string) (map[string]struct{}, error)
	MarkHistoryExported(ctx context.Context, userID string, entryIDs []string) error
}

const (
	exportedCacheSize = 256
	exportedCacheTTL  = 10 * time.Minute
)

// SyncWorker copies local budget states to the cloud document store and
// exports closed months to the spreadsheet.
type SyncWorker struct {
	repo      Repository
	cloud     backend.StateWriter    // optional
	exporter  sheets.HistoryExporter // optional
	batchSize int
	logger    *log.Logger

	// exported remembers which history ids each user already exported.
	exported *cache.LRU[map[string]struct{}]
}

func NewSyncWorker(repo Repository, cloud backend.StateWriter, exporter sheets.HistoryExporter, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		repo:      repo,
		cloud:     cloud,
		exporter:  exporter,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
		exported:  cache.NewLRU[map[string]struct{}](exportedCacheSize, exportedCacheTTL),
	}
}

// HandleSyncMessage processes a single state sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.StateSyncMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Processing sync message",
		log.FieldUserID, msg.UserID,
		log.FieldRevision, msg.Revision)

	return w.SyncUser(ctx, msg.UserID)
}

// ProcessPending syncs users whose stored revision is ahead of the synced
// one. This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.repo.PendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending states: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "Processing pending states", "count", len(pending))

	failed := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.SyncUser(ctx, p.UserID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync state",
				log.FieldUserID, p.UserID,
				log.FieldRevision, p.Revision,
				log.FieldError, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pending states failed", failed, len(pending))
	}
	return nil
}

// SyncUser pushes the user's current local document everywhere and marks
// its revision synced once every configured target accepted it.
func (w *SyncWorker) SyncUser(ctx context.Context, userID string) error {
	doc, found, err := w.repo.LoadState(ctx, userID)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if !found {
		w.logger.WarnContext(ctx, "No local state to sync", log.FieldUserID, userID)
		return nil
	}

	if w.cloud != nil {
		err := w.cloud.SaveState(ctx, userID, doc)
		switch {
		case errors.Is(err, core.ErrStaleRevision):
			w.logger.DebugContext(ctx, "Cloud already holds a newer revision",
				log.FieldUserID, userID, log.FieldRevision, doc.Revision)
		case err != nil:
			return fmt.Errorf("save to cloud: %w", err)
		}
	}

	if w.exporter != nil {
		if err := w.exportHistory(ctx, userID, doc.History); err != nil {
			return err
		}
	}

	if err := w.repo.MarkSynced(ctx, userID, doc.Revision); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully synced state",
		log.FieldUserID, userID,
		log.FieldRevision, doc.Revision)
	return nil
}

func (w *SyncWorker) exportHistory(ctx context.Context, userID string, history []snapshot.HistoryEntry) error {
	if len(history) == 0 {
		return nil
	}
	exported, err := w.exportedIDs(ctx, userID)
	if err != nil {
		return err
	}

	var (
		fresh []core.HistoryEntry
		ids   []string
	)
	for _, h := range history {
		if _, ok := exported[h.ID]; ok {
			continue
		}
		entry, err := h.ToEntry()
		if err != nil {
			w.logger.WarnContext(ctx, "Skipping unreadable history entry",
				log.FieldUserID, userID, log.FieldHistoryID, h.ID, log.FieldError, err)
			continue
		}
		fresh = append(fresh, entry)
		ids = append(ids, h.ID)
	}
	if len(fresh) == 0 {
		return nil
	}

	if err := w.exporter.AppendHistory(ctx, userID, fresh); err != nil {
		return fmt.Errorf("export history: %w", err)
	}
	if err := w.repo.MarkHistoryExported(ctx, userID, ids); err != nil {
		// The rows are in the sheet; drop the cached set so the next run
		// rereads what the repository managed to record.
		w.exported.Delete(userID)
		return fmt.Errorf("mark history exported: %w", err)
	}
	updated := maps.Clone(exported)
	for _, id := range ids {
		updated[id] = struct{}{}
	}
	w.exported.Set(userID, updated)

	w.logger.InfoContext(ctx, "Exported closed months",
		log.FieldUserID, userID,
		log.FieldOperation, log.OpExport,
		"count", len(fresh))
	return nil
}

func (w *SyncWorker) exportedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	if ids, ok := w.exported.Get(userID); ok {
		return ids, nil
	}
	ids, err := w.repo.ExportedHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get exported history: %w", err)
	}
	if ids == nil {
		ids = map[string]struct{}{}
	}
	w.exported.Set(userID, ids)
	return ids, nil
}
