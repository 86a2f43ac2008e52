package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"financia/internal/core"
	"financia/internal/snapshot"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// PendingSync identifies a user whose latest revision has not reached the
// cloud yet.
type PendingSync struct {
	UserID         string
	Revision       uint64
	SyncedRevision uint64
	UpdatedAt      time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite serializes writers anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveState stores doc for userID unless a newer revision is already there.
func (r *SQLiteRepository) SaveState(ctx context.Context, userID string, doc snapshot.Document) error {
	data, err := snapshot.Encode(doc)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_states (user_id, schema_version, revision, document, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			revision       = excluded.revision,
			document       = excluded.document,
			updated_at     = excluded.updated_at
		WHERE excluded.revision >= budget_states.revision`,
		userID, snapshot.SchemaVersion, int64(doc.Revision), data, r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save state rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("save state for %s at revision %d: %w", userID, doc.Revision, core.ErrStaleRevision)
	}

	slog.DebugContext(ctx, "State saved to SQLite",
		"user_id", userID,
		"revision", doc.Revision,
		"bytes", len(data))
	return nil
}

// LoadState returns the stored document. found is false when the user has
// never saved.
func (r *SQLiteRepository) LoadState(ctx context.Context, userID string) (snapshot.Document, bool, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM budget_states WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot.Document{}, false, nil
	}
	if err != nil {
		return snapshot.Document{}, false, fmt.Errorf("load state: %w", err)
	}

	doc, err := snapshot.Decode(data)
	if err != nil {
		return snapshot.Document{}, false, fmt.Errorf("decode state for %s: %w", userID, err)
	}
	return doc, true, nil
}

// PendingSync lists users with unsynced revisions, oldest change first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, revision, synced_revision, updated_at
		FROM budget_states
		WHERE revision > synced_revision
		ORDER BY updated_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync states: %w", err)
	}
	defer rows.Close()

	var out []PendingSync
	for rows.Next() {
		var (
			p         PendingSync
			rev, sync int64
			updated   string
		)
		if err := rows.Scan(&p.UserID, &rev, &sync, &updated); err != nil {
			return nil, fmt.Errorf("scan pending sync state: %w", err)
		}
		p.Revision = uint64(rev)
		p.SyncedRevision = uint64(sync)
		p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending sync states: %w", err)
	}
	return out, nil
}

// MarkSynced records that revision reached the cloud. The synced revision
// never moves backwards.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, userID string, revision uint64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE budget_states
		SET synced_revision = MAX(synced_revision, ?)
		WHERE user_id = ?`, int64(revision), userID)
	if err != nil {
		return fmt.Errorf("mark state synced: %w", err)
	}

	slog.InfoContext(ctx, "State marked as synced", "user_id", userID, "revision", revision)
	return nil
}

// ExportedHistory returns the ids of history entries already exported.
func (r *SQLiteRepository) ExportedHistory(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entry_id FROM exported_history WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("get exported history: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan exported history: %w", err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exported history: %w", err)
	}
	return out, nil
}

// MarkHistoryExported records entry ids as exported in one transaction.
func (r *SQLiteRepository) MarkHistoryExported(ctx context.Context, userID string, entryIDs []string) error {
	if len(entryIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export tx: %w", err)
	}
	defer tx.Rollback()

	stamp := r.now().UTC().Format(time.RFC3339Nano)
	for _, id := range entryIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO exported_history (user_id, entry_id, exported_at)
			VALUES (?, ?, ?)
			ON CONFLICT(user_id, entry_id) DO NOTHING`, userID, id, stamp); err != nil {
			return fmt.Errorf("mark history %s exported: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export tx: %w", err)
	}
	return nil
}
