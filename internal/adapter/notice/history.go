package notice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"shopdesk/internal/domain"
)

// History persists delivered notices in SQLite so the notice panel
// survives reloads and reconnects.
type History struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewHistory opens (or creates) the notice database at dbPath and runs
// the schema migration.
func NewHistory(dbPath string, logger *slog.Logger) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrNoticeStore, dbPath, err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: set WAL mode: %v", domain.ErrNoticeStore, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrNoticeStore, err)
	}
	return &History{db: db, logger: logger}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS notices (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			severity   TEXT NOT NULL,
			title      TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// Notify implements domain.Notifier so History can be plugged into the
// Center as a sink. Persistence failures are logged, never surfaced:
// a broken disk must not break live updates.
func (h *History) Notify(n domain.Notice) {
	if err := h.Save(context.Background(), n); err != nil {
		h.logger.Warn("notice history write failed", "error", err)
	}
}

// Save appends one notice.
func (h *History) Save(ctx context.Context, n domain.Notice) error {
	_, err := h.db.ExecContext(ctx,
		"INSERT INTO notices (severity, title, body, created_at) VALUES (?, ?, ?, ?)",
		string(n.Severity), n.Title, n.Body, n.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %v", domain.ErrNoticeStore, err)
	}
	return nil
}

// Recent returns up to limit notices, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]domain.Notice, error) {
	rows, err := h.db.QueryContext(ctx,
		"SELECT severity, title, body, created_at FROM notices ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: select: %v", domain.ErrNoticeStore, err)
	}
	defer rows.Close()

	var notices []domain.Notice
	for rows.Next() {
		var n domain.Notice
		var severity, createdStr string
		if err := rows.Scan(&severity, &n.Title, &n.Body, &createdStr); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrNoticeStore, err)
		}
		n.Severity = domain.Severity(severity)
		n.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		notices = append(notices, n)
	}
	return notices, rows.Err()
}

// Prune deletes notices older than the cutoff and reports how many
// were removed.
func (h *History) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(time.RFC3339Nano)
	res, err := h.db.ExecContext(ctx, "DELETE FROM notices WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: delete: %v", domain.ErrNoticeStore, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
