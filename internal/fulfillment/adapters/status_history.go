package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// pure-Go driver, no CGO
	_ "modernc.org/sqlite"

	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/internal/fulfillment/ports"
	apperrors "go-marketplace/pkg/errors"
)

// historySchema is append-only; one row per accepted transition
const historySchema = `
CREATE TABLE IF NOT EXISTS order_status_history (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id    TEXT    NOT NULL,
    from_status TEXT    NOT NULL DEFAULT '',
    to_status   TEXT    NOT NULL,
    version     INTEGER NOT NULL,
    changed_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, id);
`

const historyTimeFormat = "2006-01-02T15:04:05.999999999Z"

// SQLiteStatusHistory implements ports.StatusHistory on a local SQLite file
type SQLiteStatusHistory struct {
	db *sql.DB
}

// OpenStatusHistory opens (or creates) the history database at path.
// Use ":memory:" for a throwaway log.
func OpenStatusHistory(path string) (*SQLiteStatusHistory, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open status history %q: %w", path, err)
	}

	// single writer; also keeps one shared database for ":memory:"
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply status history schema: %w", err)
	}

	return &SQLiteStatusHistory{db: db}, nil
}

// Close closes the database
func (h *SQLiteStatusHistory) Close() error {
	return h.db.Close()
}

// Append records one transition
func (h *SQLiteStatusHistory) Append(ctx context.Context, change ports.StatusChange) error {
	const q = `
		INSERT INTO order_status_history (order_id, from_status, to_status, version, changed_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := h.db.ExecContext(ctx, q,
		change.OrderID,
		string(change.From),
		string(change.To),
		change.Version,
		change.ChangedAt.UTC().Format(historyTimeFormat),
	)
	if err != nil {
		return apperrors.NewInternal("failed to append status history", err)
	}
	return nil
}

// ListByOrder returns the transitions of an order, oldest first
func (h *SQLiteStatusHistory) ListByOrder(ctx context.Context, orderID string) ([]ports.StatusChange, error) {
	const q = `
		SELECT order_id, from_status, to_status, version, changed_at
		FROM order_status_history
		WHERE order_id = ?
		ORDER BY id ASC`

	rows, err := h.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, apperrors.NewInternal("failed to read status history", err)
	}
	defer rows.Close()

	var changes []ports.StatusChange
	for rows.Next() {
		var (
			change    ports.StatusChange
			from, to  string
			changedAt string
		)
		if err := rows.Scan(&change.OrderID, &from, &to, &change.Version, &changedAt); err != nil {
			return nil, apperrors.NewInternal("failed to scan status history", err)
		}
		change.From = domain.OrderStatus(from)
		change.To = domain.OrderStatus(to)
		change.ChangedAt, err = time.Parse(historyTimeFormat, changedAt)
		if err != nil {
			return nil, apperrors.NewInternal("failed to parse status history time", err)
		}
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternal("failed to read status history", err)
	}
	return changes, nil
}
