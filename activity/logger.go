package activity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Logger appends and reads activity log entries. Append is transaction-scoped
// so a log row commits or rolls back together with the state change that
// produced it.
type Logger struct {
	pool *pgxpool.Pool
}

func NewLogger(pool *pgxpool.Pool) *Logger {
	return &Logger{pool: pool}
}

// Append inserts one entry inside the caller's transaction.
func (l *Logger) Append(ctx context.Context, tx pgx.Tx, entry Entry) error {
	if entry.UserID == "" {
		return fmt.Errorf("activity: missing user id")
	}
	if entry.Action == "" {
		return fmt.Errorf("activity: missing action")
	}

	var contractID any
	if entry.ContractID != nil && *entry.ContractID != "" {
		contractID = *entry.ContractID
	}

	const insertSQL = `
		INSERT INTO activity_logs (contract_id, user_id, action, details)
		VALUES ($1, $2, $3, NULLIF($4, ''))
	`
	if _, err := tx.Exec(ctx, insertSQL, contractID, entry.UserID, entry.Action, entry.Details); err != nil {
		return fmt.Errorf("activity: insert entry: %w", err)
	}
	return nil
}

// Recent returns the latest entries ordered newest first. Timestamp ties are
// broken by the monotonic row id.
func (l *Logger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	const query = `
		SELECT id, contract_id, user_id, action, COALESCE(details, ''), ts
		FROM activity_logs
		ORDER BY ts DESC, id DESC
		LIMIT $1
	`
	return l.queryEntries(ctx, query, limit)
}

// ByContract returns every entry tied to the contract, newest first.
func (l *Logger) ByContract(ctx context.Context, contractID string) ([]Entry, error) {
	const query = `
		SELECT id, contract_id, user_id, action, COALESCE(details, ''), ts
		FROM activity_logs
		WHERE contract_id = $1
		ORDER BY ts DESC, id DESC
	`
	return l.queryEntries(ctx, query, contractID)
}

// ByUser returns every entry recorded by the user, newest first.
func (l *Logger) ByUser(ctx context.Context, userID string) ([]Entry, error) {
	const query = `
		SELECT id, contract_id, user_id, action, COALESCE(details, ''), ts
		FROM activity_logs
		WHERE user_id = $1
		ORDER BY ts DESC, id DESC
	`
	return l.queryEntries(ctx, query, userID)
}

func (l *Logger) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("activity: query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ContractID, &e.UserID, &e.Action, &e.Details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("activity: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
