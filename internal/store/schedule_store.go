package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gpwsignals/engine/internal/domain"
)

// SQLScheduleStore is the sqlite-backed ScheduleStore.
type SQLScheduleStore struct {
	db  *DB
	log zerolog.Logger
}

func NewSQLScheduleStore(db *DB, log zerolog.Logger) *SQLScheduleStore {
	return &SQLScheduleStore{db: db, log: log.With().Str("repo", "schedule").Logger()}
}

func (r *SQLScheduleStore) RecordExecution(ctx context.Context, e domain.ScheduleExecution) error {
	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO schedule_executions (kind, started_at, finished_at, items_processed, err_kind, err_message)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(e.Kind), timeStr(e.StartedAt), timeStr(e.FinishedAt), e.ItemsProcessed, e.ErrKind, e.ErrMessage)
	if err != nil {
		return fmt.Errorf("record execution for %s: %w", e.Kind, err)
	}
	return nil
}

func (r *SQLScheduleStore) RecentExecutions(ctx context.Context, kind domain.ScheduleKind, limit int) ([]domain.ScheduleExecution, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, kind, started_at, finished_at, items_processed, err_kind, err_message
		FROM schedule_executions WHERE kind = ? ORDER BY started_at DESC LIMIT ?`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("recent executions for %s: %w", kind, err)
	}
	defer rows.Close()

	var out []domain.ScheduleExecution
	for rows.Next() {
		var e domain.ScheduleExecution
		var kindStr, startedAt, finishedAt string
		if err := rows.Scan(&e.ID, &kindStr, &startedAt, &finishedAt, &e.ItemsProcessed, &e.ErrKind, &e.ErrMessage); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		e.Kind = domain.ScheduleKind(kindStr)
		if e.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if e.FinishedAt, err = parseTime(finishedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
