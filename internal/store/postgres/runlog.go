package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/slot-watch/internal/syncer"
)

// SyncRun is one recorded sync execution.
type SyncRun struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Result     syncer.Result `json:"result"`
}

// RunLog appends sync results to the sync_runs table.
type RunLog struct {
	db *sql.DB
}

// NewRunLog creates a run log over a database/sql handle.
func NewRunLog(db *sql.DB) *RunLog {
	return &RunLog{db: db}
}

// RecordRun implements syncer.RunRecorder.
func (l *RunLog) RecordRun(ctx context.Context, startedAt, finishedAt time.Time, res syncer.Result) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sync_runs (
			id, trigger, ok, skipped, source_report_date, source_report_url,
			records_count, specialists_count, changes_count, notifications_count,
			reason, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		uuid.NewString(),
		string(res.Trigger),
		res.OK,
		res.Skipped,
		nullString(res.SourceReportDate),
		nullString(res.SourceReportURL),
		res.RecordsCount,
		res.SpecialistsCount,
		res.ChangesCount,
		res.NotificationsCount,
		nullString(&res.Reason),
		startedAt.UTC(),
		finishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: record sync run: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (l *RunLog) Recent(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, trigger, ok, skipped, source_report_date, source_report_url,
			records_count, specialists_count, changes_count, notifications_count,
			reason, started_at, finished_at
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query sync runs: %w", err)
	}
	defer rows.Close()

	runs := make([]SyncRun, 0)
	for rows.Next() {
		var (
			run               SyncRun
			trigger           string
			date, url, reason sql.NullString
		)
		err := rows.Scan(
			&run.ID, &trigger, &run.Result.OK, &run.Result.Skipped, &date, &url,
			&run.Result.RecordsCount, &run.Result.SpecialistsCount, &run.Result.ChangesCount, &run.Result.NotificationsCount,
			&reason, &run.StartedAt, &run.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan sync run: %w", err)
		}
		run.Result.Trigger = syncer.Trigger(trigger)
		if date.Valid {
			run.Result.SourceReportDate = &date.String
		}
		if url.Valid {
			run.Result.SourceReportURL = &url.String
		}
		run.Result.Reason = reason.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: query sync runs: %w", err)
	}
	return runs, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
