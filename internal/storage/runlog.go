package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wageflow/internal/etl"
)

// ── Run logs ───────────────────────────────────────────────

// CreateRunLog inserts a finished run. An empty ID is assigned a UUID.
func (s *Store) CreateRunLog(ctx context.Context, log *etl.RunLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	d := s.dialect
	marks := make([]any, 10)
	for i := range marks {
		marks[i] = d.Placeholder(i + 1)
	}
	_, err := s.conn.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO etl_run_logs (id, pipeline, started_at, finished_at, status,
		 wage_rows, inflation_rows, merged_rows, output_path, error)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`, marks...),
		log.ID, log.Pipeline, log.StartedAt.UTC(), log.FinishedAt.UTC(), log.Status,
		log.WageRows, log.InflationRows, log.MergedRows, log.OutputPath, log.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

// ListRunLogs returns the most recent runs first, at most limit of them.
func (s *Store) ListRunLogs(ctx context.Context, limit int) ([]etl.RunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, pipeline, started_at, finished_at, status,
		 wage_rows, inflation_rows, merged_rows, output_path, error
		 FROM etl_run_logs ORDER BY started_at DESC LIMIT %d`, limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []etl.RunLog
	for rows.Next() {
		var l etl.RunLog
		var started, finished time.Time
		if err := rows.Scan(&l.ID, &l.Pipeline, &started, &finished, &l.Status,
			&l.WageRows, &l.InflationRows, &l.MergedRows, &l.OutputPath, &l.Error); err != nil {
			return nil, err
		}
		l.StartedAt, l.FinishedAt = started.UTC(), finished.UTC()
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
