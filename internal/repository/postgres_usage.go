package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kalori-makanan/kalori-api/internal/domain"
)

type PostgresUsageLog struct {
	db *sql.DB
}

func NewPostgresUsageLog(db *sql.DB) *PostgresUsageLog {
	return &PostgresUsageLog{db: db}
}

func (l *PostgresUsageLog) Append(ctx context.Context, rec domain.UsageRecord) error {
	query := `
		INSERT INTO usage_log (key_id, endpoint, ts)
		VALUES ($1, $2, $3)
	`

	_, err := l.db.ExecContext(ctx, query, rec.KeyID, rec.Endpoint, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}

	return nil
}

func (l *PostgresUsageLog) CountBetween(ctx context.Context, keyID int64, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM usage_log
		WHERE key_id = $1 AND ts > $2 AND ts <= $3
	`

	var count int
	err := l.db.QueryRowContext(ctx, query, keyID, start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count usage records: %w", err)
	}

	return count, nil
}

func (l *PostgresUsageLog) Purge(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM usage_log WHERE ts < $1`

	result, err := l.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("purge usage records: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge usage records: %w", err)
	}

	return removed, nil
}
