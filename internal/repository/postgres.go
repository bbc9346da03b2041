package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/kalori-makanan/kalori-api/internal/domain"
)

// Open connects to Postgres and verifies connectivity.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

type PostgresKeyRepository struct {
	db *sql.DB
}

func NewPostgresKeyRepository(db *sql.DB) *PostgresKeyRepository {
	return &PostgresKeyRepository{db: db}
}

func (r *PostgresKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	query := `
		INSERT INTO api_keys (user_id, key_hash, name, is_active, created_at)
		VALUES ($1, $2, $3, true, NOW())
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, key.UserID, key.KeyHash, key.Name).
		Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	key.Active = true

	return nil
}

func (r *PostgresKeyRepository) GetByHash(ctx context.Context, keyHash string) (*domain.KeyInfo, error) {
	query := `
		SELECT ak.id, ak.user_id, u.email, u.name
		FROM api_keys ak
		JOIN users u ON ak.user_id = u.id
		WHERE ak.key_hash = $1 AND ak.is_active = true
	`

	var info domain.KeyInfo
	err := r.db.QueryRowContext(ctx, query, keyHash).Scan(
		&info.KeyID,
		&info.UserID,
		&info.UserEmail,
		&info.UserName,
	)

	if err == sql.ErrNoRows {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query api key: %w", err)
	}

	return &info, nil
}

func (r *PostgresKeyRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE api_keys SET is_active = false WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate api key: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrKeyNotFound
	}

	return nil
}

func (r *PostgresKeyRepository) TouchLastUsed(ctx context.Context, id int64) error {
	query := `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		// Best-effort caller path; still surface the error for logging.
		slog.Debug("touch last_used_at failed", "key_id", id, "error", err)
		return fmt.Errorf("touch api key: %w", err)
	}

	return nil
}

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (email, name, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, user.Email, user.Name).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT id, email, name, created_at FROM users WHERE id = $1`

	var user domain.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}
