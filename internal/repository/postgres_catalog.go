package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kalori-makanan/kalori-api/internal/domain"
)

type PostgresFoodRepository struct {
	db *sql.DB
}

func NewPostgresFoodRepository(db *sql.DB) *PostgresFoodRepository {
	return &PostgresFoodRepository{db: db}
}

const foodColumns = `
	SELECT f.id, f.name, f.serving, f.weight_g, f.calories_kcal, f.reference, c.name
	FROM foods f
	LEFT JOIN categories c ON f.category_id = c.id
`

func (r *PostgresFoodRepository) SearchByName(ctx context.Context, name string) ([]domain.Food, error) {
	query := foodColumns + ` WHERE f.name ILIKE '%' || $1 || '%' ORDER BY f.name`

	rows, err := r.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("search foods: %w", err)
	}
	defer rows.Close()

	return scanFoods(rows)
}

func (r *PostgresFoodRepository) GetByID(ctx context.Context, id int64) (*domain.Food, error) {
	query := foodColumns + ` WHERE f.id = $1`

	food, err := scanFood(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrFoodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query food: %w", err)
	}

	return food, nil
}

func (r *PostgresFoodRepository) List(ctx context.Context, limit, offset int) ([]domain.Food, error) {
	query := foodColumns + ` ORDER BY f.id LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list foods: %w", err)
	}
	defer rows.Close()

	return scanFoods(rows)
}

func (r *PostgresFoodRepository) Total(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM foods`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count foods: %w", err)
	}

	return count, nil
}

func (r *PostgresFoodRepository) Categories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFood(row rowScanner) (*domain.Food, error) {
	var food domain.Food
	var serving, reference, category sql.NullString
	var weight, calories sql.NullFloat64

	err := row.Scan(&food.ID, &food.Name, &serving, &weight, &calories, &reference, &category)
	if err != nil {
		return nil, err
	}

	food.Serving = serving.String
	food.Reference = reference.String
	food.Category = category.String
	if weight.Valid {
		food.WeightG = &weight.Float64
	}
	if calories.Valid {
		food.CaloriesKcal = &calories.Float64
	}

	return &food, nil
}

func scanFoods(rows *sql.Rows) ([]domain.Food, error) {
	var out []domain.Food
	for rows.Next() {
		food, err := scanFood(rows)
		if err != nil {
			return nil, fmt.Errorf("scan food: %w", err)
		}
		out = append(out, *food)
	}

	return out, rows.Err()
}
