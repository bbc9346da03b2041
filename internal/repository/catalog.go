package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kalori-makanan/kalori-api/internal/domain"
)

// FoodRepository is the read-only catalog of foods and categories.
type FoodRepository interface {
	SearchByName(ctx context.Context, name string) ([]domain.Food, error)
	GetByID(ctx context.Context, id int64) (*domain.Food, error)
	List(ctx context.Context, limit, offset int) ([]domain.Food, error)
	Total(ctx context.Context) (int, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

type InMemoryFoodRepository struct {
	mu         sync.RWMutex
	foods      []domain.Food
	categories []domain.Category
}

func NewInMemoryFoodRepository(foods []domain.Food, categories []domain.Category) *InMemoryFoodRepository {
	return &InMemoryFoodRepository{foods: foods, categories: categories}
}

func (r *InMemoryFoodRepository) SearchByName(ctx context.Context, name string) ([]domain.Food, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(name)
	var out []domain.Food
	for _, f := range r.foods {
		if strings.Contains(strings.ToLower(f.Name), needle) {
			out = append(out, f)
		}
	}

	return out, nil
}

func (r *InMemoryFoodRepository) GetByID(ctx context.Context, id int64) (*domain.Food, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.foods {
		if f.ID == id {
			cp := f
			return &cp, nil
		}
	}

	return nil, domain.ErrFoodNotFound
}

func (r *InMemoryFoodRepository) List(ctx context.Context, limit, offset int) ([]domain.Food, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if offset >= len(r.foods) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.foods) {
		end = len(r.foods)
	}

	out := make([]domain.Food, end-offset)
	copy(out, r.foods[offset:end])

	return out, nil
}

func (r *InMemoryFoodRepository) Total(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.foods), nil
}

func (r *InMemoryFoodRepository) Categories(ctx context.Context) ([]domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Category, len(r.categories))
	copy(out, r.categories)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}
