package repository

import (
	"context"
	"sync"
	"time"

	"github.com/kalori-makanan/kalori-api/internal/domain"
)

// KeyRepository persists API keys. Keys are looked up by digest and are
// deactivated rather than deleted so usage history survives revocation.
type KeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByHash(ctx context.Context, keyHash string) (*domain.KeyInfo, error)
	Deactivate(ctx context.Context, id int64) error
	TouchLastUsed(ctx context.Context, id int64) error
}

// UserRepository persists the principals keys are issued to.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type InMemoryKeyRepository struct {
	mu     sync.RWMutex
	nextID int64
	keys   map[int64]*domain.APIKey
	hashes map[string]int64
	users  *InMemoryUserRepository
}

func NewInMemoryKeyRepository(users *InMemoryUserRepository) *InMemoryKeyRepository {
	return &InMemoryKeyRepository{
		nextID: 1,
		keys:   make(map[int64]*domain.APIKey),
		hashes: make(map[string]int64),
		users:  users,
	}
}

func (r *InMemoryKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key.ID = r.nextID
	r.nextID++
	key.Active = true
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}

	cp := *key
	r.keys[key.ID] = &cp
	r.hashes[key.KeyHash] = key.ID

	return nil
}

func (r *InMemoryKeyRepository) GetByHash(ctx context.Context, keyHash string) (*domain.KeyInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.hashes[keyHash]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}

	key := r.keys[id]
	if key == nil || !key.Active {
		return nil, domain.ErrKeyNotFound
	}

	info := &domain.KeyInfo{
		KeyID:  key.ID,
		UserID: key.UserID,
	}

	if r.users != nil {
		if user, err := r.users.GetByID(ctx, key.UserID); err == nil {
			info.UserEmail = user.Email
			info.UserName = user.Name
		}
	}

	return info, nil
}

func (r *InMemoryKeyRepository) Deactivate(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[id]
	if !ok {
		return domain.ErrKeyNotFound
	}
	key.Active = false

	return nil
}

func (r *InMemoryKeyRepository) TouchLastUsed(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[id]
	if !ok {
		return domain.ErrKeyNotFound
	}
	now := time.Now()
	key.LastUsedAt = &now

	return nil
}

// LastUsedAt reports the stored last-used time, for tests of the best-effort
// touch on validation.
func (r *InMemoryKeyRepository) LastUsedAt(id int64) *time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.keys[id]
	if !ok {
		return nil
	}
	return key.LastUsedAt
}

type InMemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*domain.User
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		nextID: 1,
		users:  make(map[int64]*domain.User),
	}
}

func (r *InMemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = r.nextID
	r.nextID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	cp := *user
	r.users[user.ID] = &cp

	return nil
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	cp := *user
	return &cp, nil
}
