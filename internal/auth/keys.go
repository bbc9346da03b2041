// Package auth issues and validates API keys and guards admin endpoints.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalori-makanan/kalori-api/internal/crypto"
	"github.com/kalori-makanan/kalori-api/internal/domain"
	"github.com/kalori-makanan/kalori-api/internal/repository"
)

// KeyService issues API keys and resolves presented secrets to key info.
type KeyService struct {
	keys  repository.KeyRepository
	users repository.UserRepository
}

func NewKeyService(keys repository.KeyRepository, users repository.UserRepository) *KeyService {
	return &KeyService{keys: keys, users: users}
}

// Issue generates a new key for a user and stores only its digest. The
// returned plaintext is shown exactly once; it cannot be recovered later.
func (s *KeyService) Issue(ctx context.Context, userID int64, name string) (string, *domain.APIKey, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return "", nil, err
	}

	secret, err := crypto.GenerateAPIKey()
	if err != nil {
		return "", nil, err
	}

	if name == "" {
		name = "Default API Key"
	}

	key := &domain.APIKey{
		UserID:  userID,
		KeyHash: crypto.HashAPIKey(secret),
		Name:    name,
	}

	if err := s.keys.Create(ctx, key); err != nil {
		return "", nil, fmt.Errorf("create API key: %w", err)
	}

	return secret, key, nil
}

// Validate digests the presented secret and looks up an active key.
// A miss returns (nil, nil): bad input is an expected outcome, distinct from
// a storage fault. On a hit the last-used time is updated in the background;
// that write never blocks or fails the validation.
func (s *KeyService) Validate(ctx context.Context, secret string) (*domain.KeyInfo, error) {
	info, err := s.keys.GetByHash(ctx, crypto.HashAPIKey(secret))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	go func(keyID int64) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.keys.TouchLastUsed(ctx, keyID); err != nil {
			slog.Warn("failed to update key last_used_at", "key_id", keyID, "error", err)
		}
	}(info.KeyID)

	return info, nil
}

// Revoke deactivates a key. History is kept; the key stops validating.
func (s *KeyService) Revoke(ctx context.Context, keyID int64) error {
	return s.keys.Deactivate(ctx, keyID)
}
