package secrets

import (
	"context"
	"testing"
)

func TestInMemorySecretStore(t *testing.T) {
	store := NewInMemorySecretStore()
	ctx := context.Background()

	store.SetSecret("db", "postgres://localhost/kalori")

	value, err := store.GetSecret(ctx, "db")
	if err != nil {
		t.Fatalf("GetSecret() error = %v", err)
	}
	if value != "postgres://localhost/kalori" {
		t.Errorf("GetSecret() = %q", value)
	}

	if _, err := store.GetSecret(ctx, "missing"); err == nil {
		t.Error("missing secret should error")
	}
}

func TestInMemorySecretStore_JSON(t *testing.T) {
	store := NewInMemorySecretStore()
	ctx := context.Background()

	store.SetSecret("db", `{"database_url":"postgres://host/db","admin_token_hash":"$2a$10$abc"}`)

	var sec DatabaseSecret
	if err := store.GetSecretJSON(ctx, "db", &sec); err != nil {
		t.Fatalf("GetSecretJSON() error = %v", err)
	}
	if sec.DatabaseURL != "postgres://host/db" {
		t.Errorf("DatabaseURL = %q", sec.DatabaseURL)
	}
	if sec.AdminTokenHash != "$2a$10$abc" {
		t.Errorf("AdminTokenHash = %q", sec.AdminTokenHash)
	}

	store.SetSecret("bad", "{not json")
	if err := store.GetSecretJSON(ctx, "bad", &sec); err == nil {
		t.Error("invalid JSON should error")
	}
}
