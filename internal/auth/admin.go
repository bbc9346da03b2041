package auth

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrUnauthorized = errors.New("unauthorized")

// AdminGuard verifies the bearer token on admin endpoints (key issuance,
// retention cleanup) against a bcrypt hash from configuration. When no hash
// is configured the guard is disabled, which is only acceptable for local
// development.
type AdminGuard struct {
	tokenHash string
}

func NewAdminGuard(tokenHash string) *AdminGuard {
	return &AdminGuard{tokenHash: tokenHash}
}

func (g *AdminGuard) Enabled() bool {
	return g.tokenHash != ""
}

func (g *AdminGuard) Authorize(r *http.Request) error {
	if !g.Enabled() {
		return nil
	}

	token := bearerToken(r)
	if token == "" {
		return ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(g.tokenHash), []byte(token)); err != nil {
		return ErrUnauthorized
	}

	return nil
}

// HashAdminToken produces the bcrypt hash to place in ADMIN_TOKEN_HASH.
func HashAdminToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
