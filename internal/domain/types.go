package domain

import "time"

// User is the principal an API key is issued to.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// APIKey is the stored form of a credential. The plaintext secret is never
// persisted; KeyHash holds its SHA-256 digest.
type APIKey struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	KeyHash    string     `json:"-"`
	Name       string     `json:"name"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// KeyInfo is what a successful credential validation resolves to.
type KeyInfo struct {
	KeyID     int64  `json:"key_id"`
	UserID    int64  `json:"user_id"`
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

// UsageRecord marks one admitted request. Append-only.
type UsageRecord struct {
	KeyID     int64     `json:"key_id"`
	Endpoint  string    `json:"endpoint"`
	Timestamp time.Time `json:"timestamp"`
}

// Food is one row of the calorie catalog.
type Food struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Serving      string   `json:"serving,omitempty"`
	WeightG      *float64 `json:"weight_g,omitempty"`
	CaloriesKcal *float64 `json:"calories_kcal,omitempty"`
	Reference    string   `json:"reference,omitempty"`
	Category     string   `json:"category,omitempty"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type FoodSearchResponse struct {
	Total int    `json:"total"`
	Foods []Food `json:"foods"`
}

type FoodListResponse struct {
	Total   int    `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Foods   []Food `json:"foods"`
}
