package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalori-makanan/kalori-api/internal/auth"
	"github.com/kalori-makanan/kalori-api/internal/domain"
	"github.com/kalori-makanan/kalori-api/internal/metrics"
	"github.com/kalori-makanan/kalori-api/internal/notifications"
	"github.com/kalori-makanan/kalori-api/internal/ratelimit"
	"github.com/kalori-makanan/kalori-api/internal/repository"
)

type HandlerConfig struct {
	Keys     *auth.KeyService
	Limiter  *ratelimit.Limiter
	Gate     *ratelimit.Gate
	Usage    repository.UsageLog
	Foods    repository.FoodRepository
	Admin    *auth.AdminGuard
	Notifier notifications.Notifier

	// Retention is the default horizon for POST /admin/cleanup.
	Retention time.Duration

	Checkers []HealthChecker
}

type Handler struct {
	keys      *auth.KeyService
	limiter   *ratelimit.Limiter
	gate      *ratelimit.Gate
	usage     repository.UsageLog
	foods     repository.FoodRepository
	admin     *auth.AdminGuard
	notifier  notifications.Notifier
	retention time.Duration
	checkers  []HealthChecker
	mux       *http.ServeMux
}

func NewHandler(cfg HandlerConfig) *Handler {
	retention := cfg.Retention
	if retention == 0 {
		retention = 7 * 24 * time.Hour
	}

	h := &Handler{
		keys:      cfg.Keys,
		limiter:   cfg.Limiter,
		gate:      cfg.Gate,
		usage:     cfg.Usage,
		foods:     cfg.Foods,
		admin:     cfg.Admin,
		notifier:  cfg.Notifier,
		retention: retention,
		checkers:  cfg.Checkers,
		mux:       http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /foods/search/{name}/calories", h.protect("/foods/search/{name}/calories", h.handleFoodCalories))
	h.mux.HandleFunc("GET /foods/search", h.protect("/foods/search", h.handleSearchFoods))
	h.mux.HandleFunc("GET /foods/{id}", h.protect("/foods/{id}", h.handleFoodDetail))
	h.mux.HandleFunc("GET /foods", h.protect("/foods", h.handleListFoods))
	h.mux.HandleFunc("GET /categories", h.protect("/categories", h.handleListCategories))

	h.mux.HandleFunc("POST /keys", h.handleIssueKey)
	h.mux.HandleFunc("GET /rate-limit/status", h.handleRateLimitStatus)
	h.mux.HandleFunc("POST /admin/cleanup", h.handleCleanup)

	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /health/live", h.handleHealthLive)
	h.mux.HandleFunc("GET /health/ready", h.handleHealthReady)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleSearchFoods(w http.ResponseWriter, r *http.Request, _ *domain.KeyInfo) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if len(name) < 2 {
		writeError(w, http.StatusBadRequest, "Search term must be at least 2 characters long")
		return
	}

	foods, err := h.foods.SearchByName(r.Context(), name)
	if err != nil {
		slog.Error("food search failed", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, domain.FoodSearchResponse{
		Total: len(foods),
		Foods: foods,
	})
}

func (h *Handler) handleFoodDetail(w http.ResponseWriter, r *http.Request, _ *domain.KeyInfo) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid food ID")
		return
	}

	food, err := h.foods.GetByID(r.Context(), id)
	if errors.Is(err, domain.ErrFoodNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Food with ID %d not found", id))
		return
	}
	if err != nil {
		slog.Error("food lookup failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, food)
}

func (h *Handler) handleListFoods(w http.ResponseWriter, r *http.Request, _ *domain.KeyInfo) {
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)
	if page < 1 {
		writeError(w, http.StatusBadRequest, "page must be >= 1")
		return
	}
	if perPage < 1 || perPage > 100 {
		writeError(w, http.StatusBadRequest, "per_page must be between 1 and 100")
		return
	}

	total, err := h.foods.Total(r.Context())
	if err != nil {
		slog.Error("food count failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	foods, err := h.foods.List(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		slog.Error("food list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, domain.FoodListResponse{
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Foods:   foods,
	})
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request, _ *domain.KeyInfo) {
	categories, err := h.foods.Categories(r.Context())
	if err != nil {
		slog.Error("category list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if categories == nil {
		categories = []domain.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) handleFoodCalories(w http.ResponseWriter, r *http.Request, _ *domain.KeyInfo) {
	name := r.PathValue("name")

	foods, err := h.foods.SearchByName(r.Context(), name)
	if err != nil {
		slog.Error("food search failed", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(foods) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("No food found matching '%s'", name))
		return
	}

	first := foods[0]
	writeJSON(w, http.StatusOK, map[string]any{
		"food_name":     first.Name,
		"calories_kcal": first.CaloriesKcal,
		"serving":       first.Serving,
		"total_matches": len(foods),
	})
}

type issueKeyRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

type issueKeyResponse struct {
	APIKey  string `json:"api_key"`
	KeyID   int64  `json:"key_id"`
	Message string `json:"message"`
}

func (h *Handler) handleIssueKey(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Authorize(r); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req issueKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	secret, key, err := h.keys.Issue(r.Context(), req.UserID, req.Name)
	if errors.Is(err, domain.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		slog.Error("key issuance failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.KeysIssuedTotal.Inc()
	slog.Info("API key issued", "key_id", key.ID, "user_id", key.UserID)
	h.notifyKeyIssued(key.ID, key.UserID)

	writeJSON(w, http.StatusCreated, issueKeyResponse{
		APIKey:  secret,
		KeyID:   key.ID,
		Message: "API key created successfully. Store this key securely as it won't be shown again.",
	})
}

type windowStatus struct {
	Limit     int `json:"limit"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

type rateLimitStatusResponse struct {
	Status string                  `json:"status"`
	User   map[string]string       `json:"user"`
	Limits map[string]windowStatus `json:"limits"`
}

// handleRateLimitStatus reports current usage without consuming quota:
// it validates the key and peeks at the counters, skipping the gate and the
// limiter's write entirely.
func (h *Handler) handleRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	apiKey := r.Header.Get(APIKeyHeader)
	if apiKey == "" {
		writeError(w, http.StatusUnauthorized, "API key required")
		return
	}

	info, err := h.keys.Validate(r.Context(), apiKey)
	if err != nil {
		slog.Error("key validation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if info == nil {
		writeError(w, http.StatusUnauthorized, "Invalid API key")
		return
	}

	decision, err := h.limiter.Peek(r.Context(), info.KeyID, time.Now())
	if err != nil {
		slog.Error("rate limit peek failed", "key_id", info.KeyID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	limits := make(map[string]windowStatus, len(decision.Windows))
	for _, u := range decision.Windows {
		limits["per_"+u.Name] = windowStatus{
			Limit:     u.Limit,
			Used:      u.Used,
			Remaining: u.Remaining(),
		}
	}

	writeJSON(w, http.StatusOK, rateLimitStatusResponse{
		Status: "active",
		User: map[string]string{
			"email": info.UserEmail,
			"name":  info.UserName,
		},
		Limits: limits,
	})
}

type cleanupRequest struct {
	RetentionDays int `json:"retention_days"`
}

// handleCleanup deletes usage records older than the retention horizon.
// The default horizon exceeds the largest window, so counting is never
// starved by cleanup running alongside traffic.
func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Authorize(r); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	retention := h.retention
	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RetentionDays > 0 {
		retention = time.Duration(req.RetentionDays) * 24 * time.Hour
	}

	removed, err := h.usage.Purge(r.Context(), time.Now().Add(-retention))
	if err != nil {
		slog.Error("usage cleanup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.UsagePurgedTotal.Add(float64(removed))
	slog.Info("usage log purged", "removed", removed, "retention", retention)

	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":   removed,
		"retention": retention.String(),
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	})
}
