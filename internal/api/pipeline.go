package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kalori-makanan/kalori-api/internal/domain"
	"github.com/kalori-makanan/kalori-api/internal/metrics"
	"github.com/kalori-makanan/kalori-api/internal/notifications"
	"github.com/kalori-makanan/kalori-api/internal/ratelimit"
	"github.com/kalori-makanan/kalori-api/internal/telemetry"
)

// APIKeyHeader carries the bearer credential on every protected call.
const APIKeyHeader = "X-API-Key"

// gateRetryAfter is the fixed hint returned when the concurrency gate is full.
const gateRetryAfter = 5 * time.Second

type authedHandler func(w http.ResponseWriter, r *http.Request, info *domain.KeyInfo)

// protect composes the per-request decision sequence in front of a business
// handler: resolve the credential, reserve a concurrency slot, evaluate the
// rate limiter, then run the handler with the slot held. The slot is released
// on every exit path, including client disconnects, via defer.
func (h *Handler) protect(endpoint string, next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx, span := telemetry.StartSpan(r.Context(), "pipeline.decide")
		defer span.End()
		r = r.WithContext(ctx)

		apiKey := r.Header.Get(APIKeyHeader)
		if apiKey == "" {
			metrics.AuthFailures.Inc()
			metrics.RecordRequest(endpoint, "unauthenticated", time.Since(start).Seconds())
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		info, err := h.keys.Validate(ctx, apiKey)
		if err != nil {
			// Storage fault: neither an auth nor a rate-limit decision.
			telemetry.AddErrorAttribute(span, err)
			slog.Error("key validation failed", "error", err, "request_id", requestID)
			metrics.RecordRequest(endpoint, "fault", time.Since(start).Seconds())
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if info == nil {
			metrics.AuthFailures.Inc()
			metrics.RecordRequest(endpoint, "unauthenticated", time.Since(start).Seconds())
			writeError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}

		telemetry.AddRequestAttributes(span, info.KeyID, endpoint, requestID)

		if !h.gate.TryAcquire() {
			metrics.GateRejections.Inc()
			metrics.RecordRequest(endpoint, "overloaded", time.Since(start).Seconds())
			slog.Warn("concurrency gate full", "key_id", info.KeyID, "request_id", requestID)
			w.Header().Set("Retry-After", strconv.Itoa(int(gateRetryAfter.Seconds())))
			writeError(w, http.StatusServiceUnavailable, "Server overloaded. Maximum concurrent requests exceeded.")
			return
		}
		defer func() {
			h.gate.Release()
			metrics.GateInFlight.Set(float64(h.gate.InFlight()))
		}()
		metrics.GateInFlight.Set(float64(h.gate.InFlight()))

		decision, err := h.limiter.Check(ctx, info.KeyID, endpoint, time.Now())
		if err != nil {
			telemetry.AddErrorAttribute(span, err)
			slog.Error("rate limit check failed", "error", err, "key_id", info.KeyID, "request_id", requestID)
			metrics.RecordRequest(endpoint, "fault", time.Since(start).Seconds())
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		telemetry.AddDecisionAttributes(span, decision.Allowed, int(decision.RetryAfter.Seconds()))
		for _, u := range decision.Windows {
			w.Header().Set("X-RateLimit-Limit-"+headerName(u.Name), strconv.Itoa(u.Limit))
		}

		if !decision.Allowed {
			for _, u := range decision.Windows {
				w.Header().Set("X-RateLimit-Used-"+headerName(u.Name), strconv.Itoa(u.Used))
				if u.Breached {
					metrics.RecordRateLimitHit(u.Name)
				}
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
			metrics.RecordRequest(endpoint, "rate_limited", time.Since(start).Seconds())
			slog.Warn("rate limit exceeded", "key_id", info.KeyID, "endpoint", endpoint, "request_id", requestID)
			h.notifyRateLimited(info.KeyID, endpoint, decision)
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		for _, u := range decision.Windows {
			w.Header().Set("X-RateLimit-Remaining-"+headerName(u.Name), strconv.Itoa(u.Remaining()))
		}

		next(w, r, info)

		metrics.RecordRequest(endpoint, "ok", time.Since(start).Seconds())
	}
}

// notifyRateLimited publishes an abuse signal in the background. Denied
// requests write no usage record, so this is the only durable trace of
// sustained over-limit traffic. Failures are logged and ignored.
func (h *Handler) notifyRateLimited(keyID int64, endpoint string, decision *ratelimit.Decision) {
	if h.notifier == nil {
		return
	}

	breached := make([]string, 0, len(decision.Windows))
	for _, u := range decision.Windows {
		if u.Breached {
			breached = append(breached, u.Name)
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := h.notifier.Send(ctx, notifications.Notification{
			Type:    notifications.NotificationRateLimited,
			KeyID:   keyID,
			Message: "rate limit exceeded",
			Data: map[string]any{
				"endpoint": endpoint,
				"breached": breached,
			},
		})
		if err != nil {
			slog.Warn("rate limit notification failed", "key_id", keyID, "error", err)
		}
	}()
}

func (h *Handler) notifyKeyIssued(keyID, userID int64) {
	if h.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := h.notifier.Send(ctx, notifications.Notification{
			Type:    notifications.NotificationKeyIssued,
			KeyID:   keyID,
			Message: "API key issued",
			Data:    map[string]any{"user_id": userID},
		})
		if err != nil {
			slog.Warn("key issuance notification failed", "key_id", keyID, "error", err)
		}
	}()
}

func headerName(window string) string {
	if window == "" {
		return window
	}
	return string(window[0]-'a'+'A') + window[1:]
}
