// Package ratelimit decides per-key admission across several sliding time
// windows backed by the usage log, plus a process-local concurrency gate.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/kalori-makanan/kalori-api/internal/domain"
	"github.com/kalori-makanan/kalori-api/internal/repository"
)

// Window pairs a time horizon with the maximum requests permitted inside it.
type Window struct {
	Name     string
	Limit    int
	Duration time.Duration
}

// DefaultWindows is the reference configuration. Every decision evaluates
// all windows; a request is admitted only when each has headroom.
func DefaultWindows() []Window {
	return []Window{
		{Name: "minute", Limit: 10, Duration: time.Minute},
		{Name: "hour", Limit: 200, Duration: time.Hour},
		{Name: "day", Limit: 500, Duration: 24 * time.Hour},
	}
}

// WindowUsage reports one window's figures for a decision.
type WindowUsage struct {
	Name     string `json:"name"`
	Limit    int    `json:"limit"`
	Used     int    `json:"used"`
	Breached bool   `json:"breached"`
}

func (u WindowUsage) Remaining() int {
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

// Decision is the outcome of one multi-window check. When denied, Windows
// carries the observed counts and RetryAfter is sized to the smallest
// breached window.
type Decision struct {
	Allowed    bool
	Windows    []WindowUsage
	RetryAfter time.Duration
}

// Limiter counts usage records per window and records admitted requests.
//
// Check and the subsequent Append are not one atomic operation: two
// concurrent requests for the same key can both pass the count before either
// writes, overshooting a limit by a small margin. That is the accepted
// guarantee here; the log backend stays simple and denials never write.
type Limiter struct {
	log     repository.UsageLog
	windows []Window
}

func NewLimiter(log repository.UsageLog, windows []Window) *Limiter {
	if len(windows) == 0 {
		windows = DefaultWindows()
	}
	return &Limiter{log: log, windows: windows}
}

func (l *Limiter) Windows() []Window {
	return l.windows
}

// Check evaluates every window at instant now. If all have headroom it
// appends a usage record and reports the post-write counts; if any window is
// at its limit it denies without writing.
func (l *Limiter) Check(ctx context.Context, keyID int64, endpoint string, now time.Time) (*Decision, error) {
	usage, err := l.count(ctx, keyID, now)
	if err != nil {
		return nil, err
	}

	denied := false
	retryAfter := time.Duration(0)
	for i, w := range l.windows {
		if usage[i].Used >= w.Limit {
			usage[i].Breached = true
			denied = true
			if retryAfter == 0 || w.Duration < retryAfter {
				retryAfter = w.Duration
			}
		}
	}

	if denied {
		return &Decision{Allowed: false, Windows: usage, RetryAfter: retryAfter}, nil
	}

	rec := domain.UsageRecord{KeyID: keyID, Endpoint: endpoint, Timestamp: now}
	if err := l.log.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("record admitted request: %w", err)
	}

	// Reported figures include the request just admitted.
	for i := range usage {
		usage[i].Used++
	}

	return &Decision{Allowed: true, Windows: usage}, nil
}

// Peek reports current per-window usage without recording anything.
func (l *Limiter) Peek(ctx context.Context, keyID int64, now time.Time) (*Decision, error) {
	usage, err := l.count(ctx, keyID, now)
	if err != nil {
		return nil, err
	}

	allowed := true
	for i, w := range l.windows {
		if usage[i].Used >= w.Limit {
			usage[i].Breached = true
			allowed = false
		}
	}

	return &Decision{Allowed: allowed, Windows: usage}, nil
}

func (l *Limiter) count(ctx context.Context, keyID int64, now time.Time) ([]WindowUsage, error) {
	usage := make([]WindowUsage, len(l.windows))
	for i, w := range l.windows {
		count, err := l.log.CountBetween(ctx, keyID, now.Add(-w.Duration), now)
		if err != nil {
			return nil, fmt.Errorf("count window %s: %w", w.Name, err)
		}
		usage[i] = WindowUsage{Name: w.Name, Limit: w.Limit, Used: count}
	}

	return usage, nil
}
