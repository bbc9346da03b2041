package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/kalori-makanan/kalori-api/internal/repository"
)

func testWindows() []Window {
	return []Window{
		{Name: "minute", Limit: 10, Duration: time.Minute},
		{Name: "hour", Limit: 200, Duration: time.Hour},
		{Name: "day", Limit: 500, Duration: 24 * time.Hour},
	}
}

func findWindow(t *testing.T, d *Decision, name string) WindowUsage {
	t.Helper()
	for _, w := range d.Windows {
		if w.Name == name {
			return w
		}
	}
	t.Fatalf("window %q not reported", name)
	return WindowUsage{}
}

func TestLimiter_AdmitsUnderLimit(t *testing.T) {
	log := repository.NewInMemoryUsageLog()
	limiter := NewLimiter(log, testWindows())
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 10; i++ {
		dec, err := limiter.Check(ctx, 1, "/foods/search", base.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !dec.Allowed {
			t.Fatalf("request %d should be admitted", i)
		}
		if got := findWindow(t, dec, "minute").Used; got != i+1 {
			t.Errorf("request %d: minute used = %d, want %d", i, got, i+1)
		}
	}
}

func TestLimiter_DeniesAtMinuteLimit(t *testing.T) {
	log := repository.NewInMemoryUsageLog()
	limiter := NewLimiter(log, testWindows())
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 10; i++ {
		limiter.Check(ctx, 1, "/foods/search", base.Add(time.Duration(i)*time.Second))
	}

	dec, err := limiter.Check(ctx, 1, "/foods/search", base.Add(10*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed {
		t.Fatal("11th request within a minute should be denied")
	}

	minute := findWindow(t, dec, "minute")
	if !minute.Breached {
		t.Error("minute window should report breached")
	}
	if minute.Used != 10 || minute.Limit != 10 {
		t.Errorf("minute used/limit = %d/%d, want 10/10", minute.Used, minute.Limit)
	}

	// Hour window still counts the 10 admitted requests but is not breached.
	hour := findWindow(t, dec, "hour")
	if hour.Breached {
		t.Error("hour window should not be breached")
	}
	if hour.Used != 10 {
		t.Errorf("hour used = %d, want 10", hour.Used)
	}

	if dec.RetryAfter != time.Minute {
		t.Errorf("RetryAfter = %v, want 1m (smallest breached window)", dec.RetryAfter)
	}
}

func TestLimiter_DenialWritesNoRecord(t *testing.T) {
	log := repository.NewInMemoryUsageLog()
	limiter := NewLimiter(log, []Window{{Name: "minute", Limit: 2, Duration: time.Minute}})
	ctx := context.Background()
	now := time.Now()

	limiter.Check(ctx, 1, "/foods", now)
	limiter.Check(ctx, 1, "/foods", now)

	before := log.Len()
	dec, err := limiter.Check(ctx, 1, "/foods", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed {
		t.Fatal("third request should be denied")
	}
	if log.Len() != before {
		t.Errorf("denied request wrote a record: log size %d -> %d", before, log.Len())
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	log := repository.NewInMemoryUsageLog()
	limiter := NewLimiter(log, []Window{{Name: "minute", Limit: 10, Duration: time.Minute}})
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 10; i++ {
		limiter.Check(ctx, 1, "/foods", base)
	}

	if dec, _ := limiter.Check(ctx, 1, "/foods", base.Add(time.Second)); dec.Allowed {
		t.Fatal("should be denied within the window")
	}

	// One window-duration later the old records fall out. A record exactly
	// duration seconds old is excluded (half-open left boundary).
	dec, err := limiter.Check(ctx, 1, "/foods", base.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Allowed {
		t.Error("request one window later should be admitted")
	}
}

func TestLimiter_BoundaryHalfOpen(t *testing.T) {
	log := repository.NewInMemoryUsageLog()
	limiter := NewLimiter(log, []Window{{Name: "minute", Limit: 1, Duration: time.Minute}})
	ctx := context.Background()
	base := time.Now()

	if dec, _ := limiter.Check(ctx, 1, "/foods", base); !dec.Allowed {
		t.Fatal("first request should be admitted")
	}

	// Exactly 60s later: the earlier record sits on the excluded boundary.
	dec, err := limiter.Check(ctx, 1, "/foods", base.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Allowed {
		t.Error("record exactly one duration old should not count")
	}
}

func TestLimiter_KeysIndependent(t *testing.T) {
	log := repository.NewInMemoryUsageLog()
	limiter := NewLimiter(log, []Window{{Name: "minute", Limit: 1, Duration: time.Minute}})
	ctx := context.Background()
	now := time.Now()

	limiter.Check(ctx, 1, "/foods", now)

	if dec, _ := limiter.Check(ctx, 1, "/foods", now); dec.Allowed {
		t.Error("key 1 should be limited")
	}
	if dec, _ := limiter.Check(ctx, 2, "/foods", now); !dec.Allowed {
		t.Error("key 2 should not be limited")
	}
}

func TestLimiter_PeekDoesNotMutate(t *testing.T) {
	log := repository.NewInMemoryUsageLog()
	limiter := NewLimiter(log, testWindows())
	ctx := context.Background()
	now := time.Now()

	limiter.Check(ctx, 1, "/foods", now)

	for i := 0; i < 5; i++ {
		dec, err := limiter.Peek(ctx, 1, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := findWindow(t, dec, "minute").Used; got != 1 {
			t.Errorf("peek %d: minute used = %d, want 1", i, got)
		}
	}

	if log.Len() != 1 {
		t.Errorf("peek mutated the log: %d records, want 1", log.Len())
	}
}

func TestLimiter_ReferenceScenario(t *testing.T) {
	// 10 requests at t=0..9s all admitted; the 11th at t=10s is denied with
	// minute 10/10 breached and the hour count still carrying the 10
	// admitted requests.
	log := repository.NewInMemoryUsageLog()
	limiter := NewLimiter(log, testWindows())
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 10; i++ {
		dec, err := limiter.Check(ctx, 7, "/foods/search", base.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !dec.Allowed {
			t.Fatalf("request %d should be admitted", i)
		}
	}

	dec, err := limiter.Check(ctx, 7, "/foods/search", base.Add(10*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed {
		t.Fatal("11th request should be denied")
	}

	minute := findWindow(t, dec, "minute")
	hour := findWindow(t, dec, "hour")
	if minute.Used != 10 || minute.Limit != 10 {
		t.Errorf("minute = %d/%d, want 10/10", minute.Used, minute.Limit)
	}
	if hour.Used != 10 || hour.Limit != 200 {
		t.Errorf("hour = %d/%d, want 10/200", hour.Used, hour.Limit)
	}
	if dec.RetryAfter != time.Minute {
		t.Errorf("RetryAfter = %v, want 1m", dec.RetryAfter)
	}
}

func TestWindowUsage_Remaining(t *testing.T) {
	tests := []struct {
		name  string
		usage WindowUsage
		want  int
	}{
		{"headroom", WindowUsage{Limit: 10, Used: 3}, 7},
		{"at limit", WindowUsage{Limit: 10, Used: 10}, 0},
		{"over limit", WindowUsage{Limit: 10, Used: 12}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.usage.Remaining(); got != tt.want {
				t.Errorf("Remaining() = %d, want %d", got, tt.want)
			}
		})
	}
}
