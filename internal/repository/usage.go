package repository

import (
	"context"
	"sync"
	"time"

	"github.com/kalori-makanan/kalori-api/internal/domain"
)

// UsageLog is the append-only record of admitted requests and the single
// source of truth for sliding-window counts. CountBetween uses a half-open
// interval: records strictly after start and at or before end.
type UsageLog interface {
	Append(ctx context.Context, rec domain.UsageRecord) error
	CountBetween(ctx context.Context, keyID int64, start, end time.Time) (int, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// InMemoryUsageLog keeps records per key in memory. Single instance only.
type InMemoryUsageLog struct {
	mu      sync.Mutex
	records map[int64][]domain.UsageRecord
}

func NewInMemoryUsageLog() *InMemoryUsageLog {
	return &InMemoryUsageLog{
		records: make(map[int64][]domain.UsageRecord),
	}
}

func (l *InMemoryUsageLog) Append(ctx context.Context, rec domain.UsageRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[rec.KeyID] = append(l.records[rec.KeyID], rec)

	return nil
}

func (l *InMemoryUsageLog) CountBetween(ctx context.Context, keyID int64, start, end time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, rec := range l.records[keyID] {
		if rec.Timestamp.After(start) && !rec.Timestamp.After(end) {
			count++
		}
	}

	return count, nil
}

func (l *InMemoryUsageLog) Purge(ctx context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var removed int64
	for keyID, recs := range l.records {
		kept := recs[:0]
		for _, rec := range recs {
			if rec.Timestamp.Before(before) {
				removed++
				continue
			}
			kept = append(kept, rec)
		}
		if len(kept) == 0 {
			delete(l.records, keyID)
		} else {
			l.records[keyID] = kept
		}
	}

	return removed, nil
}

// Len reports the total number of stored records, for tests.
func (l *InMemoryUsageLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, recs := range l.records {
		total += len(recs)
	}
	return total
}
