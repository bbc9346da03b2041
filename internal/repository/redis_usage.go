package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kalori-makanan/kalori-api/internal/domain"
)

const redisKeyIndex = "usage:keys"

// RedisUsageLog stores usage records in one sorted set per key, scored by
// timestamp. A shared Redis lets multiple instances count against the same
// log. Members embed a UUID so same-nanosecond records are not collapsed.
type RedisUsageLog struct {
	client *redis.Client
}

func NewRedisUsageLog(redisURL string) (*RedisUsageLog, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisUsageLog{client: client}, nil
}

func NewRedisUsageLogWithClient(client *redis.Client) *RedisUsageLog {
	return &RedisUsageLog{client: client}
}

func (l *RedisUsageLog) Append(ctx context.Context, rec domain.UsageRecord) error {
	key := usageKey(rec.KeyID)
	member := fmt.Sprintf("%d|%s|%s", rec.Timestamp.UnixNano(), rec.Endpoint, uuid.NewString())

	pipe := l.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(rec.Timestamp.UnixNano()),
		Member: member,
	})
	pipe.SAdd(ctx, redisKeyIndex, rec.KeyID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append usage record: %w", err)
	}

	return nil
}

func (l *RedisUsageLog) CountBetween(ctx context.Context, keyID int64, start, end time.Time) (int, error) {
	// (start, end]: exclusive lower bound per Redis range syntax.
	min := "(" + strconv.FormatInt(start.UnixNano(), 10)
	max := strconv.FormatInt(end.UnixNano(), 10)

	count, err := l.client.ZCount(ctx, usageKey(keyID), min, max).Result()
	if err != nil {
		return 0, fmt.Errorf("count usage records: %w", err)
	}

	return int(count), nil
}

func (l *RedisUsageLog) Purge(ctx context.Context, before time.Time) (int64, error) {
	ids, err := l.client.SMembers(ctx, redisKeyIndex).Result()
	if err != nil {
		return 0, fmt.Errorf("list usage keys: %w", err)
	}

	max := "(" + strconv.FormatInt(before.UnixNano(), 10)

	var removed int64
	for _, id := range ids {
		keyID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		key := usageKey(keyID)

		n, err := l.client.ZRemRangeByScore(ctx, key, "0", max).Result()
		if err != nil {
			return removed, fmt.Errorf("purge usage records: %w", err)
		}
		removed += n

		if card, err := l.client.ZCard(ctx, key).Result(); err == nil && card == 0 {
			l.client.SRem(ctx, redisKeyIndex, id)
		}
	}

	return removed, nil
}

func (l *RedisUsageLog) Close() error {
	return l.client.Close()
}

func (l *RedisUsageLog) Client() *redis.Client {
	return l.client
}

func usageKey(keyID int64) string {
	return "usage:" + strconv.FormatInt(keyID, 10)
}
