package tally

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: c}, nil
}

func tallyKey(pollID string) string {
	return fmt.Sprintf("poll:%s:tally", pollID)
}

func (rs *RedisStore) IncrBy(ctx context.Context, pollID, optionID string, delta int64) (int64, error) {
	score, err := rs.client.ZIncrBy(ctx, tallyKey(pollID), float64(delta), optionID).Result()
	if err != nil {
		return 0, fmt.Errorf("zincrby poll %s option %s: %w", pollID, optionID, err)
	}
	return int64(score), nil
}

func (rs *RedisStore) Scores(ctx context.Context, pollID string) (map[string]int64, error) {
	members, err := rs.client.ZRangeWithScores(ctx, tallyKey(pollID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange poll %s: %w", pollID, err)
	}

	scores := make(map[string]int64, len(members))
	for _, m := range members {
		optionID, ok := m.Member.(string)
		if !ok {
			continue
		}
		scores[optionID] = int64(m.Score)
	}
	return scores, nil
}

func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
