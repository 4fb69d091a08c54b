package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"gopherai-kb/internal/model"
)

type SummaryCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewSummaryCache(client *redisv9.Client, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SummaryCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *SummaryCache) Get(ctx context.Context, summaryType string) (*model.CorpusSummary, bool, error) {
	raw, err := c.client.Get(ctx, c.key(summaryType)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get corpus summary failed: %w", err)
	}

	var summary model.CorpusSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached corpus summary failed: %w", err)
	}
	return &summary, true, nil
}

func (c *SummaryCache) Set(ctx context.Context, summary *model.CorpusSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal corpus summary cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(summary.SummaryType), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set corpus summary failed: %w", err)
	}
	return nil
}

func (c *SummaryCache) Invalidate(ctx context.Context, summaryType string) error {
	if err := c.client.Del(ctx, c.key(summaryType)).Err(); err != nil {
		return fmt.Errorf("redis delete corpus summary failed: %w", err)
	}
	return nil
}

func (c *SummaryCache) key(summaryType string) string {
	return fmt.Sprintf("kb:summary:%s", summaryType)
}
