package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/youth-scoreboard/internal/config"
	"github.com/youth-scoreboard/internal/domain"
)

// ViewCache caches spectator views so public polling does not hit the store
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewViewCache connects to Redis and creates a view cache
func NewViewCache(cfg *config.RedisConfig, logger *slog.Logger) (*ViewCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewViewCacheWithClient(client, cfg.ViewTTL, logger), nil
}

// NewViewCacheWithClient wraps an existing client
func NewViewCacheWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ViewCache {
	return &ViewCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Close closes the Redis connection
func (c *ViewCache) Close() error {
	return c.client.Close()
}

// Ping checks that Redis answers
func (c *ViewCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// viewKey returns the Redis key for a match's public view
func (c *ViewCache) viewKey(code string) string {
	return fmt.Sprintf("match:%s:public", code)
}

// scoreKey returns the Redis key for a match's scoreboard hash
func (c *ViewCache) scoreKey(code string) string {
	return fmt.Sprintf("match:%s:score", code)
}

// GetPublicView returns the cached view, or nil on a miss
func (c *ViewCache) GetPublicView(ctx context.Context, code string) (*domain.PublicView, error) {
	data, err := c.client.Get(ctx, c.viewKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting public view: %w", err)
	}

	var view domain.PublicView
	if err := json.Unmarshal(data, &view); err != nil {
		c.logger.Warn("dropping undecodable cached view", "code", code, "error", err)
		_ = c.client.Del(ctx, c.viewKey(code)).Err()
		return nil, nil
	}
	return &view, nil
}

// SetPublicView stores the view and its scoreboard summary in one pipeline
func (c *ViewCache) SetPublicView(ctx context.Context, view *domain.PublicView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encoding public view: %w", err)
	}

	scoreKey := c.scoreKey(view.PublicCode)
	pipe := c.client.Pipeline()
	pipe.Set(ctx, c.viewKey(view.PublicCode), data, c.ttl)
	pipe.HSet(ctx, scoreKey,
		"status", string(view.Status),
		"quarter", view.CurrentQuarter,
		"home", view.HomeScore,
		"away", view.AwayScore,
	)
	if c.ttl > 0 {
		pipe.Expire(ctx, scoreKey, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("setting public view: %w", err)
	}
	return nil
}

// Scoreboard is the compact score summary kept next to the cached view
type Scoreboard struct {
	Status  domain.MatchStatus
	Quarter int
	Home    int
	Away    int
}

// GetScoreboard reads the cached score summary of a match
func (c *ViewCache) GetScoreboard(ctx context.Context, code string) (*Scoreboard, error) {
	var raw struct {
		Status  string `redis:"status"`
		Quarter int    `redis:"quarter"`
		Home    int    `redis:"home"`
		Away    int    `redis:"away"`
	}
	res := c.client.HGetAll(ctx, c.scoreKey(code))
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("getting scoreboard: %w", err)
	}
	if len(res.Val()) == 0 {
		return nil, domain.ErrMatchNotFound
	}
	if err := res.Scan(&raw); err != nil {
		return nil, fmt.Errorf("decoding scoreboard: %w", err)
	}
	return &Scoreboard{
		Status:  domain.MatchStatus(raw.Status),
		Quarter: raw.Quarter,
		Home:    raw.Home,
		Away:    raw.Away,
	}, nil
}

// InvalidatePublicView removes the cached view of a match
func (c *ViewCache) InvalidatePublicView(ctx context.Context, code string) error {
	pipe := c.client.Pipeline()
	pipe.Del(ctx, c.viewKey(code))
	pipe.Del(ctx, c.scoreKey(code))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidating public view: %w", err)
	}
	return nil
}
