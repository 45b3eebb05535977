package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/config"
)

const (
	onlineUsersKey = "online_users"
	blacklistKey   = "blacklist:"
	rateKey        = "rate:"
)

// Client wraps the Redis connection used for presence, the logout-token
// fast path and message rate limiting.
type Client struct {
	rdb *redis.Client
}

func NewRedis(cfg *config.Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Client{rdb: rdb}, nil
}

func (c *Client) MarkUserOnline(ctx context.Context, userID string) error {
	return c.rdb.SAdd(ctx, onlineUsersKey, userID).Err()
}

func (c *Client) MarkUserOffline(ctx context.Context, userID string) error {
	return c.rdb.SRem(ctx, onlineUsersKey, userID).Err()
}

func (c *Client) OnlineUsers(ctx context.Context) ([]string, error) {
	return c.rdb.SMembers(ctx, onlineUsersKey).Result()
}

// CacheBlacklistedToken mirrors a blacklisted token so the auth middleware
// can skip the Mongo lookup on the hot path.
func (c *Client) CacheBlacklistedToken(ctx context.Context, token string, ttl time.Duration) error {
	return c.rdb.Set(ctx, blacklistKey+token, "1", ttl).Err()
}

func (c *Client) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistKey+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const luaRateLimit = `
local current = redis.call("incr", KEYS[1])
if current == 1 then
  redis.call("expire", KEYS[1], ARGV[1])
end
return current
`

// AllowMessage applies a fixed-window rate limit per sender.
func (c *Client) AllowMessage(ctx context.Context, userID string, limit int, window time.Duration) (bool, error) {
	count, err := c.rdb.Eval(ctx, luaRateLimit, []string{rateKey + userID}, int(window.Seconds())).Int()
	if err != nil {
		return false, err
	}
	return count <= limit, nil
}

func (c *Client) Close() error { return c.rdb.Close() }
