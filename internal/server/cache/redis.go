package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophfiles/internal/logging"
	"github.com/dmitrijs2005/gophfiles/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gophfiles:file:"

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// entry is the cached form of a record; unlike the client-facing JSON it
// keeps the internal id.
type entry struct {
	ID         string    `json:"id"`
	ShortID    string    `json:"shortId"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	ChunkSize  int       `json:"chunkSize"`
	ChunkCount int       `json:"chunkCount"`
	OwnerID    string    `json:"owner"`
	Private    bool      `json:"private"`
	Persistent bool      `json:"persistent"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Redis struct {
	rdb    redisClient
	ttl    time.Duration
	logger logging.Logger
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedis(cfg RedisConfig, logger logging.Logger) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedis(rdb, cfg.TTL, logger)
}

func newRedis(rdb redisClient, ttl time.Duration, logger logging.Logger) *Redis {
	return &Redis{rdb: rdb, ttl: ttl, logger: logger.With("module", "cache")}
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.rdb.Close()
}

func (c *Redis) Get(ctx context.Context, shortID string) (*models.FileObject, bool) {
	b, err := c.rdb.Get(ctx, keyPrefix+shortID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn(ctx, "cache get failed", "short_id", shortID, "error", err)
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		c.logger.Warn(ctx, "cache entry undecodable", "short_id", shortID, "error", err)
		return nil, false
	}
	return &models.FileObject{
		ID:         e.ID,
		ShortID:    e.ShortID,
		Filename:   e.Filename,
		Size:       e.Size,
		ChunkSize:  e.ChunkSize,
		ChunkCount: e.ChunkCount,
		OwnerID:    e.OwnerID,
		Private:    e.Private,
		Persistent: e.Persistent,
		Tags:       e.Tags,
		Status:     models.StatusComplete,
		CreatedAt:  e.CreatedAt,
	}, true
}

func (c *Redis) Set(ctx context.Context, f *models.FileObject) {
	b, err := json.Marshal(entry{
		ID:         f.ID,
		ShortID:    f.ShortID,
		Filename:   f.Filename,
		Size:       f.Size,
		ChunkSize:  f.ChunkSize,
		ChunkCount: f.ChunkCount,
		OwnerID:    f.OwnerID,
		Private:    f.Private,
		Persistent: f.Persistent,
		Tags:       f.Tags,
		CreatedAt:  f.CreatedAt,
	})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+f.ShortID, b, c.ttl).Err(); err != nil {
		c.logger.Warn(ctx, "cache set failed", "short_id", f.ShortID, "error", err)
	}
}

func (c *Redis) Invalidate(ctx context.Context, shortID string) {
	if err := c.rdb.Del(ctx, keyPrefix+shortID).Err(); err != nil {
		c.logger.Warn(ctx, "cache invalidate failed", "short_id", shortID, "error", err)
	}
}
