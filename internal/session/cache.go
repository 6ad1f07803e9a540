package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/saulo-duarte/chronos-prep/internal/config"
)

// LocalCache is the best-effort tier between the in-memory session and the
// remote store. Failures are swallowed; a miss is indistinguishable from an
// error.
type LocalCache interface {
	Load(ctx context.Context, setID, topicID string) (Snapshot, bool)
	Save(ctx context.Context, setID, topicID string, snap Snapshot)
	Delete(ctx context.Context, setID, topicID string)
}

func cacheKey(setID, topicID string) string {
	return fmt.Sprintf("assessment:progress:%s:%s", setID, topicID)
}

func cloneSnapshot(s Snapshot) Snapshot {
	return Snapshot{
		Answers:      append([]int(nil), s.Answers...),
		RemainingSec: s.RemainingSec,
		Locked:       append([]int(nil), s.Locked...),
		Flags:        append([]int(nil), s.Flags...),
	}
}

type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Snapshot
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Snapshot)}
}

func (m *MemoryCache) Load(_ context.Context, setID, topicID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.entries[cacheKey(setID, topicID)]
	if !ok {
		return Snapshot{}, false
	}
	return cloneSnapshot(s), true
}

func (m *MemoryCache) Save(_ context.Context, setID, topicID string, snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[cacheKey(setID, topicID)] = cloneSnapshot(snap)
}

func (m *MemoryCache) Delete(_ context.Context, setID, topicID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, cacheKey(setID, topicID))
}

type RedisCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

const defaultCacheTTL = 24 * time.Hour

// NewRedisCache connects to addr and pings it once.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb, ttl: ttl}, nil
}

func (c *RedisCache) Load(ctx context.Context, setID, topicID string) (Snapshot, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(setID, topicID)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			config.WithContext(ctx).WithError(err).Debug("Local progress cache read failed")
		}
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		config.WithContext(ctx).WithError(err).Debug("Discarding unreadable cached progress")
		return Snapshot{}, false
	}
	return snap, true
}

func (c *RedisCache) Save(ctx context.Context, setID, topicID string, snap Snapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(setID, topicID), raw, c.ttl).Err(); err != nil {
		config.WithContext(ctx).WithError(err).Debug("Local progress cache write failed")
	}
}

func (c *RedisCache) Delete(ctx context.Context, setID, topicID string) {
	if err := c.rdb.Del(ctx, cacheKey(setID, topicID)).Err(); err != nil {
		config.WithContext(ctx).WithError(err).Debug("Local progress cache delete failed")
	}
}

func (c *RedisCache) Close() error { return c.rdb.Close() }

// NewLocalCache picks the Redis tier when addr is set and reachable and falls
// back to process memory otherwise.
func NewLocalCache(ctx context.Context, addr string, ttl time.Duration) LocalCache {
	if addr == "" {
		return NewMemoryCache()
	}
	rc, err := NewRedisCache(ctx, addr, ttl)
	if err != nil {
		config.WithContext(ctx).WithError(err).Warn("Redis progress cache unavailable, using memory")
		return NewMemoryCache()
	}
	return rc
}
