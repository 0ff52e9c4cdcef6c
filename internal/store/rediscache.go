package store

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"whiteboard-backend/internal/model"
)

const (
	cacheKeyPrefix = "whiteboard:"
	dirtyHashKey   = "updated_whiteboards"
)

// putScript sets the cache entry and, for client writes, records the key in
// the dirty hash in the same round trip so the sweep never misses a write
// that made it into the cache.
var putScript = redis.NewScript(`
local key = KEYS[1]
local value = ARGV[1]
local ttl = tonumber(ARGV[2])
local timestamp = ARGV[3]
local mark = ARGV[4]

redis.call('SET', key, value, 'EX', ttl)
if mark == '1' then
  redis.call('HSET', '` + dirtyHashKey + `', key, timestamp)
end
return 'OK'
`)

// cacheEntry is the stored value: the document wrapped with its project id.
type cacheEntry struct {
	ProjectID int64                `json:"project_id"`
	Data      model.WhiteboardData `json:"data"`
}

// RedisCache is the fast tier, one JSON value per project under a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(projectID int64) string {
	return cacheKeyPrefix + strconv.FormatInt(projectID, 10)
}

func (c *RedisCache) Get(ctx context.Context, projectID int64) (*model.WhiteboardData, error) {
	val, err := c.client.Get(ctx, cacheKey(projectID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, err
	}
	return &entry.Data, nil
}

func (c *RedisCache) Put(ctx context.Context, projectID int64, data model.WhiteboardData, markDirty bool) error {
	value, err := json.Marshal(cacheEntry{ProjectID: projectID, Data: data})
	if err != nil {
		return err
	}

	mark := "0"
	if markDirty {
		mark = "1"
	}
	ttl := int(c.ttl / time.Second)
	timestamp := strconv.FormatInt(time.Now().UnixNano(), 10)

	return putScript.Run(ctx, c.client, []string{cacheKey(projectID)}, value, ttl, timestamp, mark).Err()
}

func (c *RedisCache) Refresh(ctx context.Context, projectID int64) error {
	return c.client.Expire(ctx, cacheKey(projectID), c.ttl).Err()
}

func (c *RedisCache) DirtyProjects(ctx context.Context) ([]int64, error) {
	keys, err := c.client.HKeys(ctx, dirtyHashKey).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(keys))
	for _, key := range keys {
		idStr, ok := strings.CutPrefix(key, cacheKeyPrefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *RedisCache) ClearDirty(ctx context.Context, projectID int64) error {
	return c.client.HDel(ctx, dirtyHashKey, cacheKey(projectID)).Err()
}
