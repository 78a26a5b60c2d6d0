package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores computed student reports in redis with a TTL. A nil Cache
// disables caching entirely.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func reportKey(studentID string, from, to time.Time) string {
	return fmt.Sprintf("classtrack:report:%s:%s:%s", studentID, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// Get returns the cached report, or false on a miss. Redis failures count
// as misses so reporting keeps working without the cache.
func (c *Cache) Get(ctx context.Context, studentID string, from, to time.Time) (StudentReport, bool) {
	if c == nil || c.client == nil {
		return StudentReport{}, false
	}
	raw, err := c.client.Get(ctx, reportKey(studentID, from, to)).Bytes()
	if err != nil {
		// misses and redis failures both fall through to recompute
		return StudentReport{}, false
	}
	var rep StudentReport
	if err := json.Unmarshal(raw, &rep); err != nil {
		return StudentReport{}, false
	}
	return rep, true
}

// Set stores a report, best effort.
func (c *Cache) Set(ctx context.Context, rep StudentReport) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(rep)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, reportKey(rep.StudentID, rep.From, rep.To), raw, c.ttl).Err()
}
