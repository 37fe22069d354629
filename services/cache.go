package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Availability 某停車場在指定時段的容量快照
type Availability struct {
	LocationID      int       `json:"location_id"`
	TotalSlots      int       `json:"total_slots"`
	AvailableSlots  int       `json:"available_slots"`
	Overlapping     int       `json:"overlapping"`
	FreeForInterval int       `json:"free_for_interval"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
}

// AvailabilityCache Redis 快取，client 為 nil 時停用
// 每個停車場有一個版本號，事件發生時遞增版本即讓舊快取失效
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &AvailabilityCache{client: client, ttl: ttl}
}

func (c *AvailabilityCache) enabled() bool {
	return c != nil && c.client != nil
}

func versionKey(locationID int) string {
	return fmt.Sprintf("parking:availability:%d:ver", locationID)
}

func (c *AvailabilityCache) entryKey(ctx context.Context, locationID int, start, end time.Time) (string, error) {
	ver, err := c.client.Get(ctx, versionKey(locationID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("parking:availability:%d:v%d:%d:%d", locationID, ver, start.Unix(), end.Unix()), nil
}

// Get 回傳快取內容與本次讀到版本號組成的 key；未命中時呼叫端用同一個 key 回填，
// 讀資料庫期間若版本已遞增，回填的資料就落在舊版本底下不會被讀到
// 快取停用或 Redis 錯誤時 key 為空字串
func (c *AvailabilityCache) Get(ctx context.Context, locationID int, start, end time.Time) (*Availability, string, bool) {
	if !c.enabled() {
		return nil, "", false
	}
	key, err := c.entryKey(ctx, locationID, start, end)
	if err != nil {
		log.Printf("Availability cache key lookup failed: %v", err)
		return nil, "", false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Availability cache get failed: %v", err)
		}
		return nil, key, false
	}
	var a Availability
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, key, false
	}
	return &a, key, true
}

// Set key 必須是讀資料庫之前由 Get 取得的
func (c *AvailabilityCache) Set(ctx context.Context, key string, a *Availability) {
	if !c.enabled() || key == "" {
		return
	}
	body, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, body, c.ttl).Err(); err != nil {
		log.Printf("Availability cache set failed: %v", err)
	}
}

// Invalidate 遞增停車場版本號；呼叫端取消 ctx 也照樣執行
func (c *AvailabilityCache) Invalidate(ctx context.Context, locationID int) {
	if !c.enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := c.client.Incr(ctx, versionKey(locationID)).Err(); err != nil {
		log.Printf("Availability cache invalidate failed for location %d: %v", locationID, err)
	}
}
