package database

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// OpenRedis 連線 Redis；addr 為空或連不上時回傳 nil，呼叫端應停用快取
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		log.Println("REDIS_ADDR not set, availability cache disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Failed to connect to redis at %s, availability cache disabled: %v", addr, err)
		_ = client.Close()
		return nil
	}
	log.Printf("Connected to redis: %s", addr)
	return client
}
