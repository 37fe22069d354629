package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 服務執行時設定，全部來自環境變數（可由 .env 載入）
type Config struct {
	Port    string
	GinMode string

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	JWTSecret string
	TokenTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	RabbitMQURL string
	EventQueue  string

	TxMaxAttempts  int
	TxBaseBackoff  time.Duration
	CheckInGrace   time.Duration
	ExpirySchedule string
	NotifyTimeout  time.Duration
	NotifyRate     float64

	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int

	AdminEmail    string
	AdminPassword string
}

// Load 讀取環境變數並套用預設值
func Load() (Config, error) {
	cfg := Config{
		Port:    envStr("APP_PORT", "8080"),
		GinMode: envStr("GIN_MODE", "release"),

		DBUser: envStr("DB_USER", "parking_user"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: envStr("DB_HOST", "127.0.0.1"),
		DBPort: envStr("DB_PORT", "3306"),
		DBName: envStr("DB_NAME", "parking_db"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  envDur("TOKEN_TTL", 24*time.Hour),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		CacheTTL:      envDur("CACHE_TTL", 30*time.Second),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
		EventQueue:  envStr("EVENT_QUEUE", "parking.reservation.events"),

		TxMaxAttempts:  envInt("TX_MAX_ATTEMPTS", 5),
		TxBaseBackoff:  envDur("TX_BASE_BACKOFF", 20*time.Millisecond),
		CheckInGrace:   envDur("CHECK_IN_GRACE", 15*time.Minute),
		ExpirySchedule: envStr("EXPIRY_SCHEDULE", "*/5 * * * *"),
		NotifyTimeout:  envDur("NOTIFY_TIMEOUT", 5*time.Second),
		NotifyRate:     envFloat("NOTIFY_RATE", 20),

		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: envInt("LOG_MAX_BACKUPS", 5),

		AdminEmail:    envStr("ADMIN_EMAIL", "admin@parking.local"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if len(cfg.JWTSecret) < 16 {
		return cfg, fmt.Errorf("JWT_SECRET must be at least 16 bytes long, got %d bytes", len(cfg.JWTSecret))
	}
	// 交易至少重試 3 次
	if cfg.TxMaxAttempts < 3 {
		cfg.TxMaxAttempts = 3
	}
	if cfg.TxBaseBackoff <= 0 {
		cfg.TxBaseBackoff = 20 * time.Millisecond
	}
	return cfg, nil
}

// DSN 組出 MySQL 連線字串
func (c Config) DSN() string {
	auth := c.DBUser
	if c.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", c.DBUser, c.DBPass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		auth, c.DBHost, c.DBPort, c.DBName)
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

// DebugSQL 是否輸出完整 SQL 日誌
func DebugSQL() bool {
	return envBool("DEBUG_SQL", false)
}
