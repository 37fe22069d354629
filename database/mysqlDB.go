package database

import (
	"fmt"
	"log"
	"time"

	"parkingreserve/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options 連線設定
type Options struct {
	DSN           string
	Release       bool // release 模式減少 SQL 日誌
	MaxRetries    int
	RetryInterval time.Duration
}

// Open 連線 MySQL（含重試與連線池），回傳注入給各服務的 *gorm.DB
func Open(opts Options) (*gorm.DB, error) {
	logLevel := logger.Info
	if opts.Release {
		logLevel = logger.Warn
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 5 * time.Second
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < opts.MaxRetries; i++ {
		db, err = gorm.Open(mysql.Open(opts.DSN), &gorm.Config{
			Logger: logger.Default.LogMode(logLevel),
		})
		if err == nil {
			break
		}
		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, opts.MaxRetries, err)
		if i < opts.MaxRetries-1 {
			time.Sleep(opts.RetryInterval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open database after %d attempts: %w", opts.MaxRetries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	// 連線池配置
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	var dbName string
	if err := db.Raw("SELECT DATABASE()").Scan(&dbName).Error; err != nil {
		return nil, fmt.Errorf("get current database: %w", err)
	}
	log.Printf("Connected to database: %s", dbName)
	return db, nil
}

// Migrate 執行資料表遷移
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Println("Database migration completed")
	return nil
}
