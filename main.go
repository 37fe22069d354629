package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parkingreserve/config"
	"parkingreserve/database"
	"parkingreserve/handlers"
	"parkingreserve/routes"
	"parkingreserve/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	// 載入 .env 檔案
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using default environment variables: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 日誌同時寫到 stdout 與輪替檔案
	if cfg.LogFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   true,
		}
		defer rotating.Close()
		out := io.MultiWriter(os.Stdout, rotating)
		log.SetOutput(out)
		gin.DefaultWriter = out
		gin.DefaultErrorWriter = out
	}

	gin.SetMode(cfg.GinMode)
	log.Printf("Gin mode set to %s", cfg.GinMode)

	// 初始化資料庫
	db, err := database.Open(database.Options{
		DSN:     cfg.DSN(),
		Release: cfg.GinMode == gin.ReleaseMode && !config.DebugSQL(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := services.NewTxRunner(db, cfg.TxMaxAttempts, cfg.TxBaseBackoff)
	members := services.NewMemberService(runner)

	// 確保預設管理員存在
	if err := members.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to ensure admin exists: %v", err)
	}

	cache := services.NewAvailabilityCache(database.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), cfg.CacheTTL)

	notifiers := []services.Notifier{services.LogNotifier{}}
	if cfg.RabbitMQURL != "" {
		amqpNotifier, err := services.NewAMQPNotifier(cfg.RabbitMQURL, cfg.EventQueue)
		if err != nil {
			log.Printf("RabbitMQ unavailable, events go to log only: %v", err)
		} else {
			defer amqpNotifier.Close()
			notifiers = append(notifiers, amqpNotifier)
		}
	}
	events := services.NewDispatcher(cfg.NotifyTimeout, cfg.NotifyRate, services.LogReceiptGenerator{}, notifiers...)

	ledger := services.NewCapacityLedger(nil)
	engine := services.NewReservationEngine(runner, ledger, events, cache, nil)
	lifecycle := services.NewLifecycleCoordinator(runner, ledger, engine, events, cfg.CheckInGrace, nil)

	h := &handlers.Handler{
		Members:   members,
		Vehicles:  services.NewVehicleService(runner),
		Locations: services.NewLocationService(runner, ledger, cache),
		Engine:    engine,
		Lifecycle: lifecycle,
		Wallet:    services.NewWalletService(runner, nil),
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	// 初始化 Gin 路由器
	r := gin.Default()
	routes.Register(r, h, cfg.JWTSecret)

	// 啟動定時任務
	c := cron.New()
	_, err = c.AddFunc(cfg.ExpirySchedule, func() {
		log.Println("Checking for expired reservations...")
		n, err := lifecycle.ExpireOverdue(ctx)
		if err != nil {
			log.Printf("Failed to expire some reservations: %v", err)
		}
		if n > 0 {
			log.Printf("Expired %d reservations", n)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule expired reservations check cron job: %v", err)
	}
	c.Start()
	log.Println("Cron jobs started")

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		// 啟動伺服器
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	<-c.Stop().Done()
	events.Wait()
	log.Println("Server exited")
}
