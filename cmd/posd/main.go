package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cartsvc "github.com/armangral/atta-chakki-tracker-app/internal/cart/service"
	"github.com/armangral/atta-chakki-tracker-app/internal/catalog/cache"
	catalogsvc "github.com/armangral/atta-chakki-tracker-app/internal/catalog/service"
	checkoutsvc "github.com/armangral/atta-chakki-tracker-app/internal/checkout/service"
	h "github.com/armangral/atta-chakki-tracker-app/internal/http"
	"github.com/armangral/atta-chakki-tracker-app/internal/journal"
	"github.com/armangral/atta-chakki-tracker-app/internal/sales/client"
	"github.com/armangral/atta-chakki-tracker-app/internal/sales/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	HTTPPort        string
	SalesAPIURL     string
	RedisAddr       string
	JournalDBPath   string
	JournalMigPath  string
	DeviceID        string
	DeviceName      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		SalesAPIURL:     getEnv("SALES_API_URL", "http://localhost:8081"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		JournalDBPath:   getEnv("JOURNAL_DB_PATH", "./posd-journal.db"),
		JournalMigPath:  getEnv("JOURNAL_MIGRATIONS_PATH", "./internal/journal/migrations"),
		DeviceID:        getEnv("DEVICE_ID", ""),
		DeviceName:      getEnv("DEVICE_NAME", "POS Device"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	log.Println("posd starting...")

	cfg := loadConfig()

	// Device identity, used for sales API calls made outside an operator
	// session (catalog refresh, sales-log reads)
	deviceID, err := uuid.Parse(cfg.DeviceID)
	if err != nil {
		deviceID = uuid.New()
		log.Printf("no DEVICE_ID configured, using %s", deviceID)
	}
	device := domain.Operator{ID: deviceID, Name: cfg.DeviceName}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	salesClient := client.New(cfg.SalesAPIURL, device, 10*time.Second)
	snapshots := catalogsvc.NewSnapshotService(salesClient, cache.NewRedisCache(redisClient))
	carts := cartsvc.NewManager(snapshots)

	deviceJournal, err := journal.New(cfg.JournalDBPath)
	if err != nil {
		log.Fatalf("Failed to open journal database: %v", err)
	}
	defer deviceJournal.Close()

	if err := deviceJournal.RunMigrations(cfg.JournalMigPath); err != nil {
		log.Fatalf("Failed to run journal migrations: %v", err)
	}

	processor := checkoutsvc.NewProcessor(carts, salesClient, deviceJournal, snapshots)

	posHandler := h.NewPOSHandler(snapshots, carts, processor, salesClient, deviceJournal, cfg.RequestTimeout)
	router := h.NewPOSRouter(posHandler, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "posd"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("posd listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down posd...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	log.Println("posd stopped")
}
