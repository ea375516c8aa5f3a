package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"restopos/backend/internal/cache"
	"restopos/backend/internal/config"
	"restopos/backend/internal/domain"
	"restopos/backend/internal/events"
	"restopos/backend/internal/httpapi"
	"restopos/backend/internal/logger"
	"restopos/backend/internal/realtime"
	"restopos/backend/internal/service"
	"restopos/backend/internal/storage"
	"restopos/backend/internal/store"
	"restopos/backend/internal/store/memory"
	pgstore "restopos/backend/internal/store/postgres"
	"restopos/backend/internal/suggestion"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal("invalid security configuration", zap.Error(err))
	}

	location, err := time.LoadLocation(cfg.RestaurantTimezone)
	if err != nil {
		log.Fatal("invalid RESTAURANT_TIMEZONE", zap.String("timezone", cfg.RestaurantTimezone), zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 3)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded(cfg.RestaurantID)
		log.Info("repository: in-memory")
	}

	summaryCache := cache.SummaryCache(cache.NoopSummaryCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSummaryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("redis unavailable, using noop cache", zap.Error(err))
		} else {
			summaryCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Info("cache: redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		log.Info("cache: noop")
	}

	hub := realtime.NewHub(log)
	publishers := events.Multi{hub}
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			if cfg.AppEnv == "production" {
				log.Fatal("rabbitmq connection failed", zap.Error(err))
			}
			log.Warn("rabbitmq connection failed; bill events stay local", zap.Error(err))
		} else {
			publishers = append(publishers, rabbit)
			closers = append(closers, rabbit.Close)
			log.Info("events: rabbitmq", zap.String("exchange", cfg.RabbitMQExchange))
		}
	}

	var archiver service.Archiver
	if cfg.ObjectStoreEnabled() {
		objectStore, err := storage.NewObjectStore(ctx, storage.Config{
			Endpoint:        cfg.ObjectStoreEndpoint,
			Region:          cfg.ObjectStoreRegion,
			AccessKeyID:     cfg.ObjectStoreAccessKey,
			SecretAccessKey: cfg.ObjectStoreSecretKey,
			Bucket:          cfg.ObjectStoreBucket,
			PublicBaseURL:   cfg.ObjectStorePublicURL,
			StorageClass:    cfg.ObjectStoreStorageClass,
		})
		if err != nil {
			log.Warn("object store disabled", zap.Error(err))
		} else {
			archiver = objectStore
			log.Info("object store: enabled", zap.String("bucket", cfg.ObjectStoreBucket))
		}
	}

	svc := service.New(repo, suggestion.NewEngine(location), service.Options{
		DefaultRestaurantID: cfg.RestaurantID,
		DefaultSettings:     defaultSettings(cfg),
		Location:            location,
		SummaryCache:        summaryCache,
		SummaryTTL:          time.Duration(cfg.SummaryCacheTTLSeconds) * time.Second,
		Publisher:           publishers,
		Archiver:            archiver,
		Logger:              log,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, cfg.ManagerPIN, cfg.RestaurantID, repo, log)
	api := httpapi.New(svc, auth, hub, cfg.AllowedOrigins, log)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("restopos backend listening", zap.String("addr", cfg.Address()), zap.String("timezone", location.String()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}

	log.Info("server stopped")
}

// defaultSettings are served until an admin saves restaurant settings.
func defaultSettings(cfg config.Config) domain.Settings {
	return domain.Settings{
		RestaurantID:                 cfg.RestaurantID,
		RestaurantName:               cfg.RestaurantName,
		GSTScheme:                    cfg.DefaultGSTScheme,
		GSTRate:                      cfg.DefaultGSTRate,
		ServiceChargeRate:            cfg.DefaultServiceChargeRate,
		ApplyServiceChargeToTakeaway: cfg.ApplyServiceChargeToTakeaway,
		EnablePackagingCharge:        cfg.EnablePackagingCharge,
		DefaultPackagingCharge:       cfg.DefaultPackagingCharge,
		Currency:                     cfg.Currency,
		RoundingUnit:                 cfg.RoundingUnit,
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.ManagerPIN) < 6 {
		return fmt.Errorf("MANAGER_PIN must be set and at least 6 digits")
	}
	if err := validatePINStrength(cfg.ManagerPIN); err != nil {
		return fmt.Errorf("MANAGER_PIN is too weak: %w", err)
	}
	if len(cfg.AllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS must list at least one origin")
	}
	if cfg.AppEnv == "production" {
		for _, origin := range cfg.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be * in production")
			}
		}
	}
	return nil
}

// validatePINStrength rejects PINs that are all the same digit,
// sequential (ascending or descending), or from a known-weak list.
func validatePINStrength(pin string) error {
	known := map[string]bool{
		"123456": true, "654321": true, "000000": true, "111111": true,
		"222222": true, "333333": true, "444444": true, "555555": true,
		"666666": true, "777777": true, "888888": true, "999999": true,
		"121212": true, "112233": true, "123123": true,
	}
	if known[pin] {
		return fmt.Errorf("common PIN not allowed")
	}

	allSame := true
	for i := 1; i < len(pin); i++ {
		if pin[i] != pin[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("all-same-digit PIN not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(pin); i++ {
		diff := int(pin[i]) - int(pin[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential PIN not allowed")
	}

	return nil
}
