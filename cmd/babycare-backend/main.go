package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"babycare-backend/internal/cache"
	"babycare-backend/internal/config"
	"babycare-backend/internal/consumer"
	"babycare-backend/internal/database"
	httpapi "babycare-backend/internal/http"
	"babycare-backend/internal/logger"
	"babycare-backend/internal/mqtt"
	"babycare-backend/internal/redis"
	"babycare-backend/internal/repository"
	"babycare-backend/internal/service"
	"babycare-backend/internal/ws"
)

func main() {
	// .env keeps local development settings out of the shell profile.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "babycare-backend")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting babycare-backend",
		zap.String("http_addr", cfg.HTTP.Addr),
		zap.Bool("mqtt_enabled", cfg.MQTT.Enabled),
	)

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	redisClient := redis.NewRedisClient(&cfg.Redis)
	if err := redis.Ping(context.Background(), redisClient); err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	usersRepo := repository.NewUsersRepository(db, zapLogger)
	readingsRepo := repository.NewReadingsRepository(db, zapLogger)

	registry := ws.NewRegistry(zapLogger)
	latestCache := cache.NewLatestReadingCache(&cfg.Cache, redisClient, zapLogger)
	classifier := service.NewClassifierClient(&cfg.Classifier, zapLogger)
	audioStore, err := service.NewAudioStore(&cfg.Upload, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to prepare upload directory", zap.Error(err))
	}

	authService := service.NewAuthService(usersRepo, &cfg.Auth, zapLogger)
	healthService := service.NewHealthService(readingsRepo, registry, classifier, audioStore, latestCache, zapLogger)

	mw := httpapi.NewAuthMiddleware(authService, zapLogger)
	router := httpapi.NewRouter(zapLogger)
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(authService, zapLogger), mw)
	router.RegisterHealthRoutes(httpapi.NewHealthHandler(healthService, cfg.Upload.MaxBytes, zapLogger), mw)
	router.RegisterWSRoutes(httpapi.NewWSHandler(registry, authService, healthService, zapLogger))
	router.RegisterSystemRoutes(httpapi.NewSystemHandler(db, registry, zapLogger), cfg.Upload.Dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Passive sensor feed. A broker outage must not take the API down.
	var sensorConsumer *consumer.SensorConsumer
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.NewClient(&cfg.MQTT, zapLogger)
		if err != nil {
			zapLogger.Warn("MQTT broker unavailable, continuing without sensor feed", zap.Error(err))
		} else {
			sensorConsumer = consumer.NewSensorConsumer(cfg, mqttClient, healthService, zapLogger)
			go func() {
				if err := sensorConsumer.Start(ctx); err != nil {
					zapLogger.Error("Sensor consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, zapLogger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		zapLogger.Error("HTTP server stopped", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)

	if sensorConsumer != nil {
		_ = sensorConsumer.Stop(shutdownCtx)
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = redis.Close(redisClient)
	_ = database.Close(db)

	zapLogger.Info("Service stopped")
}
