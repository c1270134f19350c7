package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"uniconnect.app/campus/internal/config"
	"uniconnect.app/campus/internal/server"
	"uniconnect.app/campus/pkg/database"
	"uniconnect.app/campus/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.AppEnv)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *gorm.DB
	if cfg.StoreDriver == config.StoreDriverPostgres {
		db, err = database.Connect(cfg.DSN(), cfg.AppEnv == "development")
		if err != nil {
			log.Fatal("database connection failed", zap.Error(err))
		}
		if err := database.Migrate(db); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
	} else {
		log.Warn("using in-memory notification store; data is lost on restart")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisClient.Close()
	} else {
		log.Warn("REDIS_URL is not set; author cooldown is disabled")
	}

	var amqpConn *amqp091.Connection
	if cfg.AMQPURL != "" {
		amqpConn, err = amqp091.Dial(cfg.AMQPURL)
		if err != nil {
			log.Fatal("rabbitmq connection failed", zap.Error(err))
		}
		defer amqpConn.Close()
	}

	srv := server.NewServer(cfg, db, redisClient, amqpConn, log)
	if cfg.SeedDemo {
		if err := srv.Seed(ctx); err != nil {
			log.Error("failed to seed demo notifications", zap.Error(err))
		}
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	log.Info("notification store ready", zap.String("driver", cfg.StoreDriver))
	if err := srv.Run(); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
	// ListenAndServe returns as soon as Shutdown starts; let it finish.
	<-shutdownDone
	log.Info("server stopped")
}
