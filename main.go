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

	"citycare-be/config"
	"citycare-be/controllers"
	"citycare-be/directory"
	"citycare-be/logger"
	"citycare-be/routes"
	"citycare-be/services"
	"citycare-be/store"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.Env)
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issueStore, profiles, opts, cleanup, err := buildStore(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialise storage", zap.Error(err))
	}
	defer cleanup()

	opts = append(opts, services.WithTransitionAttempts(cfg.TransitionRetries))
	service := services.NewIssueService(issueStore, zlog.Named("issues"), opts...)
	presenter := directory.NewPopulator(profiles, zlog.Named("populate"))
	router := routes.NewRouter(cfg, controllers.NewIssueController(service, presenter, zlog), zlog)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server listening", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildStore wires the configured issue store and, for mongo, the users
// directory that populates responses and verifies assignees.
func buildStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (store.IssueStore, directory.ProfileLookup, []services.Option, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		zlog.Warn("using in-memory issue store; data is lost on restart")
		return store.NewMemoryIssueStore(), nil, nil, func() {}, nil
	}

	client, db, err := config.ConnectDB(ctx, cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	zlog.Info("MongoDB connection established", zap.String("database", cfg.MongoDatabase))

	closers := []func(){func() { disconnect(client, zlog) }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	issueStore := store.NewMongoIssueStore(db, cfg.StoreTimeout)
	if err := issueStore.EnsureIndexes(ctx); err != nil {
		cleanup()
		return nil, nil, nil, nil, err
	}

	users := directory.NewMongoDirectory(db, cfg.StoreTimeout)
	var opts []services.Option
	if cfg.VerifyAssignee {
		var dir directory.ActorDirectory = users

		rdb, err := config.ConnectRedis(ctx, cfg)
		if err != nil {
			cleanup()
			return nil, nil, nil, nil, err
		}
		if rdb != nil {
			closers = append(closers, func() { _ = rdb.Close() })
			dir = directory.NewCachedDirectory(dir, directory.NewRedisRoleCache(rdb, ""), cfg.ActorCacheTTL, zlog.Named("directory"))
			zlog.Info("actor role cache enabled", zap.Duration("ttl", cfg.ActorCacheTTL))
		}
		opts = append(opts, services.WithAssigneeVerification(dir))
	}
	return issueStore, users, opts, cleanup, nil
}

func disconnect(client *mongo.Client, zlog *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		zlog.Error("failed to disconnect MongoDB", zap.Error(err))
	}
}
