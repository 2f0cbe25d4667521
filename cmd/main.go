package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arzan03/EduHub/internal/config"
	"github.com/arzan03/EduHub/internal/db"
	"github.com/arzan03/EduHub/internal/db/memdb"
	"github.com/arzan03/EduHub/internal/events"
	"github.com/arzan03/EduHub/internal/handlers"
	"github.com/arzan03/EduHub/internal/logging"
	"github.com/arzan03/EduHub/internal/services"
	"github.com/arzan03/EduHub/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	stores, pinger, closeDB := openStores(cfg, logger)
	defer closeDB()

	avatars, served := objectStore(cfg, logger)

	var publisher events.Publisher = events.Nop{}
	if cfg.NatsURL != "" {
		nc, err := events.Connect(cfg.NatsURL, logger)
		if err != nil {
			logger.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer nc.Close()
		publisher = nc
	}

	exams := services.NewExamService(stores, publisher, logger)
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := handlers.NewApp(handlers.Options{
		Services: handlers.Services{
			Auth:      services.NewAuthService(stores.Users, cfg.JWTSecret, cfg.JWTTTL, logger),
			Users:     services.NewUserService(stores, avatars, logger),
			Tasks:     services.NewTaskService(stores, publisher, logger),
			Exams:     exams,
			Chat:      services.NewChatService(stores, publisher, logger),
			Dashboard: services.NewDashboardService(stores, exams),
			Calendar:  services.NewCalendarService(stores),
		},
		DB:          pinger,
		Log:         logger,
		Registry:    registry,
		Development: cfg.IsDevelopment(),
		CORSOrigins: cfg.CORSOrigins,
		Version:     cfg.Version,
		Avatars:     served,
	})

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openStores connects to MongoDB. MONGO_URI=memory keeps everything in
// process memory, which is only allowed in development.
func openStores(cfg *config.Config, logger *zap.Logger) (services.Stores, handlers.Pinger, func()) {
	if cfg.MongoURI == config.MemoryURI {
		if !cfg.IsDevelopment() {
			logger.Fatal("in-memory storage is only available in development")
		}
		logger.Warn("using in-memory storage, data is lost on restart")
		mem := memdb.New()
		return services.Stores{
			Users:    memdb.NewUserRepository(mem),
			Tasks:    memdb.NewTaskRepository(mem),
			Exams:    memdb.NewExamRepository(mem),
			Results:  memdb.NewResultRepository(mem),
			Messages: memdb.NewMessageRepository(mem),
		}, mem, func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	mongoDB, err := db.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB, logger)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	if err := db.EnsureIndexes(ctx, mongoDB); err != nil {
		logger.Fatal("failed to create indexes", zap.Error(err))
	}

	stores := services.Stores{
		Users:    db.NewUserRepository(mongoDB),
		Tasks:    db.NewTaskRepository(mongoDB),
		Exams:    db.NewExamRepository(mongoDB),
		Results:  db.NewResultRepository(mongoDB),
		Messages: db.NewMessageRepository(mongoDB),
	}
	closeDB := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoDB.Client().Disconnect(ctx); err != nil {
			logger.Error("failed to disconnect from MongoDB", zap.Error(err))
		}
	}
	return stores, db.NewPinger(mongoDB), closeDB
}

// objectStore connects to MinIO. In development an unreachable MinIO falls
// back to process memory, and those avatars are then served by the API
// itself under /avatars.
func objectStore(cfg *config.Config, logger *zap.Logger) (services.ObjectStore, handlers.AvatarSource) {
	store, err := storage.NewMinioStore(storage.Options{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
		PublicURL: cfg.MinioPublicURL,
	}, logger)
	if err == nil {
		return store, nil
	}
	if !cfg.IsDevelopment() {
		logger.Fatal("failed to initialize MinIO", zap.Error(err))
	}
	logger.Warn("MinIO unavailable, keeping avatars in memory", zap.Error(err))
	mem := storage.NewMemoryStore("http://localhost:" + cfg.Port + "/avatars")
	return mem, mem
}
