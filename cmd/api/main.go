package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"textdocs/docs"
	"textdocs/internal/config"
	"textdocs/internal/database"
	"textdocs/internal/database/migration"
	handlers "textdocs/internal/http/handler"
	"textdocs/internal/http/middleware"
	"textdocs/internal/logger"
	"textdocs/internal/otel"
	"textdocs/internal/repository"
	"textdocs/internal/repository/cached"
	"textdocs/internal/repository/mongodb"
	"textdocs/internal/repository/objectstore"
	"textdocs/internal/repository/postgres"
	"textdocs/internal/service"
	"textdocs/internal/storage"
)

// @title Text Documents API
// @version 1.0
// @description Upload, list, search, read and delete text files.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, zl)
	stop()
	if err != nil {
		zl.Error("server_exited", zap.Error(err))
		_ = zl.Sync()
		os.Exit(1)
	}
	_ = zl.Sync()
}

// run owns every resource it opens; all of them are released before it returns.
func run(ctx context.Context, cfg *config.AppConfig, zl *zap.Logger) error {
	shutdownTracing, err := otel.Init(ctx, cfg.Tracing, zl)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			zl.Error("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	repo, closeStore, err := openStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
		repo = cached.New(repo, cached.NewRedisCache(rdb), time.Duration(cfg.Redis.TTLSec)*time.Second, reg)
		zl.Info("document_cache_enabled", zap.String("addr", cfg.Redis.Addr))
	}

	docSvc := service.NewDocumentService(repo)

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.BodyLimitBytes,
	})

	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger(zl))
	app.Use(middleware.Recover())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, repo, docSvc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		zl.Info("shutdown_started")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zl.Error("http_shutdown_failed", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	zl.Info("server_starting", zap.String("addr", addr), zap.String("store_backend", cfg.StoreBackend))
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	zl.Info("shutdown_complete")
	return nil
}

// openStore connects the configured backend and returns a matching close func.
func openStore(ctx context.Context, cfg *config.AppConfig, zl *zap.Logger) (repository.DocumentRepository, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		client, coll, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		return mongodb.NewDocumentMongo(coll), func() { disconnectMongo(client, zl) }, nil

	case config.BackendMinIO:
		objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return nil, nil, fmt.Errorf("init object storage: %w", err)
		}
		return objectstore.NewDocumentObjectStore(objStore, cfg.MinIO.ReadWorkers), func() {}, nil

	default:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := migration.EnsureMigrated(ctx, db, zl); err != nil {
				closeDB(db, zl)
				return nil, nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		return postgres.NewDocumentPostgres(db), func() { closeDB(db, zl) }, nil
	}
}

func disconnectMongo(client *mongo.Client, zl *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		zl.Error("mongo_disconnect_failed", zap.Error(err))
	}
}

func closeDB(db *sql.DB, zl *zap.Logger) {
	if err := db.Close(); err != nil {
		zl.Error("db_close_failed", zap.Error(err))
	}
}
