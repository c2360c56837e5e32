package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/repository/memstore"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/service"
	"github.com/iliyamo/cinema-booking/internal/worker"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env wins

	cfg := config.Load()
	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("open store", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		zl.Warn("redis unavailable, rate limiting and caching disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	opts := []service.Option{
		service.WithLogger(zl.Named("booking")),
		service.WithBookingTTL(cfg.BookingHoldTTL),
		service.WithHoldTTL(cfg.SeatHoldTTL),
	}
	if cfg.RabbitMQURL != "" {
		opts = append(opts, service.WithNotifier(queue.NewPublisher(cfg.RabbitMQURL, zl.Named("publisher"))))
		consumer := queue.NewConsumer(cfg.RabbitMQURL, "", zl.Named("consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}
	svc := service.NewBookingService(store, opts...)

	expiry := worker.NewExpiryWorker(svc, cfg.ExpirySweepInterval, zl.Named("expiry"))
	if err := expiry.Start(ctx); err != nil {
		zl.Fatal("start expiry worker", zap.Error(err))
	}
	defer expiry.Stop()

	e := newServer(cfg, zl, db, rdb, svc)
	go func() {
		addr := ":" + cfg.Port
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}

// openStore returns the store selected by STORE_DRIVER.  db is nil for the
// memory driver.
func openStore(ctx context.Context, cfg config.Config, zl *zap.Logger) (repository.Store, *sql.DB, error) {
	if cfg.StoreDriver == config.DriverMemory {
		mem := memstore.New()
		if cfg.SeedDemo {
			id := mem.SeedDemo(time.Now())
			zl.Info("memory store seeded", zap.Uint64("showtime_id", id))
		}
		return mem, nil, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return repository.NewMySQLStore(db), db, nil
}

func newServer(cfg config.Config, zl *zap.Logger, db *sql.DB, rdb *redis.Client, svc *service.BookingService) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(zl.Named("http")))

	var health echo.HandlerFunc
	if db != nil {
		health = handler.Health(db)
	} else {
		health = handler.Health(nil)
	}
	router.RegisterRoutes(e, health)
	router.RegisterPublic(e,
		handler.NewPublicHandler(svc, zl),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, zl.Named("cache")))
	router.RegisterCustomer(e,
		handler.NewBookingHandler(svc, zl),
		cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zl.Named("ratelimit")))
	return e
}
