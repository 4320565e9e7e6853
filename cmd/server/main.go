package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/emprestaae/empresta-api/internal/auth"
	"github.com/emprestaae/empresta-api/internal/cache"
	"github.com/emprestaae/empresta-api/internal/config"
	"github.com/emprestaae/empresta-api/internal/database"
	"github.com/emprestaae/empresta-api/internal/handler"
	"github.com/emprestaae/empresta-api/internal/logger"
	"github.com/emprestaae/empresta-api/internal/middleware"
	"github.com/emprestaae/empresta-api/internal/queue"
	"github.com/emprestaae/empresta-api/internal/repository"
	"github.com/emprestaae/empresta-api/internal/router"
	"github.com/emprestaae/empresta-api/internal/service"
)

func main() {
	cfg := config.Load()
	log, cleanup := logger.New(cfg.Log)
	defer cleanup()

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()
	if cfg.DB.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.ApplySchema(ctx, db)
		cancel()
		if err != nil {
			log.Fatal("schema apply failed", zap.Error(err))
		}
		log.Info("schema applied")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: response cache off, rate limit per process")
	} else {
		defer rdb.Close()
	}

	// repositories
	ex := repository.NewExecutor(db, log.Named("sql"))
	users := repository.NewUserRepo(ex)
	categories := repository.NewCategoryRepo(ex)
	items := repository.NewItemRepo(ex)
	loans := repository.NewLoanRepo(ex)
	messages := repository.NewMessageRepo(ex)
	reviews := repository.NewReviewRepo(ex)
	tokens := auth.NewTokenService(repository.NewTokenRepo(ex), cfg.Auth)
	access := auth.NewAccessTokens(cfg.Auth)

	// events
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	var events handler.Events
	if cfg.Queue.Enabled {
		pub := service.NewPublisher(cfg.Queue.URL, log.Named("events"))
		defer pub.Close()
		events = pub

		activity := logger.RotatingWriter(cfg.Queue.ActivityLog, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays)
		consumer := queue.NewConsumer(cfg.Queue.URL, activity, log.Named("consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.AccessLog(log.Named("http")))
	e.Use(middleware.Metrics())
	e.Use(echomw.BodyLimit("1M"))

	router.Register(e, router.Handlers{
		Auth:       handler.NewAuthHandler(users, tokens, access, cfg.Auth.BcryptCost),
		Users:      handler.NewUserHandler(users, tokens, cfg.Auth.BcryptCost),
		Categories: handler.NewCategoryHandler(categories, cache.New(rdb, cfg.Cache.Prefix), cfg.Cache.CategoryTTL),
		Items:      handler.NewItemHandler(items, users, categories),
		Loans:      handler.NewLoanHandler(loans, items, events),
		Messages:   handler.NewMessageHandler(messages, users, events),
		Reviews:    handler.NewReviewHandler(reviews),
		DB:         db,
	}, router.Middleware{
		Tokens:     access,
		Cache:      middleware.NewRedisCache(cfg.Cache, rdb, log.Named("cache")),
		Invalidate: middleware.NewCacheInvalidator(cfg.Cache, rdb, log.Named("cache")),
		RateLimit:  middleware.NewTokenBucket(cfg.RateLimit, rdb, log.Named("ratelimit")),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Info("api starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api start failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	log.Info("api stopped")
}
