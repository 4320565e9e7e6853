// Command sweep deletes expired and revoked refresh tokens.  Run it from
// cron or a scheduler; it exits when done.
package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/emprestaae/empresta-api/internal/auth"
	"github.com/emprestaae/empresta-api/internal/config"
	"github.com/emprestaae/empresta-api/internal/database"
	"github.com/emprestaae/empresta-api/internal/logger"
	"github.com/emprestaae/empresta-api/internal/repository"
)

func main() {
	timeout := flag.Duration("timeout", time.Minute, "give up after this long")
	flag.Parse()

	cfg := config.Load()
	log, cleanup := logger.New(cfg.Log)
	defer cleanup()

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc := auth.NewTokenService(repository.NewTokenRepo(repository.NewExecutor(db, log)), cfg.Auth)
	n, err := svc.Sweep(ctx)
	if err != nil {
		log.Fatal("token sweep failed", zap.Error(err))
	}
	log.Info("token sweep done", zap.Int64("deleted", n))
}
