package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"contractflow/activity"
	"contractflow/approval"
	"contractflow/auth"
	"contractflow/config"
	"contractflow/contract"
	"contractflow/db"
	"contractflow/template"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	authService := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)
	activityLog := activity.NewLogger(pool)

	contractRepo := contract.NewRepository(pool)
	approvalRepo := approval.NewRepository(pool)

	contractService := contract.NewService(pool, contractRepo, authService, approvalRepo, activityLog, log)
	coordinator := approval.NewCoordinator(pool, approvalRepo, contractRepo, activityLog, log)

	templateService := template.NewService(template.NewRepository(pool), log)
	if err := templateService.Seed(ctx); err != nil {
		log.Fatal().Err(err).Msg("seed templates")
	}

	go sweepExpirations(ctx, contractService, cfg.ExpirySweepRate, log)

	log.Info().
		Bool("contracts", contractService != nil).
		Bool("approvals", coordinator != nil).
		Msg("contract lifecycle service ready")

	<-ctx.Done()
	log.Info().Msg("shutting down")
}

// sweepExpirations periodically transitions executed contracts past their
// expiry date.
func sweepExpirations(ctx context.Context, contracts *contract.Service, every time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := contracts.CheckExpirations(ctx)
			if err != nil {
				log.Error().Err(err).Msg("expiry sweep failed")
				continue
			}
			if len(expired) > 0 {
				log.Info().Strs("contract_ids", expired).Msg("expiry sweep transitioned contracts")
			}
		}
	}
}
