package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"deal-hub/internal/adapters/repo"
	"deal-hub/internal/infra/config"
	"deal-hub/internal/infra/db"
	applog "deal-hub/internal/infra/log"
	"deal-hub/internal/infra/metrics"
	"deal-hub/internal/usecase/analytics"
)

// recalculator периодически пересчитывает популярность сделок по
// накопленным счётчикам переходов и шарингов.
func main() {
	cfg := config.Load()
	log := applog.NewLogger(cfg.AppEnv).With().Str("component", "recalculator").Logger()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("recalculator: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)
	analyticsService := analytics.NewService(repoAdapter, repoAdapter, nil, log)

	metrics.StartServer(ctx, log.With().Str("component", "metrics").Logger(), ":9090")

	ticker := time.NewTicker(cfg.Recalc.Interval)
	defer ticker.Stop()
	log.Info().Dur("interval", cfg.Recalc.Interval).Msg("recalculator: старт")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("recalculator: остановка")
			return
		case <-ticker.C:
			if err := analyticsService.RecomputePopularity(ctx); err != nil {
				log.Error().Err(err).Msg("recalculator: пересчёт не удался")
			}
		}
	}
}
