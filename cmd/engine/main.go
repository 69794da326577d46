package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Victor-armando18/order-pricing/internal/config"
	"github.com/Victor-armando18/order-pricing/internal/infrastructure"
	"github.com/Victor-armando18/order-pricing/internal/logger"
	"github.com/Victor-armando18/order-pricing/internal/usecase"
	"github.com/Victor-armando18/order-pricing/pkg/pricing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(false).Fatalw("invalid configuration", "error", err)
	}

	log := logger.New(cfg.IsProduction())
	defer log.Sync()

	loader := infrastructure.NewFileRuleLoader(cfg.RulesDir)
	executor := infrastructure.NewJsonLogicExecutor()

	executor.RegisterCustomOperator("round", infrastructure.CustomRound)
	executor.RegisterCustomOperator("percent", infrastructure.CustomPercent)

	calc := pricing.NewCalculator(pricing.WithChoiceQuantityMode(cfg.ChoiceMode))
	quoteSvc := usecase.NewQuoteService(loader, executor, calc, log)

	e := newServer(serverDeps{
		quotes:         quoteSvc,
		calc:           calc,
		logger:         log,
		defaultVersion: cfg.RulesVersion,
		corsOrigins:    cfg.CORSOrigins,
	})

	go func() {
		log.Infow("server has started", "addr", cfg.Addr, "env", cfg.Env, "rules_dir", cfg.RulesDir, "choice_mode", cfg.ChoiceMode)
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	s := <-quit
	log.Infow("signal caught", "signal", s.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Errorw("graceful shutdown failed", "error", err)
		return
	}
	log.Infow("server has stopped", "addr", cfg.Addr)
}
