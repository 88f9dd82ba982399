package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"clipforge/internal/http/handlers"
	"clipforge/internal/http/httpapi"
	"clipforge/internal/infra"
	"clipforge/internal/quota"
	"clipforge/internal/realtime"
	"clipforge/internal/renderapi"
	"clipforge/internal/track"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	backend, err := renderapi.NewClient(renderapi.Options{
		BaseURL: cfg.RenderAPIBaseURL,
		Token:   cfg.RenderAPIToken,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure render backend client")
	}

	var subscribe track.SubscribeFunc
	if cfg.RealtimeURL != "" {
		rt, err := realtime.NewClient(realtime.Options{
			URL:    cfg.RealtimeURL,
			Token:  cfg.RenderAPIToken,
			Logger: &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure realtime client")
		}
		subscribe = func(ctx context.Context, jobID string) (track.Subscription, error) {
			return rt.Subscribe(ctx, jobID)
		}
	} else {
		logger.Warn().Msg("REALTIME_URL not set, tracking jobs by polling only")
	}

	ledger := quota.NewLedger()
	tracker := track.NewTracker(track.Options{
		Backend:      backend,
		Subscribe:    subscribe,
		Ledger:       ledger,
		QuotaMetric:  cfg.QuotaMetric,
		OwnerID:      cfg.OwnerID,
		PollInterval: cfg.PollInterval,
		Logger:       &logger,
	})
	defer tracker.Close()

	app := handlers.NewApp(tracker, ledger, logger)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
