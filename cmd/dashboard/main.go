package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"telemetry-dashboard/internal/api"
	"telemetry-dashboard/internal/backend"
	"telemetry-dashboard/internal/config"
	"telemetry-dashboard/internal/geocode"
	"telemetry-dashboard/internal/predict"
	"telemetry-dashboard/internal/query"
	"telemetry-dashboard/internal/search"
	"telemetry-dashboard/internal/stream"
	"telemetry-dashboard/internal/telemetry"
	"telemetry-dashboard/pkg/utils"
)

func main() {
	sigCtx, sigCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer sigCancel()

	cfg, err := config.New()
	if err != nil {
		fatalIfErr(slog.Default(), fmt.Errorf("failed to create config: %w", err))
	}

	logger := getLogger(cfg)

	window := telemetry.NewWindow(cfg.WindowCapacity)
	client := backend.NewClient(logger, cfg.BackendURL, cfg.BackendToken)
	geocoder := geocode.NewClient(logger, "")

	queryCtrl := query.NewController(logger, client, window, cfg.WindowCapacity)

	typeahead, err := search.NewTypeahead(logger, search.Options{
		Primary:  search.BackendSource(client),
		Fallback: geocoder,
	})
	fatalIfErr(logger, err)

	orchestrator, err := predict.NewOrchestrator(logger, predict.Options{
		Backend:   client,
		Window:    window,
		DataLimit: cfg.WindowCapacity,
	})
	fatalIfErr(logger, err)

	sm, err := stream.NewManager(logger, window, stream.Options{
		BrokerURL: cfg.MQTTBroker,
		ClientID:  cfg.MQTTClientID,
		Username:  cfg.MQTTUsername,
		Password:  cfg.MQTTPassword,
		Topic:     cfg.MQTTTopic,
	})
	fatalIfErr(logger, err)

	// The stream is an accelerator; REST polling still works if the broker
	// is down, so a failed connect is not fatal.
	go func() {
		if err := sm.Connect(); err != nil {
			logger.Error("failed to connect to MQTT broker", utils.ErrAttr(err))
		}
	}()

	// Prime the window and the default location's weather panels.
	queryCtrl.Refresh()
	orchestrator.SetCity(cfg.WeatherCity, cfg.WeatherLat, cfg.WeatherLon)

	handler := api.NewHandler(logger, window, sm, queryCtrl, typeahead, orchestrator, client)
	mw := api.NewMiddlewareHandler(logger)

	httpAddr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := api.NewHTTPServer(logger, httpAddr, handler.Routes(mw))
	httpServer.StartOnBackground(sigCancel)

	<-sigCtx.Done()
	logger.Info("received signal, shutting down...")

	if err := httpServer.ShutdownWithDefaultTimeout(); err != nil {
		logger.Error("http server shutdown failed", utils.ErrAttr(err))
	}

	logger.Info("disconnecting from MQTT broker...")
	sm.Close()

	logger.Info("dashboard exited gracefully")
}

func getLogger(cfg *config.Config) *slog.Logger {
	logOptions := slog.HandlerOptions{
		Level:       cfg.LogLevel,
		ReplaceAttr: utils.SlogReplacer,
	}

	logHandler := slog.NewJSONHandler(cfg.LogOutput, &logOptions)

	return slog.New(logHandler).With(slog.String("version", utils.GetVersionShort()))
}

func fatalIfErr(l *slog.Logger, err error) {
	if err == nil {
		return
	}

	l.Error("error", utils.ErrAttr(err))
	os.Exit(1)
}
