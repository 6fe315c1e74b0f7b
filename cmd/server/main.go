package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/callpulse/hub/internal/classifier"
	"github.com/callpulse/hub/internal/config"
	"github.com/callpulse/hub/internal/event"
	"github.com/callpulse/hub/internal/hub"
	"github.com/callpulse/hub/internal/logging"
	"github.com/callpulse/hub/internal/mock"
	"github.com/callpulse/hub/internal/session"
	"github.com/callpulse/hub/internal/ws"
	"github.com/jonboulle/clockwork"
)

func main() {
	demoMode := flag.Bool("demo", false, "Feed synthetic agent transcripts")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *demoMode {
		cfg.Demo.Enabled = true
	}

	logging.InitLogger(cfg.Log.Level, cfg.Log.Format)

	clock := clockwork.NewRealClock()

	cls, err := newClassifier(cfg.Classifier)
	if err != nil {
		slog.Error("Failed to build classifier", "error", err)
		os.Exit(1)
	}

	registry := hub.NewRegistry(hub.Options{
		SendBuffer:   cfg.Hub.SendBuffer,
		WriteTimeout: cfg.Hub.WriteTimeout,
		PingInterval: cfg.Hub.PingInterval,
	})
	builder := event.NewBuilder(event.NewPolicy(cfg.Alerts.Emotions, cfg.Alerts.Threshold), clock)
	relay := hub.NewRelay(cls, builder, registry, cfg.Classifier.MaxLength)
	agents := session.NewStore()

	server := ws.NewServer(cfg, registry, relay, agents, clock)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Demo.Enabled {
		gen := mock.NewGenerator(relay, agents, clock, cfg.Demo.Interval)
		gen.Start(ctx)
	}

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	err = ws.ListenAndServe(ctx, cfg.Addr(), mux)
	registry.CloseAll()
	if err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down")
}

func newClassifier(cfg config.ClassifierConfig) (classifier.Classifier, error) {
	var c classifier.Classifier
	if cfg.Endpoint == "" {
		slog.Info("No classifier endpoint configured, using keyword lexicon")
		c = classifier.NewLexicon()
	} else {
		slog.Info("Using inference endpoint", "endpoint", cfg.Endpoint, "model", cfg.Model)
		c = classifier.NewHTTP(cfg.Endpoint, cfg.Model, cfg.APIToken, cfg.Timeout)
	}

	if cfg.CacheSize <= 0 {
		return c, nil
	}
	return classifier.NewCached(c, cfg.CacheSize)
}
