package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/api"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/call"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/config"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/notify"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/session"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/summarizer"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/token"
	"github.com/Dharanishnatarajan/Warm-Call-Transfer/internal/transfer"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, using environment variables")
	}

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("warm transfer service starting",
		"port", cfg.Port,
		"media_url", cfg.MediaURL,
		"llm_configured", cfg.OpenRouterAPIKey != "",
	)

	// Missing signing key material is fatal: refuse to serve rather than
	// fail every credential request.
	if !cfg.MediaConfigured() {
		slog.Error("LIVEKIT_API_KEY and LIVEKIT_API_SECRET are required")
		os.Exit(1)
	}

	issuer := token.NewIssuer(cfg.MediaAPIKey, cfg.MediaAPISecret, cfg.MediaURL)
	store := session.New()
	gateway := summarizer.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterURL)

	var notifier notify.Publisher = notify.Nop{}
	if cfg.NatsURL != "" {
		nn, err := notify.NewNATS(cfg.NatsURL)
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer nn.Close()
		notifier = nn
		slog.Info("lifecycle events enabled", "nats_url", cfg.NatsURL)
	}

	calls := call.NewManager(store, issuer, notifier)
	transfers := transfer.NewOrchestrator(store, issuer, gateway, notifier)

	srv := api.NewServer(calls, transfers, issuer, gateway, store, cfg.OpenRouterAPIKey != "", cfg.Port)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("warm transfer service ready", "port", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	slog.Info("shutting down", "signal", sig)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
