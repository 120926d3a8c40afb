// Command bobd serves the agent over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/nats-io/nats.go"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"

	"github.com/HuyNguyen260398/bob"
	"github.com/HuyNguyen260398/bob/internal/broker"
	"github.com/HuyNguyen260398/bob/pkg/slogx"
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelInfo}),
	))
}

func main() {
	cfg, err := bob.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", slogx.Error(err))
		os.Exit(1)
	}

	// With BOB_NATS_URL set, run events fan out over NATS so other
	// processes can follow streams; otherwise they stay in-process.
	var agentOpts []bob.Option
	if url := os.Getenv("BOB_NATS_URL"); url != "" {
		nc, err := nats.Connect(url)
		if err != nil {
			slog.Error("failed to connect to nats", slogx.Error(err), slog.String("url", url))
			os.Exit(1)
		}
		defer nc.Close()
		agentOpts = append(agentOpts, bob.WithBroker(broker.NATS(nc)))
		slog.Info("publishing run events to nats", slog.String("url", url))
	}

	agent, err := bob.New(cfg, agentOpts...)
	if err != nil {
		slog.Error("failed to create agent", slogx.Error(err))
		os.Exit(1)
	}

	addr := os.Getenv("BOB_LISTEN_ADDR")
	if addr == "" {
		addr = ":8000"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           newHandler(agent),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("listening", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", slogx.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", slogx.Error(err))
	}
}
