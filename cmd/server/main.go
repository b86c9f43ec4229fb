package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"clinic-assistant/internal/config"
	"clinic-assistant/internal/core"
	"clinic-assistant/internal/db"
	httpserver "clinic-assistant/internal/http"
	"clinic-assistant/internal/llm"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("no .env file, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open database")
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn, cfg.Database.Driver); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}
	repo := db.NewRepository(conn, cfg.Database.Driver)

	if cfg.AI.APIKey == "" {
		logger.Warn().Msg("no completion credential configured; the assistant will answer with a fixed advisory")
	}
	client := llm.NewGroqClient(cfg.AI)
	chatService := core.NewChatService(repo, client, cfg.AI.HistoryLimit)

	srv, err := httpserver.NewServer(repo, chatService, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct server")
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", cfg.Server.Addr).Str("db", cfg.Database.Driver).Msg("listening")
	if err := runServer(ctx, httpSrv); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
