package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "jamroom/internal/adapters/http"
	"jamroom/internal/app"
	"jamroom/internal/config"
	"jamroom/internal/queue"
	"jamroom/internal/upstream"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("create data dir")
	}
	db, err := queue.Open(filepath.Join(cfg.DataDir, "jamroom.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open queue db")
	}
	defer func() { _ = db.Close() }()

	store := queue.NewStore(db)
	rooms := app.NewRoomManager(db)

	// Rooms survive a restart: everything persisted comes back before
	// the first connection is accepted.
	records, err := db.LoadAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load persisted rooms")
	}
	for roomID, rec := range records {
		rooms.Restore(roomID, rec.State)
		store.Restore(roomID, rec.Entries)
	}
	log.Info().Int("rooms", len(records)).Msg("restored persisted rooms")

	orch := &app.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    rooms,
		Queue:    store,
	}

	clients := router.Clients{
		Search: upstream.NewSearchClient(cfg.Upstream.SearchURL, cfg.Upstream.Timeout),
		Lyrics: upstream.NewLyricsClient(cfg.Upstream.LyricsURL, cfg.Upstream.Timeout),
		Titles: upstream.NewTitleClient(cfg.Upstream.TitleURL, cfg.Upstream.Timeout),
	}

	r := router.SetupRouter(ctx, cfg, orch, clients)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Jamroom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
