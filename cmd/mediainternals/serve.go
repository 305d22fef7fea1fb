package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/edumarques81/stellar-media-internals/internal/config"
	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
	"github.com/edumarques81/stellar-media-internals/internal/infra/journal"
	"github.com/edumarques81/stellar-media-internals/internal/infra/mpd"
	"github.com/edumarques81/stellar-media-internals/internal/ingest"
	"github.com/edumarques81/stellar-media-internals/internal/metrics"
	"github.com/edumarques81/stellar-media-internals/internal/transport/httpapi"
	"github.com/edumarques81/stellar-media-internals/internal/transport/socketio"
	"github.com/edumarques81/stellar-media-internals/internal/version"
)

const shutdownTimeout = 5 * time.Second

func runServe(args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ExitOnError)
	loader := config.NewLoader(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	setupLogging(cfg.Debug, os.Stderr)

	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", version.GetInfo().String())
	log.Info().Msg("  Media Internals Service")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("listen", cfg.Listen).
		Bool("journal", cfg.Journal.Enabled).
		Str("journal_path", cfg.Journal.Path).
		Bool("replay", cfg.Journal.ReplayOnStart).
		Bool("mpd", cfg.MPD.Enabled).
		Str("mpd_host", cfg.MPD.Host).
		Int("mpd_port", cfg.MPD.Port).
		Int("max_external_clients", cfg.Dashboard.MaxExternalClients).
		Msg("Configuration")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager := media.NewManager()
	met := metrics.New()
	manager.Subscribe(met.Observer())

	checks := map[string]func() error{}
	adapterOpts := []ingest.Option{ingest.WithMetrics(met)}
	if cfg.Journal.Enabled {
		db, err := openJournal(ctx, cfg.Journal, manager)
		if err != nil {
			return err
		}
		defer closeJournal(db)
		adapterOpts = append(adapterOpts, ingest.WithJournal(db))
		checks["journal"] = func() error {
			_, err := db.GetStats()
			return err
		}
	}
	adapter := ingest.NewAdapter(manager, adapterOpts...)

	socketServer, err := socketio.NewServer(manager, adapter, socketio.Options{
		MaxExternalClients: cfg.Dashboard.MaxExternalClients,
		DebounceWindow:     cfg.Dashboard.DebounceWindow,
		DefaultFilter:      cfg.Dashboard.DefaultFilter,
		OnClientCount:      met.SetDashboardClients,
	})
	if err != nil {
		return err
	}

	var source *mpd.Source
	if cfg.MPD.Enabled {
		client := mpd.NewClient(cfg.MPD.Host, cfg.MPD.Port, cfg.MPD.Password)
		defer client.Close()
		source = mpd.NewSource(client, adapter, cfg.MPD.PollInterval)
		checks["mpd"] = client.Ping
	}

	handler := httpapi.NewHandler(manager, adapter, checks)
	handler.OnRequestEverything(func(ctx context.Context) error {
		socketServer.RequestEverything()
		if source != nil {
			return source.RequestEverything(ctx)
		}
		return nil
	})
	server := &http.Server{
		Addr: cfg.Listen,
		Handler: httpapi.NewRouter(handler, httpapi.Options{
			Metrics:   met,
			Socket:    socketServer,
			StaticDir: cfg.StaticDir,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Listen).Msg("HTTP server listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		socketServer.Close()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
		return nil
	})

	if source != nil {
		g.Go(func() error {
			return source.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}

// openJournal opens the journal, replays the latest session into manager
// when configured, then starts a new session for this run.
func openJournal(ctx context.Context, cfg config.JournalConfig, manager *media.Manager) (*journal.DB, error) {
	db := journal.NewDB(cfg.Path)
	if err := db.Open(); err != nil {
		return nil, err
	}

	if cfg.ReplayOnStart {
		n, err := db.ReplayInto(ctx, "", ingest.NewAdapter(manager))
		switch {
		case errors.Is(err, journal.ErrNoSession):
			log.Info().Msg("Journal is empty, nothing to replay")
		case err != nil:
			db.Close()
			return nil, err
		default:
			log.Info().Int("entries", n).Msg("Replayed journal")
		}
	}

	if _, err := db.StartSession(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func closeJournal(db *journal.DB) {
	ev := log.Info().Str("session", db.SessionID())
	if stats, err := db.GetStats(); err == nil {
		ev = ev.Int("sessions", stats.SessionCount).Int("entries", stats.EntryCount)
	}
	ev.Msg("Closing journal")
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close journal")
	}
}
