package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/edumarques81/stellar-media-internals/internal/config"
	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
	"github.com/edumarques81/stellar-media-internals/internal/infra/journal"
	"github.com/edumarques81/stellar-media-internals/internal/infra/mpd"
	"github.com/edumarques81/stellar-media-internals/internal/ingest"
	"github.com/edumarques81/stellar-media-internals/internal/tui"
)

func runTUI(args []string) error {
	fs := pflag.NewFlagSet("tui", pflag.ExitOnError)
	loader := config.NewLoader(fs)
	session := fs.String("session", "", "Journal session to replay (default: latest)")
	logPath := fs.String("log-file", filepath.Join(os.TempDir(), "mediainternals-tui.log"), "Log file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	// Logs would corrupt the screen.
	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	setupLogging(cfg.Debug, logFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := media.NewManager()
	if fs.Changed("journal") || fs.Changed("session") || cfg.Journal.ReplayOnStart {
		if err := replayJournal(ctx, cfg.Journal.Path, *session, manager); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	if cfg.MPD.Enabled {
		client := mpd.NewClient(cfg.MPD.Host, cfg.MPD.Port, cfg.MPD.Password)
		defer client.Close()
		source := mpd.NewSource(client, ingest.NewAdapter(manager), cfg.MPD.PollInterval)
		go func() {
			defer close(done)
			if err := source.Run(ctx); err != nil {
				log.Error().Err(err).Msg("MPD source stopped")
			}
		}()
	} else {
		close(done)
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	model := tui.New(manager, wd, cfg.Dashboard.DefaultFilter)
	defer model.Close()

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	cancel()
	<-done
	return err
}

func replayJournal(ctx context.Context, path, session string, manager *media.Manager) error {
	db := journal.NewDB(path)
	if err := db.Open(); err != nil {
		return err
	}
	defer db.Close()

	n, err := db.ReplayInto(ctx, session, ingest.NewAdapter(manager))
	if errors.Is(err, journal.ErrNoSession) {
		log.Info().Str("path", path).Msg("Journal is empty")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Int("entries", n).Msg("Replayed journal")
	return nil
}
