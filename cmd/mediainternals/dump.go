package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
	"github.com/edumarques81/stellar-media-internals/internal/infra/journal"
	"github.com/edumarques81/stellar-media-internals/internal/ingest"
	"github.com/edumarques81/stellar-media-internals/internal/render"
)

func runDump(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("dump", pflag.ExitOnError)
	path := fs.String("journal", journal.DefaultDBPath, "Journal database path")
	session := fs.String("session", "", "Session to replay (default: latest)")
	filter := fs.String("filter", "", "Log filter, comma separated")
	player := fs.String("player", "", "Player to select, as renderer:player")
	list := fs.Bool("list-sessions", false, "List journaled sessions and exit")
	stats := fs.Bool("stats", false, "Print journal statistics and exit")
	deleteSession := fs.String("delete-session", "", "Delete a journaled session and exit")
	debug := fs.Bool("debug", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogging(*debug, os.Stderr)

	db := journal.NewDB(*path)
	if err := db.Open(); err != nil {
		return err
	}
	defer db.Close()

	switch {
	case *deleteSession != "":
		if err := db.DeleteSession(*deleteSession); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "Deleted session %s\n", *deleteSession)
		return err
	case *stats:
		return printStats(db, out)
	case *list:
		return listSessions(db, out)
	}

	manager := media.NewManager()
	if _, err := db.ReplayInto(context.Background(), *session, ingest.NewAdapter(manager)); err != nil {
		return err
	}

	recorder := render.NewRecorder(nil)
	renderer := render.NewClientRenderer(recorder, nil)
	renderer.SetFilter(*filter)
	manager.Subscribe(renderer)

	if *player != "" {
		key, err := media.ParsePlayerKey(*player)
		if err != nil {
			return err
		}
		if err := renderer.SelectPlayer(key); err != nil {
			return err
		}
	}

	return render.WriteView(out, recorder.View())
}

func listSessions(db *journal.DB, out io.Writer) error {
	sessions, err := db.Sessions()
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{s.ID, s.StartedAt.Format("2006-01-02 15:04:05"), fmt.Sprint(s.Entries)})
	}
	_, err = fmt.Fprintln(out, render.TableText([]string{"Session", "Started", "Entries"}, rows))
	return err
}

func printStats(db *journal.DB, out io.Writer) error {
	stats, err := db.GetStats()
	if err != nil {
		return err
	}
	rows := [][]string{
		{"Path", db.Path()},
		{"Schema version", stats.SchemaVersion},
		{"Sessions", fmt.Sprint(stats.SessionCount)},
		{"Entries", fmt.Sprint(stats.EntryCount)},
	}
	_, err = fmt.Fprintln(out, render.TableText([]string{"Journal", ""}, rows))
	return err
}
