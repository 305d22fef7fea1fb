package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
	"github.com/edumarques81/stellar-media-internals/internal/infra/journal"
	"github.com/edumarques81/stellar-media-internals/internal/ingest"
)

func writeJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	db := journal.NewDB(path)
	if err := db.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	adapter := ingest.NewAdapter(media.NewManager(), ingest.WithJournal(db))
	pushes := []struct {
		kind ingest.Kind
		raw  string
	}{
		{ingest.KindMediaEvent, `{"renderer":1,"player":2,"ticksMillis":0,"type":"LOAD","params":{"url":"http://stream"}}`},
		{ingest.KindMediaEvent, `{"renderer":1,"player":2,"ticksMillis":1500,"type":"PLAY"}`},
		{ingest.KindGeneralAudioInformation, `{"sample_rate":44100}`},
	}
	for _, p := range pushes {
		if err := adapter.Ingest(p.kind, json.RawMessage(p.raw)); err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
	}
	return path
}

func TestRunDump(t *testing.T) {
	path := writeJournal(t)

	var out bytes.Buffer
	if err := runDump([]string{"--journal", path, "--player", "1:2"}, &out); err != nil {
		t.Fatalf("runDump failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"http://stream", "sample_rate", "44100", "00:00:01.500", "PLAY"} {
		if !strings.Contains(got, want) {
			t.Errorf("dump output missing %q:\n%s", want, got)
		}
	}
}

func TestRunDumpFilter(t *testing.T) {
	path := writeJournal(t)

	var out bytes.Buffer
	if err := runDump([]string{"--journal", path, "--player", "1:2", "--filter", "url"}, &out); err != nil {
		t.Fatalf("runDump failed: %v", err)
	}
	if strings.Contains(out.String(), "00:00:01.500") {
		t.Errorf("filtered dump should hide the PLAY event:\n%s", out.String())
	}
}

func TestRunDumpUnknownPlayer(t *testing.T) {
	path := writeJournal(t)

	if err := runDump([]string{"--journal", path, "--player", "9:9"}, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for an unknown player")
	}
}

func TestRunDumpListSessions(t *testing.T) {
	path := writeJournal(t)

	var out bytes.Buffer
	if err := runDump([]string{"--journal", path, "--list-sessions"}, &out); err != nil {
		t.Fatalf("runDump failed: %v", err)
	}
	if !strings.Contains(out.String(), "Entries") || !strings.Contains(out.String(), "3") {
		t.Errorf("unexpected session list:\n%s", out.String())
	}
}

func TestRunDumpStats(t *testing.T) {
	path := writeJournal(t)

	var out bytes.Buffer
	if err := runDump([]string{"--journal", path, "--stats"}, &out); err != nil {
		t.Fatalf("runDump failed: %v", err)
	}
	for _, want := range []string{"Schema version", journal.CurrentSchemaVersion, "Sessions", "Entries", "3"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("stats output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunDumpDeleteSession(t *testing.T) {
	path := writeJournal(t)

	db := journal.NewDB(path)
	if err := db.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	session, err := db.LatestSession()
	db.Close()
	if err != nil {
		t.Fatalf("LatestSession failed: %v", err)
	}

	var out bytes.Buffer
	if err := runDump([]string{"--journal", path, "--delete-session", session}, &out); err != nil {
		t.Fatalf("runDump failed: %v", err)
	}
	if !strings.Contains(out.String(), session) {
		t.Errorf("unexpected delete output:\n%s", out.String())
	}

	err = runDump([]string{"--journal", path}, &bytes.Buffer{})
	if !errors.Is(err, journal.ErrNoSession) {
		t.Errorf("expected ErrNoSession after delete, got %v", err)
	}
}
