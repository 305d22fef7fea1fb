package socketio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
	"github.com/edumarques81/stellar-media-internals/internal/render"
)

type emitted struct {
	event string
	args  []any
}

type fakeClient struct {
	mu     sync.Mutex
	events []emitted
}

func (c *fakeClient) emit(event string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, emitted{event: event, args: args})
}

// last returns the first argument of the most recent event named event.
func (c *fakeClient) last(event string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].event == event {
			if len(c.events[i].args) == 0 {
				return nil, true
			}
			return c.events[i].args[0], true
		}
	}
	return nil, false
}

func (c *fakeClient) count(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.event == event {
			n++
		}
	}
	return n
}

var testPlayer = media.PlayerKey{Renderer: "1", Player: "2"}

func newTestSession(t *testing.T, manager *media.Manager, filter string) (*dashboardSession, *fakeClient) {
	t.Helper()
	client := &fakeClient{}
	session := newDashboardSession("test", manager, client.emit, time.Hour, filter)
	t.Cleanup(session.close)
	return session, client
}

func TestDashboardSession_ReplaysStateOnConnect(t *testing.T) {
	manager := media.NewManager()
	manager.AddPlayer(testPlayer)
	manager.UpdateGeneralAudioInformation(media.GeneralAudioInfo{"channels": 2})

	session, client := newTestSession(t, manager, "")
	session.debouncer.Flush()

	list, ok := client.last(EventPushPlayerList)
	if !ok {
		t.Fatal("expected a player list push")
	}
	items := list.([]render.ListItem)
	if len(items) != 1 || items[0].ID != "1:2" {
		t.Errorf("unexpected player list %v", items)
	}

	info, ok := client.last(EventPushGeneralAudioInfo)
	if !ok {
		t.Fatal("expected general audio info push")
	}
	if rows := info.([]render.PropertyRow); len(rows) != 1 || rows[0].Value != "2" {
		t.Errorf("unexpected info rows %v", rows)
	}
}

func TestDashboardSession_ListPushesAreDebounced(t *testing.T) {
	manager := media.NewManager()
	_, client := newTestSession(t, manager, "")

	for i := 0; i < 5; i++ {
		manager.AddPlayer(media.PlayerKey{Renderer: "1", Player: string(rune('a' + i))})
	}
	if n := client.count(EventPushPlayerList); n != 0 {
		t.Errorf("expected list pushes held back, got %d", n)
	}
}

func TestDashboardSession_SelectPlayerStreamsLog(t *testing.T) {
	manager := media.NewManager()
	manager.AddPlayer(testPlayer)
	if err := manager.UpdatePlayerInfo(testPlayer, 0, "state", "playing"); err != nil {
		t.Fatalf("UpdatePlayerInfo: %v", err)
	}

	session, client := newTestSession(t, manager, "")
	if err := session.handle(EventSelectPlayer, []any{map[string]any{"id": "1:2"}}); err != nil {
		t.Fatalf("selectPlayer: %v", err)
	}

	rows, ok := client.last(EventAppendLog)
	if !ok {
		t.Fatal("expected appendLog")
	}
	if got := rows.([]render.LogRow); len(got) != 1 || got[0].Key != "state" {
		t.Errorf("unexpected log rows %v", got)
	}

	marker, _ := client.last(EventPushMarker)
	if m := marker.(MarkerPayload); m.Marker != render.MarkerNoPlayersSelected || m.On {
		t.Errorf("unexpected marker %+v", m)
	}
}

func TestDashboardSession_DefaultFilterApplies(t *testing.T) {
	manager := media.NewManager()
	manager.AddPlayer(testPlayer)
	for _, key := range []string{"foobar", "baz"} {
		if err := manager.UpdatePlayerInfo(testPlayer, 0, key, "v"); err != nil {
			t.Fatalf("UpdatePlayerInfo: %v", err)
		}
	}

	session, client := newTestSession(t, manager, "foo")
	if err := session.handle(EventSelectPlayer, []any{"1:2"}); err != nil {
		t.Fatalf("selectPlayer: %v", err)
	}

	rows, _ := client.last(EventAppendLog)
	if got := rows.([]render.LogRow); len(got) != 1 || got[0].Key != "foobar" {
		t.Errorf("expected only foobar, got %v", got)
	}
}

func TestDashboardSession_SelectAudioComponent(t *testing.T) {
	manager := media.NewManager()
	id := media.ComponentID{Owner: "3", Component: "4"}
	manager.UpdateAudioComponent(media.OutputController, id, media.AudioComponent{"volume": 1})

	session, client := newTestSession(t, manager, "")
	err := session.handle(EventSelectAudioComponent, []any{map[string]any{"type": float64(1), "id": "3:4"}})
	if err != nil {
		t.Fatalf("selectAudioComponent: %v", err)
	}

	props, ok := client.last(EventPushProperties)
	if !ok {
		t.Fatal("expected pushProperties")
	}
	p := props.(PropertiesPayload)
	if p.Table != render.TableAudioProperties || len(p.Rows) != 1 || p.Rows[0].Key != "volume" {
		t.Errorf("unexpected properties %+v", p)
	}
}

func TestDashboardSession_BadArgumentsReportError(t *testing.T) {
	manager := media.NewManager()
	session, client := newTestSession(t, manager, "")

	tests := []struct {
		event string
		args  []any
	}{
		{EventSelectPlayer, nil},
		{EventSelectPlayer, []any{42.0}},
		{EventSelectPlayer, []any{"nocolon"}},
		{EventSelectAudioComponent, []any{map[string]any{"type": 7.0, "id": "1:1"}}},
		{EventSelectAudioComponent, []any{map[string]any{"type": 0.5, "id": "1:1"}}},
		{EventSelectAudioComponent, []any{"1:1"}},
		{EventSetFilter, []any{true}},
		{"unknownEvent", nil},
	}

	for _, tt := range tests {
		if err := session.handle(tt.event, tt.args); err == nil {
			t.Errorf("%s(%v): expected error", tt.event, tt.args)
		}
	}
	if n := client.count(EventError); n != len(tests) {
		t.Errorf("expected %d error pushes, got %d", len(tests), n)
	}
}

func TestDashboardSession_UnknownSelection(t *testing.T) {
	session, _ := newTestSession(t, media.NewManager(), "")

	err := session.handle(EventSelectPlayer, []any{"9:9"})
	if !errors.Is(err, render.ErrUnknownSelection) {
		t.Errorf("expected ErrUnknownSelection, got %v", err)
	}
}

func TestDashboardSession_ExportsGoToClient(t *testing.T) {
	manager := media.NewManager()
	manager.AddPlayer(testPlayer)
	session, client := newTestSession(t, manager, "")

	if err := session.handle(EventCopyPlayers, nil); err != nil {
		t.Fatalf("copyPlayers: %v", err)
	}
	if _, ok := client.last(EventShowClipboard); !ok {
		t.Error("expected showClipboard")
	}

	if err := session.handle(EventSaveLog, nil); err != nil {
		t.Fatalf("saveLog: %v", err)
	}
	file, ok := client.last(EventSaveFile)
	if !ok {
		t.Fatal("expected saveFile")
	}
	if f := file.(FilePayload); f.Name != render.ExportFileName {
		t.Errorf("unexpected file name %q", f.Name)
	}

	if err := session.handle(EventCopySelected, nil); !errors.Is(err, render.ErrNothingSelected) {
		t.Errorf("expected ErrNothingSelected, got %v", err)
	}
}

func TestDashboardSession_HidePlayers(t *testing.T) {
	manager := media.NewManager()
	manager.AddPlayer(testPlayer)
	session, _ := newTestSession(t, manager, "")

	if err := session.handle(EventHidePlayers, nil); err != nil {
		t.Fatalf("hidePlayers: %v", err)
	}
	if n := manager.PlayerCount(); n != 0 {
		t.Errorf("expected players removed, got %d", n)
	}
}

func TestDashboardSession_CloseUnsubscribes(t *testing.T) {
	manager := media.NewManager()
	client := &fakeClient{}
	session := newDashboardSession("test", manager, client.emit, time.Hour, "")
	session.close()

	before := client.count(EventPushGeneralAudioInfo)
	manager.UpdateGeneralAudioInformation(media.GeneralAudioInfo{"a": 1})
	if after := client.count(EventPushGeneralAudioInfo); after != before {
		t.Errorf("closed session still received pushes")
	}
}
