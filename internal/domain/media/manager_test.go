package media_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
)

// recordingObserver remembers every notification it receives.
type recordingObserver struct {
	calls      []string
	players    map[media.PlayerKey]media.Player
	last       media.Player
	components map[media.ComponentType]map[media.ComponentID]media.AudioComponent
	info       media.GeneralAudioInfo
	sessions   []media.AudioFocusSession
	cdms       []media.RegisteredCdm
	devices    []media.VideoCaptureDevice
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		components: make(map[media.ComponentType]map[media.ComponentID]media.AudioComponent),
	}
}

func (r *recordingObserver) PlayerAdded(players map[media.PlayerKey]media.Player, p media.Player) {
	r.calls = append(r.calls, "playerAdded")
	r.players, r.last = players, p
}

func (r *recordingObserver) PlayerRemoved(players map[media.PlayerKey]media.Player, p media.Player) {
	r.calls = append(r.calls, "playerRemoved")
	r.players, r.last = players, p
}

func (r *recordingObserver) PlayerUpdated(players map[media.PlayerKey]media.Player, p media.Player, key string, value any) {
	r.calls = append(r.calls, "playerUpdated:"+key)
	r.players, r.last = players, p
}

func (r *recordingObserver) AudioComponentAdded(t media.ComponentType, c map[media.ComponentID]media.AudioComponent) {
	r.calls = append(r.calls, "componentAdded")
	r.components[t] = c
}

func (r *recordingObserver) AudioComponentRemoved(t media.ComponentType, c map[media.ComponentID]media.AudioComponent) {
	r.calls = append(r.calls, "componentRemoved")
	r.components[t] = c
}

func (r *recordingObserver) GeneralAudioInformationSet(info media.GeneralAudioInfo) {
	r.calls = append(r.calls, "generalInfo")
	r.info = info
}

func (r *recordingObserver) AudioFocusSessionsUpdated(s []media.AudioFocusSession) {
	r.calls = append(r.calls, "focus")
	r.sessions = s
}

func (r *recordingObserver) RegisteredCdmsUpdated(c []media.RegisteredCdm) {
	r.calls = append(r.calls, "cdms")
	r.cdms = c
}

func (r *recordingObserver) VideoCaptureCapabilitiesUpdated(d []media.VideoCaptureDevice) {
	r.calls = append(r.calls, "videoCapture")
	r.devices = d
}

var testKey = media.PlayerKey{Renderer: "1", Player: "2"}

func newManagerWithObserver(t *testing.T) (*media.Manager, *recordingObserver) {
	t.Helper()
	m := media.NewManager()
	obs := newRecordingObserver()
	unsubscribe := m.Subscribe(obs)
	t.Cleanup(unsubscribe)
	return m, obs
}

func TestAddPlayerIsIdempotent(t *testing.T) {
	m, obs := newManagerWithObserver(t)

	m.AddPlayer(testKey)
	m.AddPlayer(testKey)

	if len(obs.calls) != 1 {
		t.Fatalf("expected 1 notification, got %v", obs.calls)
	}
	if _, ok := obs.players[testKey]; !ok {
		t.Error("player map should contain the added player")
	}
	if obs.last.Key != testKey {
		t.Errorf("expected added player %v, got %v", testKey, obs.last.Key)
	}
}

func TestUpdatePlayerInfoAppendsEveryCall(t *testing.T) {
	m, _ := newManagerWithObserver(t)
	m.AddPlayer(testKey)

	updates := []struct {
		key   string
		value any
	}{
		{"pipeline_state", "kCreated"},
		{"pipeline_state", "kStarting"},
		{"duration", 12.5},
		{"pipeline_state", "kPlaying"},
	}
	for i, u := range updates {
		if err := m.UpdatePlayerInfo(testKey, float64(1000+i*10), u.key, u.value); err != nil {
			t.Fatalf("UpdatePlayerInfo: %v", err)
		}
	}

	p, ok := m.Player(testKey)
	if !ok {
		t.Fatal("player should be tracked")
	}
	if len(p.Events) != len(updates) {
		t.Errorf("expected %d events, got %d", len(updates), len(p.Events))
	}
	if got := p.Properties["pipeline_state"]; got != "kPlaying" {
		t.Errorf("expected last-write-wins value kPlaying, got %v", got)
	}
	if len(p.Properties) != 2 {
		t.Errorf("expected 2 distinct properties, got %d", len(p.Properties))
	}
}

func TestEventTimesAreRelativeToFirstEvent(t *testing.T) {
	m, _ := newManagerWithObserver(t)
	m.AddPlayer(testKey)

	_ = m.UpdatePlayerInfo(testKey, 5000, "a", 1)
	_ = m.UpdatePlayerInfo(testKey, 5250, "b", 2)

	p, _ := m.Player(testKey)
	want := []float64{0, 250}
	for i, e := range p.Events {
		if e.Time != want[i] {
			t.Errorf("event %d: expected time %v, got %v", i, want[i], e.Time)
		}
	}
}

func TestUpdatePlayerInfoNoRecordDoesNotGrowLog(t *testing.T) {
	m, obs := newManagerWithObserver(t)
	m.AddPlayer(testKey)
	_ = m.UpdatePlayerInfo(testKey, 1, "event", "PLAY")

	if err := m.UpdatePlayerInfoNoRecord(testKey, 2, media.PropertyRenderID, "1"); err != nil {
		t.Fatalf("UpdatePlayerInfoNoRecord: %v", err)
	}

	p, _ := m.Player(testKey)
	if len(p.Events) != 1 {
		t.Errorf("expected 1 event, got %d", len(p.Events))
	}
	if p.Properties[media.PropertyRenderID] != "1" {
		t.Errorf("expected render_id property to be set, got %v", p.Properties)
	}
	if obs.calls[len(obs.calls)-1] != "playerUpdated:render_id" {
		t.Errorf("expected a player updated notification, got %v", obs.calls)
	}
}

func TestUpdateUnknownPlayerIsRejected(t *testing.T) {
	m, obs := newManagerWithObserver(t)

	err := m.UpdatePlayerInfo(testKey, 1, "event", "PLAY")
	if !errors.Is(err, media.ErrUnknownPlayer) {
		t.Errorf("expected ErrUnknownPlayer, got %v", err)
	}
	err = m.UpdatePlayerInfoNoRecord(testKey, 1, "event", "PLAY")
	if !errors.Is(err, media.ErrUnknownPlayer) {
		t.Errorf("expected ErrUnknownPlayer, got %v", err)
	}
	if len(obs.calls) != 0 {
		t.Errorf("expected no notifications, got %v", obs.calls)
	}
	if m.PlayerCount() != 0 {
		t.Error("unknown player update must not create a player")
	}
}

func TestSnapshotsAreIsolatedFromLaterUpdates(t *testing.T) {
	m, obs := newManagerWithObserver(t)
	m.AddPlayer(testKey)
	_ = m.UpdatePlayerInfo(testKey, 1, "a", 1)

	held := obs.last
	_ = m.UpdatePlayerInfo(testKey, 2, "a", 2)

	if len(held.Events) != 1 {
		t.Errorf("held snapshot should keep 1 event, got %d", len(held.Events))
	}
	if held.Properties["a"] != 1 {
		t.Errorf("held snapshot property changed to %v", held.Properties["a"])
	}
}

func TestMarkPlayerDestroyedKeepsPlayer(t *testing.T) {
	m, _ := newManagerWithObserver(t)
	m.AddPlayer(testKey)

	if err := m.MarkPlayerDestroyed(testKey); err != nil {
		t.Fatalf("MarkPlayerDestroyed: %v", err)
	}

	p, ok := m.Player(testKey)
	if !ok {
		t.Fatal("destroyed player must stay tracked")
	}
	if !p.Destructed {
		t.Error("expected Destructed flag")
	}
	if len(p.Events) != 0 {
		t.Error("destroy flag must not be recorded in the event log")
	}
}

func TestRemovePlayer(t *testing.T) {
	m, obs := newManagerWithObserver(t)
	m.AddPlayer(testKey)

	m.RemovePlayer(testKey)

	if m.PlayerCount() != 0 {
		t.Error("player should be removed")
	}
	if obs.last.Key != testKey {
		t.Errorf("expected removed player %v, got %v", testKey, obs.last.Key)
	}
	if len(obs.players) != 0 {
		t.Errorf("expected empty player map, got %d", len(obs.players))
	}
}

func TestRemoveUnknownPlayerLeavesStateUnchanged(t *testing.T) {
	m, obs := newManagerWithObserver(t)
	other := media.PlayerKey{Renderer: "9", Player: "9"}
	m.AddPlayer(testKey)

	m.RemovePlayer(other)

	if m.PlayerCount() != 1 {
		t.Errorf("expected 1 player, got %d", m.PlayerCount())
	}
	if obs.calls[len(obs.calls)-1] != "playerRemoved" {
		t.Errorf("expected a redraw notification, got %v", obs.calls)
	}
}

func TestUpdateAudioComponentMerges(t *testing.T) {
	m, obs := newManagerWithObserver(t)
	id := media.ComponentID{Owner: "4", Component: "7"}

	m.UpdateAudioComponent(media.OutputStream, id, media.AudioComponent{"status": "created", "channels": 2})
	m.UpdateAudioComponent(media.OutputStream, id, media.AudioComponent{"status": "started", "volume": 0.5})

	want := media.AudioComponent{"status": "started", "channels": 2, "volume": 0.5}
	if diff := cmp.Diff(want, obs.components[media.OutputStream][id]); diff != "" {
		t.Errorf("merged component mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateAudioComponentCopiesInput(t *testing.T) {
	m, _ := newManagerWithObserver(t)
	id := media.ComponentID{Owner: "4", Component: "7"}
	data := media.AudioComponent{"status": "created"}

	m.UpdateAudioComponent(media.InputController, id, data)
	data["status"] = "mutated"

	got := m.AudioComponents()[media.InputController][id]["status"]
	if got != "created" {
		t.Errorf("stored component aliased caller data: %v", got)
	}
}

func TestRemoveAudioComponent(t *testing.T) {
	m, obs := newManagerWithObserver(t)
	id := media.ComponentID{Owner: "4", Component: "7"}

	m.RemoveAudioComponent(media.OutputController, id)
	if len(obs.calls) != 0 {
		t.Errorf("removing unknown component should not notify, got %v", obs.calls)
	}

	m.UpdateAudioComponent(media.OutputController, id, media.AudioComponent{"status": "created"})
	m.RemoveAudioComponent(media.OutputController, id)

	if m.AudioComponentCount() != 0 {
		t.Errorf("expected no components, got %d", m.AudioComponentCount())
	}
	if obs.calls[len(obs.calls)-1] != "componentRemoved" {
		t.Errorf("expected component removed notification, got %v", obs.calls)
	}
}

func TestWholesaleReplaceUpdates(t *testing.T) {
	m, obs := newManagerWithObserver(t)

	m.UpdateAudioFocusSessions(nil)
	m.UpdateRegisteredCdms([]media.RegisteredCdm{})
	if len(obs.calls) != 0 {
		t.Fatalf("empty payloads must not notify, got %v", obs.calls)
	}

	m.UpdateAudioFocusSessions([]media.AudioFocusSession{{Name: "a"}, {Name: "b"}})
	m.UpdateAudioFocusSessions([]media.AudioFocusSession{{Name: "c"}})
	if len(obs.sessions) != 1 || obs.sessions[0].Name != "c" {
		t.Errorf("expected wholesale replace, got %+v", obs.sessions)
	}

	m.UpdateRegisteredCdms([]media.RegisteredCdm{{KeySystem: "org.w3.clearkey"}})
	if len(obs.cdms) != 1 {
		t.Errorf("expected 1 cdm, got %d", len(obs.cdms))
	}

	m.UpdateGeneralAudioInformation(media.GeneralAudioInfo{"a": 1})
	m.UpdateGeneralAudioInformation(media.GeneralAudioInfo{"b": 2})
	if diff := cmp.Diff(media.GeneralAudioInfo{"b": 2}, obs.info); diff != "" {
		t.Errorf("general info mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateVideoCaptureCapabilities(t *testing.T) {
	m, obs := newManagerWithObserver(t)

	m.UpdateVideoCaptureCapabilities([]media.VideoCaptureDevice{{
		ID:      "cam0",
		Name:    "Integrated Camera",
		Formats: []string{"(1280x720)@30.000fps, pixel format: PIXEL_FORMAT_I420, storage: CPU"},
	}})

	if len(obs.devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(obs.devices))
	}
	want := []media.VideoCaptureFormat{{"resolution": "1280x720", "fps": "30.00", "storage": "CPU"}}
	if diff := cmp.Diff(want, obs.devices[0].ParsedFormats); diff != "" {
		t.Errorf("parsed formats mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscribeReplaysState(t *testing.T) {
	m := media.NewManager()
	m.AddPlayer(testKey)
	m.UpdateAudioComponent(media.InputController, media.ComponentID{Owner: "1", Component: "1"}, media.AudioComponent{})
	m.UpdateGeneralAudioInformation(media.GeneralAudioInfo{"x": "y"})
	m.UpdateAudioFocusSessions([]media.AudioFocusSession{{Name: "s"}})

	obs := newRecordingObserver()
	unsubscribe := m.Subscribe(obs)

	want := []string{"playerAdded", "componentAdded", "generalInfo", "focus"}
	if diff := cmp.Diff(want, obs.calls); diff != "" {
		t.Errorf("replay mismatch (-want +got):\n%s", diff)
	}

	unsubscribe()
	m.AddPlayer(media.PlayerKey{Renderer: "3", Player: "3"})
	if len(obs.calls) != len(want) {
		t.Error("unsubscribed observer should not be notified")
	}
}
