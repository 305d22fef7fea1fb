package mpd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
	"github.com/edumarques81/stellar-media-internals/internal/ingest"
)

// Renderer is the renderer id under which the MPD player is reported.
const Renderer = "mpd"

// Subsystems are the MPD idle subsystems the source watches.
var Subsystems = []string{"player", "mixer", "options", "output"}

var errWatcherClosed = errors.New("watcher closed")

// Pusher accepts inbound pushes. *ingest.Adapter satisfies it.
type Pusher interface {
	Ingest(kind ingest.Kind, raw json.RawMessage) error
}

type stateReader interface {
	Status() (mpd.Attrs, error)
	CurrentSong() (mpd.Attrs, error)
	ListOutputs() ([]mpd.Attrs, error)
}

// Source reports MPD state as instrumentation pushes.
type Source struct {
	client *Client
	state  stateReader
	pusher Pusher
	key    media.PlayerKey
	poll   time.Duration
	now    func() time.Time

	mu      sync.Mutex
	params  map[string]string
	outputs map[string]bool
	info    string
}

// NewSource creates a source for client. A positive poll interval also
// refreshes the elapsed time between idle events.
func NewSource(client *Client, pusher Pusher, poll time.Duration) *Source {
	return &Source{
		client:  client,
		state:   client,
		pusher:  pusher,
		key:     media.PlayerKey{Renderer: Renderer, Player: client.Addr()},
		poll:    poll,
		now:     time.Now,
		params:  map[string]string{},
		outputs: map[string]bool{},
	}
}

// Key returns the player key the MPD player is reported under.
func (s *Source) Key() media.PlayerKey {
	return s.key
}

// RequestEverything forgets what was reported so far and pushes the full
// current state.
func (s *Source) RequestEverything(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.params = map[string]string{}
	s.info = ""
	s.mu.Unlock()

	if err := s.push(ingest.KindPlayerOpen, map[string]string{
		"renderer": s.key.Renderer,
		"player":   s.key.Player,
	}); err != nil {
		return err
	}
	if err := s.syncOutputs(); err != nil {
		return err
	}
	return s.syncPlayer()
}

// Sync pushes the changes of one MPD subsystem.
func (s *Source) Sync(subsystem string) error {
	switch subsystem {
	case "output":
		return s.syncOutputs()
	case "player", "mixer", "options":
		return s.syncPlayer()
	default:
		log.Debug().Str("subsystem", subsystem).Msg("Ignoring MPD subsystem")
		return nil
	}
}

// Run watches MPD until ctx is done, resynchronizing after every
// (re)connection.
func (s *Source) Run(ctx context.Context) error {
	for {
		err := s.watch(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.Warn().Err(err).Str("addr", s.client.Addr()).Msg("MPD watch stopped, retrying")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *Source) watch(ctx context.Context) error {
	events, err := s.client.Watch(ctx, Subsystems...)
	if err != nil {
		return err
	}

	if err := s.RequestEverything(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to request MPD state")
	}

	var tick <-chan time.Time
	if s.poll > 0 {
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			// Wait for the watcher goroutine to release the connection.
			for range events {
			}
			return ctx.Err()
		case subsystem, ok := <-events:
			if !ok {
				return errWatcherClosed
			}
			if err := s.Sync(subsystem); err != nil {
				log.Warn().Err(err).Str("subsystem", subsystem).Msg("Failed to sync MPD subsystem")
			}
		case <-tick:
			if err := s.syncPlayer(); err != nil {
				log.Warn().Err(err).Msg("Failed to poll MPD status")
			}
		}
	}
}

func (s *Source) syncPlayer() error {
	status, err := s.state.Status()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	song, err := s.state.CurrentSong()
	if err != nil {
		return fmt.Errorf("current song: %w", err)
	}

	next := playerParams(status, song)
	info := generalInfo(s.client.Addr(), status)

	s.mu.Lock()
	changed := diffParams(s.params, next)
	s.params = next
	infoJSON, _ := json.Marshal(info)
	infoChanged := string(infoJSON) != s.info
	s.info = string(infoJSON)
	s.mu.Unlock()

	if infoChanged {
		if err := s.push(ingest.KindGeneralAudioInformation, info); err != nil {
			return err
		}
	}
	if len(changed) == 0 {
		return nil
	}
	return s.push(ingest.KindMediaEvent, map[string]any{
		"renderer":    s.key.Renderer,
		"player":      s.key.Player,
		"ticksMillis": s.ticks(),
		"type":        "PROPERTY_CHANGE",
		"params":      changed,
	})
}

func (s *Source) syncOutputs() error {
	outputs, err := s.state.ListOutputs()
	if err != nil {
		return fmt.Errorf("outputs: %w", err)
	}

	s.mu.Lock()
	data, seen := outputComponents(outputs, s.outputs)
	s.outputs = seen
	s.mu.Unlock()

	if len(data) == 0 {
		return nil
	}
	return s.push(ingest.KindAudioStreamData, data)
}

// ticks is wall-clock milliseconds, so times keep increasing across restarts
// when an earlier session is replayed.
func (s *Source) ticks() float64 {
	return float64(s.now().UnixMicro()) / 1000
}

func (s *Source) push(kind ingest.Kind, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	return s.pusher.Ingest(kind, raw)
}

// playerParams maps MPD status and song attributes to player properties.
// Empty values are omitted.
func playerParams(status, song mpd.Attrs) map[string]string {
	params := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			params[key] = value
		}
	}

	set("state", status["state"])
	set("volume", status["volume"])
	set("elapsed", status["elapsed"])
	set("duration", status["duration"])
	set("bitrate", status["bitrate"])
	set("audio", status["audio"])
	set("repeat", status["repeat"])
	set("random", status["random"])
	set("single", status["single"])
	set("consume", status["consume"])
	set("error", status["error"])

	set(media.PropertyURL, song["file"])
	title := song["Title"]
	if title == "" {
		title = song["Name"]
	}
	if artist := song["Artist"]; artist != "" && title != "" {
		title = artist + " - " + title
	}
	set(media.PropertyName, title)

	return params
}

// diffParams returns the entries of next that differ from prev. Keys that
// disappeared are reported with an empty value.
func diffParams(prev, next map[string]string) map[string]string {
	changed := map[string]string{}
	for k, v := range next {
		if old, ok := prev[k]; !ok || old != v {
			changed[k] = v
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			changed[k] = ""
		}
	}
	return changed
}

// generalInfo describes the MPD output format. The audio status field has
// the form "samplerate:bits:channels".
func generalInfo(addr string, status mpd.Attrs) map[string]any {
	info := map[string]any{"mpd_address": addr}
	audio := status["audio"]
	if audio == "" {
		return info
	}
	info["audio_format"] = audio
	if parts := strings.Split(audio, ":"); len(parts) == 3 {
		info["sample_rate"] = parts[0]
		info["bits_per_sample"] = parts[1]
		info["channels"] = parts[2]
	}
	return info
}

// outputComponents converts MPD outputs to output stream components.
// Outputs in known that are no longer listed are reported closed.
func outputComponents(outputs []mpd.Attrs, known map[string]bool) (map[string]map[string]any, map[string]bool) {
	data := map[string]map[string]any{}
	seen := make(map[string]bool, len(outputs))

	for _, out := range outputs {
		id := out["outputid"]
		if id == "" {
			continue
		}
		seen[id] = true

		status := "disabled"
		if out["outputenabled"] == "1" {
			status = "enabled"
		}
		component := map[string]any{
			"component_type": int(media.OutputStream),
			"owner_id":       Renderer,
			"component_id":   id,
			"status":         status,
			"name":           out["outputname"],
		}
		if plugin := out["plugin"]; plugin != "" {
			component["plugin"] = plugin
		}
		data["output_"+id] = component
	}

	for id := range known {
		if seen[id] {
			continue
		}
		data["output_"+id] = map[string]any{
			"component_type": int(media.OutputStream),
			"owner_id":       Renderer,
			"component_id":   id,
			"status":         ingest.StatusClosed,
		}
	}

	return data, seen
}
