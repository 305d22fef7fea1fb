package ingest

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
)

// Journal persists accepted pushes.
type Journal interface {
	Append(kind Kind, payload json.RawMessage) error
}

// Metrics counts pushes by outcome.
type Metrics interface {
	MessageAccepted(kind Kind)
	MessageRejected(kind Kind, err error)
}

// Adapter applies inbound pushes to a Manager.
type Adapter struct {
	manager *media.Manager
	journal Journal
	metrics Metrics
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithJournal appends every accepted push to j before it is applied.
func WithJournal(j Journal) Option {
	return func(a *Adapter) { a.journal = j }
}

// WithMetrics reports push outcomes to m.
func WithMetrics(m Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// NewAdapter creates an adapter feeding manager.
func NewAdapter(manager *media.Manager, opts ...Option) *Adapter {
	a := &Adapter{manager: manager}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ingest decodes, journals and dispatches one push. A push that fails to
// decode is reported and never reaches the Manager.
func (a *Adapter) Ingest(kind Kind, raw json.RawMessage) error {
	msg, err := Decode(kind, raw)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("Rejected push")
		if a.metrics != nil {
			a.metrics.MessageRejected(kind, err)
		}
		return err
	}

	if a.journal != nil {
		if err := a.journal.Append(kind, raw); err != nil {
			log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to journal push")
		}
	}

	a.Dispatch(msg)
	if a.metrics != nil {
		a.metrics.MessageAccepted(kind)
	}
	return nil
}

// Apply decodes and dispatches a push without journaling it. Used to replay
// journals.
func (a *Adapter) Apply(kind Kind, raw json.RawMessage) error {
	msg, err := Decode(kind, raw)
	if err != nil {
		return err
	}
	a.Dispatch(msg)
	return nil
}

// Dispatch translates a decoded message into Manager calls.
func (a *Adapter) Dispatch(msg Message) {
	switch m := msg.(type) {
	case GeneralAudioInformation:
		a.manager.UpdateGeneralAudioInformation(m.Info)

	case AudioStreamData:
		for _, c := range m.Components {
			if c.Closed {
				a.manager.RemoveAudioComponent(c.Type, c.ID)
				continue
			}
			a.manager.UpdateAudioComponent(c.Type, c.ID, c.Data)
		}

	case VideoCaptureCapabilities:
		a.manager.UpdateVideoCaptureCapabilities(m.Devices)

	case AudioFocusState:
		a.manager.UpdateAudioFocusSessions(m.Sessions)

	case RegisteredCdms:
		a.manager.UpdateRegisteredCdms(m.Cdms)

	case PlayerOpen:
		a.manager.AddPlayer(m.Key)

	case MediaEvent:
		a.dispatchMediaEvent(m)

	default:
		log.Warn().Type("message", msg).Msg("Unhandled message")
	}
}

// dispatchMediaEvent adds the player if needed, since no event reliably
// precedes the first media event of a player.
func (a *Adapter) dispatchMediaEvent(ev MediaEvent) {
	a.manager.AddPlayer(ev.Key)

	// Errors below can only mean the player vanished concurrently; the
	// Manager has already logged them.
	_ = a.manager.UpdatePlayerInfoNoRecord(ev.Key, ev.TicksMillis, media.PropertyRenderID, ev.Key.Renderer)
	_ = a.manager.UpdatePlayerInfoNoRecord(ev.Key, ev.TicksMillis, media.PropertyPlayerID, ev.Key.Player)

	if len(ev.Params) == 0 {
		_ = a.manager.UpdatePlayerInfo(ev.Key, ev.TicksMillis, media.PropertyEvent, ev.Type)
	} else {
		for _, key := range slices.Sorted(maps.Keys(ev.Params)) {
			_ = a.manager.UpdatePlayerInfo(ev.Key, ev.TicksMillis, strings.TrimSpace(key), ev.Params[key])
		}
	}

	if ev.Type == media.EventPlayerDestroyed {
		_ = a.manager.MarkPlayerDestroyed(ev.Key)
	}
}
