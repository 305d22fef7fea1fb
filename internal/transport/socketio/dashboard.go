package socketio

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
	"github.com/edumarques81/stellar-media-internals/internal/render"
)

// Client-to-server dashboard events.
const (
	EventGetEverything        = "getEverything"
	EventSelectPlayer         = "selectPlayer"
	EventSelectAudioComponent = "selectAudioComponent"
	EventSetFilter            = "setFilter"
	EventHidePlayers          = "hidePlayers"
	EventCopyPlayers          = "copyPlayers"
	EventCopyAudioComponents  = "copyAudioComponents"
	EventCopySelected         = "copySelected"
	EventSaveLog              = "saveLog"
)

// DashboardEvents lists the events a dashboard client may send.
var DashboardEvents = []string{
	EventGetEverything,
	EventSelectPlayer,
	EventSelectAudioComponent,
	EventSetFilter,
	EventHidePlayers,
	EventCopyPlayers,
	EventCopyAudioComponents,
	EventCopySelected,
	EventSaveLog,
}

var errBadArgs = errors.New("bad arguments")

// ErrorPayload is the body of pushError.
type ErrorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// dashboardSession is the state of one connected dashboard: its renderer,
// its list debouncer and its Manager subscription.
type dashboardSession struct {
	id          string
	manager     *media.Manager
	renderer    *render.ClientRenderer
	debouncer   *BroadcastDebouncer
	emit        EmitFunc
	unsubscribe func()
}

func newDashboardSession(id string, manager *media.Manager, emit EmitFunc, window time.Duration, filter string) *dashboardSession {
	debouncer := NewBroadcastDebouncer(window)
	renderer := render.NewClientRenderer(newClientSink(emit, debouncer), manager)
	if filter != "" {
		renderer.SetFilter(filter)
	}

	d := &dashboardSession{
		id:        id,
		manager:   manager,
		renderer:  renderer,
		debouncer: debouncer,
		emit:      emit,
	}
	d.unsubscribe = manager.Subscribe(renderer)
	return d
}

// handle runs one client event. Failures are reported to the client as
// pushError and returned.
func (d *dashboardSession) handle(event string, args []any) error {
	err := d.dispatch(event, args)
	if err != nil {
		log.Warn().Err(err).Str("id", d.id).Str("event", event).Msg("Dashboard event failed")
		d.emit(EventError, ErrorPayload{Event: event, Message: err.Error()})
	}
	return err
}

func (d *dashboardSession) dispatch(event string, args []any) error {
	switch event {
	case EventGetEverything:
		d.manager.Replay(d.renderer)
		return nil

	case EventSelectPlayer:
		id, err := stringArg(args, "id")
		if err != nil {
			return err
		}
		key, err := media.ParsePlayerKey(id)
		if err != nil {
			return err
		}
		return d.renderer.SelectPlayer(key)

	case EventSelectAudioComponent:
		componentType, id, err := componentArgs(args)
		if err != nil {
			return err
		}
		return d.renderer.SelectAudioComponent(componentType, id)

	case EventSetFilter:
		text, err := stringArg(args, "filter")
		if err != nil {
			return err
		}
		d.renderer.SetFilter(text)
		return nil

	case EventHidePlayers:
		d.renderer.HidePlayers()
		return nil

	case EventCopyPlayers:
		_, err := d.renderer.CopyPlayers()
		return err

	case EventCopyAudioComponents:
		_, err := d.renderer.CopyAudioComponents()
		return err

	case EventCopySelected:
		_, err := d.renderer.CopySelected()
		return err

	case EventSaveLog:
		_, err := d.renderer.SaveLog()
		return err
	}
	return fmt.Errorf("unknown event %q", event)
}

func (d *dashboardSession) close() {
	d.unsubscribe()
	d.debouncer.Stop()
}

// stringArg accepts either a bare string or an object carrying field.
func stringArg(args []any, field string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%w: missing %s", errBadArgs, field)
	}
	switch v := args[0].(type) {
	case string:
		return v, nil
	case map[string]any:
		if s, ok := v[field].(string); ok {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %s must be a string", errBadArgs, field)
}

// componentArgs reads {type, id} where type is the numeric component type and
// id the "owner:component" form.
func componentArgs(args []any) (media.ComponentType, media.ComponentID, error) {
	if len(args) == 0 {
		return 0, media.ComponentID{}, fmt.Errorf("%w: missing component", errBadArgs)
	}
	m, ok := args[0].(map[string]any)
	if !ok {
		return 0, media.ComponentID{}, fmt.Errorf("%w: component must be an object", errBadArgs)
	}
	n, ok := m["type"].(float64)
	if !ok || !media.ComponentType(n).Valid() || n != float64(int(n)) {
		return 0, media.ComponentID{}, fmt.Errorf("%w: invalid component type %v", errBadArgs, m["type"])
	}
	s, ok := m["id"].(string)
	if !ok {
		return 0, media.ComponentID{}, fmt.Errorf("%w: component id must be a string", errBadArgs)
	}
	id, err := media.ParseComponentID(s)
	if err != nil {
		return 0, media.ComponentID{}, err
	}
	return media.ComponentType(n), id, nil
}
