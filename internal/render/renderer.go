package render

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
)

var (
	// ErrUnknownSelection is returned when selecting an entity the renderer
	// has not been told about.
	ErrUnknownSelection = errors.New("unknown selection")

	// ErrNothingSelected is returned by operations that need a selection.
	ErrNothingSelected = errors.New("nothing selected")
)

// PlayerRemover removes players from the aggregate. It is satisfied by
// *media.Manager.
type PlayerRemover interface {
	RemovePlayer(key media.PlayerKey)
}

type componentSelection struct {
	componentType media.ComponentType
	id            media.ComponentID
}

// ClientRenderer projects Manager notifications plus its own selection state
// onto a Sink. It implements media.Observer and is safe for concurrent use.
type ClientRenderer struct {
	mu      sync.Mutex
	sink    Sink
	remover PlayerRemover

	players    map[media.PlayerKey]media.Player
	components map[media.ComponentType]map[media.ComponentID]media.AudioComponent

	selectedPlayer    *media.PlayerKey
	logIndex          int
	selectedComponent *componentSelection

	filter Filter
}

// NewClientRenderer creates a renderer drawing on sink. remover may be nil,
// in which case HidePlayers is a no-op.
func NewClientRenderer(sink Sink, remover PlayerRemover) *ClientRenderer {
	r := &ClientRenderer{
		sink:       sink,
		remover:    remover,
		players:    make(map[media.PlayerKey]media.Player),
		components: make(map[media.ComponentType]map[media.ComponentID]media.AudioComponent),
	}
	sink.SetMarker(MarkerNoPlayersSelected, true)
	sink.SetMarker(MarkerNoComponentsSelected, true)
	return r
}

// PlayerAdded implements media.Observer.
func (r *ClientRenderer) PlayerAdded(players map[media.PlayerKey]media.Player, _ media.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.players = players
	r.redrawPlayerList()
}

// PlayerRemoved implements media.Observer.
func (r *ClientRenderer) PlayerRemoved(players map[media.PlayerKey]media.Player, player media.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.players = players
	if r.isSelectedPlayer(player.Key) {
		r.sink.RenderProperties(TablePlayerProperties, nil)
		r.sink.ClearLog()
		r.sink.ClearGraph()
		r.selectedPlayer = nil
		r.logIndex = 0
		r.sink.SetMarker(MarkerNoPlayersSelected, true)
	}
	r.redrawPlayerList()
}

// PlayerUpdated implements media.Observer.
func (r *ClientRenderer) PlayerUpdated(players map[media.PlayerKey]media.Player, player media.Player, key string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.players = players
	if r.isSelectedPlayer(player.Key) {
		r.sink.RenderProperties(TablePlayerProperties, PropertyRows(player.Properties))
		r.drawLog(player)
	}

	switch key {
	case media.PropertyName, media.PropertyURL, media.PropertyDestructed:
		r.redrawPlayerList()
	}
}

// AudioComponentAdded implements media.Observer.
func (r *ClientRenderer) AudioComponentAdded(componentType media.ComponentType, components map[media.ComponentID]media.AudioComponent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.components[componentType] = components
	r.redrawAudioComponentList(componentType)

	if sel := r.selectedComponent; sel != nil && sel.componentType == componentType {
		if data, ok := components[sel.id]; ok {
			r.sink.RenderProperties(TableAudioProperties, PropertyRows(data))
		}
	}
}

// AudioComponentRemoved implements media.Observer.
func (r *ClientRenderer) AudioComponentRemoved(componentType media.ComponentType, components map[media.ComponentID]media.AudioComponent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.components[componentType] = components
	if sel := r.selectedComponent; sel != nil && sel.componentType == componentType {
		if _, ok := components[sel.id]; !ok {
			r.clearComponentSelection()
		}
	}
	r.redrawAudioComponentList(componentType)
}

// GeneralAudioInformationSet implements media.Observer.
func (r *ClientRenderer) GeneralAudioInformationSet(info media.GeneralAudioInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink.RenderProperties(TableGeneralAudioInfo, PropertyRows(info))
}

// AudioFocusSessionsUpdated implements media.Observer.
func (r *ClientRenderer) AudioFocusSessionsUpdated(sessions []media.AudioFocusSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink.RenderAudioFocusSessions(sessions)
}

// RegisteredCdmsUpdated implements media.Observer.
func (r *ClientRenderer) RegisteredCdmsUpdated(cdms []media.RegisteredCdm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink.RenderRegisteredCdms(cdms)
}

// VideoCaptureCapabilitiesUpdated implements media.Observer.
func (r *ClientRenderer) VideoCaptureCapabilitiesUpdated(devices []media.VideoCaptureDevice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink.RenderVideoCaptureCapabilities(devices)
}

// SelectPlayer makes key the inspected player. The log is redrawn from the
// first event.
func (r *ClientRenderer) SelectPlayer(key media.PlayerKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[key]
	if !ok {
		return fmt.Errorf("%w: player %s", ErrUnknownSelection, key)
	}

	if r.selectedComponent != nil {
		r.clearComponentSelection()
		r.redrawAllAudioComponentLists()
	}

	r.sink.SetMarker(MarkerNoPlayersSelected, false)
	r.selectedPlayer = &key
	r.logIndex = 0

	r.sink.RenderProperties(TablePlayerProperties, PropertyRows(player.Properties))
	r.sink.ClearLog()
	r.sink.ClearGraph()
	r.drawLog(player)
	r.redrawPlayerList()
	return nil
}

// SelectAudioComponent makes the component the inspected entity.
func (r *ClientRenderer) SelectAudioComponent(componentType media.ComponentType, id media.ComponentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok := r.components[componentType][id]
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrUnknownSelection, componentType, id)
	}

	if r.selectedPlayer != nil {
		r.sink.RenderProperties(TablePlayerProperties, nil)
		r.sink.ClearLog()
		r.sink.ClearGraph()
		r.selectedPlayer = nil
		r.logIndex = 0
		r.sink.SetMarker(MarkerNoPlayersSelected, true)
		r.redrawPlayerList()
	}

	r.sink.SetMarker(MarkerNoComponentsSelected, false)
	r.selectedComponent = &componentSelection{componentType: componentType, id: id}
	r.sink.RenderProperties(TableAudioProperties, PropertyRows(data))
	r.redrawAllAudioComponentLists()
	return nil
}

// SetFilter changes the log filter. With a player selected the log is
// cleared and replayed under the new filter.
func (r *ClientRenderer) SetFilter(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.filter = ParseFilter(text)
	if r.selectedPlayer == nil {
		return
	}
	player, ok := r.players[*r.selectedPlayer]
	if !ok {
		return
	}
	r.sink.ClearLog()
	r.logIndex = 0
	r.drawLog(player)
}

// Filter returns the active log filter.
func (r *ClientRenderer) Filter() Filter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter
}

// SelectedPlayer returns the inspected player key, if any.
func (r *ClientRenderer) SelectedPlayer() (media.PlayerKey, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selectedPlayer == nil {
		return media.PlayerKey{}, false
	}
	return *r.selectedPlayer, true
}

// SelectedAudioComponent returns the inspected component, if any.
func (r *ClientRenderer) SelectedAudioComponent() (media.ComponentType, media.ComponentID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selectedComponent == nil {
		return 0, media.ComponentID{}, false
	}
	return r.selectedComponent.componentType, r.selectedComponent.id, true
}

// Players returns the player keys currently shown, sorted.
func (r *ClientRenderer) Players() []media.PlayerKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	return media.SortedPlayerKeys(r.players)
}

// HidePlayers removes every player the renderer knows about from the
// aggregate.
func (r *ClientRenderer) HidePlayers() {
	r.mu.Lock()
	keys := media.SortedPlayerKeys(r.players)
	remover := r.remover
	r.mu.Unlock()

	if remover == nil {
		return
	}
	// Removal notifies this renderer, so the lock must be released first.
	for _, key := range keys {
		remover.RemovePlayer(key)
	}
	log.Debug().Int("count", len(keys)).Msg("Players hidden")
}

// CopyPlayers offers the JSON of every player on the clipboard and returns it.
func (r *ClientRenderer) CopyPlayers() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.showClipboard(r.players)
}

// CopyAudioComponents offers the JSON of every component bucket.
func (r *ClientRenderer) CopyAudioComponents() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.showClipboard(ComponentExport(r.components))
}

// CopySelected offers the JSON of the selected player (properties and
// events) or the selected component's properties.
func (r *ClientRenderer) CopySelected() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.selectedPlayer != nil {
		if player, ok := r.players[*r.selectedPlayer]; ok {
			return r.showClipboard(player)
		}
	}
	if sel := r.selectedComponent; sel != nil {
		if data, ok := r.components[sel.componentType][sel.id]; ok {
			return r.showClipboard(data)
		}
	}
	return "", ErrNothingSelected
}

// SaveLog hands the JSON of every player to the sink as ExportFileName and
// returns it. Sinks without file support only get the return value.
func (r *ClientRenderer) SaveLog() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := MarshalExport(r.players)
	if err != nil {
		return nil, err
	}
	if fs, ok := r.sink.(FileSink); ok {
		fs.SaveFile(ExportFileName, data)
	}
	return data, nil
}

func (r *ClientRenderer) showClipboard(v any) (string, error) {
	data, err := MarshalExport(v)
	if err != nil {
		return "", err
	}
	payload := string(data)
	if cs, ok := r.sink.(ClipboardSink); ok {
		cs.ShowClipboard(payload)
	}
	return payload, nil
}

func (r *ClientRenderer) isSelectedPlayer(key media.PlayerKey) bool {
	return r.selectedPlayer != nil && *r.selectedPlayer == key
}

func (r *ClientRenderer) clearComponentSelection() {
	r.sink.RenderProperties(TableAudioProperties, nil)
	r.selectedComponent = nil
	r.sink.SetMarker(MarkerNoComponentsSelected, true)
}

// drawLog appends the events of player not drawn yet and advances the cursor.
func (r *ClientRenderer) drawLog(player media.Player) {
	if r.logIndex > len(player.Events) {
		r.logIndex = 0
	}
	pending := player.Events[r.logIndex:]
	if len(pending) == 0 {
		return
	}

	rows := make([]LogRow, 0, len(pending))
	for _, e := range pending {
		if r.filter.Match(e.Key) {
			rows = append(rows, LogRowFor(e))
		}
	}
	if len(rows) > 0 {
		r.sink.AppendLogRows(rows)
	}
	r.logIndex = len(player.Events)
	r.sink.RenderGraph(GraphBars(player.Events))
}

func (r *ClientRenderer) redrawPlayerList() {
	keys := media.SortedPlayerKeys(r.players)
	items := make([]ListItem, 0, len(keys))
	for _, key := range keys {
		p := r.players[key]
		label := p.Name()
		if p.Destructed {
			label += " (destroyed)"
		}
		items = append(items, ListItem{
			ID:       key.String(),
			Label:    label,
			Selected: r.isSelectedPlayer(key),
		})
	}
	r.sink.RenderPlayerList(items)
}

func (r *ClientRenderer) redrawAudioComponentList(componentType media.ComponentType) {
	components := r.components[componentType]
	ids := media.SortedComponentIDs(components)
	items := make([]ListItem, 0, len(ids))
	for _, id := range ids {
		sel := r.selectedComponent
		items = append(items, ListItem{
			ID:       id.String(),
			Label:    componentType.String() + " " + id.String(),
			Selected: sel != nil && sel.componentType == componentType && sel.id == id,
		})
	}
	r.sink.RenderAudioComponentList(componentType, items)
}

func (r *ClientRenderer) redrawAllAudioComponentLists() {
	types := slices.Sorted(maps.Keys(r.components))
	for _, t := range types {
		r.redrawAudioComponentList(t)
	}
}
