package media

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrUnknownPlayer is returned when an update references a player that is
// not tracked.
var ErrUnknownPlayer = errors.New("unknown player")

// Observer receives change notifications from the Manager.
//
// Notifications are delivered synchronously, in mutation order, while the
// Manager's lock is held. Maps and slices passed in are snapshots shared by
// all observers: they may be kept but must be treated as read-only. An
// observer must not call Manager mutators from inside a notification.
type Observer interface {
	PlayerAdded(players map[PlayerKey]Player, player Player)
	PlayerRemoved(players map[PlayerKey]Player, player Player)
	PlayerUpdated(players map[PlayerKey]Player, player Player, key string, value any)
	AudioComponentAdded(componentType ComponentType, components map[ComponentID]AudioComponent)
	AudioComponentRemoved(componentType ComponentType, components map[ComponentID]AudioComponent)
	GeneralAudioInformationSet(info GeneralAudioInfo)
	AudioFocusSessionsUpdated(sessions []AudioFocusSession)
	RegisteredCdmsUpdated(cdms []RegisteredCdm)
	VideoCaptureCapabilitiesUpdated(devices []VideoCaptureDevice)
}

// Manager is the single aggregate of mirrored media state.
// It is safe for concurrent access.
type Manager struct {
	mu sync.Mutex

	players         map[PlayerKey]*Player
	audioComponents map[ComponentType]map[ComponentID]AudioComponent
	audioInfo       GeneralAudioInfo
	focusSessions   []AudioFocusSession
	cdms            []RegisteredCdm
	videoCapture    []VideoCaptureDevice

	observers []*observerEntry
}

type observerEntry struct {
	observer Observer
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		players:         make(map[PlayerKey]*Player),
		audioComponents: make(map[ComponentType]map[ComponentID]AudioComponent),
	}
}

// Subscribe registers an observer, replays the current state to it and
// returns a function that unregisters it.
func (m *Manager) Subscribe(o Observer) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &observerEntry{observer: o}
	m.observers = append(m.observers, entry)
	m.replayLocked(o)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.observers = slices.DeleteFunc(m.observers, func(e *observerEntry) bool {
			return e == entry
		})
	}
}

// Replay sends the current state to an already subscribed observer again.
func (m *Manager) Replay(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replayLocked(o)
}

func (m *Manager) replayLocked(o Observer) {
	if len(m.players) > 0 {
		players := m.playersLocked()
		for _, key := range sortedPlayerKeys(players) {
			o.PlayerAdded(players, players[key])
		}
	}
	for _, t := range ComponentTypes {
		if bucket, ok := m.audioComponents[t]; ok {
			o.AudioComponentAdded(t, cloneBucket(bucket))
		}
	}
	if m.audioInfo != nil {
		o.GeneralAudioInformationSet(maps.Clone(m.audioInfo))
	}
	if len(m.focusSessions) > 0 {
		o.AudioFocusSessionsUpdated(slices.Clone(m.focusSessions))
	}
	if len(m.cdms) > 0 {
		o.RegisteredCdmsUpdated(slices.Clone(m.cdms))
	}
	if len(m.videoCapture) > 0 {
		o.VideoCaptureCapabilitiesUpdated(slices.Clone(m.videoCapture))
	}
}

func (m *Manager) notify(fn func(Observer)) {
	for _, e := range m.observers {
		fn(e.observer)
	}
}

// playersLocked snapshots the player map (must hold lock).
func (m *Manager) playersLocked() map[PlayerKey]Player {
	players := make(map[PlayerKey]Player, len(m.players))
	for key, p := range m.players {
		players[key] = p.snapshot()
	}
	return players
}

// AddPlayer starts tracking a player. Adding a tracked player is a no-op.
func (m *Manager) AddPlayer(key PlayerKey) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.players[key]; exists {
		return
	}

	p := newPlayer(key)
	m.players[key] = p

	log.Debug().Str("player", key.String()).Msg("Player added")

	players := m.playersLocked()
	added := players[key]
	m.notify(func(o Observer) { o.PlayerAdded(players, added) })
}

// RemovePlayer stops tracking a player. Removing an unknown player leaves the
// state unchanged but still notifies observers so views can redraw.
func (m *Manager) RemovePlayer(key PlayerKey) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := Player{Key: key}
	if p, exists := m.players[key]; exists {
		removed = p.snapshot()
		delete(m.players, key)
		log.Debug().Str("player", key.String()).Msg("Player removed")
	}

	players := m.playersLocked()
	m.notify(func(o Observer) { o.PlayerRemoved(players, removed) })
}

// UpdatePlayerInfo records a property change in the player's event log and
// latest-value map.
func (m *Manager) UpdatePlayerInfo(key PlayerKey, timestamp float64, property string, value any) error {
	return m.updatePlayer(key, property, value, func(p *Player) {
		p.addProperty(timestamp, property, value)
	})
}

// UpdatePlayerInfoNoRecord updates the latest-value map without appending to
// the event log. Used for plumbing fields such as render and player ids.
func (m *Manager) UpdatePlayerInfoNoRecord(key PlayerKey, timestamp float64, property string, value any) error {
	return m.updatePlayer(key, property, value, func(p *Player) {
		p.addPropertyNoRecord(property, value)
	})
}

// MarkPlayerDestroyed sets the soft-delete flag of a player. The player stays
// tracked until RemovePlayer.
func (m *Manager) MarkPlayerDestroyed(key PlayerKey) error {
	return m.updatePlayer(key, PropertyDestructed, true, func(p *Player) {
		p.Destructed = true
		p.addPropertyNoRecord(PropertyDestructed, true)
	})
}

func (m *Manager) updatePlayer(key PlayerKey, property string, value any, apply func(*Player)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.players[key]
	if !exists {
		log.Error().Str("player", key.String()).Str("key", property).Msg("Update for unknown player")
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, key)
	}

	apply(p)

	players := m.playersLocked()
	updated := players[key]
	m.notify(func(o Observer) { o.PlayerUpdated(players, updated, property, value) })
	return nil
}

// UpdateAudioComponent stores or merges the properties of an audio
// component. Existing fields are overwritten and new fields added.
func (m *Manager) UpdateAudioComponent(componentType ComponentType, id ComponentID, data AudioComponent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.audioComponents[componentType]
	if !ok {
		bucket = make(map[ComponentID]AudioComponent)
		m.audioComponents[componentType] = bucket
	}

	if existing, ok := bucket[id]; ok {
		maps.Copy(existing, data)
	} else {
		bucket[id] = data.Clone()
	}

	components := cloneBucket(bucket)
	m.notify(func(o Observer) { o.AudioComponentAdded(componentType, components) })
}

// RemoveAudioComponent forgets an audio component. Unknown ids are ignored.
func (m *Manager) RemoveAudioComponent(componentType ComponentType, id ComponentID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.audioComponents[componentType]
	if !ok {
		return
	}
	if _, ok := bucket[id]; !ok {
		return
	}
	delete(bucket, id)

	components := cloneBucket(bucket)
	m.notify(func(o Observer) { o.AudioComponentRemoved(componentType, components) })
}

// UpdateGeneralAudioInformation replaces the general audio information.
func (m *Manager) UpdateGeneralAudioInformation(info GeneralAudioInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audioInfo = maps.Clone(info)
	if m.audioInfo == nil {
		m.audioInfo = GeneralAudioInfo{}
	}

	snapshot := maps.Clone(m.audioInfo)
	m.notify(func(o Observer) { o.GeneralAudioInformationSet(snapshot) })
}

// UpdateAudioFocusSessions replaces the audio focus session list. An empty
// list is treated as nothing to show and does not notify.
func (m *Manager) UpdateAudioFocusSessions(sessions []AudioFocusSession) {
	if len(sessions) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.focusSessions = slices.Clone(sessions)
	snapshot := slices.Clone(sessions)
	m.notify(func(o Observer) { o.AudioFocusSessionsUpdated(snapshot) })
}

// UpdateRegisteredCdms replaces the registered CDM list. An empty list does
// not notify.
func (m *Manager) UpdateRegisteredCdms(cdms []RegisteredCdm) {
	if len(cdms) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cdms = slices.Clone(cdms)
	snapshot := slices.Clone(cdms)
	m.notify(func(o Observer) { o.RegisteredCdmsUpdated(snapshot) })
}

// UpdateVideoCaptureCapabilities parses the freeform format strings of each
// device and hands the result to observers.
func (m *Manager) UpdateVideoCaptureCapabilities(devices []VideoCaptureDevice) {
	parsed := make([]VideoCaptureDevice, len(devices))
	for i, device := range devices {
		device.Formats = slices.Clone(device.Formats)
		device.ParsedFormats = make([]VideoCaptureFormat, 0, len(device.Formats))
		for _, format := range device.Formats {
			device.ParsedFormats = append(device.ParsedFormats, ParseVideoCaptureFormat(format))
		}
		parsed[i] = device
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Kept only to replay late subscribers.
	m.videoCapture = parsed
	snapshot := slices.Clone(parsed)
	m.notify(func(o Observer) { o.VideoCaptureCapabilitiesUpdated(snapshot) })
}

// Players returns a snapshot of every tracked player.
func (m *Manager) Players() map[PlayerKey]Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playersLocked()
}

// Player returns a snapshot of one player.
func (m *Manager) Player(key PlayerKey) (Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[key]
	if !ok {
		return Player{}, false
	}
	return p.snapshot(), true
}

// PlayerCount returns the number of tracked players.
func (m *Manager) PlayerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}

// AudioComponents returns a snapshot of every component bucket.
func (m *Manager) AudioComponents() map[ComponentType]map[ComponentID]AudioComponent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[ComponentType]map[ComponentID]AudioComponent, len(m.audioComponents))
	for t, bucket := range m.audioComponents {
		out[t] = cloneBucket(bucket)
	}
	return out
}

// AudioComponentCount returns the number of tracked components of all types.
func (m *Manager) AudioComponentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, bucket := range m.audioComponents {
		n += len(bucket)
	}
	return n
}

// GeneralAudioInformation returns a copy of the general audio information.
func (m *Manager) GeneralAudioInformation() GeneralAudioInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.audioInfo)
}

func cloneBucket(bucket map[ComponentID]AudioComponent) map[ComponentID]AudioComponent {
	out := make(map[ComponentID]AudioComponent, len(bucket))
	for id, c := range bucket {
		out[id] = c.Clone()
	}
	return out
}

// SortedPlayerKeys returns the keys of players in string order.
func SortedPlayerKeys(players map[PlayerKey]Player) []PlayerKey {
	return sortedPlayerKeys(players)
}

func sortedPlayerKeys(players map[PlayerKey]Player) []PlayerKey {
	keys := slices.Collect(maps.Keys(players))
	slices.SortFunc(keys, func(a, b PlayerKey) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}

// SortedComponentIDs returns the ids of components in string order.
func SortedComponentIDs(components map[ComponentID]AudioComponent) []ComponentID {
	ids := slices.Collect(maps.Keys(components))
	slices.SortFunc(ids, func(a, b ComponentID) int {
		return strings.Compare(a.String(), b.String())
	})
	return ids
}

