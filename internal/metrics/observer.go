package metrics

import (
	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
)

// Observer keeps the aggregate gauges in step with a Manager.
type Observer struct {
	m *Metrics
}

// Observer returns a media.Observer feeding m. Subscribe it to the Manager.
func (m *Metrics) Observer() *Observer {
	return &Observer{m: m}
}

func (o *Observer) PlayerAdded(players map[media.PlayerKey]media.Player, _ media.Player) {
	o.m.players.Set(float64(len(players)))
}

func (o *Observer) PlayerRemoved(players map[media.PlayerKey]media.Player, _ media.Player) {
	o.m.players.Set(float64(len(players)))
}

func (o *Observer) PlayerUpdated(_ map[media.PlayerKey]media.Player, _ media.Player, _ string, _ any) {
	o.m.playerEvents.Inc()
}

func (o *Observer) AudioComponentAdded(t media.ComponentType, components map[media.ComponentID]media.AudioComponent) {
	o.m.audioComponents.WithLabelValues(t.String()).Set(float64(len(components)))
}

func (o *Observer) AudioComponentRemoved(t media.ComponentType, components map[media.ComponentID]media.AudioComponent) {
	o.m.audioComponents.WithLabelValues(t.String()).Set(float64(len(components)))
}

func (o *Observer) GeneralAudioInformationSet(media.GeneralAudioInfo)          {}
func (o *Observer) AudioFocusSessionsUpdated([]media.AudioFocusSession)        {}
func (o *Observer) RegisteredCdmsUpdated([]media.RegisteredCdm)                {}
func (o *Observer) VideoCaptureCapabilitiesUpdated([]media.VideoCaptureDevice) {}
