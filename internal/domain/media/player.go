package media

import "maps"

// Event is one recorded property change of a player.
type Event struct {
	// Time is milliseconds since the player's first recorded event.
	Time  float64 `json:"time"`
	Key   string  `json:"key"`
	Value any     `json:"value"`
}

// Player is the mirrored state of one media player.
//
// Values handed to observers are snapshots: Properties is a private copy and
// Events shares the append-only prefix of the live log.
type Player struct {
	Key        PlayerKey      `json:"id"`
	Properties map[string]any `json:"properties"`
	Events     []Event        `json:"allEvents"`
	Destructed bool           `json:"destructed,omitempty"`

	firstTimestamp float64
	hasFirst       bool
}

func newPlayer(key PlayerKey) *Player {
	return &Player{
		Key:        key,
		Properties: make(map[string]any),
	}
}

// addProperty records the change in the event log and the latest-value map.
func (p *Player) addProperty(timestamp float64, key string, value any) {
	if !p.hasFirst {
		p.firstTimestamp = timestamp
		p.hasFirst = true
	}
	p.Properties[key] = value
	p.Events = append(p.Events, Event{
		Time:  timestamp - p.firstTimestamp,
		Key:   key,
		Value: value,
	})
}

// addPropertyNoRecord updates the latest-value map only.
func (p *Player) addPropertyNoRecord(key string, value any) {
	p.Properties[key] = value
}

// snapshot returns a copy safe to hand to observers.
func (p *Player) snapshot() Player {
	return Player{
		Key:            p.Key,
		Properties:     maps.Clone(p.Properties),
		Events:         p.Events[:len(p.Events):len(p.Events)],
		Destructed:     p.Destructed,
		firstTimestamp: p.firstTimestamp,
		hasFirst:       p.hasFirst,
	}
}

// Name returns the label a view should use for the player.
func (p Player) Name() string {
	if name, ok := p.Properties[PropertyName].(string); ok && name != "" {
		return name
	}
	if url, ok := p.Properties[PropertyURL].(string); ok && url != "" {
		return url
	}
	return "Player " + p.Key.String()
}
