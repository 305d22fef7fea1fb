// Package media provides the media diagnostics domain: the mirrored state of
// players, audio components and related device information, and the Manager
// that owns it.
package media

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// ErrInvalidKey is returned when a composite key cannot be parsed.
var ErrInvalidKey = errors.New("invalid key")

// Well-known player property keys.
const (
	PropertyName       = "name"
	PropertyURL        = "url"
	PropertyRenderID   = "render_id"
	PropertyPlayerID   = "player_id"
	PropertyEvent      = "event"
	PropertyDestructed = "destructed"
)

// EventPlayerDestroyed is the media event type that marks a player as destroyed.
const EventPlayerDestroyed = "WEBMEDIAPLAYER_DESTROYED"

// PlayerKey identifies a player within a renderer.
type PlayerKey struct {
	Renderer string
	Player   string
}

// String returns the "renderer:player" form of the key.
func (k PlayerKey) String() string {
	return k.Renderer + ":" + k.Player
}

// ParsePlayerKey parses the "renderer:player" form produced by String.
func ParsePlayerKey(s string) (PlayerKey, error) {
	renderer, player, ok := strings.Cut(s, ":")
	if !ok || renderer == "" || player == "" {
		return PlayerKey{}, fmt.Errorf("%w: player key %q", ErrInvalidKey, s)
	}
	return PlayerKey{Renderer: renderer, Player: player}, nil
}

// MarshalText implements encoding.TextMarshaler so keys can be used in JSON maps.
func (k PlayerKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PlayerKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePlayerKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ComponentType is the kind of an audio component.
type ComponentType int

// Audio component types, numbered as the instrumentation reports them.
const (
	InputController ComponentType = iota
	OutputController
	OutputStream
)

// ComponentTypes lists every known component type in display order.
var ComponentTypes = []ComponentType{InputController, OutputController, OutputStream}

// Valid reports whether t is a known component type.
func (t ComponentType) Valid() bool {
	return t >= InputController && t <= OutputStream
}

// String returns the display name of the component type.
func (t ComponentType) String() string {
	switch t {
	case InputController:
		return "Input Controller"
	case OutputController:
		return "Output Controller"
	case OutputStream:
		return "Output Stream"
	default:
		return fmt.Sprintf("Component %d", int(t))
	}
}

// ComponentID identifies an audio component within its owner.
type ComponentID struct {
	Owner     string
	Component string
}

// String returns the "owner:component" form of the id.
func (id ComponentID) String() string {
	return id.Owner + ":" + id.Component
}

// ParseComponentID parses the "owner:component" form produced by String.
func ParseComponentID(s string) (ComponentID, error) {
	owner, component, ok := strings.Cut(s, ":")
	if !ok || owner == "" || component == "" {
		return ComponentID{}, fmt.Errorf("%w: component id %q", ErrInvalidKey, s)
	}
	return ComponentID{Owner: owner, Component: component}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (id ComponentID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ComponentID) UnmarshalText(text []byte) error {
	parsed, err := ParseComponentID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// AudioComponent is the flat property set reported for one audio component.
type AudioComponent map[string]any

// Clone returns a shallow copy of the component.
func (c AudioComponent) Clone() AudioComponent {
	if c == nil {
		return AudioComponent{}
	}
	return maps.Clone(c)
}

// GeneralAudioInfo is the flat key/value audio information block.
type GeneralAudioInfo map[string]any

// AudioFocusSession is one entry of the audio focus stack.
type AudioFocusSession struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
	State string `json:"state"`
}

// RegisteredCdm describes a content decryption module known to the platform.
type RegisteredCdm struct {
	KeySystem  string         `json:"key_system"`
	Robustness string         `json:"robustness"`
	Name       string         `json:"name"`
	Version    string         `json:"version"`
	Path       string         `json:"path"`
	Status     string         `json:"status"`
	Capability map[string]any `json:"capability,omitempty"`
}

// VideoCaptureFormat is one parsed capture format, e.g.
// {"resolution": "1280x720", "fps": "30.00", "storage": "CPU"}.
type VideoCaptureFormat map[string]string

// VideoCaptureDevice describes a capture device and its supported formats.
type VideoCaptureDevice struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	CaptureAPI    string               `json:"captureApi,omitempty"`
	FacingMode    string               `json:"facingMode,omitempty"`
	Formats       []string             `json:"formats"`
	ParsedFormats []VideoCaptureFormat `json:"parsedFormats,omitempty"`
}
