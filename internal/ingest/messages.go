// Package ingest is the boundary between instrumentation producers and the
// media Manager. Raw pushes are decoded into one typed message per kind,
// validated, optionally journaled and then applied to the Manager.
package ingest

import (
	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
)

// Kind names an inbound push.
type Kind string

// Inbound push kinds.
const (
	KindGeneralAudioInformation  Kind = "updateGeneralAudioInformation"
	KindAudioStreamData          Kind = "onReceiveAudioStreamData"
	KindVideoCaptureCapabilities Kind = "onReceiveVideoCaptureCapabilities"
	KindAudioFocusState          Kind = "onReceiveAudioFocusState"
	KindRegisteredCdms           Kind = "updateRegisteredCdms"
	KindPlayerOpen               Kind = "onPlayerOpen"
	KindMediaEvent               Kind = "onMediaEvent"
)

// Kinds lists every accepted kind.
var Kinds = []Kind{
	KindGeneralAudioInformation,
	KindAudioStreamData,
	KindVideoCaptureCapabilities,
	KindAudioFocusState,
	KindRegisteredCdms,
	KindPlayerOpen,
	KindMediaEvent,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindGeneralAudioInformation, KindAudioStreamData, KindVideoCaptureCapabilities,
		KindAudioFocusState, KindRegisteredCdms, KindPlayerOpen, KindMediaEvent:
		return true
	}
	return false
}

// Message is a decoded inbound push.
type Message interface {
	Kind() Kind
}

// GeneralAudioInformation replaces the general audio information block.
type GeneralAudioInformation struct {
	Info media.GeneralAudioInfo
}

// ComponentUpdate is one entry of an audio stream data push.
type ComponentUpdate struct {
	Type   media.ComponentType
	ID     media.ComponentID
	Closed bool
	Data   media.AudioComponent
}

// AudioStreamData carries updates for several audio components. Updates are
// ordered by their key in the original payload.
type AudioStreamData struct {
	Components []ComponentUpdate
}

// VideoCaptureCapabilities lists the capture devices and their raw formats.
type VideoCaptureCapabilities struct {
	Devices []media.VideoCaptureDevice
}

// AudioFocusState is a snapshot of the audio focus stack.
type AudioFocusState struct {
	Sessions []media.AudioFocusSession `json:"sessions"`
}

// RegisteredCdms is a snapshot of the registered CDMs.
type RegisteredCdms struct {
	Cdms []media.RegisteredCdm
}

// PlayerOpen announces a player.
type PlayerOpen struct {
	Key media.PlayerKey
}

// MediaEvent is one event of a player.
type MediaEvent struct {
	Key         media.PlayerKey
	TicksMillis float64
	Type        string
	Params      map[string]any
}

func (GeneralAudioInformation) Kind() Kind  { return KindGeneralAudioInformation }
func (AudioStreamData) Kind() Kind          { return KindAudioStreamData }
func (VideoCaptureCapabilities) Kind() Kind { return KindVideoCaptureCapabilities }
func (AudioFocusState) Kind() Kind          { return KindAudioFocusState }
func (RegisteredCdms) Kind() Kind           { return KindRegisteredCdms }
func (PlayerOpen) Kind() Kind               { return KindPlayerOpen }
func (MediaEvent) Kind() Kind               { return KindMediaEvent }
