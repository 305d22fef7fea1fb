package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
)

var (
	// ErrUnknownKind is returned for a push kind the adapter does not handle.
	ErrUnknownKind = errors.New("unknown message kind")

	// ErrInvalidPayload is returned when a payload does not have the shape
	// its kind requires.
	ErrInvalidPayload = errors.New("invalid payload")
)

// StatusClosed is the component status that removes a component.
const StatusClosed = "closed"

// flexID accepts an identifier sent either as a JSON string or a JSON number.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = flexID(n.String())
	return nil
}

// Decode validates raw and returns the typed message for kind.
func Decode(kind Kind, raw json.RawMessage) (Message, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: %s: empty payload", ErrInvalidPayload, kind)
	}

	var (
		msg Message
		err error
	)
	switch kind {
	case KindGeneralAudioInformation:
		msg, err = decodeGeneralAudioInformation(raw)
	case KindAudioStreamData:
		msg, err = decodeAudioStreamData(raw)
	case KindVideoCaptureCapabilities:
		msg, err = decodeVideoCaptureCapabilities(raw)
	case KindAudioFocusState:
		msg, err = decodeAudioFocusState(raw)
	case KindRegisteredCdms:
		msg, err = decodeRegisteredCdms(raw)
	case KindPlayerOpen:
		msg, err = decodePlayerOpen(raw)
	case KindMediaEvent:
		msg, err = decodeMediaEvent(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, kind, err)
	}
	return msg, nil
}

func decodeGeneralAudioInformation(raw json.RawMessage) (Message, error) {
	var info media.GeneralAudioInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, err
	}
	if info == nil {
		return nil, errors.New("expected an object")
	}
	return GeneralAudioInformation{Info: info}, nil
}

type streamComponent struct {
	ComponentType *int    `json:"component_type"`
	OwnerID       *flexID `json:"owner_id"`
	ComponentID   *flexID `json:"component_id"`
	Status        string  `json:"status"`
}

func decodeAudioStreamData(raw json.RawMessage) (Message, error) {
	var byKey map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byKey); err != nil {
		return nil, err
	}
	if byKey == nil {
		return nil, errors.New("expected an object")
	}

	msg := AudioStreamData{Components: make([]ComponentUpdate, 0, len(byKey))}
	for _, key := range slices.Sorted(maps.Keys(byKey)) {
		var head streamComponent
		if err := json.Unmarshal(byKey[key], &head); err != nil {
			return nil, fmt.Errorf("component %q: %w", key, err)
		}
		if head.ComponentType == nil || head.OwnerID == nil || head.ComponentID == nil {
			return nil, fmt.Errorf("component %q: component_type, owner_id and component_id are required", key)
		}
		componentType := media.ComponentType(*head.ComponentType)
		if !componentType.Valid() {
			return nil, fmt.Errorf("component %q: unknown component_type %d", key, *head.ComponentType)
		}

		var data media.AudioComponent
		if err := json.Unmarshal(byKey[key], &data); err != nil {
			return nil, fmt.Errorf("component %q: %w", key, err)
		}

		msg.Components = append(msg.Components, ComponentUpdate{
			Type:   componentType,
			ID:     media.ComponentID{Owner: string(*head.OwnerID), Component: string(*head.ComponentID)},
			Closed: head.Status == StatusClosed,
			Data:   data,
		})
	}
	return msg, nil
}

func decodeVideoCaptureCapabilities(raw json.RawMessage) (Message, error) {
	var devices []media.VideoCaptureDevice
	if err := json.Unmarshal(raw, &devices); err != nil {
		return nil, err
	}
	for i := range devices {
		// Parsed formats are derived by the Manager, never taken from input.
		devices[i].ParsedFormats = nil
	}
	return VideoCaptureCapabilities{Devices: devices}, nil
}

func decodeAudioFocusState(raw json.RawMessage) (Message, error) {
	var msg AudioFocusState
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func decodeRegisteredCdms(raw json.RawMessage) (Message, error) {
	var cdms []media.RegisteredCdm
	if err := json.Unmarshal(raw, &cdms); err != nil {
		return nil, err
	}
	return RegisteredCdms{Cdms: cdms}, nil
}

type playerRef struct {
	Renderer *flexID `json:"renderer"`
	Player   *flexID `json:"player"`
}

func (r playerRef) key() (media.PlayerKey, error) {
	if r.Renderer == nil || r.Player == nil || *r.Renderer == "" || *r.Player == "" {
		return media.PlayerKey{}, errors.New("renderer and player are required")
	}
	return media.PlayerKey{Renderer: string(*r.Renderer), Player: string(*r.Player)}, nil
}

// decodePlayerOpen accepts either the "renderer:player" string or an object
// with renderer and player fields.
func decodePlayerOpen(raw json.RawMessage) (Message, error) {
	raw = bytes.TrimSpace(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		key, err := media.ParsePlayerKey(s)
		if err != nil {
			return nil, err
		}
		return PlayerOpen{Key: key}, nil
	}

	var ref playerRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, err
	}
	key, err := ref.key()
	if err != nil {
		return nil, err
	}
	return PlayerOpen{Key: key}, nil
}

type mediaEventPayload struct {
	playerRef
	TicksMillis *float64       `json:"ticksMillis"`
	Type        string         `json:"type"`
	Params      map[string]any `json:"params"`
}

func decodeMediaEvent(raw json.RawMessage) (Message, error) {
	var p mediaEventPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	key, err := p.key()
	if err != nil {
		return nil, err
	}
	if p.TicksMillis == nil {
		return nil, errors.New("ticksMillis is required")
	}
	if p.Type == "" && len(p.Params) == 0 {
		return nil, errors.New("type or params is required")
	}
	return MediaEvent{
		Key:         key,
		TicksMillis: *p.TicksMillis,
		Type:        p.Type,
		Params:      p.Params,
	}, nil
}
