package socketio

import (
	"strconv"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
	"github.com/edumarques81/stellar-media-internals/internal/render"
)

// Server-to-client events.
const (
	EventPushMarker                   = "pushMarker"
	EventPushPlayerList               = "pushPlayerList"
	EventPushAudioComponentList       = "pushAudioComponentList"
	EventPushProperties               = "pushProperties"
	EventPushGeneralAudioInfo         = "pushGeneralAudioInfo"
	EventClearLog                     = "clearLog"
	EventAppendLog                    = "appendLog"
	EventPushGraph                    = "pushGraph"
	EventClearGraph                   = "clearGraph"
	EventPushAudioFocusSessions       = "pushAudioFocusSessions"
	EventPushRegisteredCdms           = "pushRegisteredCdms"
	EventPushVideoCaptureCapabilities = "pushVideoCaptureCapabilities"
	EventShowClipboard                = "showClipboard"
	EventSaveFile                     = "saveFile"
	EventError                        = "pushError"
)

// EmitFunc sends one event to a client.
type EmitFunc func(event string, args ...any)

// MarkerPayload is the body of pushMarker.
type MarkerPayload struct {
	Marker render.Marker `json:"marker"`
	On     bool          `json:"on"`
}

// ComponentListPayload is the body of pushAudioComponentList.
type ComponentListPayload struct {
	Type  media.ComponentType `json:"type"`
	Name  string              `json:"name"`
	Items []render.ListItem   `json:"items"`
}

// PropertiesPayload is the body of pushProperties.
type PropertiesPayload struct {
	Table render.Table         `json:"table"`
	Rows  []render.PropertyRow `json:"rows"`
}

// FilePayload is the body of saveFile.
type FilePayload struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// clientSink renders onto one dashboard socket. List pushes go through the
// debouncer; everything else is emitted as it happens.
type clientSink struct {
	emit      EmitFunc
	debouncer *BroadcastDebouncer
}

func newClientSink(emit EmitFunc, debouncer *BroadcastDebouncer) *clientSink {
	return &clientSink{emit: emit, debouncer: debouncer}
}

func (s *clientSink) SetMarker(marker render.Marker, on bool) {
	s.emit(EventPushMarker, MarkerPayload{Marker: marker, On: on})
}

func (s *clientSink) RenderPlayerList(items []render.ListItem) {
	s.debouncer.Trigger("players", func() {
		s.emit(EventPushPlayerList, nonNil(items))
	})
}

func (s *clientSink) RenderAudioComponentList(componentType media.ComponentType, items []render.ListItem) {
	s.debouncer.Trigger("components:"+strconv.Itoa(int(componentType)), func() {
		s.emit(EventPushAudioComponentList, ComponentListPayload{
			Type:  componentType,
			Name:  componentType.String(),
			Items: nonNil(items),
		})
	})
}

func (s *clientSink) RenderProperties(table render.Table, rows []render.PropertyRow) {
	if table == render.TableGeneralAudioInfo {
		s.emit(EventPushGeneralAudioInfo, nonNil(rows))
		return
	}
	s.emit(EventPushProperties, PropertiesPayload{Table: table, Rows: nonNil(rows)})
}

func (s *clientSink) ClearLog() {
	s.emit(EventClearLog)
}

func (s *clientSink) AppendLogRows(rows []render.LogRow) {
	s.emit(EventAppendLog, rows)
}

func (s *clientSink) RenderGraph(bars []render.GraphBar) {
	s.emit(EventPushGraph, bars)
}

func (s *clientSink) ClearGraph() {
	s.emit(EventClearGraph)
}

func (s *clientSink) RenderAudioFocusSessions(sessions []media.AudioFocusSession) {
	s.emit(EventPushAudioFocusSessions, sessions)
}

func (s *clientSink) RenderRegisteredCdms(cdms []media.RegisteredCdm) {
	s.emit(EventPushRegisteredCdms, cdms)
}

func (s *clientSink) RenderVideoCaptureCapabilities(devices []media.VideoCaptureDevice) {
	s.emit(EventPushVideoCaptureCapabilities, devices)
}

func (s *clientSink) ShowClipboard(payload string) {
	s.emit(EventShowClipboard, payload)
}

func (s *clientSink) SaveFile(name string, data []byte) {
	s.emit(EventSaveFile, FilePayload{Name: name, Data: string(data)})
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
