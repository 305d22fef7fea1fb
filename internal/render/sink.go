// Package render projects Manager notifications onto a view.
//
// A ClientRenderer owns the selection state of one view (which player or
// audio component is inspected, how much of the selected player's log has
// been drawn, the active log filter) and drives a Sink. Sinks are the
// surface-specific half: a web client over Socket.IO, a terminal writer, the
// interactive TUI or an in-memory recorder for tests.
package render

import "github.com/edumarques81/stellar-media-internals/internal/domain/media"

// Marker is a view-level flag describing an empty selection.
type Marker string

// Markers maintained by the renderer. Both are set until something is selected.
const (
	MarkerNoPlayersSelected    Marker = "no-players-selected"
	MarkerNoComponentsSelected Marker = "no-components-selected"
)

// Table names a property table of the view.
type Table string

// Property tables drawn by the renderer.
const (
	TablePlayerProperties Table = "player-property-table"
	TableAudioProperties  Table = "audio-property-table"
	TableGeneralAudioInfo Table = "general-audio-info"
)

// ExportFileName is the name used for saved logs.
const ExportFileName = "media-internals.txt"

// ListItem is one selectable entry of the player or component list.
type ListItem struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// PropertyRow is one key/value row of a property table.
type PropertyRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LogRow is one line of the selected player's event log.
type LogRow struct {
	Time  string `json:"time"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GraphBar is the number of events recorded for one key.
type GraphBar struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Sink receives render operations. Calls for one renderer are serialized.
type Sink interface {
	SetMarker(marker Marker, on bool)
	RenderPlayerList(items []ListItem)
	RenderAudioComponentList(componentType media.ComponentType, items []ListItem)
	RenderProperties(table Table, rows []PropertyRow)
	ClearLog()
	AppendLogRows(rows []LogRow)
	RenderGraph(bars []GraphBar)
	ClearGraph()
	RenderAudioFocusSessions(sessions []media.AudioFocusSession)
	RenderRegisteredCdms(cdms []media.RegisteredCdm)
	RenderVideoCaptureCapabilities(devices []media.VideoCaptureDevice)
}

// ClipboardSink is implemented by sinks that can offer text for copying.
type ClipboardSink interface {
	ShowClipboard(payload string)
}

// FileSink is implemented by sinks that can hand a file to the user.
type FileSink interface {
	SaveFile(name string, data []byte)
}
