package render

import (
	"maps"
	"slices"
	"sync"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
)

// View is the accumulated result of render operations.
type View struct {
	Markers        map[Marker]bool
	PlayerList     []ListItem
	ComponentLists map[media.ComponentType][]ListItem
	Tables         map[Table][]PropertyRow
	Log            []LogRow
	Graph          []GraphBar
	FocusSessions  []media.AudioFocusSession
	Cdms           []media.RegisteredCdm
	VideoCapture   []media.VideoCaptureDevice
	Clipboard      string
	Files          map[string][]byte

	// LogClears counts ClearLog calls.
	LogClears int
}

// Recorder is an in-memory Sink that keeps the latest state of every view
// element. It backs the TUI and tests. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	view     View
	onChange func()
}

// NewRecorder creates an empty Recorder. onChange, if not nil, is called
// after every operation without the recorder's lock held.
func NewRecorder(onChange func()) *Recorder {
	return &Recorder{
		view: View{
			Markers:        make(map[Marker]bool),
			ComponentLists: make(map[media.ComponentType][]ListItem),
			Tables:         make(map[Table][]PropertyRow),
			Files:          make(map[string][]byte),
		},
		onChange: onChange,
	}
}

func (r *Recorder) update(fn func(v *View)) {
	r.mu.Lock()
	fn(&r.view)
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

// View returns a copy of the current view.
func (r *Recorder) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := r.view
	v.Markers = maps.Clone(r.view.Markers)
	v.PlayerList = slices.Clone(r.view.PlayerList)
	v.ComponentLists = maps.Clone(r.view.ComponentLists)
	v.Tables = maps.Clone(r.view.Tables)
	v.Log = slices.Clone(r.view.Log)
	v.Graph = slices.Clone(r.view.Graph)
	v.Files = maps.Clone(r.view.Files)
	return v
}

// SetMarker implements Sink.
func (r *Recorder) SetMarker(marker Marker, on bool) {
	r.update(func(v *View) { v.Markers[marker] = on })
}

// RenderPlayerList implements Sink.
func (r *Recorder) RenderPlayerList(items []ListItem) {
	r.update(func(v *View) { v.PlayerList = items })
}

// RenderAudioComponentList implements Sink.
func (r *Recorder) RenderAudioComponentList(componentType media.ComponentType, items []ListItem) {
	r.update(func(v *View) { v.ComponentLists[componentType] = items })
}

// RenderProperties implements Sink.
func (r *Recorder) RenderProperties(table Table, rows []PropertyRow) {
	r.update(func(v *View) { v.Tables[table] = rows })
}

// ClearLog implements Sink.
func (r *Recorder) ClearLog() {
	r.update(func(v *View) {
		v.Log = nil
		v.LogClears++
	})
}

// AppendLogRows implements Sink.
func (r *Recorder) AppendLogRows(rows []LogRow) {
	r.update(func(v *View) { v.Log = append(v.Log, rows...) })
}

// RenderGraph implements Sink.
func (r *Recorder) RenderGraph(bars []GraphBar) {
	r.update(func(v *View) { v.Graph = bars })
}

// ClearGraph implements Sink.
func (r *Recorder) ClearGraph() {
	r.update(func(v *View) { v.Graph = nil })
}

// RenderAudioFocusSessions implements Sink.
func (r *Recorder) RenderAudioFocusSessions(sessions []media.AudioFocusSession) {
	r.update(func(v *View) { v.FocusSessions = sessions })
}

// RenderRegisteredCdms implements Sink.
func (r *Recorder) RenderRegisteredCdms(cdms []media.RegisteredCdm) {
	r.update(func(v *View) { v.Cdms = cdms })
}

// RenderVideoCaptureCapabilities implements Sink.
func (r *Recorder) RenderVideoCaptureCapabilities(devices []media.VideoCaptureDevice) {
	r.update(func(v *View) { v.VideoCapture = devices })
}

// ShowClipboard implements ClipboardSink.
func (r *Recorder) ShowClipboard(payload string) {
	r.update(func(v *View) { v.Clipboard = payload })
}

// SaveFile implements FileSink.
func (r *Recorder) SaveFile(name string, data []byte) {
	r.update(func(v *View) { v.Files[name] = data })
}
