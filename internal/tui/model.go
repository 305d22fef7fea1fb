// Package tui is an interactive terminal view of the aggregate, driven by
// a ClientRenderer over an in-memory recorder.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
	"github.com/edumarques81/stellar-media-internals/internal/render"
)

const (
	listWidth  = 40
	helpText   = "↑/↓ move • enter select • / filter • h hide • c copy • s save • q quit"
	chromeRows = 4
)

var (
	paneStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
	cursorStyle = lipgloss.NewStyle().Reverse(true)
)

// changeMsg reports that the recorder changed.
type changeMsg struct{}

// entry is one selectable row of the left pane.
type entry struct {
	item          render.ListItem
	componentType media.ComponentType
	component     bool
}

// Model is the bubbletea model of the TUI.
type Model struct {
	recorder    *render.Recorder
	renderer    *render.ClientRenderer
	changes     chan struct{}
	unsubscribe func()
	saveDir     string

	view    render.View
	entries []entry
	cursor  int

	filter    textinput.Model
	filtering bool
	detail    viewport.Model
	status    string

	width  int
	height int
}

// New subscribes a renderer to manager. Saved logs are written to saveDir.
// Call Close when the program exits.
func New(manager *media.Manager, saveDir, filter string) Model {
	changes := make(chan struct{}, 1)
	recorder := render.NewRecorder(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	renderer := render.NewClientRenderer(recorder, manager)
	renderer.SetFilter(filter)

	input := textinput.New()
	input.Placeholder = "filter keys, comma separated"
	input.Prompt = "/ "
	input.CharLimit = 200
	input.SetValue(filter)

	m := Model{
		recorder: recorder,
		renderer: renderer,
		changes:  changes,
		saveDir:  saveDir,
		filter:   input,
		detail:   viewport.New(80, 20),
	}
	m.unsubscribe = manager.Subscribe(renderer)
	m.refresh()
	return m
}

// Close unsubscribes the renderer.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return waitForChange(m.changes)
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changes
		return changeMsg{}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changeMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.detail.Width = max(msg.Width-listWidth-4, 20)
		m.detail.Height = max(msg.Height-chromeRows-2, 5)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		m.renderer.SetFilter(m.filter.Value())
		m.status = "Filter: " + m.renderer.Filter().Text()
		m.refresh()
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue(m.renderer.Filter().Text())
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter":
		m.selectCursor()
	case "/":
		m.filtering = true
		cmd := m.filter.Focus()
		return m, cmd
	case "h":
		m.renderer.HidePlayers()
		m.status = "Players hidden"
	case "c":
		m.copySelected()
	case "s":
		m.saveLog()
	default:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	m.refresh()
	return m, nil
}

func (m *Model) selectCursor() {
	if m.cursor >= len(m.entries) {
		return
	}
	e := m.entries[m.cursor]
	var err error
	if e.component {
		var id media.ComponentID
		if id, err = media.ParseComponentID(e.item.ID); err == nil {
			err = m.renderer.SelectAudioComponent(e.componentType, id)
		}
	} else {
		var key media.PlayerKey
		if key, err = media.ParsePlayerKey(e.item.ID); err == nil {
			err = m.renderer.SelectPlayer(key)
		}
	}
	if err != nil {
		m.status = "Error: " + err.Error()
		return
	}
	m.status = "Selected " + e.item.Label
	m.detail.GotoTop()
}

func (m *Model) copySelected() {
	payload, err := m.renderer.CopySelected()
	if err != nil {
		m.status = "Error: " + err.Error()
		return
	}
	m.status = fmt.Sprintf("Copied %d bytes", len(payload))
}

func (m *Model) saveLog() {
	data, err := m.renderer.SaveLog()
	if err == nil {
		path := filepath.Join(m.saveDir, render.ExportFileName)
		if err = os.WriteFile(path, data, 0o644); err == nil {
			m.status = "Saved " + path
			return
		}
	}
	log.Error().Err(err).Msg("Failed to save log")
	m.status = "Error: " + err.Error()
}

// refresh pulls the recorder's view and rebuilds the panes.
func (m *Model) refresh() {
	m.view = m.recorder.View()

	entries := make([]entry, 0, len(m.view.PlayerList))
	for _, item := range m.view.PlayerList {
		entries = append(entries, entry{item: item})
	}
	for _, t := range media.ComponentTypes {
		for _, item := range m.view.ComponentLists[t] {
			entries = append(entries, entry{item: item, componentType: t, component: true})
		}
	}
	m.entries = entries
	m.cursor = min(m.cursor, max(len(m.entries)-1, 0))

	m.detail.SetContent(m.detailText())
}

func (m Model) detailText() string {
	v := m.view
	var sections []string
	switch {
	case !v.Markers[render.MarkerNoPlayersSelected]:
		sections = append(sections,
			render.TitleStyle.Render("Player Properties")+"\n"+render.PropertiesText(v.Tables[render.TablePlayerProperties]),
			render.TitleStyle.Render("Log")+"\n"+render.LogText(v.Log),
			render.TitleStyle.Render("Events")+"\n"+render.GraphText(v.Graph, m.detail.Width),
		)
	case !v.Markers[render.MarkerNoComponentsSelected]:
		sections = append(sections,
			render.TitleStyle.Render("Audio Component")+"\n"+render.PropertiesText(v.Tables[render.TableAudioProperties]))
	default:
		if rows := v.Tables[render.TableGeneralAudioInfo]; len(rows) > 0 {
			sections = append(sections, render.TitleStyle.Render("Audio Information")+"\n"+render.PropertiesText(rows))
		}
		if len(v.FocusSessions) > 0 {
			rows := make([][]string, 0, len(v.FocusSessions))
			for _, s := range v.FocusSessions {
				rows = append(rows, []string{s.Name, s.Owner, s.State})
			}
			sections = append(sections, render.TitleStyle.Render("Audio Focus")+"\n"+render.TableText([]string{"Name", "Owner", "State"}, rows))
		}
		if len(v.VideoCapture) > 0 {
			sections = append(sections, render.TitleStyle.Render("Video Capture")+"\n"+render.VideoCaptureText(v.VideoCapture))
		}
		if len(sections) == 0 {
			sections = append(sections, render.MutedStyle.Render("Select a player or an audio component."))
		}
	}
	return strings.Join(sections, "\n")
}

// View implements tea.Model.
func (m Model) View() string {
	var list strings.Builder
	list.WriteString(render.TitleStyle.Render("Players & Components"))
	list.WriteString("\n")
	if len(m.entries) == 0 {
		list.WriteString(render.MutedStyle.Render("waiting for pushes..."))
	}
	for i, e := range m.entries {
		label := "○ " + e.item.Label
		if e.item.Selected {
			label = render.SelectedStyle.Render("● " + e.item.Label)
		}
		if i == m.cursor {
			label = cursorStyle.Render(label)
		}
		list.WriteString(label + "\n")
	}

	left := paneStyle.Width(listWidth).Height(m.detail.Height).Render(list.String())
	right := paneStyle.Render(m.detail.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	footer := render.MutedStyle.Render(helpText)
	if m.filtering {
		footer = m.filter.View()
	} else if m.status != "" {
		footer = m.status + "  " + footer
	}
	return body + "\n" + footer
}
