package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
)

// Styles used by the terminal renderings.
var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	SelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	MutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

// ListText renders a selectable list with the selected entry highlighted.
func ListText(title string, items []ListItem) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")
	if len(items) == 0 {
		b.WriteString(MutedStyle.Render("  (none)"))
		b.WriteString("\n")
		return b.String()
	}
	for _, item := range items {
		if item.Selected {
			b.WriteString(SelectedStyle.Render("● " + item.Label))
		} else {
			b.WriteString("○ " + item.Label)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// TableText renders rows under the given headers.
func TableText(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(MutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// PropertiesText renders a property table.
func PropertiesText(rows []PropertyRow) string {
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells = append(cells, []string{row.Key, row.Value})
	}
	return TableText([]string{"Property", "Value"}, cells)
}

// LogText renders log rows.
func LogText(rows []LogRow) string {
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells = append(cells, []string{row.Time, row.Key, row.Value})
	}
	return TableText([]string{"Timestamp", "Property", "Value"}, cells)
}

// GraphText renders event counts as horizontal bars at most width cells wide.
func GraphText(bars []GraphBar, width int) string {
	if len(bars) == 0 {
		return ""
	}
	if width < 10 {
		width = 10
	}
	keyWidth := 0
	maxCount := 0
	for _, bar := range bars {
		keyWidth = max(keyWidth, lipgloss.Width(bar.Key))
		maxCount = max(maxCount, bar.Count)
	}
	barWidth := max(width-keyWidth-8, 1)

	var b strings.Builder
	for _, bar := range bars {
		n := max(bar.Count*barWidth/maxCount, 1)
		fmt.Fprintf(&b, "%-*s %s %d\n", keyWidth, bar.Key, barStyle.Render(strings.Repeat("█", n)), bar.Count)
	}
	return b.String()
}

// WriteView prints every populated part of a view to w.
func WriteView(w io.Writer, v View) error {
	var sections []string

	sections = append(sections, ListText("Players", v.PlayerList))
	for _, t := range media.ComponentTypes {
		if items, ok := v.ComponentLists[t]; ok {
			sections = append(sections, ListText(t.String()+"s", items))
		}
	}

	if rows := v.Tables[TableGeneralAudioInfo]; len(rows) > 0 {
		sections = append(sections, TitleStyle.Render("Audio Information")+"\n"+PropertiesText(rows))
	}
	if rows := v.Tables[TableAudioProperties]; len(rows) > 0 {
		sections = append(sections, TitleStyle.Render("Audio Component")+"\n"+PropertiesText(rows))
	}
	if rows := v.Tables[TablePlayerProperties]; len(rows) > 0 {
		sections = append(sections, TitleStyle.Render("Player Properties")+"\n"+PropertiesText(rows))
	}
	if len(v.Log) > 0 {
		sections = append(sections, TitleStyle.Render("Log")+"\n"+LogText(v.Log))
	}
	if len(v.Graph) > 0 {
		sections = append(sections, TitleStyle.Render("Events")+"\n"+GraphText(v.Graph, 60))
	}
	if len(v.FocusSessions) > 0 {
		rows := make([][]string, 0, len(v.FocusSessions))
		for _, s := range v.FocusSessions {
			rows = append(rows, []string{s.Name, s.Owner, s.State})
		}
		sections = append(sections, TitleStyle.Render("Audio Focus")+"\n"+TableText([]string{"Name", "Owner", "State"}, rows))
	}
	if len(v.Cdms) > 0 {
		rows := make([][]string, 0, len(v.Cdms))
		for _, c := range v.Cdms {
			rows = append(rows, []string{c.KeySystem, c.Robustness, c.Name, c.Version, c.Status})
		}
		sections = append(sections, TitleStyle.Render("Registered CDMs")+"\n"+TableText([]string{"Key System", "Robustness", "Name", "Version", "Status"}, rows))
	}
	if len(v.VideoCapture) > 0 {
		sections = append(sections, TitleStyle.Render("Video Capture")+"\n"+VideoCaptureText(v.VideoCapture))
	}

	_, err := io.WriteString(w, strings.Join(sections, "\n")+"\n")
	return err
}

// VideoCaptureText renders one row per device format.
func VideoCaptureText(devices []media.VideoCaptureDevice) string {
	var rows [][]string
	for _, d := range devices {
		for _, f := range d.ParsedFormats {
			rows = append(rows, []string{d.Name, d.CaptureAPI, f[media.FormatResolution], f[media.FormatFPS], f["storage"]})
		}
		if len(d.ParsedFormats) == 0 {
			rows = append(rows, []string{d.Name, d.CaptureAPI, "", "", ""})
		}
	}
	return TableText([]string{"Device", "Capture API", "Resolution", "FPS", "Storage"}, rows)
}
