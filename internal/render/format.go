package render

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
)

// hiddenKeys are plumbing fields never shown in property tables.
var hiddenKeys = map[string]bool{
	"component_id":   true,
	"component_type": true,
	"owner_id":       true,
}

// PropertyRows returns the visible rows of a property map sorted by key.
func PropertyRows(properties map[string]any) []PropertyRow {
	keys := slices.Sorted(maps.Keys(properties))
	rows := make([]PropertyRow, 0, len(keys))
	for _, key := range keys {
		if hiddenKeys[key] {
			continue
		}
		rows = append(rows, PropertyRow{Key: key, Value: FormatValue(properties[key])})
	}
	return rows
}

// FormatValue renders a property value for display: strings verbatim,
// everything else as JSON.
func FormatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// FormatMilliseconds renders a millisecond offset as HH:MM:SS.mmm.
func FormatMilliseconds(ms float64) string {
	if ms < 0 {
		ms = 0
	}
	total := int64(ms)
	millis := total % 1000
	seconds := (total / 1000) % 60
	minutes := (total / 60000) % 60
	hours := total / 3600000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

// LogRowFor renders one player event.
func LogRowFor(e media.Event) LogRow {
	return LogRow{
		Time:  FormatMilliseconds(e.Time),
		Key:   e.Key,
		Value: FormatValue(e.Value),
	}
}

// GraphBars counts events per key, most frequent first.
func GraphBars(events []media.Event) []GraphBar {
	counts := make(map[string]int)
	for _, e := range events {
		counts[e.Key]++
	}
	bars := make([]GraphBar, 0, len(counts))
	for key, n := range counts {
		bars = append(bars, GraphBar{Key: key, Count: n})
	}
	slices.SortFunc(bars, func(a, b GraphBar) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Key, b.Key)
	})
	return bars
}

// MarshalExport encodes v the way every export surface does: JSON with a
// two-space indent.
func MarshalExport(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// ComponentExport keys component buckets by their display name.
func ComponentExport(buckets map[media.ComponentType]map[media.ComponentID]media.AudioComponent) map[string]map[media.ComponentID]media.AudioComponent {
	out := make(map[string]map[media.ComponentID]media.AudioComponent, len(buckets))
	for t, bucket := range buckets {
		out[t.String()] = bucket
	}
	return out
}
