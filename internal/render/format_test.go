package render_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/edumarques81/stellar-media-internals/internal/domain/media"
	"github.com/edumarques81/stellar-media-internals/internal/render"
)

func TestFormatMilliseconds(t *testing.T) {
	tests := []struct {
		ms   float64
		want string
	}{
		{0, "00:00:00.000"},
		{1.9, "00:00:00.001"},
		{999, "00:00:00.999"},
		{61_005, "00:01:01.005"},
		{3_723_004, "01:02:03.004"},
		{90_000_000, "25:00:00.000"},
		{-5, "00:00:00.000"},
	}

	for _, tt := range tests {
		if got := render.FormatMilliseconds(tt.ms); got != tt.want {
			t.Errorf("FormatMilliseconds(%v) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string verbatim", "hello", "hello"},
		{"integer", 42, "42"},
		{"float", 0.25, "0.25"},
		{"bool", true, "true"},
		{"nil", nil, "null"},
		{"map", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
		{"slice", []int{1, 2}, "[1,2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render.FormatValue(tt.in); got != tt.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPropertyRows_SortedWithoutHiddenKeys(t *testing.T) {
	rows := render.PropertyRows(map[string]any{
		"owner_id":       "1",
		"component_id":   "2",
		"component_type": 0,
		"volume":         1,
		"device_id":      "default",
	})

	want := []render.PropertyRow{
		{Key: "device_id", Value: "default"},
		{Key: "volume", Value: "1"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestGraphBars_OrderedByCount(t *testing.T) {
	events := []media.Event{
		{Key: "b"}, {Key: "a"}, {Key: "c"}, {Key: "c"}, {Key: "a"}, {Key: "c"},
	}

	want := []render.GraphBar{{Key: "c", Count: 3}, {Key: "a", Count: 2}, {Key: "b", Count: 1}}
	if diff := cmp.Diff(want, render.GraphBars(events)); diff != "" {
		t.Errorf("bars mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalExport_TwoSpaceIndent(t *testing.T) {
	data, err := render.MarshalExport(map[string]any{"k": []int{1}})
	if err != nil {
		t.Fatalf("MarshalExport: %v", err)
	}
	want := "{\n  \"k\": [\n    1\n  ]\n}"
	if string(data) != want {
		t.Errorf("got %q, want %q", data, want)
	}
}

func TestMarshalExport_Error(t *testing.T) {
	_, err := render.MarshalExport(map[string]any{"c": make(chan int)})
	if err == nil || !strings.Contains(err.Error(), "failed to encode export") {
		t.Fatalf("expected wrapped encode error, got %v", err)
	}
}

func TestComponentExport_KeysByTypeName(t *testing.T) {
	id := media.ComponentID{Owner: "1", Component: "2"}
	out := render.ComponentExport(map[media.ComponentType]map[media.ComponentID]media.AudioComponent{
		media.OutputController: {id: {"volume": 1}},
	})

	if _, ok := out["Output Controller"][id]; !ok {
		t.Errorf("expected component under 'Output Controller', got %v", out)
	}
}
