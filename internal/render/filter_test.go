package render_test

import (
	"testing"

	"github.com/edumarques81/stellar-media-internals/internal/render"
)

func TestFilter_Match(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		key    string
		want   bool
	}{
		{"empty matches all", "", "anything", true},
		{"only separators matches all", " , ,", "anything", true},
		{"substring", "foo", "foobar", true},
		{"no match", "foo", "baz", false},
		{"any segment", "foo, bar", "barbaz", true},
		{"trimmed segments", "  baz  ", "foobaz", true},
		{"case insensitive filter", "FOO", "foobar", true},
		{"case insensitive key", "foo", "FOOBAR", true},
		{"none of several", "foo, bar", "baz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render.ParseFilter(tt.filter).Match(tt.key); got != tt.want {
				t.Errorf("ParseFilter(%q).Match(%q) = %v, want %v", tt.filter, tt.key, got, tt.want)
			}
		})
	}
}

func TestFilter_ZeroValueMatchesAll(t *testing.T) {
	var f render.Filter
	if !f.Match("key") {
		t.Error("zero Filter should match every key")
	}
	if f.Text() != "" {
		t.Errorf("expected empty text, got %q", f.Text())
	}
}
