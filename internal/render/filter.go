package render

import "strings"

// Filter selects which log keys are shown. It holds lowercase substrings;
// a key matches when it contains at least one of them. An empty filter
// matches every key.
type Filter struct {
	text  string
	parts []string
}

// ParseFilter builds a Filter from comma separated text. Segments are
// trimmed and lowercased; empty segments are ignored.
func ParseFilter(text string) Filter {
	f := Filter{text: text}
	for _, part := range strings.Split(strings.ToLower(text), ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			f.parts = append(f.parts, part)
		}
	}
	return f
}

// Text returns the text the filter was parsed from.
func (f Filter) Text() string {
	return f.text
}

// Match reports whether key passes the filter.
func (f Filter) Match(key string) bool {
	if len(f.parts) == 0 {
		return true
	}
	key = strings.ToLower(key)
	for _, part := range f.parts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}
