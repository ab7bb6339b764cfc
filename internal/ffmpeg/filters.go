package ffmpeg

import "strings"

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}
