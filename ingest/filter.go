package ingest

import (
	"path/filepath"
	"strings"
)

// Filter handles file inclusion/exclusion rules applied while walking
// source locations.
type Filter struct {
	inclusions  []string
	exclusions  []string
	maxFileSize int
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithInclusions restricts ingestion to paths matching the given patterns.
func WithInclusions(patterns ...string) FilterOption {
	return func(f *Filter) { f.inclusions = append(f.inclusions, patterns...) }
}

// WithExclusions skips paths matching the given patterns.
func WithExclusions(patterns ...string) FilterOption {
	return func(f *Filter) { f.exclusions = append(f.exclusions, patterns...) }
}

// WithMaxFileSize skips files larger than size bytes.
func WithMaxFileSize(size int) FilterOption {
	return func(f *Filter) { f.maxFileSize = size }
}

// NewFilter creates a filter with the given options.
func NewFilter(opts ...FilterOption) *Filter {
	f := &Filter{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsExcluded checks if a path should be skipped based on the rules.
func (f *Filter) IsExcluded(path string, size int) bool {
	if f == nil {
		return false
	}
	if f.maxFileSize > 0 && size > f.maxFileSize {
		return true
	}
	path = filepath.ToSlash(path)
	if len(f.inclusions) > 0 && !f.matches(path, f.inclusions) {
		return true
	}
	return f.matches(path, f.exclusions)
}

func (f *Filter) matches(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || strings.HasPrefix(pattern, "#") {
			continue
		}
		if strings.Contains(path, pattern) {
			return true
		}
		clean := strings.TrimPrefix(pattern, "/")
		if matched, _ := filepath.Match(clean, path); matched {
			return true
		}
		if matched, _ := filepath.Match(clean, base); matched {
			return true
		}
	}
	return false
}
