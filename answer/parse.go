package answer

import (
	"fmt"
	"strings"

	"github.com/viant/agentkb/schema"
)

// MalformedResponseError reports a generated reply missing one or more of
// the required section markers.
type MalformedResponseError struct {
	Missing []string
}

// Error implements error.
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("generated reply missing section(s): %s", strings.Join(e.Missing, ", "))
}

// ParseStructured splits a generated reply into the three answer sections.
// Marker matching is case-insensitive and tolerates leading markdown bullets
// or emphasis on the marker line.
func ParseStructured(reply string) (schema.StructuredAnswer, error) {
	markers := []string{markerCustomer, markerInternal, markerSteps}
	positions := make([]int, len(markers))
	lengths := make([]int, len(markers))
	lower := strings.ToLower(reply)

	var missing []string
	from := 0
	for i, marker := range markers {
		idx := strings.Index(lower[from:], strings.ToLower(marker))
		if idx < 0 {
			missing = append(missing, strings.TrimSuffix(marker, ":"))
			continue
		}
		positions[i] = from + idx
		lengths[i] = len(marker)
		from = positions[i] + lengths[i]
	}
	if len(missing) > 0 {
		return schema.StructuredAnswer{}, &MalformedResponseError{Missing: missing}
	}

	section := func(i int) string {
		start := positions[i] + lengths[i]
		end := len(reply)
		if i+1 < len(markers) {
			end = positions[i+1]
		}
		text := strings.TrimSpace(reply[start:end])
		// Drop decoration the model sometimes leaves around the next marker.
		return strings.TrimRight(text, "*_ \n\t")
	}

	return schema.StructuredAnswer{
		CustomerAnswer: section(0),
		InternalNotes:  section(1),
		AgentSteps:     section(2),
	}, nil
}
