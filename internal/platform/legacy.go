package platform

import (
	"fmt"
	"strings"
)

// The textual result contract inherited from existing backends: success is a
// string containing a "Location:" line, failure is a string starting with
// "Error". Internally everything is a Result or an error; these helpers only
// exist at the compatibility boundary.

const (
	errorMarker    = "Error"
	locationMarker = "Location:"
)

// Legacy renders a Result in the textual success form that older CLI
// consumers expect.
func (r Result) Legacy() string {
	return fmt.Sprintf("Downloaded: %s\n%s %s", r.Name, locationMarker, r.Location)
}

// ParseLegacy interprets a legacy backend result string, splitting it into a
// structured Result or a BackendError.
func ParseLegacy(text string) (Result, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, errorMarker) {
		return Result{}, &BackendError{Message: trimmed}
	}

	var res Result
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Downloaded:") {
			res.Name = strings.TrimSpace(strings.TrimPrefix(line, "Downloaded:"))
		}
		if strings.HasPrefix(line, locationMarker) {
			res.Location = strings.TrimSpace(strings.TrimPrefix(line, locationMarker))
		}
	}
	if res.Location == "" {
		return Result{}, &BackendError{Message: fmt.Sprintf("Error: backend result carried no location: %q", trimmed)}
	}
	return res, nil
}
