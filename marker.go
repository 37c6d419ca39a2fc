package corpus

import (
	"regexp"
	"strconv"
	"strings"
)

// MarkerKind is the asset kind named by a marker.
type MarkerKind string

// Marker kinds.
const (
	MarkerImage MarkerKind = "IMAGE"
	MarkerFile  MarkerKind = "FILE"
)

// Marker is an inline asset reference of the form [[KIND:id]].
type Marker struct {
	Kind MarkerKind `json:"kind"`
	ID   string     `json:"id"`
}

// String renders the marker in its inline form.
func (m Marker) String() string {
	return "[[" + string(m.Kind) + ":" + m.ID + "]]"
}

// ImageMarker returns the inline placeholder for an embedded image.
func ImageMarker(id string) string {
	return Marker{Kind: MarkerImage, ID: id}.String()
}

var markerRe = regexp.MustCompile(`\[\[(IMAGE|FILE):(.*?)\]\]`)

// ParseMarkers returns the markers in text in order of appearance.
// It is meant to run once over a completed model response.
func ParseMarkers(text string) []Marker {
	matches := markerRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	markers := make([]Marker, 0, len(matches))
	for _, match := range matches {
		id := strings.TrimSpace(match[2])
		if id == "" {
			continue
		}
		markers = append(markers, Marker{Kind: MarkerKind(match[1]), ID: id})
	}
	return markers
}

// PageBreak returns the line inserted between pages of paginated text.
func PageBreak(page int) string {
	return "--- page " + strconv.Itoa(page) + " ---"
}

var pageBreakRe = regexp.MustCompile(`^--- page \d+ ---$`)

// IsPageBreak reports whether line is a page boundary marker.
func IsPageBreak(line string) bool {
	return pageBreakRe.MatchString(strings.TrimSpace(line))
}
