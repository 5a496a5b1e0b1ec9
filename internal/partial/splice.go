// Package partial splices rendered fragments into shared target files at
// named insertion markers.
//
// A marker is a line comment of the form
//
//	// <!-- IMPORTS -->
//
// present in both the fragment and the target. The fragment text after a
// marker, up to the next marker declared by the partial, is inserted right
// below the same marker in the target. Markers stay in place so later
// features can insert at them too; unconsumed markers are stripped when the
// project is finalized.
package partial

import (
	"regexp"
	"strings"
)

// Marker returns the literal marker comment for name
func Marker(name string) string {
	return "// <!-- " + name + " -->"
}

// markerPattern matches name's marker in a fragment with any inner spacing
func markerPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`//\s*<!--\s*` + regexp.QuoteMeta(name) + `\s*-->`)
}

// Extract returns the fragment text between the start marker and the next
// marker (or the end of the fragment when next is empty or absent), trimmed.
// ok is false when the fragment has no start marker.
func Extract(fragment, start, next string) (content string, ok bool) {
	loc := markerPattern(start).FindStringIndex(fragment)
	if loc == nil {
		return "", false
	}

	from := loc[1]
	to := len(fragment)
	if next != "" {
		if end := markerPattern(next).FindStringIndex(fragment[from:]); end != nil {
			to = from + end[0]
		}
	}

	return strings.TrimSpace(fragment[from:to]), true
}

// Splice inserts each marker's section of fragment into target, in the
// order given. A marker whose section is missing or empty, or that target
// lacks, is skipped. Only the first occurrence of a marker in target is
// expanded.
func Splice(fragment, target string, markers []string) string {
	for i, name := range markers {
		next := ""
		if i+1 < len(markers) {
			next = markers[i+1]
		}

		content, ok := Extract(fragment, name, next)
		if !ok || content == "" {
			continue
		}

		marker := Marker(name)
		if !strings.Contains(target, marker) {
			continue
		}
		target = strings.Replace(target, marker, marker+"\n"+content, 1)
	}
	return target
}

var strayMarker = regexp.MustCompile(`[ \t]*//[ \t]*<!--.*?-->[ \t]*\r?\n?`)

// StripMarkers removes every marker comment, including its own line ending
// and leading indentation. The following line is left untouched.
func StripMarkers(content string) string {
	return strayMarker.ReplaceAllString(content, "")
}
