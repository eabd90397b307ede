package naming

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxNameLength is the longest name Sanitize returns, in characters.
	MaxNameLength = 100

	// UnnamedPage replaces names that sanitize to nothing.
	UnnamedPage = "unnamed_page"

	// truncationMarker is inserted where a long name was cut.
	truncationMarker = "..."

	// maxKeptExtension is the longest trailing dot-part kept after truncation.
	maxKeptExtension = 10
)

var (
	schemePattern     = regexp.MustCompile(`^https?://`)
	unsafeCharPattern = regexp.MustCompile(`[/:?*"<>|&%=#]`)
	underscoreRun     = regexp.MustCompile(`_+`)
)

// Sanitize turns an address, or part of one, into a filesystem-safe name.
//
// The leading http:// or https:// is stripped, each of / : ? * " < > | & % = #
// becomes '_', runs of '_' collapse to one and leading or trailing '_' are
// trimmed. Names longer than MaxNameLength are cut and marked with "...";
// a short trailing extension survives the cut. An empty result becomes
// UnnamedPage.
//
// Sanitize is deterministic and Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	name := schemePattern.ReplaceAllString(s, "")
	name = unsafeCharPattern.ReplaceAllString(name, "_")
	name = underscoreRun.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if utf8.RuneCountInString(name) > MaxNameLength {
		name = truncate(name)
	}
	if name == "" {
		return UnnamedPage
	}
	return name
}

// truncate shortens name to fit MaxNameLength, keeping the text after the
// last dot when it is shorter than maxKeptExtension characters.
func truncate(name string) string {
	runes := []rune(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		ext := []rune(name[i+1:])
		if len(ext) < maxKeptExtension {
			keep := MaxNameLength - len(ext) - len(truncationMarker) - 1
			return string(runes[:keep]) + truncationMarker + string(ext)
		}
	}
	return string(runes[:MaxNameLength-len(truncationMarker)]) + truncationMarker
}
