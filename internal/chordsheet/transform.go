// Package chordsheet turns a stored marker-format chord sheet into the
// text a performer sees on a page.
//
// The stored format is line-oriented: lines starting with '|' carry chord
// tokens, lines starting with a single space carry the lyric aligned under
// the chords, anything else passes through verbatim. Both markers are one
// character wide so stripping them keeps chords column-aligned with their
// syllables. Transposing can still change a token's width (C -> C#) and
// shift alignment of the rest of the line; that matches how the band's
// existing sheets render and is left as-is.
package chordsheet

import (
	"regexp"
	"strings"

	"bandstand/internal/musickey"
)

// PausePlaceholder is the fixed body shown for a pause page; pauses have
// no chart and are never transposed.
const PausePlaceholder = "*** PAUSA ***"

const (
	chordMarker = '|'
	lyricMarker = ' '
)

// chordToken matches a pitch letter optionally extended by an accidental.
// Only this root substring gets replaced during transposition, so chord
// qualities (m7, sus4, dim...) survive untouched.
var chordToken = regexp.MustCompile(`[A-G][#b]?`)

type lineKind int

const (
	plainLine lineKind = iota
	chordLine
	lyricLine
)

// classify derives a line's kind from its first character. Classification
// is positional and recomputed every pass; it is never stored.
func classify(line string) lineKind {
	if line == "" {
		return plainLine
	}
	switch line[0] {
	case chordMarker:
		return chordLine
	case lyricMarker:
		return lyricLine
	default:
		return plainLine
	}
}

// TransposeBody moves every chord token on chord lines from the origin key
// to the target key. When the semitone difference is zero (including the
// case where either key fails to parse) the input is returned unchanged.
// Lyric and plain lines are never altered.
func TransposeBody(raw string, origin, target musickey.Key) string {
	steps := musickey.SemitoneDiff(origin, target)
	if steps == 0 {
		return raw
	}

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		if classify(line) != chordLine {
			continue
		}
		body := line[1:]
		lines[i] = string(chordMarker) + chordToken.ReplaceAllStringFunc(body, func(root string) string {
			return musickey.TransposeRoot(root, steps)
		})
	}
	return strings.Join(lines, "\n")
}

// NormalizeIndent strips the single leading space from lyric lines, the
// marker used to keep them column-aligned with the chord line above.
// Already-normalized lyric lines no longer start with a space, so the
// operation is idempotent.
func NormalizeIndent(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if classify(line) == lyricLine {
			lines[i] = line[1:]
		}
	}
	return strings.Join(lines, "\n")
}

// StripMarkers removes the leading '|' from chord lines, exposing the
// chord text for display.
func StripMarkers(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if classify(line) == chordLine {
			lines[i] = line[1:]
		}
	}
	return strings.Join(lines, "\n")
}

// RenderDisplayText is the full display pipeline. The order is fixed:
// transposition runs first because it needs the chord markers, and
// marker stripping runs last.
func RenderDisplayText(raw string, origin, target musickey.Key) string {
	return StripMarkers(NormalizeIndent(TransposeBody(raw, origin, target)))
}
