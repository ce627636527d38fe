// Package musickey implements note and semitone arithmetic for the
// twelve-tone pitch classes used when retuning a song.
package musickey

import "strings"

// Key identifies a musical key by its spelled root (e.g. "C", "F#", "Bb")
// and a quality suffix ("" for major, "m" for minor; anything else is kept
// opaque). Keys are immutable values compared by spelling, so the
// enharmonic pair C#/Db are distinct keys of the same pitch class.
type Key struct {
	Root    string `json:"root"`
	Quality string `json:"quality,omitempty"`
}

// pitchClasses maps both sharp and flat spellings of each root to the same
// 0..11 pitch class.
var pitchClasses = map[string]int{
	"C": 0, "C#": 1, "Db": 1,
	"D": 2, "D#": 3, "Eb": 3,
	"E": 4,
	"F": 5, "F#": 6, "Gb": 6,
	"G": 7, "G#": 8, "Ab": 8,
	"A": 9, "A#": 10, "Bb": 10,
	"B": 11,
}

var sharpScale = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
var flatScale = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

// Parse reads a key spelling such as "C", "F#m" or "Bbm7". The first
// character is the root letter (case-normalized to uppercase), an optional
// second character '#' or 'b' extends the root, and whatever remains is the
// quality. Unparseable input yields the zero Key rather than an error;
// callers treat a zero root as "no transposition".
func Parse(s string) Key {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}
	}

	root := strings.ToUpper(s[:1])
	if root < "A" || root > "G" {
		return Key{}
	}

	rest := s[1:]
	if len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		root += rest[:1]
		rest = rest[1:]
	}

	return Key{Root: root, Quality: rest}
}

// IsValid reports whether the key has a recognized root.
func (k Key) IsValid() bool {
	_, ok := pitchClasses[k.Root]
	return ok
}

// String returns the spelled key, e.g. "Bbm".
func (k Key) String() string {
	return k.Root + k.Quality
}

// SemitoneDiff returns the number of semitones (0..11) from origin to
// target. If either root is unrecognized the difference is 0, an identity
// fallback so malformed keys never fail a transposition.
func SemitoneDiff(origin, target Key) int {
	from, ok := pitchClasses[origin.Root]
	if !ok {
		return 0
	}
	to, ok := pitchClasses[target.Root]
	if !ok {
		return 0
	}
	return mod12(to - from)
}

// TransposeRoot moves a spelled root by the given number of semitones
// (which may be negative). The result is re-spelled from the flat scale
// when the input spelling contains 'b', otherwise from the sharp scale;
// the spelling convention follows the input, not the target key. Unknown
// roots are returned unchanged.
func TransposeRoot(root string, steps int) string {
	idx, ok := pitchClasses[root]
	if !ok {
		return root
	}

	next := mod12(idx + steps)
	if strings.Contains(root, "b") {
		return flatScale[next]
	}
	return sharpScale[next]
}

// Transpose returns the key moved by steps semitones, quality preserved.
func (k Key) Transpose(steps int) Key {
	return Key{Root: TransposeRoot(k.Root, steps), Quality: k.Quality}
}

// mod12 is a mathematically correct modulo: the result is in [0,11] even
// for negative input, unlike Go's % operator.
func mod12(n int) int {
	return ((n % 12) + 12) % 12
}
