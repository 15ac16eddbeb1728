package track

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode is the tonality half of the harmonic wheel.
type Mode string

const (
	ModeMinor Mode = "A" // Camelot "A" ring
	ModeMajor Mode = "B" // Camelot "B" ring
)

// wheelSize is the number of positions on each ring of the harmonic wheel.
const wheelSize = 12

// Key is a position on the 24-slot harmonic (Camelot) wheel.
// The zero value is an unknown key.
type Key struct {
	Position int  // 1..12, 0 when unknown
	Mode     Mode // ModeMinor or ModeMajor
}

// Known reports whether the key was parsed successfully.
func (k Key) Known() bool {
	return k.Position >= 1 && k.Position <= wheelSize && (k.Mode == ModeMinor || k.Mode == ModeMajor)
}

// String returns the Camelot notation ("8A") or "unknown".
func (k Key) String() string {
	if !k.Known() {
		return "unknown"
	}
	return fmt.Sprintf("%d%s", k.Position, k.Mode)
}

// Distance returns the shortest number of steps around the wheel between the
// two positions, ignoring mode. Unknown keys return -1.
func (k Key) Distance(other Key) int {
	if !k.Known() || !other.Known() {
		return -1
	}
	d := k.Position - other.Position
	if d < 0 {
		d = -d
	}
	if d > wheelSize/2 {
		d = wheelSize - d
	}
	return d
}

// Pitch classes indexed from C. Tables map a pitch class to its wheel position.
var (
	majorPositions = [wheelSize]int{8, 3, 10, 5, 12, 7, 2, 9, 4, 11, 6, 1}
	minorPositions = [wheelSize]int{5, 12, 7, 2, 9, 4, 11, 6, 1, 8, 3, 10}
)

var noteClasses = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// ParseKey parses musical ("Am", "F#m", "Bb", "C major") or Camelot ("8A")
// notation. Anything else yields an unknown Key.
func ParseKey(s string) Key {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}
	}
	if k, ok := parseCamelot(s); ok {
		return k
	}
	if k, ok := parseMusical(s); ok {
		return k
	}
	return Key{}
}

func parseCamelot(s string) (Key, bool) {
	last := strings.ToUpper(s[len(s)-1:])
	if last != string(ModeMinor) && last != string(ModeMajor) {
		return Key{}, false
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 1 || n > wheelSize {
		return Key{}, false
	}
	return Key{Position: n, Mode: Mode(last)}, true
}

func parseMusical(s string) (Key, bool) {
	s = strings.ReplaceAll(s, "♯", "#")
	s = strings.ReplaceAll(s, "♭", "b")

	class, ok := noteClasses[strings.ToUpper(s[:1])[0]]
	if !ok {
		return Key{}, false
	}
	rest := s[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		class++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		class--
		rest = rest[1:]
	}
	class = (class + wheelSize) % wheelSize

	suffix := strings.ToLower(strings.TrimSpace(rest))
	switch suffix {
	case "m", "min", "minor":
		return Key{Position: minorPositions[class], Mode: ModeMinor}, true
	case "", "maj", "major":
		return Key{Position: majorPositions[class], Mode: ModeMajor}, true
	default:
		return Key{}, false
	}
}
