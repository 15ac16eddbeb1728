package track

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// libraryFile is the on-disk YAML layout of a track library.
type libraryFile struct {
	Tracks []Track `yaml:"tracks"`
}

// Library is an in-memory track source.
//
// All public methods are thread-safe. Returned tracks are copies.
type Library struct {
	mu     sync.RWMutex
	tracks map[string]Track
	order  []string
}

// NewLibrary builds a library from already-validated tracks.
func NewLibrary(tracks ...Track) (*Library, error) {
	lib := &Library{tracks: make(map[string]Track, len(tracks))}
	for _, t := range tracks {
		if err := lib.Add(t); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// LoadLibrary reads a YAML track list from path and validates every entry.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading track library: %w", err)
	}
	return ParseLibrary(data)
}

// ParseLibrary decodes a YAML track list.
func ParseLibrary(data []byte) (*Library, error) {
	var file libraryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing track library: %w", err)
	}
	lib := &Library{tracks: make(map[string]Track, len(file.Tracks))}
	for i, t := range file.Tracks {
		if err := lib.Add(t); err != nil {
			return nil, fmt.Errorf("track[%d]: %w", i, err)
		}
	}
	return lib, nil
}

// Add validates and inserts a track.
func (l *Library) Add(t Track) error {
	if err := t.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.tracks[t.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTrack, t.ID)
	}
	l.tracks[t.ID] = t
	l.order = append(l.order, t.ID)
	return nil
}

// Get looks up a track by ID.
func (l *Library) Get(id string) (Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tracks[id]
	if !ok {
		return Track{}, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	return t, nil
}

// All returns every track in insertion order.
func (l *Library) All() []Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Track, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.tracks[id])
	}
	return out
}

// Genres returns the distinct genres in the library, sorted.
func (l *Library) Genres() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, t := range l.tracks {
		if g := NormalizeGenre(t.Genre); g != "" {
			seen[g] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of tracks.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tracks)
}
