package cascade

import (
	"errors"
	"fmt"

	"github.com/matthewbaird/addrcascade/internal/address"
)

var (
	// ErrInvalidLevel is returned for a level outside the hierarchy.
	ErrInvalidLevel = errors.New("cascade: invalid level")
	// ErrLevelMismatch is returned when a record is stored under a level it
	// does not belong to.
	ErrLevelMismatch = errors.New("cascade: record level mismatch")
)

// State holds the selected record of each level. Setting or clearing a
// level always clears every level below it, so no downstream selection
// outlives a change to its ancestor.
type State struct {
	selected [address.LevelCount]address.Record
}

// NewState returns an empty hierarchy.
func NewState() *State {
	return &State{}
}

// Get returns the record selected at l, or nil.
func (s *State) Get(l address.Level) address.Record {
	if !l.Valid() {
		return nil
	}
	return s.selected[l]
}

// Code returns the identifying code selected at l, or "".
func (s *State) Code(l address.Level) string {
	if r := s.Get(l); r != nil {
		return r.Key()
	}
	return ""
}

// Set stores rec at l (nil clears it) and clears every downstream level.
// It returns the downstream levels, all of which are now unset. On error
// the state is unchanged.
func (s *State) Set(l address.Level, rec address.Record) ([]address.Level, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, int(l))
	}
	if rec != nil && rec.Level() != l {
		return nil, fmt.Errorf("%w: %s record for %s", ErrLevelMismatch, rec.Level(), l)
	}

	s.selected[l] = rec
	cleared := l.Downstream()
	for _, d := range cleared {
		s.selected[d] = nil
	}
	return cleared, nil
}

// Clear is Set(l, nil).
func (s *State) Clear(l address.Level) ([]address.Level, error) {
	return s.Set(l, nil)
}

// Selection is a point-in-time copy of the selected records, keyed by level.
// Unset levels are absent.
type Selection map[address.Level]address.Record

// Snapshot copies the current selection.
func (s *State) Snapshot() Selection {
	out := make(Selection, address.LevelCount)
	for _, l := range address.Levels() {
		if r := s.selected[l]; r != nil {
			out[l] = r
		}
	}
	return out
}

// Codes returns the identifying code of every selected level.
func (sel Selection) Codes() map[address.Level]string {
	out := make(map[address.Level]string, len(sel))
	for l, r := range sel {
		out[l] = r.Key()
	}
	return out
}
