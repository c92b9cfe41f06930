// Package address defines the four-level Italian address hierarchy and the
// typed records the ANNCSU lookup service returns for each level.
package address

import "fmt"

// Level is a position in the region -> province -> municipality -> street
// hierarchy. The numeric order is the dependency order.
type Level int

const (
	LevelRegion Level = iota
	LevelProvince
	LevelMunicipality
	LevelStreet
)

// LevelCount is the number of levels in the hierarchy.
const LevelCount = 4

var levelNames = [LevelCount]string{"region", "province", "municipality", "street"}

// Levels returns all levels in dependency order.
func Levels() []Level {
	return []Level{LevelRegion, LevelProvince, LevelMunicipality, LevelStreet}
}

// Valid reports whether l is one of the four known levels.
func (l Level) Valid() bool {
	return l >= LevelRegion && l <= LevelStreet
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// Upstream returns the level l depends on. ok is false for LevelRegion.
func (l Level) Upstream() (up Level, ok bool) {
	if l <= LevelRegion || !l.Valid() {
		return 0, false
	}
	return l - 1, true
}

// Downstream returns every level after l, nearest first.
func (l Level) Downstream() []Level {
	if !l.Valid() {
		return nil
	}
	var out []Level
	for d := l + 1; d <= LevelStreet; d++ {
		out = append(out, d)
	}
	return out
}

// ParseLevel maps a level name ("region", "province", ...) to its Level.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// MarshalText encodes the level by name so it can key JSON objects.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid level %d", int(l))
	}
	return []byte(levelNames[l]), nil
}

// UnmarshalText decodes a level name.
func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
