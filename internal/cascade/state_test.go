package cascade

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/addrcascade/internal/address"
)

func recordFor(l address.Level, i int) address.Record {
	switch l {
	case address.LevelRegion:
		return testRegions[i%len(testRegions)]
	case address.LevelProvince:
		return testProvinces[i%len(testProvinces)]
	case address.LevelMunicipality:
		return testMunicipalities[i%len(testMunicipalities)]
	default:
		return testStreets[i%len(testStreets)]
	}
}

func TestState_SetClearsDownstream(t *testing.T) {
	s := NewState()
	for _, l := range address.Levels() {
		_, err := s.Set(l, recordFor(l, 0))
		require.NoError(t, err)
	}

	cleared, err := s.Set(address.LevelProvince, recordFor(address.LevelProvince, 1))
	require.NoError(t, err)
	assert.Equal(t, []address.Level{address.LevelMunicipality, address.LevelStreet}, cleared)
	assert.NotNil(t, s.Get(address.LevelRegion))
	assert.Equal(t, "016", s.Code(address.LevelProvince))
	assert.Nil(t, s.Get(address.LevelMunicipality))
	assert.Nil(t, s.Get(address.LevelStreet))
}

func TestState_ClearRegionClearsEverything(t *testing.T) {
	s := NewState()
	for _, l := range address.Levels() {
		s.Set(l, recordFor(l, 0))
	}
	cleared, err := s.Clear(address.LevelRegion)
	require.NoError(t, err)
	assert.Len(t, cleared, 3)
	assert.Empty(t, s.Snapshot())
}

func TestState_ErrorsLeaveStateUnchanged(t *testing.T) {
	s := NewState()
	s.Set(address.LevelRegion, recordFor(address.LevelRegion, 0))
	s.Set(address.LevelProvince, recordFor(address.LevelProvince, 0))
	before := s.Snapshot()

	_, err := s.Set(address.LevelRegion, recordFor(address.LevelProvince, 1))
	assert.ErrorIs(t, err, ErrLevelMismatch)

	_, err = s.Set(address.Level(8), nil)
	assert.ErrorIs(t, err, ErrInvalidLevel)

	assert.Equal(t, before, s.Snapshot())
}

// After any operation on level i, every level below i is unset and every
// level above i is untouched.
func TestState_InvariantHoldsForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewState()
	levels := address.Levels()

	for step := 0; step < 5000; step++ {
		l := levels[rng.Intn(len(levels))]
		before := s.Snapshot()

		if rng.Intn(3) == 0 {
			_, err := s.Clear(l)
			require.NoError(t, err)
			require.Nil(t, s.Get(l), "step %d", step)
		} else {
			_, err := s.Set(l, recordFor(l, rng.Intn(3)))
			require.NoError(t, err)
		}

		for _, d := range l.Downstream() {
			require.Nil(t, s.Get(d), "step %d: %s survived a change to %s", step, d, l)
		}
		for up := address.LevelRegion; up < l; up++ {
			require.Equal(t, before[up], s.Get(up), "step %d: ancestor %s changed", step, up)
		}
	}
}

func TestSelection_Codes(t *testing.T) {
	s := NewState()
	s.Set(address.LevelRegion, testRegions[1])
	s.Set(address.LevelProvince, testProvinces[2])
	assert.Equal(t, map[address.Level]string{
		address.LevelRegion:   "12",
		address.LevelProvince: "058",
	}, s.Snapshot().Codes())
}
