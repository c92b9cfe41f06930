package address

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_Downstream(t *testing.T) {
	assert.Equal(t, []Level{LevelProvince, LevelMunicipality, LevelStreet}, LevelRegion.Downstream())
	assert.Equal(t, []Level{LevelStreet}, LevelMunicipality.Downstream())
	assert.Empty(t, LevelStreet.Downstream())
	assert.Nil(t, Level(9).Downstream())
}

func TestLevel_Upstream(t *testing.T) {
	_, ok := LevelRegion.Upstream()
	assert.False(t, ok)

	up, ok := LevelStreet.Upstream()
	require.True(t, ok)
	assert.Equal(t, LevelMunicipality, up)
}

func TestParseLevel(t *testing.T) {
	for _, l := range Levels() {
		got, err := ParseLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}
	_, err := ParseLevel("country")
	assert.Error(t, err)
}

func TestLevel_JSONMapKey(t *testing.T) {
	in := map[Level]string{LevelProvince: "058", LevelStreet: "s-1"}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"province":"058","street":"s-1"}`, string(b))

	var out map[Level]string
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestStreet_Display(t *testing.T) {
	s := Street{ID: "1", Name: "Roma", DisplayStreetType: "Via", DisplayMunicipality: "Milano"}
	assert.Equal(t, "Via Roma", s.Display())
	assert.Equal(t, "Milano", s.Detail())
	assert.Equal(t, "Milano", s.AncestorDisplay(LevelMunicipality))
	assert.Empty(t, s.AncestorDisplay(LevelProvince))

	bare := Street{ID: "2", DisplayName: "Corso Como"}
	assert.Equal(t, "Corso Como", bare.Label())
	assert.Equal(t, "Corso Como", bare.Display())
}
