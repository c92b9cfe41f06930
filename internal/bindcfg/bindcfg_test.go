package bindcfg

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/addrcascade/internal/address"
	"github.com/matthewbaird/addrcascade/internal/cascade"
)

type nopField struct{ ref string }

func (nopField) SetOptions([]cascade.Option) {}
func (nopField) ShowSuggestions([]cascade.Suggestion) {}
func (nopField) HideSuggestions() {}
func (nopField) SetText(string) {}
func (nopField) Reset() {}

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(`{
		"fields": {
			"region":       {"ref": "regione", "output": "regione_code"},
			"province":     {"ref": "provincia"},
			"municipality": {"ref": "comune", "modality": "select"},
			"street":       {"ref": "via", "enabled": false}
		},
		"debounce_ms": 150,
		"min_chars": 3,
		"municipality_limit": 20
	}`))
	require.NoError(t, err)

	assert.Equal(t, []address.Level{address.LevelRegion, address.LevelProvince, address.LevelMunicipality}, cfg.EnabledLevels())
	assert.Equal(t, "regione_code", cfg.Fields[address.LevelRegion].Output)
	assert.False(t, cfg.Fields[address.LevelStreet].IsEnabled())
	assert.Equal(t, 150*time.Millisecond, cfg.Debounce())
	assert.Equal(t, 3, cfg.MinChars)
	assert.Equal(t, 20, cfg.MunicipalityLimit)
	assert.Zero(t, cfg.StreetLimit)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"fields": `},
		{"unknown level", `{"fields": {"country": {"ref": "x"}}}`},
		{"unknown top-level key", `{"fields": {"street": {"ref": "x"}}, "colour": "red"}`},
		{"missing ref", `{"fields": {"street": {"output": "x"}}}`},
		{"empty ref", `{"fields": {"street": {"ref": ""}}}`},
		{"bad modality", `{"fields": {"street": {"ref": "x", "modality": "radio"}}}`},
		{"negative debounce", `{"fields": {"street": {"ref": "x"}}, "debounce_ms": -1}`},
		{"zero min chars", `{"fields": {"street": {"ref": "x"}}, "min_chars": 0}`},
		{"string limit", `{"fields": {"street": {"ref": "x"}}, "street_limit": "10"}`},
		{"array", `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParse_NoEnabledFields(t *testing.T) {
	_, err := Parse([]byte(`{"fields": {"street": {"ref": "via", "enabled": false}}}`))
	assert.ErrorIs(t, err, ErrNoFields)

	_, err = Parse([]byte(`{"fields": {}}`))
	assert.ErrorIs(t, err, ErrNoFields)
}

func TestConfig_Debounce(t *testing.T) {
	cfg, err := Parse([]byte(`{"fields": {"street": {"ref": "via"}}}`))
	require.NoError(t, err)
	assert.Zero(t, cfg.Debounce(), "unset keeps the controller default")

	cfg, err = Parse([]byte(`{"fields": {"street": {"ref": "via"}}, "debounce_ms": 0}`))
	require.NoError(t, err)
	assert.Equal(t, time.Nanosecond, cfg.Debounce())
}

func TestConfig_Controller(t *testing.T) {
	cfg, err := Parse([]byte(`{
		"fields": {
			"province":     {"ref": "provincia", "output": "provincia_code"},
			"municipality": {"ref": "comune"},
			"street":       {"ref": "via", "modality": "search"}
		},
		"min_chars": 3
	}`))
	require.NoError(t, err)

	var resolved []string
	r := ResolverFunc(func(level address.Level, f Field) (Bound, error) {
		resolved = append(resolved, f.Ref)
		b := Bound{Field: nopField{ref: f.Ref}}
		if level == address.LevelMunicipality {
			b.Modality = cascade.ChoiceList // e.g. a <select> element
		}
		if level == address.LevelStreet {
			b.Modality = cascade.ChoiceList // overridden by the configured modality
		}
		return b, nil
	})

	cc, err := cfg.Controller(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"provincia", "comune", "via"}, resolved)
	assert.Equal(t, 3, cc.MinQueryLength)
	assert.Zero(t, cc.Debounce)
	require.Len(t, cc.Bindings, 3)

	assert.Equal(t, address.LevelProvince, cc.Bindings[0].Level)
	assert.Equal(t, cascade.ChoiceList, cc.Bindings[0].Modality)
	assert.Equal(t, cascade.ChoiceList, cc.Bindings[1].Modality)
	assert.Equal(t, cascade.IncrementalSearch, cc.Bindings[2].Modality)
}

func TestConfig_ControllerResolveError(t *testing.T) {
	cfg, err := Parse([]byte(`{"fields": {"street": {"ref": "missing"}}}`))
	require.NoError(t, err)

	boom := errors.New("element not found")
	_, err = cfg.Controller(ResolverFunc(func(address.Level, Field) (Bound, error) {
		return Bound{}, boom
	}))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `street "missing"`)
}

func TestSchema(t *testing.T) {
	assert.True(t, strings.Contains(Schema(), "#Config"))
}
