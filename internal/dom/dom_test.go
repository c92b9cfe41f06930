//go:build !(js && wasm)

package dom

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matthewbaird/addrcascade/internal/address"
	"github.com/matthewbaird/addrcascade/internal/cascade"
)

func TestAttach_NoDocument(t *testing.T) {
	f, err := Attach(context.Background(), []byte(`{"fields": {"street": {"ref": "via"}}}`), nil, nil)
	assert.ErrorIs(t, err, ErrNoDOM)
	assert.Nil(t, f)
}

func TestModalityForTag(t *testing.T) {
	assert.Equal(t, cascade.ChoiceList, modalityForTag("SELECT"))
	assert.Equal(t, cascade.ChoiceList, modalityForTag("select"))
	assert.Equal(t, cascade.IncrementalSearch, modalityForTag("INPUT"))
	assert.Equal(t, cascade.IncrementalSearch, modalityForTag("TEXTAREA"))
	assert.Equal(t, cascade.Modality(0), modalityForTag("DIV"))
}

func TestOptionIndexByLabel(t *testing.T) {
	labels := []string{"-- Seleziona --", "Milano", " Roma "}
	assert.Equal(t, 1, optionIndexByLabel(labels, "milano"))
	assert.Equal(t, 2, optionIndexByLabel(labels, "Roma"))
	assert.Equal(t, -1, optionIndexByLabel(labels, "Napoli"))
}

func TestElementModality(t *testing.T) {
	tests := []struct {
		name       string
		level      address.Level
		tag        string
		configured string
		want       cascade.Modality
		wantErr    error
	}{
		{"select from tag", address.LevelStreet, "SELECT", "", cascade.ChoiceList, nil},
		{"input from tag", address.LevelRegion, "INPUT", "", cascade.IncrementalSearch, nil},
		{"level default", address.LevelProvince, "DIV", "", cascade.ChoiceList, nil},
		{"configured matches tag", address.LevelMunicipality, "select", "select", cascade.ChoiceList, nil},
		{"configured on neutral tag", address.LevelRegion, "DIV", "search", cascade.IncrementalSearch, nil},
		{"select as search", address.LevelStreet, "SELECT", "search", 0, ErrTagModality},
		{"input as select", address.LevelRegion, "INPUT", "select", 0, ErrTagModality},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := elementModality(tt.level, tt.tag, tt.configured)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
