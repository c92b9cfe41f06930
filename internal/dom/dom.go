// Package dom binds a cascade controller to live HTML elements. It only
// works in a browser (GOOS=js GOARCH=wasm); elsewhere Attach fails with
// ErrNoDOM.
package dom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matthewbaird/addrcascade/internal/address"
	"github.com/matthewbaird/addrcascade/internal/cascade"
)

var (
	// ErrNoDOM is returned when no document is available.
	ErrNoDOM = errors.New("dom: no document available")
	// ErrElementNotFound is returned for a reference that matches no element.
	ErrElementNotFound = errors.New("dom: element not found")
	// ErrTagModality is returned when the configured modality cannot be
	// rendered by the element, such as a SELECT configured as a search box.
	ErrTagModality = errors.New("dom: modality does not fit element")
)

// Class names used for the suggestion panel so pages can style it.
const (
	PanelClass  = "cascade-suggestions"
	RowClass    = "cascade-suggestion"
	DetailClass = "cascade-suggestion-detail"
)

// modalityForTag infers a field's modality from its element tag: a SELECT
// is a choice-list, a text control is a search box. Anything else leaves
// the decision to the configuration.
func modalityForTag(tag string) cascade.Modality {
	switch strings.ToUpper(tag) {
	case "SELECT":
		return cascade.ChoiceList
	case "INPUT", "TEXTAREA":
		return cascade.IncrementalSearch
	default:
		return 0
	}
}

// elementModality decides how a field behaves: the configured modality when
// set, else the one implied by the element tag, else the level default. A
// configured modality that contradicts the tag is rejected.
func elementModality(level address.Level, tag, configured string) (cascade.Modality, error) {
	fromTag := modalityForTag(tag)
	if configured == "" {
		if fromTag != 0 {
			return fromTag, nil
		}
		return cascade.DefaultModality(level), nil
	}
	m, err := cascade.ParseModality(configured)
	if err != nil {
		return 0, err
	}
	if fromTag != 0 && m != fromTag {
		return 0, fmt.Errorf("%w: %s is a %s, configured as %s", ErrTagModality, level, strings.ToUpper(tag), m)
	}
	return m, nil
}

// optionIndexByLabel returns the index of the option whose label equals
// text, ignoring case and surrounding space, or -1.
func optionIndexByLabel(labels []string, text string) int {
	want := strings.TrimSpace(text)
	for i, l := range labels {
		if strings.EqualFold(strings.TrimSpace(l), want) {
			return i
		}
	}
	return -1
}
