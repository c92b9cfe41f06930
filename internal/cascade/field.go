package cascade

import (
	"context"
	"fmt"

	"github.com/matthewbaird/addrcascade/internal/address"
)

// Modality is how a field takes input.
type Modality int

const (
	// ChoiceList is a closed selector populated with every current option.
	ChoiceList Modality = iota + 1
	// IncrementalSearch is a free-text box queried on debounced keystrokes.
	IncrementalSearch
)

func (m Modality) String() string {
	switch m {
	case ChoiceList:
		return "select"
	case IncrementalSearch:
		return "search"
	default:
		return fmt.Sprintf("modality(%d)", int(m))
	}
}

// ParseModality maps "select" and "search" to a Modality.
func ParseModality(s string) (Modality, error) {
	switch s {
	case "select":
		return ChoiceList, nil
	case "search":
		return IncrementalSearch, nil
	default:
		return 0, fmt.Errorf("unknown modality %q", s)
	}
}

// DefaultModality is the modality a level gets when none is configured.
func DefaultModality(l address.Level) Modality {
	if l == address.LevelRegion || l == address.LevelProvince {
		return ChoiceList
	}
	return IncrementalSearch
}

// Option is one entry of a rendered choice-list. The sentinel "unselected"
// option has an empty Value and no Record.
type Option struct {
	Value  string         `json:"value"`
	Label  string         `json:"label"`
	Record address.Record `json:"record,omitempty"`
}

// IsSentinel reports whether o is the "unselected" entry.
func (o Option) IsSentinel() bool { return o.Value == "" }

// Suggestion is one row of an incremental-search panel.
type Suggestion struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Display string `json:"display"`
	Detail  string `json:"detail,omitempty"`
}

// Field is a rendered input driven by the controller. Methods are only
// called from the event loop and must not block on the UI.
type Field interface {
	// SetOptions replaces the whole option list of a choice-list.
	SetOptions(opts []Option)
	// ShowSuggestions renders the suggestion panel of a search field.
	ShowSuggestions(items []Suggestion)
	// HideSuggestions hides the suggestion panel.
	HideSuggestions()
	// SetText writes display text. Choice-lists select the option whose
	// label matches, if any.
	SetText(text string)
	// Reset empties the field: no text, sentinel option selected.
	Reset()
}

// Output mirrors the identifying code of a level's selection.
type Output interface {
	SetValue(value string)
}

// OutputFunc adapts a function to Output.
type OutputFunc func(value string)

func (f OutputFunc) SetValue(value string) { f(value) }

// Source answers the query behind a level. upstream is the identifying code
// of the selected parent level, or "" for no filter. Failures are reported
// as an empty result.
type Source interface {
	Lookup(ctx context.Context, level address.Level, text, upstream string) []address.Record
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, level address.Level, text, upstream string) []address.Record

func (f SourceFunc) Lookup(ctx context.Context, level address.Level, text, upstream string) []address.Record {
	return f(ctx, level, text, upstream)
}

// Binding attaches one UI field to a level.
type Binding struct {
	Level    address.Level
	Field    Field
	Output   Output // optional
	Modality Modality
}
