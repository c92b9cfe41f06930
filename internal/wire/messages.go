// Package wire defines the WebSocket protocol that lets a browser form
// drive a server-side cascade controller.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/addrcascade/internal/address"
	"github.com/matthewbaird/addrcascade/internal/cascade"
)

// Client message types.
const (
	TypeAttach  = "attach"
	TypeSelect  = "select"
	TypeInput   = "input"
	TypePick    = "pick"
	TypeDismiss = "dismiss"
	TypeClear   = "clear"
	TypeState   = "state"
	TypeDetails = "details"
	TypePing    = "ping"
)

// Server message types.
const (
	TypeSession     = "session"
	TypeAttached    = "attached"
	TypeOptions     = "options"
	TypeSuggestions = "suggestions"
	TypeHide        = "hide"
	TypeText        = "text"
	TypeReset       = "reset"
	TypeOutput      = "output"
	TypeError       = "error"
	TypePong        = "pong"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id"` // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// The payload of "attach" is a binding configuration document (see bindcfg).

// SelectData is the payload for "select" messages.
type SelectData struct {
	Level address.Level `json:"level"`
	Value string        `json:"value"`
}

// InputData is the payload for "input" messages.
type InputData struct {
	Level address.Level `json:"level"`
	Text  string        `json:"text"`
}

// PickData is the payload for "pick" messages.
type PickData struct {
	Level address.Level `json:"level"`
	Key   string        `json:"key"`
}

// LevelData is the payload for "dismiss" and "clear" messages.
type LevelData struct {
	Level address.Level `json:"level"`
}

// DetailsRequest is the payload for "details" messages.
type DetailsRequest struct {
	ID string `json:"id"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// SessionData carries session information.
type SessionData struct {
	SessionID string `json:"session_id"`
}

// BoundField describes one attached field.
type BoundField struct {
	Level    address.Level `json:"level"`
	Ref      string        `json:"ref"`
	Output   string        `json:"output,omitempty"`
	Modality string        `json:"modality"`
}

// AttachedData confirms an attach.
type AttachedData struct {
	Fields []BoundField `json:"fields"`
}

// FieldRef addresses one client-side field.
type FieldRef struct {
	Level address.Level `json:"level"`
	Ref   string        `json:"ref"`
}

// OptionData is one entry of a rendered choice-list.
type OptionData struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// OptionsData replaces the options of a choice-list.
type OptionsData struct {
	FieldRef
	Options []OptionData `json:"options"`
}

// SuggestionsData shows a suggestion panel.
type SuggestionsData struct {
	FieldRef
	Items []cascade.Suggestion `json:"items"`
}

// TextData sets a field's visible text.
type TextData struct {
	FieldRef
	Text string `json:"text"`
}

// OutputData sets a hidden output element's value.
type OutputData struct {
	Level address.Level `json:"level"`
	Ref   string        `json:"ref"`
	Value string        `json:"value"`
}

// SelectedData is one level of a state report.
type SelectedData struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Display string `json:"display"`
}

// StateData reports the current selection. Unset levels are absent.
type StateData struct {
	Selection map[address.Level]SelectedData `json:"selection"`
}

// DetailsData carries an address details lookup result; Details is nil when
// the address is unknown.
type DetailsData struct {
	Details *address.AddressDetails `json:"details"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newStateData(sel cascade.Selection) StateData {
	out := StateData{Selection: make(map[address.Level]SelectedData, len(sel))}
	for l, r := range sel {
		out.Selection[l] = SelectedData{Key: r.Key(), Label: r.Label(), Display: r.Display()}
	}
	return out
}
