package wire

import (
	"sync"

	"github.com/matthewbaird/addrcascade/internal/address"
	"github.com/matthewbaird/addrcascade/internal/cascade"
)

// outbox queues server messages for the connection's writer goroutine.
// Sends never block once the outbox is closed.
type outbox struct {
	ch     chan ServerMessage
	closed chan struct{}
	once   sync.Once
}

func newOutbox(size int) *outbox {
	return &outbox{ch: make(chan ServerMessage, size), closed: make(chan struct{})}
}

func (o *outbox) send(msg ServerMessage) bool {
	select {
	case <-o.closed:
		return false
	default:
	}
	select {
	case o.ch <- msg:
		return true
	case <-o.closed:
		return false
	}
}

func (o *outbox) close() {
	o.once.Do(func() { close(o.closed) })
}

// remoteField is a cascade.Field rendered by the client: every call becomes
// a server message addressed to the field's ref.
type remoteField struct {
	ref FieldRef
	out *outbox
}

func newRemoteField(level address.Level, ref string, out *outbox) *remoteField {
	return &remoteField{ref: FieldRef{Level: level, Ref: ref}, out: out}
}

func (f *remoteField) SetOptions(opts []cascade.Option) {
	data := OptionsData{FieldRef: f.ref, Options: make([]OptionData, len(opts))}
	for i, o := range opts {
		data.Options[i] = OptionData{Value: o.Value, Label: o.Label}
	}
	f.out.send(ServerMessage{Type: TypeOptions, Data: data})
}

func (f *remoteField) ShowSuggestions(items []cascade.Suggestion) {
	f.out.send(ServerMessage{Type: TypeSuggestions, Data: SuggestionsData{FieldRef: f.ref, Items: items}})
}

func (f *remoteField) HideSuggestions() {
	f.out.send(ServerMessage{Type: TypeHide, Data: f.ref})
}

// SetText on a choice-list asks the client to select the option whose
// label matches text.
func (f *remoteField) SetText(text string) {
	f.out.send(ServerMessage{Type: TypeText, Data: TextData{FieldRef: f.ref, Text: text}})
}

func (f *remoteField) Reset() {
	f.out.send(ServerMessage{Type: TypeReset, Data: f.ref})
}

// remoteOutput mirrors a level's selected code into a client element.
type remoteOutput struct {
	level address.Level
	ref   string
	out   *outbox
}

func (o *remoteOutput) SetValue(v string) {
	o.out.send(ServerMessage{Type: TypeOutput, Data: OutputData{Level: o.level, Ref: o.ref, Value: v}})
}
