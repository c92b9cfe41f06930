//go:build js && wasm

package dom

import (
	"context"
	"fmt"
	"syscall/js"
	"time"

	"github.com/matthewbaird/addrcascade/internal/address"
	"github.com/matthewbaird/addrcascade/internal/anncsu"
	"github.com/matthewbaird/addrcascade/internal/bindcfg"
	"github.com/matthewbaird/addrcascade/internal/cascade"
	"github.com/matthewbaird/addrcascade/internal/platform/logger"
)

// Form is a cascade controller attached to page elements.
type Form struct {
	ctrl   *cascade.Controller
	loop   *cascade.EventLoop
	cancel context.CancelFunc
	log    *logger.Logger

	listeners []listener
}

type listener struct {
	target js.Value
	event  string
	fn     js.Func
}

// Attach resolves the configured element ids in the current document and
// starts a controller over them. It blocks until the controller is
// configured, so it must not run on the JavaScript event loop goroutine.
func Attach(ctx context.Context, config []byte, source cascade.Source, log *logger.Logger) (*Form, error) {
	if log == nil {
		log = logger.Nop()
	}
	doc := js.Global().Get("document")
	if doc.IsUndefined() || doc.IsNull() {
		return nil, ErrNoDOM
	}
	cfg, err := bindcfg.Parse(config)
	if err != nil {
		return nil, err
	}

	var elems []*element
	cc, err := cfg.Controller(bindcfg.ResolverFunc(func(level address.Level, fc bindcfg.Field) (bindcfg.Bound, error) {
		el, err := byID(doc, fc.Ref)
		if err != nil {
			return bindcfg.Bound{}, err
		}
		m, err := elementModality(level, el.Get("tagName").String(), fc.Modality)
		if err != nil {
			return bindcfg.Bound{}, err
		}
		e := &element{doc: doc, el: el, level: level, isSelect: m == cascade.ChoiceList}
		b := bindcfg.Bound{Field: e, Modality: m}
		if fc.Output != "" {
			out, err := byID(doc, fc.Output)
			if err != nil {
				return bindcfg.Bound{}, err
			}
			b.Output = valueOutput{el: out}
		}
		elems = append(elems, e)
		return b, nil
	}))
	if err != nil {
		return nil, err
	}

	if c, ok := source.(*anncsu.Client); ok {
		source = c.Limited(cfg.MunicipalityLimit, cfg.StreetLimit)
	}

	ctx, cancel := context.WithCancel(ctx)
	f := &Form{
		loop:   cascade.NewEventLoop(256, log),
		cancel: cancel,
		log:    log,
	}
	f.loop.Start(ctx)
	f.ctrl = cascade.NewController(ctx, source, f.loop, cascade.WithLogger(log))

	for i, e := range elems {
		f.listen(e, cc.Bindings[i].Modality)
	}

	var cfgErr error
	if err := f.loop.Do(ctx, func() { cfgErr = f.ctrl.Configure(cc) }); err != nil {
		f.Close()
		return nil, err
	}
	if cfgErr != nil {
		f.Close()
		return nil, cfgErr
	}
	return f, nil
}

// State returns the selected code of every set level.
func (f *Form) State(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	err := f.loop.Do(ctx, func() {
		for l, code := range f.ctrl.Snapshot().Codes() {
			out[l.String()] = code
		}
	})
	return out, err
}

// Close detaches every listener and stops the controller.
func (f *Form) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = f.loop.Do(ctx, func() { f.ctrl.Close() })
	f.loop.Stop()
	f.cancel()
	for _, l := range f.listeners {
		l.target.Call("removeEventListener", l.event, l.fn)
		l.fn.Release()
	}
	f.listeners = nil
}

func (f *Form) on(target js.Value, event string, fn func(js.Value)) {
	jf := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 {
			fn(args[0])
		}
		return nil
	})
	target.Call("addEventListener", event, jf)
	f.listeners = append(f.listeners, listener{target: target, event: event, fn: jf})
}

// post queues a controller event. Errors are logged; they are user input
// that no longer matches the rendered state.
func (f *Form) post(name string, level address.Level, fn func() error) {
	f.loop.Post(func() {
		if err := fn(); err != nil {
			f.log.Debug("dom: event rejected", "event", name, "level", level.String(), "error", err)
		}
	})
}

func (f *Form) listen(e *element, m cascade.Modality) {
	level := e.level
	if m == cascade.ChoiceList {
		f.on(e.el, "change", func(js.Value) {
			value := e.el.Get("value").String()
			f.post("select", level, func() error { return f.ctrl.Select(level, value) })
		})
		return
	}

	e.ensurePanel()
	f.on(e.el, "input", func(js.Value) {
		text := e.el.Get("value").String()
		f.post("input", level, func() error { return f.ctrl.Input(level, text) })
	})
	f.on(e.panel, "click", func(ev js.Value) {
		row := ev.Get("target").Call("closest", "."+RowClass)
		if row.IsNull() {
			return
		}
		key := row.Get("dataset").Get("key").String()
		f.post("pick", level, func() error { return f.ctrl.Pick(level, key) })
	})
	f.on(e.doc, "click", func(ev js.Value) {
		target := ev.Get("target")
		if target.Equal(e.el) || e.panel.Call("contains", target).Bool() {
			return
		}
		f.post("dismiss", level, func() error { return f.ctrl.Dismiss(level) })
	})
}

func byID(doc js.Value, id string) (js.Value, error) {
	el := doc.Call("getElementById", id)
	if el.IsNull() || el.IsUndefined() {
		return js.Value{}, fmt.Errorf("%w: #%s", ErrElementNotFound, id)
	}
	return el, nil
}

// element is a cascade.Field over a SELECT or a text input. Methods run on
// the form's event loop.
type element struct {
	doc      js.Value
	el       js.Value
	panel    js.Value
	level    address.Level
	isSelect bool
}

func (e *element) ensurePanel() {
	if !e.panel.IsUndefined() {
		return
	}
	p := e.doc.Call("createElement", "div")
	p.Set("className", PanelClass)
	p.Get("style").Set("display", "none")
	e.el.Get("parentNode").Call("insertBefore", p, e.el.Get("nextSibling"))
	e.panel = p
}

func (e *element) SetOptions(opts []cascade.Option) {
	if !e.isSelect {
		return
	}
	e.el.Set("innerHTML", "")
	for _, o := range opts {
		opt := e.doc.Call("createElement", "option")
		opt.Set("value", o.Value)
		opt.Set("textContent", o.Label)
		e.el.Call("appendChild", opt)
	}
}

func (e *element) ShowSuggestions(items []cascade.Suggestion) {
	e.ensurePanel()
	e.panel.Set("innerHTML", "")
	for _, it := range items {
		row := e.doc.Call("createElement", "div")
		row.Set("className", RowClass)
		row.Get("dataset").Set("key", it.Key)
		row.Call("appendChild", e.doc.Call("createTextNode", it.Display))
		if it.Detail != "" {
			d := e.doc.Call("createElement", "span")
			d.Set("className", DetailClass)
			d.Set("textContent", it.Detail)
			row.Call("appendChild", d)
		}
		e.panel.Call("appendChild", row)
	}
	e.panel.Get("style").Set("display", "block")
}

func (e *element) HideSuggestions() {
	if e.panel.IsUndefined() {
		return
	}
	e.panel.Get("style").Set("display", "none")
}

// SetText on a SELECT picks the option whose label matches.
func (e *element) SetText(text string) {
	if !e.isSelect {
		e.el.Set("value", text)
		return
	}
	opts := e.el.Get("options")
	labels := make([]string, opts.Length())
	for i := range labels {
		labels[i] = opts.Index(i).Get("textContent").String()
	}
	if i := optionIndexByLabel(labels, text); i >= 0 {
		e.el.Set("selectedIndex", i)
	}
}

func (e *element) Reset() {
	if e.isSelect {
		e.el.Set("selectedIndex", 0)
		return
	}
	e.el.Set("value", "")
}

// valueOutput writes codes into a hidden input.
type valueOutput struct{ el js.Value }

func (o valueOutput) SetValue(v string) { o.el.Set("value", v) }
