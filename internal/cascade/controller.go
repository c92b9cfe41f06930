// Package cascade keeps four cascading address fields (region, province,
// municipality, street) consistent with each other and with the lookup
// service.
//
// A Controller owns the selection state of one attached form. It is driven
// entirely from an event loop: UI events, debounce expiries and query
// completions all run there, one at a time, so the controller needs no
// locking. Lookups run on their own goroutines and post their result back;
// a per-field token makes sure only the latest query of a field is applied.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matthewbaird/addrcascade/internal/address"
	"github.com/matthewbaird/addrcascade/internal/platform/logger"
)

var (
	ErrInvalidConfig     = errors.New("cascade: invalid binding configuration")
	ErrAlreadyConfigured = errors.New("cascade: controller already configured")
	ErrUnbound           = errors.New("cascade: level has no binding")
	ErrModality          = errors.New("cascade: event does not match field modality")
	ErrUnknownOption     = errors.New("cascade: unknown option")
	ErrClosed            = errors.New("cascade: controller closed")
)

const (
	// DefaultMinQueryLength is the shortest search input that issues a query.
	DefaultMinQueryLength = 2
	// DefaultPlaceholder labels the sentinel "unselected" option.
	DefaultPlaceholder = "-- Seleziona --"
	// DefaultLoadingLabel labels the single option shown while loading.
	DefaultLoadingLabel = "..."
)

// Config is the construction-time binding configuration.
type Config struct {
	Bindings []Binding

	Debounce       time.Duration // DefaultDebounce when zero
	MinQueryLength int           // DefaultMinQueryLength when zero
	Placeholder    string        // DefaultPlaceholder when empty
	LoadingLabel   string        // DefaultLoadingLabel when empty
}

func (cfg *Config) withDefaults() Config {
	out := *cfg
	if out.Debounce == 0 {
		out.Debounce = DefaultDebounce
	}
	if out.MinQueryLength == 0 {
		out.MinQueryLength = DefaultMinQueryLength
	}
	if out.Placeholder == "" {
		out.Placeholder = DefaultPlaceholder
	}
	if out.LoadingLabel == "" {
		out.LoadingLabel = DefaultLoadingLabel
	}
	return out
}

func (cfg *Config) validate() error {
	if cfg.Debounce < 0 {
		return fmt.Errorf("%w: negative debounce %s", ErrInvalidConfig, cfg.Debounce)
	}
	if cfg.MinQueryLength < 0 {
		return fmt.Errorf("%w: negative minimum query length", ErrInvalidConfig)
	}
	var seen [address.LevelCount]bool
	for i, b := range cfg.Bindings {
		if !b.Level.Valid() {
			return fmt.Errorf("%w: binding %d: unknown level %d", ErrInvalidConfig, i, int(b.Level))
		}
		if b.Field == nil {
			return fmt.Errorf("%w: %s: no field", ErrInvalidConfig, b.Level)
		}
		if b.Modality != ChoiceList && b.Modality != IncrementalSearch {
			return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, b.Level, b.Modality)
		}
		if seen[b.Level] {
			return fmt.Errorf("%w: %s bound twice", ErrInvalidConfig, b.Level)
		}
		seen[b.Level] = true
	}
	return nil
}

// Controller orchestrates the bound fields of one form.
type Controller struct {
	source Source
	loop   Poster
	clock  Clock
	log    *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	cfg        Config
	state      *State
	fields     [address.LevelCount]*fieldBinding
	configured bool
	closed     bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithClock replaces the wall clock used for debouncing.
func WithClock(clock Clock) ControllerOption {
	return func(c *Controller) { c.clock = clock }
}

// WithLogger sets the controller's logger.
func WithLogger(log *logger.Logger) ControllerOption {
	return func(c *Controller) { c.log = log }
}

// NewController creates an unconfigured controller. Lookups are bound to
// ctx; cancelling it (or calling Close) abandons in-flight queries.
func NewController(ctx context.Context, source Source, loop Poster, opts ...ControllerOption) *Controller {
	c := &Controller{
		source: source,
		loop:   loop,
		clock:  SystemClock,
		log:    logger.Nop(),
		state:  NewState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	return c
}

// Configure attaches the bindings. Choice-lists fetch their options
// immediately; levels without a binding stay inert. Nothing is attached
// when the configuration is invalid. Must run on the event loop.
func (c *Controller) Configure(cfg Config) error {
	if c.closed {
		return ErrClosed
	}
	if c.configured {
		return ErrAlreadyConfigured
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	c.cfg = cfg.withDefaults()
	c.configured = true

	for _, b := range c.cfg.Bindings {
		fb := &fieldBinding{
			Binding: b,
			log:     c.log.WithLevel(b.Level.String()),
		}
		if b.Modality == IncrementalSearch {
			fb.debounce = NewDebouncer(c.cfg.Debounce, c.clock, c.loop)
		}
		c.fields[b.Level] = fb
	}
	for _, fb := range c.fields {
		if fb != nil {
			c.attach(fb)
		}
	}
	return nil
}

// Select handles a choice-list selection. The sentinel value "" is no
// selection and is ignored.
func (c *Controller) Select(level address.Level, value string) error {
	fb, err := c.binding(level, ChoiceList)
	if err != nil {
		return err
	}
	if value == "" {
		return nil
	}
	rec := findRecord(fb.options, value)
	if rec == nil {
		fb.log.Warn("cascade: selected option not in current list", "value", value)
		return fmt.Errorf("%w: %s %q", ErrUnknownOption, level, value)
	}
	return c.selectRecord(fb, rec)
}

// Input handles a raw text change on a search field. The query runs once
// the input has been quiet for the debounce window.
func (c *Controller) Input(level address.Level, text string) error {
	fb, err := c.binding(level, IncrementalSearch)
	if err != nil {
		return err
	}
	fb.debounce.Trigger(func() { c.search(fb, text) })
	return nil
}

// Pick handles a click on a suggestion row.
func (c *Controller) Pick(level address.Level, key string) error {
	fb, err := c.binding(level, IncrementalSearch)
	if err != nil {
		return err
	}
	rec := findRecord(fb.suggestions, key)
	if rec == nil {
		fb.log.Warn("cascade: picked suggestion not in current panel", "key", key)
		return fmt.Errorf("%w: %s %q", ErrUnknownOption, level, key)
	}
	fb.debounce.Cancel()
	fb.invalidate()
	fb.suggestions = nil
	fb.Field.SetText(rec.Display())
	fb.Field.HideSuggestions()
	return c.selectRecord(fb, rec)
}

// Dismiss hides a search field's suggestion panel (a click outside it).
// Selection state is unchanged.
func (c *Controller) Dismiss(level address.Level) error {
	fb, err := c.binding(level, IncrementalSearch)
	if err != nil {
		return err
	}
	fb.Field.HideSuggestions()
	return nil
}

// Clear unsets level and everything below it, resetting the affected
// fields and outputs. Unbound levels may be cleared too.
func (c *Controller) Clear(level address.Level) error {
	if c.closed {
		return ErrClosed
	}
	cleared, err := c.state.Clear(level)
	if err != nil {
		return err
	}
	if fb := c.fields[level]; fb != nil {
		if fb.Output != nil {
			fb.Output.SetValue("")
		}
		c.resetOwn(fb)
	}
	c.cascade(cleared)
	return nil
}

// Selected returns the record currently selected at level, or nil.
func (c *Controller) Selected(level address.Level) address.Record {
	return c.state.Get(level)
}

// Snapshot copies the current selection.
func (c *Controller) Snapshot() Selection {
	return c.state.Snapshot()
}

// Bound reports whether level has a binding.
func (c *Controller) Bound(level address.Level) bool {
	return level.Valid() && c.fields[level] != nil
}

// Close stops every debouncer and abandons in-flight queries. Later events
// return ErrClosed.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	for _, fb := range c.fields {
		if fb != nil && fb.debounce != nil {
			fb.debounce.Cancel()
		}
	}
}

func (c *Controller) binding(level address.Level, want Modality) (*fieldBinding, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, int(level))
	}
	fb := c.fields[level]
	if fb == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnbound, level)
	}
	if fb.Modality != want {
		return nil, fmt.Errorf("%w: %s is a %s field", ErrModality, level, fb.Modality)
	}
	return fb, nil
}

// selectRecord applies a user selection: update state, mirror the code,
// reset everything downstream and fill unselected ancestors from records
// that carry their display text.
func (c *Controller) selectRecord(fb *fieldBinding, rec address.Record) error {
	cleared, err := c.state.Set(fb.Level, rec)
	if err != nil {
		return err
	}
	fb.log.Debug("cascade: selected", "key", rec.Key(), "cleared", len(cleared))
	if fb.Output != nil {
		fb.Output.SetValue(rec.Key())
	}
	c.cascade(cleared)

	if ad, ok := rec.(address.AncestorDisplayer); ok {
		c.fillAncestors(fb.Level, ad)
	}
	return nil
}

// fillAncestors writes ancestor display text into bound ancestor fields that
// have no selection. The hierarchy state is not touched.
func (c *Controller) fillAncestors(level address.Level, ad address.AncestorDisplayer) {
	for up := address.LevelRegion; up < level; up++ {
		fb := c.fields[up]
		if fb == nil || c.state.Get(up) != nil {
			continue
		}
		if text := ad.AncestorDisplay(up); text != "" {
			fb.Field.SetText(text)
		}
	}
}

// cascade resets the outputs and fields of levels cleared by a state change.
// Choice-lists are refetched against the current upstream selection.
func (c *Controller) cascade(cleared []address.Level) {
	for _, l := range cleared {
		fb := c.fields[l]
		if fb == nil {
			continue
		}
		if fb.Output != nil {
			fb.Output.SetValue("")
		}
		if fb.Modality == ChoiceList {
			c.refresh(fb)
		} else {
			c.resetOwn(fb)
		}
	}
}

// upstream returns the filter for l's query: the code selected one level up.
// It is read when the query is issued, never cached.
func (c *Controller) upstream(l address.Level) string {
	up, ok := l.Upstream()
	if !ok {
		return ""
	}
	return c.state.Code(up)
}

func findRecord(recs []address.Record, key string) address.Record {
	for _, r := range recs {
		if r.Key() == key {
			return r
		}
	}
	return nil
}
