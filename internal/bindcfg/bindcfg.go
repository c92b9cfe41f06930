// Package bindcfg parses the JSON binding configuration of a form and turns
// it into a cascade.Config. Documents are validated against an embedded CUE
// schema before they are decoded.
package bindcfg

import (
	_ "embed"
	"errors"
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/matthewbaird/addrcascade/internal/address"
	"github.com/matthewbaird/addrcascade/internal/cascade"
)

//go:embed schema.cue
var schemaSource string

var (
	// ErrInvalid wraps every schema violation.
	ErrInvalid = errors.New("bindcfg: invalid configuration")
	// ErrNoFields is returned when no level is enabled.
	ErrNoFields = errors.New("bindcfg: no enabled fields")
)

// Field configures one level.
type Field struct {
	Ref      string `json:"ref"`
	Output   string `json:"output,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`
	Modality string `json:"modality,omitempty"`
}

// IsEnabled reports whether the field takes part in the cascade. Fields are
// enabled unless explicitly disabled.
func (f Field) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

// Config is a parsed binding configuration.
type Config struct {
	Fields            map[address.Level]Field
	DebounceMS        *int
	MinChars          int
	MunicipalityLimit int
	StreetLimit       int
}

// document mirrors the JSON layout. Field keys are validated by the schema.
type document struct {
	Fields            map[string]Field `json:"fields"`
	DebounceMS        *int             `json:"debounce_ms,omitempty"`
	MinChars          int              `json:"min_chars,omitempty"`
	MunicipalityLimit int              `json:"municipality_limit,omitempty"`
	StreetLimit       int              `json:"street_limit,omitempty"`
}

// Schema returns the CUE source used for validation.
func Schema() string { return schemaSource }

// Parse validates data against the schema and decodes it.
func Parse(data []byte) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("bindcfg: compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	doc := ctx.CompileBytes(data, cue.Filename("config.json"))
	if err := doc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, cueerrors.Details(err, nil))
	}
	v := def.Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, cueerrors.Details(err, nil))
	}

	var raw document
	if err := v.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalid, err)
	}

	cfg := &Config{
		Fields:            make(map[address.Level]Field, len(raw.Fields)),
		DebounceMS:        raw.DebounceMS,
		MinChars:          raw.MinChars,
		MunicipalityLimit: raw.MunicipalityLimit,
		StreetLimit:       raw.StreetLimit,
	}
	for name, f := range raw.Fields {
		level, err := address.ParseLevel(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		cfg.Fields[level] = f
	}
	if len(cfg.EnabledLevels()) == 0 {
		return nil, ErrNoFields
	}
	return cfg, nil
}

// EnabledLevels lists the enabled levels in hierarchy order.
func (c *Config) EnabledLevels() []address.Level {
	var out []address.Level
	for _, l := range address.Levels() {
		if f, ok := c.Fields[l]; ok && f.IsEnabled() {
			out = append(out, l)
		}
	}
	return out
}

// Debounce returns the configured debounce window, or zero for the default.
// An explicit 0 becomes one nanosecond so queries fire immediately.
func (c *Config) Debounce() time.Duration {
	if c.DebounceMS == nil {
		return 0
	}
	if *c.DebounceMS == 0 {
		return time.Nanosecond
	}
	return time.Duration(*c.DebounceMS) * time.Millisecond
}

// Bound is what a Resolver produces for one configured field.
type Bound struct {
	Field  cascade.Field
	Output cascade.Output // may be nil
	// Modality is the modality implied by the element itself, or zero.
	Modality cascade.Modality
}

// Resolver turns the references of a configured field into live UI
// handles.
type Resolver interface {
	Resolve(level address.Level, f Field) (Bound, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(level address.Level, f Field) (Bound, error)

// Resolve calls fn.
func (fn ResolverFunc) Resolve(level address.Level, f Field) (Bound, error) {
	return fn(level, f)
}

// Controller builds the cascade configuration, resolving every enabled
// field. The modality is, in order: the configured one, the one implied by
// the element, the level's default.
func (c *Config) Controller(r Resolver) (cascade.Config, error) {
	out := cascade.Config{
		Debounce:       c.Debounce(),
		MinQueryLength: c.MinChars,
	}
	for _, l := range c.EnabledLevels() {
		f := c.Fields[l]
		b, err := r.Resolve(l, f)
		if err != nil {
			return cascade.Config{}, fmt.Errorf("bindcfg: resolve %s %q: %w", l, f.Ref, err)
		}
		m, err := modalityFor(l, f, b)
		if err != nil {
			return cascade.Config{}, fmt.Errorf("%w: %s: %v", ErrInvalid, l, err)
		}
		out.Bindings = append(out.Bindings, cascade.Binding{
			Level:    l,
			Field:    b.Field,
			Output:   b.Output,
			Modality: m,
		})
	}
	return out, nil
}

func modalityFor(l address.Level, f Field, b Bound) (cascade.Modality, error) {
	if f.Modality != "" {
		return cascade.ParseModality(f.Modality)
	}
	if b.Modality != 0 {
		return b.Modality, nil
	}
	return cascade.DefaultModality(l), nil
}
