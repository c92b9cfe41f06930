package cascade

import (
	"unicode/utf8"

	"github.com/matthewbaird/addrcascade/internal/address"
	"github.com/matthewbaird/addrcascade/internal/platform/logger"
)

// fieldBinding is the controller's view of one bound field.
type fieldBinding struct {
	Binding

	debounce *Debouncer // search fields only
	log      *logger.Logger

	// token identifies the latest query issued for this field. Responses
	// carrying an older token are discarded.
	token       uint64
	options     []address.Record
	suggestions []address.Record
}

// invalidate makes every in-flight query of the field stale.
func (fb *fieldBinding) invalidate() {
	fb.token++
}

func (c *Controller) attach(fb *fieldBinding) {
	if fb.Modality == ChoiceList {
		c.refresh(fb)
	}
}

// refresh rebuilds a choice-list from scratch using the current upstream
// selection.
func (c *Controller) refresh(fb *fieldBinding) {
	fb.options = nil
	fb.Field.SetOptions([]Option{{Label: c.cfg.LoadingLabel}})
	c.issue(fb, "", func(recs []address.Record) {
		c.renderOptions(fb, recs)
	})
}

func (c *Controller) renderOptions(fb *fieldBinding, recs []address.Record) {
	opts := make([]Option, 0, len(recs)+1)
	opts = append(opts, Option{Label: c.cfg.Placeholder})
	kept := make([]address.Record, 0, len(recs))
	for _, r := range recs {
		if r.Key() == "" {
			fb.log.Warn("cascade: dropping option without identifying code", "label", r.Label())
			continue
		}
		kept = append(kept, r)
		opts = append(opts, Option{Value: r.Key(), Label: r.Label(), Record: r})
	}
	fb.options = kept
	fb.Field.SetOptions(opts)
}

// search runs a debounced input. Inputs below the minimum length never
// query; they hide the panel and make any in-flight query stale.
func (c *Controller) search(fb *fieldBinding, text string) {
	if utf8.RuneCountInString(text) < c.cfg.MinQueryLength {
		fb.invalidate()
		fb.suggestions = nil
		fb.Field.HideSuggestions()
		return
	}
	c.issue(fb, text, func(recs []address.Record) {
		c.renderSuggestions(fb, recs)
	})
}

func (c *Controller) renderSuggestions(fb *fieldBinding, recs []address.Record) {
	fb.suggestions = recs
	if len(recs) == 0 {
		fb.Field.HideSuggestions()
		return
	}
	items := make([]Suggestion, len(recs))
	for i, r := range recs {
		items[i] = Suggestion{
			Key:     r.Key(),
			Label:   r.Label(),
			Display: r.Display(),
			Detail:  r.Detail(),
		}
	}
	fb.Field.ShowSuggestions(items)
}

// resetOwn empties a field without refetching. Search fields also drop
// their pending input and in-flight query.
func (c *Controller) resetOwn(fb *fieldBinding) {
	fb.Field.Reset()
	if fb.Modality == IncrementalSearch {
		fb.debounce.Cancel()
		fb.invalidate()
		fb.suggestions = nil
		fb.Field.HideSuggestions()
	}
}

// issue starts a lookup for fb with the upstream filter as of now. apply
// runs on the loop with the result, unless a newer query was issued for the
// field in the meantime or the controller was closed.
func (c *Controller) issue(fb *fieldBinding, text string, apply func([]address.Record)) {
	fb.invalidate()
	token := fb.token
	level := fb.Level
	upstream := c.upstream(level)
	ctx := c.ctx

	fb.log.Debug("cascade: query", "token", token, "text", text, "upstream", upstream)
	go func() {
		recs := c.source.Lookup(ctx, level, text, upstream)
		c.loop.Post(func() {
			if c.closed {
				return
			}
			if token != fb.token {
				fb.log.Debug("cascade: discarding stale response", "token", token, "latest", fb.token)
				return
			}
			apply(recs)
		})
	}()
}
