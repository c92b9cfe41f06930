package cascade

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matthewbaird/addrcascade/internal/address"
)

// ── fake clock ──────────────────────────────────────────────────────────────

type fakeTimer struct {
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeClock fires due AfterFunc callbacks synchronously inside Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// ── manual loop ─────────────────────────────────────────────────────────────

// manualLoop queues posted tasks; the test goroutine runs them explicitly and
// so plays the role of the event loop.
type manualLoop struct {
	tasks chan func()
}

func newManualLoop() *manualLoop {
	return &manualLoop{tasks: make(chan func(), 1024)}
}

func (l *manualLoop) Post(fn func()) bool {
	l.tasks <- fn
	return true
}

// runPending runs the tasks queued right now. Results posted later by
// lookup goroutines are left for next.
func (l *manualLoop) runPending() int {
	n := len(l.tasks)
	for i := 0; i < n; i++ {
		(<-l.tasks)()
	}
	return n
}

// next waits for one task posted from another goroutine and runs it.
func (l *manualLoop) next(t *testing.T) {
	t.Helper()
	select {
	case fn := <-l.tasks:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a posted task")
	}
}

func (l *manualLoop) nextN(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		l.next(t)
	}
}

// ── fake field and output ───────────────────────────────────────────────────

type fakeField struct {
	options     []Option
	optionSets  int
	suggestions []Suggestion
	visible     bool
	hides       int
	text        string
	resets      int
}

func (f *fakeField) SetOptions(opts []Option) {
	f.options = opts
	f.optionSets++
}

func (f *fakeField) ShowSuggestions(items []Suggestion) {
	f.suggestions = items
	f.visible = true
}

func (f *fakeField) HideSuggestions() {
	f.visible = false
	f.hides++
}

func (f *fakeField) SetText(text string) { f.text = text }

func (f *fakeField) Reset() {
	f.text = ""
	f.resets++
}

func (f *fakeField) optionValues() []string {
	var out []string
	for _, o := range f.options {
		if !o.IsSentinel() {
			out = append(out, o.Value)
		}
	}
	return out
}

func (f *fakeField) suggestionKeys() []string {
	var out []string
	for _, s := range f.suggestions {
		out = append(out, s.Key)
	}
	return out
}

type fakeOutput struct {
	value  string
	writes int
}

func (o *fakeOutput) SetValue(v string) {
	o.value = v
	o.writes++
}

// ── sources ─────────────────────────────────────────────────────────────────

type lookupCall struct {
	level    address.Level
	text     string
	upstream string
	at       time.Time
}

var (
	testRegions = []address.Region{
		{Code: "03", Name: "Lombardia"},
		{Code: "12", Name: "Lazio"},
	}
	testProvinces = []address.Province{
		{Code: "015", Name: "Milano", RegionCode: "03", Abbreviation: "MI"},
		{Code: "016", Name: "Bergamo", RegionCode: "03", Abbreviation: "BG"},
		{Code: "058", Name: "Roma", RegionCode: "12", Abbreviation: "RM"},
	}
	testMunicipalities = []address.Municipality{
		{IstatCode: "015146", Name: "Milano", ProvinceCode: "015", Province: "MI"},
		{IstatCode: "016024", Name: "Bergamo", ProvinceCode: "016", Province: "BG"},
		{IstatCode: "058091", Name: "Roma", ProvinceCode: "058", Province: "RM"},
	}
	testStreets = []address.Street{
		{ID: "s1", Name: "Roma", DisplayStreetType: "Via", IstatCode: "015146", DisplayMunicipality: "Milano"},
		{ID: "s2", Name: "Roma", DisplayStreetType: "Via", IstatCode: "058091", DisplayMunicipality: "Roma"},
		{ID: "s3", Name: "Buenos Aires", DisplayStreetType: "Corso", IstatCode: "015146", DisplayMunicipality: "Milano"},
	}
)

// stubSource answers from the fixed dataset above and records every call.
type stubSource struct {
	clock *fakeClock
	calls chan lookupCall
}

func newStubSource(clock *fakeClock) *stubSource {
	return &stubSource{clock: clock, calls: make(chan lookupCall, 64)}
}

func (s *stubSource) Lookup(_ context.Context, level address.Level, text, upstream string) []address.Record {
	s.calls <- lookupCall{level: level, text: text, upstream: upstream, at: s.clock.Now()}

	match := func(name string) bool {
		return strings.Contains(strings.ToLower(name), strings.ToLower(text))
	}
	var out []address.Record
	switch level {
	case address.LevelRegion:
		for _, r := range testRegions {
			out = append(out, r)
		}
	case address.LevelProvince:
		for _, p := range testProvinces {
			if upstream == "" || p.RegionCode == upstream {
				out = append(out, p)
			}
		}
	case address.LevelMunicipality:
		for _, m := range testMunicipalities {
			if (upstream == "" || m.ProvinceCode == upstream) && match(m.Name) {
				out = append(out, m)
			}
		}
	case address.LevelStreet:
		for _, st := range testStreets {
			if (upstream == "" || st.IstatCode == upstream) && match(st.Name) {
				out = append(out, st)
			}
		}
	}
	return out
}

// takeCall returns the next recorded call, failing if none arrives.
func (s *stubSource) takeCall(t *testing.T) lookupCall {
	t.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a lookup")
		return lookupCall{}
	}
}

// drainCalls returns every call recorded so far without waiting.
func (s *stubSource) drainCalls() []lookupCall {
	var out []lookupCall
	for {
		select {
		case c := <-s.calls:
			out = append(out, c)
		default:
			return out
		}
	}
}

// pendingLookup is a blocked call of gatedSource.
type pendingLookup struct {
	text    string
	release chan []address.Record
}

// gatedSource blocks every call until the test releases it.
type gatedSource struct {
	pending chan *pendingLookup
}

func newGatedSource() *gatedSource {
	return &gatedSource{pending: make(chan *pendingLookup, 16)}
}

func (s *gatedSource) Lookup(ctx context.Context, _ address.Level, text, _ string) []address.Record {
	p := &pendingLookup{text: text, release: make(chan []address.Record, 1)}
	s.pending <- p
	select {
	case recs := <-p.release:
		return recs
	case <-ctx.Done():
		return nil
	}
}

func (s *gatedSource) take(t *testing.T) *pendingLookup {
	t.Helper()
	select {
	case p := <-s.pending:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a gated lookup")
		return nil
	}
}

// ── harness ─────────────────────────────────────────────────────────────────

type harness struct {
	ctrl    *Controller
	loop    *manualLoop
	clock   *fakeClock
	fields  map[address.Level]*fakeField
	outputs map[address.Level]*fakeOutput
}

func newHarness(t *testing.T, source Source, clock *fakeClock, modalities map[address.Level]Modality) *harness {
	t.Helper()
	h := &harness{
		loop:    newManualLoop(),
		clock:   clock,
		fields:  map[address.Level]*fakeField{},
		outputs: map[address.Level]*fakeOutput{},
	}
	h.ctrl = NewController(context.Background(), source, h.loop, WithClock(clock))
	t.Cleanup(h.ctrl.Close)

	cfg := Config{Debounce: 300 * time.Millisecond}
	for _, l := range address.Levels() {
		m, ok := modalities[l]
		if !ok {
			continue
		}
		h.fields[l] = &fakeField{}
		h.outputs[l] = &fakeOutput{}
		cfg.Bindings = append(cfg.Bindings, Binding{Level: l, Field: h.fields[l], Output: h.outputs[l], Modality: m})
	}
	if err := h.ctrl.Configure(cfg); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return h
}

// fireInput simulates an input event followed by a quiet debounce window.
// When the input is long enough a query is now in flight; its result is
// applied by the next h.loop.next call.
func (h *harness) fireInput(t *testing.T, level address.Level, text string) {
	t.Helper()
	if err := h.ctrl.Input(level, text); err != nil {
		t.Fatalf("Input: %v", err)
	}
	h.clock.Advance(300 * time.Millisecond)
	h.loop.runPending()
}

var fullForm = map[address.Level]Modality{
	address.LevelRegion:       ChoiceList,
	address.LevelProvince:     ChoiceList,
	address.LevelMunicipality: IncrementalSearch,
	address.LevelStreet:       IncrementalSearch,
}
