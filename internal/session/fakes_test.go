package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/muurk/btscan/internal/discovery"
)

// fakeGate implements AdapterGate and PermissionGate.
type fakeGate struct {
	mu sync.Mutex

	available bool
	enabled   bool
	capable   bool

	enableResult EnableResult
	enableErr    error
	permResult   PermissionResult
	permErr      error

	// hold, when set, makes requests wait for a value or ctx cancellation
	hold chan struct{}
	// grantNoEffect leaves capable false after a granted permission request
	grantNoEffect bool

	enableCalls int
	permCalls   int
}

func readyGate() *fakeGate {
	return &fakeGate{available: true, enabled: true, capable: true}
}

func (g *fakeGate) Available() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.available
}

func (g *fakeGate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

func (g *fakeGate) HasCapability() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.capable
}

func (g *fakeGate) RequestEnable(ctx context.Context) (EnableResult, error) {
	g.mu.Lock()
	g.enableCalls++
	hold := g.hold
	g.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return EnableDeclined, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.enableErr == nil && g.enableResult == EnableGranted {
		g.enabled = true
	}
	return g.enableResult, g.enableErr
}

func (g *fakeGate) RequestCapability(ctx context.Context) (PermissionResult, error) {
	g.mu.Lock()
	g.permCalls++
	hold := g.hold
	g.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return PermissionDenied, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.permErr == nil && g.permResult == PermissionGranted && !g.grantNoEffect {
		g.capable = true
	}
	return g.permResult, g.permErr
}

func (g *fakeGate) calls() (enable, perm int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enableCalls, g.permCalls
}

// fakeSource is a DiscoverySource driven by the test.
type fakeSource struct {
	mu          sync.Mutex
	events      chan discovery.DeviceFoundEvent
	discovering bool
	startErr    error
	starts      int
	cancels     int
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan discovery.DeviceFoundEvent, 64)}
}

func (s *fakeSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	if s.discovering {
		panic("discovery started twice without cancel")
	}
	s.starts++
	s.discovering = true
	return nil
}

func (s *fakeSource) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discovering {
		s.cancels++
	}
	s.discovering = false
	return nil
}

func (s *fakeSource) Discovering() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discovering
}

func (s *fakeSource) Events() <-chan discovery.DeviceFoundEvent {
	return s.events
}

func (s *fakeSource) counts() (starts, cancels int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.cancels
}

// fakeTimer fires armed callbacks when the test advances simulated time.
type fakeTimer struct {
	mu      sync.Mutex
	now     time.Duration
	entries []*fakeTimerEntry
}

type fakeTimerEntry struct {
	d       time.Duration
	at      time.Duration
	fire    func()
	fired   bool
	stopped bool
}

func (f *fakeTimer) Arm(d time.Duration, fire func()) func() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &fakeTimerEntry{d: d, at: f.now + d, fire: fire}
	f.entries = append(f.entries, e)
	return func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if e.fired || e.stopped {
			return false
		}
		e.stopped = true
		return true
	}
}

func (f *fakeTimer) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += d
	var due []func()
	for _, e := range f.entries {
		if !e.fired && !e.stopped && e.at <= f.now {
			e.fired = true
			due = append(due, e.fire)
		}
	}
	f.mu.Unlock()

	for _, fire := range due {
		fire()
	}
}

// fireStale invokes the callback of entry i even if it was canceled,
// as a timer that raced its cancellation would.
func (f *fakeTimer) fireStale(i int) {
	f.mu.Lock()
	fire := f.entries[i].fire
	f.mu.Unlock()
	fire()
}

func (f *fakeTimer) armed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *fakeTimer) stoppedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.stopped {
			n++
		}
	}
	return n
}

// recorder is an Observer that remembers every notification.
type recorder struct {
	mu       sync.Mutex
	states   []State
	lists    [][]discovery.Device
	results  []Result
	failures []*Error
}

func (r *recorder) StateChanged(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) DeviceListChanged(d []discovery.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, d)
}

func (r *recorder) ScanEnded(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recorder) ScanFailed(err *Error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *recorder) ended() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

func (r *recorder) failed() []*Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Error(nil), r.failures...)
}

func (r *recorder) seenStates() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

// harness bundles a running controller with its fakes.
type harness struct {
	ctrl   *Controller
	gate   *fakeGate
	source *fakeSource
	timer  *fakeTimer
	obs    *recorder
}

func newHarness(t *testing.T, gate *fakeGate, dedup discovery.DedupPolicy) *harness {
	t.Helper()
	h := &harness{
		gate:   gate,
		source: newFakeSource(),
		timer:  &fakeTimer{},
		obs:    &recorder{},
	}
	h.ctrl = New(Options{
		Adapter:    gate,
		Permission: gate,
		Source:     h.source,
		Timer:      h.timer,
		Timeout:    10 * time.Second,
		Dedup:      dedup,
		Observer:   h.obs,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.ctrl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Error("controller loop did not exit")
		}
	})
	return h
}

// flush waits until the loop has handled every message posted so far.
func (h *harness) flush(t *testing.T) {
	t.Helper()
	done := make(chan struct{})
	if !h.ctrl.inbox.post(syncMsg{done: done}) {
		t.Fatal("inbox closed")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event loop")
	}
}

// emit pushes sightings through the source and waits until the loop saw them.
func (h *harness) emit(t *testing.T, events ...discovery.DeviceFoundEvent) {
	t.Helper()
	want := h.ctrl.Stats().Received + uint64(len(events))
	for _, ev := range events {
		h.source.events <- ev
	}
	waitFor(t, func() bool { return h.ctrl.Stats().Received >= want })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func ev(addr string, rssi int) discovery.DeviceFoundEvent {
	return discovery.DeviceFoundEvent{Address: addr, RSSI: rssi}
}
