package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/logging"
)

// DefaultTimeout bounds a scan when Options.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// Options configures a Controller.
type Options struct {
	Adapter    AdapterGate
	Permission PermissionGate
	Source     DiscoverySource

	// Timer arms the scan timeout. Defaults to SystemTimer.
	Timer Timer
	// Timeout is the scan duration. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Dedup selects how repeated sightings are handled.
	Dedup discovery.DedupPolicy
	// Observer receives notifications. Use Observers to attach several.
	Observer Observer
}

// Controller runs one discovery session. All state is owned by the event
// loop started with Run; the public methods only enqueue messages or read a
// published copy, so they are safe from any goroutine.
type Controller struct {
	adapter  AdapterGate
	perm     PermissionGate
	source   DiscoverySource
	timer    Timer
	timeout  time.Duration
	observer Observer
	now      func() time.Time

	inbox *inbox
	done  chan struct{}

	// lifeMu makes the closed-or-running decision in Run and Shutdown atomic.
	lifeMu  sync.Mutex
	running bool

	// loop-owned
	state            State
	registry         *discovery.Registry
	generation       uint64 // current scan; stale timeouts carry an older one
	attempt          uint64 // current gate request; stale answers carry an older one
	cancelTimer      func() bool
	scanStarted      time.Time
	radioUnavailable bool
	reqCtx           context.Context
	stats            Stats

	// published copies for State, Snapshot and Stats
	viewMu      sync.RWMutex
	viewState   State
	viewDevices []discovery.Device
	viewStats   Stats
}

// New creates a controller in the Idle state. Call Run to start its loop.
func New(opts Options) *Controller {
	c := &Controller{
		adapter:  opts.Adapter,
		perm:     opts.Permission,
		source:   opts.Source,
		timer:    opts.Timer,
		timeout:  opts.Timeout,
		observer: opts.Observer,
		now:      time.Now,
		inbox:    newInbox(),
		done:     make(chan struct{}),
		state:    Idle,
		registry: discovery.NewRegistry(opts.Dedup),
		reqCtx:   context.Background(),
	}
	if c.timer == nil {
		c.timer = SystemTimer{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.observer == nil {
		c.observer = NopObserver{}
	}
	c.registry.OnChange(func(devices []discovery.Device) {
		c.viewMu.Lock()
		c.viewDevices = devices
		c.viewMu.Unlock()
		c.observer.DeviceListChanged(devices)
	})
	return c
}

// Start requests a scan. It is ignored while scanning or awaiting an answer.
func (c *Controller) Start() {
	c.inbox.post(startMsg{})
}

// Stop ends the current scan. It is a no-op when not scanning.
func (c *Controller) Stop() {
	c.inbox.post(stopMsg{})
}

// Toggle starts a scan when none is running and stops it otherwise.
func (c *Controller) Toggle() {
	c.inbox.post(toggleMsg{})
}

// State returns the most recently published state
func (c *Controller) State() State {
	c.viewMu.RLock()
	defer c.viewMu.RUnlock()
	return c.viewState
}

// Snapshot returns the discovered devices in discovery order
func (c *Controller) Snapshot() []discovery.Device {
	c.viewMu.RLock()
	defer c.viewMu.RUnlock()
	out := make([]discovery.Device, len(c.viewDevices))
	copy(out, c.viewDevices)
	return out
}

// Stats returns the diagnostic counters
func (c *Controller) Stats() Stats {
	c.viewMu.RLock()
	defer c.viewMu.RUnlock()
	return c.viewStats
}

// Done is closed when the event loop has exited
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Shutdown stops any scan, abandons pending gate requests and ends the loop.
// It waits for the loop to exit and must not be called from an Observer.
func (c *Controller) Shutdown() {
	c.lifeMu.Lock()
	if !c.running {
		c.inbox.close()
		c.lifeMu.Unlock()
		return
	}
	c.lifeMu.Unlock()

	c.inbox.post(shutdownMsg{})
	<-c.done
}

// Run processes messages until ctx is canceled or Shutdown is called.
// Both paths tear the session down before returning.
func (c *Controller) Run(ctx context.Context) error {
	c.lifeMu.Lock()
	switch {
	case c.running:
		c.lifeMu.Unlock()
		return ErrAlreadyRunning
	case c.inbox.isClosed():
		c.lifeMu.Unlock()
		return ErrClosed
	}
	c.running = true
	c.lifeMu.Unlock()
	defer close(c.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.reqCtx = ctx

	go c.pump(ctx)

	for {
		select {
		case <-ctx.Done():
			c.teardown()
			return nil
		case <-c.inbox.ready:
			for _, m := range c.inbox.drain() {
				if _, ok := m.(shutdownMsg); ok {
					c.teardown()
					return nil
				}
				c.handle(m)
			}
		}
	}
}

// pump forwards source events into the inbox until the loop exits.
func (c *Controller) pump(ctx context.Context) {
	events := c.source.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !c.inbox.post(deviceFoundMsg{event: ev}) {
				return
			}
		}
	}
}

func (c *Controller) handle(m message) {
	switch m := m.(type) {
	case startMsg:
		c.handleStart()
	case stopMsg:
		c.handleStop()
	case toggleMsg:
		if c.state == Scanning {
			c.handleStop()
		} else {
			c.handleStart()
		}
	case enableAnswerMsg:
		c.handleEnableAnswer(m)
	case permissionAnswerMsg:
		c.handlePermissionAnswer(m)
	case deviceFoundMsg:
		c.handleDeviceFound(m.event)
	case timeoutMsg:
		c.handleTimeout(m.generation)
	case syncMsg:
		close(m.done)
	}
}

func (c *Controller) handleStart() {
	if c.state == Scanning || c.state.Awaiting() {
		logging.Debug("Start ignored", zap.String("state", c.state.String()))
		return
	}
	c.evaluate()
}

// evaluate walks the capability gates in order and either begins a scan,
// parks in an awaiting state, or fails the attempt.
func (c *Controller) evaluate() {
	if c.radioUnavailable || !c.adapter.Available() {
		c.radioUnavailable = true
		c.fail(newError(KindRadioUnavailable, "no discovery radio on this host", nil), false)
		return
	}

	if !c.adapter.Enabled() {
		c.attempt++
		attempt := c.attempt
		c.setState(AwaitingAdapterEnable)
		go func() {
			res, err := c.adapter.RequestEnable(c.reqCtx)
			c.inbox.post(enableAnswerMsg{attempt: attempt, result: res, err: err})
		}()
		return
	}

	if !c.perm.HasCapability() {
		c.attempt++
		attempt := c.attempt
		c.setState(AwaitingPermission)
		go func() {
			res, err := c.perm.RequestCapability(c.reqCtx)
			c.inbox.post(permissionAnswerMsg{attempt: attempt, result: res, err: err})
		}()
		return
	}

	c.begin()
}

func (c *Controller) handleEnableAnswer(m enableAnswerMsg) {
	if m.attempt != c.attempt || c.state != AwaitingAdapterEnable {
		logging.LogDiscarded("stale enable answer", "")
		return
	}
	switch {
	case m.err != nil:
		c.fail(newError(KindAdapterDisabled, "enable request failed", m.err), true)
	case m.result == EnableGranted:
		if !c.adapter.Enabled() {
			c.fail(newError(KindAdapterDisabled, "adapter still disabled after enable was granted", nil), true)
			return
		}
		c.evaluate()
	case m.result == EnableUnsupported:
		c.fail(newError(KindAdapterDisabled, "adapter cannot be enabled from here", nil), true)
	default:
		c.fail(newError(KindAdapterDisabled, "enable request declined", nil), true)
	}
}

func (c *Controller) handlePermissionAnswer(m permissionAnswerMsg) {
	if m.attempt != c.attempt || c.state != AwaitingPermission {
		logging.LogDiscarded("stale permission answer", "")
		return
	}
	switch {
	case m.err != nil:
		c.fail(newError(KindPermissionDenied, "permission request failed", m.err), true)
	case m.result == PermissionGranted:
		if !c.perm.HasCapability() {
			c.fail(newError(KindPermissionDenied, "permission still missing after it was granted", nil), true)
			return
		}
		c.evaluate()
	default:
		c.fail(newError(KindPermissionDenied, "scan permission denied", nil), true)
	}
}

// begin cancels any discovery left running, clears the registry, starts the
// source and arms the timeout.
func (c *Controller) begin() {
	if c.source.Discovering() {
		if err := c.source.Cancel(); err != nil {
			logging.Warn("Failed to cancel running discovery", zap.Error(err))
		}
	}
	c.registry.Clear()

	if err := c.source.Start(); err != nil {
		c.fail(newError(KindDiscoveryFailed, "discovery source did not start", err), true)
		return
	}

	c.generation++
	gen := c.generation
	c.scanStarted = c.now()
	c.stats.Scans++
	c.setState(Scanning)
	c.cancelTimer = c.timer.Arm(c.timeout, func() {
		c.inbox.post(timeoutMsg{generation: gen})
	})
	logging.LogScanStarted(gen, c.timeout)
}

func (c *Controller) handleStop() {
	if c.state != Scanning {
		return
	}
	c.end(CauseManual)
}

func (c *Controller) handleTimeout(gen uint64) {
	if gen != c.generation || c.state != Scanning {
		logging.LogDiscarded("stale timeout", "")
		return
	}
	// already fired, nothing left to cancel
	c.cancelTimer = nil
	c.end(CauseTimeout)
}

// end stops an active scan and reports its result exactly once.
func (c *Controller) end(cause Cause) {
	if c.cancelTimer != nil {
		c.cancelTimer()
		c.cancelTimer = nil
	}
	if err := c.source.Cancel(); err != nil {
		logging.Warn("Failed to cancel discovery", zap.Error(err))
	}

	c.setState(Stopped)

	devices := c.registry.Snapshot()
	status := ReadyWithResults
	if len(devices) == 0 {
		status = NoDevicesFound
	}
	result := Result{
		Status:     status,
		Cause:      cause,
		Devices:    devices,
		Generation: c.generation,
		Elapsed:    c.now().Sub(c.scanStarted),
	}
	logging.LogScanEnded(status.String(), cause.String(), len(devices), result.Elapsed)
	c.observer.ScanEnded(result)
}

func (c *Controller) handleDeviceFound(ev discovery.DeviceFoundEvent) {
	c.stats.Received++
	defer c.publishStats()

	if c.state != Scanning {
		c.stats.Discarded++
		logging.LogDiscarded("not scanning", ev.Address)
		return
	}
	if ev.Address == "" {
		c.stats.Discarded++
		logging.LogDiscarded("empty address", "")
		return
	}

	before := c.registry.Len()
	d, _ := c.registry.Accept(ev)
	if c.registry.Len() > before {
		c.stats.Accepted++
		logging.LogDeviceAccepted(d.Address, d.Name, d.RSSI, d.Order)
		return
	}
	c.stats.Duplicates++
}

// fail reports a failed attempt. When toStopped is false the state is left
// as it is, which keeps Idle for a host without a radio.
func (c *Controller) fail(err *Error, toStopped bool) {
	if toStopped {
		c.setState(Stopped)
	}
	logging.LogScanFailed(err.Kind.String(), err)
	c.observer.ScanFailed(err)
}

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}
	prev := c.state
	c.state = s

	c.viewMu.Lock()
	c.viewState = s
	c.viewMu.Unlock()

	logging.LogStateChange(prev.String(), s.String())
	c.observer.StateChanged(s)
}

func (c *Controller) publishStats() {
	c.viewMu.Lock()
	c.viewStats = c.stats
	c.viewMu.Unlock()
}

// teardown runs on the loop goroutine as it exits.
func (c *Controller) teardown() {
	if c.state == Scanning {
		c.end(CauseShutdown)
	} else if c.source.Discovering() {
		if err := c.source.Cancel(); err != nil {
			logging.Warn("Failed to cancel discovery on shutdown", zap.Error(err))
		}
	}
	c.inbox.close()
	c.publishStats()
	logging.Debug("Session controller stopped")
}
