package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/logging"
	"github.com/muurk/btscan/internal/session"
)

// Messages delivered to the Model
type (
	StateMsg   struct{ State session.State }
	DevicesMsg struct{ Devices []discovery.Device }
	EndedMsg   struct{ Result session.Result }
	FailedMsg  struct{ Err *session.Error }

	// AskMsg carries a yes/no question; the answer goes to Reply.
	AskMsg struct {
		Question string
		Reply    chan<- bool
	}
)

// sender is satisfied by *tea.Program.
type sender interface {
	Send(msg tea.Msg)
}

// Bridge forwards session events and consent questions into a running
// program. It implements session.Observer and radio.Asker. Messages are
// queued in order and delivered by one goroutine, so observer callbacks
// never wait on the screen. Nothing is dropped: a device list still waiting
// for delivery is replaced by the newer one.
type Bridge struct {
	mu      sync.Mutex
	pending []tea.Msg
	closed  bool
	ready   chan struct{}
	done    chan struct{}
}

var _ session.Observer = (*Bridge)(nil)

// NewBridge creates a bridge. Messages posted before Attach are held.
func NewBridge() *Bridge {
	return &Bridge{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Attach starts delivering queued messages to p.
func (b *Bridge) Attach(p sender) {
	go func() {
		defer close(b.done)
		for {
			b.mu.Lock()
			msgs := b.pending
			b.pending = nil
			closed := b.closed
			b.mu.Unlock()

			for _, msg := range msgs {
				p.Send(msg)
			}
			if closed {
				return
			}
			<-b.ready
		}
	}()
}

// Close stops accepting messages. Queued messages are still delivered.
// Call it after the program has exited.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wake()
}

func (b *Bridge) post(msg tea.Msg) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	if _, ok := msg.(DevicesMsg); ok {
		b.dropPendingDevices()
	}
	b.pending = append(b.pending, msg)
	b.mu.Unlock()

	b.wake()
	return true
}

// dropPendingDevices removes an undelivered device list. Callers hold mu.
func (b *Bridge) dropPendingDevices() {
	for i, m := range b.pending {
		if _, ok := m.(DevicesMsg); ok {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			logging.Debug("Coalesced TUI device list", zap.Int("pending", len(b.pending)))
			return
		}
	}
}

func (b *Bridge) wake() {
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

func (b *Bridge) StateChanged(state session.State) { b.post(StateMsg{state}) }

func (b *Bridge) DeviceListChanged(devices []discovery.Device) { b.post(DevicesMsg{devices}) }

func (b *Bridge) ScanEnded(result session.Result) { b.post(EndedMsg{result}) }

func (b *Bridge) ScanFailed(err *session.Error) { b.post(FailedMsg{err}) }

// Ask shows question on the screen and waits for y or n.
func (b *Bridge) Ask(ctx context.Context, question string) (bool, error) {
	reply := make(chan bool, 1)
	if !b.post(AskMsg{Question: question, Reply: reply}) {
		return false, context.Canceled
	}
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case ok := <-reply:
		return ok, nil
	}
}
