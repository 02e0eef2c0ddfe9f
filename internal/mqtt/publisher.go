package mqtt

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/logging"
	"github.com/muurk/btscan/internal/report"
	"github.com/muurk/btscan/internal/session"
)

// publishQueue is the number of messages buffered ahead of the broker.
const publishQueue = 32

// Sink is where the Publisher sends messages. *Client implements it.
type Sink interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

type outgoing struct {
	topic    string
	payload  []byte
	retained bool
}

// Publisher is a session.Observer that mirrors session events to MQTT.
//
// Observer callbacks run on the controller's loop and must not block, so
// messages are queued and sent by a worker goroutine. When the queue is full
// new messages are dropped and counted. State and device list messages are
// retained so late subscribers see the current picture; scan and error
// messages are not.
type Publisher struct {
	sink   Sink
	topics Topics
	qos    byte
	now    func() time.Time

	mu     sync.Mutex
	queue  chan outgoing
	closed bool
	done   chan struct{}

	dropped atomic.Uint64
}

var _ session.Observer = (*Publisher)(nil)

// NewPublisher starts a publisher writing to sink.
func NewPublisher(sink Sink, topics Topics, qos byte) *Publisher {
	p := &Publisher{
		sink:   sink,
		topics: topics,
		qos:    qos,
		now:    time.Now,
		queue:  make(chan outgoing, publishQueue),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Publisher) StateChanged(state session.State) {
	p.enqueue(p.topics.State(), report.NewState(state, p.now()), true)
}

func (p *Publisher) DeviceListChanged(devices []discovery.Device) {
	p.enqueue(p.topics.Devices(), report.NewDeviceList(devices, p.now()), true)
}

func (p *Publisher) ScanEnded(result session.Result) {
	p.enqueue(p.topics.Scan(), report.NewScan(result, p.now()), false)
}

func (p *Publisher) ScanFailed(err *session.Error) {
	p.enqueue(p.topics.Error(), report.NewFailure(err, p.now()), false)
}

// Dropped returns how many messages were discarded because the queue was full.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close stops accepting messages and waits until the queued ones are sent.
func (p *Publisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}

func (p *Publisher) enqueue(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		logging.Error("Failed to encode MQTT payload", zap.String("topic", topic), zap.Error(err))
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- outgoing{topic: topic, payload: payload, retained: retained}:
	default:
		p.dropped.Add(1)
		logging.Warn("MQTT queue full, dropping message", zap.String("topic", topic))
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		if err := p.sink.Publish(msg.topic, msg.payload, p.qos, msg.retained); err != nil {
			logging.Warn("MQTT publish failed",
				zap.String("topic", msg.topic),
				zap.Error(err),
			)
		}
	}
}
