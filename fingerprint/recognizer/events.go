package recognizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-vox/logging"
)

// Kind identifies what happened in the controller
type Kind int

const (
	// TrainingProgress fires once per accumulated training sample
	TrainingProgress Kind = iota

	// TrainingStarted fires when asynchronous training is handed to a worker
	TrainingStarted

	// ReadyToPredict fires once, when the classifier has been trained
	ReadyToPredict

	// Prediction fires once per serviced listen request
	Prediction

	// TrainingFailed fires when the classifier rejected the training buffer
	TrainingFailed
)

func (k Kind) String() string {
	switch k {
	case TrainingProgress:
		return "training_progress"
	case TrainingStarted:
		return "training_started"
	case ReadyToPredict:
		return "ready_to_predict"
	case Prediction:
		return "prediction"
	case TrainingFailed:
		return "training_failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one controller outcome. Only the fields relevant to Kind are set.
type Event struct {
	Kind Kind

	// Label is the training label for progress events and the predicted label for predictions
	Label string

	// Count is the training count after the sample was added, or the buffer size handed to training
	Count int

	CertaintyPercent float64
	Confident        bool

	Err  error
	Time time.Time
}

// EventSink receives controller events. Emit is called from the frame
// producer and must not block.
type EventSink interface {
	Emit(event Event)
}

// SinkFunc adapts a function to EventSink
type SinkFunc func(event Event)

// Emit calls f(event)
func (f SinkFunc) Emit(event Event) {
	f(event)
}

// Handler is the presentation side of the event surface
type Handler interface {
	OnTrainingProgress(label string, count int)
	OnTrainingStarted(samples int)
	OnReadyToPredict()
	OnPrediction(label string, certaintyPercent float64, confident bool)
	OnTrainingFailed(err error)
}

// Deliver routes one event to the matching Handler method
func Deliver(h Handler, event Event) {
	switch event.Kind {
	case TrainingProgress:
		h.OnTrainingProgress(event.Label, event.Count)
	case TrainingStarted:
		h.OnTrainingStarted(event.Count)
	case ReadyToPredict:
		h.OnReadyToPredict()
	case Prediction:
		h.OnPrediction(event.Label, event.CertaintyPercent, event.Confident)
	case TrainingFailed:
		h.OnTrainingFailed(event.Err)
	}
}

// Dispatcher is an EventSink that queues events without bound and hands
// them to a Handler on the goroutine running Run, in emission order.
type Dispatcher struct {
	handler Handler
	logger  logging.Logger

	mu     sync.Mutex
	queue  []Event
	closed bool

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewDispatcher creates a dispatcher delivering to handler
func NewDispatcher(handler Handler) *Dispatcher {
	return &Dispatcher{
		handler: handler,
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		logger: logging.WithFields(logging.Fields{
			"component": "event_dispatcher",
		}),
	}
}

// Emit enqueues event. Events emitted after Close are discarded.
func (d *Dispatcher) Emit(event Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Debug("Discarding event after close", logging.Fields{"kind": event.Kind.String()})
		return
	}
	d.queue = append(d.queue, event)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued, undelivered events
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Run delivers events until ctx is cancelled or Close is called. After
// Close, everything queued before it is delivered and Run returns nil.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		d.drain()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.done:
			d.drain()
			return nil
		case <-d.notify:
		}
	}
}

// Close stops accepting events and lets Run finish the backlog
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.done)
	})
}

func (d *Dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		batch := d.queue
		d.queue = nil
		d.mu.Unlock()

		for _, event := range batch {
			Deliver(d.handler, event)
		}
	}
}
