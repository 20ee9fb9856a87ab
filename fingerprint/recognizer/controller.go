// Package recognizer drives the train-then-predict workflow: per frame it
// decides whether a feature vector becomes a training sample, triggers
// classifier training, or answers a pending listen request.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-vox/fingerprint/classifier"
	"github.com/RyanBlaney/sonido-vox/logging"
	"github.com/RyanBlaney/sonido-vox/observe"
)

// ErrTrainingPanic wraps a panic raised by the classifier during Train
var ErrTrainingPanic = errors.New("classifier panicked during training")

// Phase is the controller's position in the workflow
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseTraining
	PhaseReadyToTrain
	PhaseTrained
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseTraining:
		return "training"
	case PhaseReadyToTrain:
		return "ready_to_train"
	case PhaseTrained:
		return "trained"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ControllerConfig holds the workflow tunables
type ControllerConfig struct {
	// RequiredCount is the number of labelled frames collected before training
	RequiredCount int

	// ProbabilityThresholdPercent is the certainty a prediction must exceed to be confident
	ProbabilityThresholdPercent float64

	// AsyncTraining trains on a worker goroutine instead of the calling one
	AsyncTraining bool
}

// DefaultControllerConfig returns 500 samples, a 55% threshold and synchronous training
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		RequiredCount:               500,
		ProbabilityThresholdPercent: 55.0,
	}
}

// State is a point-in-time copy of the controller state
type State struct {
	Phase     Phase
	Label     string
	Count     int
	Buffered  int
	Listening bool
	Trained   bool
	Training  bool
}

// ControllerOption customizes a Controller
type ControllerOption func(*Controller)

// WithMetrics records training and prediction counts on m
func WithMetrics(m *observe.Metrics) ControllerOption {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger replaces the default component logger
func WithLogger(l logging.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithClock sets the time source used to stamp events
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// Controller owns the training buffer and the label / listen flags. OnFeature
// is called from the frame producer; SetLabel, RequestListen and Reset may be
// called concurrently from anywhere. The mutex only covers bookkeeping, the
// classifier and the sink are always called without it.
type Controller struct {
	classifier classifier.SequenceClassifier
	sink       EventSink
	cfg        ControllerConfig
	metrics    *observe.Metrics
	logger     logging.Logger
	now        func() time.Time

	mu         sync.Mutex
	label      string
	count      int
	buffer     []classifier.TrainingSample
	listening  bool
	trained    bool
	training   bool
	generation uint64

	workers sync.WaitGroup
}

// NewController creates an idle controller
func NewController(c classifier.SequenceClassifier, sink EventSink, cfg ControllerConfig, opts ...ControllerOption) (*Controller, error) {
	if c == nil {
		return nil, errors.New("controller requires a classifier")
	}
	if sink == nil {
		return nil, errors.New("controller requires an event sink")
	}
	if cfg.RequiredCount <= 0 {
		return nil, fmt.Errorf("required training count must be positive, got %d", cfg.RequiredCount)
	}

	ctrl := &Controller{
		classifier: c,
		sink:       sink,
		cfg:        cfg,
		metrics:    observe.DefaultMetrics(),
		now:        time.Now,
		logger: logging.WithFields(logging.Fields{
			"component":      "recognizer",
			"required_count": cfg.RequiredCount,
		}),
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl, nil
}

// SetLabel replaces the active training label. An empty label stops
// training and enables prediction. Count and buffer are left alone.
func (c *Controller) SetLabel(label string) {
	c.mu.Lock()
	c.label = label
	c.mu.Unlock()
}

// RequestListen asks for one prediction on the next unlabelled frame. It is
// not actioned until the classifier has been trained.
func (c *Controller) RequestListen() {
	c.mu.Lock()
	c.listening = true
	c.mu.Unlock()
}

// Reset discards the training buffer and returns to an untrained state. The
// label is kept. An in-flight asynchronous training result is ignored.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.buffer = nil
	c.count = 0
	c.listening = false
	c.trained = false
	c.training = false
	c.generation++
	c.mu.Unlock()

	c.logger.Info("Controller reset")
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Phase:     c.phaseLocked(),
		Label:     c.label,
		Count:     c.count,
		Buffered:  len(c.buffer),
		Listening: c.listening,
		Trained:   c.trained,
		Training:  c.training,
	}
}

func (c *Controller) phaseLocked() Phase {
	switch {
	case c.trained:
		return PhaseTrained
	case c.training || c.count >= c.cfg.RequiredCount:
		return PhaseReadyToTrain
	case c.count > 0 || c.label != "":
		return PhaseTraining
	default:
		return PhaseIdle
	}
}

// Wait blocks until in-flight asynchronous training has finished
func (c *Controller) Wait() {
	c.workers.Wait()
}

// OnFeature handles one feature vector
func (c *Controller) OnFeature(ctx context.Context, vector []float64) {
	c.mu.Lock()

	if c.label != "" {
		label := c.label

		switch {
		case c.count < c.cfg.RequiredCount:
			c.buffer = append(c.buffer, classifier.TrainingSample{Curve: slices.Clone(vector), Label: label})
			c.count++
			count := c.count
			c.mu.Unlock()

			c.metrics.RecordTrainingSample(ctx, label)
			c.emit(Event{Kind: TrainingProgress, Label: label, Count: count})

		case c.count == c.cfg.RequiredCount:
			samples := classifier.CloneSamples(c.buffer)
			c.count++
			generation := c.generation
			async := c.cfg.AsyncTraining
			if async {
				c.training = true
				c.workers.Add(1)
			}
			c.mu.Unlock()

			if !async {
				c.train(ctx, generation, samples)
				return
			}

			c.emit(Event{Kind: TrainingStarted, Count: len(samples)})
			go func() {
				defer c.workers.Done()
				c.train(context.WithoutCancel(ctx), generation, samples)
			}()

		default:
			// trained once already; the counter keeps growing without retraining
			c.count++
			c.mu.Unlock()
		}
		return
	}

	if !c.trained || !c.listening {
		c.mu.Unlock()
		return
	}
	c.listening = false
	c.mu.Unlock()

	c.predict(ctx, vector)
}

func (c *Controller) train(ctx context.Context, generation uint64, samples []classifier.TrainingSample) {
	start := time.Now()
	err := c.safeTrain(samples)
	c.metrics.RecordTraining(ctx, time.Since(start), len(samples), err == nil)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		c.logger.Debug("Discarding training result from before reset", logging.Fields{"samples": len(samples)})
		return
	}
	c.training = false
	if err == nil {
		c.trained = true
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error(err, "Classifier training failed", logging.Fields{"samples": len(samples)})
		c.emit(Event{Kind: TrainingFailed, Count: len(samples), Err: err})
		return
	}

	c.logger.Info("Classifier trained", logging.Fields{
		"samples":  len(samples),
		"duration": time.Since(start).String(),
	})
	c.emit(Event{Kind: ReadyToPredict, Count: len(samples)})
}

func (c *Controller) safeTrain(samples []classifier.TrainingSample) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTrainingPanic, r)
		}
	}()
	return c.classifier.Train(samples)
}

func (c *Controller) predict(ctx context.Context, vector []float64) {
	prediction, err := c.classifier.Predict(vector)
	if err != nil {
		c.logger.Warn("Prediction failed", logging.Fields{"error": err.Error()})
		return
	}

	certainty := prediction.Probability * 100
	confident := certainty > c.cfg.ProbabilityThresholdPercent

	c.metrics.RecordPrediction(ctx, prediction.Label, confident)
	c.logger.Debug("Prediction", logging.Fields{
		"label":     prediction.Label,
		"certainty": certainty,
		"confident": confident,
	})
	c.emit(Event{
		Kind:             Prediction,
		Label:            prediction.Label,
		CertaintyPercent: certainty,
		Confident:        confident,
	})
}

func (c *Controller) emit(event Event) {
	event.Time = c.now()
	c.sink.Emit(event)
}
