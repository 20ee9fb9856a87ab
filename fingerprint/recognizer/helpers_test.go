package recognizer

import (
	"sync"

	"github.com/RyanBlaney/sonido-vox/fingerprint/classifier"
)

type fakeClassifier struct {
	mu sync.Mutex

	trainCalls   int
	trainedWith  []classifier.TrainingSample
	trainErr     error
	trainPanic   bool
	trainGate    chan struct{}
	predictCalls int
	prediction   classifier.Prediction
}

func (f *fakeClassifier) Train(samples []classifier.TrainingSample) error {
	if f.trainGate != nil {
		<-f.trainGate
	}
	if f.trainPanic {
		panic("boom")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.trainCalls++
	f.trainedWith = samples
	return f.trainErr
}

func (f *fakeClassifier) Predict(curve []float64) (classifier.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predictCalls++
	return f.prediction, nil
}

func (f *fakeClassifier) calls() (train, predict int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trainCalls, f.predictCalls
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) ofKind(kind Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingSink) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func vec(v float64) []float64 {
	return []float64{v, v + 1, v + 2}
}
