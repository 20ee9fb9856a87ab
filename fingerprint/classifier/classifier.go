// Package classifier holds the sequence classifier contract used by the
// recognizer and a k-nearest-neighbour implementation over DTW distances.
package classifier

import (
	"errors"
	"slices"
)

var (
	// ErrNotTrained is returned by Predict before a successful Train
	ErrNotTrained = errors.New("classifier has not been trained")

	// ErrEmptyTrainingSet is returned by Train when no samples are given
	ErrEmptyTrainingSet = errors.New("no training samples")

	// ErrEmptyCurve is returned for zero-length feature vectors
	ErrEmptyCurve = errors.New("empty feature curve")
)

// TrainingSample pairs one feature vector with the label active when it was captured
type TrainingSample struct {
	Curve []float64 `json:"curve" yaml:"curve"`
	Label string    `json:"label" yaml:"label"`
}

// Clone returns a deep copy of the sample
func (s TrainingSample) Clone() TrainingSample {
	return TrainingSample{Curve: slices.Clone(s.Curve), Label: s.Label}
}

// CloneSamples deep-copies a training buffer
func CloneSamples(samples []TrainingSample) []TrainingSample {
	out := make([]TrainingSample, len(samples))
	for i, s := range samples {
		out[i] = s.Clone()
	}
	return out
}

// Prediction is the outcome of classifying one feature vector
type Prediction struct {
	Label string `json:"label"`

	// Probability is in [0, 1]
	Probability float64 `json:"probability"`

	// Distance is the mean DTW distance of the neighbours that voted for Label
	Distance float64 `json:"distance"`
}

// SequenceClassifier is trained on labelled feature vectors and predicts the label of new ones.
// Implementations must not retain the slices passed to Train.
type SequenceClassifier interface {
	Train(samples []TrainingSample) error
	Predict(curve []float64) (Prediction, error)
}
