package classifier

import (
	"fmt"
	"sync"

	"github.com/RyanBlaney/sonido-vox/algorithms/stats"
	"github.com/RyanBlaney/sonido-vox/logging"
	"gonum.org/v1/gonum/floats"
)

// KNNDTWParams configures the nearest-neighbour classifier
type KNNDTWParams struct {
	K              int                  `json:"k"`
	ConstraintBand int                  `json:"constraint_band"` // Sakoe-Chiba radius, <= 0 disables
	Metric         stats.DistanceMetric `json:"metric"`
}

// DefaultKNNDTWParams returns k=3 with an unconstrained euclidean DTW
func DefaultKNNDTWParams() KNNDTWParams {
	return KNNDTWParams{
		K:              3,
		ConstraintBand: -1,
		Metric:         stats.EuclideanDistance,
	}
}

// KNNDTW classifies a coefficient curve by majority vote among the K stored
// curves with the smallest DTW distance. Safe for concurrent use; Train
// swaps the reference set atomically with respect to Predict.
type KNNDTW struct {
	params KNNDTWParams
	dtw    *stats.DTWAlignment
	logger logging.Logger

	mu      sync.RWMutex
	samples []TrainingSample
}

// NewKNNDTW creates an untrained classifier
func NewKNNDTW(params KNNDTWParams) *KNNDTW {
	if params.K <= 0 {
		params.K = DefaultKNNDTWParams().K
	}
	return &KNNDTW{
		params: params,
		dtw:    stats.NewDTWAlignmentWithParams(params.ConstraintBand, stats.Symmetric2, params.Metric),
		logger: logging.WithFields(logging.Fields{
			"component": "knn_dtw",
			"k":         params.K,
		}),
	}
}

// Train replaces the reference set with copies of samples
func (c *KNNDTW) Train(samples []TrainingSample) error {
	if len(samples) == 0 {
		return ErrEmptyTrainingSet
	}
	for i, s := range samples {
		if len(s.Curve) == 0 {
			return fmt.Errorf("sample %d (%q): %w", i, s.Label, ErrEmptyCurve)
		}
	}

	refs := CloneSamples(samples)

	c.mu.Lock()
	c.samples = refs
	c.mu.Unlock()

	c.logger.Info("Trained classifier", logging.Fields{
		"samples": len(refs),
		"labels":  len(Labels(refs)),
	})
	return nil
}

// Trained reports whether Train has succeeded at least once
func (c *KNNDTW) Trained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.samples) > 0
}

// Predict returns the majority label among the K nearest reference curves.
// Probability is the share of those K votes the label received; ties go to
// the label whose voters are closer on average.
func (c *KNNDTW) Predict(curve []float64) (Prediction, error) {
	if len(curve) == 0 {
		return Prediction{}, ErrEmptyCurve
	}

	c.mu.RLock()
	refs := c.samples
	c.mu.RUnlock()

	if len(refs) == 0 {
		return Prediction{}, ErrNotTrained
	}

	distances := make([]float64, len(refs))
	for i, ref := range refs {
		d, err := c.dtw.VectorDistance(curve, ref.Curve)
		if err != nil {
			return Prediction{}, fmt.Errorf("failed to compare with %q reference %d: %w", ref.Label, i, err)
		}
		distances[i] = d
	}

	// Argsort sorts distances in place; order[j] is the reference at rank j
	order := make([]int, len(distances))
	floats.Argsort(distances, order)

	k := min(c.params.K, len(refs))
	votes := make(map[string]int, k)
	distanceSum := make(map[string]float64, k)
	for rank := range k {
		label := refs[order[rank]].Label
		votes[label]++
		distanceSum[label] += distances[rank]
	}

	best := Prediction{}
	bestVotes := 0
	for label, n := range votes {
		mean := distanceSum[label] / float64(n)
		if n > bestVotes || (n == bestVotes && (mean < best.Distance || (mean == best.Distance && label < best.Label))) {
			best = Prediction{Label: label, Distance: mean}
			bestVotes = n
		}
	}
	best.Probability = float64(bestVotes) / float64(k)

	return best, nil
}

// Labels returns the distinct labels in order of first appearance
func Labels(samples []TrainingSample) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, s := range samples {
		if _, ok := seen[s.Label]; ok {
			continue
		}
		seen[s.Label] = struct{}{}
		labels = append(labels, s.Label)
	}
	return labels
}
