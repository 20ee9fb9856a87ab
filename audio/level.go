package audio

import (
	"math"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
)

// DefaultLevelSmoothing is the weight of the newest chunk in the running level
const DefaultLevelSmoothing = 0.2

// LevelMeter tracks an exponentially smoothed loudness figure,
// 5*(ln(meanSquare)+20). Full-scale noise reads about 100, a quiet room
// somewhere around 40.
type LevelMeter struct {
	smoothing float64
	level     float64
}

// NewLevelMeter creates a meter; smoothing outside (0, 1] falls back to the default
func NewLevelMeter(smoothing float64) *LevelMeter {
	if smoothing <= 0 || smoothing > 1 {
		smoothing = DefaultLevelSmoothing
	}
	return &LevelMeter{smoothing: smoothing}
}

// Update folds one chunk into the level and returns the new value.
// Digital silence leaves the level unchanged.
func (m *LevelMeter) Update(chunk []float64) float64 {
	ms := common.MeanSquare(chunk)
	if ms <= 0 {
		return m.level
	}

	instant := 5.0 * (math.Log(ms) + 20.0)
	m.level = m.smoothing*instant + (1.0-m.smoothing)*m.level
	return m.level
}

// Level returns the current smoothed level
func (m *LevelMeter) Level() float64 {
	return m.level
}

// Reset returns the meter to zero
func (m *LevelMeter) Reset() {
	m.level = 0
}
