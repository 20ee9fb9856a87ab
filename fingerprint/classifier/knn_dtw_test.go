package classifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-vox/logging"
)

func init() {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
}

func curve(base float64) []float64 {
	return []float64{base, base + 1, base + 2, base + 1, base}
}

func trainingSet() []TrainingSample {
	return []TrainingSample{
		{Curve: curve(0), Label: "kick"},
		{Curve: curve(0.1), Label: "kick"},
		{Curve: curve(-0.1), Label: "kick"},
		{Curve: curve(10), Label: "snare"},
		{Curve: curve(10.2), Label: "snare"},
		{Curve: curve(9.9), Label: "snare"},
	}
}

func TestKNNDTWPredictsNearestLabel(t *testing.T) {
	c := NewKNNDTW(DefaultKNNDTWParams())
	require.NoError(t, c.Train(trainingSet()))
	assert.True(t, c.Trained())

	p, err := c.Predict(curve(0.05))
	require.NoError(t, err)
	assert.Equal(t, "kick", p.Label)
	assert.Equal(t, 1.0, p.Probability)

	p, err = c.Predict(curve(10.1))
	require.NoError(t, err)
	assert.Equal(t, "snare", p.Label)
	assert.Equal(t, 1.0, p.Probability)
}

func TestKNNDTWProbabilityIsVoteShare(t *testing.T) {
	c := NewKNNDTW(KNNDTWParams{K: 3, ConstraintBand: -1})
	require.NoError(t, c.Train([]TrainingSample{
		{Curve: curve(0), Label: "kick"},
		{Curve: curve(1), Label: "kick"},
		{Curve: curve(2), Label: "hat"},
		{Curve: curve(50), Label: "snare"},
	}))

	p, err := c.Predict(curve(0.9))
	require.NoError(t, err)
	assert.Equal(t, "kick", p.Label)
	assert.InDelta(t, 2.0/3.0, p.Probability, 1e-12)
}

func TestKNNDTWDoesNotRetainTrainingSlices(t *testing.T) {
	samples := trainingSet()
	c := NewKNNDTW(DefaultKNNDTWParams())
	require.NoError(t, c.Train(samples))

	for i := range samples {
		samples[i].Label = "mutated"
		samples[i].Curve[0] = 1000
	}

	p, err := c.Predict(curve(0))
	require.NoError(t, err)
	assert.Equal(t, "kick", p.Label)
}

func TestKNNDTWErrors(t *testing.T) {
	c := NewKNNDTW(DefaultKNNDTWParams())

	_, err := c.Predict(curve(0))
	assert.True(t, errors.Is(err, ErrNotTrained))

	assert.True(t, errors.Is(c.Train(nil), ErrEmptyTrainingSet))
	assert.True(t, errors.Is(c.Train([]TrainingSample{{Label: "kick"}}), ErrEmptyCurve))
	assert.False(t, c.Trained())

	require.NoError(t, c.Train(trainingSet()))
	_, err = c.Predict(nil)
	assert.True(t, errors.Is(err, ErrEmptyCurve))
}

func TestLabelsKeepsFirstAppearanceOrder(t *testing.T) {
	assert.Equal(t, []string{"kick", "snare"}, Labels(trainingSet()))
	assert.Empty(t, Labels(nil))
}
