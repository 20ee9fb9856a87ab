package audio

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-vox/logging"
)

func init() {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
}

func tone(n int, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*440*float64(i)/44100)
	}
	return out
}

func TestLevelMeterSmoothing(t *testing.T) {
	m := NewLevelMeter(0.2)

	chunk := []float64{1, -1, 1, -1} // mean square 1 -> instant level 100
	assert.InDelta(t, 20.0, m.Update(chunk), 1e-12)
	assert.InDelta(t, 36.0, m.Update(chunk), 1e-12)

	// silence does not move the level
	assert.InDelta(t, 36.0, m.Update(make([]float64, 4)), 1e-12)

	m.Reset()
	assert.Equal(t, 0.0, m.Level())
}

func TestFramerWithoutGate(t *testing.T) {
	f, err := NewFramer(FramerConfig{SampleRate: 100, FrameLength: 8, DesiredBands: 4})
	require.NoError(t, err)

	assert.Empty(t, f.Push(make([]float64, 5)))

	frames := f.Push(make([]float64, 12))
	require.Len(t, frames, 2)
	for _, fr := range frames {
		assert.Equal(t, 8, fr.Length)
		assert.Len(t, fr.Samples, 8)
		assert.Equal(t, 4, fr.DesiredBands)
		assert.InDelta(t, 0.05, fr.Timestamp, 1e-12) // chunk began at sample 5
	}
}

func TestFramerLevelGate(t *testing.T) {
	f, err := NewFramer(FramerConfig{SampleRate: 44100, FrameLength: 256, LevelThreshold: 55})
	require.NoError(t, err)

	quiet := tone(256, 1e-4)
	for range 10 {
		assert.Empty(t, f.Push(quiet))
	}

	// full-scale tone needs a few chunks before the smoothed level clears 55
	loud := tone(256, 1.0)
	var produced int
	for range 10 {
		produced += len(f.Push(loud))
	}
	assert.Positive(t, produced)
	assert.Less(t, produced, 10)
	assert.Greater(t, f.Level(), 55.0)
}

func TestNewFramerValidates(t *testing.T) {
	_, err := NewFramer(FramerConfig{SampleRate: 0, FrameLength: 8})
	assert.Error(t, err)
	_, err = NewFramer(FramerConfig{SampleRate: 8000, FrameLength: 0})
	assert.Error(t, err)
	_, err = NewFramer(FramerConfig{SampleRate: 8000, FrameLength: 8, DCCutoffHz: 5000})
	assert.Error(t, err)
}

func TestFramerDCBlockerLeavesInputAlone(t *testing.T) {
	f, err := NewFramer(FramerConfig{SampleRate: 8000, FrameLength: 4, DCCutoffHz: 10})
	require.NoError(t, err)

	chunk := []float64{1, 1, 1, 1}
	frames := f.Push(chunk)
	require.Len(t, frames, 1)
	assert.Equal(t, []float64{1, 1, 1, 1}, chunk)

	// a constant input decays towards zero after the first sample
	assert.Equal(t, 1.0, frames[0].Samples[0])
	assert.Less(t, frames[0].Samples[3], 1.0)
}

func TestReaderSourceStreamsFrames(t *testing.T) {
	samples := tone(1000, 0.5)
	var pcm bytes.Buffer
	require.NoError(t, EncodeFloat32(&pcm, samples))
	pcm.Write([]byte{0x01, 0x02}) // stray partial sample

	src, err := NewReaderSource(&pcm, FramerConfig{SampleRate: 44100, FrameLength: 256}, 64)
	require.NoError(t, err)

	var frames []Frame
	err = src.Stream(context.Background(), func(_ context.Context, f Frame) error {
		frames = append(frames, f)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.InDelta(t, samples[300], frames[1].Samples[44], 1e-6)
}

func TestReaderSourceStopsOnHandlerError(t *testing.T) {
	var pcm bytes.Buffer
	require.NoError(t, EncodeFloat32(&pcm, tone(2048, 0.5)))

	src, err := NewReaderSource(&pcm, FramerConfig{SampleRate: 44100, FrameLength: 256}, 256)
	require.NoError(t, err)

	stop := errors.New("stop")
	calls := 0
	err = src.Stream(context.Background(), func(context.Context, Frame) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestReaderSourceHonoursCancellation(t *testing.T) {
	var pcm bytes.Buffer
	require.NoError(t, EncodeFloat32(&pcm, tone(2048, 0.5)))

	src, err := NewReaderSource(&pcm, FramerConfig{SampleRate: 44100, FrameLength: 256}, 64)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = src.Stream(ctx, func(context.Context, Frame) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
