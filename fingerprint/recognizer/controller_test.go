package recognizer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/RyanBlaney/sonido-vox/fingerprint/classifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, fc *fakeClassifier, cfg ControllerConfig) (*Controller, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	ctrl, err := NewController(fc, sink, cfg)
	require.NoError(t, err)
	return ctrl, sink
}

func feed(ctrl *Controller, n int) {
	for i := range n {
		ctrl.OnFeature(context.Background(), vec(float64(i)))
	}
}

func TestNewControllerValidation(t *testing.T) {
	_, err := NewController(nil, &recordingSink{}, DefaultControllerConfig())
	assert.Error(t, err)

	_, err = NewController(&fakeClassifier{}, nil, DefaultControllerConfig())
	assert.Error(t, err)

	_, err = NewController(&fakeClassifier{}, &recordingSink{}, ControllerConfig{RequiredCount: 0})
	assert.Error(t, err)
}

func TestTrainingReachesQuota(t *testing.T) {
	fc := &fakeClassifier{}
	ctrl, sink := newTestController(t, fc, DefaultControllerConfig())

	assert.Equal(t, PhaseIdle, ctrl.Snapshot().Phase)
	ctrl.SetLabel("kick")
	assert.Equal(t, PhaseTraining, ctrl.Snapshot().Phase)

	feed(ctrl, 500)

	progress := sink.ofKind(TrainingProgress)
	require.Len(t, progress, 500)
	for i, e := range progress {
		assert.Equal(t, "kick", e.Label)
		assert.Equal(t, i+1, e.Count)
	}
	assert.Empty(t, sink.ofKind(ReadyToPredict))
	train, _ := fc.calls()
	assert.Zero(t, train)
	assert.Equal(t, PhaseReadyToTrain, ctrl.Snapshot().Phase)

	feed(ctrl, 1)

	assert.Len(t, sink.ofKind(ReadyToPredict), 1)
	assert.Len(t, sink.ofKind(TrainingProgress), 500)
	train, _ = fc.calls()
	assert.Equal(t, 1, train)
	require.Len(t, fc.trainedWith, 500)
	for _, s := range fc.trainedWith {
		assert.Equal(t, "kick", s.Label)
	}

	state := ctrl.Snapshot()
	assert.Equal(t, PhaseTrained, state.Phase)
	assert.True(t, state.Trained)
	assert.Equal(t, 501, state.Count)
}

func TestPredictionAfterTraining(t *testing.T) {
	fc := &fakeClassifier{prediction: classifier.Prediction{Label: "kick", Probability: 0.75}}
	ctrl, sink := newTestController(t, fc, DefaultControllerConfig())

	ctrl.SetLabel("kick")
	feed(ctrl, 501)

	ctrl.SetLabel("")
	ctrl.RequestListen()
	assert.True(t, ctrl.Snapshot().Listening)

	feed(ctrl, 1)

	predictions := sink.ofKind(Prediction)
	require.Len(t, predictions, 1)
	assert.Equal(t, "kick", predictions[0].Label)
	assert.Equal(t, 75.0, predictions[0].CertaintyPercent)
	assert.True(t, predictions[0].Confident)
	assert.False(t, ctrl.Snapshot().Listening)

	// single shot per request
	feed(ctrl, 10)
	assert.Len(t, sink.ofKind(Prediction), 1)
	_, predict := fc.calls()
	assert.Equal(t, 1, predict)
}

func TestLowConfidencePredictionStillFires(t *testing.T) {
	fc := &fakeClassifier{prediction: classifier.Prediction{Label: "snare", Probability: 0.5}}
	ctrl, sink := newTestController(t, fc, ControllerConfig{RequiredCount: 2, ProbabilityThresholdPercent: 50})

	ctrl.SetLabel("snare")
	feed(ctrl, 3)
	ctrl.SetLabel("")
	ctrl.RequestListen()
	feed(ctrl, 1)

	predictions := sink.ofKind(Prediction)
	require.Len(t, predictions, 1)
	assert.Equal(t, 50.0, predictions[0].CertaintyPercent)
	assert.False(t, predictions[0].Confident, "certainty must exceed the threshold, not equal it")
}

func TestListenBeforeTrainingIsDeferred(t *testing.T) {
	fc := &fakeClassifier{prediction: classifier.Prediction{Label: "hat", Probability: 1}}
	ctrl, sink := newTestController(t, fc, ControllerConfig{RequiredCount: 3, ProbabilityThresholdPercent: 55})

	ctrl.RequestListen()
	feed(ctrl, 100)

	assert.Empty(t, sink.ofKind(Prediction))
	_, predict := fc.calls()
	assert.Zero(t, predict)
	assert.True(t, ctrl.Snapshot().Listening)

	ctrl.SetLabel("hat")
	feed(ctrl, 4)
	ctrl.SetLabel("")
	feed(ctrl, 1)

	// the pending request is honoured once a predict branch is reached
	assert.Len(t, sink.ofKind(Prediction), 1)
}

func TestLabelChangeMidTrainingKeepsCount(t *testing.T) {
	fc := &fakeClassifier{}
	ctrl, sink := newTestController(t, fc, ControllerConfig{RequiredCount: 4, ProbabilityThresholdPercent: 55})

	ctrl.SetLabel("kick")
	feed(ctrl, 2)
	ctrl.SetLabel("snare")
	feed(ctrl, 2)
	assert.Equal(t, 4, ctrl.Snapshot().Count)

	feed(ctrl, 1)
	require.Len(t, fc.trainedWith, 4)
	assert.Equal(t, []string{"kick", "kick", "snare", "snare"}, []string{
		fc.trainedWith[0].Label, fc.trainedWith[1].Label, fc.trainedWith[2].Label, fc.trainedWith[3].Label,
	})
	assert.Len(t, sink.ofKind(ReadyToPredict), 1)
}

func TestUnlabelledFramesDoNotCount(t *testing.T) {
	fc := &fakeClassifier{}
	ctrl, sink := newTestController(t, fc, ControllerConfig{RequiredCount: 4, ProbabilityThresholdPercent: 55})

	ctrl.SetLabel("kick")
	feed(ctrl, 2)
	ctrl.SetLabel("")
	feed(ctrl, 20)

	state := ctrl.Snapshot()
	assert.Equal(t, 2, state.Count)
	assert.Equal(t, 2, state.Buffered)
	assert.Equal(t, 2, sink.len())
}

func TestCounterGrowsPastQuotaWithoutRetraining(t *testing.T) {
	fc := &fakeClassifier{}
	ctrl, sink := newTestController(t, fc, ControllerConfig{RequiredCount: 2, ProbabilityThresholdPercent: 55})

	ctrl.SetLabel("kick")
	feed(ctrl, 50)

	state := ctrl.Snapshot()
	assert.Equal(t, 50, state.Count)
	assert.Equal(t, 2, state.Buffered)
	train, _ := fc.calls()
	assert.Equal(t, 1, train)
	assert.Len(t, sink.ofKind(ReadyToPredict), 1)
	assert.Len(t, sink.ofKind(TrainingProgress), 2)
}

func TestTrainingBufferOwnsItsCurves(t *testing.T) {
	fc := &fakeClassifier{}
	ctrl, _ := newTestController(t, fc, ControllerConfig{RequiredCount: 1, ProbabilityThresholdPercent: 55})

	ctrl.SetLabel("kick")
	v := []float64{1, 2, 3}
	ctrl.OnFeature(context.Background(), v)
	v[0] = 99

	feed(ctrl, 1)
	require.Len(t, fc.trainedWith, 1)
	assert.Equal(t, []float64{1, 2, 3}, fc.trainedWith[0].Curve)
}

func TestResetClearsState(t *testing.T) {
	fc := &fakeClassifier{prediction: classifier.Prediction{Label: "kick", Probability: 1}}
	ctrl, sink := newTestController(t, fc, ControllerConfig{RequiredCount: 2, ProbabilityThresholdPercent: 55})

	ctrl.SetLabel("kick")
	feed(ctrl, 3)
	ctrl.RequestListen()
	ctrl.Reset()

	state := ctrl.Snapshot()
	assert.Zero(t, state.Count)
	assert.Zero(t, state.Buffered)
	assert.False(t, state.Trained)
	assert.False(t, state.Listening)
	assert.Equal(t, "kick", state.Label)

	ctrl.SetLabel("")
	ctrl.RequestListen()
	feed(ctrl, 1)
	assert.Empty(t, sink.ofKind(Prediction))

	// training can run again after a reset
	ctrl.SetLabel("snare")
	feed(ctrl, 3)
	assert.Len(t, sink.ofKind(ReadyToPredict), 2)
}

func TestSynchronousTrainingFailure(t *testing.T) {
	fc := &fakeClassifier{trainErr: classifier.ErrEmptyCurve}
	ctrl, sink := newTestController(t, fc, ControllerConfig{RequiredCount: 2, ProbabilityThresholdPercent: 55})

	ctrl.SetLabel("kick")
	feed(ctrl, 3)

	failed := sink.ofKind(TrainingFailed)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, classifier.ErrEmptyCurve)
	assert.Empty(t, sink.ofKind(ReadyToPredict))
	assert.False(t, ctrl.Snapshot().Trained)
}

func TestTrainingPanicIsReported(t *testing.T) {
	fc := &fakeClassifier{trainPanic: true}
	ctrl, sink := newTestController(t, fc, ControllerConfig{RequiredCount: 1, ProbabilityThresholdPercent: 55})

	ctrl.SetLabel("kick")
	assert.NotPanics(t, func() { feed(ctrl, 2) })

	failed := sink.ofKind(TrainingFailed)
	require.Len(t, failed, 1)
	assert.True(t, errors.Is(failed[0].Err, ErrTrainingPanic))
}

func TestAsyncTraining(t *testing.T) {
	gate := make(chan struct{})
	fc := &fakeClassifier{trainGate: gate}
	ctrl, sink := newTestController(t, fc, ControllerConfig{RequiredCount: 3, ProbabilityThresholdPercent: 55, AsyncTraining: true})

	ctrl.SetLabel("kick")
	feed(ctrl, 4)

	started := sink.ofKind(TrainingStarted)
	require.Len(t, started, 1)
	assert.Equal(t, 3, started[0].Count)

	state := ctrl.Snapshot()
	assert.True(t, state.Training)
	assert.False(t, state.Trained)
	assert.Equal(t, PhaseReadyToTrain, state.Phase)

	// predictions stay disabled until the worker finishes
	ctrl.SetLabel("")
	ctrl.RequestListen()
	feed(ctrl, 1)
	assert.Empty(t, sink.ofKind(Prediction))

	close(gate)
	ctrl.Wait()

	assert.Len(t, sink.ofKind(ReadyToPredict), 1)
	state = ctrl.Snapshot()
	assert.True(t, state.Trained)
	assert.False(t, state.Training)
}

func TestAsyncTrainingDiscardedAfterReset(t *testing.T) {
	gate := make(chan struct{})
	fc := &fakeClassifier{trainGate: gate}
	ctrl, sink := newTestController(t, fc, ControllerConfig{RequiredCount: 1, ProbabilityThresholdPercent: 55, AsyncTraining: true})

	ctrl.SetLabel("kick")
	feed(ctrl, 2)
	ctrl.Reset()

	close(gate)
	ctrl.Wait()

	assert.Empty(t, sink.ofKind(ReadyToPredict))
	assert.False(t, ctrl.Snapshot().Trained)
}

func TestConcurrentLabelAndListen(t *testing.T) {
	fc := &fakeClassifier{prediction: classifier.Prediction{Label: "kick", Probability: 1}}
	ctrl, _ := newTestController(t, fc, ControllerConfig{RequiredCount: 50, ProbabilityThresholdPercent: 55})

	const frames = 2000
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range frames {
			if i%2 == 0 {
				ctrl.SetLabel("kick")
			} else {
				ctrl.SetLabel("")
			}
		}
	}()
	go func() {
		defer wg.Done()
		for range frames {
			ctrl.RequestListen()
		}
	}()
	feed(ctrl, frames)
	wg.Wait()

	state := ctrl.Snapshot()
	assert.LessOrEqual(t, state.Count, frames)
	assert.LessOrEqual(t, state.Buffered, 50)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "trained", PhaseTrained.String())
	assert.Equal(t, "prediction", Prediction.String())
}
