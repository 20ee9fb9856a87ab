package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-vox/audio"
	"github.com/RyanBlaney/sonido-vox/fingerprint/analyzers"
	"github.com/RyanBlaney/sonido-vox/fingerprint/config"
	"github.com/RyanBlaney/sonido-vox/fingerprint/recognizer"
	"github.com/RyanBlaney/sonido-vox/logging"
	"github.com/RyanBlaney/sonido-vox/presentation"
)

var (
	sessionListen        []string
	sessionPredictEvery  int
	sessionRaw           bool
	sessionSpectrum      bool
	sessionStatsEnabled  bool
	sessionFramesPerItem int
)

// errInputLimit stops streaming an input once its frame share is used
var errInputLimit = errors.New("input frame limit reached")

var sessionCmd = &cobra.Command{
	Use:   "session label=input [label=input...]",
	Short: "Train on labelled recordings, then classify the --listen inputs",
	Long: `Run a full train-then-predict session.

Each positional argument pairs a label with an input. Frames from that input
are captured as training samples for the label. Training fires once, on the
first labelled frame after training.required_count samples have been
collected across all labels, so every label but the last contributes an
equal share of the quota.

After training, each --listen input is streamed with the label cleared and
a listen request is issued every --predict-every frames.`,
	Example: `  sonido-vox session kick=kick.wav snare=snare.wav --listen loop.wav
  sonido-vox session --raw kick=kick.f32 --listen - < live.f32`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().StringSliceVarP(&sessionListen, "listen", "l", nil,
		"inputs to classify after training")
	sessionCmd.Flags().IntVar(&sessionPredictEvery, "predict-every", 8,
		"frames between listen requests while classifying")
	sessionCmd.Flags().BoolVar(&sessionRaw, "raw", false,
		"inputs are f32le mono PCM at features.sample_rate (\"-\" reads stdin)")
	sessionCmd.Flags().BoolVar(&sessionSpectrum, "spectrum", false,
		"draw a spectrum bar for every classified frame")
	sessionCmd.Flags().BoolVar(&sessionStatsEnabled, "stats", false,
		"print pipeline metrics when the session ends")
	sessionCmd.Flags().IntVar(&sessionFramesPerItem, "frames-per-label", 0,
		"training frames taken from each input (default: an equal share of training.required_count)")
}

type labelledInput struct {
	label string
	path  string
}

func parseLabelledInputs(args []string) ([]labelledInput, error) {
	inputs := make([]labelledInput, 0, len(args))
	for _, arg := range args {
		label, path, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(label) == "" || path == "" {
			return nil, fmt.Errorf("expected label=input, got %q", arg)
		}
		inputs = append(inputs, labelledInput{label: strings.TrimSpace(label), path: path})
	}
	return inputs, nil
}

// frameShares splits the training quota across inputs. The last input is
// unlimited so it can deliver the frame that triggers training.
func frameShares(required, inputs, perInput int) []int {
	shares := make([]int, inputs)
	share := perInput
	if share <= 0 {
		share = max(required/inputs, 1)
	}
	for i := range inputs - 1 {
		shares[i] = share
	}
	return shares
}

func runSession(cmd *cobra.Command, args []string) error {
	inputs, err := parseLabelledInputs(args)
	if err != nil {
		return err
	}
	if sessionPredictEvery <= 0 {
		return fmt.Errorf("--predict-every must be positive, got %d", sessionPredictEvery)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer, mfcc, err := newExtractionStage(cfg)
	if err != nil {
		return err
	}
	knn, err := newClassifier(cfg)
	if err != nil {
		return err
	}

	var controllerOpts []recognizer.ControllerOption
	var pipelineOpts []recognizer.PipelineOption

	var stats *sessionStats
	if sessionStatsEnabled {
		if stats, err = newSessionStats(); err != nil {
			return err
		}
		defer stats.Shutdown(context.Background())
		controllerOpts = append(controllerOpts, recognizer.WithMetrics(stats.metrics))
		pipelineOpts = append(pipelineOpts, recognizer.WithPipelineMetrics(stats.metrics))
	}

	// the controller is created after the terminal, which needs it in OnReady
	var controller *recognizer.Controller
	terminal := presentation.NewTerminal(cmd.OutOrStdout(), presentation.NewStyles(presentation.DefaultTheme), presentation.TerminalConfig{
		RequiredCount: cfg.Training.RequiredCount,
		ProgressEvery: max(cfg.Training.RequiredCount/10, 1),
		OnReady:       func() { controller.SetLabel("") },
	})
	dispatcher := recognizer.NewDispatcher(terminal)

	controller, err = recognizer.NewController(knn, dispatcher, controllerConfig(cfg), controllerOpts...)
	if err != nil {
		return err
	}

	listening := false
	if sessionSpectrum {
		pipelineOpts = append(pipelineOpts, recognizer.WithSpectrumObserver(func(_ audio.Frame, s *analyzers.Spectrum) {
			if listening {
				terminal.RenderSpectrum(s.Bands, 64, 0.25)
			}
		}))
	}
	pipeline := recognizer.NewPipeline(analyzer, mfcc, controller, pipelineOpts...)

	logger := logging.WithFields(logging.Fields{"component": "session"})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		defer dispatcher.Close()

		if err := train(gctx, cfg, pipeline, controller, inputs, logger); err != nil {
			return err
		}

		listening = true
		for _, path := range sessionListen {
			if err := classify(gctx, cfg, pipeline, controller, path); err != nil {
				return err
			}
		}
		return nil
	})

	err = g.Wait()
	if stats != nil {
		fmt.Fprintln(cmd.OutOrStdout())
		if printErr := stats.Print(context.Background(), cmd.OutOrStdout()); printErr != nil {
			logger.Warn("Failed to print metrics", logging.Fields{"error": printErr.Error()})
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func train(ctx context.Context, cfg *config.Config, pipeline *recognizer.Pipeline, controller *recognizer.Controller,
	inputs []labelledInput, logger logging.Logger) error {
	shares := frameShares(cfg.Training.RequiredCount, len(inputs), sessionFramesPerItem)

	for i, input := range inputs {
		controller.SetLabel(input.label)
		limit := shares[i]
		taken := 0

		err := streamInput(ctx, cfg, input.path, sessionRaw, func(ctx context.Context, frame audio.Frame) error {
			if limit > 0 && taken >= limit {
				return errInputLimit
			}
			if err := pipeline.DeliverFrame(ctx, frame); err == nil {
				taken++
			}
			return nil
		})
		if err != nil && !errors.Is(err, errInputLimit) {
			return err
		}

		logger.Info("Captured training input", logging.Fields{
			"label":  input.label,
			"input":  input.path,
			"frames": taken,
		})
	}

	controller.Wait()
	controller.SetLabel("")

	state := controller.Snapshot()
	if !state.Trained {
		return fmt.Errorf("classifier not trained: captured %d labelled frames, training needs %d",
			state.Count, cfg.Training.RequiredCount+1)
	}
	return nil
}

func classify(ctx context.Context, cfg *config.Config, pipeline *recognizer.Pipeline, controller *recognizer.Controller, path string) error {
	frames := 0
	return streamInput(ctx, cfg, path, sessionRaw, func(ctx context.Context, frame audio.Frame) error {
		if frames%sessionPredictEvery == 0 {
			controller.RequestListen()
		}
		frames++
		_ = pipeline.DeliverFrame(ctx, frame)
		return nil
	})
}
