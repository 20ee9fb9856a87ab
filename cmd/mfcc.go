package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
	"github.com/RyanBlaney/sonido-vox/audio"
	"github.com/RyanBlaney/sonido-vox/fingerprint/recognizer"
)

var (
	mfccRaw   bool
	mfccLimit int
)

var mfccCmd = &cobra.Command{
	Use:   "mfcc input",
	Short: "Print the per-frame MFCC vectors of an input as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runMFCC,
}

func init() {
	rootCmd.AddCommand(mfccCmd)

	mfccCmd.Flags().BoolVar(&mfccRaw, "raw", false,
		"input is f32le mono PCM at features.sample_rate (\"-\" reads stdin)")
	mfccCmd.Flags().IntVarP(&mfccLimit, "limit", "n", 0,
		"stop after this many frames (0 for all)")
}

type frameCoefficients struct {
	Timestamp    float64   `yaml:"timestamp"`
	RMS          float64   `yaml:"rms"`
	Coefficients []float64 `yaml:"coefficients,flow"`
}

type mfccDump struct {
	Input           string              `yaml:"input"`
	SampleRate      int                 `yaml:"sample_rate"`
	FrameLength     int                 `yaml:"frame_length"`
	NumFilters      int                 `yaml:"num_filters"`
	NumCoefficients int                 `yaml:"num_coefficients"`
	Dropped         int                 `yaml:"dropped"`
	Mean            []float64           `yaml:"mean,flow"`
	Frames          []frameCoefficients `yaml:"frames"`
}

// meanCoefficients averages each coefficient across frames
func meanCoefficients(frames []frameCoefficients, numCoefficients int) []float64 {
	if len(frames) == 0 {
		return nil
	}
	means := make([]float64, numCoefficients)
	column := make([]float64, len(frames))
	for m := range means {
		for i, f := range frames {
			column[i] = f.Coefficients[m]
		}
		means[m] = common.Mean(column)
	}
	return means
}

func runMFCC(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	analyzer, mfcc, err := newExtractionStage(cfg)
	if err != nil {
		return err
	}

	dump := mfccDump{
		Input:           args[0],
		SampleRate:      cfg.Features.SampleRate,
		FrameLength:     cfg.Capture.FrameLength,
		NumFilters:      cfg.Features.NumFilters,
		NumCoefficients: mfcc.NumCoefficients(),
	}

	var current audio.Frame
	collect := recognizer.FeatureFunc(func(_ context.Context, vector []float64) {
		dump.Frames = append(dump.Frames, frameCoefficients{
			Timestamp:    current.Timestamp,
			RMS:          common.RMS(current.Samples),
			Coefficients: slices.Clone(vector),
		})
	})
	pipeline := recognizer.NewPipeline(analyzer, mfcc, collect)

	stop := errors.New("limit reached")
	err = streamInput(cmd.Context(), cfg, args[0], mfccRaw, func(ctx context.Context, frame audio.Frame) error {
		if mfccLimit > 0 && len(dump.Frames) >= mfccLimit {
			return stop
		}
		current = frame
		if err := pipeline.DeliverFrame(ctx, frame); err != nil {
			dump.Dropped++
		}
		return nil
	})
	if err != nil && !errors.Is(err, stop) {
		return err
	}

	dump.Mean = meanCoefficients(dump.Frames, dump.NumCoefficients)

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(dump); err != nil {
		return fmt.Errorf("failed to encode coefficients: %w", err)
	}
	return enc.Close()
}
