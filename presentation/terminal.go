// Package presentation renders recognizer events and spectra to a terminal.
package presentation

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
	"github.com/RyanBlaney/sonido-vox/fingerprint/recognizer"
)

// Theme defines the color scheme
type Theme struct {
	Primary lipgloss.Color
	Warn    lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme is a green-on-dark theme
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Warn:    lipgloss.Color("#ffb86c"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme
type Styles struct {
	Prediction lipgloss.Style
	Unsure     lipgloss.Style
	Progress   lipgloss.Style
	Banner     lipgloss.Style
	Bar        lipgloss.Style
}

// NewStyles creates styles from a theme
func NewStyles(t Theme) Styles {
	return Styles{
		Prediction: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Unsure:     lipgloss.NewStyle().Foreground(t.Warn),
		Progress:   lipgloss.NewStyle().Foreground(t.Dim),
		Banner:     lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Bar:        lipgloss.NewStyle().Foreground(t.Primary),
	}
}

// TerminalConfig configures a Terminal
type TerminalConfig struct {
	// RequiredCount is shown as the progress denominator
	RequiredCount int

	// ProgressEvery prints one progress line per this many samples; 1 prints all
	ProgressEvery int

	// OnReady runs after the ready banner, typically to clear the training label
	OnReady func()
}

// Terminal writes one line per event. It implements recognizer.Handler and
// is meant to be driven by a recognizer.Dispatcher.
type Terminal struct {
	out    io.Writer
	styles Styles
	cfg    TerminalConfig

	mu sync.Mutex
}

var _ recognizer.Handler = (*Terminal)(nil)

// NewTerminal creates a terminal presenter writing to out
func NewTerminal(out io.Writer, styles Styles, cfg TerminalConfig) *Terminal {
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 1
	}
	return &Terminal{out: out, styles: styles, cfg: cfg}
}

func (t *Terminal) println(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, s)
}

// OnTrainingProgress prints the training count for label
func (t *Terminal) OnTrainingProgress(label string, count int) {
	if count%t.cfg.ProgressEvery != 0 && count != t.cfg.RequiredCount {
		return
	}
	t.println(t.styles.Progress.Render(FormatProgress(label, count, t.cfg.RequiredCount)))
}

// OnTrainingStarted announces background training
func (t *Terminal) OnTrainingStarted(samples int) {
	t.println(t.styles.Progress.Render(fmt.Sprintf("training on %d samples...", samples)))
}

// OnReadyToPredict prints the ready banner and runs the OnReady hook
func (t *Terminal) OnReadyToPredict() {
	t.println(t.styles.Banner.Render("READY TO PREDICT"))
	if t.cfg.OnReady != nil {
		t.cfg.OnReady()
	}
}

// OnPrediction prints the predicted label, or NOT SURE.. below the threshold
func (t *Terminal) OnPrediction(label string, certaintyPercent float64, confident bool) {
	text := FormatPrediction(label, certaintyPercent, confident)
	if confident {
		t.println(t.styles.Prediction.Render(text))
		return
	}
	t.println(t.styles.Unsure.Render(text))
}

// OnTrainingFailed prints the training error
func (t *Terminal) OnTrainingFailed(err error) {
	t.println(t.styles.Unsure.Render("TRAINING FAILED: " + err.Error()))
}

// FormatPrediction renders a prediction outcome as plain text
func FormatPrediction(label string, certaintyPercent float64, confident bool) string {
	if !confident {
		return "NOT SURE.."
	}
	return fmt.Sprintf("PREDICTED: %q %.0f%% certainty", label, certaintyPercent)
}

// FormatProgress renders a training count as plain text
func FormatProgress(label string, count, required int) string {
	if required <= 0 {
		return fmt.Sprintf("training %q: %d", label, count)
	}
	return fmt.Sprintf("training %q: %d/%d", label, count, required)
}

var barGlyphs = []rune(" ▁▂▃▄▅▆▇█")

// SpectrumBar renders bands as one row of block glyphs, width characters
// wide. Each character shows the peak of the bands it covers, scaled so
// that ceiling is a full block.
func SpectrumBar(bands []float64, width int, ceiling float64) string {
	if len(bands) == 0 || width <= 0 || ceiling <= 0 {
		return ""
	}

	var sb strings.Builder
	for col := range width {
		lo := col * len(bands) / width
		hi := max((col+1)*len(bands)/width, lo+1)

		peak := 0.0
		for _, v := range bands[lo:min(hi, len(bands))] {
			peak = max(peak, v)
		}

		scaled := common.Clamp(peak/ceiling, 0, 1)
		sb.WriteRune(barGlyphs[int(scaled*float64(len(barGlyphs)-1))])
	}
	return sb.String()
}

// RenderSpectrum writes a styled spectrum bar line
func (t *Terminal) RenderSpectrum(bands []float64, width int, ceiling float64) {
	bar := SpectrumBar(bands, width, ceiling)
	if bar == "" {
		return
	}
	t.println(t.styles.Bar.Render(bar))
}
