package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/RyanBlaney/sonido-vox/observe"
)

// sessionStats collects pipeline metrics in-process so they can be printed
// when a command finishes.
type sessionStats struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	metrics  *observe.Metrics
}

func newSessionStats() (*sessionStats, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := observe.NewMetrics(provider)
	if err != nil {
		return nil, err
	}
	return &sessionStats{reader: reader, provider: provider, metrics: metrics}, nil
}

// Print writes one line per counter series and a summary per histogram
func (s *sessionStats) Print(ctx context.Context, w io.Writer) error {
	var rm metricdata.ResourceMetrics
	if err := s.reader.Collect(ctx, &rm); err != nil {
		return err
	}

	var lines []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					lines = append(lines, fmt.Sprintf("%s%s %d", m.Name, formatAttributes(dp.Attributes.Encoded(attribute.DefaultEncoder())), dp.Value))
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					if dp.Count == 0 {
						continue
					}
					lines = append(lines, fmt.Sprintf("%s count=%d mean=%.6f%s",
						m.Name, dp.Count, dp.Sum/float64(dp.Count), m.Unit))
				}
			}
		}
	}

	sort.Strings(lines)
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func formatAttributes(encoded string) string {
	if encoded == "" {
		return ""
	}
	return "{" + encoded + "}"
}

// Shutdown releases the meter provider
func (s *sessionStats) Shutdown(ctx context.Context) error {
	return s.provider.Shutdown(ctx)
}
