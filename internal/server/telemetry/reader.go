// Package telemetry builds the metric readers the server exports through.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewMetricsReader returns a periodic reader for the named exporter, or nil
// for config.ExporterNone. The stdout exporter writes to w.
//
// The OTLP exporter reads its endpoint and headers from the standard
// OTEL_EXPORTER_OTLP_* variables and connects lazily.
func NewMetricsReader(ctx context.Context, name string, w io.Writer) (sdkmetric.Reader, error) {
	switch name {
	case config.ExporterNone, "":
		return nil, nil

	case config.ExporterStdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case config.ExporterOTLP:
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("otlp metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	}

	return nil, fmt.Errorf("unknown metrics exporter %q", name)
}
