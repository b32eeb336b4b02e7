// Package otel owns the OpenTelemetry log pipeline for a scrubbing
// session. Records always batch into the session log file; when an OTLP
// endpoint is configured they are exported there as well.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config selects the export targets for the session's telemetry.
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	// LogWriter receives the pretty-printed log export, normally the
	// session log file. Required when enabled and no endpoint is set.
	LogWriter io.Writer
	// Endpoint is an optional OTLP/HTTP collector address.
	Endpoint string
	Insecure bool
}

// Provider holds the session's logger provider. The zero targets case is a
// working no-op so call sites never branch on whether telemetry is on.
type Provider struct {
	logs    *sdklog.LoggerProvider
	enabled bool
}

// New assembles the provider from the config. Disabled telemetry yields a
// no-op provider rather than an error.
func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	var processors []sdklog.Processor
	if cfg.LogWriter != nil {
		proc, err := fileProcessor(cfg)
		if err != nil {
			return nil, err
		}
		processors = append(processors, proc)
	}
	if cfg.Endpoint != "" {
		proc, err := otlpProcessor(ctx, cfg)
		if err != nil {
			return nil, err
		}
		processors = append(processors, proc)
	}
	if len(processors) == 0 {
		return nil, errors.New("otel enabled without a log writer or endpoint")
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, proc := range processors {
		opts = append(opts, sdklog.WithProcessor(proc))
	}
	return &Provider{
		logs:    sdklog.NewLoggerProvider(opts...),
		enabled: true,
	}, nil
}

// fileProcessor batches records into the session log writer.
func fileProcessor(cfg Config) (sdklog.Processor, error) {
	exp, err := stdoutlog.New(
		stdoutlog.WithWriter(cfg.LogWriter),
		stdoutlog.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("file log exporter: %w", err)
	}
	return sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout)), nil
}

// otlpProcessor batches records out to the configured collector.
func otlpProcessor(ctx context.Context, cfg Config) (sdklog.Processor, error) {
	opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	exp, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp log exporter: %w", err)
	}
	return sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout)), nil
}

// LoggerProvider exposes the underlying provider for the otelslog bridge,
// nil when telemetry is off.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

// Meter returns a no-op meter; command dispatch metrics register against
// the global meter provider instead.
func (p *Provider) Meter(string) metric.Meter {
	return noop.Meter{}
}

// Flush pushes pending records out, so session stats written at teardown
// land in the same file as the activity they describe.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush: %w", err)
	}
	return nil
}

// Shutdown tears the pipeline down at session end.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.Shutdown(ctx); err != nil {
		return fmt.Errorf("log shutdown: %w", err)
	}
	return nil
}

// Enabled reports whether telemetry export is on.
func (p *Provider) Enabled() bool {
	return p.enabled
}
