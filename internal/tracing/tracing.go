package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Exporter names accepted by New.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterFile   = "file"

	serviceName = "release-packager"

	traceFileMode os.FileMode = 0o644
)

var (
	errUnknownExporter = errors.New("unsupported trace exporter")
	errNoTraceFile     = errors.New("file exporter requires a path")
)

// Config selects where spans go.
type Config struct {
	// Exporter is one of ExporterNone, ExporterStdout, ExporterFile.
	Exporter string `yaml:"exporter"`
	// FilePath is the JSON-lines output of the file exporter.
	FilePath string `yaml:"file"`
}

// Provider owns the tracer of one run.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	sink     io.Closer
}

// New builds a provider. ExporterNone (or empty) yields a no-op tracer.
func New(cfg Config) (*Provider, error) {
	var (
		exporter sdktrace.SpanExporter
		sink     io.Closer
		err      error
	)

	switch cfg.Exporter {
	case ExporterNone, "":
		return &Provider{tracer: noop.NewTracerProvider().Tracer(serviceName)}, nil
	case ExporterStdout:
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	case ExporterFile:
		if cfg.FilePath == "" {
			return nil, errNoTraceFile
		}

		var f *os.File

		f, err = os.OpenFile(filepath.Clean(cfg.FilePath), os.O_CREATE|os.O_APPEND|os.O_WRONLY, traceFileMode)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}

		sink = f
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(f))
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownExporter, cfg.Exporter)
	}

	if err != nil {
		if sink != nil {
			_ = sink.Close()
		}

		return nil, fmt.Errorf("create %s exporter: %w", cfg.Exporter, err)
	}

	return newWithExporter(exporter, sink), nil
}

// newWithExporter wires an exporter synchronously so that every span is
// flushed before the process exits.
func newWithExporter(exporter sdktrace.SpanExporter, sink io.Closer) *Provider {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)

	return &Provider{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		sink:     sink,
	}
}

// Tracer returns the tracer to start spans with; never nil.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes spans and releases the trace file.
func (p *Provider) Shutdown(ctx context.Context) error {
	var err error

	if p.provider != nil {
		err = p.provider.Shutdown(ctx)
	}

	if p.sink != nil {
		err = errors.Join(err, p.sink.Close())
	}

	return err
}
