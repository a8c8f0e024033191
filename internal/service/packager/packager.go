package packager

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/oshokin/release-packager/internal/domain/release"
	"github.com/oshokin/release-packager/internal/logger"
	"github.com/oshokin/release-packager/internal/repository/manifest"
	"github.com/oshokin/release-packager/internal/service/archiver"
	"github.com/oshokin/release-packager/internal/service/checksum"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ProjectDir is the root of the built project tree.
	ProjectDir string
	// ManifestPath is the manifest file, patched in place.
	ManifestPath string
	// DistDir receives the archive and the digest files.
	DistDir string
	// Patterns is the inclusion set; "!" marks exclusions.
	Patterns []string
	// DigestAlgorithm names the checksum algorithm; empty means sha256.
	DigestAlgorithm string
	// Candidates hold the raw selector values, highest priority first.
	Candidates release.Candidates
	// Tracer receives one span per stage; nil disables tracing.
	Tracer trace.Tracer
}

// Result describes how far a run got and what it produced.
type Result struct {
	// State is StateDone on success and StateFailed otherwise.
	State State
	// Selectors are the values the run used.
	Selectors release.Selectors
	// Descriptor is set once the archive was named.
	Descriptor release.Descriptor
	// Archive is set once the archive was written.
	Archive *archiver.Report
	// Checksums lists the digests written by the last stage.
	Checksums []checksum.Record
}

// stage is one step of the pipeline.
type stage struct {
	name string
	to   State
	run  func(ctx context.Context) error
}

// packager holds the state of a single run.
// It is unexported; callers use Run.
type packager struct {
	opts   *Options
	tracer trace.Tracer
	state  State

	selectors release.Selectors
	repo      manifest.Repository
	doc       *manifest.Document
	set       release.InclusionSet
	desc      release.Descriptor
	archive   *archiver.Report
	checksums []checksum.Record
}

// Run executes the packaging pipeline once.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "release-packager")
	ctx = logger.WithKV(ctx, "run_id", uuid.NewString())

	p := newPackager(opts)

	ctx, span := p.tracer.Start(ctx, "package")
	defer span.End()

	// The actor is informational; a failed lookup never stops a run.
	if actor, err := DetectActor(); err == nil {
		ctx = logger.WithKV(ctx, "host", actor.Hostname, "user", actor.Username)

		span.SetAttributes(
			attribute.String("host.name", actor.Hostname),
			attribute.String("user.name", actor.Username),
		)
	} else {
		logger.DebugKV(ctx, "Actor not detected", "error", err)
	}

	for _, st := range p.stages() {
		if err := p.runStage(ctx, st); err != nil {
			_ = p.transition(StateFailed)

			span.RecordError(err)
			span.SetStatus(codes.Error, st.name)
			logger.ErrorKV(ctx, "Packaging failed", "stage", st.name, "error", err)

			return p.result(), err
		}
	}

	if err := p.transition(StateDone); err != nil {
		return p.result(), err
	}

	p.logSummary(ctx)

	return p.result(), nil
}

func newPackager(opts *Options) *packager {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	return &packager{
		opts:   opts,
		tracer: tracer,
		state:  StateIdle,
		repo:   manifest.NewFileRepository(opts.ManifestPath),
	}
}

func (p *packager) stages() []stage {
	return []stage{
		{name: "resolve selectors", to: StateSelectorsResolved, run: p.resolveSelectors},
		{name: "patch manifest", to: StateManifestPatched, run: p.patchManifest},
		{name: "name archive", to: StateNamed, run: p.nameArchive},
		{name: "build archive", to: StateArchived, run: p.buildArchive},
		{name: "checksum artifacts", to: StateChecksummed, run: p.checksumArtifacts},
	}
}

func (p *packager) runStage(ctx context.Context, st stage) error {
	ctx, span := p.tracer.Start(ctx, st.name)
	defer span.End()

	if err := st.run(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return &StageError{Stage: st.name, Err: err}
	}

	if err := p.transition(st.to); err != nil {
		return &StageError{Stage: st.name, Err: err}
	}

	logger.DebugKV(ctx, "Stage completed", "stage", st.name, "state", p.state)

	return nil
}

// transition moves the run to the directly following state.
func (p *packager) transition(to State) error {
	if !p.state.next(to) {
		return fmt.Errorf("%w: %s -> %s", errOutOfOrder, p.state, to)
	}

	p.state = to

	return nil
}

func (p *packager) resolveSelectors(ctx context.Context) error {
	sel, rejected := p.opts.Candidates.Resolve()
	p.selectors = sel

	for _, name := range rejected {
		logger.DebugKV(ctx, "Selector value rejected", "selector", name)
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("release.os", p.selectors.OS),
		attribute.String("release.platform", p.selectors.Platform),
		attribute.String("release.runtime", p.selectors.Runtime),
	)

	if p.selectors.IsGeneric() {
		logger.Info(ctx, "No selectors set, packaging a generic build")
		return nil
	}

	logger.InfoKV(ctx, "Resolved selectors",
		"os", p.selectors.OS, "platform", p.selectors.Platform, "node", p.selectors.Runtime)

	return nil
}

func (p *packager) patchManifest(ctx context.Context) error {
	doc, err := p.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrManifestIO, err)
	}

	if err = manifest.Patch(doc, p.selectors); err != nil {
		return fmt.Errorf("%w: %w", ErrManifestIO, err)
	}

	if err = p.repo.Save(ctx, doc); err != nil {
		return fmt.Errorf("%w: %w", ErrManifestIO, err)
	}

	p.doc = doc

	logger.InfoKV(ctx, "Manifest patched", "path", p.opts.ManifestPath)

	return nil
}

func (p *packager) nameArchive(ctx context.Context) error {
	name, version := p.doc.Name(), p.doc.Version()

	desc := release.NewDescriptor(p.opts.DistDir, name, version, p.selectors)
	root := release.RootDir(name, version)

	// Manifest values end up in paths; they must not add directories.
	if filepath.Base(desc.FileName) != desc.FileName || filepath.Base(root) != root ||
		strings.Contains(desc.FileName, "..") {
		return fmt.Errorf("%w: %w: %q", ErrManifestIO, errUnsafeName, desc.FileName)
	}

	set, err := release.NewInclusionSet(p.opts.Patterns, root)
	if err != nil {
		return err
	}

	p.desc = desc
	p.set = set

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("release.archive", desc.FileName),
		attribute.String("release.format", string(desc.Format)),
	)

	logger.InfoKV(ctx, "Archive named", "file", desc.FileName, "format", desc.Format, "root", root)

	return nil
}

func (p *packager) buildArchive(ctx context.Context) error {
	report, err := archiver.Build(ctx, p.opts.ProjectDir, p.set, p.desc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArchiveIO, err)
	}

	p.archive = report

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("release.files", report.Files),
		attribute.Int64("release.bytes", report.Bytes),
	)

	logger.InfoKV(ctx, "Archive written", "path", report.Path, "files", report.Files, "bytes", report.Bytes)

	return nil
}

func (p *packager) checksumArtifacts(ctx context.Context) error {
	algorithm, err := checksum.ParseAlgorithm(p.opts.DigestAlgorithm)
	if err != nil {
		return err
	}

	generator, err := checksum.NewGenerator(algorithm)
	if err != nil {
		return err
	}

	records, err := generator.ChecksumAll(ctx, p.opts.DistDir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChecksumIO, err)
	}

	p.checksums = records

	return nil
}

func (p *packager) result() *Result {
	return &Result{
		State:      p.state,
		Selectors:  p.selectors,
		Descriptor: p.desc,
		Archive:    p.archive,
		Checksums:  p.checksums,
	}
}

// logSummary prints what was produced and how to verify it.
func (p *packager) logSummary(ctx context.Context) {
	var builder strings.Builder

	builder.WriteString("Release artifacts in ")
	builder.WriteString(p.opts.DistDir)
	builder.WriteString(":")

	for _, record := range p.checksums {
		builder.WriteString("\n")
		builder.WriteString(filepath.Base(record.Path))
		builder.WriteString("  ")
		builder.WriteString(record.Digest.String())
	}

	builder.WriteString("\nVerify a download by comparing its ")
	builder.WriteString(string(p.checksumAlgorithm()))
	builder.WriteString(" with the matching ")
	builder.WriteString(checksum.Suffix)
	builder.WriteString(" file.")

	logger.Info(ctx, builder.String())
}

func (p *packager) checksumAlgorithm() digest.Algorithm {
	if len(p.checksums) > 0 {
		return p.checksums[0].Digest.Algorithm()
	}

	algorithm, _ := checksum.ParseAlgorithm(p.opts.DigestAlgorithm)

	return algorithm
}
