package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sghaida/buildergen/internal/logfields"
)

// DefaultGeneratorName is the identity written into the provenance marker.
const DefaultGeneratorName = "github.com/sghaida/buildergen"

// Generator renders builders for class descriptors and emits them to a Sink.
//
// A Generator holds no per-call state; Generate may be called concurrently as
// long as the sink tolerates it (DirSink and MemorySink do).
type Generator struct {
	target   Target
	sink     Sink
	logger   *slog.Logger
	now      func() time.Time
	recorder Recorder
	name     string
}

// Option configures a Generator.
type Option func(*Generator)

// WithTarget selects the output language. Default: JavaTarget.
func WithTarget(t Target) Option {
	return func(g *Generator) {
		if t != nil {
			g.target = t
		}
	}
}

// WithLogger sets the diagnostics sink. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock replaces the wall clock used for the provenance timestamp.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithRecorder sets the metrics recorder. Default: NoopRecorder.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) {
		if r != nil {
			g.recorder = r
		}
	}
}

// WithGeneratorName overrides the generator identity in the provenance marker.
func WithGeneratorName(name string) Option {
	return func(g *Generator) {
		if name != "" {
			g.name = name
		}
	}
}

// New returns a Generator writing to sink.
func New(sink Sink, opts ...Option) *Generator {
	g := &Generator{
		target:   JavaTarget{},
		sink:     sink,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		recorder: NoopRecorder{},
		name:     DefaultGeneratorName,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Target returns the configured target.
func (g *Generator) Target() Target { return g.target }

// Render validates d and renders its builder without touching the sink.
func (g *Generator) Render(d ClassDescriptor) (GeneratedUnit, error) {
	if !d.Kind.IsClassLike() {
		return GeneratedUnit{}, fmt.Errorf("%w: %s is %s", ErrNotClass, d.QualifiedName, d.Kind)
	}
	if err := Validate(d); err != nil {
		return GeneratedUnit{}, err
	}

	dest, err := g.target.Path(d)
	if err != nil {
		return GeneratedUnit{}, &DescriptorError{QualifiedName: d.QualifiedName, Reason: "no destination", Err: err}
	}

	timestamp := g.now().UTC().Format(time.RFC3339Nano)

	start := time.Now()
	src, err := g.target.Render(NewModel(g.target, d, g.name, timestamp))
	if err != nil {
		return GeneratedUnit{}, &DescriptorError{QualifiedName: d.QualifiedName, Reason: "render " + g.target.Name(), Err: err}
	}
	g.recorder.ObserveRender(g.target.Name(), time.Since(start))

	return GeneratedUnit{
		OutputQualifiedName: d.OutputQualifiedName(),
		Path:                dest,
		SourceText:          string(src),
	}, nil
}

// Generate renders d and writes the unit to the sink. Sink failures are
// returned as *GenerationError; no unit is returned in that case.
func (g *Generator) Generate(d ClassDescriptor) (GeneratedUnit, error) {
	unit, err := g.Render(d)
	if err != nil {
		return GeneratedUnit{}, err
	}
	if err := g.emit(unit); err != nil {
		g.recorder.IncFatal(g.target.Name())
		return GeneratedUnit{}, err
	}
	g.recorder.IncGenerated(g.target.Name())
	return unit, nil
}

// emit opens the destination, writes the whole unit and always closes it.
func (g *Generator) emit(unit GeneratedUnit) (err error) {
	w, err := g.sink.Open(Destination{QualifiedName: unit.OutputQualifiedName, Path: unit.Path})
	if err != nil {
		return &GenerationError{Unit: unit.OutputQualifiedName, Op: "open", Err: err}
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = &GenerationError{Unit: unit.OutputQualifiedName, Op: "close", Err: cerr}
		}
	}()

	if _, werr := io.WriteString(w, unit.SourceText); werr != nil {
		return &GenerationError{Unit: unit.OutputQualifiedName, Op: "write", Err: werr}
	}
	return nil
}

// SkippedDescriptor records a descriptor a pass did not generate.
type SkippedDescriptor struct {
	QualifiedName string
	Source        string
	Reason        string
	Err           error
}

// Report summarizes one generation pass.
type Report struct {
	PassID  string
	Units   []GeneratedUnit
	Skipped []SkippedDescriptor
}

// Run executes one generation pass over descriptors, in order.
//
// Non-class elements and invalid descriptors are skipped with a warning. The
// first *GenerationError aborts the pass; the returned report then holds the
// units emitted before the failure. Cancelling ctx stops the pass between
// descriptors.
func (g *Generator) Run(ctx context.Context, descriptors []ClassDescriptor) (Report, error) {
	report := Report{PassID: uuid.NewString()}
	log := g.logger.With(logfields.PassID(report.PassID), logfields.Target(g.target.Name()))

	start := time.Now()
	defer func() { g.recorder.ObservePass(time.Since(start)) }()

	log.Debug("generation pass started", "descriptors", len(descriptors))

	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		unit, err := g.Generate(d)
		switch {
		case err == nil:
			report.Units = append(report.Units, unit)
			log.Debug("builder generated", logfields.Unit(unit.OutputQualifiedName), logfields.Path(unit.Path))
		case errors.Is(err, ErrNotClass):
			g.skip(&report, log, d, SkipNotClass, err)
		case IsFatal(err):
			log.Error("generation pass aborted",
				logfields.Unit(d.OutputQualifiedName()),
				logfields.Source(d.Source),
				logfields.Error(err),
			)
			return report, err
		default:
			g.skip(&report, log, d, SkipInvalid, err)
		}
	}

	log.Info("generation pass finished",
		logfields.Units(len(report.Units)),
		logfields.Skipped(len(report.Skipped)),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000),
	)
	return report, nil
}

func (g *Generator) skip(report *Report, log *slog.Logger, d ClassDescriptor, reason string, err error) {
	report.Skipped = append(report.Skipped, SkippedDescriptor{
		QualifiedName: d.QualifiedName,
		Source:        d.Source,
		Reason:        reason,
		Err:           err,
	})
	g.recorder.IncSkipped(reason)

	msg := "descriptor is invalid, skipping it"
	if reason == SkipNotClass {
		msg = "element is not a class, ignoring it"
	}
	log.Warn(msg,
		logfields.Class(d.QualifiedName),
		logfields.Source(d.Source),
		logfields.Reason(reason),
		logfields.Error(err),
	)
}
