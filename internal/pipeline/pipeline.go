// Package pipeline runs a transform: index every class first, then rewrite
// and emit each input class.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mabhi256/jshim/internal/classfile"
	"github.com/mabhi256/jshim/internal/emit"
	"github.com/mabhi256/jshim/internal/hierarchy"
	"github.com/mabhi256/jshim/internal/registry"
	"github.com/mabhi256/jshim/internal/rewrite"
)

type Options struct {
	Rules   rewrite.Rules
	Special *rewrite.SpecialCases
	Workers int // rewrite parallelism, <= 0 means GOMAXPROCS

	// Progress is called after each class is rewritten, from worker goroutines
	Progress func(done, total int)
}

// Pipeline owns all state of one run. It moves Indexing -> Rewriting -> Done
// and cannot be reused.
type Pipeline struct {
	mu    sync.Mutex
	state State

	classes  *registry.ClassRegistry
	resolver *hierarchy.Resolver
	rewriter *rewrite.Rewriter
	special  *rewrite.SpecialCases
	emitter  *emit.Emitter
	workers  int
	progress func(done, total int)

	libraries int
}

func New(opts Options) (*Pipeline, error) {
	if err := opts.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	classes := registry.NewClassRegistry()
	resolver := hierarchy.NewResolver(classes, opts.Rules.Marker)

	return &Pipeline{
		state:    StateIndexing,
		classes:  classes,
		resolver: resolver,
		rewriter: rewrite.NewRewriter(opts.Rules, resolver),
		special:  opts.Special,
		emitter:  emit.NewEmitter(opts.Rules.Container),
		workers:  workers,
		progress: opts.Progress,
	}, nil
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) Classes() *registry.ClassRegistry {
	return p.classes
}

func (p *Pipeline) Resolver() *hierarchy.Resolver {
	return p.resolver
}

// transition moves from -> to, failing when the pipeline is elsewhere
func (p *Pipeline) transition(from, to State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != from {
		return fmt.Errorf("%w: want %s, pipeline is %s", ErrInvalidState, from, p.state)
	}
	p.state = to
	return nil
}

// Index registers library sources and parses every input class. It must see
// the whole input set: a superclass may come from any unit. Any failure
// aborts the run since a partial index cannot be trusted.
func (p *Pipeline) Index(libraries []Library, inputs []Input) error {
	if err := p.transition(StateIndexing, StateIndexing); err != nil {
		return err
	}

	for _, lib := range libraries {
		var count int
		var err error
		switch lib.Kind {
		case emit.SinkArchive:
			count, err = p.classes.RegisterArchive(lib.Path)
		case emit.SinkDirectory:
			count, err = p.classes.RegisterDirectory(lib.Path)
		default:
			err = fmt.Errorf("library %s: unsupported source %s", lib.Path, lib.Kind)
		}
		if err != nil {
			return fmt.Errorf("indexing: %w", err)
		}
		slog.Debug("Indexed library", "path", lib.Path, "classes", count)
	}
	p.libraries = len(libraries)

	var errs []error
	for _, in := range inputs {
		if _, err := p.classes.RegisterParsed(in.Data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", in.Path, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	p.classes.Freeze()
	slog.Info("Indexing complete", "libraries", len(libraries), "inputs", len(inputs), "classes", p.classes.Count())

	return p.transition(StateIndexing, StateRewriting)
}

// RewriteClass runs dispatch, rewrite and emission for one input without any
// I/O. It is safe to call concurrently once indexing is complete.
func (p *Pipeline) RewriteClass(in Input) (*ClassResult, error) {
	if state := p.State(); state != StateRewriting {
		return nil, fmt.Errorf("%w: cannot rewrite while %s", ErrInvalidState, state)
	}

	cf, err := classfile.ParseBytes(in.Data)
	if err != nil {
		return nil, err
	}

	name := cf.Name()
	result := &ClassResult{Path: in.Path, Class: name}
	dest := emit.Destination{Kind: in.Kind, Path: in.Path}

	if strategy, ok := p.special.Lookup(name); ok {
		if err := strategy.Apply(cf); err != nil {
			return result, fmt.Errorf("special case %s: %w", strategy.Kind(), err)
		}
		result.Special = strategy.Kind()
		result.Artifacts, err = p.emitter.Emit(dest, name, cf, false)
		return result, err
	}

	if result.Rewrite, err = p.rewriter.Rewrite(cf); err != nil {
		return result, err
	}
	if result.Member, err = p.resolver.IsMember(name); err != nil {
		return result, err
	}

	result.Artifacts, err = p.emitter.Emit(dest, name, cf, result.Member)
	return result, err
}

// Rewrite processes every input on a bounded worker pool and then delivers
// the artifacts to their sinks in input order. Class failures are collected
// in the report, they do not stop other classes.
func (p *Pipeline) Rewrite(ctx context.Context, inputs []Input) (*Report, error) {
	if state := p.State(); state != StateRewriting {
		return nil, fmt.Errorf("%w: cannot rewrite while %s", ErrInvalidState, state)
	}

	results := make([]*ClassResult, len(inputs))
	failures := make([]error, len(inputs))

	var done atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i], failures[i] = p.RewriteClass(in)
			if p.progress != nil {
				p.progress(int(done.Add(1)), len(inputs))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Libraries: p.libraries,
		Indexed:   p.classes.Count(),
		Classes:   len(inputs),
	}

	for i, in := range inputs {
		result, err := results[i], failures[i]
		if err == nil {
			err = deliver(in.Sink, result.Artifacts)
		}
		if err != nil {
			report.Failed = append(report.Failed, classError(in, result, err))
			slog.Error("Class failed", "path", in.Path, "error", err)
			continue
		}

		report.Artifacts += len(result.Artifacts)
		if result.Member {
			report.Members = append(report.Members, result.Class)
		}
		if result.Special != "" {
			report.Special = append(report.Special, result.Class)
		} else if result.Rewrite.Changed() {
			report.Rewritten++
		}
	}
	report.Unresolved = p.resolver.Unresolved()

	if err := p.transition(StateRewriting, StateDone); err != nil {
		return report, err
	}
	return report, report.Err()
}

// Run is Index followed by Rewrite
func (p *Pipeline) Run(ctx context.Context, libraries []Library, inputs []Input) (*Report, error) {
	start := time.Now()
	slog.Info("Transform started", "libraries", len(libraries), "inputs", len(inputs))

	if err := p.Index(libraries, inputs); err != nil {
		return nil, err
	}

	report, err := p.Rewrite(ctx, inputs)
	if report != nil {
		report.Duration = time.Since(start)
		slog.Info("Transform finished",
			"classes", report.Classes,
			"members", len(report.Members),
			"artifacts", report.Artifacts,
			"failed", len(report.Failed),
			"duration", report.Duration)
	}
	return report, err
}

func deliver(sink Sink, artifacts []emit.Artifact) error {
	if sink == nil {
		return errors.New("input has no output sink")
	}
	for _, a := range artifacts {
		var err error
		switch a.Dest.Kind {
		case emit.SinkDirectory:
			err = sink.WriteFile(a.Dest.Path, a.Data)
		case emit.SinkArchive:
			err = sink.WriteEntry(a.Dest.Path, a.Data)
		default:
			err = &emit.UnsupportedSinkError{Kind: a.Dest.Kind, Class: a.Class}
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", a.Dest.Path, err)
		}
	}
	return nil
}

func classError(in Input, result *ClassResult, err error) *ClassError {
	ce := &ClassError{Path: in.Path, Err: err}
	if result != nil {
		ce.Class = result.Class
	} else {
		var malformedErr *classfile.MalformedInputError
		if errors.As(err, &malformedErr) {
			ce.Class = malformedErr.Class
		}
	}
	return ce
}
