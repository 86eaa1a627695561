package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/mabhi256/jshim/internal/emit"
	"github.com/mabhi256/jshim/internal/rewrite"
)

type State int

const (
	StateIndexing State = iota
	StateRewriting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIndexing:
		return "indexing"
	case StateRewriting:
		return "rewriting"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var ErrInvalidState = errors.New("invalid pipeline state")

// Sink receives emitted artifacts. The pipeline never opens output files.
type Sink interface {
	// WriteFile writes data to a slash-separated path below the sink's root
	WriteFile(path string, data []byte) error
	// WriteEntry appends data as the next archive entry
	WriteEntry(name string, data []byte) error
}

// Library is a class source that is indexed but never rewritten
type Library struct {
	Path string
	Kind emit.SinkKind
}

// Input is one owned class file: indexed, rewritten and emitted to Sink
type Input struct {
	Path string // relative path or archive entry name
	Kind emit.SinkKind
	Data []byte
	Sink Sink
}

// ClassResult is everything one class rewrite produced, before any I/O
type ClassResult struct {
	Path      string
	Class     string
	Member    bool
	Special   rewrite.StrategyKind // empty when the default rules ran
	Rewrite   *rewrite.Result      // nil for special cases
	Artifacts []emit.Artifact
}

// ClassError attributes a rewriting failure to one input
type ClassError struct {
	Path  string
	Class string // empty when the bytes could not be parsed
	Err   error
}

func (e *ClassError) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Path, e.Class, e.Err)
}

func (e *ClassError) Unwrap() error {
	return e.Err
}

type Report struct {
	Libraries  int
	Indexed    int
	Classes    int
	Rewritten  int // classes whose references changed
	Members    []string
	Special    []string
	Artifacts  int
	Unresolved []string
	Failed     []*ClassError
	Duration   time.Duration
}

// Err joins every class failure, nil when the run succeeded
func (r *Report) Err() error {
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}
