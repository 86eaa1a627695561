// Package emit turns rewritten classes into output artifacts with destination
// hints. It performs no I/O.
package emit

import (
	"fmt"
	"path"

	"github.com/mabhi256/jshim/internal/classfile"
)

type SinkKind int

const (
	SinkUnknown SinkKind = iota
	SinkDirectory
	SinkArchive
)

func (k SinkKind) String() string {
	switch k {
	case SinkDirectory:
		return "directory"
	case SinkArchive:
		return "archive"
	default:
		return fmt.Sprintf("SinkKind(%d)", int(k))
	}
}

// Destination is where an artifact goes. Path is slash separated: relative
// to the directory root, or the archive entry name.
type Destination struct {
	Kind SinkKind
	Path string
}

type Artifact struct {
	Class string // binary name declared by Data
	Data  []byte
	Dest  Destination
}

// UnsupportedSinkError is returned when a destination kind has no naming rule
type UnsupportedSinkError struct {
	Kind  SinkKind
	Class string
}

func (e *UnsupportedSinkError) Error() string {
	return fmt.Sprintf("class %s: unsupported output sink %s", e.Class, e.Kind)
}

type Emitter struct {
	container string
}

// NewEmitter takes the binary name of the stand-in superclass
func NewEmitter(container string) *Emitter {
	return &Emitter{container: container}
}

func (e *Emitter) Container() string {
	return e.container
}

// Emit serializes cf. A non-member yields one artifact at dest. A hierarchy
// member yields the stand-in `originalName extends container` at dest
// followed by the rewritten class at a sibling path named after it.
func (e *Emitter) Emit(dest Destination, originalName string, cf *classfile.ClassFile, member bool) ([]Artifact, error) {
	if dest.Kind != SinkDirectory && dest.Kind != SinkArchive {
		return nil, &UnsupportedSinkError{Kind: dest.Kind, Class: originalName}
	}

	data, err := cf.Encode()
	if err != nil {
		return nil, err
	}

	if !member {
		return []Artifact{{Class: cf.Name(), Data: data, Dest: dest}}, nil
	}

	standIn, err := e.StandIn(originalName, cf.MajorVersion)
	if err != nil {
		return nil, err
	}

	return []Artifact{
		{Class: originalName, Data: standIn, Dest: dest},
		{Class: cf.Name(), Data: data, Dest: Destination{Kind: dest.Kind, Path: relocate(dest, cf)}},
	}, nil
}

// StandIn fabricates the container subclass that takes the original's place
func (e *Emitter) StandIn(name string, majorVersion uint16) ([]byte, error) {
	cf, err := classfile.NewClass(name, e.container, majorVersion)
	if err != nil {
		return nil, fmt.Errorf("fabricating stand-in for %s: %w", name, err)
	}
	return cf.Encode()
}

// Directory outputs keep the input's folder and swap the file's base name for
// the class's simple name; archive outputs use the class's own entry path.
func relocate(dest Destination, cf *classfile.ClassFile) string {
	if dest.Kind == SinkDirectory {
		return path.Join(path.Dir(dest.Path), cf.SimpleName()+".class")
	}
	return classfile.EntryPath(cf.Name())
}
