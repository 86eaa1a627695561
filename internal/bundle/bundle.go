// Package bundle reads the class trees and jars a transform consumes and
// writes what it produces.
package bundle

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"github.com/mabhi256/jshim/internal/emit"
	"github.com/mabhi256/jshim/internal/pipeline"
)

var archiveExtensions = []string{".jar", ".zip", ".apk"}

// Resource is a non-class file carried through a transform unchanged
type Resource struct {
	Path string // slash separated, relative to the unit root
	Data []byte
}

// Unit is one input given to a transform: a directory tree or an archive
type Unit struct {
	Source    string
	Kind      emit.SinkKind
	Classes   []pipeline.Input // Sink is unset until Attach
	Resources []Resource
}

// Classify reports how a path is read: as a directory tree or as an archive
func Classify(path string) (emit.SinkKind, error) {
	info, err := os.Stat(path)
	if err != nil {
		return emit.SinkUnknown, err
	}
	if info.IsDir() {
		return emit.SinkDirectory, nil
	}
	if IsArchive(path) {
		return emit.SinkArchive, nil
	}
	return emit.SinkUnknown, fmt.Errorf("%s is neither a directory nor an archive", path)
}

func IsArchive(path string) bool {
	return slices.Contains(archiveExtensions, strings.ToLower(filepath.Ext(path)))
}

func isClassPath(path string) bool {
	return strings.HasSuffix(path, ".class")
}

// Load reads every file of an input unit into memory
func Load(path string) (*Unit, error) {
	kind, err := Classify(path)
	if err != nil {
		return nil, err
	}

	unit := &Unit{Source: path, Kind: kind}
	switch kind {
	case emit.SinkDirectory:
		err = unit.loadDirectory()
	case emit.SinkArchive:
		err = unit.loadArchive()
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded input", "source", path, "kind", kind,
		"classes", len(unit.Classes), "resources", len(unit.Resources))
	return unit, nil
}

func (u *Unit) loadDirectory() error {
	var paths []string
	err := filepath.WalkDir(u.Source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to walk %s: %w", u.Source, err)
	}

	contents := make([][]byte, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			contents[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, path := range paths {
		rel, err := filepath.Rel(u.Source, path)
		if err != nil {
			return err
		}
		u.add(filepath.ToSlash(rel), contents[i])
	}
	return nil
}

func (u *Unit) loadArchive() error {
	archive, err := zip.OpenReader(u.Source)
	if err != nil {
		return fmt.Errorf("unable to open archive %s: %w", u.Source, err)
	}
	defer archive.Close()

	for _, f := range archive.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return fmt.Errorf("%s!%s: %w", u.Source, f.Name, err)
		}
		u.add(f.Name, data)
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (u *Unit) add(path string, data []byte) {
	// module descriptors and signed-jar metadata are not rewritable classes
	if isClassPath(path) && !strings.HasPrefix(path, "META-INF/") && !strings.HasSuffix(path, "module-info.class") {
		u.Classes = append(u.Classes, pipeline.Input{Path: path, Kind: u.Kind, Data: data})
		return
	}
	u.Resources = append(u.Resources, Resource{Path: path, Data: data})
}

// Attach routes the unit's artifacts to sink
func (u *Unit) Attach(sink pipeline.Sink) {
	for i := range u.Classes {
		u.Classes[i].Sink = sink
	}
}

// CopyResources writes every non-class file to sink unchanged
func (u *Unit) CopyResources(sink pipeline.Sink) error {
	for _, r := range u.Resources {
		var err error
		if u.Kind == emit.SinkArchive {
			err = sink.WriteEntry(r.Path, r.Data)
		} else {
			err = sink.WriteFile(r.Path, r.Data)
		}
		if err != nil {
			return fmt.Errorf("copying %s: %w", r.Path, err)
		}
	}
	return nil
}

// OutputPath is where the unit's output lives below root: the directory or
// archive keeps its base name.
func (u *Unit) OutputPath(root string) string {
	return filepath.Join(root, filepath.Base(filepath.Clean(u.Source)))
}
