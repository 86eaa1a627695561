package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zip"

	"github.com/mabhi256/jshim/internal/emit"
	"github.com/mabhi256/jshim/internal/pipeline"
)

var ErrWrongSink = errors.New("sink does not accept this kind of output")

// Sink is a pipeline sink that owns an output and must be closed
type Sink interface {
	pipeline.Sink
	Close() error
}

// DirSink writes files below Root, creating directories as needed
type DirSink struct {
	Root string
}

func NewDirSink(root string) (*DirSink, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("unable to create %s: %w", root, err)
	}
	return &DirSink{Root: root}, nil
}

func (s *DirSink) WriteFile(path string, data []byte) error {
	local := filepath.FromSlash(path)
	if !filepath.IsLocal(local) {
		return fmt.Errorf("path %q escapes %s", path, s.Root)
	}

	target := filepath.Join(s.Root, local)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0644)
}

func (s *DirSink) WriteEntry(name string, data []byte) error {
	return fmt.Errorf("%w: entry %s into directory %s", ErrWrongSink, name, s.Root)
}

func (s *DirSink) Close() error {
	return nil
}

// ArchiveSink writes entries into a new jar in call order
type ArchiveSink struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *zip.Writer
	names  map[string]struct{}
}

func NewArchiveSink(path string) (*ArchiveSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("unable to create %s: %w", filepath.Dir(path), err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create archive %s: %w", path, err)
	}
	return &ArchiveSink{
		path:   path,
		file:   file,
		writer: zip.NewWriter(file),
		names:  make(map[string]struct{}),
	}, nil
}

func (s *ArchiveSink) WriteFile(path string, data []byte) error {
	return fmt.Errorf("%w: file %s into archive %s", ErrWrongSink, path, s.path)
}

func (s *ArchiveSink) WriteEntry(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.names[name]; dup {
		return fmt.Errorf("duplicate entry %s in %s", name, s.path)
	}
	s.names[name] = struct{}{}

	w, err := s.writer.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Close finishes the central directory and closes the file
func (s *ArchiveSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.writer.Close(), s.file.Close())
}

// OpenSink creates the output for u below root
func OpenSink(u *Unit, root string) (Sink, error) {
	switch u.Kind {
	case emit.SinkDirectory:
		return NewDirSink(u.OutputPath(root))
	case emit.SinkArchive:
		return NewArchiveSink(u.OutputPath(root))
	default:
		return nil, &emit.UnsupportedSinkError{Kind: u.Kind, Class: u.Source}
	}
}
