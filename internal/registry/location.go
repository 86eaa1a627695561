package registry

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zip"
)

// Location is somewhere the bytes of one class can be read from later
type Location interface {
	Open() (io.ReadCloser, error)
	String() string
}

// FileLocation is a loose .class file on disk
type FileLocation struct {
	Path string
}

func (l FileLocation) Open() (io.ReadCloser, error) {
	return os.Open(l.Path)
}

func (l FileLocation) String() string {
	return l.Path
}

// ArchiveEntry is a .class entry inside a jar. The archive is opened per read
// and released together with the entry.
type ArchiveEntry struct {
	Archive string
	Entry   string
}

func (l ArchiveEntry) String() string {
	return l.Archive + "!/" + l.Entry
}

func (l ArchiveEntry) Open() (io.ReadCloser, error) {
	archive, err := zip.OpenReader(l.Archive)
	if err != nil {
		return nil, fmt.Errorf("unable to open archive: %w", err)
	}

	for _, f := range archive.File {
		if f.Name != l.Entry {
			continue
		}
		entry, err := f.Open()
		if err != nil {
			archive.Close()
			return nil, fmt.Errorf("unable to open %s: %w", l, err)
		}
		return &archiveEntryReader{ReadCloser: entry, archive: archive}, nil
	}

	archive.Close()
	return nil, fmt.Errorf("entry %s: %w", l, os.ErrNotExist)
}

type archiveEntryReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (r *archiveEntryReader) Close() error {
	return errors.Join(r.ReadCloser.Close(), r.archive.Close())
}
