package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zip"
	"github.com/mabhi256/jshim/internal/classfile"
)

var ErrFrozen = errors.New("class registry is frozen")

type ClassInfo struct {
	Name     string
	Location Location // nil for classes parsed at registration
	Order    int      // registration order

	once  sync.Once
	class *classfile.ClassFile
	err   error
}

// IsParsed reports whether the class was registered from bytes
func (ci *ClassInfo) IsParsed() bool {
	return ci.Location == nil
}

// load materialises the class exactly once, even under concurrent lookups
func (ci *ClassInfo) load() (*classfile.ClassFile, error) {
	ci.once.Do(func() {
		ci.class, ci.err = parseLocation(ci.Name, ci.Location)
	})
	return ci.class, ci.err
}

func parseLocation(name string, loc Location) (*classfile.ClassFile, error) {
	rc, err := loc.Open()
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", name, err)
	}
	defer rc.Close()

	cf, err := classfile.Parse(rc)
	if err != nil {
		var malformedErr *classfile.MalformedInputError
		if errors.As(err, &malformedErr) && malformedErr.Class == "" {
			malformedErr.Class = name
		}
		return nil, fmt.Errorf("%s: %w", loc, err)
	}

	if cf.Name() != name {
		return nil, &classfile.MalformedInputError{
			Class: name,
			Err:   fmt.Errorf("%s declares class %s", loc, cf.Name()),
		}
	}
	return cf, nil
}

// ClassRegistry catalogs every class known to one transform run. It grows
// while indexing and is read-only once frozen.
type ClassRegistry struct {
	classes *BaseRegistry[string, *ClassInfo]
	frozen  atomic.Bool
	order   atomic.Int64
	lookups atomic.Int64
}

func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{
		classes: NewBaseRegistry[string, *ClassInfo](),
	}
}

// RegisterLocation records where a class can be read from without parsing it.
// The first location registered for a name wins.
func (cr *ClassRegistry) RegisterLocation(name string, loc Location) error {
	if cr.frozen.Load() {
		return ErrFrozen
	}

	info := &ClassInfo{Name: name, Location: loc, Order: int(cr.order.Add(1))}
	if existing, added := cr.classes.AddIfAbsent(name, info); !added {
		slog.Debug("Class already registered, ignoring location",
			"class", name, "location", loc, "existing", describe(existing))
	}
	return nil
}

// RegisterParsed parses data now and stores it under its self-reported name.
// A parsed class shadows a library location of the same name; two parsed
// classes with the same name are an error.
func (cr *ClassRegistry) RegisterParsed(data []byte) (string, error) {
	if cr.frozen.Load() {
		return "", ErrFrozen
	}

	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return "", err
	}
	name := cf.Name()

	if existing, exists := cr.classes.Get(name); exists {
		if existing.IsParsed() {
			return "", &classfile.MalformedInputError{Class: name, Err: errors.New("class defined twice in the input")}
		}
		slog.Debug("Input class shadows library class", "class", name, "library", existing.Location)
	}

	info := &ClassInfo{Name: name, Order: int(cr.order.Add(1)), class: cf}
	info.once.Do(func() {})
	cr.classes.Add(name, info)
	return name, nil
}

// RegisterArchive registers every class entry of a jar. The archive is only
// listed here; entries are read on first lookup.
func (cr *ClassRegistry) RegisterArchive(path string) (int, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("unable to open archive %s: %w", path, err)
	}
	defer archive.Close()

	count := 0
	for _, f := range archive.File {
		name, ok := ClassNameFromPath(f.Name)
		if !ok || f.FileInfo().IsDir() {
			continue
		}
		if err := cr.RegisterLocation(name, ArchiveEntry{Archive: path, Entry: f.Name}); err != nil {
			return count, err
		}
		count++
	}

	slog.Debug("Registered archive", "archive", path, "classes", count)
	return count, nil
}

// RegisterDirectory registers every .class file below root
func (cr *ClassRegistry) RegisterDirectory(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name, ok := ClassNameFromPath(filepath.ToSlash(rel))
		if !ok {
			return nil
		}
		if err := cr.RegisterLocation(name, FileLocation{Path: path}); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("unable to walk %s: %w", root, err)
	}

	slog.Debug("Registered directory", "dir", root, "classes", count)
	return count, nil
}

// Lookup returns the class, materialising it on first access. Unknown names
// are reported as (nil, false, nil), not as an error.
func (cr *ClassRegistry) Lookup(name string) (*classfile.ClassFile, bool, error) {
	cr.lookups.Add(1)

	info, exists := cr.classes.Get(name)
	if !exists {
		return nil, false, nil
	}

	cf, err := info.load()
	if err != nil {
		return nil, true, err
	}
	return cf, true, nil
}

func (cr *ClassRegistry) GetInfo(name string) (*ClassInfo, bool) {
	return cr.classes.Get(name)
}

// Freeze ends the indexing phase
func (cr *ClassRegistry) Freeze() {
	cr.frozen.Store(true)
}

func (cr *ClassRegistry) IsFrozen() bool {
	return cr.frozen.Load()
}

// Lookups counts Lookup calls, hits and misses alike
func (cr *ClassRegistry) Lookups() int64 {
	return cr.lookups.Load()
}

func (cr *ClassRegistry) Count() int {
	return cr.classes.Count()
}

func (cr *ClassRegistry) Names() []string {
	return cr.classes.Keys()
}

// ClassNameFromPath maps a/b/C.class to a.b.C. Multi-release and module
// descriptors are not classes of the bundle.
func ClassNameFromPath(path string) (string, bool) {
	if !strings.HasSuffix(path, ".class") {
		return "", false
	}
	if strings.HasPrefix(path, "META-INF/") || strings.HasSuffix(path, "module-info.class") {
		return "", false
	}
	return classfile.BinaryName(strings.TrimSuffix(path, ".class")), true
}

func describe(info *ClassInfo) string {
	if info.IsParsed() {
		return "parsed"
	}
	return info.Location.String()
}
