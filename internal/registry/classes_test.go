package registry

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/mabhi256/jshim/internal/classfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classBytes(t *testing.T, name, super string) []byte {
	t.Helper()
	cf, err := classfile.NewClass(name, super, classfile.DefaultMajorVersion)
	require.NoError(t, err)
	data, err := cf.Encode()
	require.NoError(t, err)
	return data
}

func writeJar(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lib.jar")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, data := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestClassRegistry_RegisterParsed(t *testing.T) {
	reg := NewClassRegistry()

	name, err := reg.RegisterParsed(classBytes(t, "com.app.Y", "com.app.X"))
	require.NoError(t, err)
	assert.Equal(t, "com.app.Y", name)

	cf, found, err := reg.Lookup("com.app.Y")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "com.app.Y", cf.Name())

	t.Run("unknown names are absent, not errors", func(t *testing.T) {
		cf, found, err := reg.Lookup("com.app.Missing")
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, cf)
	})

	t.Run("malformed bytes fail at registration", func(t *testing.T) {
		_, err := reg.RegisterParsed([]byte{1, 2, 3})
		var malformedErr *classfile.MalformedInputError
		assert.True(t, errors.As(err, &malformedErr))
	})

	t.Run("duplicate input class", func(t *testing.T) {
		_, err := reg.RegisterParsed(classBytes(t, "com.app.Y", "java.lang.Object"))
		assert.Error(t, err)
	})
}

func TestClassRegistry_RegisterArchive(t *testing.T) {
	jar := writeJar(t, map[string][]byte{
		"com/lib/X.class":           classBytes(t, "com.lib.X", "android.app.Fragment"),
		"com/lib/Broken.class":      {0xCA, 0xFE},
		"META-INF/MANIFEST.MF":      []byte("Manifest-Version: 1.0\n"),
		"com/lib/res/strings.txt":   []byte("hello"),
		"com/lib/Wrong.class":       classBytes(t, "com.lib.Other", "java.lang.Object"),
		"META-INF/versions/9/A.class": classBytes(t, "A", "java.lang.Object"),
	})

	reg := NewClassRegistry()
	count, err := reg.RegisterArchive(jar)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []string{"com.lib.Broken", "com.lib.Wrong", "com.lib.X"}, reg.Names())

	t.Run("lazy parse", func(t *testing.T) {
		cf, found, err := reg.Lookup("com.lib.X")
		require.NoError(t, err)
		require.True(t, found)
		super, _ := cf.SuperName()
		assert.Equal(t, "android.app.Fragment", super)

		again, _, _ := reg.Lookup("com.lib.X")
		assert.Same(t, cf, again, "materialised once")
	})

	t.Run("malformed content is detected lazily", func(t *testing.T) {
		_, found, err := reg.Lookup("com.lib.Broken")
		assert.True(t, found)
		var malformedErr *classfile.MalformedInputError
		require.True(t, errors.As(err, &malformedErr))
		assert.Equal(t, "com.lib.Broken", malformedErr.Class)
	})

	t.Run("entry declaring another class", func(t *testing.T) {
		_, _, err := reg.Lookup("com.lib.Wrong")
		var malformedErr *classfile.MalformedInputError
		assert.True(t, errors.As(err, &malformedErr))
	})

	t.Run("missing archive is an I/O error", func(t *testing.T) {
		_, err := NewClassRegistry().RegisterArchive(filepath.Join(t.TempDir(), "nope.jar"))
		assert.Error(t, err)
	})
}

func TestClassRegistry_ParsedShadowsLibrary(t *testing.T) {
	jar := writeJar(t, map[string][]byte{
		"com/app/Y.class": classBytes(t, "com.app.Y", "java.lang.Object"),
	})

	reg := NewClassRegistry()
	_, err := reg.RegisterArchive(jar)
	require.NoError(t, err)
	_, err = reg.RegisterParsed(classBytes(t, "com.app.Y", "com.app.X"))
	require.NoError(t, err)

	cf, _, err := reg.Lookup("com.app.Y")
	require.NoError(t, err)
	super, _ := cf.SuperName()
	assert.Equal(t, "com.app.X", super)
}

func TestClassRegistry_RegisterDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "com", "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "com", "app", "A.class"), classBytes(t, "com.app.A", "java.lang.Object"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "com", "app", "notes.txt"), []byte("x"), 0o644))

	reg := NewClassRegistry()
	count, err := reg.RegisterDirectory(root)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	cf, found, err := reg.Lookup("com.app.A")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "com.app.A", cf.Name())
}

func TestClassRegistry_Freeze(t *testing.T) {
	reg := NewClassRegistry()
	reg.Freeze()

	_, err := reg.RegisterParsed(classBytes(t, "a.B", "java.lang.Object"))
	assert.ErrorIs(t, err, ErrFrozen)
	assert.ErrorIs(t, reg.RegisterLocation("a.C", FileLocation{Path: "C.class"}), ErrFrozen)
}

func TestClassRegistry_ConcurrentLookups(t *testing.T) {
	jar := writeJar(t, map[string][]byte{
		"com/lib/X.class": classBytes(t, "com.lib.X", "java.lang.Object"),
	})
	reg := NewClassRegistry()
	_, err := reg.RegisterArchive(jar)
	require.NoError(t, err)
	reg.Freeze()

	results := make([]*classfile.ClassFile, 16)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _, _ = reg.Lookup("com.lib.X")
		}()
	}
	wg.Wait()

	for _, cf := range results {
		assert.Same(t, results[0], cf)
	}
	assert.EqualValues(t, 16, reg.Lookups())
}
