package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/mabhi256/jshim/internal/classfile"
	"github.com/mabhi256/jshim/internal/emit"
	"github.com/mabhi256/jshim/internal/rewrite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	files   map[string][]byte
	entries []string
	data    map[string][]byte
}

func newMemSink() *memSink {
	return &memSink{files: map[string][]byte{}, data: map[string][]byte{}}
}

func (s *memSink) WriteFile(path string, data []byte) error {
	s.files[path] = data
	return nil
}

func (s *memSink) WriteEntry(name string, data []byte) error {
	s.entries = append(s.entries, name)
	s.data[name] = data
	return nil
}

type classSpec struct {
	name, super string
	fields      map[string]string
}

func classBytes(t *testing.T, spec classSpec) []byte {
	t.Helper()
	cf, err := classfile.NewClass(spec.name, spec.super, classfile.DefaultMajorVersion)
	require.NoError(t, err)
	for name, desc := range spec.fields {
		require.NoError(t, cf.AddField(0, name, desc))
	}
	data, err := cf.Encode()
	require.NoError(t, err)
	return data
}

func libraryJar(t *testing.T, specs ...classSpec) Library {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.jar")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for _, spec := range specs {
		entry, err := w.Create(classfile.EntryPath(spec.name))
		require.NoError(t, err)
		_, err = entry.Write(classBytes(t, spec))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return Library{Path: path, Kind: emit.SinkArchive}
}

func dirInput(t *testing.T, sink Sink, spec classSpec) Input {
	return Input{
		Path: classfile.EntryPath(spec.name),
		Kind: emit.SinkDirectory,
		Data: classBytes(t, spec),
		Sink: sink,
	}
}

func parsed(t *testing.T, data []byte) *classfile.ClassFile {
	t.Helper()
	cf, err := classfile.ParseBytes(data)
	require.NoError(t, err)
	return cf
}

func superOf(t *testing.T, data []byte) string {
	super, _ := parsed(t, data).SuperName()
	return super
}

func newPipeline(t *testing.T, special *rewrite.SpecialCases) *Pipeline {
	t.Helper()
	p, err := New(Options{Rules: rewrite.DefaultRules(), Special: special, Workers: 4})
	require.NoError(t, err)
	return p
}

func TestPipeline_Scenarios(t *testing.T) {
	lib := libraryJar(t, classSpec{name: "com.lib.X", super: rewrite.AndroidFragmentClassname})
	sink := newMemSink()

	inputs := []Input{
		// W comes first: Y is only defined later in the enumeration
		dirInput(t, sink, classSpec{name: "com.app.W", super: "java.lang.Object", fields: map[string]string{"y": "Lcom/app/Y;"}}),
		dirInput(t, sink, classSpec{name: "com.app.Y", super: "com.lib.X"}),
		dirInput(t, sink, classSpec{name: "com.app.Z", super: rewrite.AndroidActivityClassname}),
	}

	p := newPipeline(t, nil)
	report, err := p.Run(context.Background(), []Library{lib}, inputs)
	require.NoError(t, err)
	assert.Equal(t, StateDone, p.State())

	t.Run("A: member yields stand-in and renamed body", func(t *testing.T) {
		standIn := parsed(t, sink.files["com/app/Y.class"])
		assert.Equal(t, "com.app.Y", standIn.Name())
		assert.Equal(t, rewrite.ContainerFragmentClassname, superOf(t, sink.files["com/app/Y.class"]))

		body := parsed(t, sink.files["com/app/Y_.class"])
		assert.Equal(t, "com.app.Y_", body.Name())
		assert.Equal(t, "com.lib.X_", superOf(t, sink.files["com/app/Y_.class"]))
	})

	t.Run("B: base type substitution only", func(t *testing.T) {
		z := sink.files["com/app/Z.class"]
		assert.Equal(t, "com.app.Z", parsed(t, z).Name())
		assert.Equal(t, rewrite.MockActivityClassname, superOf(t, z))
		assert.NotContains(t, sink.files, "com/app/Z_.class")
	})

	t.Run("C: reference to a member is suffixed", func(t *testing.T) {
		w := parsed(t, sink.files["com/app/W.class"])
		assert.Equal(t, "com.app.W", w.Name())
		assert.Equal(t, map[string]string{"y": "Lcom/app/Y_;"}, w.FieldDescriptors())
		assert.NotContains(t, sink.files, "com/app/W_.class")
	})

	assert.Len(t, sink.files, 4)
	assert.Equal(t, 4, report.Artifacts)
	assert.Equal(t, 3, report.Classes)
	assert.Equal(t, 4, report.Indexed)
	assert.Equal(t, []string{"com.app.Y"}, report.Members)
	assert.Equal(t, 3, report.Rewritten)
	assert.Empty(t, report.Failed)
}

func TestPipeline_ArchiveInput(t *testing.T) {
	sink := newMemSink()
	in := dirInput(t, sink, classSpec{name: "com.app.Y", super: rewrite.AndroidFragmentClassname})
	in.Kind = emit.SinkArchive

	p := newPipeline(t, nil)
	_, err := p.Run(context.Background(), nil, []Input{in})
	require.NoError(t, err)

	assert.Equal(t, []string{"com/app/Y.class", "com/app/Y_.class"}, sink.entries)
	assert.Equal(t, rewrite.ContainerFragmentClassname, superOf(t, sink.data["com/app/Y.class"]))
	assert.Equal(t, rewrite.AndroidFragmentClassname, superOf(t, sink.data["com/app/Y_.class"]))
}

func TestPipeline_SpecialCase(t *testing.T) {
	special := rewrite.NewSpecialCases(map[string]rewrite.Strategy{
		"com.app.Host": rewrite.Superclass{Superclass: "com.plugin.Host"},
	})
	sink := newMemSink()
	inputs := []Input{
		dirInput(t, sink, classSpec{name: "com.lib.F", super: rewrite.AndroidFragmentClassname}),
		dirInput(t, sink, classSpec{
			name:   "com.app.Host",
			super:  rewrite.AndroidActivityClassname,
			fields: map[string]string{"f": "Lcom/lib/F;", "app": "Landroid/app/Application;"},
		}),
	}

	p := newPipeline(t, special)
	report, err := p.Run(context.Background(), nil, inputs)
	require.NoError(t, err)

	host := sink.files["com/app/Host.class"]
	assert.Equal(t, "com.plugin.Host", superOf(t, host))
	assert.Equal(t, map[string]string{
		"f":   "Lcom/lib/F;",
		"app": "Landroid/app/Application;",
	}, parsed(t, host).FieldDescriptors(), "neither substitution nor suffixing ran")
	assert.Equal(t, []string{"com.app.Host"}, report.Special)
	assert.NotContains(t, sink.files, "com/app/Host_.class")
}

func TestPipeline_CollectsClassErrors(t *testing.T) {
	sink := newMemSink()
	inputs := []Input{
		dirInput(t, sink, classSpec{name: "com.app.A", super: "com.app.B"}),
		dirInput(t, sink, classSpec{name: "com.app.B", super: "com.app.A"}),
		dirInput(t, sink, classSpec{name: "com.app.Ok", super: "java.lang.Object"}),
		{Path: "Odd.class", Kind: emit.SinkUnknown, Data: classBytes(t, classSpec{name: "Odd", super: "java.lang.Object"}), Sink: sink},
	}

	p := newPipeline(t, nil)
	report, err := p.Run(context.Background(), nil, inputs)
	require.Error(t, err)
	require.NotNil(t, report)

	require.Len(t, report.Failed, 3)
	assert.Equal(t, "com.app.A", report.Failed[0].Class)
	assert.Equal(t, "com.app.B", report.Failed[1].Class)

	var malformedErr *classfile.MalformedInputError
	assert.True(t, errors.As(err, &malformedErr))
	var sinkErr *emit.UnsupportedSinkError
	assert.True(t, errors.As(err, &sinkErr))

	assert.Contains(t, sink.files, "com/app/Ok.class", "healthy classes are still emitted")
	assert.Equal(t, StateDone, p.State())
}

func TestPipeline_IndexingErrorsAbort(t *testing.T) {
	sink := newMemSink()

	t.Run("malformed input", func(t *testing.T) {
		p := newPipeline(t, nil)
		_, err := p.Run(context.Background(), nil, []Input{{Path: "Bad.class", Kind: emit.SinkDirectory, Data: []byte("nope"), Sink: sink}})
		var malformedErr *classfile.MalformedInputError
		assert.True(t, errors.As(err, &malformedErr))
		assert.Equal(t, StateIndexing, p.State())
	})

	t.Run("missing library", func(t *testing.T) {
		p := newPipeline(t, nil)
		err := p.Index([]Library{{Path: filepath.Join(t.TempDir(), "gone.jar"), Kind: emit.SinkArchive}}, nil)
		assert.Error(t, err)
	})

	assert.Empty(t, sink.files)
}

func TestPipeline_StateMachine(t *testing.T) {
	p := newPipeline(t, nil)

	_, err := p.Rewrite(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, p.Index(nil, nil))
	assert.Equal(t, StateRewriting, p.State())
	assert.ErrorIs(t, p.Index(nil, nil), ErrInvalidState)

	_, err = p.Rewrite(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, p.State())

	_, err = p.Rewrite(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = p.RewriteClass(Input{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestNew_RejectsInvalidRules(t *testing.T) {
	_, err := New(Options{Rules: rewrite.Rules{}})
	assert.Error(t, err)
}

func TestPipeline_Progress(t *testing.T) {
	sink := newMemSink()
	inputs := []Input{
		dirInput(t, sink, classSpec{name: "com.app.A", super: "java.lang.Object"}),
		dirInput(t, sink, classSpec{name: "com.app.B", super: "java.lang.Object"}),
		dirInput(t, sink, classSpec{name: "com.app.C", super: "java.lang.Object"}),
	}

	var mu sync.Mutex
	var seen []int
	p, err := New(Options{
		Rules:   rewrite.DefaultRules(),
		Workers: 2,
		Progress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 3, total)
			seen = append(seen, done)
		},
	})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), nil, inputs)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3}, seen)
}

func TestPipeline_Cancelled(t *testing.T) {
	sink := newMemSink()
	inputs := []Input{dirInput(t, sink, classSpec{name: "com.app.A", super: "java.lang.Object"})}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(t, nil)
	report, err := p.Run(ctx, nil, inputs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
	assert.Empty(t, sink.files)
}
