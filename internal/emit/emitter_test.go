package emit

import (
	"errors"
	"testing"

	"github.com/mabhi256/jshim/internal/classfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const container = "com.tencent.cubershi.mock_interface.ContainerFragment"

func rewritten(t *testing.T, name, super string) *classfile.ClassFile {
	t.Helper()
	cf, err := classfile.NewClass(name, super, 50)
	require.NoError(t, err)
	return cf
}

func TestEmit_NonMember(t *testing.T) {
	cf := rewritten(t, "com.app.Z", "com.tencent.cubershi.mock_interface.MockActivity")
	dest := Destination{Kind: SinkDirectory, Path: "com/app/Z.class"}

	artifacts, err := NewEmitter(container).Emit(dest, "com.app.Z", cf, false)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)

	assert.Equal(t, dest, artifacts[0].Dest)
	assert.Equal(t, "com.app.Z", artifacts[0].Class)
	want, _ := cf.Encode()
	assert.Equal(t, want, artifacts[0].Data)
}

func TestEmit_Member(t *testing.T) {
	tests := []struct {
		name     string
		dest     Destination
		wantPath string
	}{
		{"directory", Destination{Kind: SinkDirectory, Path: "com/app/Y.class"}, "com/app/Y_.class"},
		{"archive", Destination{Kind: SinkArchive, Path: "com/app/Y.class"}, "com/app/Y_.class"},
		{"directory keeps folder", Destination{Kind: SinkDirectory, Path: "build/classes/Y.class"}, "build/classes/Y_.class"},
		{"archive uses class path", Destination{Kind: SinkArchive, Path: "shaded/Y.class"}, "com/app/Y_.class"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf := rewritten(t, "com.app.Y_", "com.lib.X_")

			artifacts, err := NewEmitter(container).Emit(tt.dest, "com.app.Y", cf, true)
			require.NoError(t, err)
			require.Len(t, artifacts, 2)

			standIn, err := classfile.ParseBytes(artifacts[0].Data)
			require.NoError(t, err)
			assert.Equal(t, "com.app.Y", standIn.Name())
			super, _ := standIn.SuperName()
			assert.Equal(t, container, super)
			assert.Equal(t, uint16(50), standIn.MajorVersion)
			assert.Equal(t, tt.dest, artifacts[0].Dest)

			body, err := classfile.ParseBytes(artifacts[1].Data)
			require.NoError(t, err)
			assert.Equal(t, "com.app.Y_", body.Name())
			super, _ = body.SuperName()
			assert.Equal(t, "com.lib.X_", super)
			assert.Equal(t, Destination{Kind: tt.dest.Kind, Path: tt.wantPath}, artifacts[1].Dest)
		})
	}
}

func TestEmit_UnsupportedSink(t *testing.T) {
	cf := rewritten(t, "com.app.Y_", "com.lib.X_")

	for _, member := range []bool{true, false} {
		_, err := NewEmitter(container).Emit(Destination{Kind: SinkUnknown, Path: "Y.class"}, "com.app.Y", cf, member)
		var sinkErr *UnsupportedSinkError
		require.True(t, errors.As(err, &sinkErr))
		assert.Equal(t, SinkUnknown, sinkErr.Kind)
		assert.Equal(t, "com.app.Y", sinkErr.Class)
	}
}
