package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseRegistry(t *testing.T) {
	r := NewBaseRegistry[string, bool]()

	r.Add("b", true)
	r.Add("a", false)

	v, ok := r.Get("b")
	assert.True(t, ok)
	assert.True(t, v)

	stored, added := r.AddIfAbsent("a", true)
	assert.False(t, added)
	assert.False(t, stored)

	assert.Equal(t, []string{"a", "b"}, r.Keys())
	assert.Equal(t, 2, r.Count())

	r.Clear()
	assert.Zero(t, r.Count())
}

func TestClassNameFromPath(t *testing.T) {
	tests := []struct {
		path string
		name string
		ok   bool
	}{
		{"com/app/A.class", "com.app.A", true},
		{"com/app/A$1.class", "com.app.A$1", true},
		{"A.class", "A", true},
		{"com/app/A.java", "", false},
		{"module-info.class", "", false},
		{"META-INF/versions/11/com/app/A.class", "", false},
	}
	for _, tt := range tests {
		name, ok := ClassNameFromPath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.name, name, tt.path)
	}
}
