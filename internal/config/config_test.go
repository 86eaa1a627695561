package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mabhi256/jshim/internal/rewrite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
marker = "androidx.fragment.app.Fragment"
suffix = "$Plugin"
container = "com.host.ContainerFragment"
workers = 3

[[substitution]]
from = "android.app.Activity"
to = "com.host.PluginActivity"

[[substitution]]
from = "android.app.Service"
to = "com.host.PluginService"

[[special]]
class = "com.app.Legacy"
strategy = "keep"

[[special]]
class = "com.app.Host"
strategy = "superclass"
superclass = "com.host.HostActivity"

[[special]]
class = "com.app.Bridge"
strategy = "rename"
renames = { "com.app.Old" = "com.app.New" }
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, t.TempDir(), fullConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, 3, cfg.Workers)

	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Equal(t, rewrite.Rules{
		Substitutions: []rewrite.Substitution{
			{From: "android.app.Activity", To: "com.host.PluginActivity"},
			{From: "android.app.Service", To: "com.host.PluginService"},
		},
		Marker:    "androidx.fragment.app.Fragment",
		Suffix:    "$Plugin",
		Container: "com.host.ContainerFragment",
	}, rules)

	special, err := cfg.SpecialCases()
	require.NoError(t, err)
	assert.Equal(t, 3, special.Len())

	strategy, ok := special.Lookup("com.app.Legacy")
	require.True(t, ok)
	assert.Equal(t, rewrite.Keep{}, strategy)

	strategy, ok = special.Lookup("com.app.Host")
	require.True(t, ok)
	assert.Equal(t, rewrite.Superclass{Superclass: "com.host.HostActivity"}, strategy)

	strategy, ok = special.Lookup("com.app.Bridge")
	require.True(t, ok)
	assert.Equal(t, rewrite.Rename{Renames: map[string]string{"com.app.Old": "com.app.New"}}, strategy)
}

func TestLoad_Defaults(t *testing.T) {
	for _, content := range []string{"", "workers = 2\n"} {
		path := writeConfig(t, t.TempDir(), content)
		cfg, err := Load(path)
		require.NoError(t, err)

		rules, err := cfg.Rules()
		require.NoError(t, err)
		assert.Equal(t, rewrite.DefaultRules(), rules)

		special, err := cfg.SpecialCases()
		require.NoError(t, err)
		assert.Zero(t, special.Len())
	}

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	rules, err := cfg.Rules()
	require.NoError(t, err)
	assert.Equal(t, rewrite.DefaultRules(), rules)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "marker = "},
		{"unknown key", "markr = \"x\"\n"},
		{"unknown table key", "[[substitution]]\nfrom = \"a.A\"\ninto = \"b.B\"\n"},
		{"wrong type", "workers = \"many\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_InvalidRules(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty substitute", Config{Substitutions: []Substitution{{From: "a.A"}}}},
		{"marker substituted", Config{Substitutions: []Substitution{{From: rewrite.AndroidFragmentClassname, To: "b.B"}}}},
		{"chained", Config{Substitutions: []Substitution{{From: "a.A", To: "b.B"}, {From: "b.B", To: "c.C"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Rules()
			assert.Error(t, err)
		})
	}
}

func TestConfig_InvalidSpecialCases(t *testing.T) {
	tests := []struct {
		name    string
		special []Special
	}{
		{"no class", []Special{{Strategy: "keep"}}},
		{"unknown strategy", []Special{{Class: "a.A", Strategy: "explode"}}},
		{"rename without renames", []Special{{Class: "a.A", Strategy: "rename"}}},
		{"superclass without superclass", []Special{{Class: "a.A", Strategy: "superclass"}}},
		{"duplicate", []Special{{Class: "a.A", Strategy: "keep"}, {Class: "a.A", Strategy: "keep"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Special: tt.special}
			_, err := cfg.SpecialCases()
			assert.Error(t, err)
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "suffix = \"__\"\n")
	nested := filepath.Join(root, "app", "build")
	require.NoError(t, os.MkdirAll(nested, 0755))

	cfg, err := FindAndLoad(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, FileName), cfg.Path)
	assert.Equal(t, "__", cfg.Suffix)
}
