// Package config handles jshim.toml rewrite configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/mabhi256/jshim/internal/rewrite"
)

const FileName = "jshim.toml"

// Config represents a jshim.toml file. Empty fields fall back to the
// built-in rule set.
type Config struct {
	Marker        string         `toml:"marker"`
	Suffix        string         `toml:"suffix"`
	Container     string         `toml:"container"`
	Workers       int            `toml:"workers"`
	Substitutions []Substitution `toml:"substitution"`
	Special       []Special      `toml:"special"`

	// Path is the file the config was read from, empty for defaults
	Path string `toml:"-"`
}

// Substitution replaces every reference to From with To.
type Substitution struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// Special overrides the default rewrite for one class.
type Special struct {
	Class      string            `toml:"class"`
	Strategy   string            `toml:"strategy"`
	Superclass string            `toml:"superclass"`
	Renames    map[string]string `toml:"renames"`
}

// Default is the configuration used when no file is given
func Default() *Config {
	return &Config{}
}

// Load parses a jshim.toml file. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes TOML config data, rejecting keys jshim does not know.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return &cfg, nil
}

// FindAndLoad walks up from startDir to find a jshim.toml file. It returns
// the defaults if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Rules builds the rewrite rule set. Substitutions replace the built-in
// list when any are configured.
func (c *Config) Rules() (rewrite.Rules, error) {
	rules := rewrite.DefaultRules()
	if c.Marker != "" {
		rules.Marker = c.Marker
	}
	if c.Suffix != "" {
		rules.Suffix = c.Suffix
	}
	if c.Container != "" {
		rules.Container = c.Container
	}
	if len(c.Substitutions) > 0 {
		rules.Substitutions = make([]rewrite.Substitution, len(c.Substitutions))
		for i, s := range c.Substitutions {
			rules.Substitutions[i] = rewrite.Substitution{From: s.From, To: s.To}
		}
	}

	if err := rules.Validate(); err != nil {
		return rewrite.Rules{}, err
	}
	return rules, nil
}

// SpecialCases builds the override table
func (c *Config) SpecialCases() (*rewrite.SpecialCases, error) {
	table := make(map[string]rewrite.Strategy, len(c.Special))
	var errs []error
	for _, s := range c.Special {
		if s.Class == "" {
			errs = append(errs, errors.New("special case without a class"))
			continue
		}
		if _, dup := table[s.Class]; dup {
			errs = append(errs, fmt.Errorf("special case %s configured twice", s.Class))
			continue
		}

		strategy, err := rewrite.NewStrategy(rewrite.StrategyKind(s.Strategy), s.Renames, s.Superclass)
		if err != nil {
			errs = append(errs, fmt.Errorf("special case %s: %w", s.Class, err))
			continue
		}
		table[s.Class] = strategy
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return rewrite.NewSpecialCases(table), nil
}
