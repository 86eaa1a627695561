package rewrite

import (
	"fmt"
	"maps"

	"github.com/mabhi256/jshim/internal/classfile"
)

type StrategyKind string

const (
	StrategyKeep       StrategyKind = "keep"
	StrategyRename     StrategyKind = "rename"
	StrategySuperclass StrategyKind = "superclass"
)

// Strategy replaces the default rewrite for one named class
type Strategy interface {
	Kind() StrategyKind
	Apply(cf *classfile.ClassFile) error
}

// Keep leaves the class exactly as it was compiled
type Keep struct{}

func (Keep) Kind() StrategyKind { return StrategyKeep }

func (Keep) Apply(*classfile.ClassFile) error { return nil }

// Rename applies only an explicit rename map
type Rename struct {
	Renames map[string]string
}

func (Rename) Kind() StrategyKind { return StrategyRename }

func (s Rename) Apply(cf *classfile.ClassFile) error {
	_, err := cf.RenameClasses(s.Renames)
	return err
}

// Superclass re-parents the class and touches nothing else
type Superclass struct {
	Superclass string
}

func (Superclass) Kind() StrategyKind { return StrategySuperclass }

func (s Superclass) Apply(cf *classfile.ClassFile) error {
	return cf.SetSuperclass(s.Superclass)
}

// NewStrategy builds one of the known strategy variants
func NewStrategy(kind StrategyKind, renames map[string]string, superclass string) (Strategy, error) {
	switch kind {
	case StrategyKeep:
		return Keep{}, nil
	case StrategyRename:
		if len(renames) == 0 {
			return nil, fmt.Errorf("%s strategy needs at least one rename", kind)
		}
		return Rename{Renames: maps.Clone(renames)}, nil
	case StrategySuperclass:
		if superclass == "" {
			return nil, fmt.Errorf("%s strategy needs a superclass", kind)
		}
		return Superclass{Superclass: superclass}, nil
	default:
		return nil, fmt.Errorf("unknown special-case strategy %q", kind)
	}
}

// SpecialCases maps class names to override strategies. It is built once and
// only read afterwards.
type SpecialCases struct {
	table map[string]Strategy
}

func NewSpecialCases(table map[string]Strategy) *SpecialCases {
	return &SpecialCases{table: maps.Clone(table)}
}

// Lookup returns the override for a class name, if one is configured
func (s *SpecialCases) Lookup(name string) (Strategy, bool) {
	if s == nil {
		return nil, false
	}
	strategy, ok := s.table[name]
	return strategy, ok
}

func (s *SpecialCases) Len() int {
	if s == nil {
		return 0
	}
	return len(s.table)
}
