// Package rewrite redirects the symbolic class references of a compiled class.
package rewrite

import (
	"fmt"
	"maps"
	"slices"

	"github.com/mabhi256/jshim/internal/classfile"
)

// MembershipResolver answers whether a class descends from the marker type
type MembershipResolver interface {
	IsMember(name string) (bool, error)
}

type Rewriter struct {
	rules    Rules
	resolver MembershipResolver
}

func NewRewriter(rules Rules, resolver MembershipResolver) *Rewriter {
	return &Rewriter{rules: rules, resolver: resolver}
}

func (rw *Rewriter) Rules() Rules {
	return rw.rules
}

// Result describes what one Rewrite call changed
type Result struct {
	Substituted map[string]string // base type -> substitute, only those present
	Members     map[string]string // member reference -> suffixed name
}

func (r *Result) Changed() bool {
	return len(r.Substituted) > 0 || len(r.Members) > 0
}

// MemberNames returns the renamed member references in sorted order
func (r *Result) MemberNames() []string {
	return slices.Sorted(maps.Keys(r.Members))
}

// Rewrite edits cf in place. Base-type substitutions run first and
// unconditionally; member suffixing then runs over the substituted
// reference list. The marker type itself is never renamed.
func (rw *Rewriter) Rewrite(cf *classfile.ClassFile) (*Result, error) {
	result := &Result{
		Substituted: make(map[string]string),
		Members:     make(map[string]string),
	}

	for _, s := range rw.rules.Substitutions {
		n, err := cf.RenameClass(s.From, s.To)
		if err != nil {
			return nil, fmt.Errorf("substituting %s: %w", s.From, err)
		}
		if n > 0 {
			result.Substituted[s.From] = s.To
		}
	}

	refs, err := cf.ReferencedClasses()
	if err != nil {
		return nil, err
	}

	for _, ref := range refs {
		if ref == rw.rules.Marker {
			continue
		}
		member, err := rw.resolver.IsMember(ref)
		if err != nil {
			return nil, fmt.Errorf("class %s references %s: %w", cf.Name(), ref, err)
		}
		if member {
			result.Members[ref] = rw.rules.MemberName(ref)
		}
	}

	if _, err := cf.RenameClasses(result.Members); err != nil {
		return nil, fmt.Errorf("renaming hierarchy members: %w", err)
	}

	return result, nil
}
