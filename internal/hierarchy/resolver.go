// Package hierarchy decides whether a class descends from the marker base type.
package hierarchy

import (
	"fmt"
	"log/slog"

	"github.com/mabhi256/jshim/internal/classfile"
	"github.com/mabhi256/jshim/internal/registry"
)

// Resolver walks superclass chains through a ClassRegistry and memoises the
// verdict per queried name. Verdicts are never invalidated: the registry is
// frozen before rewriting starts.
//
// Concurrent IsMember calls for the same name may both walk the chain; the
// cache insert is locked and both store the same verdict.
type Resolver struct {
	classes    *registry.ClassRegistry
	marker     string
	cache      *registry.BaseRegistry[string, bool]
	unresolved *registry.BaseRegistry[string, string] // missing class -> first class that needed it
}

func NewResolver(classes *registry.ClassRegistry, marker string) *Resolver {
	return &Resolver{
		classes:    classes,
		marker:     marker,
		cache:      registry.NewBaseRegistry[string, bool](),
		unresolved: registry.NewBaseRegistry[string, string](),
	}
}

func (r *Resolver) Marker() string {
	return r.marker
}

// Cached returns the memoised verdict for name, if any
func (r *Resolver) Cached(name string) (bool, bool) {
	return r.cache.Get(name)
}

// Members lists the names proven to be hierarchy members so far
func (r *Resolver) Members() []string {
	var members []string
	for _, name := range r.cache.Keys() {
		if member, _ := r.cache.Get(name); member {
			members = append(members, name)
		}
	}
	return members
}

// IsMember reports whether the marker type appears in name's superclass chain.
// Names outside the registry are not members. A chain that revisits a class
// is a *classfile.MalformedInputError.
func (r *Resolver) IsMember(name string) (bool, error) {
	if name == r.marker {
		return true, nil
	}
	if member, cached := r.cache.Get(name); cached {
		return member, nil
	}

	member, err := r.walk(name)
	if err != nil {
		return false, err
	}

	r.cache.Add(name, member)
	return member, nil
}

func (r *Resolver) walk(name string) (bool, error) {
	current := name
	visited := map[string]bool{name: true}

	for {
		cf, found, err := r.classes.Lookup(current)
		if err != nil {
			return false, fmt.Errorf("resolving hierarchy of %s: %w", name, err)
		}
		if !found {
			r.reportUnresolved(current, name)
			return false, nil
		}

		super, ok := cf.SuperName()
		if !ok {
			return false, nil
		}
		if super == r.marker {
			return true, nil
		}
		if visited[super] {
			return false, &classfile.MalformedInputError{
				Class: name,
				Err:   fmt.Errorf("cyclic superclass chain through %s", super),
			}
		}
		visited[super] = true

		// A verdict already proven for a link applies to everything below it
		if member, cached := r.cache.Get(super); cached {
			return member, nil
		}
		current = super
	}
}

// Unknown names referenced directly are expected (platform and JDK classes).
// A chain that breaks below a known class is worth a warning, once per name.
func (r *Resolver) reportUnresolved(missing, queried string) {
	if missing == queried {
		slog.Debug("Class outside the registry, not a hierarchy member", "class", missing)
		return
	}
	if _, added := r.unresolved.AddIfAbsent(missing, queried); added {
		slog.Warn("Unresolved superclass, assuming it is not a hierarchy member",
			"class", missing, "queried", queried)
	}
}

// Unresolved lists superclasses that could not be found while walking chains
func (r *Resolver) Unresolved() []string {
	return r.unresolved.Keys()
}
