package classfile

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
)

// ReferencedClasses lists every class name the class mentions symbolically:
// class constants (its own name included), superclass and interfaces,
// member and call-site descriptors, generic signatures, annotation types and
// class literals, and record components. Names are binary names, sorted and
// unique.
func (cf *ClassFile) ReferencedClasses() ([]string, error) {
	seen := make(map[string]struct{})
	_, err := cf.mapReferences(func(internal string) string {
		seen[BinaryName(internal)] = struct{}{}
		return internal
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// RenameClasses replaces every symbolic reference to a key of renames with
// its value. Both sides are binary names. It returns how many constant pool
// or attribute slots were repointed.
func (cf *ClassFile) RenameClasses(renames map[string]string) (int, error) {
	if len(renames) == 0 {
		return 0, nil
	}

	internal := make(map[string]string, len(renames))
	for from, to := range renames {
		internal[InternalName(from)] = InternalName(to)
	}

	return cf.mapReferences(func(name string) string {
		if to, ok := internal[name]; ok {
			return to
		}
		return name
	})
}

// RenameClass is RenameClasses for a single pair
func (cf *ClassFile) RenameClass(from, to string) (int, error) {
	return cf.RenameClasses(map[string]string{from: to})
}

// SetSuperclass points super_class at a (possibly new) class constant
func (cf *ClassFile) SetSuperclass(binaryName string) error {
	index, err := cf.Pool.AddClass(InternalName(binaryName))
	if err != nil {
		return fmt.Errorf("class %s: %w", cf.Name(), err)
	}
	cf.SuperClass = index
	return nil
}

type utf8Mode int

const (
	modeClassName utf8Mode = iota
	modeDescriptor
)

type utf8Key struct {
	index uint16
	mode  utf8Mode
}

// referenceMapper applies fn to one class and memoises per Utf8 slot, so a
// shared descriptor is rewritten once and every user is repointed to the
// same new entry.
type referenceMapper struct {
	cf      *ClassFile
	fn      func(string) string
	done    map[utf8Key]uint16
	changed int
}

// remap returns the Utf8 index holding the mapped form of the Utf8 at index
func (rm *referenceMapper) remap(index uint16, mode utf8Mode) (uint16, error) {
	key := utf8Key{index, mode}
	if mapped, ok := rm.done[key]; ok {
		if mapped != index {
			rm.changed++
		}
		return mapped, nil
	}

	value, err := rm.cf.Pool.Utf8(index)
	if err != nil {
		return 0, err
	}

	var mappedValue string
	if mode == modeClassName && !strings.HasPrefix(value, "[") {
		mappedValue = rm.fn(value)
	} else if mappedValue, err = mapSignature(value, rm.fn); err != nil {
		return 0, err
	}

	mapped := index
	if mappedValue != value {
		if mapped, err = rm.cf.Pool.AddUtf8(mappedValue); err != nil {
			return 0, err
		}
		rm.changed++
	}
	rm.done[key] = mapped
	return mapped, nil
}

func (cf *ClassFile) mapReferences(fn func(string) string) (int, error) {
	rm := &referenceMapper{cf: cf, fn: fn, done: make(map[utf8Key]uint16)}
	if err := rm.run(); err != nil {
		return 0, &MalformedInputError{Class: cf.Name(), Err: err}
	}
	return rm.changed, nil
}

func (rm *referenceMapper) run() error {
	pool := rm.cf.Pool

	// Entries appended while remapping are new Utf8s; they need no visit.
	n := len(pool.entries)
	for i := 1; i < n; i++ {
		var err error
		switch c := pool.entries[i].(type) {
		case *ConstantClass:
			var mapped uint16
			if mapped, err = rm.remap(c.NameIndex, modeClassName); err == nil && mapped != c.NameIndex {
				pool.setClassName(uint16(i), mapped)
			}
		case *ConstantNameAndType:
			c.DescriptorIndex, err = rm.remap(c.DescriptorIndex, modeDescriptor)
		case *ConstantMethodType:
			c.DescriptorIndex, err = rm.remap(c.DescriptorIndex, modeDescriptor)
		}
		if err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
	}

	if err := rm.attributes(rm.cf.Attributes); err != nil {
		return fmt.Errorf("class attributes: %w", err)
	}

	for _, members := range [][]Member{rm.cf.Fields, rm.cf.Methods} {
		for i := range members {
			m := &members[i]
			var err error
			if m.DescriptorIndex, err = rm.remap(m.DescriptorIndex, modeDescriptor); err != nil {
				return fmt.Errorf("member descriptor: %w", err)
			}
			if err := rm.attributes(m.Attributes); err != nil {
				return fmt.Errorf("member attributes: %w", err)
			}
		}
	}
	return nil
}

// patchIndex remaps the big-endian u2 Utf8 index stored at data[off:]
func (rm *referenceMapper) patchIndex(data []byte, off int, mode utf8Mode) error {
	if off+2 > len(data) {
		return fmt.Errorf("truncated index at offset %d", off)
	}
	index := binary.BigEndian.Uint16(data[off:])
	mapped, err := rm.remap(index, mode)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(data[off:], mapped)
	return nil
}

func (cp *ConstantPool) setClassName(classIndex, nameIndex uint16) {
	class := cp.entries[classIndex].(*ConstantClass)
	if cp.classes[class.NameIndex] == classIndex {
		delete(cp.classes, class.NameIndex)
	}
	class.NameIndex = nameIndex
	if _, exists := cp.classes[nameIndex]; !exists {
		cp.classes[nameIndex] = classIndex
	}
}
