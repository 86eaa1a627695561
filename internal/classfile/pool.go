package classfile

import (
	"errors"
	"fmt"
)

var ErrPoolOverflow = errors.New("constant pool exceeds 65535 entries")

// ConstantPool is 1-indexed; slot 0 and the slot after each wide constant are nil
type ConstantPool struct {
	entries []Constant
	utf8s   map[string]uint16
	classes map[uint16]uint16 // name index -> class index
}

func NewConstantPool() *ConstantPool {
	return &ConstantPool{
		entries: []Constant{nil},
		utf8s:   make(map[string]uint16),
		classes: make(map[uint16]uint16),
	}
}

// Count is the constant_pool_count value written to the class file
func (cp *ConstantPool) Count() int {
	return len(cp.entries)
}

func (cp *ConstantPool) Get(index uint16) (Constant, error) {
	if index == 0 || int(index) >= len(cp.entries) || cp.entries[index] == nil {
		return nil, fmt.Errorf("invalid constant pool index %d", index)
	}
	return cp.entries[index], nil
}

func (cp *ConstantPool) Utf8(index uint16) (string, error) {
	c, err := cp.Get(index)
	if err != nil {
		return "", err
	}
	utf8, ok := c.(*ConstantUtf8)
	if !ok {
		return "", fmt.Errorf("constant %d is %s, expected Utf8", index, c.Tag())
	}
	return utf8.Value, nil
}

// ClassName returns the internal name (or array descriptor) of a Class constant
func (cp *ConstantPool) ClassName(index uint16) (string, error) {
	c, err := cp.Get(index)
	if err != nil {
		return "", err
	}
	class, ok := c.(*ConstantClass)
	if !ok {
		return "", fmt.Errorf("constant %d is %s, expected Class", index, c.Tag())
	}
	return cp.Utf8(class.NameIndex)
}

func (cp *ConstantPool) add(c Constant) (uint16, error) {
	width := 1
	if c.Tag().IsWide() {
		width = 2
	}
	if len(cp.entries)+width > 0xFFFF {
		return 0, ErrPoolOverflow
	}

	index := uint16(len(cp.entries))
	cp.entries = append(cp.entries, c)
	if width == 2 {
		cp.entries = append(cp.entries, nil)
	}

	switch v := c.(type) {
	case *ConstantUtf8:
		if _, exists := cp.utf8s[v.Value]; !exists {
			cp.utf8s[v.Value] = index
		}
	case *ConstantClass:
		if _, exists := cp.classes[v.NameIndex]; !exists {
			cp.classes[v.NameIndex] = index
		}
	}
	return index, nil
}

// AddUtf8 returns the index of an existing equal Utf8 or appends a new one
func (cp *ConstantPool) AddUtf8(value string) (uint16, error) {
	if index, exists := cp.utf8s[value]; exists {
		return index, nil
	}
	return cp.add(&ConstantUtf8{Value: value})
}

// AddClass takes an internal name (slash separated)
func (cp *ConstantPool) AddClass(internalName string) (uint16, error) {
	nameIndex, err := cp.AddUtf8(internalName)
	if err != nil {
		return 0, err
	}
	if index, exists := cp.classes[nameIndex]; exists {
		return index, nil
	}
	return cp.add(&ConstantClass{NameIndex: nameIndex})
}

func (cp *ConstantPool) AddNameAndType(name, descriptor string) (uint16, error) {
	nameIndex, err := cp.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	descIndex, err := cp.AddUtf8(descriptor)
	if err != nil {
		return 0, err
	}
	return cp.add(&ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex})
}

func (cp *ConstantPool) AddMethodref(classInternalName, name, descriptor string) (uint16, error) {
	classIndex, err := cp.AddClass(classInternalName)
	if err != nil {
		return 0, err
	}
	natIndex, err := cp.AddNameAndType(name, descriptor)
	if err != nil {
		return 0, err
	}
	return cp.add(&ConstantRef{
		Kind:             CONSTANT_Methodref,
		ClassIndex:       classIndex,
		NameAndTypeIndex: natIndex,
	})
}

// Entries exposes the raw slots, including nil placeholders
func (cp *ConstantPool) Entries() []Constant {
	return cp.entries
}
