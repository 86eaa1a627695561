package classfile

import (
	"fmt"
	"math"
)

// Encode serializes the class back to its binary form
func (cf *ClassFile) Encode() ([]byte, error) {
	w := NewBinaryWriter()

	w.WriteU4(Magic)
	w.WriteU2(cf.MinorVersion)
	w.WriteU2(cf.MajorVersion)

	if err := encodeConstantPool(w, cf.Pool); err != nil {
		return nil, fmt.Errorf("class %s: %w", cf.Name(), err)
	}

	w.WriteU2(cf.AccessFlags)
	w.WriteU2(cf.ThisClass)
	w.WriteU2(cf.SuperClass)

	if err := writeU2Count(w, len(cf.Interfaces)); err != nil {
		return nil, fmt.Errorf("class %s: interfaces: %w", cf.Name(), err)
	}
	for _, index := range cf.Interfaces {
		w.WriteU2(index)
	}

	for _, members := range [][]Member{cf.Fields, cf.Methods} {
		if err := writeU2Count(w, len(members)); err != nil {
			return nil, fmt.Errorf("class %s: members: %w", cf.Name(), err)
		}
		for _, m := range members {
			w.WriteU2(m.AccessFlags)
			w.WriteU2(m.NameIndex)
			w.WriteU2(m.DescriptorIndex)
			if err := encodeAttributes(w, m.Attributes); err != nil {
				return nil, fmt.Errorf("class %s: %w", cf.Name(), err)
			}
		}
	}

	if err := encodeAttributes(w, cf.Attributes); err != nil {
		return nil, fmt.Errorf("class %s: %w", cf.Name(), err)
	}

	return w.Bytes(), nil
}

func writeU2Count(w *BinaryWriter, n int) error {
	if n > math.MaxUint16 {
		return fmt.Errorf("count %d exceeds u2", n)
	}
	w.WriteU2(uint16(n))
	return nil
}

func encodeConstantPool(w *BinaryWriter, pool *ConstantPool) error {
	if err := writeU2Count(w, pool.Count()); err != nil {
		return fmt.Errorf("constant pool: %w", err)
	}

	for i, c := range pool.entries {
		if c == nil {
			continue
		}
		w.WriteU1(uint8(c.Tag()))

		switch v := c.(type) {
		case *ConstantUtf8:
			if err := writeU2Count(w, len(v.Value)); err != nil {
				return fmt.Errorf("constant %d: utf8 length: %w", i, err)
			}
			w.WriteBytes([]byte(v.Value))
		case *ConstantInteger:
			w.WriteU4(v.Value)
		case *ConstantFloat:
			w.WriteU4(v.Bits)
		case *ConstantLong:
			w.WriteU8(v.Value)
		case *ConstantDouble:
			w.WriteU8(v.Bits)
		case *ConstantClass:
			w.WriteU2(v.NameIndex)
		case *ConstantString:
			w.WriteU2(v.StringIndex)
		case *ConstantRef:
			w.WriteU2(v.ClassIndex)
			w.WriteU2(v.NameAndTypeIndex)
		case *ConstantNameAndType:
			w.WriteU2(v.NameIndex)
			w.WriteU2(v.DescriptorIndex)
		case *ConstantMethodHandle:
			w.WriteU1(v.ReferenceKind)
			w.WriteU2(v.ReferenceIndex)
		case *ConstantMethodType:
			w.WriteU2(v.DescriptorIndex)
		case *ConstantDynamic:
			w.WriteU2(v.BootstrapMethodAttrIndex)
			w.WriteU2(v.NameAndTypeIndex)
		case *ConstantNamed:
			w.WriteU2(v.NameIndex)
		default:
			return fmt.Errorf("constant %d: cannot encode %T", i, c)
		}
	}
	return nil
}

func encodeAttributes(w *BinaryWriter, attrs []Attribute) error {
	if err := writeU2Count(w, len(attrs)); err != nil {
		return fmt.Errorf("attributes: %w", err)
	}
	for _, a := range attrs {
		w.WriteU2(a.NameIndex)
		w.WriteU4(uint32(len(a.Data)))
		w.WriteBytes(a.Data)
	}
	return nil
}
