package classfile

import (
	"bytes"
	"fmt"
	"io"
)

// ParseBytes parses a complete class file held in memory
func ParseBytes(data []byte) (*ClassFile, error) {
	return Parse(bytes.NewReader(data))
}

// Parse reads one class file from r. Any structural problem is reported as a
// *MalformedInputError.
//
//	ClassFile {
//	    u4             magic;
//	    u2             minor_version;
//	    u2             major_version;
//	    u2             constant_pool_count;
//	    cp_info        constant_pool[constant_pool_count-1];
//	    u2             access_flags;
//	    u2             this_class;
//	    u2             super_class;
//	    u2             interfaces_count;
//	    u2             interfaces[interfaces_count];
//	    u2             fields_count;
//	    field_info     fields[fields_count];
//	    u2             methods_count;
//	    method_info    methods[methods_count];
//	    u2             attributes_count;
//	    attribute_info attributes[attributes_count];
//	}
func Parse(r io.Reader) (*ClassFile, error) {
	reader := NewBinaryReader(r)

	magic, err := reader.ReadU4()
	if err != nil {
		return nil, malformed("", "failed to read magic: %w", err)
	}
	if magic != Magic {
		return nil, malformed("", "invalid magic 0x%08X", magic)
	}

	cf := &ClassFile{}
	if cf.MinorVersion, err = reader.ReadU2(); err != nil {
		return nil, malformed("", "failed to read minor version: %w", err)
	}
	if cf.MajorVersion, err = reader.ReadU2(); err != nil {
		return nil, malformed("", "failed to read major version: %w", err)
	}

	if cf.Pool, err = parseConstantPool(reader); err != nil {
		return nil, malformed("", "%w", err)
	}

	if cf.AccessFlags, err = reader.ReadU2(); err != nil {
		return nil, malformed("", "failed to read access flags: %w", err)
	}
	if cf.ThisClass, err = reader.ReadU2(); err != nil {
		return nil, malformed("", "failed to read this_class: %w", err)
	}

	// From here on errors can carry the class name
	name, err := cf.Pool.ClassName(cf.ThisClass)
	if err != nil {
		return nil, malformed("", "bad this_class: %w", err)
	}
	name = BinaryName(name)

	if cf.SuperClass, err = reader.ReadU2(); err != nil {
		return nil, malformed(name, "failed to read super_class: %w", err)
	}
	if cf.SuperClass != 0 {
		if _, err := cf.Pool.ClassName(cf.SuperClass); err != nil {
			return nil, malformed(name, "bad super_class: %w", err)
		}
	}

	if cf.Interfaces, err = reader.ReadU2Table(); err != nil {
		return nil, malformed(name, "failed to read interfaces: %w", err)
	}
	for _, index := range cf.Interfaces {
		if _, err := cf.Pool.ClassName(index); err != nil {
			return nil, malformed(name, "bad interface: %w", err)
		}
	}

	if cf.Fields, err = parseMembers(reader, cf.Pool); err != nil {
		return nil, malformed(name, "failed to read fields: %w", err)
	}
	if cf.Methods, err = parseMembers(reader, cf.Pool); err != nil {
		return nil, malformed(name, "failed to read methods: %w", err)
	}
	if cf.Attributes, err = parseAttributes(reader); err != nil {
		return nil, malformed(name, "failed to read class attributes: %w", err)
	}

	if !reader.AtEOF() {
		return nil, malformed(name, "trailing bytes after offset %d", reader.BytesRead())
	}

	return cf, nil
}

func parseConstantPool(reader *BinaryReader) (*ConstantPool, error) {
	count, err := reader.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read constant pool count: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("constant pool count is zero")
	}

	pool := NewConstantPool()
	for index := 1; index < int(count); {
		c, err := parseConstant(reader)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", index, err)
		}
		if _, err := pool.add(c); err != nil {
			return nil, err
		}

		index++
		if c.Tag().IsWide() {
			index++
		}
	}

	if pool.Count() != int(count) {
		return nil, fmt.Errorf("wide constant overruns pool: expected %d slots, got %d", count, pool.Count())
	}

	return pool, validatePool(pool)
}

func parseConstant(reader *BinaryReader) (Constant, error) {
	tagByte, err := reader.ReadU1()
	if err != nil {
		return nil, fmt.Errorf("failed to read tag: %w", err)
	}
	tag := ConstantTag(tagByte)

	switch tag {
	case CONSTANT_Utf8:
		length, err := reader.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read utf8 length: %w", err)
		}
		data, err := reader.ReadNBytes(int(length))
		if err != nil {
			return nil, fmt.Errorf("failed to read utf8 data: %w", err)
		}
		return &ConstantUtf8{Value: string(data)}, nil

	case CONSTANT_Integer, CONSTANT_Float:
		v, err := reader.ReadU4()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", tag, err)
		}
		if tag == CONSTANT_Integer {
			return &ConstantInteger{Value: v}, nil
		}
		return &ConstantFloat{Bits: v}, nil

	case CONSTANT_Long, CONSTANT_Double:
		v, err := reader.ReadU8()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", tag, err)
		}
		if tag == CONSTANT_Long {
			return &ConstantLong{Value: v}, nil
		}
		return &ConstantDouble{Bits: v}, nil

	case CONSTANT_Class, CONSTANT_String, CONSTANT_MethodType, CONSTANT_Module, CONSTANT_Package:
		index, err := reader.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s index: %w", tag, err)
		}
		switch tag {
		case CONSTANT_Class:
			return &ConstantClass{NameIndex: index}, nil
		case CONSTANT_String:
			return &ConstantString{StringIndex: index}, nil
		case CONSTANT_MethodType:
			return &ConstantMethodType{DescriptorIndex: index}, nil
		default:
			return &ConstantNamed{Kind: tag, NameIndex: index}, nil
		}

	case CONSTANT_Fieldref, CONSTANT_Methodref, CONSTANT_InterfaceMethodref,
		CONSTANT_NameAndType, CONSTANT_Dynamic, CONSTANT_InvokeDynamic:
		first, err := reader.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", tag, err)
		}
		second, err := reader.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", tag, err)
		}
		switch tag {
		case CONSTANT_NameAndType:
			return &ConstantNameAndType{NameIndex: first, DescriptorIndex: second}, nil
		case CONSTANT_Dynamic, CONSTANT_InvokeDynamic:
			return &ConstantDynamic{Kind: tag, BootstrapMethodAttrIndex: first, NameAndTypeIndex: second}, nil
		default:
			return &ConstantRef{Kind: tag, ClassIndex: first, NameAndTypeIndex: second}, nil
		}

	case CONSTANT_MethodHandle:
		kind, err := reader.ReadU1()
		if err != nil {
			return nil, fmt.Errorf("failed to read method handle kind: %w", err)
		}
		index, err := reader.ReadU2()
		if err != nil {
			return nil, fmt.Errorf("failed to read method handle reference: %w", err)
		}
		return &ConstantMethodHandle{ReferenceKind: kind, ReferenceIndex: index}, nil

	default:
		return nil, fmt.Errorf("unknown constant tag %d", tagByte)
	}
}

// validatePool checks the cross references the rewriter depends on
func validatePool(pool *ConstantPool) error {
	for i, c := range pool.entries {
		var err error
		switch v := c.(type) {
		case *ConstantClass:
			_, err = pool.Utf8(v.NameIndex)
		case *ConstantNameAndType:
			if _, err = pool.Utf8(v.NameIndex); err == nil {
				_, err = pool.Utf8(v.DescriptorIndex)
			}
		case *ConstantMethodType:
			_, err = pool.Utf8(v.DescriptorIndex)
		}
		if err != nil {
			return fmt.Errorf("constant %d (%s): %w", i, c.Tag(), err)
		}
	}
	return nil
}

func parseMembers(reader *BinaryReader, pool *ConstantPool) ([]Member, error) {
	count, err := reader.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read count: %w", err)
	}

	members := make([]Member, count)
	for i := range members {
		m := &members[i]
		if m.AccessFlags, err = reader.ReadU2(); err != nil {
			return nil, fmt.Errorf("member %d: failed to read access flags: %w", i, err)
		}
		if m.NameIndex, err = reader.ReadU2(); err != nil {
			return nil, fmt.Errorf("member %d: failed to read name: %w", i, err)
		}
		if m.DescriptorIndex, err = reader.ReadU2(); err != nil {
			return nil, fmt.Errorf("member %d: failed to read descriptor: %w", i, err)
		}
		if _, err := pool.Utf8(m.DescriptorIndex); err != nil {
			return nil, fmt.Errorf("member %d: bad descriptor: %w", i, err)
		}
		if m.Attributes, err = parseAttributes(reader); err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
	}
	return members, nil
}

/*
attribute_info {
    u2 attribute_name_index;
    u4 attribute_length;
    u1 info[attribute_length];
}
*/
func parseAttributes(reader *BinaryReader) ([]Attribute, error) {
	count, err := reader.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read attribute count: %w", err)
	}

	attrs := make([]Attribute, count)
	for i := range attrs {
		if attrs[i].NameIndex, err = reader.ReadU2(); err != nil {
			return nil, fmt.Errorf("attribute %d: failed to read name: %w", i, err)
		}
		length, err := reader.ReadU4()
		if err != nil {
			return nil, fmt.Errorf("attribute %d: failed to read length: %w", i, err)
		}
		if attrs[i].Data, err = reader.ReadNBytes(int(length)); err != nil {
			return nil, fmt.Errorf("attribute %d: failed to read %d bytes: %w", i, length, err)
		}
	}
	return attrs, nil
}
