package classfile

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	attrSignature              = "Signature"
	attrCode                   = "Code"
	attrLocalVariableTable     = "LocalVariableTable"
	attrLocalVariableTypeTable = "LocalVariableTypeTable"
	attrRecord                 = "Record"
	attrAnnotationDefault      = "AnnotationDefault"

	attrRuntimeVisibleAnnotations            = "RuntimeVisibleAnnotations"
	attrRuntimeInvisibleAnnotations          = "RuntimeInvisibleAnnotations"
	attrRuntimeVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	attrRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
	attrRuntimeVisibleTypeAnnotations        = "RuntimeVisibleTypeAnnotations"
	attrRuntimeInvisibleTypeAnnotations      = "RuntimeInvisibleTypeAnnotations"
)

func (rm *referenceMapper) attributes(attrs []Attribute) error {
	for i := range attrs {
		name, err := rm.cf.Pool.Utf8(attrs[i].NameIndex)
		if err != nil {
			return err
		}
		if err := rm.attribute(name, attrs[i].Data); err != nil {
			return fmt.Errorf("%s attribute: %w", name, err)
		}
	}
	return nil
}

// attribute repoints, in place, every class name held by one attribute body.
// Attributes that carry no names are left alone.
func (rm *referenceMapper) attribute(name string, data []byte) error {
	c := &cursor{rm: rm, data: data}

	switch name {
	case attrSignature:
		if len(data) != 2 {
			return fmt.Errorf("has %d bytes", len(data))
		}
		return c.descriptor()
	case attrCode:
		return c.code()
	case attrLocalVariableTable, attrLocalVariableTypeTable:
		return c.localVariables()
	case attrRecord:
		return c.record()
	case attrRuntimeVisibleAnnotations, attrRuntimeInvisibleAnnotations:
		return c.annotations(false)
	case attrRuntimeVisibleTypeAnnotations, attrRuntimeInvisibleTypeAnnotations:
		return c.annotations(true)
	case attrRuntimeVisibleParameterAnnotations, attrRuntimeInvisibleParameterAnnotations:
		return c.parameterAnnotations()
	case attrAnnotationDefault:
		return c.elementValue()
	}
	return nil
}

// cursor walks an attribute body front to back
type cursor struct {
	rm   *referenceMapper
	data []byte
	off  int
}

func (c *cursor) skip(n int) error {
	if n < 0 || c.off+n > len(c.data) {
		return fmt.Errorf("truncated at offset %d", c.off)
	}
	c.off += n
	return nil
}

func (c *cursor) u1() (int, error) {
	if err := c.skip(1); err != nil {
		return 0, err
	}
	return int(c.data[c.off-1]), nil
}

func (c *cursor) u2() (int, error) {
	if err := c.skip(2); err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint16(c.data[c.off-2:])), nil
}

func (c *cursor) u4() (int, error) {
	if err := c.skip(4); err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint32(c.data[c.off-4:])), nil
}

// descriptor remaps the u2 Utf8 index at the cursor as a descriptor or signature
func (c *cursor) descriptor() error {
	if err := c.rm.patchIndex(c.data, c.off, modeDescriptor); err != nil {
		return err
	}
	c.off += 2
	return nil
}

// nested walks an attributes_count + attribute_info[] table
func (c *cursor) nested() error {
	count, err := c.u2()
	if err != nil {
		return err
	}
	for range count {
		nameIndex, err := c.u2()
		if err != nil {
			return err
		}
		name, err := c.rm.cf.Pool.Utf8(uint16(nameIndex))
		if err != nil {
			return err
		}
		length, err := c.u4()
		if err != nil {
			return err
		}
		body := c.off
		if err := c.skip(length); err != nil {
			return fmt.Errorf("%s overruns its parent", name)
		}
		if err := c.rm.attribute(name, c.data[body:c.off]); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

/*
Code_attribute {
    u2 max_stack;
    u2 max_locals;
    u4 code_length;
    u1 code[code_length];
    u2 exception_table_length;
    {   u2 start_pc; u2 end_pc; u2 handler_pc; u2 catch_type;
    } exception_table[exception_table_length];
    u2 attributes_count;
    attribute_info attributes[attributes_count];
}

The bytecode reaches class names through the constant pool; only the
nested attributes hold Utf8 names of their own.
*/
func (c *cursor) code() error {
	if err := c.skip(4); err != nil {
		return err
	}
	length, err := c.u4()
	if err != nil {
		return err
	}
	if err := c.skip(length); err != nil {
		return err
	}
	handlers, err := c.u2()
	if err != nil {
		return err
	}
	if err := c.skip(8 * handlers); err != nil {
		return err
	}
	return c.nested()
}

// u2 count, then { start_pc, length, name_index, descriptor_index, index }
func (c *cursor) localVariables() error {
	count, err := c.u2()
	if err != nil {
		return err
	}
	for e := range count {
		if err := c.skip(6); err != nil {
			return err
		}
		if err := c.descriptor(); err != nil {
			return fmt.Errorf("entry %d: %w", e, err)
		}
		if err := c.skip(2); err != nil {
			return err
		}
	}
	return nil
}

/*
Record_attribute {
    u2 components_count;
    {   u2 name_index;
        u2 descriptor_index;
        u2 attributes_count;
        attribute_info attributes[attributes_count];
    } components[components_count];
}
*/
func (c *cursor) record() error {
	count, err := c.u2()
	if err != nil {
		return err
	}
	for i := range count {
		if err := c.skip(2); err != nil {
			return err
		}
		if err := c.descriptor(); err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
		if err := c.nested(); err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
	}
	return nil
}

// annotations walks u2 num_annotations + annotation[]; typed tables prefix
// every annotation with its target_info and type_path.
func (c *cursor) annotations(typed bool) error {
	count, err := c.u2()
	if err != nil {
		return err
	}
	for i := range count {
		if typed {
			if err := c.typeTarget(); err != nil {
				return fmt.Errorf("annotation %d: %w", i, err)
			}
		}
		if err := c.annotation(); err != nil {
			return fmt.Errorf("annotation %d: %w", i, err)
		}
	}
	return nil
}

func (c *cursor) parameterAnnotations() error {
	params, err := c.u1()
	if err != nil {
		return err
	}
	for p := range params {
		if err := c.annotations(false); err != nil {
			return fmt.Errorf("parameter %d: %w", p, err)
		}
	}
	return nil
}

/*
annotation {
    u2 type_index;
    u2 num_element_value_pairs;
    {   u2            element_name_index;
        element_value value;
    } element_value_pairs[num_element_value_pairs];
}
*/
func (c *cursor) annotation() error {
	if err := c.descriptor(); err != nil {
		return err
	}
	pairs, err := c.u2()
	if err != nil {
		return err
	}
	for range pairs {
		if err := c.skip(2); err != nil {
			return err
		}
		if err := c.elementValue(); err != nil {
			return err
		}
	}
	return nil
}

func (c *cursor) elementValue() error {
	tag, err := c.u1()
	if err != nil {
		return err
	}

	switch {
	case strings.ContainsRune("BCDFIJSZs", rune(tag)):
		return c.skip(2)
	case tag == 'e':
		// type_name_index, const_name_index
		if err := c.descriptor(); err != nil {
			return err
		}
		return c.skip(2)
	case tag == 'c':
		// class_info_index is a return descriptor, V included
		return c.descriptor()
	case tag == '@':
		return c.annotation()
	case tag == '[':
		n, err := c.u2()
		if err != nil {
			return err
		}
		for range n {
			if err := c.elementValue(); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown element_value tag %q at offset %d", rune(tag), c.off-1)
}

// typeTarget skips target_type, target_info and type_path (JVMS 4.7.20)
func (c *cursor) typeTarget() error {
	target, err := c.u1()
	if err != nil {
		return err
	}

	var size int
	switch {
	case target == 0x00, target == 0x01, target == 0x16:
		size = 1
	case target == 0x10, target == 0x11, target == 0x12, target == 0x17:
		size = 2
	case target >= 0x13 && target <= 0x15:
		size = 0
	case target == 0x40, target == 0x41:
		entries, err := c.u2()
		if err != nil {
			return err
		}
		size = 6 * entries
	case target >= 0x42 && target <= 0x46:
		size = 2
	case target >= 0x47 && target <= 0x4B:
		size = 3
	default:
		return fmt.Errorf("unknown target_type 0x%02x", target)
	}
	if err := c.skip(size); err != nil {
		return err
	}

	pathLength, err := c.u1()
	if err != nil {
		return err
	}
	return c.skip(2 * pathLength)
}
