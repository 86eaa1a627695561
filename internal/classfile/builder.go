package classfile

import (
	"encoding/binary"
	"fmt"
)

// Java 8, the newest version whose straight-line methods need no StackMapTable
const DefaultMajorVersion uint16 = 52

const (
	opAload0        = 0x2a
	opInvokespecial = 0xb7
	opReturn        = 0xb1
)

// NewClass fabricates `public class name extends super` with a single public
// no-arg constructor that calls super(). Names are binary names.
func NewClass(name, super string, majorVersion uint16) (*ClassFile, error) {
	cf := &ClassFile{
		MajorVersion: majorVersion,
		Pool:         NewConstantPool(),
		AccessFlags:  ACC_PUBLIC | ACC_SUPER,
	}

	var err error
	if cf.ThisClass, err = cf.Pool.AddClass(InternalName(name)); err != nil {
		return nil, fmt.Errorf("new class %s: %w", name, err)
	}
	if cf.SuperClass, err = cf.Pool.AddClass(InternalName(super)); err != nil {
		return nil, fmt.Errorf("new class %s: %w", name, err)
	}

	superInit, err := cf.Pool.AddMethodref(InternalName(super), "<init>", "()V")
	if err != nil {
		return nil, fmt.Errorf("new class %s: %w", name, err)
	}

	code := []byte{opAload0, opInvokespecial, 0, 0, opReturn}
	binary.BigEndian.PutUint16(code[2:], superInit)

	if err := cf.AddMethod(ACC_PUBLIC, "<init>", "()V", codeAttribute(1, 1, code)); err != nil {
		return nil, err
	}

	return cf, nil
}

func codeAttribute(maxStack, maxLocals uint16, code []byte) []byte {
	w := NewBinaryWriter()
	w.WriteU2(maxStack)
	w.WriteU2(maxLocals)
	w.WriteU4(uint32(len(code)))
	w.WriteBytes(code)
	w.WriteU2(0) // exception_table_length
	w.WriteU2(0) // attributes_count
	return w.Bytes()
}

func (cf *ClassFile) newMember(access uint16, name, descriptor string) (Member, error) {
	nameIndex, err := cf.Pool.AddUtf8(name)
	if err != nil {
		return Member{}, err
	}
	descIndex, err := cf.Pool.AddUtf8(descriptor)
	if err != nil {
		return Member{}, err
	}
	return Member{AccessFlags: access, NameIndex: nameIndex, DescriptorIndex: descIndex}, nil
}

func (cf *ClassFile) AddField(access uint16, name, descriptor string) error {
	m, err := cf.newMember(access, name, descriptor)
	if err != nil {
		return fmt.Errorf("add field %s: %w", name, err)
	}
	cf.Fields = append(cf.Fields, m)
	return nil
}

// AddMethod appends a method; code may be nil for abstract or native methods
func (cf *ClassFile) AddMethod(access uint16, name, descriptor string, code []byte) error {
	m, err := cf.newMember(access, name, descriptor)
	if err != nil {
		return fmt.Errorf("add method %s: %w", name, err)
	}
	if code != nil {
		codeName, err := cf.Pool.AddUtf8(attrCode)
		if err != nil {
			return fmt.Errorf("add method %s: %w", name, err)
		}
		m.Attributes = append(m.Attributes, Attribute{NameIndex: codeName, Data: code})
	}
	cf.Methods = append(cf.Methods, m)
	return nil
}

func (cf *ClassFile) AddInterface(binaryName string) error {
	index, err := cf.Pool.AddClass(InternalName(binaryName))
	if err != nil {
		return fmt.Errorf("add interface %s: %w", binaryName, err)
	}
	cf.Interfaces = append(cf.Interfaces, index)
	return nil
}

// SetSignature attaches a generic Signature attribute to the class
func (cf *ClassFile) SetSignature(signature string) error {
	attrName, err := cf.Pool.AddUtf8(attrSignature)
	if err != nil {
		return err
	}
	sigIndex, err := cf.Pool.AddUtf8(signature)
	if err != nil {
		return err
	}
	data := binary.BigEndian.AppendUint16(nil, sigIndex)
	for i := range cf.Attributes {
		if cf.Attributes[i].NameIndex == attrName {
			cf.Attributes[i].Data = data
			return nil
		}
	}
	cf.Attributes = append(cf.Attributes, Attribute{NameIndex: attrName, Data: data})
	return nil
}

// Signature returns the class-level generic signature, if any
func (cf *ClassFile) Signature() (string, bool) {
	for _, a := range cf.Attributes {
		if name, err := cf.Pool.Utf8(a.NameIndex); err == nil && name == attrSignature && len(a.Data) == 2 {
			if sig, err := cf.Pool.Utf8(binary.BigEndian.Uint16(a.Data)); err == nil {
				return sig, true
			}
		}
	}
	return "", false
}

// FieldDescriptors returns name -> descriptor for every field
func (cf *ClassFile) FieldDescriptors() map[string]string {
	out := make(map[string]string, len(cf.Fields))
	for _, f := range cf.Fields {
		name, _ := cf.Pool.Utf8(f.NameIndex)
		desc, _ := cf.Pool.Utf8(f.DescriptorIndex)
		out[name] = desc
	}
	return out
}
