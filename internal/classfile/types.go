package classfile

import "fmt"

/*
*	Class file format described here
*	https://docs.oracle.com/javase/specs/jvms/se21/html/jvms-4.html
 */

const Magic uint32 = 0xCAFEBABE

type ConstantTag byte

const (
	CONSTANT_Utf8               ConstantTag = 1
	CONSTANT_Integer            ConstantTag = 3
	CONSTANT_Float              ConstantTag = 4
	CONSTANT_Long               ConstantTag = 5
	CONSTANT_Double             ConstantTag = 6
	CONSTANT_Class              ConstantTag = 7
	CONSTANT_String             ConstantTag = 8
	CONSTANT_Fieldref           ConstantTag = 9
	CONSTANT_Methodref          ConstantTag = 10
	CONSTANT_InterfaceMethodref ConstantTag = 11
	CONSTANT_NameAndType        ConstantTag = 12
	CONSTANT_MethodHandle       ConstantTag = 15
	CONSTANT_MethodType         ConstantTag = 16
	CONSTANT_Dynamic            ConstantTag = 17
	CONSTANT_InvokeDynamic      ConstantTag = 18
	CONSTANT_Module             ConstantTag = 19
	CONSTANT_Package            ConstantTag = 20
)

func (t ConstantTag) String() string {
	switch t {
	case CONSTANT_Utf8:
		return "Utf8"
	case CONSTANT_Integer:
		return "Integer"
	case CONSTANT_Float:
		return "Float"
	case CONSTANT_Long:
		return "Long"
	case CONSTANT_Double:
		return "Double"
	case CONSTANT_Class:
		return "Class"
	case CONSTANT_String:
		return "String"
	case CONSTANT_Fieldref:
		return "Fieldref"
	case CONSTANT_Methodref:
		return "Methodref"
	case CONSTANT_InterfaceMethodref:
		return "InterfaceMethodref"
	case CONSTANT_NameAndType:
		return "NameAndType"
	case CONSTANT_MethodHandle:
		return "MethodHandle"
	case CONSTANT_MethodType:
		return "MethodType"
	case CONSTANT_Dynamic:
		return "Dynamic"
	case CONSTANT_InvokeDynamic:
		return "InvokeDynamic"
	case CONSTANT_Module:
		return "Module"
	case CONSTANT_Package:
		return "Package"
	default:
		return fmt.Sprintf("ConstantTag(%d)", byte(t))
	}
}

// Wide constants occupy two pool slots, the second one is unusable.
func (t ConstantTag) IsWide() bool {
	return t == CONSTANT_Long || t == CONSTANT_Double
}

const (
	ACC_PUBLIC    uint16 = 0x0001
	ACC_FINAL     uint16 = 0x0010
	ACC_SUPER     uint16 = 0x0020
	ACC_INTERFACE uint16 = 0x0200
	ACC_ABSTRACT  uint16 = 0x0400
	ACC_SYNTHETIC uint16 = 0x1000
)

// Constant is one entry of the constant pool
type Constant interface {
	Tag() ConstantTag
}

type ConstantUtf8 struct {
	// Raw modified UTF-8 bytes, not decoded
	Value string
}

type ConstantInteger struct {
	Value uint32
}

type ConstantFloat struct {
	Bits uint32
}

type ConstantLong struct {
	Value uint64
}

type ConstantDouble struct {
	Bits uint64
}

type ConstantClass struct {
	NameIndex uint16
}

type ConstantString struct {
	StringIndex uint16
}

// ConstantRef covers Fieldref, Methodref and InterfaceMethodref
type ConstantRef struct {
	Kind             ConstantTag
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

type ConstantMethodType struct {
	DescriptorIndex uint16
}

// ConstantDynamic covers Dynamic and InvokeDynamic
type ConstantDynamic struct {
	Kind                     ConstantTag
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

// ConstantNamed covers Module and Package
type ConstantNamed struct {
	Kind      ConstantTag
	NameIndex uint16
}

func (c *ConstantUtf8) Tag() ConstantTag         { return CONSTANT_Utf8 }
func (c *ConstantInteger) Tag() ConstantTag      { return CONSTANT_Integer }
func (c *ConstantFloat) Tag() ConstantTag        { return CONSTANT_Float }
func (c *ConstantLong) Tag() ConstantTag         { return CONSTANT_Long }
func (c *ConstantDouble) Tag() ConstantTag       { return CONSTANT_Double }
func (c *ConstantClass) Tag() ConstantTag        { return CONSTANT_Class }
func (c *ConstantString) Tag() ConstantTag       { return CONSTANT_String }
func (c *ConstantRef) Tag() ConstantTag          { return c.Kind }
func (c *ConstantNameAndType) Tag() ConstantTag  { return CONSTANT_NameAndType }
func (c *ConstantMethodHandle) Tag() ConstantTag { return CONSTANT_MethodHandle }
func (c *ConstantMethodType) Tag() ConstantTag   { return CONSTANT_MethodType }
func (c *ConstantDynamic) Tag() ConstantTag      { return c.Kind }
func (c *ConstantNamed) Tag() ConstantTag        { return c.Kind }

type Attribute struct {
	NameIndex uint16
	Data      []byte
}

// Member is a field_info or method_info
type Member struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute
}

// ClassFile is the mutable in-memory form of one compiled class.
// It is not safe for concurrent mutation.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         *ConstantPool
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16 // 0 for java.lang.Object
	Interfaces   []uint16
	Fields       []Member
	Methods      []Member
	Attributes   []Attribute
}
