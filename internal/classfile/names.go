package classfile

import "strings"

// InternalName converts android.app.Fragment to android/app/Fragment
func InternalName(binaryName string) string {
	return strings.ReplaceAll(binaryName, ".", "/")
}

// BinaryName converts android/app/Fragment to android.app.Fragment
func BinaryName(internalName string) string {
	return strings.ReplaceAll(internalName, "/", ".")
}

// SimpleName strips the package: a.b.Outer$Inner -> Outer$Inner
func SimpleName(binaryName string) string {
	return binaryName[strings.LastIndex(binaryName, ".")+1:]
}

// EntryPath is the archive entry path of a class: a/b/C.class
func EntryPath(binaryName string) string {
	return InternalName(binaryName) + ".class"
}

// Name returns the binary (dotted) name of the class itself
func (cf *ClassFile) Name() string {
	name, err := cf.Pool.ClassName(cf.ThisClass)
	if err != nil {
		return ""
	}
	return BinaryName(name)
}

func (cf *ClassFile) SimpleName() string {
	return SimpleName(cf.Name())
}

// SuperName returns the superclass binary name, false for java.lang.Object
// and other roots.
func (cf *ClassFile) SuperName() (string, bool) {
	if cf.SuperClass == 0 {
		return "", false
	}
	name, err := cf.Pool.ClassName(cf.SuperClass)
	if err != nil {
		return "", false
	}
	return BinaryName(name), true
}

func (cf *ClassFile) InterfaceNames() []string {
	names := make([]string, 0, len(cf.Interfaces))
	for _, index := range cf.Interfaces {
		if name, err := cf.Pool.ClassName(index); err == nil {
			names = append(names, BinaryName(name))
		}
	}
	return names
}

func (cf *ClassFile) IsInterface() bool {
	return cf.AccessFlags&ACC_INTERFACE != 0
}
