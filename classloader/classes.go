/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Class-data model: the constant pool and the parsed-class shape the
// verifier, interpreter, and intrinsic dispatcher all read. Class-file
// parsing itself is out of scope (§1): these types are the contract a
// pre-parsed class is handed to the VM in, grounded on the CPool/ClData
// split jacobin uses to keep constant-pool entries cache-friendly
// (typed slices instead of one interface{} slice per entry).
package classloader

// Klass is the method-area entry for one loaded class.
type Klass struct {
	Status byte // I=Initializing, F=format-checked, V=verified, L=linked, N=instantiated
	Loader string
	Data   *ClData
}

// Status bytes, in the order a class moves through them.
const (
	StatusInitializing byte = 'I'
	StatusFormatChecked byte = 'F'
	StatusVerified      byte = 'V'
	StatusLinked        byte = 'L'
	StatusInstantiated  byte = 'N'
)

// ClData is a fully parsed class, independent of how it was obtained.
type ClData struct {
	Name        string
	Superclass  string
	Module      string
	Pkg         string
	// MajorVersion is the class file's major version (§6), the value
	// intrinsic dispatch's version predicates (§4.5) filter on. Zero
	// means "unknown" — FetchMethodAndCP falls back to the VM's own
	// supported major version in that case.
	MajorVersion int
	Interfaces  []uint16
	Fields      []Field
	MethodTable map[string]*Method
	Methods     []Method
	Attributes  []Attr
	SourceFile  string
	Bootstraps  []BootstrapMethod
	CP          CPool
	Access      AccessFlags
	ClInit      byte
}

// AccessFlags are the class-level access_flags, already decoded from
// the bitmask (§4.1 rule 5 reads ClassIsInterface/ClassIsAbstract).
type AccessFlags struct {
	ClassIsPublic     bool
	ClassIsFinal      bool
	ClassIsSuper      bool
	ClassIsInterface  bool
	ClassIsAbstract   bool
	ClassIsSynthetic  bool
	ClassIsAnnotation bool
	ClassIsEnum       bool
	ClassIsModule     bool
}

// Field is one field_info entry.
type Field struct {
	AccessFlags int
	Name        uint16 // UTF8 index: field name
	Desc        uint16 // UTF8 index: field descriptor
	IsStatic    bool
	Attributes  []Attr
}

// Method is one method_info entry, including constructors and <clinit>.
type Method struct {
	AccessFlags int
	Name        uint16
	Desc        uint16
	CodeAttr    CodeAttrib
	Attributes  []Attr
	Exceptions  []uint16
	Parameters  []ParamAttrib
	Deprecated  bool
}

// CodeAttrib is the Code attribute: the bytecode the verifier proves
// and the interpreter runs (§4.2, §4.4).
type CodeAttrib struct {
	MaxStack   int
	MaxLocals  int
	Code       []byte
	Exceptions []CodeException
	Attributes []Attr
}

// ParamAttrib is one entry of the MethodParameters attribute.
type ParamAttrib struct {
	Name        string
	AccessFlags int
}

// Attr is a generic, not-yet-interpreted class/field/method attribute.
type Attr struct {
	AttrName    uint16
	AttrSize    int
	AttrContent []byte
}

// CodeException is one entry of a Code attribute's exception table
// (§4.4 "walk the exception table top to bottom").
type CodeException struct {
	StartPc   int
	EndPc     int
	HandlerPc int
	CatchType uint16 // CP index of a ClassRef, or 0 for catch-all (finally)
}

// BootstrapMethod is one entry of the BootstrapMethods attribute,
// referenced by invokedynamic/Dynamic constant-pool entries.
type BootstrapMethod struct {
	MethodRef uint16
	Args      []uint16
}

// CPool is the constant pool: one CpIndex slot per constant-pool
// index, type-demultiplexed into the typed slices below so a resolved
// entry never needs a type assertion (§3 "typed getters").
type CPool struct {
	CpIndex        []CpEntry
	ClassRefs      []uint16 // UTF8 index of the class name
	Doubles        []float64
	Dynamics       []DynamicEntry
	FieldRefs      []FieldRefEntry
	Floats         []float32
	IntConsts      []int32
	InterfaceRefs  []InterfaceRefEntry
	InvokeDynamics []InvokeDynamicEntry
	LongConsts     []int64
	MethodHandles  []MethodHandleEntry
	MethodRefs     []MethodRefEntry
	MethodTypes    []uint16
	NameAndTypes   []NameAndTypeEntry
	Utf8Refs       []string
}

// CpEntry is the dispatch record at CpIndex[n]: Type names which typed
// slice Slot indexes into.
type CpEntry struct {
	Type uint16
	Slot uint16
}

// Constant-pool entry-type tags, matching the JVM spec's tag values.
const (
	Dummy        uint16 = 0
	UTF8         uint16 = 1
	IntConst     uint16 = 3
	FloatConst   uint16 = 4
	LongConst    uint16 = 5
	DoubleConst  uint16 = 6
	ClassRef     uint16 = 7
	StringConst  uint16 = 8
	FieldRef     uint16 = 9
	MethodRef    uint16 = 10
	Interface    uint16 = 11
	NameAndType  uint16 = 12
	MethodHandle uint16 = 15
	MethodType   uint16 = 16
	Dynamic      uint16 = 17
	InvokeDynamic uint16 = 18
	Module       uint16 = 19
	Package      uint16 = 20
)

type FieldRefEntry struct {
	ClassIndex  uint16
	NameAndType uint16
}

type MethodRefEntry struct {
	ClassIndex  uint16
	NameAndType uint16
}

type InterfaceRefEntry struct {
	ClassIndex  uint16
	NameAndType uint16
}

type NameAndTypeEntry struct {
	NameIndex uint16
	DescIndex uint16
}

type MethodHandleEntry struct {
	RefKind  uint16
	RefIndex uint16
}

type DynamicEntry struct {
	BootstrapIndex uint16
	NameAndType    uint16
}

type InvokeDynamicEntry struct {
	BootstrapIndex uint16
	NameAndType    uint16
}
