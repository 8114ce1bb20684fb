/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Typed constant-pool getters (§3): every caller that needs a
// class/field/method/name-and-type reference goes through one of
// these instead of indexing CpIndex and switching on Type itself.
// Grounded on FetchCPentry/GetMethInfoFromCPmethref in CPutils.go,
// generalized to return (value, error) instead of panicking on a
// malformed index.
package classloader

import "jacobin/exceptions"

func (cp *CPool) checkIndex(idx uint16) error {
	if int(idx) >= len(cp.CpIndex) {
		return exceptions.ClassFormatError("constant pool index out of range")
	}
	return nil
}

func (cp *CPool) entry(idx uint16, want uint16) (CpEntry, error) {
	if err := cp.checkIndex(idx); err != nil {
		return CpEntry{}, err
	}
	e := cp.CpIndex[idx]
	if e.Type != want {
		return CpEntry{}, exceptions.ClassFormatError("constant pool entry has wrong type")
	}
	return e, nil
}

// ResolveUTF8 returns the string at a UTF8 constant-pool index.
func (cp *CPool) ResolveUTF8(idx uint16) (string, error) {
	e, err := cp.entry(idx, UTF8)
	if err != nil {
		return "", err
	}
	if int(e.Slot) >= len(cp.Utf8Refs) {
		return "", exceptions.ClassFormatError("UTF8 slot out of range")
	}
	return cp.Utf8Refs[e.Slot], nil
}

// ResolveClassName returns the binary class name a ClassRef entry
// names, following its UTF8 indirection.
func (cp *CPool) ResolveClassName(idx uint16) (string, error) {
	e, err := cp.entry(idx, ClassRef)
	if err != nil {
		return "", err
	}
	if int(e.Slot) >= len(cp.ClassRefs) {
		return "", exceptions.ClassFormatError("class ref slot out of range")
	}
	return cp.ResolveUTF8(cp.ClassRefs[e.Slot])
}

// ResolveNameAndType returns a NameAndType entry's name and descriptor.
func (cp *CPool) ResolveNameAndType(idx uint16) (name, desc string, err error) {
	e, err := cp.entry(idx, NameAndType)
	if err != nil {
		return "", "", err
	}
	if int(e.Slot) >= len(cp.NameAndTypes) {
		return "", "", exceptions.ClassFormatError("name-and-type slot out of range")
	}
	nt := cp.NameAndTypes[e.Slot]
	name, err = cp.ResolveUTF8(nt.NameIndex)
	if err != nil {
		return "", "", err
	}
	desc, err = cp.ResolveUTF8(nt.DescIndex)
	return name, desc, err
}

// FieldRef is a resolved field reference: owning class, field name,
// field descriptor.
type FieldRef struct {
	ClassName string
	FieldName string
	FieldType string
}

// ResolveFieldRef resolves a FieldRef constant-pool entry.
func (cp *CPool) ResolveFieldRef(idx uint16) (FieldRef, error) {
	e, err := cp.entry(idx, FieldRef)
	if err != nil {
		return FieldRef{}, err
	}
	if int(e.Slot) >= len(cp.FieldRefs) {
		return FieldRef{}, exceptions.ClassFormatError("field ref slot out of range")
	}
	fr := cp.FieldRefs[e.Slot]
	className, err := cp.ResolveClassName(fr.ClassIndex)
	if err != nil {
		return FieldRef{}, err
	}
	name, desc, err := cp.ResolveNameAndType(fr.NameAndType)
	if err != nil {
		return FieldRef{}, err
	}
	return FieldRef{ClassName: className, FieldName: name, FieldType: desc}, nil
}

// MethodRef is a resolved method (or interface-method) reference.
type MethodRef struct {
	ClassName      string
	MethodName     string
	MethodType     string
	IsInterface    bool
}

// ResolveMethodRef resolves a MethodRef or InterfaceRef constant-pool
// entry uniformly, since both invokevirtual/invokespecial/invokestatic
// and invokeinterface key the intrinsic registry the same way (§4.5).
func (cp *CPool) ResolveMethodRef(idx uint16) (MethodRef, error) {
	if err := cp.checkIndex(idx); err != nil {
		return MethodRef{}, err
	}
	e := cp.CpIndex[idx]
	switch e.Type {
	case MethodRef:
		if int(e.Slot) >= len(cp.MethodRefs) {
			return MethodRef{}, exceptions.ClassFormatError("method ref slot out of range")
		}
		mr := cp.MethodRefs[e.Slot]
		className, err := cp.ResolveClassName(mr.ClassIndex)
		if err != nil {
			return MethodRef{}, err
		}
		name, desc, err := cp.ResolveNameAndType(mr.NameAndType)
		if err != nil {
			return MethodRef{}, err
		}
		return MethodRef{ClassName: className, MethodName: name, MethodType: desc}, nil
	case Interface:
		if int(e.Slot) >= len(cp.InterfaceRefs) {
			return MethodRef{}, exceptions.ClassFormatError("interface ref slot out of range")
		}
		ir := cp.InterfaceRefs[e.Slot]
		className, err := cp.ResolveClassName(ir.ClassIndex)
		if err != nil {
			return MethodRef{}, err
		}
		name, desc, err := cp.ResolveNameAndType(ir.NameAndType)
		if err != nil {
			return MethodRef{}, err
		}
		return MethodRef{ClassName: className, MethodName: name, MethodType: desc, IsInterface: true}, nil
	default:
		return MethodRef{}, exceptions.ClassFormatError("constant pool entry is not a method reference")
	}
}

// ResolveInvokeDynamic returns an InvokeDynamic entry's bootstrap-method
// index and its name-and-type.
func (cp *CPool) ResolveInvokeDynamic(idx uint16) (bootstrapIndex uint16, name, desc string, err error) {
	e, err := cp.entry(idx, InvokeDynamic)
	if err != nil {
		return 0, "", "", err
	}
	if int(e.Slot) >= len(cp.InvokeDynamics) {
		return 0, "", "", exceptions.ClassFormatError("invokedynamic slot out of range")
	}
	id := cp.InvokeDynamics[e.Slot]
	name, desc, err = cp.ResolveNameAndType(id.NameAndType)
	return id.BootstrapIndex, name, desc, err
}

// ResolveInt, ResolveFloat, ResolveLong, ResolveDouble, ResolveString
// fetch loadable constants (ldc/ldc2_w targets).
func (cp *CPool) ResolveInt(idx uint16) (int32, error) {
	e, err := cp.entry(idx, IntConst)
	if err != nil {
		return 0, err
	}
	return cp.IntConsts[e.Slot], nil
}

func (cp *CPool) ResolveFloat(idx uint16) (float32, error) {
	e, err := cp.entry(idx, FloatConst)
	if err != nil {
		return 0, err
	}
	return cp.Floats[e.Slot], nil
}

func (cp *CPool) ResolveLong(idx uint16) (int64, error) {
	e, err := cp.entry(idx, LongConst)
	if err != nil {
		return 0, err
	}
	return cp.LongConsts[e.Slot], nil
}

func (cp *CPool) ResolveDouble(idx uint16) (float64, error) {
	e, err := cp.entry(idx, DoubleConst)
	if err != nil {
		return 0, err
	}
	return cp.Doubles[e.Slot], nil
}

func (cp *CPool) ResolveString(idx uint16) (string, error) {
	e, err := cp.entry(idx, StringConst)
	if err != nil {
		return "", err
	}
	return cp.ResolveUTF8(e.Slot)
}
