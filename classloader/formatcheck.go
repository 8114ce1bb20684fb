/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// FormatCheckClass performs the structural constant-pool checks the
// spec places before verification proper: CpCount against the actual
// number of recorded entries, a correctly-placed dummy index 0,
// well-formed UTF8 bytes, and slot indices within the typed slices
// they claim to reference. Grounded on jacobin's validateConstantPool
// family (kittylyst-jacobin/src/jvm/classloader/formatCheck.go),
// adapted to the CPool/CpEntry shape in classes.go.
package classloader

import (
	"unicode/utf8"

	"jacobin/exceptions"
)

// FormatCheckClass runs the structural checks over a parsed class's
// constant pool. cpCount is the class file's declared constant_pool_count
// (one more than the highest valid index, per the class file format).
func FormatCheckClass(data *ClData, cpCount int) error {
	cp := &data.CP
	if cpCount != len(cp.CpIndex) {
		return exceptions.ClassFormatError("constant pool count does not match number of entries")
	}
	if len(cp.CpIndex) == 0 || cp.CpIndex[0].Type != Dummy {
		return exceptions.ClassFormatError("constant pool is missing its initial dummy entry")
	}

	for i, e := range cp.CpIndex {
		if i == 0 {
			continue
		}
		if err := checkEntrySlot(cp, e); err != nil {
			return err
		}
		if e.Type == LongConst || e.Type == DoubleConst {
			if i+1 >= len(cp.CpIndex) || cp.CpIndex[i+1].Type != Dummy {
				return exceptions.ClassFormatError("long/double constant must be followed by a dummy entry")
			}
		}
	}
	return nil
}

func checkEntrySlot(cp *CPool, e CpEntry) error {
	idx := int(e.Slot)
	switch e.Type {
	case Dummy:
		return nil
	case UTF8:
		if idx >= len(cp.Utf8Refs) {
			return exceptions.ClassFormatError("UTF8 entry slot out of range")
		}
		if !utf8.ValidString(cp.Utf8Refs[idx]) {
			return exceptions.ClassFormatError("UTF8 entry is not valid UTF-8")
		}
	case IntConst:
		if idx >= len(cp.IntConsts) {
			return exceptions.ClassFormatError("int constant slot out of range")
		}
	case FloatConst:
		if idx >= len(cp.Floats) {
			return exceptions.ClassFormatError("float constant slot out of range")
		}
	case LongConst:
		if idx >= len(cp.LongConsts) {
			return exceptions.ClassFormatError("long constant slot out of range")
		}
	case DoubleConst:
		if idx >= len(cp.Doubles) {
			return exceptions.ClassFormatError("double constant slot out of range")
		}
	case ClassRef:
		if idx >= len(cp.ClassRefs) {
			return exceptions.ClassFormatError("class ref slot out of range")
		}
	case StringConst:
		if idx >= len(cp.Utf8Refs) {
			return exceptions.ClassFormatError("string constant slot out of range")
		}
	case FieldRef:
		if idx >= len(cp.FieldRefs) {
			return exceptions.ClassFormatError("field ref slot out of range")
		}
	case MethodRef:
		if idx >= len(cp.MethodRefs) {
			return exceptions.ClassFormatError("method ref slot out of range")
		}
	case Interface:
		if idx >= len(cp.InterfaceRefs) {
			return exceptions.ClassFormatError("interface ref slot out of range")
		}
	case NameAndType:
		if idx >= len(cp.NameAndTypes) {
			return exceptions.ClassFormatError("name-and-type slot out of range")
		}
	case MethodHandle:
		if idx >= len(cp.MethodHandles) {
			return exceptions.ClassFormatError("method handle slot out of range")
		}
	case MethodType:
		if idx >= len(cp.MethodTypes) {
			return exceptions.ClassFormatError("method type slot out of range")
		}
	case Dynamic:
		if idx >= len(cp.Dynamics) {
			return exceptions.ClassFormatError("dynamic constant slot out of range")
		}
	case InvokeDynamic:
		if idx >= len(cp.InvokeDynamics) {
			return exceptions.ClassFormatError("invokedynamic slot out of range")
		}
	case Module, Package:
		if idx >= len(cp.Utf8Refs) {
			return exceptions.ClassFormatError("module/package slot out of range")
		}
	default:
		return exceptions.ClassFormatError("unknown constant pool entry type")
	}
	return nil
}
