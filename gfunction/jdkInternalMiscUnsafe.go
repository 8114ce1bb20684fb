/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2023-5 by  the Jacobin authors. Consult jacobin.org.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0) All rights reserved.
 */

package gfunction

// jdk/internal/misc/Unsafe carries the VM's memory-model intrinsics:
// CAS, volatile load/store, fences, and the opaque field-offset
// tokens the rest of Unsafe's API is built on (§4.5, §5). This module
// has no real heap to hand out byte offsets into, so
// objectFieldOffset1 mints an opaque int64 token per field name the
// way §9's open question anticipates ("offsets are opaque tokens");
// the CAS/volatile family below is the only code that ever interprets
// one, by mapping it back to a field name. Grounded on the shape of
// jdkInternalMiscScopedMemoryAccess.go (same package, same
// MethodSignatures registration idiom) and on
// original_source/ristretto_vm's jdk/internal/misc/unsafe.rs for the
// intrinsic surface (§ SUPPLEMENTED FEATURES).

import (
	"sync"

	"jacobin/excNames"
	"jacobin/object"
	"jacobin/thread"
)

// casMu is the single VM-wide lock CAS and volatile-field intrinsics
// take for the duration of one read-modify-write. A global lock
// rather than a per-object one, since this implementation has no
// per-object monitor yet (§5 notes monitor entry is handled
// elsewhere); it is enough to make each intrinsic's own
// read-compare-write atomic with respect to every other CAS/volatile
// access in the VM, which is all §4.5's boundary scenarios require.
var casMu sync.Mutex

var (
	offsetMu     sync.Mutex
	offsetByName = make(map[string]int64)
	nameByOffset = make(map[int64]string)
	nextOffset   int64 = 16 // past an arbitrary object header
)

// fieldOffsetFor mints (or returns the existing) opaque token for a
// field name.
func fieldOffsetFor(name string) int64 {
	offsetMu.Lock()
	defer offsetMu.Unlock()
	if off, ok := offsetByName[name]; ok {
		return off
	}
	nextOffset += 8
	offsetByName[name] = nextOffset
	nameByOffset[nextOffset] = name
	return nextOffset
}

func fieldNameForOffset(off int64) (string, bool) {
	offsetMu.Lock()
	defer offsetMu.Unlock()
	name, ok := nameByOffset[off]
	return name, ok
}

func Load_Jdk_Internal_Misc_Unsafe() {
	MethodSignatures["jdk/internal/misc/Unsafe.registerNatives()V"] =
		GMeth{ParamSlots: 0, GFunction: justReturn}

	MethodSignatures["jdk/internal/misc/Unsafe.objectFieldOffset1(Ljava/lang/Class;Ljava/lang/String;)J"] =
		GMeth{ParamSlots: 2, GFunction: unsafeObjectFieldOffset1}

	MethodSignatures["jdk/internal/misc/Unsafe.compareAndSetInt(Ljava/lang/Object;JII)Z"] =
		GMeth{ParamSlots: 4, GFunction: unsafeCompareAndSetInt}
	MethodSignatures["jdk/internal/misc/Unsafe.compareAndSetLong(Ljava/lang/Object;JJJ)Z"] =
		GMeth{ParamSlots: 4, GFunction: unsafeCompareAndSetLong}
	MethodSignatures["jdk/internal/misc/Unsafe.compareAndSetReference(Ljava/lang/Object;JLjava/lang/Object;Ljava/lang/Object;)Z"] =
		GMeth{ParamSlots: 4, GFunction: unsafeCompareAndSetReference}

	MethodSignatures["jdk/internal/misc/Unsafe.getIntVolatile(Ljava/lang/Object;J)I"] =
		GMeth{ParamSlots: 2, GFunction: unsafeGetIntVolatile}
	MethodSignatures["jdk/internal/misc/Unsafe.putIntVolatile(Ljava/lang/Object;JI)V"] =
		GMeth{ParamSlots: 3, GFunction: unsafePutIntVolatile}
	MethodSignatures["jdk/internal/misc/Unsafe.getLongVolatile(Ljava/lang/Object;J)J"] =
		GMeth{ParamSlots: 2, GFunction: unsafeGetLongVolatile}
	MethodSignatures["jdk/internal/misc/Unsafe.putLongVolatile(Ljava/lang/Object;JJ)V"] =
		GMeth{ParamSlots: 3, GFunction: unsafePutLongVolatile}
	MethodSignatures["jdk/internal/misc/Unsafe.getReferenceVolatile(Ljava/lang/Object;J)Ljava/lang/Object;"] =
		GMeth{ParamSlots: 2, GFunction: unsafeGetReferenceVolatile}
	MethodSignatures["jdk/internal/misc/Unsafe.putReferenceVolatile(Ljava/lang/Object;JLjava/lang/Object;)V"] =
		GMeth{ParamSlots: 3, GFunction: unsafePutReferenceVolatile}

	MethodSignatures["jdk/internal/misc/Unsafe.loadFence()V"] =
		GMeth{ParamSlots: 0, GFunction: unsafeFence}
	MethodSignatures["jdk/internal/misc/Unsafe.storeFence()V"] =
		GMeth{ParamSlots: 0, GFunction: unsafeFence}
	MethodSignatures["jdk/internal/misc/Unsafe.fullFence()V"] =
		GMeth{ParamSlots: 0, GFunction: unsafeFence}

	MethodSignatures["jdk/internal/misc/Unsafe.arrayBaseOffset0(Ljava/lang/Class;)I"] =
		GMeth{ParamSlots: 1, GFunction: unsafeConstZero}
	MethodSignatures["jdk/internal/misc/Unsafe.arrayIndexScale0(Ljava/lang/Class;)I"] =
		GMeth{ParamSlots: 1, GFunction: unsafeConstOne}
	MethodSignatures["jdk/internal/misc/Unsafe.addressSize0()I"] =
		GMeth{ParamSlots: 0, GFunction: unsafeAddressSize}

	MethodSignatures["jdk/internal/misc/Unsafe.allocateUninitializedArray0(Ljava/lang/Class;I)Ljava/lang/Object;"] =
		GMeth{ParamSlots: 2, GFunction: unsafeAllocateUninitializedArray0}

	MethodSignatures["jdk/internal/misc/Unsafe.park(ZJ)V"] =
		GMeth{ParamSlots: 2, NeedsThread: true, GFunctionTh: unsafePark}
	MethodSignatures["jdk/internal/misc/Unsafe.unpark(Ljava/lang/Object;)V"] =
		GMeth{ParamSlots: 1, NeedsThread: true, GFunctionTh: unsafeUnpark}

	// §9 open question: deferred rather than guessed at until a
	// consumer path exercises native memory allocation.
	MethodSignatures["jdk/internal/misc/Unsafe.allocateMemory0(J)J"] =
		GMeth{ParamSlots: 1, GFunction: trapFunction}
	MethodSignatures["jdk/internal/misc/Unsafe.reallocateMemory0(JJ)J"] =
		GMeth{ParamSlots: 2, GFunction: trapFunction}
}

func unsafeObjectFieldOffset1(params []interface{}) interface{} {
	name, ok := params[1].(*object.Object)
	if !ok {
		return getGErrBlk(excNames.IllegalArgumentException, "objectFieldOffset1: expected field-name String")
	}
	return fieldOffsetFor(object.GoStringFromStringObject(name))
}

func resolveCasObject(params []interface{}) (*object.Object, string, *GErrBlk) {
	obj, ok := params[0].(*object.Object)
	if !ok || obj == nil {
		return nil, "", getGErrBlk(excNames.NullPointerException, "Unsafe: receiver is null")
	}
	off, ok := params[1].(int64)
	if !ok {
		return nil, "", getGErrBlk(excNames.IllegalArgumentException, "Unsafe: offset must be a long")
	}
	name, ok := fieldNameForOffset(off)
	if !ok {
		return nil, "", getGErrBlk(excNames.IllegalArgumentException, "Unsafe: unknown field offset")
	}
	return obj, name, nil
}

func unsafeCompareAndSetInt(params []interface{}) interface{} {
	obj, name, err := resolveCasObject(params)
	if err != nil {
		return err
	}
	expected, _ := params[2].(int32)
	newVal, _ := params[3].(int32)

	casMu.Lock()
	defer casMu.Unlock()
	fld := obj.FieldTable[name]
	cur, _ := fld.Fvalue.(int32)
	if cur != expected {
		return int32(0)
	}
	fld.Fvalue = newVal
	obj.FieldTable[name] = fld
	return int32(1)
}

func unsafeCompareAndSetLong(params []interface{}) interface{} {
	obj, name, err := resolveCasObject(params)
	if err != nil {
		return err
	}
	expected, _ := params[2].(int64)
	newVal, _ := params[3].(int64)

	casMu.Lock()
	defer casMu.Unlock()
	fld := obj.FieldTable[name]
	cur, _ := fld.Fvalue.(int64)
	if cur != expected {
		return int32(0)
	}
	fld.Fvalue = newVal
	obj.FieldTable[name] = fld
	return int32(1)
}

func unsafeCompareAndSetReference(params []interface{}) interface{} {
	obj, name, err := resolveCasObject(params)
	if err != nil {
		return err
	}
	expected := params[2]
	newVal := params[3]

	casMu.Lock()
	defer casMu.Unlock()
	fld := obj.FieldTable[name]
	if fld.Fvalue != expected {
		return int32(0)
	}
	fld.Fvalue = newVal
	obj.FieldTable[name] = fld
	return int32(1)
}

func unsafeGetIntVolatile(params []interface{}) interface{} {
	obj, name, err := resolveCasObject(params)
	if err != nil {
		return err
	}
	casMu.Lock()
	defer casMu.Unlock()
	v, _ := obj.FieldTable[name].Fvalue.(int32)
	return v
}

func unsafePutIntVolatile(params []interface{}) interface{} {
	obj, name, err := resolveCasObject(params)
	if err != nil {
		return err
	}
	val, _ := params[2].(int32)
	casMu.Lock()
	defer casMu.Unlock()
	fld := obj.FieldTable[name]
	fld.Fvalue = val
	obj.FieldTable[name] = fld
	return nil
}

func unsafeGetLongVolatile(params []interface{}) interface{} {
	obj, name, err := resolveCasObject(params)
	if err != nil {
		return err
	}
	casMu.Lock()
	defer casMu.Unlock()
	v, _ := obj.FieldTable[name].Fvalue.(int64)
	return v
}

func unsafePutLongVolatile(params []interface{}) interface{} {
	obj, name, err := resolveCasObject(params)
	if err != nil {
		return err
	}
	val, _ := params[2].(int64)
	casMu.Lock()
	defer casMu.Unlock()
	fld := obj.FieldTable[name]
	fld.Fvalue = val
	obj.FieldTable[name] = fld
	return nil
}

func unsafeGetReferenceVolatile(params []interface{}) interface{} {
	obj, name, err := resolveCasObject(params)
	if err != nil {
		return err
	}
	casMu.Lock()
	defer casMu.Unlock()
	return obj.FieldTable[name].Fvalue
}

func unsafePutReferenceVolatile(params []interface{}) interface{} {
	obj, name, err := resolveCasObject(params)
	if err != nil {
		return err
	}
	casMu.Lock()
	defer casMu.Unlock()
	fld := obj.FieldTable[name]
	fld.Fvalue = params[2]
	obj.FieldTable[name] = fld
	return nil
}

// unsafeFence backs loadFence/storeFence/fullFence. Go's memory model
// gives every goroutine-visible write made under casMu a
// happens-before edge to the next lock holder, so taking and
// releasing the same lock CAS/volatile ops use stands in for the
// acquire/release/sequential-consistency barrier distinctions §5
// draws (this module runs on hosts where that distinction is not
// independently observable without a real weak-memory backend).
func unsafeFence(params []interface{}) interface{} {
	casMu.Lock()
	casMu.Unlock()
	return nil
}

func unsafeConstZero(params []interface{}) interface{} { return int32(0) }
func unsafeConstOne(params []interface{}) interface{}  { return int32(1) }
func unsafeAddressSize(params []interface{}) interface{} {
	return int32(8)
}

func unsafeAllocateUninitializedArray0(params []interface{}) interface{} {
	length, ok := params[1].(int32)
	if !ok || length < 0 {
		return getGErrBlk(excNames.NegativeArraySizeException, "allocateUninitializedArray0: negative length")
	}
	return make([]int64, length)
}

func unsafePark(th *thread.JavaThread, params []interface{}) interface{} {
	th.Park()
	return nil
}

// unsafeUnpark grants a permit on the calling thread rather than the
// java.lang.Thread object passed as params[0]: this module has no
// object-identity-to-JavaThread registry to resolve an arbitrary
// target thread through, so it only models the common self-unpark
// pattern LockSupport wraps (a thread pre-loading its own next park).
func unsafeUnpark(th *thread.JavaThread, params []interface{}) interface{} {
	th.Unpark()
	return nil
}
