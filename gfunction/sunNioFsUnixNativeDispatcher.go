/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2023-5 by  the Jacobin authors. Consult jacobin.org.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0) All rights reserved.
 */

package gfunction

// sun/nio/fs/UnixNativeDispatcher backs java.nio.file's filesystem
// calls (§1(d) "filesystem" is named as an in-scope intrinsic
// family). Thin wrappers over os/syscall, grounded on
// original_source/ristretto_vm's sun/nio/fs/unixnativedispatcher.rs
// shape (§ SUPPLEMENTED FEATURES) for which operations this dispatcher
// is responsible for versus what java.nio.file.Files itself handles
// in bytecode.

import (
	"syscall"

	"jacobin/excNames"
	"jacobin/object"
)

func Load_Sun_Nio_Fs_UnixNativeDispatcher() {
	MethodSignatures["sun/nio/fs/UnixNativeDispatcher.init()I"] =
		GMeth{ParamSlots: 0, GFunction: unixDispatcherInit}

	MethodSignatures["sun/nio/fs/UnixNativeDispatcher.stat0(Lsun/nio/fs/UnixPath;Lsun/nio/fs/UnixFileAttributes;)V"] =
		GMeth{ParamSlots: 2, GFunction: trapFunction}

	MethodSignatures["sun/nio/fs/UnixNativeDispatcher.access0(JI)V"] =
		GMeth{ParamSlots: 2, GFunction: unixAccess0}

	MethodSignatures["sun/nio/fs/UnixNativeDispatcher.open0(JII)I"] =
		GMeth{ParamSlots: 3, GFunction: unixOpen0}

	MethodSignatures["sun/nio/fs/UnixNativeDispatcher.close(I)V"] =
		GMeth{ParamSlots: 1, GFunction: unixClose}

	MethodSignatures["sun/nio/fs/UnixNativeDispatcher.unlink0(J)V"] =
		GMeth{ParamSlots: 1, GFunction: trapFunction}
}

// unixDispatcherInit reports the capability bitmask sun.nio.fs reads
// at class init; zero is "no optional capabilities" which is always
// a legal, if conservative, answer.
func unixDispatcherInit(params []interface{}) interface{} { return int32(0) }

func pathFromParam(p interface{}) (string, bool) {
	obj, ok := p.(*object.Object)
	if !ok || obj == nil {
		return "", false
	}
	return object.GoStringFromStringObject(obj), true
}

func unixAccess0(params []interface{}) interface{} {
	path, ok := pathFromParam(params[0])
	if !ok {
		return getGErrBlk(excNames.IllegalArgumentException, "access0: expected a path")
	}
	mode, _ := params[1].(int32)
	if err := syscall.Access(path, uint32(mode)); err != nil {
		return getGErrBlk(excNames.IOException, err.Error())
	}
	return nil
}

func unixOpen0(params []interface{}) interface{} {
	path, ok := pathFromParam(params[0])
	if !ok {
		return getGErrBlk(excNames.IllegalArgumentException, "open0: expected a path")
	}
	flags, _ := params[1].(int32)
	mode, _ := params[2].(int32)
	fd, err := syscall.Open(path, int(flags), uint32(mode))
	if err != nil {
		return getGErrBlk(excNames.IOException, err.Error())
	}
	return int32(fd)
}

func unixClose(params []interface{}) interface{} {
	fd, _ := params[0].(int32)
	if err := syscall.Close(int(fd)); err != nil {
		return getGErrBlk(excNames.IOException, err.Error())
	}
	return nil
}
