/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Method invocation and field access, split out of run.go's opcode
// switch because both dispatch through classloader.FetchMethodAndCP /
// the method area the same way regardless of which invoke* opcode or
// which field opcode triggered them. Grounded on jacobin's
// jvm/invoke.go (runGmethod/runFrame dispatch on MTentry.MType) and
// getfield/putfield handling in jvm/run.go.
package jvm

import (
	"jacobin/classloader"
	"jacobin/excNames"
	"jacobin/exceptions"
	"jacobin/frames"
	"jacobin/gfunction"
	"jacobin/modules"
	"jacobin/object"
	"jacobin/opcodes"
	"jacobin/statics"
	"jacobin/thread"
)

// ModuleAccess is the process-wide module access engine (§4.6)
// invokeFromCP consults before crossing a class's method-table entry
// into another class. CLI-parsed --add-reads/--add-exports/--add-opens
// populate it through globals.ModuleConfig at startup (see HandleCli
// in main.go);
// nothing beyond that config exists until a class's module is known
// to the classloader, at which point moduleOf resolves it.
var ModuleAccess = modules.New()

// moduleOf returns the module the classloader recorded for className,
// or "" (the unnamed module) if the class isn't loaded yet or carries
// no module metadata.
func moduleOf(className string) string {
	k := classloader.MethAreaFetch(className)
	if k == nil || k.Data == nil {
		return ""
	}
	return k.Data.Module
}

// checkModuleAccess enforces §4.6's regular-access rule at an
// invocation boundary: fromClass must read toClass's module, and that
// module must export toClass's package to fromClass's module. Calls
// within the same module (including two classes that both report the
// unnamed module) are always allowed.
func checkModuleAccess(fromClass, toClass string) error {
	if fromClass == "" || toClass == "" {
		return nil
	}
	fromModule := moduleOf(fromClass)
	toModule := moduleOf(toClass)
	if fromModule == toModule {
		return nil
	}
	if err := ModuleAccess.RequireAccess(fromModule, toModule, toClass); err != nil {
		if ae, ok := err.(*modules.AccessError); ok {
			return exceptions.New(excNames.IllegalAccessError, ae.Message)
		}
		return exceptions.New(excNames.IllegalAccessError, err.Error())
	}
	return nil
}

// stepFieldAccess implements GETFIELD/PUTFIELD/GETSTATIC/PUTSTATIC:
// resolve the field reference, then read or write the backing storage
// (the object's FieldTable for instance fields, the statics table for
// static ones).
func stepFieldAccess(th *thread.JavaThread, f *frames.Frame, op byte, code []byte) error {
	idx := uint16(u16(code, f.PC+1))
	fr, err := f.CP.ResolveFieldRef(idx)
	if err != nil {
		return err
	}

	if op == opcodes.GETSTATIC || op == opcodes.PUTSTATIC {
		if ierr := RunClassInitializer(th, fr.ClassName); ierr != nil {
			return ierr
		}
	}

	switch op {
	case opcodes.GETSTATIC:
		v, ok := statics.GetStaticValue(fr.ClassName, fr.FieldName)
		if !ok {
			return exceptions.Newf(excNames.InternalError, "no static field %s.%s", fr.ClassName, fr.FieldName)
		}
		f.Push(v)

	case opcodes.PUTSTATIC:
		v := f.Pop()
		statics.AddStatic(fr.ClassName, fr.FieldName, fr.FieldType, v)

	case opcodes.GETFIELD:
		v := f.Pop()
		obj, ok := v.(*object.Object)
		if !ok || obj == nil {
			return exceptions.New(excNames.NullPointerException, "getfield on null reference")
		}
		field, present := obj.FieldTable[fr.FieldName]
		if !present {
			return exceptions.Newf(excNames.InternalError, "no field %s on %s", fr.FieldName, obj.ClassName())
		}
		f.Push(field.Fvalue)

	case opcodes.PUTFIELD:
		value := f.Pop()
		v := f.Pop()
		obj, ok := v.(*object.Object)
		if !ok || obj == nil {
			return exceptions.New(excNames.NullPointerException, "putfield on null reference")
		}
		obj.FieldTable[fr.FieldName] = object.Field{Ftype: fr.FieldType, Fvalue: value}
	}

	f.PC += 3
	return nil
}

// invokeFromCP resolves a method reference and runs it, either as a
// freshly allocated bytecode frame (MType 'J') or as a direct call into
// a registered intrinsic (MType 'G'). The result, if any, is left on
// f's operand stack exactly as the callee's return opcode would leave
// it for an inlined call.
func invokeFromCP(th *thread.JavaThread, f *frames.Frame, idx uint16, op byte) error {
	mr, err := f.CP.ResolveMethodRef(idx)
	if err != nil {
		return err
	}
	if merr := checkModuleAccess(f.ClName, mr.ClassName); merr != nil {
		return merr
	}

	argCount := countArgSlots(mr.MethodType)
	args := make([]interface{}, argCount)
	for i := argCount - 1; i >= 0; i-- {
		args[i] = f.Pop()
	}
	if op != opcodes.INVOKESTATIC {
		receiver := f.Pop()
		if receiver == nil {
			return exceptions.New(excNames.NullPointerException, "invoke on null reference")
		}
		args = append([]interface{}{receiver}, args...)
	}

	if op == opcodes.INVOKESTATIC {
		if ierr := RunClassInitializer(th, mr.ClassName); ierr != nil {
			return ierr
		}
	}

	entry, ferr := classloader.FetchMethodAndCP(mr.ClassName, mr.MethodName, mr.MethodType)
	if ferr != nil {
		return ferr
	}

	var ret interface{}
	switch entry.MType {
	case 'G':
		ret, err = runGmethod(th, entry, args)
	case 'J':
		ret, err = runFrame(th, mr.ClassName, entry, args)
	default:
		err = exceptions.Newf(excNames.InternalError, "unknown method-table entry type %q", entry.MType)
	}
	if err != nil {
		return err
	}

	if !returnsVoid(mr.MethodType) {
		f.Push(ret)
	}
	return nil
}

// runGmethod invokes a Go intrinsic, translating its GErrBlk sentinel
// (if any) into a Go error the interpreter's exception-table walk can
// handle like any other thrown exception.
func runGmethod(th *thread.JavaThread, entry classloader.MTentry, args []interface{}) (interface{}, error) {
	gm, ok := entry.Meth.(gfunction.GMeth)
	if !ok {
		return nil, exceptions.New(excNames.InternalError, "method-table entry is not a GMeth")
	}
	var ret interface{}
	if gm.NeedsThread {
		ret = gm.GFunctionTh(th, args)
	} else {
		ret = gm.GFunction(args)
	}
	if eb, isErr := ret.(*gfunction.GErrBlk); isErr {
		return nil, exceptions.New(eb.ExceptionType, eb.ErrMsg)
	}
	return ret, nil
}

// runFrame allocates a new activation record for a Java method,
// copies args into its locals exactly as the JVM spec's method
// invocation step requires (receiver, if any, occupies local 0), and
// interprets it to completion.
func runFrame(th *thread.JavaThread, className string, entry classloader.MTentry, args []interface{}) (interface{}, error) {
	m, ok := entry.Meth.(*classloader.Method)
	if !ok {
		return nil, exceptions.New(excNames.InternalError, "method-table entry is not a *Method")
	}

	maxStack := m.CodeAttr.MaxStack
	if maxStack < 1 {
		maxStack = 1
	}
	nf := frames.CreateFrame(maxStack)
	nf.ClName = className
	nf.Meth = m.CodeAttr.Code
	nf.ExceptionTable = &m.CodeAttr.Exceptions
	nf.Locals = make([]interface{}, maxIntOf(m.CodeAttr.MaxLocals, len(args)))
	copy(nf.Locals, args)

	th.Stack.Push(nf)
	defer th.Stack.Pop()

	return RunFrame(th, nf)
}

func maxIntOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// countArgSlots counts the number of JVM argument slots a method
// descriptor "(...)" declares (longs/doubles each occupy the same
// single Go interface{} slot here since this frame model doesn't split
// category-2 values across two array entries).
func countArgSlots(methodType string) int {
	count := 0
	i := 1 // skip leading '('
	for i < len(methodType) && methodType[i] != ')' {
		switch methodType[i] {
		case 'L':
			for i < len(methodType) && methodType[i] != ';' {
				i++
			}
		case '[':
			for i < len(methodType) && methodType[i] == '[' {
				i++
			}
			continue
		}
		count++
		i++
	}
	return count
}

func returnsVoid(methodType string) bool {
	idx := indexOfRParen(methodType)
	return idx >= 0 && idx+1 < len(methodType) && methodType[idx+1] == 'V'
}

func indexOfRParen(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == ')' {
			return i
		}
	}
	return -1
}
