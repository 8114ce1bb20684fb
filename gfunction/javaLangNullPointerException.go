/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2023-5 by  the Jacobin authors. Consult jacobin.org.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0) All rights reserved.
 */

package gfunction

// java/lang/NullPointerException.getExtendedNPEMessage (§4.5, §8
// boundary scenario 11) is the one intrinsic spec.md specifies an
// algorithm for in full, rather than leaving "representative", so it
// gets a real implementation instead of a stub: a linear scan of the
// faulting method's bytecode from PC 0 up to the faulting instruction,
// tracking a simple abstract stack of source tokens (no dataflow
// analysis), then rendering the faulting instruction's precondition
// as a sentence.
//
// This module surfaces runtime NullPointerExceptions as plain Go
// errors (jvm/run.go's exception-table walk), not as constructed
// Throwable objects with a captured call stack (§1 keeps the
// java.lang.* object model out of scope beyond typed accessors), so
// there is no live call site that populates a Throwable's backtrace
// fields yet. The intrinsic itself and BuildExtendedNPEMessage below
// are fully implemented against the synthetic representation a
// caller would populate (backtraceCode/backtraceCP/backtracePC on the
// Throwable's FieldTable) — see javaLangNullPointerException_test.go,
// which drives BuildExtendedNPEMessage directly the way §8 boundary
// scenario 11 specifies.

import (
	"fmt"

	"jacobin/classloader"
	"jacobin/object"
	"jacobin/opcodes"
)

func Load_Lang_NullPointerException() {
	MethodSignatures["java/lang/NullPointerException.getExtendedNPEMessage()Ljava/lang/String;"] =
		GMeth{ParamSlots: 1, GFunction: npeGetExtendedMessage}
}

func npeGetExtendedMessage(params []interface{}) interface{} {
	obj, ok := params[0].(*object.Object)
	if !ok || obj == nil {
		return nil
	}
	code, _ := obj.FieldTable["backtraceCode"].Fvalue.([]byte)
	cp, _ := obj.FieldTable["backtraceCP"].Fvalue.(*classloader.CPool)
	pc, hasPC := obj.FieldTable["backtracePC"].Fvalue.(int)
	if code == nil || cp == nil || !hasPC {
		return nil // no debug info captured: fall back to the plain message
	}

	msg, err := BuildExtendedNPEMessage(code, cp, pc)
	if err != nil {
		return nil
	}
	return object.StringObjectFromGoString(msg)
}

// sourceToken is the abstract-stack element §4.5 names: This, Local(i),
// Field(name, receiver?), MethodReturn(class, method), ArrayAccess(base?),
// Constant, Unknown.
type sourceToken struct {
	kind     string // "this" | "local" | "field" | "return" | "array" | "const" | "unknown"
	local    int
	field    string
	receiver *sourceToken
	class    string
	method   string
}

func (t sourceToken) describe() string {
	switch t.kind {
	case "this":
		return "\"this\""
	case "local":
		if t.local == 0 {
			return "\"<parameter1>\""
		}
		return fmt.Sprintf("\"<parameter%d>\"", t.local)
	case "field":
		if t.receiver != nil {
			return fmt.Sprintf("\"%s.%s\"", t.receiver.shortDescribe(), t.field)
		}
		return fmt.Sprintf("\"%s\"", t.field)
	case "return":
		return fmt.Sprintf("the return value of \"%s.%s()\"", shortClassName(t.class), t.method)
	case "array":
		return "the array element"
	case "const":
		return "a constant"
	default:
		return "<unknown>"
	}
}

func (t sourceToken) shortDescribe() string {
	switch t.kind {
	case "this":
		return "this"
	case "local":
		return fmt.Sprintf("<parameter%d>", t.local)
	default:
		return t.field
	}
}

func shortClassName(internal string) string {
	for i := len(internal) - 1; i >= 0; i-- {
		if internal[i] == '/' {
			return internal[i+1:]
		}
	}
	return internal
}

// BuildExtendedNPEMessage implements §4.5's algorithm: scan code from
// PC 0 to faultingPC, maintaining a stack of sourceTokens by the
// stack-effect arity of each opcode, then describe what was null at
// the faulting instruction.
func BuildExtendedNPEMessage(code []byte, cp *classloader.CPool, faultingPC int) (string, error) {
	var stack []sourceToken
	push := func(t sourceToken) { stack = append(stack, t) }
	pop := func() sourceToken {
		if len(stack) == 0 {
			return sourceToken{kind: "unknown"}
		}
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return t
	}

	pc := 0
	for pc < faultingPC && pc < len(code) {
		op := code[pc]
		switch op {
		case opcodes.ALOAD_0:
			push(sourceToken{kind: "this"})
			pc++
		case opcodes.ALOAD_1:
			push(sourceToken{kind: "local", local: 1})
			pc++
		case opcodes.ALOAD_2:
			push(sourceToken{kind: "local", local: 2})
			pc++
		case opcodes.ALOAD_3:
			push(sourceToken{kind: "local", local: 3})
			pc++
		case opcodes.ALOAD:
			if pc+1 < len(code) {
				push(sourceToken{kind: "local", local: int(code[pc+1])})
			}
			pc += 2
		case opcodes.GETFIELD:
			recv := pop()
			idx := u16At(code, pc+1)
			name := "<field>"
			if fr, err := cp.ResolveFieldRef(idx); err == nil {
				name = fr.FieldName
			}
			push(sourceToken{kind: "field", field: name, receiver: &recv})
			pc += 3
		case opcodes.GETSTATIC:
			idx := u16At(code, pc+1)
			name := "<field>"
			if fr, err := cp.ResolveFieldRef(idx); err == nil {
				name = fr.FieldName
			}
			push(sourceToken{kind: "field", field: name})
			pc += 3
		case opcodes.LDC:
			push(sourceToken{kind: "const"})
			pc += 2
		case opcodes.LDC_W, opcodes.LDC2_W:
			push(sourceToken{kind: "const"})
			pc += 3
		case opcodes.BIPUSH:
			push(sourceToken{kind: "const"})
			pc += 2
		case opcodes.SIPUSH:
			push(sourceToken{kind: "const"})
			pc += 3
		case opcodes.AALOAD, opcodes.IALOAD, opcodes.LALOAD, opcodes.FALOAD,
			opcodes.DALOAD, opcodes.BALOAD, opcodes.CALOAD, opcodes.SALOAD:
			pop() // index
			base := pop()
			push(sourceToken{kind: "array", receiver: &base})
			pc++
		case opcodes.INVOKEVIRTUAL, opcodes.INVOKEINTERFACE, opcodes.INVOKESPECIAL:
			idx := u16At(code, pc+1)
			mr, err := cp.ResolveMethodRef(idx)
			n := countArgSlotsForNPE(mr.MethodType)
			for i := 0; i < n; i++ {
				pop()
			}
			pop() // receiver
			if err == nil && !returnsVoidForNPE(mr.MethodType) {
				push(sourceToken{kind: "return", class: mr.ClassName, method: mr.MethodName})
			}
			width := 3
			if op == opcodes.INVOKEINTERFACE {
				width = 5
			}
			pc += width
		case opcodes.INVOKESTATIC:
			idx := u16At(code, pc+1)
			mr, err := cp.ResolveMethodRef(idx)
			n := countArgSlotsForNPE(mr.MethodType)
			for i := 0; i < n; i++ {
				pop()
			}
			if err == nil && !returnsVoidForNPE(mr.MethodType) {
				push(sourceToken{kind: "return", class: mr.ClassName, method: mr.MethodName})
			}
			pc += 3
		case opcodes.CHECKCAST:
			pc += 3
		case opcodes.DUP:
			if len(stack) > 0 {
				push(stack[len(stack)-1])
			}
			pc++
		default:
			// Unknown stack effect for this family: treat as a
			// single-token push to keep the scan from desyncing too
			// badly, matching "no dataflow analysis" simplicity.
			push(sourceToken{kind: "unknown"})
			pc++
		}
	}

	// The faulting instruction's precondition: which operand is required
	// non-null. For getfield/invokevirtual/invokeinterface/invokespecial/
	// arraylength/a*aload/a*astore/putfield the receiver is the top of the
	// current abstract stack, or the entry below the operands the
	// instruction also consumes (arguments, an index, a stored value).
	var culprit sourceToken
	var action string
	if faultingPC < len(code) {
		switch code[faultingPC] {
		case opcodes.GETFIELD:
			culprit = pop()
			action = fmt.Sprintf("Cannot read field \"%s\" because %s is null", fieldNameAt(code, cp, faultingPC), culprit.describe())
			return action, nil
		case opcodes.PUTFIELD:
			pop() // value
			culprit = pop()
			return fmt.Sprintf("Cannot assign field \"%s\" because %s is null", fieldNameAt(code, cp, faultingPC), culprit.describe()), nil
		case opcodes.INVOKEVIRTUAL, opcodes.INVOKEINTERFACE, opcodes.INVOKESPECIAL:
			idx := u16At(code, faultingPC+1)
			mr, _ := cp.ResolveMethodRef(idx)
			n := countArgSlotsForNPE(mr.MethodType)
			for i := 0; i < n; i++ {
				pop()
			}
			culprit = pop()
			return fmt.Sprintf("Cannot invoke \"%s.%s()\" because %s is null",
				shortClassName(mr.ClassName), mr.MethodName, culprit.describe()), nil
		case opcodes.ARRAYLENGTH:
			culprit = pop()
			return fmt.Sprintf("Cannot read the array length because %s is null", culprit.describe()), nil
		case opcodes.AALOAD, opcodes.IALOAD, opcodes.LALOAD, opcodes.FALOAD,
			opcodes.DALOAD, opcodes.BALOAD, opcodes.CALOAD, opcodes.SALOAD:
			pop()
			culprit = pop()
			return fmt.Sprintf("Cannot load from array because %s is null", culprit.describe()), nil
		case opcodes.AASTORE, opcodes.IASTORE, opcodes.LASTORE, opcodes.FASTORE,
			opcodes.DASTORE, opcodes.BASTORE, opcodes.CASTORE, opcodes.SASTORE:
			pop() // value
			pop() // index
			culprit = pop()
			return fmt.Sprintf("Cannot store to array because %s is null", culprit.describe()), nil
		}
	}
	return "", fmt.Errorf("no null-dereferencing instruction recognized at pc=%d", faultingPC)
}

func fieldNameAt(code []byte, cp *classloader.CPool, pc int) string {
	idx := u16At(code, pc+1)
	if fr, err := cp.ResolveFieldRef(idx); err == nil {
		return fr.FieldName
	}
	return "<field>"
}

func u16At(code []byte, i int) uint16 {
	if i+1 >= len(code) {
		return 0
	}
	return uint16(code[i])<<8 | uint16(code[i+1])
}

func countArgSlotsForNPE(methodType string) int {
	count := 0
	i := 1
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

func returnsVoidForNPE(methodType string) bool {
	for i := 0; i < len(methodType); i++ {
		if methodType[i] == ')' {
			return i+1 < len(methodType) && methodType[i+1] == 'V'
		}
	}
	return false
}
