/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// The interpreter's instruction dispatch loop (§4.4): one method
// activation per Frame, operand stack plus locals, straight-line
// opcode-by-opcode execution with explicit control-flow jumps.
// Grounded on jacobin's jvm/run.go switch-per-opcode structure;
// rewritten against this module's frames.Frame (slice + TOS index)
// instead of the teacher's container/list-backed stack, and scoped to
// the representative opcode families §4.4 calls out rather than every
// one of the ~200 JVM instructions.
package jvm

import (
	"math"

	"jacobin/classloader"
	"jacobin/excNames"
	"jacobin/exceptions"
	"jacobin/frames"
	"jacobin/opcodes"
	"jacobin/thread"
)

func u16(code []byte, pc int) int {
	return int(code[pc])<<8 | int(code[pc+1])
}

func s16(code []byte, pc int) int {
	return int(int16(u16(code, pc)))
}

func s32(code []byte, pc int) int32 {
	return int32(code[pc])<<24 | int32(code[pc+1])<<16 | int32(code[pc+2])<<8 | int32(code[pc+3])
}

// RunFrame interprets f.Meth starting at f.PC until it returns a value
// (possibly nil for void) or propagates an uncaught exception.
func RunFrame(th *thread.JavaThread, f *frames.Frame) (interface{}, error) {
	code := f.Meth
	for f.PC < len(code) {
		op := code[f.PC]
		startPC := f.PC
		ret, retOK, err := step(th, f, op, code)
		if err != nil {
			handlerPC, handled := findHandler(f, startPC, err)
			if !handled {
				return nil, err
			}
			f.OpStack = make([]interface{}, len(f.OpStack))
			f.TOS = -1
			f.Push(exceptionObjectFor(err))
			f.PC = handlerPC
			continue
		}
		if retOK {
			return ret, nil
		}
	}
	return nil, nil
}

// exceptionObjectFor stands in for allocating a real exception object
// for the handler's operand stack; until the verifier/object layers
// carry full exception-class instantiation this is the value athrow
// and a caught runtime error push (§4.4 "operand stack contains only
// the exception").
func exceptionObjectFor(err error) interface{} { return err }

// findHandler walks f's exception table top to bottom (§4.4), looking
// for one whose [StartPc, EndPc) range covers pc and whose CatchType is
// either unset (catch-all / finally) or matches the thrown kind.
func findHandler(f *frames.Frame, pc int, cause error) (int, bool) {
	if f.ExceptionTable == nil {
		return 0, false
	}
	for _, e := range *f.ExceptionTable {
		if pc >= e.StartPc && pc < e.EndPc {
			if e.CatchType == 0 {
				return e.HandlerPc, true
			}
			className, resolveErr := f.CP.ResolveClassName(e.CatchType)
			if resolveErr == nil && exceptions.Is(cause, classNameToExceptionKind(className)) {
				return e.HandlerPc, true
			}
		}
	}
	return 0, false
}

func classNameToExceptionKind(className string) excNames.ExceptionType {
	for kind, fqn := range excNames.JVMException {
		if fqn == className {
			return kind
		}
	}
	return excNames.Unknown
}

// step executes exactly one instruction, advancing f.PC past it (or to
// a jump target). When the method returns, retOK is true and ret holds
// the return value (nil for void/ for category-1/2 differences the
// caller doesn't need to know about here).
func step(th *thread.JavaThread, f *frames.Frame, op byte, code []byte) (ret interface{}, retOK bool, err error) {
	switch op {
	case opcodes.NOP:
		f.PC++

	case opcodes.ACONST_NULL:
		f.Push(nil)
		f.PC++

	case opcodes.ICONST_M1, opcodes.ICONST_0, opcodes.ICONST_1, opcodes.ICONST_2,
		opcodes.ICONST_3, opcodes.ICONST_4, opcodes.ICONST_5:
		f.Push(int32(op) - int32(opcodes.ICONST_0))
		f.PC++

	case opcodes.LCONST_0, opcodes.LCONST_1:
		f.Push(int64(op) - int64(opcodes.LCONST_0))
		f.PC++

	case opcodes.FCONST_0, opcodes.FCONST_1, opcodes.FCONST_2:
		f.Push(float32(op) - float32(opcodes.FCONST_0))
		f.PC++

	case opcodes.DCONST_0, opcodes.DCONST_1:
		f.Push(float64(op) - float64(opcodes.DCONST_0))
		f.PC++

	case opcodes.BIPUSH:
		f.Push(int32(int8(code[f.PC+1])))
		f.PC += 2

	case opcodes.SIPUSH:
		f.Push(int32(s16(code, f.PC+1)))
		f.PC += 3

	case opcodes.LDC:
		idx := uint16(code[f.PC+1])
		v, lerr := loadConstant(f.CP, idx)
		if lerr != nil {
			return nil, false, lerr
		}
		f.Push(v)
		f.PC += 2

	case opcodes.LDC_W, opcodes.LDC2_W:
		idx := uint16(u16(code, f.PC+1))
		v, lerr := loadConstant(f.CP, idx)
		if lerr != nil {
			return nil, false, lerr
		}
		f.Push(v)
		f.PC += 3

	case opcodes.ILOAD, opcodes.LLOAD, opcodes.FLOAD, opcodes.DLOAD, opcodes.ALOAD:
		f.Push(f.Locals[code[f.PC+1]])
		f.PC += 2

	case opcodes.ILOAD_0, opcodes.ILOAD_1, opcodes.ILOAD_2, opcodes.ILOAD_3:
		f.Push(f.Locals[op-opcodes.ILOAD_0])
		f.PC++
	case opcodes.LLOAD_0, opcodes.LLOAD_1, opcodes.LLOAD_2, opcodes.LLOAD_3:
		f.Push(f.Locals[op-opcodes.LLOAD_0])
		f.PC++
	case opcodes.FLOAD_0, opcodes.FLOAD_1, opcodes.FLOAD_2, opcodes.FLOAD_3:
		f.Push(f.Locals[op-opcodes.FLOAD_0])
		f.PC++
	case opcodes.DLOAD_0, opcodes.DLOAD_1, opcodes.DLOAD_2, opcodes.DLOAD_3:
		f.Push(f.Locals[op-opcodes.DLOAD_0])
		f.PC++
	case opcodes.ALOAD_0, opcodes.ALOAD_1, opcodes.ALOAD_2, opcodes.ALOAD_3:
		f.Push(f.Locals[op-opcodes.ALOAD_0])
		f.PC++

	case opcodes.ISTORE, opcodes.LSTORE, opcodes.FSTORE, opcodes.DSTORE, opcodes.ASTORE:
		f.Locals[code[f.PC+1]] = f.Pop()
		f.PC += 2

	case opcodes.ISTORE_0, opcodes.ISTORE_1, opcodes.ISTORE_2, opcodes.ISTORE_3:
		f.Locals[op-opcodes.ISTORE_0] = f.Pop()
		f.PC++
	case opcodes.LSTORE_0, opcodes.LSTORE_1, opcodes.LSTORE_2, opcodes.LSTORE_3:
		f.Locals[op-opcodes.LSTORE_0] = f.Pop()
		f.PC++
	case opcodes.FSTORE_0, opcodes.FSTORE_1, opcodes.FSTORE_2, opcodes.FSTORE_3:
		f.Locals[op-opcodes.FSTORE_0] = f.Pop()
		f.PC++
	case opcodes.DSTORE_0, opcodes.DSTORE_1, opcodes.DSTORE_2, opcodes.DSTORE_3:
		f.Locals[op-opcodes.DSTORE_0] = f.Pop()
		f.PC++
	case opcodes.ASTORE_0, opcodes.ASTORE_1, opcodes.ASTORE_2, opcodes.ASTORE_3:
		f.Locals[op-opcodes.ASTORE_0] = f.Pop()
		f.PC++

	case opcodes.POP:
		f.Pop()
		f.PC++
	case opcodes.POP2:
		f.Pop()
		f.Pop()
		f.PC++
	case opcodes.DUP:
		v := f.TopOfStack()
		f.Push(v)
		f.PC++
	case opcodes.DUP_X1:
		v1, v2 := f.Pop(), f.Pop()
		f.Push(v1)
		f.Push(v2)
		f.Push(v1)
		f.PC++
	case opcodes.DUP_X2:
		v1, v2, v3 := f.Pop(), f.Pop(), f.Pop()
		f.Push(v1)
		f.Push(v3)
		f.Push(v2)
		f.Push(v1)
		f.PC++
	case opcodes.DUP2:
		v1, v2 := f.Pop(), f.Pop()
		f.Push(v2)
		f.Push(v1)
		f.Push(v2)
		f.Push(v1)
		f.PC++
	case opcodes.SWAP:
		v1, v2 := f.Pop(), f.Pop()
		f.Push(v1)
		f.Push(v2)
		f.PC++

	case opcodes.IADD:
		b, a := f.Pop().(int32), f.Pop().(int32)
		f.Push(a + b)
		f.PC++
	case opcodes.LADD:
		b, a := f.Pop().(int64), f.Pop().(int64)
		f.Push(a + b)
		f.PC++
	case opcodes.FADD:
		b, a := f.Pop().(float32), f.Pop().(float32)
		f.Push(a + b)
		f.PC++
	case opcodes.DADD:
		b, a := f.Pop().(float64), f.Pop().(float64)
		f.Push(a + b)
		f.PC++
	case opcodes.ISUB:
		b, a := f.Pop().(int32), f.Pop().(int32)
		f.Push(a - b)
		f.PC++
	case opcodes.LSUB:
		b, a := f.Pop().(int64), f.Pop().(int64)
		f.Push(a - b)
		f.PC++
	case opcodes.FSUB:
		b, a := f.Pop().(float32), f.Pop().(float32)
		f.Push(a - b)
		f.PC++
	case opcodes.DSUB:
		b, a := f.Pop().(float64), f.Pop().(float64)
		f.Push(a - b)
		f.PC++
	case opcodes.IMUL:
		b, a := f.Pop().(int32), f.Pop().(int32)
		f.Push(a * b)
		f.PC++
	case opcodes.LMUL:
		b, a := f.Pop().(int64), f.Pop().(int64)
		f.Push(a * b)
		f.PC++
	case opcodes.FMUL:
		b, a := f.Pop().(float32), f.Pop().(float32)
		f.Push(a * b)
		f.PC++
	case opcodes.DMUL:
		b, a := f.Pop().(float64), f.Pop().(float64)
		f.Push(a * b)
		f.PC++

	case opcodes.IDIV:
		b, a := f.Pop().(int32), f.Pop().(int32)
		if b == 0 {
			return nil, false, exceptions.New(excNames.ArithmeticException, "/ by zero")
		}
		f.Push(a / b)
		f.PC++
	case opcodes.LDIV:
		b, a := f.Pop().(int64), f.Pop().(int64)
		if b == 0 {
			return nil, false, exceptions.New(excNames.ArithmeticException, "/ by zero")
		}
		f.Push(a / b)
		f.PC++
	case opcodes.FDIV:
		b, a := f.Pop().(float32), f.Pop().(float32)
		f.Push(a / b)
		f.PC++
	case opcodes.DDIV:
		b, a := f.Pop().(float64), f.Pop().(float64)
		f.Push(a / b)
		f.PC++

	case opcodes.IREM:
		b, a := f.Pop().(int32), f.Pop().(int32)
		if b == 0 {
			return nil, false, exceptions.New(excNames.ArithmeticException, "/ by zero")
		}
		f.Push(a % b)
		f.PC++
	case opcodes.LREM:
		b, a := f.Pop().(int64), f.Pop().(int64)
		if b == 0 {
			return nil, false, exceptions.New(excNames.ArithmeticException, "/ by zero")
		}
		f.Push(a % b)
		f.PC++
	case opcodes.FREM:
		b, a := f.Pop().(float32), f.Pop().(float32)
		f.Push(float32(math.Mod(float64(a), float64(b))))
		f.PC++
	case opcodes.DREM:
		b, a := f.Pop().(float64), f.Pop().(float64)
		f.Push(math.Mod(a, b))
		f.PC++

	case opcodes.INEG:
		f.Push(-f.Pop().(int32))
		f.PC++
	case opcodes.LNEG:
		f.Push(-f.Pop().(int64))
		f.PC++
	case opcodes.FNEG:
		f.Push(-f.Pop().(float32))
		f.PC++
	case opcodes.DNEG:
		f.Push(-f.Pop().(float64))
		f.PC++

	case opcodes.ISHL:
		b, a := f.Pop().(int32), f.Pop().(int32)
		f.Push(a << (uint32(b) & 0x1F))
		f.PC++
	case opcodes.ISHR:
		b, a := f.Pop().(int32), f.Pop().(int32)
		f.Push(a >> (uint32(b) & 0x1F))
		f.PC++
	case opcodes.IUSHR:
		b, a := f.Pop().(int32), f.Pop().(int32)
		f.Push(int32(uint32(a) >> (uint32(b) & 0x1F)))
		f.PC++
	case opcodes.LSHL:
		b, a := f.Pop().(int32), f.Pop().(int64)
		f.Push(a << (uint64(b) & 0x3F))
		f.PC++
	case opcodes.LSHR:
		b, a := f.Pop().(int32), f.Pop().(int64)
		f.Push(a >> (uint64(b) & 0x3F))
		f.PC++
	case opcodes.LUSHR:
		b, a := f.Pop().(int32), f.Pop().(int64)
		f.Push(int64(uint64(a) >> (uint64(b) & 0x3F)))
		f.PC++

	case opcodes.IAND:
		b, a := f.Pop().(int32), f.Pop().(int32)
		f.Push(a & b)
		f.PC++
	case opcodes.LAND:
		b, a := f.Pop().(int64), f.Pop().(int64)
		f.Push(a & b)
		f.PC++
	case opcodes.IOR:
		b, a := f.Pop().(int32), f.Pop().(int32)
		f.Push(a | b)
		f.PC++
	case opcodes.LOR:
		b, a := f.Pop().(int64), f.Pop().(int64)
		f.Push(a | b)
		f.PC++
	case opcodes.IXOR:
		b, a := f.Pop().(int32), f.Pop().(int32)
		f.Push(a ^ b)
		f.PC++
	case opcodes.LXOR:
		b, a := f.Pop().(int64), f.Pop().(int64)
		f.Push(a ^ b)
		f.PC++

	case opcodes.IINC:
		idx := code[f.PC+1]
		delta := int32(int8(code[f.PC+2]))
		f.Locals[idx] = f.Locals[idx].(int32) + delta
		f.PC += 3

	case opcodes.I2L:
		f.Push(int64(f.Pop().(int32)))
		f.PC++
	case opcodes.I2F:
		f.Push(float32(f.Pop().(int32)))
		f.PC++
	case opcodes.I2D:
		f.Push(float64(f.Pop().(int32)))
		f.PC++
	case opcodes.L2I:
		f.Push(int32(f.Pop().(int64)))
		f.PC++
	case opcodes.L2F:
		f.Push(float32(f.Pop().(int64)))
		f.PC++
	case opcodes.L2D:
		f.Push(float64(f.Pop().(int64)))
		f.PC++
	case opcodes.F2I:
		f.Push(int32(f.Pop().(float32)))
		f.PC++
	case opcodes.F2L:
		f.Push(int64(f.Pop().(float32)))
		f.PC++
	case opcodes.F2D:
		f.Push(float64(f.Pop().(float32)))
		f.PC++
	case opcodes.D2I:
		f.Push(int32(f.Pop().(float64)))
		f.PC++
	case opcodes.D2L:
		f.Push(int64(f.Pop().(float64)))
		f.PC++
	case opcodes.D2F:
		f.Push(float32(f.Pop().(float64)))
		f.PC++
	case opcodes.I2B:
		f.Push(int32(int8(f.Pop().(int32))))
		f.PC++
	case opcodes.I2C:
		f.Push(int32(uint16(f.Pop().(int32))))
		f.PC++
	case opcodes.I2S:
		f.Push(int32(int16(f.Pop().(int32))))
		f.PC++

	case opcodes.LCMP:
		b, a := f.Pop().(int64), f.Pop().(int64)
		f.Push(cmp64(a, b))
		f.PC++
	case opcodes.FCMPL, opcodes.FCMPG:
		b, a := f.Pop().(float32), f.Pop().(float32)
		f.Push(fcmp(float64(a), float64(b), op == opcodes.FCMPG))
		f.PC++
	case opcodes.DCMPL, opcodes.DCMPG:
		b, a := f.Pop().(float64), f.Pop().(float64)
		f.Push(fcmp(a, b, op == opcodes.DCMPG))
		f.PC++

	case opcodes.IFEQ, opcodes.IFNE, opcodes.IFLT, opcodes.IFGE, opcodes.IFGT, opcodes.IFLE:
		v := f.Pop().(int32)
		if branchTaken(op, opcodes.IFEQ, v, 0) {
			f.PC += s16(code, f.PC+1)
		} else {
			f.PC += 3
		}
	case opcodes.IF_ICMPEQ, opcodes.IF_ICMPNE, opcodes.IF_ICMPLT,
		opcodes.IF_ICMPGE, opcodes.IF_ICMPGT, opcodes.IF_ICMPLE:
		b, a := f.Pop().(int32), f.Pop().(int32)
		if branchTaken(op, opcodes.IF_ICMPEQ, a, b) {
			f.PC += s16(code, f.PC+1)
		} else {
			f.PC += 3
		}
	case opcodes.IF_ACMPEQ, opcodes.IF_ACMPNE:
		b, a := f.Pop(), f.Pop()
		eq := a == b
		if (op == opcodes.IF_ACMPEQ) == eq {
			f.PC += s16(code, f.PC+1)
		} else {
			f.PC += 3
		}
	case opcodes.IFNULL, opcodes.IFNONNULL:
		v := f.Pop()
		if (v == nil) == (op == opcodes.IFNULL) {
			f.PC += s16(code, f.PC+1)
		} else {
			f.PC += 3
		}
	case opcodes.GOTO:
		f.PC += s16(code, f.PC+1)
	case opcodes.GOTO_W:
		f.PC += int(s32(code, f.PC+1))

	case opcodes.IRETURN, opcodes.FRETURN:
		return f.Pop(), true, nil
	case opcodes.LRETURN, opcodes.DRETURN, opcodes.ARETURN:
		return f.Pop(), true, nil
	case opcodes.RETURN:
		return nil, true, nil

	case opcodes.ATHROW:
		v := f.Pop()
		if e, ok := v.(error); ok {
			return nil, false, e
		}
		return nil, false, exceptions.New(excNames.InternalError, "athrow of non-error operand")

	case opcodes.NEW:
		idx := uint16(u16(code, f.PC+1))
		className, cerr := f.CP.ResolveClassName(idx)
		if cerr != nil {
			return nil, false, cerr
		}
		if ierr := RunClassInitializer(th, className); ierr != nil {
			return nil, false, ierr
		}
		obj, ierr := instantiateClass(className)
		if ierr != nil {
			return nil, false, ierr
		}
		f.Push(obj)
		f.PC += 3

	case opcodes.GETFIELD, opcodes.PUTFIELD, opcodes.GETSTATIC, opcodes.PUTSTATIC:
		if ferr := stepFieldAccess(th, f, op, code); ferr != nil {
			return nil, false, ferr
		}

	case opcodes.INVOKEVIRTUAL, opcodes.INVOKESPECIAL, opcodes.INVOKESTATIC:
		idx := uint16(u16(code, f.PC+1))
		if ierr := invokeFromCP(th, f, idx, op); ierr != nil {
			return nil, false, ierr
		}
		f.PC += 3

	case opcodes.INVOKEINTERFACE:
		idx := uint16(u16(code, f.PC+1))
		if ierr := invokeFromCP(th, f, idx, op); ierr != nil {
			return nil, false, ierr
		}
		f.PC += 5

	case opcodes.CHECKCAST, opcodes.INSTANCEOF:
		// Object/array model is minimal and no class hierarchy is
		// walked: checkcast is a structural no-op, and instanceof
		// yields 1 for any non-null reference and 0 for null.
		if op == opcodes.INSTANCEOF {
			v := f.Pop()
			if v == nil {
				f.Push(int32(0))
			} else {
				f.Push(int32(1))
			}
		}
		f.PC += 3

	case opcodes.ARRAYLENGTH:
		v := f.Pop()
		n, lerr := arrayLen(v)
		if lerr != nil {
			return nil, false, lerr
		}
		f.Push(n)
		f.PC++

	default:
		return nil, false, exceptions.Newf(excNames.InternalError, "unimplemented opcode 0x%02x at pc=%d", op, f.PC)
	}
	return nil, false, nil
}

func branchTaken(op, base byte, a, b int32) bool {
	switch op - base {
	case 0:
		return a == b
	case 1:
		return a != b
	case 2:
		return a < b
	case 3:
		return a >= b
	case 4:
		return a > b
	default:
		return a <= b
	}
}

func cmp64(a, b int64) int32 {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// fcmp implements fcmpl/fcmpg/dcmpl/dcmpg: NaN makes either operand
// incomparable, resolved to -1 for the 'l' variants and +1 for 'g'.
func fcmp(a, b float64, gVariant bool) int32 {
	if math.IsNaN(a) || math.IsNaN(b) {
		if gVariant {
			return 1
		}
		return -1
	}
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func loadConstant(cp *classloader.CPool, idx uint16) (interface{}, error) {
	if int(idx) >= len(cp.CpIndex) {
		return nil, exceptions.ClassFormatError("ldc index out of range")
	}
	switch cp.CpIndex[idx].Type {
	case classloader.IntConst:
		return cp.ResolveInt(idx)
	case classloader.FloatConst:
		return cp.ResolveFloat(idx)
	case classloader.LongConst:
		return cp.ResolveLong(idx)
	case classloader.DoubleConst:
		return cp.ResolveDouble(idx)
	case classloader.StringConst:
		return cp.ResolveString(idx)
	case classloader.ClassRef:
		return cp.ResolveClassName(idx)
	default:
		return nil, exceptions.ClassFormatError("ldc target is not a loadable constant")
	}
}

func arrayLen(v interface{}) (int32, error) {
	switch a := v.(type) {
	case []int32:
		return int32(len(a)), nil
	case []int64:
		return int32(len(a)), nil
	case []float32:
		return int32(len(a)), nil
	case []float64:
		return int32(len(a)), nil
	case []interface{}:
		return int32(len(a)), nil
	case nil:
		return 0, exceptions.New(excNames.NullPointerException, "arraylength on null")
	default:
		return 0, exceptions.New(excNames.InternalError, "arraylength on non-array")
	}
}
