/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Per-instruction verification semantics (§4.2): each handler mutates
// a Frame and reports the PCs execution may continue to. Grounded on
// the instruction families §4.2 enumerates; there is no teacher
// verifier to adapt from, so these follow the spec's prose directly,
// cross-checked against jvm/run.go's opcode semantics for the runtime
// behaviors (arithmetic categories, branch families) the verifier must
// agree with.
package verifier

import (
	"fmt"

	"jacobin/classloader"
	"jacobin/opcodes"
)

func u16At(code []byte, pc int) int { return int(code[pc])<<8 | int(code[pc+1]) }
func s16At(code []byte, pc int) int { return int(int16(u16At(code, pc))) }

// instrLen reports the length in bytes of the instruction at pc,
// covering every opcode this verifier steps over. Variable-length
// instructions (tableswitch/lookupswitch/wide) are not supported by
// this verifier pass (see VerifyMethod's doc comment) and are
// rejected explicitly rather than mis-measured.
func instrLen(op byte, pc int, code []byte) (int, error) {
	switch op {
	case opcodes.WIDE, opcodes.TABLESWITCH, opcodes.LOOKUPSWITCH:
		return 0, fmt.Errorf("verifier: variable-length instruction 0x%02x not supported", op)
	case opcodes.IINC, opcodes.MULTIANEWARRAY:
		return 3, nil
	case opcodes.INVOKEINTERFACE, opcodes.INVOKEDYNAMIC, opcodes.GOTO_W, opcodes.JSR_W:
		return 5, nil
	case opcodes.BIPUSH, opcodes.LDC, opcodes.NEWARRAY, opcodes.ILOAD, opcodes.LLOAD,
		opcodes.FLOAD, opcodes.DLOAD, opcodes.ALOAD, opcodes.ISTORE, opcodes.LSTORE,
		opcodes.FSTORE, opcodes.DSTORE, opcodes.ASTORE, opcodes.RET:
		return 2, nil
	case opcodes.SIPUSH, opcodes.LDC_W, opcodes.LDC2_W, opcodes.IFEQ, opcodes.IFNE,
		opcodes.IFLT, opcodes.IFGE, opcodes.IFGT, opcodes.IFLE, opcodes.IF_ICMPEQ,
		opcodes.IF_ICMPNE, opcodes.IF_ICMPLT, opcodes.IF_ICMPGE, opcodes.IF_ICMPGT,
		opcodes.IF_ICMPLE, opcodes.IF_ACMPEQ, opcodes.IF_ACMPNE, opcodes.GOTO,
		opcodes.JSR, opcodes.GETSTATIC, opcodes.PUTSTATIC, opcodes.GETFIELD,
		opcodes.PUTFIELD, opcodes.INVOKEVIRTUAL, opcodes.INVOKESPECIAL,
		opcodes.INVOKESTATIC, opcodes.NEW, opcodes.ANEWARRAY, opcodes.CHECKCAST,
		opcodes.INSTANCEOF, opcodes.IFNULL, opcodes.IFNONNULL:
		return 3, nil
	default:
		return 1, nil
	}
}

// classifyTerminator reports whether op is a control-flow instruction
// (other than a plain fall-through), whether it falls through in
// addition to branching, and whether it ends the path (return/athrow).
func classifyTerminator(op byte) (branches, fallsThrough, terminal bool) {
	switch op {
	case opcodes.GOTO, opcodes.GOTO_W:
		return true, false, false
	case opcodes.IFEQ, opcodes.IFNE, opcodes.IFLT, opcodes.IFGE, opcodes.IFGT, opcodes.IFLE,
		opcodes.IF_ICMPEQ, opcodes.IF_ICMPNE, opcodes.IF_ICMPLT, opcodes.IF_ICMPGE,
		opcodes.IF_ICMPGT, opcodes.IF_ICMPLE, opcodes.IF_ACMPEQ, opcodes.IF_ACMPNE,
		opcodes.IFNULL, opcodes.IFNONNULL:
		return true, true, false
	case opcodes.IRETURN, opcodes.LRETURN, opcodes.FRETURN, opcodes.DRETURN,
		opcodes.ARETURN, opcodes.RETURN, opcodes.ATHROW:
		return false, false, true
	default:
		return false, true, false
	}
}

// stepVerify applies op's typing rule to frame in place, returning the
// set of target PCs besides the natural fall-through (which the driver
// adds itself based on classifyTerminator).
func stepVerify(pc int, op byte, code []byte, cp *classloader.CPool, frame *Frame, ctx Context, strict bool, declaringClass string) ([]int, error) {
	switch {
	case op >= opcodes.ICONST_M1 && op <= opcodes.ICONST_5:
		return nil, frame.Push(VInt)
	case op == opcodes.LCONST_0 || op == opcodes.LCONST_1:
		return nil, frame.Push(VLong)
	case op >= opcodes.FCONST_0 && op <= opcodes.FCONST_2:
		return nil, frame.Push(VFloat)
	case op == opcodes.DCONST_0 || op == opcodes.DCONST_1:
		return nil, frame.Push(VDouble)
	case op == opcodes.ACONST_NULL:
		return nil, frame.Push(VNull)
	case op == opcodes.BIPUSH || op == opcodes.SIPUSH:
		return nil, frame.Push(VInt)
	case op == opcodes.NOP:
		return nil, nil
	}

	switch op {
	case opcodes.LDC:
		return nil, verifyLdc(cp, uint16(code[pc+1]), frame)
	case opcodes.LDC_W, opcodes.LDC2_W:
		return nil, verifyLdc(cp, uint16(u16At(code, pc+1)), frame)

	case opcodes.ILOAD, opcodes.ILOAD_0, opcodes.ILOAD_1, opcodes.ILOAD_2, opcodes.ILOAD_3:
		return nil, verifyLoad(frame, localIndex(op, code, pc, opcodes.ILOAD, opcodes.ILOAD_0), VInt)
	case opcodes.LLOAD, opcodes.LLOAD_0, opcodes.LLOAD_1, opcodes.LLOAD_2, opcodes.LLOAD_3:
		return nil, verifyLoad(frame, localIndex(op, code, pc, opcodes.LLOAD, opcodes.LLOAD_0), VLong)
	case opcodes.FLOAD, opcodes.FLOAD_0, opcodes.FLOAD_1, opcodes.FLOAD_2, opcodes.FLOAD_3:
		return nil, verifyLoad(frame, localIndex(op, code, pc, opcodes.FLOAD, opcodes.FLOAD_0), VFloat)
	case opcodes.DLOAD, opcodes.DLOAD_0, opcodes.DLOAD_1, opcodes.DLOAD_2, opcodes.DLOAD_3:
		return nil, verifyLoad(frame, localIndex(op, code, pc, opcodes.DLOAD, opcodes.DLOAD_0), VDouble)
	case opcodes.ALOAD, opcodes.ALOAD_0, opcodes.ALOAD_1, opcodes.ALOAD_2, opcodes.ALOAD_3:
		return nil, verifyALoad(frame, localIndex(op, code, pc, opcodes.ALOAD, opcodes.ALOAD_0))

	case opcodes.ISTORE, opcodes.ISTORE_0, opcodes.ISTORE_1, opcodes.ISTORE_2, opcodes.ISTORE_3:
		return nil, verifyStore(frame, localIndex(op, code, pc, opcodes.ISTORE, opcodes.ISTORE_0), VInt)
	case opcodes.LSTORE, opcodes.LSTORE_0, opcodes.LSTORE_1, opcodes.LSTORE_2, opcodes.LSTORE_3:
		return nil, verifyStore(frame, localIndex(op, code, pc, opcodes.LSTORE, opcodes.LSTORE_0), VLong)
	case opcodes.FSTORE, opcodes.FSTORE_0, opcodes.FSTORE_1, opcodes.FSTORE_2, opcodes.FSTORE_3:
		return nil, verifyStore(frame, localIndex(op, code, pc, opcodes.FSTORE, opcodes.FSTORE_0), VFloat)
	case opcodes.DSTORE, opcodes.DSTORE_0, opcodes.DSTORE_1, opcodes.DSTORE_2, opcodes.DSTORE_3:
		return nil, verifyStore(frame, localIndex(op, code, pc, opcodes.DSTORE, opcodes.DSTORE_0), VDouble)
	case opcodes.ASTORE, opcodes.ASTORE_0, opcodes.ASTORE_1, opcodes.ASTORE_2, opcodes.ASTORE_3:
		return nil, verifyAStore(frame, localIndex(op, code, pc, opcodes.ASTORE, opcodes.ASTORE_0))

	case opcodes.POP:
		_, err := frame.PopCategory1()
		return nil, err
	case opcodes.POP2:
		if _, err := frame.Pop(); err != nil {
			return nil, err
		}
		return nil, nil
	case opcodes.DUP:
		v, err := frame.PopCategory1()
		if err != nil {
			return nil, err
		}
		_ = frame.Push(v)
		return nil, frame.Push(v)
	case opcodes.DUP_X1:
		return nil, verifyDupX1(frame)
	case opcodes.DUP_X2:
		return nil, verifyDupX2(frame)
	case opcodes.DUP2:
		return nil, verifyDup2(frame)
	case opcodes.DUP2_X1:
		return nil, verifyDup2X1(frame)
	case opcodes.DUP2_X2:
		return nil, verifyDup2X2(frame)
	case opcodes.SWAP:
		a, err := frame.PopCategory1()
		if err != nil {
			return nil, err
		}
		b, err := frame.PopCategory1()
		if err != nil {
			return nil, err
		}
		if err := frame.Push(a); err != nil {
			return nil, err
		}
		return nil, frame.Push(b)

	case opcodes.IADD, opcodes.ISUB, opcodes.IMUL, opcodes.IDIV, opcodes.IREM,
		opcodes.IAND, opcodes.IOR, opcodes.IXOR, opcodes.ISHL, opcodes.ISHR, opcodes.IUSHR:
		return nil, verifyBinary(frame, VInt)
	case opcodes.LADD, opcodes.LSUB, opcodes.LMUL, opcodes.LDIV, opcodes.LREM,
		opcodes.LAND, opcodes.LOR, opcodes.LXOR:
		return nil, verifyBinary(frame, VLong)
	case opcodes.LSHL, opcodes.LSHR, opcodes.LUSHR:
		return nil, verifyShift(frame, VLong)
	case opcodes.FADD, opcodes.FSUB, opcodes.FMUL, opcodes.FDIV, opcodes.FREM:
		return nil, verifyBinary(frame, VFloat)
	case opcodes.DADD, opcodes.DSUB, opcodes.DMUL, opcodes.DDIV, opcodes.DREM:
		return nil, verifyBinary(frame, VDouble)
	case opcodes.INEG:
		return nil, verifyUnary(frame, VInt)
	case opcodes.LNEG:
		return nil, verifyUnary(frame, VLong)
	case opcodes.FNEG:
		return nil, verifyUnary(frame, VFloat)
	case opcodes.DNEG:
		return nil, verifyUnary(frame, VDouble)
	case opcodes.IINC:
		idx := int(code[pc+1])
		v, err := frame.GetLocal(idx)
		if err != nil {
			return nil, err
		}
		if v.Kind != Integer {
			return nil, fmt.Errorf("iinc on non-int local %d", idx)
		}
		return nil, nil

	case opcodes.I2L:
		return nil, verifyConvert(frame, VInt, VLong)
	case opcodes.I2F:
		return nil, verifyConvert(frame, VInt, VFloat)
	case opcodes.I2D:
		return nil, verifyConvert(frame, VInt, VDouble)
	case opcodes.L2I:
		return nil, verifyConvert(frame, VLong, VInt)
	case opcodes.L2F:
		return nil, verifyConvert(frame, VLong, VFloat)
	case opcodes.L2D:
		return nil, verifyConvert(frame, VLong, VDouble)
	case opcodes.F2I:
		return nil, verifyConvert(frame, VFloat, VInt)
	case opcodes.F2L:
		return nil, verifyConvert(frame, VFloat, VLong)
	case opcodes.F2D:
		return nil, verifyConvert(frame, VFloat, VDouble)
	case opcodes.D2I:
		return nil, verifyConvert(frame, VDouble, VInt)
	case opcodes.D2L:
		return nil, verifyConvert(frame, VDouble, VLong)
	case opcodes.D2F:
		return nil, verifyConvert(frame, VDouble, VFloat)
	case opcodes.I2B, opcodes.I2C, opcodes.I2S:
		return nil, verifyConvert(frame, VInt, VInt)

	case opcodes.LCMP:
		return nil, verifyCompare(frame, VLong)
	case opcodes.FCMPL, opcodes.FCMPG:
		return nil, verifyCompare(frame, VFloat)
	case opcodes.DCMPL, opcodes.DCMPG:
		return nil, verifyCompare(frame, VDouble)

	case opcodes.IFEQ, opcodes.IFNE, opcodes.IFLT, opcodes.IFGE, opcodes.IFGT, opcodes.IFLE:
		if _, err := popExpect(frame, VInt); err != nil {
			return nil, err
		}
		return []int{pc + s16At(code, pc+1)}, nil
	case opcodes.IF_ICMPEQ, opcodes.IF_ICMPNE, opcodes.IF_ICMPLT, opcodes.IF_ICMPGE,
		opcodes.IF_ICMPGT, opcodes.IF_ICMPLE:
		if _, err := popExpect(frame, VInt); err != nil {
			return nil, err
		}
		if _, err := popExpect(frame, VInt); err != nil {
			return nil, err
		}
		return []int{pc + s16At(code, pc+1)}, nil
	case opcodes.IF_ACMPEQ, opcodes.IF_ACMPNE:
		if _, err := frame.Pop(); err != nil {
			return nil, err
		}
		if _, err := frame.Pop(); err != nil {
			return nil, err
		}
		return []int{pc + s16At(code, pc+1)}, nil
	case opcodes.IFNULL, opcodes.IFNONNULL:
		v, err := frame.Pop()
		if err != nil {
			return nil, err
		}
		if !v.IsReference() {
			return nil, fmt.Errorf("ifnull/ifnonnull on non-reference %s", v)
		}
		return []int{pc + s16At(code, pc+1)}, nil
	case opcodes.GOTO:
		return []int{pc + s16At(code, pc+1)}, nil

	case opcodes.IRETURN:
		_, err := popExpect(frame, VInt)
		return nil, err
	case opcodes.LRETURN:
		_, err := popExpect(frame, VLong)
		return nil, err
	case opcodes.FRETURN:
		_, err := popExpect(frame, VFloat)
		return nil, err
	case opcodes.DRETURN:
		_, err := popExpect(frame, VDouble)
		return nil, err
	case opcodes.ARETURN:
		v, err := frame.Pop()
		if err != nil {
			return nil, err
		}
		if v.Kind == UninitializedKind || v.Kind == UninitializedThisKind {
			return nil, fmt.Errorf("areturn of an uninitialized reference")
		}
		if !v.IsReference() {
			return nil, fmt.Errorf("areturn of non-reference %s", v)
		}
		return nil, nil
	case opcodes.RETURN:
		return nil, nil
	case opcodes.ATHROW:
		v, err := frame.Pop()
		if err != nil {
			return nil, err
		}
		if !v.IsReference() {
			return nil, fmt.Errorf("athrow of non-reference %s", v)
		}
		return nil, nil

	case opcodes.NEW:
		if _, err := cp.ResolveClassName(uint16(u16At(code, pc+1))); err != nil {
			return nil, err
		}
		return nil, frame.Push(VUninitialized(pc))
	case opcodes.NEWARRAY:
		if _, err := popExpect(frame, VInt); err != nil {
			return nil, err
		}
		return nil, frame.Push(VArray(primitiveArrayComponent(code[pc+1])))
	case opcodes.ANEWARRAY:
		if _, err := popExpect(frame, VInt); err != nil {
			return nil, err
		}
		className, err := cp.ResolveClassName(uint16(u16At(code, pc+1)))
		if err != nil {
			return nil, err
		}
		return nil, frame.Push(VArray(componentFromName(className)))
	case opcodes.MULTIANEWARRAY:
		dims := int(code[pc+3])
		for i := 0; i < dims; i++ {
			if _, err := popExpect(frame, VInt); err != nil {
				return nil, err
			}
		}
		className, err := cp.ResolveClassName(uint16(u16At(code, pc+1)))
		if err != nil {
			return nil, err
		}
		return nil, frame.Push(componentFromName(className))
	case opcodes.ARRAYLENGTH:
		v, err := frame.Pop()
		if err != nil {
			return nil, err
		}
		if v.Kind != ArrayKind && v.Kind != Null {
			return nil, fmt.Errorf("arraylength on non-array %s", v)
		}
		return nil, frame.Push(VInt)

	case opcodes.GETFIELD:
		return nil, verifyGetField(cp, code, pc, frame, ctx, strict)
	case opcodes.PUTFIELD:
		return nil, verifyPutField(cp, code, pc, frame)
	case opcodes.GETSTATIC:
		return nil, verifyGetStatic(cp, code, pc, frame)
	case opcodes.PUTSTATIC:
		return nil, verifyPutStatic(cp, code, pc, frame)

	case opcodes.INVOKEVIRTUAL, opcodes.INVOKESTATIC, opcodes.INVOKESPECIAL, opcodes.INVOKEINTERFACE:
		return nil, verifyInvoke(cp, code, pc, op, frame, ctx, strict, declaringClass)
	case opcodes.INVOKEDYNAMIC:
		return nil, verifyInvokeDynamic(cp, code, pc, frame)

	case opcodes.CHECKCAST:
		v, err := frame.Pop()
		if err != nil {
			return nil, err
		}
		if !v.IsReference() {
			return nil, fmt.Errorf("checkcast on non-reference %s", v)
		}
		className, cerr := cp.ResolveClassName(uint16(u16At(code, pc+1)))
		if cerr != nil {
			return nil, cerr
		}
		return nil, frame.Push(componentFromName(className))
	case opcodes.INSTANCEOF:
		v, err := frame.Pop()
		if err != nil {
			return nil, err
		}
		if !v.IsReference() {
			return nil, fmt.Errorf("instanceof on non-reference %s", v)
		}
		return nil, frame.Push(VInt)

	case opcodes.MONITORENTER, opcodes.MONITOREXIT:
		_, err := frame.Pop()
		return nil, err

	default:
		return nil, fmt.Errorf("verifier: unsupported opcode 0x%02x", op)
	}
}

func popExpect(f *Frame, want VType) (VType, error) {
	v, err := f.Pop()
	if err != nil {
		return VType{}, err
	}
	if v.Kind != want.Kind {
		return VType{}, fmt.Errorf("expected %s, found %s", want, v)
	}
	return v, nil
}

func verifyLdc(cp *classloader.CPool, idx uint16, f *Frame) error {
	if int(idx) >= len(cp.CpIndex) {
		return fmt.Errorf("ldc index out of range")
	}
	switch cp.CpIndex[idx].Type {
	case classloader.IntConst:
		return f.Push(VInt)
	case classloader.FloatConst:
		return f.Push(VFloat)
	case classloader.LongConst:
		return f.Push(VLong)
	case classloader.DoubleConst:
		return f.Push(VDouble)
	case classloader.StringConst:
		return f.Push(VObject("java/lang/String"))
	case classloader.ClassRef:
		return f.Push(VObject("java/lang/Class"))
	default:
		return fmt.Errorf("ldc target is not a loadable constant")
	}
}

func localIndex(op byte, code []byte, pc int, wide, short0 byte) int {
	if op == wide {
		return int(code[pc+1])
	}
	return int(op - short0)
}

func verifyLoad(f *Frame, idx int, want VType) error {
	v, err := f.GetLocal(idx)
	if err != nil {
		return err
	}
	if v.Kind != want.Kind {
		return fmt.Errorf("load: local %d is %s, not %s", idx, v, want)
	}
	return f.Push(v)
}

func verifyALoad(f *Frame, idx int) error {
	v, err := f.GetLocal(idx)
	if err != nil {
		return err
	}
	if !v.IsReference() {
		return fmt.Errorf("aload: local %d is %s, not a reference", idx, v)
	}
	return f.Push(v)
}

func verifyStore(f *Frame, idx int, want VType) error {
	v, err := popExpect(f, want)
	if err != nil {
		return err
	}
	return f.SetLocal(idx, v)
}

func verifyAStore(f *Frame, idx int) error {
	v, err := f.Pop()
	if err != nil {
		return err
	}
	if !v.IsReference() {
		return fmt.Errorf("astore: top of stack is %s, not a reference", v)
	}
	return f.SetLocal(idx, v)
}

func verifyBinary(f *Frame, t VType) error {
	if _, err := popExpect(f, t); err != nil {
		return err
	}
	if _, err := popExpect(f, t); err != nil {
		return err
	}
	return f.Push(t)
}

func verifyShift(f *Frame, t VType) error {
	if _, err := popExpect(f, VInt); err != nil {
		return err
	}
	if _, err := popExpect(f, t); err != nil {
		return err
	}
	return f.Push(t)
}

func verifyUnary(f *Frame, t VType) error {
	if _, err := popExpect(f, t); err != nil {
		return err
	}
	return f.Push(t)
}

func verifyConvert(f *Frame, from, to VType) error {
	if _, err := popExpect(f, from); err != nil {
		return err
	}
	return f.Push(to)
}

func verifyCompare(f *Frame, t VType) error {
	if _, err := popExpect(f, t); err != nil {
		return err
	}
	if _, err := popExpect(f, t); err != nil {
		return err
	}
	return f.Push(VInt)
}

// verifyDupX1/X2/Dup2/Dup2X1/Dup2X2 implement §4.2's dup family. dup_x1
// has a single form (two category-1 values); the rest branch on the
// categories of the values nearest the top, peeked via Peek (which
// looks through a trailing Top) without disturbing the stack, then
// pop/push the matched form.
func verifyDupX1(f *Frame) error {
	v1, err := f.PopCategory1()
	if err != nil {
		return err
	}
	v2, err := f.PopCategory1()
	if err != nil {
		return err
	}
	if err := f.Push(v1); err != nil {
		return err
	}
	if err := f.Push(v2); err != nil {
		return err
	}
	return f.Push(v1)
}

func verifyDupX2(f *Frame) error {
	v1, err := f.Peek()
	if err != nil {
		return err
	}
	if v1.Category() == 2 {
		// form 2: ..., v2, v1 -> ..., v1, v2, v1 (v1 category 2, v2 category 1)
		v1, err = f.Pop()
		if err != nil {
			return err
		}
		v2, err := f.PopCategory1()
		if err != nil {
			return err
		}
		if err := f.Push(v1); err != nil {
			return err
		}
		if err := f.Push(v2); err != nil {
			return err
		}
		return f.Push(v1)
	}
	// form 1: ..., v3, v2, v1 -> ..., v1, v3, v2, v1 (all category 1)
	v1, err = f.PopCategory1()
	if err != nil {
		return err
	}
	v2, err := f.PopCategory1()
	if err != nil {
		return err
	}
	v3, err := f.PopCategory1()
	if err != nil {
		return err
	}
	if err := f.Push(v1); err != nil {
		return err
	}
	if err := f.Push(v3); err != nil {
		return err
	}
	if err := f.Push(v2); err != nil {
		return err
	}
	return f.Push(v1)
}

func verifyDup2(f *Frame) error {
	top, err := f.Peek()
	if err != nil {
		return err
	}
	if top.Category() == 2 {
		v, _ := f.Pop()
		if err := f.Push(v); err != nil {
			return err
		}
		return f.Push(v)
	}
	v1, err := f.PopCategory1()
	if err != nil {
		return err
	}
	v2, err := f.PopCategory1()
	if err != nil {
		return err
	}
	if err := f.Push(v2); err != nil {
		return err
	}
	if err := f.Push(v1); err != nil {
		return err
	}
	if err := f.Push(v2); err != nil {
		return err
	}
	return f.Push(v1)
}

// verifyDup2X1 implements dup2_x1's two forms, distinguished by the
// category of the value on top of the stack.
func verifyDup2X1(f *Frame) error {
	v1, err := f.Peek()
	if err != nil {
		return err
	}
	if v1.Category() == 2 {
		// form 2: ..., v2, v1 -> ..., v1, v2, v1 (v1 category 2, v2 category 1)
		v1, err = f.Pop()
		if err != nil {
			return err
		}
		v2, err := f.PopCategory1()
		if err != nil {
			return err
		}
		if err := f.Push(v1); err != nil {
			return err
		}
		if err := f.Push(v2); err != nil {
			return err
		}
		return f.Push(v1)
	}
	// form 1: ..., v3, v2, v1 -> ..., v2, v1, v3, v2, v1 (all category 1)
	v1, err = f.PopCategory1()
	if err != nil {
		return err
	}
	v2, err := f.PopCategory1()
	if err != nil {
		return err
	}
	v3, err := f.PopCategory1()
	if err != nil {
		return err
	}
	if err := f.Push(v2); err != nil {
		return err
	}
	if err := f.Push(v1); err != nil {
		return err
	}
	if err := f.Push(v3); err != nil {
		return err
	}
	if err := f.Push(v2); err != nil {
		return err
	}
	return f.Push(v1)
}

// verifyDup2X2 implements dup2_x2's four forms. value1's category
// selects between {form1,form3} and {form2,form4}; a second peek at
// value2 (form2/form4) or value3 (form1/form3) picks the exact form.
func verifyDup2X2(f *Frame) error {
	v1, err := f.Peek()
	if err != nil {
		return err
	}
	if v1.Category() == 2 {
		v1, err = f.Pop()
		if err != nil {
			return err
		}
		v2, err := f.Peek()
		if err != nil {
			return err
		}
		if v2.Category() == 2 {
			// form 4: ..., v2, v1 -> ..., v1, v2, v1
			v2, err = f.Pop()
			if err != nil {
				return err
			}
			if err := f.Push(v1); err != nil {
				return err
			}
			if err := f.Push(v2); err != nil {
				return err
			}
			return f.Push(v1)
		}
		// form 2: ..., v3, v2, v1 -> ..., v1, v3, v2, v1 (v1 category 2, v2/v3 category 1)
		v2, err = f.PopCategory1()
		if err != nil {
			return err
		}
		v3, err := f.PopCategory1()
		if err != nil {
			return err
		}
		if err := f.Push(v1); err != nil {
			return err
		}
		if err := f.Push(v3); err != nil {
			return err
		}
		if err := f.Push(v2); err != nil {
			return err
		}
		return f.Push(v1)
	}
	v1, err = f.PopCategory1()
	if err != nil {
		return err
	}
	v2, err := f.PopCategory1()
	if err != nil {
		return err
	}
	v3, err := f.Peek()
	if err != nil {
		return err
	}
	if v3.Category() == 2 {
		// form 3: ..., v3, v2, v1 -> ..., v2, v1, v3, v2, v1 (v1/v2 category 1, v3 category 2)
		v3, err = f.Pop()
		if err != nil {
			return err
		}
		if err := f.Push(v2); err != nil {
			return err
		}
		if err := f.Push(v1); err != nil {
			return err
		}
		if err := f.Push(v3); err != nil {
			return err
		}
		if err := f.Push(v2); err != nil {
			return err
		}
		return f.Push(v1)
	}
	// form 1: ..., v4, v3, v2, v1 -> ..., v2, v1, v4, v3, v2, v1 (all category 1)
	v3, err = f.PopCategory1()
	if err != nil {
		return err
	}
	v4, err := f.PopCategory1()
	if err != nil {
		return err
	}
	if err := f.Push(v2); err != nil {
		return err
	}
	if err := f.Push(v1); err != nil {
		return err
	}
	if err := f.Push(v4); err != nil {
		return err
	}
	if err := f.Push(v3); err != nil {
		return err
	}
	if err := f.Push(v2); err != nil {
		return err
	}
	return f.Push(v1)
}

func primitiveArrayComponent(atype byte) VType {
	switch atype {
	case 6: // T_FLOAT
		return VFloat
	case 7: // T_DOUBLE
		return VDouble
	case 10: // T_INT
		return VInt
	case 11: // T_LONG
		return VLong
	default: // T_BOOLEAN, T_CHAR, T_BYTE, T_SHORT
		return VInt
	}
}

// componentFromName parses a class-ref name that may itself be an
// array descriptor (anewarray's operand is a class constant naming
// either a class or an array type, §4.2).
func componentFromName(name string) VType {
	if len(name) > 0 && name[0] == '[' {
		v, _, err := ParseFieldDescriptor(name)
		if err == nil {
			return v
		}
	}
	return VObject(name)
}

func verifyGetField(cp *classloader.CPool, code []byte, pc int, f *Frame, ctx Context, strict bool) error {
	fr, err := cp.ResolveFieldRef(uint16(u16At(code, pc+1)))
	if err != nil {
		return err
	}
	recv, err := f.Pop()
	if err != nil {
		return err
	}
	if recv.Kind != Null {
		ok, aerr := IsAssignableTo(recv, VObject(fr.ClassName), ctx, strict)
		if aerr != nil {
			return aerr
		}
		if !ok {
			return fmt.Errorf("getfield: receiver %s not assignable to %s", recv, fr.ClassName)
		}
	}
	ft, _, err := ParseFieldDescriptor(fr.FieldType)
	if err != nil {
		return err
	}
	return f.Push(ft)
}

func verifyPutField(cp *classloader.CPool, code []byte, pc int, f *Frame) error {
	fr, err := cp.ResolveFieldRef(uint16(u16At(code, pc+1)))
	if err != nil {
		return err
	}
	ft, _, err := ParseFieldDescriptor(fr.FieldType)
	if err != nil {
		return err
	}
	if ft.IsReference() {
		v, perr := f.Pop()
		if perr != nil {
			return perr
		}
		if !v.IsReference() {
			return fmt.Errorf("putfield: value %s is not a reference for field type %s", v, ft)
		}
	} else if _, perr := popExpect(f, ft); perr != nil {
		return perr
	}
	recv, err := f.Pop()
	if err != nil {
		return err
	}
	// §4.2: "the receiver may be UninitializedThis or any Uninitialized(_)"
	// — this permits field assignment inside a constructor before super().
	if recv.Kind == UninitializedKind || recv.Kind == UninitializedThisKind {
		return nil
	}
	if !recv.IsReference() {
		return fmt.Errorf("putfield: receiver %s is not a reference", recv)
	}
	return nil
}

func verifyGetStatic(cp *classloader.CPool, code []byte, pc int, f *Frame) error {
	fr, err := cp.ResolveFieldRef(uint16(u16At(code, pc+1)))
	if err != nil {
		return err
	}
	ft, _, err := ParseFieldDescriptor(fr.FieldType)
	if err != nil {
		return err
	}
	return f.Push(ft)
}

func verifyPutStatic(cp *classloader.CPool, code []byte, pc int, f *Frame) error {
	fr, err := cp.ResolveFieldRef(uint16(u16At(code, pc+1)))
	if err != nil {
		return err
	}
	ft, _, err := ParseFieldDescriptor(fr.FieldType)
	if err != nil {
		return err
	}
	if ft.IsReference() {
		v, perr := f.Pop()
		if perr != nil {
			return perr
		}
		if !v.IsReference() {
			return fmt.Errorf("putstatic: value %s is not a reference for field type %s", v, ft)
		}
		return nil
	}
	_, perr := popExpect(f, ft)
	return perr
}

func verifyInvoke(cp *classloader.CPool, code []byte, pc int, op byte, f *Frame, ctx Context, strict bool, declaringClass string) error {
	mr, err := cp.ResolveMethodRef(uint16(u16At(code, pc+1)))
	if err != nil {
		return err
	}
	params, ret, hasReturn, err := ParseMethodDescriptor(mr.MethodType)
	if err != nil {
		return err
	}
	for i := len(params) - 1; i >= 0; i-- {
		if _, err := f.Pop(); err != nil {
			return err
		}
	}
	if op != opcodes.INVOKESTATIC {
		recv, err := f.Pop()
		if err != nil {
			return err
		}
		if mr.MethodName == "<init>" {
			if op != opcodes.INVOKESPECIAL {
				return fmt.Errorf("<init> invoked other than by invokespecial")
			}
			if recv.Kind != UninitializedKind && recv.Kind != UninitializedThisKind {
				return fmt.Errorf("invokespecial <init>: receiver %s is not an uninitialized reference", recv)
			}
			initialized := VObject(mr.ClassName)
			if recv.Kind == UninitializedThisKind {
				initialized = VObject(declaringClass)
			}
			f.InitializeObject(recv, initialized)
		} else if recv.Kind == UninitializedKind || recv.Kind == UninitializedThisKind {
			return fmt.Errorf("uninitialized reference used as invocation receiver")
		} else if recv.Kind != Null {
			ok, aerr := IsAssignableTo(recv, VObject(mr.ClassName), ctx, strict)
			if aerr != nil {
				return aerr
			}
			if !ok {
				return fmt.Errorf("invoke: receiver %s not assignable to %s", recv, mr.ClassName)
			}
		}
	}
	if hasReturn {
		return f.Push(ret)
	}
	return nil
}

// verifyInvokeDynamic applies invokedynamic's typing rule (§3, §4.2):
// same descriptor-driven pop/push as the other invoke forms, but no
// receiver — the call site has no object reference, only whatever
// the bootstrap method's CallSite supplies at link time.
func verifyInvokeDynamic(cp *classloader.CPool, code []byte, pc int, f *Frame) error {
	_, _, desc, err := cp.ResolveInvokeDynamic(uint16(u16At(code, pc+1)))
	if err != nil {
		return err
	}
	params, ret, hasReturn, err := ParseMethodDescriptor(desc)
	if err != nil {
		return err
	}
	for i := len(params) - 1; i >= 0; i-- {
		if _, err := f.Pop(); err != nil {
			return err
		}
	}
	if hasReturn {
		return f.Push(ret)
	}
	return nil
}
