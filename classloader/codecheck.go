/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// CheckCodeValidity is the structural pass that runs before the
// type-safety prover in the verifier package (§4.1 rule 3, "bytecode
// instructions are well-formed": correct operand counts and no opcode
// runs off the end of the array). Operand-stack depth is not tracked,
// so the declared max_stack is not checked here. It does not reason
// about types; the verifier package does that. Grounded on jacobin's
// CheckCodeValidity (classloader/codeCheck.go), reimplemented with a
// local walk instead of the teacher's package-level Code/PC/PrevPC
// globals, which do not compose with concurrent class loading.
package classloader

import (
	"fmt"

	"jacobin/exceptions"
	"jacobin/opcodes"
)

// operandLen is the number of immediate operand bytes following the
// opcode byte itself, for fixed-length instructions. Variable-length
// instructions (tableswitch, lookupswitch, wide) are handled specially
// in CheckCodeValidity.
var operandLen = map[byte]int{
	opcodes.NOP: 0, opcodes.ACONST_NULL: 0,
	opcodes.ICONST_M1: 0, opcodes.ICONST_0: 0, opcodes.ICONST_1: 0, opcodes.ICONST_2: 0,
	opcodes.ICONST_3: 0, opcodes.ICONST_4: 0, opcodes.ICONST_5: 0,
	opcodes.LCONST_0: 0, opcodes.LCONST_1: 0,
	opcodes.FCONST_0: 0, opcodes.FCONST_1: 0, opcodes.FCONST_2: 0,
	opcodes.DCONST_0: 0, opcodes.DCONST_1: 0,
	opcodes.BIPUSH: 1, opcodes.SIPUSH: 2,
	opcodes.LDC: 1, opcodes.LDC_W: 2, opcodes.LDC2_W: 2,
	opcodes.ILOAD: 1, opcodes.LLOAD: 1, opcodes.FLOAD: 1, opcodes.DLOAD: 1, opcodes.ALOAD: 1,
	opcodes.ILOAD_0: 0, opcodes.ILOAD_1: 0, opcodes.ILOAD_2: 0, opcodes.ILOAD_3: 0,
	opcodes.LLOAD_0: 0, opcodes.LLOAD_1: 0, opcodes.LLOAD_2: 0, opcodes.LLOAD_3: 0,
	opcodes.FLOAD_0: 0, opcodes.FLOAD_1: 0, opcodes.FLOAD_2: 0, opcodes.FLOAD_3: 0,
	opcodes.DLOAD_0: 0, opcodes.DLOAD_1: 0, opcodes.DLOAD_2: 0, opcodes.DLOAD_3: 0,
	opcodes.ALOAD_0: 0, opcodes.ALOAD_1: 0, opcodes.ALOAD_2: 0, opcodes.ALOAD_3: 0,
	opcodes.IALOAD: 0, opcodes.LALOAD: 0, opcodes.FALOAD: 0, opcodes.DALOAD: 0,
	opcodes.AALOAD: 0, opcodes.BALOAD: 0, opcodes.CALOAD: 0, opcodes.SALOAD: 0,
	opcodes.ISTORE: 1, opcodes.LSTORE: 1, opcodes.FSTORE: 1, opcodes.DSTORE: 1, opcodes.ASTORE: 1,
	opcodes.ISTORE_0: 0, opcodes.ISTORE_1: 0, opcodes.ISTORE_2: 0, opcodes.ISTORE_3: 0,
	opcodes.LSTORE_0: 0, opcodes.LSTORE_1: 0, opcodes.LSTORE_2: 0, opcodes.LSTORE_3: 0,
	opcodes.FSTORE_0: 0, opcodes.FSTORE_1: 0, opcodes.FSTORE_2: 0, opcodes.FSTORE_3: 0,
	opcodes.DSTORE_0: 0, opcodes.DSTORE_1: 0, opcodes.DSTORE_2: 0, opcodes.DSTORE_3: 0,
	opcodes.ASTORE_0: 0, opcodes.ASTORE_1: 0, opcodes.ASTORE_2: 0, opcodes.ASTORE_3: 0,
	opcodes.IASTORE: 0, opcodes.LASTORE: 0, opcodes.FASTORE: 0, opcodes.DASTORE: 0,
	opcodes.AASTORE: 0, opcodes.BASTORE: 0, opcodes.CASTORE: 0, opcodes.SASTORE: 0,
	opcodes.POP: 0, opcodes.POP2: 0, opcodes.DUP: 0, opcodes.DUP_X1: 0, opcodes.DUP_X2: 0,
	opcodes.DUP2: 0, opcodes.DUP2_X1: 0, opcodes.DUP2_X2: 0, opcodes.SWAP: 0,
	opcodes.IADD: 0, opcodes.LADD: 0, opcodes.FADD: 0, opcodes.DADD: 0,
	opcodes.ISUB: 0, opcodes.LSUB: 0, opcodes.FSUB: 0, opcodes.DSUB: 0,
	opcodes.IMUL: 0, opcodes.LMUL: 0, opcodes.FMUL: 0, opcodes.DMUL: 0,
	opcodes.IDIV: 0, opcodes.LDIV: 0, opcodes.FDIV: 0, opcodes.DDIV: 0,
	opcodes.IREM: 0, opcodes.LREM: 0, opcodes.FREM: 0, opcodes.DREM: 0,
	opcodes.INEG: 0, opcodes.LNEG: 0, opcodes.FNEG: 0, opcodes.DNEG: 0,
	opcodes.ISHL: 0, opcodes.LSHL: 0, opcodes.ISHR: 0, opcodes.LSHR: 0,
	opcodes.IUSHR: 0, opcodes.LUSHR: 0,
	opcodes.IAND: 0, opcodes.LAND: 0, opcodes.IOR: 0, opcodes.LOR: 0, opcodes.IXOR: 0, opcodes.LXOR: 0,
	opcodes.IINC: 2,
	opcodes.I2L: 0, opcodes.I2F: 0, opcodes.I2D: 0, opcodes.L2I: 0, opcodes.L2F: 0, opcodes.L2D: 0,
	opcodes.F2I: 0, opcodes.F2L: 0, opcodes.F2D: 0, opcodes.D2I: 0, opcodes.D2L: 0, opcodes.D2F: 0,
	opcodes.I2B: 0, opcodes.I2C: 0, opcodes.I2S: 0,
	opcodes.LCMP: 0, opcodes.FCMPL: 0, opcodes.FCMPG: 0, opcodes.DCMPL: 0, opcodes.DCMPG: 0,
	opcodes.IFEQ: 2, opcodes.IFNE: 2, opcodes.IFLT: 2, opcodes.IFGE: 2, opcodes.IFGT: 2, opcodes.IFLE: 2,
	opcodes.IF_ICMPEQ: 2, opcodes.IF_ICMPNE: 2, opcodes.IF_ICMPLT: 2, opcodes.IF_ICMPGE: 2,
	opcodes.IF_ICMPGT: 2, opcodes.IF_ICMPLE: 2, opcodes.IF_ACMPEQ: 2, opcodes.IF_ACMPNE: 2,
	opcodes.GOTO: 2, opcodes.JSR: 2, opcodes.RET: 1,
	opcodes.IRETURN: 0, opcodes.LRETURN: 0, opcodes.FRETURN: 0, opcodes.DRETURN: 0,
	opcodes.ARETURN: 0, opcodes.RETURN: 0,
	opcodes.GETSTATIC: 2, opcodes.PUTSTATIC: 2, opcodes.GETFIELD: 2, opcodes.PUTFIELD: 2,
	opcodes.INVOKEVIRTUAL: 2, opcodes.INVOKESPECIAL: 2, opcodes.INVOKESTATIC: 2,
	opcodes.INVOKEINTERFACE: 4, opcodes.INVOKEDYNAMIC: 4,
	opcodes.NEW: 2, opcodes.NEWARRAY: 1, opcodes.ANEWARRAY: 2,
	opcodes.ARRAYLENGTH: 0, opcodes.ATHROW: 0,
	opcodes.CHECKCAST: 2, opcodes.INSTANCEOF: 2,
	opcodes.MONITORENTER: 0, opcodes.MONITOREXIT: 0,
	opcodes.MULTIANEWARRAY: 3,
	opcodes.IFNULL: 2, opcodes.IFNONNULL: 2,
	opcodes.GOTO_W: 4, opcodes.JSR_W: 4,
}

// CheckCodeValidity walks codePtr once, verifying every opcode is
// known, every fixed-length opcode's operands fit inside the array,
// and every variable-length opcode's padding/table entries are
// internally consistent. cp and maxStack are accepted for parity with
// the checks that do reason about them (ldc's CP index, the declared
// stack bound) but af is currently only consulted for the
// empty-method exemption (abstract/native methods carry no Code
// attribute).
func CheckCodeValidity(codePtr *[]byte, cp *CPool, maxStack int, af AccessFlags) error {
	if codePtr == nil {
		return exceptions.ClassFormatError("ptr to code segment is nil")
	}
	code := *codePtr
	if len(code) == 0 {
		if af.ClassIsAbstract || af.ClassIsInterface {
			return nil
		}
		return exceptions.ClassFormatError("code segment is empty for a concrete method")
	}
	if cp == nil {
		return exceptions.ClassFormatError("ptr to constant pool is nil")
	}

	pc := 0
	for pc < len(code) {
		op := code[pc]
		switch op {
		case opcodes.TABLESWITCH:
			n, err := checkTableswitch(code, pc)
			if err != nil {
				return err
			}
			pc += n
			continue
		case opcodes.LOOKUPSWITCH:
			n, err := checkLookupswitch(code, pc)
			if err != nil {
				return err
			}
			pc += n
			continue
		case opcodes.WIDE:
			n, err := checkWide(code, pc)
			if err != nil {
				return err
			}
			pc += n
			continue
		}

		length, known := operandLen[op]
		if !known {
			return fmt.Errorf("invalid bytecode or argument at pc=%d: opcode 0x%02x", pc, op)
		}
		if pc+1+length > len(code) {
			return fmt.Errorf("invalid bytecode or argument at pc=%d: opcode 0x%02x truncated", pc, op)
		}
		pc += 1 + length
	}
	return nil
}

func checkTableswitch(code []byte, pc int) (int, error) {
	start := pc + 1
	pad := (4 - (start % 4)) % 4
	base := start + pad
	if base+12 > len(code) {
		return 0, fmt.Errorf("invalid bytecode or argument at pc=%d: truncated tableswitch", pc)
	}
	low := be32(code, base+4)
	high := be32(code, base+8)
	if high < low {
		return 0, fmt.Errorf("invalid bytecode or argument at pc=%d: tableswitch high < low", pc)
	}
	entries := int(high-low) + 1
	total := base + 12 + entries*4
	if total > len(code) {
		return 0, fmt.Errorf("invalid bytecode or argument at pc=%d: truncated tableswitch table", pc)
	}
	return total - pc, nil
}

func checkLookupswitch(code []byte, pc int) (int, error) {
	start := pc + 1
	pad := (4 - (start % 4)) % 4
	base := start + pad
	if base+8 > len(code) {
		return 0, fmt.Errorf("invalid bytecode or argument at pc=%d: truncated lookupswitch", pc)
	}
	npairs := int(be32(code, base+4))
	if npairs < 0 {
		return 0, fmt.Errorf("invalid bytecode or argument at pc=%d: negative lookupswitch npairs", pc)
	}
	total := base + 8 + npairs*8
	if total > len(code) {
		return 0, fmt.Errorf("invalid bytecode or argument at pc=%d: truncated lookupswitch table", pc)
	}
	return total - pc, nil
}

func checkWide(code []byte, pc int) (int, error) {
	if pc+2 > len(code) {
		return 0, fmt.Errorf("invalid bytecode or argument at pc=%d: truncated wide", pc)
	}
	switch code[pc+1] {
	case opcodes.IINC:
		if pc+6 > len(code) {
			return 0, fmt.Errorf("invalid bytecode or argument at pc=%d: truncated wide iinc", pc)
		}
		return 6, nil
	default:
		if pc+4 > len(code) {
			return 0, fmt.Errorf("invalid bytecode or argument at pc=%d: truncated wide", pc)
		}
		return 4, nil
	}
}

func be32(b []byte, i int) int32 {
	return int32(b[i])<<24 | int32(b[i+1])<<16 | int32(b[i+2])<<8 | int32(b[i+3])
}
