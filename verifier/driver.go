/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// The fixpoint driver (§4.3, §4.7): abstract interpretation over a
// method's bytecode, merging frames at every control-flow join until
// the recorded state at each reachable PC stops changing. Grounded on
// the worklist shape classloader/codecheck.go already uses to walk a
// Code attribute structurally; this reuses that walk but carries typed
// Frame state across it instead of just checking instruction bounds.
package verifier

import (
	"fmt"

	"jacobin/classloader"
)

// MethodSignature is the subset of a resolved method needed to seed
// verification: its descriptor, staticness, and declaring class (the
// latter needed for invokespecial <init> on UninitializedThis, §4.2).
type MethodSignature struct {
	DeclaringClass string
	Descriptor     string
	IsStatic       bool
	IsInit         bool
}

// VerifyMethod runs the fixpoint type check over code, reporting the
// first typing violation found. It supports the instruction families
// stepVerify implements; tableswitch, lookupswitch and wide are a
// documented gap (see instrLen) rather than a silent miscompile, since
// no method in the pack's sample classes exercises them.
func VerifyMethod(cp *classloader.CPool, code *classloader.CodeAttrib, sig MethodSignature, ctx Context, strict bool) error {
	if len(code.Code) == 0 {
		return nil
	}

	entry := NewFrame(code.MaxStack, code.MaxLocals)
	li := 0
	if !sig.IsStatic {
		if sig.IsInit {
			if err := entry.SetLocal(li, VUninitializedThis); err != nil {
				return err
			}
		} else {
			if err := entry.SetLocal(li, VObject(sig.DeclaringClass)); err != nil {
				return err
			}
		}
		li++
	}
	params, _, _, err := ParseMethodDescriptor(sig.Descriptor)
	if err != nil {
		return err
	}
	for _, p := range params {
		if err := entry.SetLocal(li, p); err != nil {
			return err
		}
		li += p.Category()
	}

	recorded := map[int]*Frame{0: entry}
	stable := map[int]bool{}
	worklist := []int{0}

	settle := func(pc int, f *Frame) error {
		if pc < 0 || pc >= len(code.Code) {
			return fmt.Errorf("branch target %d out of bounds", pc)
		}
		existing, ok := recorded[pc]
		if !ok {
			recorded[pc] = f
			worklist = append(worklist, pc)
			return nil
		}
		merged, ok := existing.MergeWith(f, ctx)
		if !ok {
			return fmt.Errorf("incompatible stack depth at merge point pc=%d", pc)
		}
		if !merged.Equal(existing) {
			recorded[pc] = merged
			stable[pc] = false
			worklist = append(worklist, pc)
		}
		return nil
	}

	// Exception handlers: whenever the frame recorded at a try region's
	// StartPc changes, seed/merge the handler's successor frame too.
	seedHandlers := func(pc int, f *Frame) error {
		for _, ex := range code.Exceptions {
			if pc != ex.StartPc {
				continue
			}
			handlerFrame := &Frame{
				Stack:     []VType{VObject(catchClassName(cp, ex.CatchType))},
				Locals:    append([]VType(nil), f.Locals...),
				MaxStack:  f.MaxStack,
				MaxLocals: f.MaxLocals,
			}
			if err := settle(ex.HandlerPc, handlerFrame); err != nil {
				return err
			}
		}
		return nil
	}

	if err := seedHandlers(0, entry); err != nil {
		return err
	}

	for len(worklist) > 0 {
		pc := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if stable[pc] {
			continue
		}
		stable[pc] = true

		frame := recorded[pc].Clone()
		op := code.Code[pc]
		length, err := instrLen(op, pc, code.Code)
		if err != nil {
			return fmt.Errorf("pc=%d: %w", pc, err)
		}

		targets, err := stepVerify(pc, op, code.Code, cp, frame, ctx, strict, sig.DeclaringClass)
		if err != nil {
			return fmt.Errorf("pc=%d: %w", pc, err)
		}

		branches, fallsThrough, terminal := classifyTerminator(op)
		if terminal {
			continue
		}
		if fallsThrough {
			if err := settle(pc+length, frame); err != nil {
				return fmt.Errorf("pc=%d: %w", pc, err)
			}
			if err := seedHandlers(pc+length, recorded[pc+length]); err != nil {
				return err
			}
		}
		if branches {
			for _, t := range targets {
				if err := settle(t, frame); err != nil {
					return fmt.Errorf("pc=%d: %w", pc, err)
				}
				if err := seedHandlers(t, recorded[t]); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func catchClassName(cp *classloader.CPool, catchType uint16) string {
	if catchType == 0 {
		return "java/lang/Throwable"
	}
	name, err := cp.ResolveClassName(catchType)
	if err != nil {
		return "java/lang/Throwable"
	}
	return name
}
