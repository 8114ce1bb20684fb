/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// The typed Frame the verifier's abstract interpretation runs over:
// an operand-stack array plus a local-variable array of VerificationType
// (§3 "Frame"). Kept separate from the interpreter's runtime
// frames.Frame (which holds actual values, not types) by design — the
// two frame kinds share nothing but a name, mirroring the JVM spec's
// own split between the type checker's frames and the interpreter's.
package verifier

import "fmt"

// Frame is the verifier's per-instruction abstract state.
type Frame struct {
	Stack     []VType
	Locals    []VType
	MaxStack  int
	MaxLocals int
}

func NewFrame(maxStack, maxLocals int) *Frame {
	return &Frame{
		Stack:     make([]VType, 0, maxStack),
		Locals:    make([]VType, maxLocals),
		MaxStack:  maxStack,
		MaxLocals: maxLocals,
	}
}

// Clone deep-copies the frame so the driver can mutate a working copy
// per instruction without corrupting the one recorded at a jump target.
func (f *Frame) Clone() *Frame {
	nf := &Frame{
		Stack:     make([]VType, len(f.Stack)),
		Locals:    make([]VType, len(f.Locals)),
		MaxStack:  f.MaxStack,
		MaxLocals: f.MaxLocals,
	}
	copy(nf.Stack, f.Stack)
	copy(nf.Locals, f.Locals)
	return nf
}

// Push places a category-1 value; for a category-2 value it also
// pushes the trailing Top, per §3's invariant.
func (f *Frame) Push(v VType) error {
	need := v.Category()
	if len(f.Stack)+need > f.MaxStack {
		return fmt.Errorf("operand stack overflow")
	}
	f.Stack = append(f.Stack, v)
	if need == 2 {
		f.Stack = append(f.Stack, VTop)
	}
	return nil
}

// Pop removes and returns the top value, consuming its trailing Top
// slot automatically if the top is category-2.
func (f *Frame) Pop() (VType, error) {
	if len(f.Stack) == 0 {
		return VType{}, fmt.Errorf("operand stack underflow")
	}
	top := f.Stack[len(f.Stack)-1]
	if top.Kind == Top {
		if len(f.Stack) < 2 {
			return VType{}, fmt.Errorf("operand stack underflow on category-2 value")
		}
		v := f.Stack[len(f.Stack)-2]
		if v.Category() != 2 {
			return VType{}, fmt.Errorf("stray Top slot with no category-2 owner")
		}
		f.Stack = f.Stack[:len(f.Stack)-2]
		return v, nil
	}
	f.Stack = f.Stack[:len(f.Stack)-1]
	return top, nil
}

// PopCategory1 pops and requires a category-1, non-Top value (used by
// pop/dup/swap, which §4.2 says "reject category-2 values and Top").
func (f *Frame) PopCategory1() (VType, error) {
	if len(f.Stack) == 0 {
		return VType{}, fmt.Errorf("operand stack underflow")
	}
	top := f.Stack[len(f.Stack)-1]
	if top.Kind == Top || top.Category() != 1 {
		return VType{}, fmt.Errorf("expected a category-1 value, found %s", top)
	}
	f.Stack = f.Stack[:len(f.Stack)-1]
	return top, nil
}

// Peek returns the top value without popping (collapsing a trailing
// Top the same way Pop does).
func (f *Frame) Peek() (VType, error) {
	if len(f.Stack) == 0 {
		return VType{}, fmt.Errorf("operand stack underflow")
	}
	top := f.Stack[len(f.Stack)-1]
	if top.Kind == Top && len(f.Stack) >= 2 {
		return f.Stack[len(f.Stack)-2], nil
	}
	return top, nil
}

// PeekAt returns the raw stack slot at depth (0 = top), without
// collapsing Top, so a caller can distinguish "category-2 value here"
// from "category-1 value here" by the raw slot layout (§4.2). The dup
// handlers use Peek instead.
func (f *Frame) PeekAt(depth int) (VType, error) {
	i := len(f.Stack) - 1 - depth
	if i < 0 {
		return VType{}, fmt.Errorf("operand stack underflow at depth %d", depth)
	}
	return f.Stack[i], nil
}

func (f *Frame) GetLocal(i int) (VType, error) {
	if i < 0 || i >= len(f.Locals) {
		return VType{}, fmt.Errorf("local variable index %d out of range", i)
	}
	return f.Locals[i], nil
}

// SetLocal writes v at i; for a category-2 value it also occupies i+1
// with Top (§3: "category-2 params occupy two local slots").
func (f *Frame) SetLocal(i int, v VType) error {
	if i < 0 || i+v.Category()-1 >= len(f.Locals) {
		return fmt.Errorf("local variable index %d out of range", i)
	}
	f.Locals[i] = v
	if v.Category() == 2 {
		f.Locals[i+1] = VTop
	}
	return nil
}

// InitializeObject rewrites every occurrence of the uninitialized tag
// `from` (stack and locals) to `to`, the frame-wide substitution §3
// mandates on successful constructor completion.
func (f *Frame) InitializeObject(from, to VType) {
	for i, v := range f.Stack {
		if v.Equal(from) {
			f.Stack[i] = to
		}
	}
	for i, v := range f.Locals {
		if v.Equal(from) {
			f.Locals[i] = to
		}
	}
}

// Equal reports whether two frames have identical stack and local
// type sequences — the "Recorded -> Stable" test of §4.7.
func (f *Frame) Equal(o *Frame) bool {
	if len(f.Stack) != len(o.Stack) || len(f.Locals) != len(o.Locals) {
		return false
	}
	for i := range f.Stack {
		if !f.Stack[i].Equal(o.Stack[i]) {
			return false
		}
	}
	for i := range f.Locals {
		if !f.Locals[i].Equal(o.Locals[i]) {
			return false
		}
	}
	return true
}

// MergeWith computes, in place on a copy, the least-upper-bound merge
// of f with o, per slot (§4.2 "Control flow"). Locals of different
// length (shouldn't happen: both share MaxLocals) are merged up to the
// shorter length.
func (f *Frame) MergeWith(o *Frame, ctx Context) (*Frame, bool) {
	if len(f.Stack) != len(o.Stack) {
		return nil, false
	}
	merged := &Frame{
		Stack:     make([]VType, len(f.Stack)),
		Locals:    make([]VType, len(f.Locals)),
		MaxStack:  f.MaxStack,
		MaxLocals: f.MaxLocals,
	}
	for i := range f.Stack {
		merged.Stack[i] = MergeTypes(f.Stack[i], o.Stack[i], ctx)
	}
	for i := range f.Locals {
		merged.Locals[i] = MergeTypes(f.Locals[i], o.Locals[i], ctx)
	}
	return merged, true
}
