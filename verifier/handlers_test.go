/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jacobin/classloader"
	"jacobin/opcodes"
)

// cpBuilder assembles a minimal constant pool for a single test,
// tracking cross-references (UTF8 indices, NameAndType indices) so
// callers only ever deal in names and descriptors.
type cpBuilder struct {
	cp *classloader.CPool
}

func newCPBuilder() *cpBuilder {
	return &cpBuilder{cp: &classloader.CPool{CpIndex: []classloader.CpEntry{{}}}}
}

func (b *cpBuilder) add(entry classloader.CpEntry) uint16 {
	idx := uint16(len(b.cp.CpIndex))
	b.cp.CpIndex = append(b.cp.CpIndex, entry)
	return idx
}

func (b *cpBuilder) utf8(s string) uint16 {
	slot := uint16(len(b.cp.Utf8Refs))
	b.cp.Utf8Refs = append(b.cp.Utf8Refs, s)
	return b.add(classloader.CpEntry{Type: classloader.UTF8, Slot: slot})
}

func (b *cpBuilder) class(name string) uint16 {
	nameIdx := b.utf8(name)
	slot := uint16(len(b.cp.ClassRefs))
	b.cp.ClassRefs = append(b.cp.ClassRefs, nameIdx)
	return b.add(classloader.CpEntry{Type: classloader.ClassRef, Slot: slot})
}

func (b *cpBuilder) nameAndType(name, desc string) uint16 {
	nameIdx := b.utf8(name)
	descIdx := b.utf8(desc)
	slot := uint16(len(b.cp.NameAndTypes))
	b.cp.NameAndTypes = append(b.cp.NameAndTypes, classloader.NameAndTypeEntry{NameIndex: nameIdx, DescIndex: descIdx})
	return b.add(classloader.CpEntry{Type: classloader.NameAndType, Slot: slot})
}

func (b *cpBuilder) methodRef(className, name, desc string) uint16 {
	classIdx := b.class(className)
	ntIdx := b.nameAndType(name, desc)
	slot := uint16(len(b.cp.MethodRefs))
	b.cp.MethodRefs = append(b.cp.MethodRefs, classloader.MethodRefEntry{ClassIndex: classIdx, NameAndType: ntIdx})
	return b.add(classloader.CpEntry{Type: classloader.MethodRef, Slot: slot})
}

func (b *cpBuilder) invokeDynamic(name, desc string) uint16 {
	ntIdx := b.nameAndType(name, desc)
	slot := uint16(len(b.cp.InvokeDynamics))
	b.cp.InvokeDynamics = append(b.cp.InvokeDynamics, classloader.InvokeDynamicEntry{NameAndType: ntIdx})
	return b.add(classloader.CpEntry{Type: classloader.InvokeDynamic, Slot: slot})
}

func newTestFrame(maxStack int, stack ...VType) *Frame {
	return &Frame{Stack: stack, Locals: make([]VType, 4), MaxStack: maxStack, MaxLocals: 4}
}

func cpIndexBytes(idx uint16) (byte, byte) {
	return byte(idx >> 8), byte(idx)
}

// Boundary scenario 1: newarray of int on a frame holding the element
// count leaves a single-element array on the stack.
func TestStepVerifyNewarrayInt(t *testing.T) {
	code := []byte{opcodes.NEWARRAY, 10 /* T_INT */, opcodes.RETURN}
	frame := newTestFrame(8, VInt)

	_, err := stepVerify(0, opcodes.NEWARRAY, code, newCPBuilder().cp, frame, newFakeContext(), true, "Test")
	require.NoError(t, err)
	assert.Equal(t, []VType{VArray(VInt)}, frame.Stack)
}

// Boundary scenario 2: newarray requires an int count; a float on top
// of stack is rejected.
func TestStepVerifyNewarrayRejectsNonInt(t *testing.T) {
	code := []byte{opcodes.NEWARRAY, 10, opcodes.RETURN}
	frame := newTestFrame(8, VFloat)

	_, err := stepVerify(0, opcodes.NEWARRAY, code, newCPBuilder().cp, frame, newFakeContext(), true, "Test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected int")
}

// Boundary scenario 3: new pushes an Uninitialized tagged with its own
// bytecode offset.
func TestStepVerifyNewPushesUninitializedAtOffset(t *testing.T) {
	b := newCPBuilder()
	classIdx := b.class("java/lang/Object")

	pc := 42
	code := make([]byte, pc+3)
	code[pc] = opcodes.NEW
	code[pc+1], code[pc+2] = cpIndexBytes(classIdx)

	frame := newTestFrame(8)
	_, err := stepVerify(pc, opcodes.NEW, code, b.cp, frame, newFakeContext(), true, "Test")
	require.NoError(t, err)
	assert.Equal(t, []VType{VUninitialized(pc)}, frame.Stack)
}

// Boundary scenario 4: invokespecial <init> on a matching Uninitialized
// receiver empties the stack and substitutes the tag everywhere in the
// frame, including locals.
func TestStepVerifyInvokespecialInitInitializesObject(t *testing.T) {
	b := newCPBuilder()
	methodIdx := b.methodRef("Test", "<init>", "(I)V")

	code := []byte{opcodes.INVOKESPECIAL, 0, 0, opcodes.RETURN}
	code[1], code[2] = cpIndexBytes(methodIdx)

	frame := newTestFrame(8, VUninitialized(0), VInt)
	frame.Locals[0] = VUninitialized(0)

	_, err := stepVerify(0, opcodes.INVOKESPECIAL, code, b.cp, frame, newFakeContext(), true, "Test")
	require.NoError(t, err)
	assert.Empty(t, frame.Stack)
	assert.Equal(t, VObject("Test"), frame.Locals[0])
}

// Boundary scenario 5: invokespecial <init> on an already-initialized
// receiver is rejected.
func TestStepVerifyInvokespecialInitRejectsInitializedReceiver(t *testing.T) {
	b := newCPBuilder()
	methodIdx := b.methodRef("java/lang/Object", "<init>", "()V")

	code := []byte{opcodes.INVOKESPECIAL, 0, 0, opcodes.RETURN}
	code[1], code[2] = cpIndexBytes(methodIdx)

	frame := newTestFrame(8, VObject("java/lang/Object"))

	_, err := stepVerify(0, opcodes.INVOKESPECIAL, code, b.cp, frame, newFakeContext(), true, "Test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uninitialized")
}

func TestVerifyDupX1(t *testing.T) {
	f := newTestFrame(8, VInt, VFloat)
	require.NoError(t, verifyDupX1(f))
	assert.Equal(t, []VType{VFloat, VInt, VFloat}, f.Stack)
}

func TestVerifyDupX2FormOneAllCategory1(t *testing.T) {
	f := newTestFrame(8, VInt, VFloat, VInt)
	require.NoError(t, verifyDupX2(f))
	assert.Equal(t, []VType{VInt, VInt, VFloat, VInt}, f.Stack)
}

func TestVerifyDupX2FormTwoCategory2OnTop(t *testing.T) {
	f := newTestFrame(8, VInt, VLong, VTop)
	require.NoError(t, verifyDupX2(f))
	assert.Equal(t, []VType{VLong, VTop, VInt, VLong, VTop}, f.Stack)
}

func TestVerifyDup2FormOneTwoCategory1(t *testing.T) {
	f := newTestFrame(8, VFloat, VInt)
	require.NoError(t, verifyDup2(f))
	assert.Equal(t, []VType{VFloat, VInt, VFloat, VInt}, f.Stack)
}

func TestVerifyDup2FormTwoSingleCategory2(t *testing.T) {
	f := newTestFrame(8, VLong, VTop)
	require.NoError(t, verifyDup2(f))
	assert.Equal(t, []VType{VLong, VTop, VLong, VTop}, f.Stack)
}

func TestVerifyDup2X1FormOneAllCategory1(t *testing.T) {
	f := newTestFrame(8, VFloat, VInt, VFloat)
	require.NoError(t, verifyDup2X1(f))
	assert.Equal(t, []VType{VInt, VFloat, VFloat, VInt, VFloat}, f.Stack)
}

func TestVerifyDup2X1FormTwoCategory2OnTop(t *testing.T) {
	f := newTestFrame(8, VInt, VLong, VTop)
	require.NoError(t, verifyDup2X1(f))
	assert.Equal(t, []VType{VLong, VTop, VInt, VLong, VTop}, f.Stack)
}

// TestStepVerifyDup2X2FormFourTwoCategory2s exercises boundary scenario
// 10 directly: dup2_x2 with two category-2 values on top.
func TestStepVerifyDup2X2FormFourTwoCategory2s(t *testing.T) {
	f := newTestFrame(8, VLong, VTop, VDouble, VTop)
	require.NoError(t, verifyDup2X2(f))
	assert.Equal(t, []VType{VDouble, VTop, VLong, VTop, VDouble, VTop}, f.Stack)
}

func TestVerifyDup2X2FormThreeCategory2Below(t *testing.T) {
	f := newTestFrame(8, VLong, VTop, VInt, VFloat)
	require.NoError(t, verifyDup2X2(f))
	assert.Equal(t, []VType{VInt, VFloat, VLong, VTop, VInt, VFloat}, f.Stack)
}

func TestVerifyDup2X2FormTwoCategory2OnTop(t *testing.T) {
	f := newTestFrame(8, VFloat, VInt, VLong, VTop)
	require.NoError(t, verifyDup2X2(f))
	assert.Equal(t, []VType{VLong, VTop, VFloat, VInt, VLong, VTop}, f.Stack)
}

func TestVerifyDup2X2FormOneAllCategory1(t *testing.T) {
	f := newTestFrame(8, VInt, VFloat, VInt, VFloat)
	require.NoError(t, verifyDup2X2(f))
	assert.Equal(t, []VType{VInt, VFloat, VInt, VFloat, VInt, VFloat}, f.Stack)
}

func TestStepVerifyDup2X1OpcodeWired(t *testing.T) {
	code := []byte{opcodes.DUP2_X1, opcodes.RETURN}
	f := newTestFrame(8, VFloat, VInt, VFloat)
	_, err := stepVerify(0, opcodes.DUP2_X1, code, newCPBuilder().cp, f, newFakeContext(), true, "Test")
	require.NoError(t, err)
	assert.Equal(t, []VType{VInt, VFloat, VFloat, VInt, VFloat}, f.Stack)
}

func TestStepVerifyDup2X2OpcodeWired(t *testing.T) {
	code := []byte{opcodes.DUP2_X2, opcodes.RETURN}
	f := newTestFrame(8, VLong, VTop, VDouble, VTop)
	_, err := stepVerify(0, opcodes.DUP2_X2, code, newCPBuilder().cp, f, newFakeContext(), true, "Test")
	require.NoError(t, err)
	assert.Equal(t, []VType{VDouble, VTop, VLong, VTop, VDouble, VTop}, f.Stack)
}

func TestStepVerifyInvokedynamicParsesDescriptorAndPopsNoReceiver(t *testing.T) {
	b := newCPBuilder()
	idx := b.invokeDynamic("run", "(I)I")

	code := []byte{opcodes.INVOKEDYNAMIC, 0, 0, 0, 0, opcodes.IRETURN}
	code[1], code[2] = cpIndexBytes(idx)

	frame := newTestFrame(8, VInt)
	_, err := stepVerify(0, opcodes.INVOKEDYNAMIC, code, b.cp, frame, newFakeContext(), true, "Test")
	require.NoError(t, err)
	assert.Equal(t, []VType{VInt}, frame.Stack)
}

func TestStepVerifyInvokedynamicVoidReturnLeavesStackEmpty(t *testing.T) {
	b := newCPBuilder()
	idx := b.invokeDynamic("accept", "(I)V")

	code := []byte{opcodes.INVOKEDYNAMIC, 0, 0, 0, 0, opcodes.RETURN}
	code[1], code[2] = cpIndexBytes(idx)

	frame := newTestFrame(8, VInt)
	_, err := stepVerify(0, opcodes.INVOKEDYNAMIC, code, b.cp, frame, newFakeContext(), true, "Test")
	require.NoError(t, err)
	assert.Empty(t, frame.Stack)
}

func TestStepVerifyInvokedynamicUnderflowsWithoutEnoughArgs(t *testing.T) {
	b := newCPBuilder()
	idx := b.invokeDynamic("run", "(II)I")

	code := []byte{opcodes.INVOKEDYNAMIC, 0, 0, 0, 0, opcodes.IRETURN}
	code[1], code[2] = cpIndexBytes(idx)

	frame := newTestFrame(8, VInt)
	_, err := stepVerify(0, opcodes.INVOKEDYNAMIC, code, b.cp, frame, newFakeContext(), true, "Test")
	assert.Error(t, err)
}
