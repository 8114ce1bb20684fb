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
)

func TestFramePushCategory2LeavesTrailingTop(t *testing.T) {
	f := NewFrame(4, 2)
	require.NoError(t, f.Push(VLong))
	assert.Equal(t, []VType{VLong, VTop}, f.Stack)
}

func TestFramePopCollapsesCategory2(t *testing.T) {
	f := NewFrame(4, 2)
	require.NoError(t, f.Push(VDouble))
	v, err := f.Pop()
	require.NoError(t, err)
	assert.Equal(t, VDouble, v)
	assert.Empty(t, f.Stack)
}

func TestFramePopCategory1RejectsCategory2(t *testing.T) {
	f := NewFrame(4, 2)
	require.NoError(t, f.Push(VLong))
	_, err := f.PopCategory1()
	assert.Error(t, err)
}

func TestFramePeekAtSeesRawTopSlot(t *testing.T) {
	f := NewFrame(4, 2)
	require.NoError(t, f.Push(VLong))
	top, err := f.PeekAt(0)
	require.NoError(t, err)
	assert.Equal(t, VTop, top)
	below, err := f.PeekAt(1)
	require.NoError(t, err)
	assert.Equal(t, VLong, below)
}

func TestFrameSetLocalCategory2OccupiesTwoSlots(t *testing.T) {
	f := NewFrame(4, 3)
	require.NoError(t, f.SetLocal(0, VDouble))
	assert.Equal(t, VDouble, f.Locals[0])
	assert.Equal(t, VTop, f.Locals[1])
}

// TestFrameInitializeObjectSubstitutesEverywhere exercises boundary
// scenario 4: a successful <init> call replaces every occurrence of
// the matching Uninitialized tag, on the stack and in locals alike.
func TestFrameInitializeObjectSubstitutesEverywhere(t *testing.T) {
	f := NewFrame(4, 2)
	f.Stack = []VType{VUninitialized(0)}
	f.Locals[0] = VUninitialized(0)
	f.Locals[1] = VInt

	f.InitializeObject(VUninitialized(0), VObject("Test"))

	assert.Equal(t, []VType{VObject("Test")}, f.Stack)
	assert.Equal(t, VObject("Test"), f.Locals[0])
	assert.Equal(t, VInt, f.Locals[1])
}

func TestFrameInitializeObjectLeavesOtherOffsetsAlone(t *testing.T) {
	f := NewFrame(4, 1)
	f.Stack = []VType{VUninitialized(0), VUninitialized(7)}

	f.InitializeObject(VUninitialized(0), VObject("Test"))

	assert.Equal(t, []VType{VObject("Test"), VUninitialized(7)}, f.Stack)
}

func TestFrameMergeWithJoinsMismatchedObjects(t *testing.T) {
	ctx := newFakeContext()
	ctx.relate("Dog", "Animal", Related)

	a := NewFrame(4, 1)
	require.NoError(t, a.Push(VObject("Dog")))
	b := NewFrame(4, 1)
	require.NoError(t, b.Push(VObject("Animal")))

	merged, ok := a.MergeWith(b, ctx)
	require.True(t, ok)
	assert.Equal(t, VObject("Animal"), merged.Stack[0])
}

func TestFrameMergeWithDifferentDepthsFails(t *testing.T) {
	a := NewFrame(4, 1)
	require.NoError(t, a.Push(VInt))
	b := NewFrame(4, 1)

	_, ok := a.MergeWith(b, newFakeContext())
	assert.False(t, ok)
}

func TestFrameEqualComparesStackAndLocals(t *testing.T) {
	a := NewFrame(4, 1)
	require.NoError(t, a.Push(VInt))
	b := NewFrame(4, 1)
	require.NoError(t, b.Push(VInt))
	assert.True(t, a.Equal(b))

	require.NoError(t, b.Push(VInt))
	assert.False(t, a.Equal(b))
}
