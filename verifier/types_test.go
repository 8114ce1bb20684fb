/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeContext answers ClassRelation from an explicit table, defaulting
// to UnknownRelation for any pair it wasn't told about.
type fakeContext struct {
	related map[[2]string]HierarchyAnswer
}

func newFakeContext() *fakeContext {
	return &fakeContext{related: map[[2]string]HierarchyAnswer{}}
}

func (c *fakeContext) relate(sub, super string, answer HierarchyAnswer) {
	c.related[[2]string{sub, super}] = answer
}

func (c *fakeContext) ClassRelation(sub, super string) HierarchyAnswer {
	if ans, ok := c.related[[2]string{sub, super}]; ok {
		return ans
	}
	return UnknownRelation
}

func TestIsAssignableToReflexivity(t *testing.T) {
	ctx := newFakeContext()
	for _, v := range []VType{VInt, VFloat, VLong, VDouble, VNull, VObject("java/lang/String"), VArray(VInt)} {
		ok, err := IsAssignableTo(v, v, ctx, true)
		assert.NoError(t, err)
		assert.Truef(t, ok, "%s should be assignable to itself", v)
	}
}

func TestIsAssignableToNullToAnyReference(t *testing.T) {
	ctx := newFakeContext()
	ok, err := IsAssignableTo(VNull, VObject("java/lang/String"), ctx, true)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsAssignableTo(VNull, VArray(VInt), ctx, true)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAssignableToNullToPrimitiveFails(t *testing.T) {
	ctx := newFakeContext()
	ok, err := IsAssignableTo(VNull, VInt, ctx, true)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAssignableToNumericRequiresSameKind(t *testing.T) {
	ctx := newFakeContext()
	ok, err := IsAssignableTo(VInt, VInt, ctx, true)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsAssignableTo(VInt, VFloat, ctx, true)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAssignableToArrayOfReferences(t *testing.T) {
	ctx := newFakeContext()
	ctx.relate("java/lang/String", "java/lang/Object", Related)
	ok, err := IsAssignableTo(VArray(VObject("java/lang/String")), VArray(VObject("java/lang/Object")), ctx, true)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAssignableToArrayOfPrimitivesRequiresEquality(t *testing.T) {
	ctx := newFakeContext()
	ok, err := IsAssignableTo(VArray(VInt), VArray(VFloat), ctx, true)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = IsAssignableTo(VArray(VInt), VArray(VInt), ctx, true)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAssignableToArrayWideningTargets(t *testing.T) {
	ctx := newFakeContext()
	for _, target := range []string{"java/lang/Object", "java/io/Serializable", "java/lang/Cloneable"} {
		ok, err := IsAssignableTo(VArray(VInt), VObject(target), ctx, true)
		assert.NoError(t, err)
		assert.Truef(t, ok, "array should widen to %s", target)
	}

	ok, err := IsAssignableTo(VArray(VInt), VObject("java/lang/String"), ctx, true)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAssignableToObjectHierarchy(t *testing.T) {
	ctx := newFakeContext()
	ctx.relate("Dog", "Animal", Related)
	ctx.relate("Dog", "Fish", NotRelated)

	ok, err := IsAssignableTo(VObject("Dog"), VObject("Animal"), ctx, true)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsAssignableTo(VObject("Dog"), VObject("Fish"), ctx, true)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAssignableToObjectAlwaysAssignableToObjectClass(t *testing.T) {
	ctx := newFakeContext()
	ok, err := IsAssignableTo(VObject("anything/At/All"), VObject(ObjectClass), ctx, true)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAssignableToUnknownRelationStrictFailsLenientSucceeds(t *testing.T) {
	ctx := newFakeContext()

	_, err := IsAssignableTo(VObject("Dog"), VObject("Animal"), ctx, true)
	assert.Error(t, err)

	ok, err := IsAssignableTo(VObject("Dog"), VObject("Animal"), ctx, false)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAssignableToUninitializedNeverAssignableExceptToItself(t *testing.T) {
	ctx := newFakeContext()
	ok, err := IsAssignableTo(VUninitialized(5), VUninitialized(5), ctx, true)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsAssignableTo(VUninitialized(5), VObject("Test"), ctx, true)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = IsAssignableTo(VUninitializedThis, VObject("Test"), ctx, true)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMergeTypesIdenticalTypes(t *testing.T) {
	ctx := newFakeContext()
	assert.Equal(t, VInt, MergeTypes(VInt, VInt, ctx))
}

func TestMergeTypesNullWithReference(t *testing.T) {
	ctx := newFakeContext()
	obj := VObject("java/lang/String")
	assert.Equal(t, obj, MergeTypes(VNull, obj, ctx))
	assert.Equal(t, obj, MergeTypes(obj, VNull, ctx))
}

func TestMergeTypesObjectsPickCommonAncestor(t *testing.T) {
	ctx := newFakeContext()
	ctx.relate("Dog", "Animal", Related)
	merged := MergeTypes(VObject("Dog"), VObject("Animal"), ctx)
	assert.Equal(t, VObject("Animal"), merged)
}

func TestMergeTypesUnrelatedObjectsFallToObjectClass(t *testing.T) {
	ctx := newFakeContext()
	ctx.relate("Dog", "Fish", NotRelated)
	ctx.relate("Fish", "Dog", NotRelated)
	merged := MergeTypes(VObject("Dog"), VObject("Fish"), ctx)
	assert.Equal(t, VObject(ObjectClass), merged)
}

func TestMergeTypesMismatchedKindsProduceTop(t *testing.T) {
	ctx := newFakeContext()
	assert.Equal(t, VTop, MergeTypes(VInt, VFloat, ctx))
	assert.Equal(t, VTop, MergeTypes(VUninitialized(1), VUninitialized(2), ctx))
}
