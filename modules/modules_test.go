/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanReadReflexiveAndJavaBase(t *testing.T) {
	s := New()
	assert.True(t, s.CanRead("app", "app"))
	assert.True(t, s.CanRead("app", JavaBase))
	assert.False(t, s.CanRead("app", "other"))
}

// TestNotReadableDenial is boundary scenario #8: module A has no read
// edge to module B, so any access is denied for lack of readability
// before exports are even consulted.
func TestNotReadableDenial(t *testing.T) {
	s := New()
	s.AddExportToAll("b", "b/pkg")

	result := s.CheckAccess("a", "b", "b/pkg/Thing")
	require.Equal(t, NotReadable, result)
	require.False(t, result.IsAllowed())

	msg := IllegalAccessMessage("a", "b", "b/pkg/Thing", result)
	assert.Contains(t, msg, "module a")
	assert.Contains(t, msg, "does not read module b")
}

// TestNotExportedDenial is boundary scenario #9: A reads B, but B only
// exports the package to some other module C, not to A.
func TestNotExportedDenial(t *testing.T) {
	s := New()
	s.AddRead("a", "b")
	s.AddExport("b", "b/pkg", "c")

	result := s.CheckAccess("a", "b", "b/pkg/Thing")
	require.Equal(t, NotExported, result)

	msg := IllegalAccessMessage("a", "b", "b/pkg/Thing", result)
	assert.Contains(t, msg, "does not export b/pkg to module a")
}

func TestExportedToRequesterAllowed(t *testing.T) {
	s := New()
	s.AddRead("a", "b")
	s.AddExport("b", "b/pkg", "a")

	require.Equal(t, Allowed, s.CheckAccess("a", "b", "b/pkg/Thing"))
}

func TestExportToAllUnqualified(t *testing.T) {
	s := New()
	s.AddRead("a", "b")
	s.AddRead("z", "b")
	s.AddExportToAll("b", "b/pkg")

	require.Equal(t, Allowed, s.CheckAccess("a", "b", "b/pkg/Thing"))
	require.Equal(t, Allowed, s.CheckAccess("z", "b", "b/pkg/Thing"))
}

func TestSameModuleAlwaysAllowed(t *testing.T) {
	s := New()
	require.Equal(t, Allowed, s.CheckAccess("a", "a", "a/pkg/Thing"))
}

func TestUnnamedModuleRequiresExportToAllUnnamed(t *testing.T) {
	s := New()
	result := s.CheckAccess("", "b", "b/pkg/Thing")
	require.Equal(t, NotExported, result)

	s.AddExportToAllUnnamed("b", "b/pkg")
	require.Equal(t, Allowed, s.CheckAccess("", "b", "b/pkg/Thing"))
}

// TestAddExportIdempotent is invariant 7: adding the same export twice
// changes nothing observable.
func TestAddExportIdempotent(t *testing.T) {
	s := New()
	s.AddRead("a", "b")
	s.AddExport("b", "b/pkg", "a")
	s.AddExport("b", "b/pkg", "a")

	require.True(t, s.IsExported("b", "b/pkg", "a"))
	require.Equal(t, Allowed, s.CheckAccess("a", "b", "b/pkg/Thing"))
}

func TestReflectionAccessRequiresOpens(t *testing.T) {
	s := New()
	s.AddRead("a", "b")
	s.AddExport("b", "b/pkg", "a")

	// exported but not opened: reflective setAccessible(true) still denied
	result := s.CheckReflectionAccess("a", "b", "b/pkg/Thing")
	require.Equal(t, NotOpened, result)

	s.AddOpens("b", "b/pkg", "a")
	require.Equal(t, Allowed, s.CheckReflectionAccess("a", "b", "b/pkg/Thing"))
}

func TestOpenModuleOpensEverything(t *testing.T) {
	s := New()
	s.DefineModule(DefinedModule{Name: "b", IsOpen: true})
	s.AddRead("a", "b")

	require.Equal(t, Allowed, s.CheckReflectionAccess("a", "b", "b/pkg/Thing"))
}

func TestRequireAccessReturnsAccessError(t *testing.T) {
	s := New()
	err := s.RequireAccess("a", "b", "b/pkg/Thing")
	require.Error(t, err)

	var ae *AccessError
	require.ErrorAs(t, err, &ae)
	require.False(t, ae.Reflective)
}

func TestPackageOf(t *testing.T) {
	assert.Equal(t, "java/lang", PackageOf("java/lang/String"))
	assert.Equal(t, "", PackageOf("Thing"))
}
