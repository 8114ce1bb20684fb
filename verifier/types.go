/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package verifier proves, once per method and before first execution,
// that stack/local states merge consistently across control-flow joins
// and that every instruction's typing precondition holds (§4.1-4.3,
// §4.7). Grounded on the teacher's general approach to class-loading
// validation (classloader/formatcheck.go, codecheck.go do the
// structural half of this job) generalized to full dataflow typing,
// since the retrieval pack carries no verifier of its own — no jacobin
// snapshot in the pack implements JVMS §4.10's type checker.
package verifier

import "fmt"

// Kind is the tag of a VerificationType's variant.
type Kind int

const (
	Top Kind = iota
	Integer
	Float
	Long
	Double
	Null
	ObjectKind
	ArrayKind
	UninitializedKind
	UninitializedThisKind
)

// VType is a verification type (§3 "Verification type (tagged
// variant)"). Only the fields relevant to Kind are meaningful: Class
// for ObjectKind, Component for ArrayKind, Offset for UninitializedKind.
type VType struct {
	Kind      Kind
	Class     string
	Component *VType
	Offset    int
}

func (v VType) String() string {
	switch v.Kind {
	case Top:
		return "top"
	case Integer:
		return "int"
	case Float:
		return "float"
	case Long:
		return "long"
	case Double:
		return "double"
	case Null:
		return "null"
	case ObjectKind:
		return "object(" + v.Class + ")"
	case ArrayKind:
		return "array(" + v.Component.String() + ")"
	case UninitializedKind:
		return fmt.Sprintf("uninitialized(%d)", v.Offset)
	case UninitializedThisKind:
		return "uninitializedThis"
	default:
		return "?"
	}
}

func (v VType) Equal(o VType) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ObjectKind:
		return v.Class == o.Class
	case ArrayKind:
		return v.Component.Equal(*o.Component)
	case UninitializedKind:
		return v.Offset == o.Offset
	default:
		return true
	}
}

// Category reports whether v occupies one stack/local slot or two
// (§3 "Category-2 push produces two stack slots").
func (v VType) Category() int {
	if v.Kind == Long || v.Kind == Double {
		return 2
	}
	return 1
}

func (v VType) IsReference() bool {
	return v.Kind == Null || v.Kind == ObjectKind || v.Kind == ArrayKind ||
		v.Kind == UninitializedKind || v.Kind == UninitializedThisKind
}

var (
	VTop               = VType{Kind: Top}
	VInt               = VType{Kind: Integer}
	VFloat             = VType{Kind: Float}
	VLong              = VType{Kind: Long}
	VDouble            = VType{Kind: Double}
	VNull              = VType{Kind: Null}
	VUninitializedThis = VType{Kind: UninitializedThisKind}
)

func VObject(className string) VType { return VType{Kind: ObjectKind, Class: className} }
func VArray(component VType) VType   { return VType{Kind: ArrayKind, Component: &component} }
func VUninitialized(offset int) VType {
	return VType{Kind: UninitializedKind, Offset: offset}
}

const ObjectClass = "java/lang/Object"

var arrayWideningTargets = map[string]bool{
	"java/lang/Object":     true,
	"java/io/Serializable": true,
	"java/lang/Cloneable":  true,
}

// HierarchyAnswer is the context's answer to "does a path exist from S
// to T in the class hierarchy" (§4.1 rule 6): the verifier itself
// never walks a class hierarchy, it only asks.
type HierarchyAnswer int

const (
	NotRelated HierarchyAnswer = iota
	Related
	UnknownRelation
)

// Context abstracts the class-hierarchy lookup so the verifier can run
// (and be tested) without a full class loader (§4.1 closing sentence).
type Context interface {
	// ClassRelation reports whether sub is assignable to super, i.e.
	// whether a path sub -> ... -> super exists via extends/implements.
	ClassRelation(sub, super string) HierarchyAnswer
}

// IsAssignableTo implements §4.1's seven ordered rules.
func IsAssignableTo(from, to VType, ctx Context, strict bool) (bool, error) {
	// 1. Equal types: allowed.
	if from.Equal(to) {
		return true, nil
	}

	// 7. Uninitialized*: assignable only to itself (rule 1 already
	// covered equality; anything else involving one is false, not an
	// error — specific instructions enforce their own legality).
	if from.Kind == UninitializedKind || from.Kind == UninitializedThisKind ||
		to.Kind == UninitializedKind || to.Kind == UninitializedThisKind {
		return false, nil
	}

	// 2. from = Null, to is a reference type.
	if from.Kind == Null {
		if to.IsReference() {
			return true, nil
		}
		return false, nil
	}

	// 3. Numeric equality by category/kind only.
	if isNumeric(from.Kind) || isNumeric(to.Kind) {
		return from.Kind == to.Kind, nil
	}

	// 4. Array-to-array.
	if from.Kind == ArrayKind && to.Kind == ArrayKind {
		a, b := *from.Component, *to.Component
		if a.IsReference() && b.IsReference() {
			return IsAssignableTo(a, b, ctx, strict)
		}
		return a.Equal(b), nil
	}

	// 5. Array-to-Object: only the three widening targets.
	if from.Kind == ArrayKind && to.Kind == ObjectKind {
		return arrayWideningTargets[to.Class], nil
	}

	// 6. Object-to-Object: ask the hierarchy context.
	if from.Kind == ObjectKind && to.Kind == ObjectKind {
		if to.Class == ObjectClass {
			return true, nil
		}
		switch ctx.ClassRelation(from.Class, to.Class) {
		case Related:
			return true, nil
		case NotRelated:
			return false, nil
		default: // UnknownRelation
			if strict {
				return false, fmt.Errorf("cannot determine assignability of %s to %s", from.Class, to.Class)
			}
			return true, nil
		}
	}

	return false, nil
}

func isNumeric(k Kind) bool {
	return k == Integer || k == Float || k == Long || k == Double
}

// MergeTypes computes the least upper bound of two verification types
// at a control-flow join (§4.2 "Control flow"). A mismatch that isn't
// resolvable produces Top rather than an error; the driver decides
// whether Top in a given slot is fatal.
func MergeTypes(a, b VType, ctx Context) VType {
	if a.Equal(b) {
		return a
	}
	if a.Kind == Null && b.IsReference() {
		return b
	}
	if b.Kind == Null && a.IsReference() {
		return a
	}
	if a.Kind == UninitializedKind || a.Kind == UninitializedThisKind ||
		b.Kind == UninitializedKind || b.Kind == UninitializedThisKind {
		// "for Uninitialized(o) vs Uninitialized(o) only the identical
		// tag survives" — already handled by a.Equal(b) above, so
		// reaching here means a mismatch.
		return VTop
	}
	// Assignability is asked in strict mode so that only a known
	// subtype relation picks one side; an unknown relation falls
	// through to java/lang/Object.
	if a.Kind == ObjectKind && b.Kind == ObjectKind {
		if ok, _ := IsAssignableTo(b, a, ctx, true); ok {
			return a
		}
		if ok, _ := IsAssignableTo(a, b, ctx, true); ok {
			return b
		}
		return VObject(ObjectClass)
	}
	if a.Kind == ArrayKind && b.Kind == ArrayKind {
		if ok, _ := IsAssignableTo(b, a, ctx, true); ok {
			return a
		}
		if ok, _ := IsAssignableTo(a, b, ctx, true); ok {
			return b
		}
		return VObject(ObjectClass)
	}
	return VTop
}
