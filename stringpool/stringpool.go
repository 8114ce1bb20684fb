/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2022-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package stringpool interns class and string-constant names so the
// rest of the VM can pass around a uint32 index instead of repeatedly
// comparing strings. Mirrors jacobin's jacobin/stringPool package.
package stringpool

import (
	"sync"

	"jacobin/types"
)

type pool struct {
	mu      sync.RWMutex
	strings []string
	index   map[string]uint32
}

var sp = newPool()

func newPool() *pool {
	p := &pool{
		strings: make([]string, 0, 256),
		index:   make(map[string]uint32),
	}
	// index 0 is reserved/invalid; index 1 is the well-known
	// java/lang/Object entry per types.ObjectPoolStringIndex.
	p.strings = append(p.strings, "")
	p.intern("java/lang/Object")
	return p
}

// Reset clears the pool. Used by tests that need a clean pool between
// cases.
func Reset() {
	sp = newPool()
}

func (p *pool) intern(s string) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx, ok := p.index[s]; ok {
		return idx
	}
	idx := uint32(len(p.strings))
	p.strings = append(p.strings, s)
	p.index[s] = idx
	return idx
}

// GetStringIndex interns s (if not already present) and returns its
// index.
func GetStringIndex(s string) uint32 {
	return sp.intern(s)
}

// GetStringPointer returns a pointer to the interned string at index,
// or a pointer to "" if the index is invalid. Matches the teacher's
// pointer-returning signature used throughout classloader.go.
func GetStringPointer(index uint32) *string {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	if index == types.InvalidStringIndex || int(index) >= len(sp.strings) {
		empty := ""
		return &empty
	}
	return &sp.strings[index]
}

// GetStringVal returns the interned string at index directly ("" if
// invalid).
func GetStringVal(index uint32) string {
	return *GetStringPointer(index)
}

// Size returns the number of interned entries, for diagnostics/tests.
func Size() int {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return len(sp.strings)
}
