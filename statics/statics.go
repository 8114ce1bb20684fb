/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package statics holds static (per-class) field storage, keyed by
// "className.fieldName", mirroring jacobin's jacobin/statics package.
package statics

import "sync"

type Static struct {
	Type  string // field descriptor, e.g. "I", "Ljava/lang/String;"
	Value interface{}
}

var (
	mu    sync.RWMutex
	table = make(map[string]Static)
)

func key(className, fieldName string) string { return className + "." + fieldName }

// AddStatic adds or overwrites a static field's value.
func AddStatic(className, fieldName, fieldType string, value interface{}) {
	mu.Lock()
	defer mu.Unlock()
	table[key(className, fieldName)] = Static{Type: fieldType, Value: value}
}

// GetStaticValue fetches a static field's value and whether it existed.
func GetStaticValue(className, fieldName string) (interface{}, bool) {
	mu.RLock()
	defer mu.RUnlock()
	s, ok := table[key(className, fieldName)]
	if !ok {
		return nil, false
	}
	return s.Value, true
}

// Reset clears all static state. Used between tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	table = make(map[string]Static)
}
