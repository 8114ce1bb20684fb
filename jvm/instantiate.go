/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package jvm

import (
	"jacobin/classloader"
	"jacobin/excNames"
	"jacobin/exceptions"
	"jacobin/object"
	"jacobin/trace"
)

// instantiateClass allocates a new instance of className: the class
// must already be registered in the method area (class-file parsing
// and loading are out of scope, §1). Every declared instance field is
// given its type's default zero value (§4.4's "default field values").
func instantiateClass(className string) (*object.Object, error) {
	k := classloader.MethAreaFetch(className)
	if k == nil {
		return nil, exceptions.New(excNames.ClassNotFoundException, className)
	}

	obj := object.NewObjectOfClass(className)

	for _, f := range k.Data.Fields {
		if f.IsStatic {
			continue
		}
		name, err := k.Data.CP.ResolveUTF8(f.Name)
		if err != nil {
			return nil, err
		}
		desc, err := k.Data.CP.ResolveUTF8(f.Desc)
		if err != nil {
			return nil, err
		}
		obj.FieldTable[name] = object.Field{Ftype: desc, Fvalue: defaultValueForDescriptor(desc)}
	}

	trace.Trace("instantiateClass: allocated " + className)
	return obj, nil
}

// defaultValueForDescriptor returns the JVM-mandated default value for
// a field of the given descriptor (§2.3/§2.4 of the JVM spec: numeric
// fields default to zero, references to null).
func defaultValueForDescriptor(desc string) interface{} {
	if len(desc) == 0 {
		return nil
	}
	switch desc[0] {
	case 'L', '[':
		return nil
	case 'D', 'F':
		return 0.0
	case 'J':
		return int64(0)
	default: // B, C, I, S, Z
		return int32(0)
	}
}
