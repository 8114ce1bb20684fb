/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classloader

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jacobin/opcodes"
)

func TestCheckCodeValidityNilCodePointer(t *testing.T) {
	cp := CPool{}
	err := CheckCodeValidity(nil, &cp, 5, AccessFlags{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "code segment is nil")
}

func TestCheckCodeValidityNilConstantPool(t *testing.T) {
	code := []byte{opcodes.NOP}
	err := CheckCodeValidity(&code, nil, 5, AccessFlags{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "constant pool is nil")
}

func TestCheckCodeValidityEmptyAbstractMethodOK(t *testing.T) {
	code := []byte{}
	cp := CPool{}
	err := CheckCodeValidity(&code, &cp, 0, AccessFlags{ClassIsAbstract: true})
	assert.NoError(t, err)
}

func TestCheckCodeValidityEmptyConcreteMethodFails(t *testing.T) {
	code := []byte{}
	cp := CPool{}
	err := CheckCodeValidity(&code, &cp, 0, AccessFlags{})
	assert.Error(t, err)
}

func TestCheckCodeValiditySimpleMethod(t *testing.T) {
	code := []byte{opcodes.ICONST_1, opcodes.IRETURN}
	cp := CPool{}
	err := CheckCodeValidity(&code, &cp, 1, AccessFlags{})
	assert.NoError(t, err)
}

func TestCheckCodeValidityBipushValid(t *testing.T) {
	code := []byte{opcodes.BIPUSH, 0x42, opcodes.IRETURN}
	cp := CPool{}
	err := CheckCodeValidity(&code, &cp, 1, AccessFlags{})
	assert.NoError(t, err)
}

func TestCheckCodeValidityBipushTruncated(t *testing.T) {
	code := []byte{opcodes.BIPUSH}
	cp := CPool{}
	err := CheckCodeValidity(&code, &cp, 1, AccessFlags{})
	assert.Error(t, err)
}

func TestCheckCodeValidityUnknownOpcode(t *testing.T) {
	code := []byte{0xFE}
	cp := CPool{}
	err := CheckCodeValidity(&code, &cp, 1, AccessFlags{})
	assert.Error(t, err)
}

func TestCheckCodeValidityInvokeinterfaceFourBytes(t *testing.T) {
	code := []byte{opcodes.INVOKEINTERFACE, 0x00, 0x01, 0x01, 0x00, opcodes.RETURN}
	cp := CPool{}
	err := CheckCodeValidity(&code, &cp, 2, AccessFlags{})
	assert.NoError(t, err)
}

func TestCheckCodeValidityTableswitch(t *testing.T) {
	code := make([]byte, 0, 32)
	code = append(code, opcodes.ICONST_0, opcodes.TABLESWITCH)
	for len(code)%4 != 0 {
		code = append(code, 0)
	}
	code = append(code, 0, 0, 0, 10) // default offset
	code = append(code, 0, 0, 0, 0)  // low = 0
	code = append(code, 0, 0, 0, 1)  // high = 1
	code = append(code, 0, 0, 0, 0)  // entry 0
	code = append(code, 0, 0, 0, 0)  // entry 1
	code = append(code, opcodes.RETURN)
	cp := CPool{}
	err := CheckCodeValidity(&code, &cp, 1, AccessFlags{})
	assert.NoError(t, err)
}

func TestCheckCodeValidityWideIinc(t *testing.T) {
	code := []byte{opcodes.WIDE, opcodes.IINC, 0x00, 0x01, 0x00, 0x02, opcodes.RETURN}
	cp := CPool{}
	err := CheckCodeValidity(&code, &cp, 1, AccessFlags{})
	assert.NoError(t, err)
}
