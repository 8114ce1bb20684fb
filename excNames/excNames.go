/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2023-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package excNames holds the closed set of exception/error kinds the
// core can raise, as an int enum rather than the fully qualified Java
// class name, so that callers switch on it cheaply. JVMException has
// the fully qualified name lookup for when one is needed (error
// messages, Throwable construction).
package excNames

type ExceptionType int

const (
	Unknown ExceptionType = iota

	// verification- and classfile-time errors (§7)
	VerifyError
	ClassFormatError
	UnsatisfiedLinkError
	InternalError

	// runtime exceptions/errors (§7)
	NullPointerException
	ArithmeticException
	ClassCastException
	ArrayIndexOutOfBoundsException
	NegativeArraySizeException
	ArrayStoreException
	IllegalAccessError
	InaccessibleObjectException

	// ordinary runtime exceptions the intrinsics and classloader
	// throw in the course of normal operation
	ClassNotFoundException
	IllegalArgumentException
	IllegalStateException
	IndexOutOfBoundsException
	IOException
	NumberFormatException
	OutOfMemoryError
	StringIndexOutOfBoundsException
	UnsupportedOperationException
	InterruptedException
	ClassNotLoadedException
	PatternSyntaxException
)

// JVMException maps an ExceptionType to its fully qualified internal
// class name, as it would appear in a constant pool class reference.
var JVMException = map[ExceptionType]string{
	VerifyError:                      "java/lang/VerifyError",
	ClassFormatError:                 "java/lang/ClassFormatError",
	UnsatisfiedLinkError:             "java/lang/UnsatisfiedLinkError",
	InternalError:                    "java/lang/InternalError",
	NullPointerException:             "java/lang/NullPointerException",
	ArithmeticException:              "java/lang/ArithmeticException",
	ClassCastException:               "java/lang/ClassCastException",
	ArrayIndexOutOfBoundsException:   "java/lang/ArrayIndexOutOfBoundsException",
	NegativeArraySizeException:       "java/lang/NegativeArraySizeException",
	ArrayStoreException:              "java/lang/ArrayStoreException",
	IllegalAccessError:               "java/lang/IllegalAccessError",
	InaccessibleObjectException:      "java/lang/reflect/InaccessibleObjectException",
	ClassNotFoundException:           "java/lang/ClassNotFoundException",
	IllegalArgumentException:         "java/lang/IllegalArgumentException",
	IllegalStateException:            "java/lang/IllegalStateException",
	IndexOutOfBoundsException:        "java/lang/IndexOutOfBoundsException",
	IOException:                      "java/io/IOException",
	NumberFormatException:            "java/lang/NumberFormatException",
	OutOfMemoryError:                 "java/lang/OutOfMemoryError",
	StringIndexOutOfBoundsException:  "java/lang/StringIndexOutOfBoundsException",
	UnsupportedOperationException:    "java/lang/UnsupportedOperationException",
	InterruptedException:             "java/lang/InterruptedException",
	ClassNotLoadedException:          "java/lang/ClassNotLoadedException",
	PatternSyntaxException:           "java/util/regex/PatternSyntaxException",
}

func (e ExceptionType) String() string {
	if name, ok := JVMException[e]; ok {
		return name
	}
	return "java/lang/Exception"
}
