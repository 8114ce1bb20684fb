/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2023-5 by  the Jacobin authors. Consult jacobin.org.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0) All rights reserved.
 */

package gfunction

// jdk/jfr/internal/JVM stubs: §1's "Full JFR event emission (stubs
// accepted)" Non-goal means these intrinsics must exist and return
// well-typed values rather than raising UnsatisfiedLinkError, since
// java.lang.management and jdk.jfr classes call them unconditionally
// during class initialization even when no recording is active.
// Grounded on original_source/ristretto_vm's jdk/jfr/internal/jvm.rs
// (§ SUPPLEMENTED FEATURES): every method it lists is registered here
// as a no-op/zero-value stub, never as a trapFunction, since a real
// VM answers these even with JFR disabled.

func Load_Jdk_Jfr_Internal_JVM() {
	MethodSignatures["jdk/jfr/internal/JVM.registerNatives()V"] =
		GMeth{ParamSlots: 0, GFunction: justReturn}

	MethodSignatures["jdk/jfr/internal/JVM.isRecording()Z"] =
		GMeth{ParamSlots: 0, GFunction: jfrFalse}
	MethodSignatures["jdk/jfr/internal/JVM.isAvailable()Z"] =
		GMeth{ParamSlots: 0, GFunction: jfrFalse}
	MethodSignatures["jdk/jfr/internal/JVM.isDisabled()Z"] =
		GMeth{ParamSlots: 0, GFunction: jfrTrue}

	MethodSignatures["jdk/jfr/internal/JVM.getClassId(Ljava/lang/Class;)J"] =
		GMeth{ParamSlots: 1, GFunction: jfrZeroLong}
	MethodSignatures["jdk/jfr/internal/JVM.getStackTraceId(I)J"] =
		GMeth{ParamSlots: 1, GFunction: jfrZeroLong}
	MethodSignatures["jdk/jfr/internal/JVM.getTypeId(Ljava/lang/Class;)J"] =
		GMeth{ParamSlots: 1, GFunction: jfrZeroLong}
	MethodSignatures["jdk/jfr/internal/JVM.counterTime()J"] =
		GMeth{ParamSlots: 0, GFunction: jfrZeroLong}
	MethodSignatures["jdk/jfr/internal/JVM.getThreadId(Ljava/lang/Thread;)J"] =
		GMeth{ParamSlots: 1, GFunction: jfrZeroLong}

	MethodSignatures["jdk/jfr/internal/JVM.beginRecording()V"] =
		GMeth{ParamSlots: 0, GFunction: justReturn}
	MethodSignatures["jdk/jfr/internal/JVM.endRecording()V"] =
		GMeth{ParamSlots: 0, GFunction: justReturn}
	MethodSignatures["jdk/jfr/internal/JVM.emitEvent(JJJ)Z"] =
		GMeth{ParamSlots: 3, GFunction: jfrFalse}
}

func jfrTrue(params []interface{}) interface{}     { return int32(1) }
func jfrFalse(params []interface{}) interface{}    { return int32(0) }
func jfrZeroLong(params []interface{}) interface{} { return int64(0) }
