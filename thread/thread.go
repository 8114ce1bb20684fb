/*
 * Jacobin VM - A Java virtual machine
 * Copyright (c) 2021-5 by the Jacobin authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package thread models a Java thread: its own call stack (frames are
// never shared across threads, §5), an interrupt flag, and the
// single-permit park/unpark primitive the Unsafe/LockSupport
// intrinsics rely on.
package thread

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"jacobin/frames"
)

// JavaThread is the per-thread state the interpreter and intrinsics
// operate against.
type JavaThread struct {
	ID        uuid.UUID
	Name      string
	Stack     frames.FrameStack
	interrupt atomic.Bool

	parkMu      sync.Mutex
	parkCond    *sync.Cond
	parkPermits int // 0 or 1; never stacks beyond one (§5)
}

// NewThread creates a new Java thread with an empty call stack.
func NewThread(name string) *JavaThread {
	t := &JavaThread{ID: uuid.New(), Name: name}
	t.parkCond = sync.NewCond(&t.parkMu)
	return t
}

// Interrupt sets the thread's interrupt flag. Observed by blocking
// intrinsics and Thread.sleep/Object.wait sites (§5); it does not stop
// bytecode execution mid-instruction.
func (t *JavaThread) Interrupt() {
	t.interrupt.Store(true)
	t.parkMu.Lock()
	t.parkCond.Broadcast()
	t.parkMu.Unlock()
}

func (t *JavaThread) Interrupted() bool { return t.interrupt.Load() }

func (t *JavaThread) ClearInterrupt() { t.interrupt.Store(false) }

// Unpark grants one park permit, waking a parked thread if one is
// waiting. Unparking a thread that isn't parked simply pre-loads the
// permit for its next Park call (§5: "one permit, consumed by park,
// produced by unpark, no stacking beyond one").
func (t *JavaThread) Unpark() {
	t.parkMu.Lock()
	t.parkPermits = 1
	t.parkCond.Broadcast()
	t.parkMu.Unlock()
}

// Park blocks until a permit is available (consuming it) or the
// thread is interrupted.
func (t *JavaThread) Park() {
	t.parkMu.Lock()
	defer t.parkMu.Unlock()
	for t.parkPermits == 0 && !t.interrupt.Load() {
		t.parkCond.Wait()
	}
	t.parkPermits = 0
}
