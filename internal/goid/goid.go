// Package goid extracts the calling goroutine's runtime id. It exists for
// exactly one purpose: the loop's thread-identity gate (every public
// Reference operation must detect whether the caller is already running on
// the owning loop's goroutine, in which case it executes inline, or on a
// different one, in which case it is queued to the loop's inbox). Go has no
// public API for this, so runtime.Stack is the standard, if unglamorous, way
// to recover it.
package goid

import (
	"bytes"
	"runtime"
	"strconv"
)

// Get returns the current goroutine's id. It is used only for equality
// comparisons against a previously captured id — never displayed, never
// persisted across process restarts.
func Get() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	// Format: "goroutine 123 [running]:\n..."
	const prefix = "goroutine "
	buf = bytes.TrimPrefix(buf, []byte(prefix))
	idx := bytes.IndexByte(buf, ' ')
	if idx < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(buf[:idx]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
