//go:build debug

// Package check holds invariant assertions that panic in debug builds and
// compile to nothing otherwise.
package check

import "fmt"

func Assert(cond bool, msg string) {
	if !cond {
		panic("cfrestart: invariant violated: " + msg)
	}
}

func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic("cfrestart: invariant violated: " + fmt.Sprintf(format, args...))
	}
}
