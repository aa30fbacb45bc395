package utils

import "strings"

// Assert panics with msg when cond does not hold. It guards invariants that
// only a programming error can break.
func Assert(cond bool, msg ...string) {
	if !cond {
		panic(strings.Join(msg, "\n"))
	}
}
