//go:build !wasm

package runtime

import (
	"github.com/petermattis/goid"
)

// GoroutineID returns the id of the calling goroutine.
// Realm affinity and tracking contexts are keyed by it.
func GoroutineID() int64 {
	return goid.Get()
}
