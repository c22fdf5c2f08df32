//go:build wasm

package runtime

// GoroutineID always reports the same id on wasm, where everything
// runs on a single event loop anyway.
func GoroutineID() int64 {
	return 1
}
