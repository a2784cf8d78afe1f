package crypto

import "runtime"

// Wipe overwrites b with zeros. Best effort only: the runtime may have
// already copied key material onto other stack frames.
//
//go:noinline
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}
