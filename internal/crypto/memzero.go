package crypto

import "crypto/subtle"

// Wipe overwrites b with zeros. This is best-effort; the runtime may have
// copied the data elsewhere already.
func Wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	zero := make([]byte, len(b))
	subtle.ConstantTimeCopy(1, b, zero)
}
