package domain

// Zero overwrites every given buffer with zeros so key material and plaintext do not
// linger in memory after use. Nil buffers are skipped.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		clear(b)
	}
}
