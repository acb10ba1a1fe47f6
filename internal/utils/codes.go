package utils

import "crypto/rand"

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RandomCode returns an n-character uppercase token suitable for humans to
// relay verbally: association codes and delivery confirmation codes both use
// it. Ambiguous characters (0/O, 1/I) are excluded from the alphabet.
func RandomCode(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform entropy source is
		// broken; fall back to a fixed marker rather than panic.
		for i := range buf {
			buf[i] = 'X'
		}
		return string(buf)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out)
}
