package booking

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet deliberately drops 0/O, 1/I and other glyphs that are easy
// to misread over the phone.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// newConfirmationCode generates a human-shareable confirmation code such as
// "TKT-7MK2QF9W".  Eight characters over a 31-symbol alphabet give enough
// entropy that collisions are retried rather than prevented.
func newConfirmationCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("confirmation code: %w", err)
	}
	out := make([]byte, 8)
	for i, v := range b {
		out[i] = codeAlphabet[int(v)%len(codeAlphabet)]
	}
	return "TKT-" + string(out), nil
}
