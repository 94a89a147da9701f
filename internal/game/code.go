package game

import (
	"crypto/rand"
	"math/big"
)

// Game codes are 6 characters from an uppercase alphanumeric alphabet,
// short enough to type from a projector screen. The generator is
// stateless; uniqueness is the caller's job via the session store.
const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength   = 6
)

// NewCode returns a random game code.
func NewCode() string {
	buf := make([]byte, CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken
			panic(err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf)
}
