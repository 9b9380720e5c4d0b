package lobby

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// newCode returns a crypto-random code of n characters from alphabet.
func newCode(n int) (string, error) {
	size := big.NewInt(int64(len(alphabet)))

	out := make([]byte, n)
	for i := range out {
		r, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate lobby code: %w", err)
		}
		out[i] = alphabet[r.Int64()]
	}

	return string(out), nil
}
