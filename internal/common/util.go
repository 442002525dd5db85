package common

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a new lexicographically sortable identifier. IDs minted in
// the same millisecond keep their generation order.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// MakeRandHexString returns size random bytes encoded as hex, so the result
// is twice as long as size.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray zeroes b. Used for passwords read from the terminal.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
