// Package testrand makes names that don't collide between test runs sharing a broker
// or a temp directory.
package testrand

import (
	"encoding/hex"
	"math/rand"
)

// Hex returns n random hex characters. Odd n still only uses hex characters but
// does not decode.
func Hex(n int) string {
	b := make([]byte, n/2+1)
	//#nosec:G404 // this is just for test names
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)[:n]
}

// Name joins prefix and 8 random hex characters with a dot, like "events.3fa2c01b".
func Name(prefix string) string {
	return prefix + "." + Hex(8)
}
