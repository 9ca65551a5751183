package capture

import (
	"crypto/sha256"
	"encoding/hex"
)

func truncateBytes(in []byte, maxBytes int) ([]byte, bool, int, string) {
	if maxBytes <= 0 || len(in) <= maxBytes {
		return in, false, len(in), ""
	}
	sum := sha256.Sum256(in)
	return in[:maxBytes], true, len(in), hex.EncodeToString(sum[:])
}

func truncateStringBytes(in string, maxBytes int) (string, bool, int, string) {
	out, truncated, size, hash := truncateBytes([]byte(in), maxBytes)
	return string(out), truncated, size, hash
}
