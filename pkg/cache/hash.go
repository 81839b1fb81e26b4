package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// keyVersion is mixed into every derived key. Bump it when the stored
// encoding changes so that old entries are never decoded.
const keyVersion = 1

// hashKey derives "prefix:sha256" from the JSON form of parts.
func hashKey(prefix string, parts ...any) string {
	h := sha256.New()
	h.Write([]byte{keyVersion})
	_ = json.NewEncoder(h).Encode(parts)
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of data. The pipeline keys dot sets by the
// hash of the input image bytes.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
