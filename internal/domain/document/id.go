package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

const hashPrefixLen = 16

// GenerateID derives an identifier for text submitted without one:
// the first 16 hex characters of SHA-256(text), "_", the Unix time in ms.
//
// Not a deduplication key. Submitting identical text twice creates two
// records; callers wanting overwrite semantics pass their own id.
func GenerateID(text string, now time.Time) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:hashPrefixLen] + "_" + strconv.FormatInt(now.UnixMilli(), 10)
}
