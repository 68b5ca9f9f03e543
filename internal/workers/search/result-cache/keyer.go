// internal/workers/search/result-cache/keyer.go
package resultcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"directory-assistant/internal/common/textnorm"
	"directory-assistant/internal/models"
)

var ErrCacheKeyFailed = errors.New("CACHE_KEY_FAILED")

const nullField = "null"

// Keyer derives cache keys from queries.
type Keyer struct {
	newHash func() hash.Hash
}

func NewKeyer() *Keyer {
	return &Keyer{newHash: sha256.New}
}

// NewKeyerWithHash uses newHash instead of SHA-256.
func NewKeyerWithHash(newHash func() hash.Hash) *Keyer {
	return &Keyer{newHash: newHash}
}

// Key returns the lowercase hex SHA-256 of "normalized|lat|lon|radius", absent
// fields written as "null". If the digest cannot be computed the raw query text is
// returned together with an ErrCacheKeyFailed error; the key is usable either way.
func (k *Keyer) Key(q models.Query) (string, error) {
	h := k.newHash()
	if _, err := h.Write([]byte(KeyInput(q))); err != nil {
		return q.Text, fmt.Errorf("%w: %v", ErrCacheKeyFailed, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// KeyInput is the digest pre-image for q.
func KeyInput(q models.Query) string {
	parts := []string{
		textnorm.Normalize(q.Text),
		formatFloat(q.Latitude),
		formatFloat(q.Longitude),
		nullField,
	}
	if q.RadiusMeters != nil {
		parts[3] = strconv.Itoa(*q.RadiusMeters)
	}
	return strings.Join(parts, "|")
}

func formatFloat(v *float64) string {
	if v == nil {
		return nullField
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
