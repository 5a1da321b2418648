package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// DefaultKeyPrefix is the prefix of keys produced by DefaultKeyer. It
// matches a default cleanable pattern, so keyed results are swept under
// pressure.
const DefaultKeyPrefix = "incivus_cache_"

// Keyer derives deterministic cache keys for computed results.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(namespace string, input any) (string, error)
}

// DefaultKeyer generates SHA-256 based keys.
type DefaultKeyer struct {
	prefix string
}

// NewDefaultKeyer creates a keyer using DefaultKeyPrefix.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{prefix: DefaultKeyPrefix}
}

// NewPrefixKeyer creates a keyer with a custom prefix.
func NewPrefixKeyer(prefix string) *DefaultKeyer {
	return &DefaultKeyer{prefix: prefix}
}

// Key returns <prefix><namespace>_<hash>, where hash is the first 16 hex
// characters of SHA-256 over the canonical JSON of input.
func (k *DefaultKeyer) Key(namespace string, input any) (string, error) {
	if strings.TrimSpace(namespace) == "" {
		return "", ErrInvalidKey
	}

	var buf bytes.Buffer
	if err := canonicalize(&buf, input); err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize input: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	key := k.prefix + namespace + "_" + hex.EncodeToString(sum[:8])
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// canonicalize writes v as JSON with object keys sorted at every depth.
func canonicalize(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case map[string]any:
		buf.WriteByte('{')
		for i, k := range slices.Sorted(maps.Keys(val)) {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := canonicalize(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := canonicalize(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		// encoding/json already sorts map keys for typed maps and keeps
		// struct field order.
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

var _ Keyer = (*DefaultKeyer)(nil)
