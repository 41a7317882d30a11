// Package hash provides the digest used to identify blocks. The digest is
// computed over a set of values and does not depend on the order in which
// those values are provided.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Size is the length of a hex encoded digest.
const Size = sha256.Size * 2

// Field tags a value with a name. A Field canonicalizes to {"name":value}, so
// two different fields holding equal values produce different canonical
// strings and can't be swapped without changing the digest.
type Field struct {
	Name  string
	Value any
}

// MarshalJSON implements the json.Marshaler interface.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{f.Name: f.Value})
}

// =============================================================================

// Values returns the hex encoded sha256 digest for the specified values.
// Each value is converted to its JSON form, the JSON strings are sorted and
// then concatenated before hashing. Any permutation of the same values
// produces the same digest.
func Values(values ...any) (string, error) {
	canonical := make([]string, len(values))
	for i, value := range values {
		data, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("canonicalize value[%d]: %w", i, err)
		}
		canonical[i] = string(data)
	}

	sort.Strings(canonical)

	sum := sha256.Sum256([]byte(strings.Join(canonical, "")))
	return hex.EncodeToString(sum[:]), nil
}

// Fields returns the digest for a set of tagged fields.
func Fields(fields ...Field) (string, error) {
	values := make([]any, len(fields))
	for i, f := range fields {
		values[i] = f
	}

	return Values(values...)
}
