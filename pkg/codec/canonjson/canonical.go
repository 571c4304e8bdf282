// Package canonjson provides canonical JSON encoding helpers for the wire
// envelope's signing bytes. Canonical here means deterministic key order
// (struct fields in declaration order; map keys sorted) and no HTML
// escaping, so the same value always serializes to the same bytes and a
// signature computed over them can be reproduced by any verifier.
package canonjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Marshal encodes v into canonical JSON bytes.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a trailing newline; strip it. The result
	// matches json.Marshal except that <, > and & are left unescaped.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal decodes canonical JSON data into v.
func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// SortedMap holds a map with explicit, deterministic key ordering, used when
// building signing bytes from a generic map[string]interface{} rather than a
// typed struct (Go's encoding/json already sorts map[string]T keys on
// marshal, but SortedMap makes that ordering explicit and inspectable).
type SortedMap struct {
	Keys   []string
	Values map[string]interface{}
}

// NewSortedMap builds a SortedMap from a regular map.
func NewSortedMap(m map[string]interface{}) *SortedMap {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &SortedMap{Keys: keys, Values: m}
}

// MarshalJSON implements deterministic key-ordered encoding.
func (sm *SortedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range sm.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := Marshal(sm.Values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeForSigning encodes v into canonical bytes with the named fields
// (typically "signature") removed, so those bytes can be signed and later
// reproduced by a verifier without needing the signature value itself.
func EncodeForSigning(v interface{}, excludeFields ...string) ([]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, err
	}

	var m map[string]interface{}
	if err := Unmarshal(data, &m); err != nil {
		return nil, err
	}

	for _, field := range excludeFields {
		delete(m, field)
	}

	return Marshal(NewSortedMap(m))
}

// IsCanonical reports whether data is already in canonical form: decoding
// then re-encoding it produces identical bytes.
func IsCanonical(data []byte) bool {
	var v interface{}
	if err := Unmarshal(data, &v); err != nil {
		return false
	}
	reencoded, err := Marshal(normalizeForReencode(v))
	if err != nil {
		return false
	}
	return bytes.Equal(data, reencoded)
}

// normalizeForReencode converts a generic map[string]interface{} (produced by
// json.Unmarshal into interface{}) into a SortedMap so re-encoding sorts keys
// the same way EncodeForSigning does.
func normalizeForReencode(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		normalized := make(map[string]interface{}, len(val))
		for k, nested := range val {
			normalized[k] = normalizeForReencode(nested)
		}
		return NewSortedMap(normalized)
	case []interface{}:
		normalized := make([]interface{}, len(val))
		for i, nested := range val {
			normalized[i] = normalizeForReencode(nested)
		}
		return normalized
	default:
		return v
	}
}

// ValidateCanonical returns an error if data is not canonical JSON.
func ValidateCanonical(data []byte) error {
	if !IsCanonical(data) {
		return fmt.Errorf("data is not in canonical JSON form")
	}
	return nil
}
