// Package canonjson produces the canonical JSON encoding every byte-stable
// output in this module is built on: receipts, policy decisions, diff
// reports, and anything hashed or signed. Two properties matter: key order
// must be fully determined by the bytes of the key (not locale collation),
// and the same Go value must always marshal to the same bytes regardless of
// map iteration order, platform, or runtime version.
//
// Marshal delegates to github.com/gowebpki/jcs, an RFC 8785 (JSON
// Canonicalization Scheme) implementation: RFC 8785 defines object-key
// ordering by UTF-16 code unit, which is exactly the "UTF-16 code-unit
// sequence" ordering this module's contract requires, and its string
// serialization emits non-ASCII characters literally rather than as \uXXXX
// escapes.
package canonjson

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/gowebpki/jcs"
)

// Marshal returns the canonical JSON representation of v.
//
// v is first passed through the standard encoding/json marshaler so that
// struct tags (field names, omitempty) are honored, then the intermediate
// bytes are re-canonicalized by jcs.Transform for deterministic key
// ordering and number/string formatting.
func Marshal(v any) ([]byte, error) {
	if err := rejectNonFinite(reflect.ValueOf(v)); err != nil {
		return nil, err
	}

	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonjson: marshal: %w", err)
	}

	canonical, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("canonjson: transform: %w", err)
	}
	return canonical, nil
}

// MarshalToMap re-marshals v through canonical JSON and decodes it back into
// a generic map, useful for redacting a single field (e.g. "signature")
// before re-hashing a struct that was already built as a Go value.
func MarshalToMap(v any) (map[string]any, error) {
	raw, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("canonjson: decode to map: %w", err)
	}
	return m, nil
}

// MarshalMap canonicalizes an already-generic map/slice value (e.g. one
// produced by MarshalToMap after deleting a key).
func MarshalMap(v any) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonjson: marshal map: %w", err)
	}
	canonical, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("canonjson: transform map: %w", err)
	}
	return canonical, nil
}

// Hash returns the lowercase-hex SHA-256 digest of the canonical JSON
// representation of v.
func Hash(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes returns the lowercase-hex SHA-256 digest of raw bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Equal reports whether two values canonicalize to byte-identical JSON.
func Equal(a, b any) (bool, error) {
	ab, err := Marshal(a)
	if err != nil {
		return false, err
	}
	bb, err := Marshal(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ab, bb), nil
}

// rejectNonFinite walks v looking for a NaN or infinite float, which
// encoding/json would otherwise reject deep inside Marshal with a less
// specific error. We surface it early with a canonjson-specific message so
// callers at the policy/risk boundary can map it to a "clamp to FAIL"
// decision rather than a bare marshal error.
func rejectNonFinite(val reflect.Value) error {
	if !val.IsValid() {
		return nil
	}
	switch val.Kind() {
	case reflect.Float32, reflect.Float64:
		f := val.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("canonjson: non-finite number %v is not representable", f)
		}
	case reflect.Ptr, reflect.Interface:
		if !val.IsNil() {
			return rejectNonFinite(val.Elem())
		}
	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			if !val.Field(i).CanInterface() {
				continue
			}
			if err := rejectNonFinite(val.Field(i)); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < val.Len(); i++ {
			if err := rejectNonFinite(val.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := val.MapRange()
		for iter.Next() {
			if err := rejectNonFinite(iter.Value()); err != nil {
				return err
			}
		}
	}
	return nil
}
