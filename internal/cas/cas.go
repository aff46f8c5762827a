// Package cas provides BLAKE3 content digests and canonical JSON, used to
// fingerprint task documents and key cached grounder solutions.
package cas

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"sort"

	"lukechampine.com/blake3"
)

// CanonicalJSON marshals v with sorted object keys and no insignificant
// whitespace. Numbers keep their original textual form.
func CanonicalJSON(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case json.Number:
		buf.WriteString(val.String())
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

// Blake3Hash returns the 32-byte BLAKE3 digest of data.
func Blake3Hash(data []byte) []byte {
	sum := blake3.Sum256(data)
	return sum[:]
}

// Blake3HashHex returns the BLAKE3 digest of data as lowercase hex.
func Blake3HashHex(data []byte) string {
	return hex.EncodeToString(Blake3Hash(data))
}

// Digest returns the hex BLAKE3 digest of the canonical JSON form of v.
func Digest(v interface{}) (string, error) {
	data, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return Blake3HashHex(data), nil
}

// Fingerprint keys a piece of text under a kind, so equal texts of
// different kinds never collide: blake3(kind + "\n" + text).
func Fingerprint(kind, text string) string {
	h := blake3.New(32, nil)
	h.Write([]byte(kind))
	h.Write([]byte("\n"))
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
