// Package codec defines the text encoding boundary for persisted state and
// ships the two codecs used in practice: pretty-printed JSON (default) and
// YAML.
package codec

import "encoding/json"

// Codec turns a record into and from its persisted text encoding.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	// Ext returns the file extension for this encoding, including the dot.
	Ext() string
}

// JSON encodes records as indented, human-readable JSON.
type JSON struct{}

// Encode marshals v with two-space indentation.
func (JSON) Encode(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

// Decode unmarshals data into v.
func (JSON) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }

// Ext returns ".json".
func (JSON) Ext() string { return ".json" }
