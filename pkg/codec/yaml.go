package codec

import "gopkg.in/yaml.v3"

// YAML encodes records as YAML documents for deployments that prefer
// hand-editable state files.
type YAML struct{}

// Encode marshals v as a YAML document.
func (YAML) Encode(v any) ([]byte, error) { return yaml.Marshal(v) }

// Decode unmarshals data into v.
func (YAML) Decode(data []byte, v any) error { return yaml.Unmarshal(data, v) }

// Ext returns ".yaml".
func (YAML) Ext() string { return ".yaml" }
