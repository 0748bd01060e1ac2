package codec

import (
	"strings"
	"testing"
)

type sample struct {
	Name  string   `json:"name" yaml:"name"`
	Count int      `json:"count" yaml:"count"`
	Tags  []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

func TestJSONRoundTrip(t *testing.T) {
	c := JSON{}
	in := sample{Name: "alpha", Count: 2, Tags: []string{"x", "y"}}
	data, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"name\": \"alpha\"") {
		t.Fatalf("expected pretty-printed output, got %s", data)
	}
	var out sample
	if err := c.Decode(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Name != in.Name || out.Count != in.Count || len(out.Tags) != 2 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if c.Ext() != ".json" {
		t.Fatalf("ext %s", c.Ext())
	}
}

func TestJSONDecodeFailure(t *testing.T) {
	var out sample
	if err := (JSON{}).Decode([]byte("{not json"), &out); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	c := YAML{}
	in := sample{Name: "beta", Count: 7}
	data, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out sample
	if err := c.Decode(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Name != "beta" || out.Count != 7 || len(out.Tags) != 0 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if c.Ext() != ".yaml" {
		t.Fatalf("ext %s", c.Ext())
	}
}

func TestYAMLDecodeFailure(t *testing.T) {
	var out sample
	if err := (YAML{}).Decode([]byte(":\n\t- bad"), &out); err == nil {
		t.Fatal("expected decode error")
	}
}
