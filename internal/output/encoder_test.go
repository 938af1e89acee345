package output

import (
	"errors"
	"strings"
	"testing"

	"github.com/mauri870/pulsar/pkg/pulsar"
)

// TestForFormat verifies encoder selection
func TestForFormat(t *testing.T) {
	t.Parallel()

	if enc, err := ForFormat("plain"); err != nil {
		t.Errorf("plain: %v", err)
	} else if _, ok := enc.(Plain); !ok {
		t.Errorf("plain: got %T", enc)
	}

	if enc, err := ForFormat("json"); err != nil {
		t.Errorf("json: %v", err)
	} else if _, ok := enc.(JSON); !ok {
		t.Errorf("json: got %T", enc)
	}

	if _, err := ForFormat("yaml"); !errors.Is(err, pulsar.ErrUsage) {
		t.Errorf("Expected ErrUsage for unknown format, got %v", err)
	}
}

// TestPlain_Encode verifies the KEY: VALUE line format
func TestPlain_Encode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kv   pulsar.KeyValue
		want string
	}{
		{"int value", pulsar.KeyValue{Key: "hello", Value: pulsar.Int(2)}, "hello: 2\n"},
		{"string value", pulsar.KeyValue{Key: "k", Value: pulsar.Str("raw text")}, "k: raw text\n"},
		{"float value", pulsar.KeyValue{Key: "k", Value: pulsar.Float(2.5)}, "k: 2.5\n"},
		{"null value", pulsar.KeyValue{Key: "k", Value: pulsar.Null()}, "k: null\n"},
		{
			"array renders as json",
			pulsar.KeyValue{Key: "k", Value: pulsar.Array(pulsar.Int(1), pulsar.Int(2))},
			"k: [1,2]\n",
		},
		{
			"object renders as json",
			pulsar.KeyValue{Key: "k", Value: pulsar.Object(pulsar.Member{Key: "n", Value: pulsar.Int(1)})},
			"k: {\"n\":1}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			if err := (Plain{}).Encode(&sb, tt.kv); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if sb.String() != tt.want {
				t.Errorf("Encode = %q, want %q", sb.String(), tt.want)
			}
		})
	}
}

// TestJSON_Encode verifies the NDJSON record format
func TestJSON_Encode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kv   pulsar.KeyValue
		want string
	}{
		{"int value", pulsar.KeyValue{Key: "hello", Value: pulsar.Int(2)}, "{\"hello\":2}\n"},
		{"string value", pulsar.KeyValue{Key: "k", Value: pulsar.Str("v")}, "{\"k\":\"v\"}\n"},
		{"key escaping", pulsar.KeyValue{Key: `a"b`, Value: pulsar.Int(1)}, "{\"a\\\"b\":1}\n"},
		{
			"nested value",
			pulsar.KeyValue{Key: "k", Value: pulsar.Array(pulsar.Null(), pulsar.Bool(true))},
			"{\"k\":[null,true]}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			if err := (JSON{}).Encode(&sb, tt.kv); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if sb.String() != tt.want {
				t.Errorf("Encode = %q, want %q", sb.String(), tt.want)
			}
		})
	}
}
