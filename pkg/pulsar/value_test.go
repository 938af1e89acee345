package pulsar

import (
	"math"
	"testing"
)

// TestValue_StringCoercion verifies the plain-output rendering of every kind
func TestValue_StringCoercion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"null", Null(), "null"},
		{"true", Bool(true), "true"},
		{"false", Bool(false), "false"},
		{"int", Int(42), "42"},
		{"negative int", Int(-7), "-7"},
		{"float", Float(2.5), "2.5"},
		{"nan", Float(math.NaN()), "NaN"},
		{"infinity", Float(math.Inf(1)), "Infinity"},
		{"negative infinity", Float(math.Inf(-1)), "-Infinity"},
		{"string", Str("hello"), "hello"},
		{"array", Array(Int(1), Str("a")), `[1,"a"]`},
		{"object", Object(Member{Key: "k", Value: Int(1)}), `{"k":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestValue_MarshalJSON verifies compact JSON encoding
func TestValue_MarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"null", Null(), "null"},
		{"bool", Bool(true), "true"},
		{"int", Int(3), "3"},
		{"float", Float(0.5), "0.5"},
		{"nan encodes as null", Float(math.NaN()), "null"},
		{"infinity encodes as null", Float(math.Inf(1)), "null"},
		{"string escaping", Str(`a"b`), `"a\"b"`},
		{"empty array", Array(), "[]"},
		{"nested array", Array(Int(1), Array(Str("x"))), `[1,["x"]]`},
		{"empty object", Object(), "{}"},
		{
			"object keeps insertion order",
			Object(
				Member{Key: "z", Value: Int(1)},
				Member{Key: "a", Value: Int(2)},
				Member{Key: "m", Value: Null()},
			),
			`{"z":1,"a":2,"m":null}`,
		},
		{
			"nested object order",
			Object(Member{Key: "outer", Value: Object(
				Member{Key: "b", Value: Int(1)},
				Member{Key: "a", Value: Int(2)},
			)}),
			`{"outer":{"b":1,"a":2}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("MarshalJSON = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestValue_Num verifies numeric access across int and float kinds
func TestValue_Num(t *testing.T) {
	t.Parallel()

	if got := Int(7).Num(); got != 7 {
		t.Errorf("Int(7).Num() = %v, want 7", got)
	}

	if got := Float(1.5).Num(); got != 1.5 {
		t.Errorf("Float(1.5).Num() = %v, want 1.5", got)
	}
}
