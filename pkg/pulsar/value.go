package pulsar

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the shape of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

// Value is the host representation of a script value: null, bool, number
// (integer or float), string, array, or object. Objects keep their members
// in insertion order so that serialization matches what the script built.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  []Member
}

// Member is one key-value entry of an object Value.
type Member struct {
	Key   string
	Value Value
}

func Null() Value             { return Value{kind: KindNull} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Int(i int64) Value       { return Value{kind: KindInt, i: i} }
func Float(f float64) Value   { return Value{kind: KindFloat, f: f} }
func Str(s string) Value      { return Value{kind: KindString, s: s} }
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: items}
}
func Object(members ...Member) Value {
	return Value{kind: KindObject, obj: members}
}

func (v Value) Kind() Kind        { return v.kind }
func (v Value) BoolVal() bool     { return v.b }
func (v Value) IntVal() int64     { return v.i }
func (v Value) FloatVal() float64 { return v.f }
func (v Value) StrVal() string    { return v.s }
func (v Value) Items() []Value    { return v.arr }
func (v Value) Members() []Member { return v.obj }

// Num returns the numeric payload of an int or float value.
func (v Value) Num() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// String renders the value the way the plain output format wants it:
// strings verbatim, numbers with script coercion rules, everything else as
// compact JSON.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s
	default:
		b, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	// Exponent form without the zero padding Go adds ("1e-07" becomes "1e-7").
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}

// MarshalJSON encodes the value as compact JSON. Object members keep their
// insertion order. NaN and infinities encode as null, matching
// JSON.stringify.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindObject:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, m := range v.obj {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(m.Key)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			b, err := m.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	return []byte("null"), nil
}
