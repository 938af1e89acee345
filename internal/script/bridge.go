package script

import (
	"fmt"
	"strconv"

	"github.com/dop251/goja"
	"github.com/mauri870/pulsar/pkg/pulsar"
)

// fromJS converts a script value into the host Value domain. Arrays and
// objects are walked through the goja API directly so that object member
// insertion order survives the crossing. seen tracks the objects on the
// current path for cycle detection.
func fromJS(rt *goja.Runtime, v goja.Value, seen map[*goja.Object]struct{}) (pulsar.Value, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return pulsar.Null(), nil
	}

	if _, ok := v.(*goja.Symbol); ok {
		return pulsar.Value{}, fmt.Errorf("%w: symbol", pulsar.ErrUnsupportedValue)
	}

	switch ev := v.Export().(type) {
	case bool:
		return pulsar.Bool(ev), nil
	case int64:
		return pulsar.Int(ev), nil
	case float64:
		return pulsar.Float(ev), nil
	case string:
		return pulsar.Str(ev), nil
	}
	if _, ok := goja.AssertFunction(v); ok {
		return pulsar.Value{}, fmt.Errorf("%w: function", pulsar.ErrUnsupportedValue)
	}

	obj := v.ToObject(rt)
	if _, ok := seen[obj]; ok {
		return pulsar.Value{}, fmt.Errorf("%w: cyclic reference", pulsar.ErrUnsupportedValue)
	}
	seen[obj] = struct{}{}
	defer delete(seen, obj)

	switch obj.ClassName() {
	case "Array":
		n := obj.Get("length").ToInteger()
		items := make([]pulsar.Value, 0, n)
		for i := int64(0); i < n; i++ {
			item, err := fromJS(rt, obj.Get(strconv.FormatInt(i, 10)), seen)
			if err != nil {
				return pulsar.Value{}, err
			}
			items = append(items, item)
		}
		return pulsar.Array(items...), nil
	case "Object":
		keys := obj.Keys()
		members := make([]pulsar.Member, 0, len(keys))
		for _, key := range keys {
			val, err := fromJS(rt, obj.Get(key), seen)
			if err != nil {
				return pulsar.Value{}, err
			}
			members = append(members, pulsar.Member{Key: key, Value: val})
		}
		return pulsar.Object(members...), nil
	}

	return pulsar.Value{}, fmt.Errorf("%w: %s", pulsar.ErrUnsupportedValue, obj.ClassName())
}

// toJS converts a host value back into the runtime.
func toJS(rt *goja.Runtime, v pulsar.Value) goja.Value {
	switch v.Kind() {
	case pulsar.KindNull:
		return goja.Null()
	case pulsar.KindBool:
		return rt.ToValue(v.BoolVal())
	case pulsar.KindInt:
		return rt.ToValue(v.IntVal())
	case pulsar.KindFloat:
		return rt.ToValue(v.FloatVal())
	case pulsar.KindString:
		return rt.ToValue(v.StrVal())
	case pulsar.KindArray:
		items := make([]interface{}, len(v.Items()))
		for i, item := range v.Items() {
			items[i] = toJS(rt, item)
		}
		return rt.NewArray(items...)
	case pulsar.KindObject:
		obj := rt.NewObject()
		for _, m := range v.Members() {
			_ = obj.Set(m.Key, toJS(rt, m.Value))
		}
		return obj
	}
	return goja.Undefined()
}

// pairsFromJS validates an array-of-pairs result from map or sort.
func pairsFromJS(rt *goja.Runtime, v goja.Value, fn string) ([]pulsar.KeyValue, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, fmt.Errorf("%w: %s must return an array of pairs", pulsar.ErrResultShape, fn)
	}

	obj := v.ToObject(rt)
	if obj.ClassName() != "Array" {
		return nil, fmt.Errorf("%w: %s must return an array, got %s", pulsar.ErrResultShape, fn, obj.ClassName())
	}

	n := obj.Get("length").ToInteger()
	pairs := make([]pulsar.KeyValue, 0, n)
	for i := int64(0); i < n; i++ {
		pair, err := pairFromJS(rt, obj.Get(strconv.FormatInt(i, 10)), fn)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}

	return pairs, nil
}

// pairFromJS validates a single [key, value] element.
func pairFromJS(rt *goja.Runtime, v goja.Value, fn string) (pulsar.KeyValue, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return pulsar.KeyValue{}, fmt.Errorf("%w: %s emitted a pair that is not a [key, value] array", pulsar.ErrResultShape, fn)
	}

	obj := v.ToObject(rt)
	if obj.ClassName() != "Array" {
		return pulsar.KeyValue{}, fmt.Errorf("%w: %s emitted a pair that is not a [key, value] array", pulsar.ErrResultShape, fn)
	}

	if n := obj.Get("length").ToInteger(); n != 2 {
		return pulsar.KeyValue{}, fmt.Errorf("%w: %s emitted a pair of length %d, want 2", pulsar.ErrResultShape, fn, n)
	}

	keyVal := obj.Get("0")
	if keyVal == nil {
		return pulsar.KeyValue{}, fmt.Errorf("%w: %s emitted a pair with a non-string key", pulsar.ErrResultShape, fn)
	}
	key, ok := keyVal.Export().(string)
	if !ok {
		return pulsar.KeyValue{}, fmt.Errorf("%w: %s emitted a pair with a non-string key", pulsar.ErrResultShape, fn)
	}

	val, err := fromJS(rt, obj.Get("1"), map[*goja.Object]struct{}{})
	if err != nil {
		return pulsar.KeyValue{}, err
	}

	return pulsar.KeyValue{Key: key, Value: val}, nil
}
