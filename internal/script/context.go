package script

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/mauri870/pulsar/pkg/pulsar"
)

// Context is one instance of the embedded JavaScript engine with the user
// script evaluated. A Context belongs to a single worker goroutine for its
// whole life and must never be called concurrently.
type Context struct {
	rt       *goja.Runtime
	mapFn    goja.Callable
	reduceFn goja.Callable
	sortFn   goja.Callable
	testFn   goja.Callable
}

// Compile parses the script source once. The compiled program is immutable
// and shared across all contexts.
func Compile(name, source string) (*goja.Program, error) {
	prg, err := goja.Compile(name, source, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pulsar.ErrScriptLoad, err)
	}
	return prg, nil
}

// NewContext evaluates the program in a fresh runtime and resolves the
// script entry points: map and reduce are required, sort and test optional.
func NewContext(prg *goja.Program) (*Context, error) {
	rt := goja.New()
	if _, err := rt.RunProgram(prg); err != nil {
		return nil, fmt.Errorf("%w: %v", pulsar.ErrScriptLoad, err)
	}

	c := &Context{rt: rt}

	if v := c.binding("engineVersion"); v != nil {
		declared, ok := v.Export().(string)
		if !ok {
			return nil, fmt.Errorf("%w: engineVersion must be a string", pulsar.ErrScriptLoad)
		}
		if err := pulsar.CheckEngineVersion(declared); err != nil {
			return nil, fmt.Errorf("%w: %v", pulsar.ErrScriptLoad, err)
		}
	}

	var err error
	if c.mapFn, err = c.callable("map", true); err != nil {
		return nil, err
	}
	if c.reduceFn, err = c.callable("reduce", true); err != nil {
		return nil, err
	}
	if c.sortFn, err = c.callable("sort", false); err != nil {
		return nil, err
	}
	if c.testFn, err = c.callable("test", false); err != nil {
		return nil, err
	}

	return c, nil
}

// binding resolves a top-level binding by name. The global object covers
// function and var declarations; the eval fallback resolves const and let
// bindings in the global lexical scope.
func (c *Context) binding(name string) goja.Value {
	if v := c.rt.Get(name); v != nil && !goja.IsUndefined(v) {
		return v
	}
	v, err := c.rt.RunString(name)
	if err != nil || v == nil || goja.IsUndefined(v) {
		return nil
	}
	return v
}

func (c *Context) callable(name string, required bool) (goja.Callable, error) {
	v := c.binding(name)
	if v == nil {
		if required {
			return nil, fmt.Errorf("%w: script does not define %s", pulsar.ErrScriptLoad, name)
		}
		return nil, nil
	}

	fn, ok := goja.AssertFunction(v)
	if !ok {
		if required {
			return nil, fmt.Errorf("%w: %s is not a function", pulsar.ErrScriptLoad, name)
		}
		return nil, nil
	}

	return fn, nil
}

// call invokes a script function and awaits its result. goja drains the
// microtask queue when the call stack empties, and the embedded engine has
// no timers, so a promise still pending here can never settle.
func (c *Context) call(name string, fn goja.Callable, args ...goja.Value) (result goja.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			ex, ok := r.(*goja.Exception)
			if !ok {
				panic(r)
			}
			result = nil
			err = fmt.Errorf("%w: %s: %v", pulsar.ErrScriptRuntime, name, ex)
		}
	}()

	res, err := fn(goja.Undefined(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", pulsar.ErrScriptRuntime, name, err)
	}

	if p, ok := res.Export().(*goja.Promise); ok {
		switch p.State() {
		case goja.PromiseStateFulfilled:
			return p.Result(), nil
		case goja.PromiseStateRejected:
			return nil, fmt.Errorf("%w: %s: %s", pulsar.ErrScriptRuntime, name, p.Result().String())
		default:
			return nil, fmt.Errorf("%w: %s returned a promise that never settles", pulsar.ErrScriptRuntime, name)
		}
	}

	return res, nil
}

// Map runs the script map function over one input line.
func (c *Context) Map(line string) ([]pulsar.KeyValue, error) {
	res, err := c.call("map", c.mapFn, c.rt.ToValue(line))
	if err != nil {
		return nil, err
	}
	return pairsFromJS(c.rt, res, "map")
}

// Reduce runs the script reduce function over one key group.
func (c *Context) Reduce(key string, values []pulsar.Value) (pulsar.Value, error) {
	items := make([]interface{}, len(values))
	for i, v := range values {
		items[i] = toJS(c.rt, v)
	}

	res, err := c.call("reduce", c.reduceFn, c.rt.ToValue(key), c.rt.NewArray(items...))
	if err != nil {
		return pulsar.Value{}, err
	}
	if res == nil || goja.IsUndefined(res) {
		return pulsar.Value{}, fmt.Errorf("%w: reduce returned no value for key %q", pulsar.ErrResultShape, key)
	}

	return fromJS(c.rt, res, map[*goja.Object]struct{}{})
}

// Sort runs the script sort function over the complete reduction set.
func (c *Context) Sort(results []pulsar.KeyValue) ([]pulsar.KeyValue, error) {
	if c.sortFn == nil {
		return nil, fmt.Errorf("%w: script does not define sort", pulsar.ErrUsage)
	}

	items := make([]interface{}, len(results))
	for i, kv := range results {
		items[i] = c.rt.NewArray(c.rt.ToValue(kv.Key), toJS(c.rt, kv.Value))
	}

	res, err := c.call("sort", c.sortFn, c.rt.NewArray(items...))
	if err != nil {
		return nil, err
	}

	return pairsFromJS(c.rt, res, "sort")
}

// Test runs the script test entry point if the script defines one.
func (c *Context) Test() error {
	if c.testFn == nil {
		return nil
	}
	_, err := c.call("test", c.testFn)
	return err
}

// HasSort reports whether the script defines a sort function.
func (c *Context) HasSort() bool { return c.sortFn != nil }

// HasTest reports whether the script defines a test function.
func (c *Context) HasTest() bool { return c.testFn != nil }
