// Package jsobject turns JavaScript object literals found in page markup
// into plain Go values. Player configs are often assigned as JS rather than
// strict JSON (unquoted keys, single quotes, trailing commas), so they are
// evaluated in a sandboxed interpreter instead of decoded.
//
// goja is tried first; otto is the fallback for sources goja rejects.
// Neither runtime is given access to anything beyond the ECMAScript builtins.
package jsobject

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/robertkrimen/otto"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 2 * time.Second

// ErrEmpty is returned for blank input.
var ErrEmpty = errors.New("jsobject: empty expression")

// Engine evaluates one JavaScript expression.
type Engine interface {
	Name() string
	Eval(expr string, timeout time.Duration) (any, error)
}

// Engines returns the default evaluation chain.
func Engines() []Engine {
	return []Engine{GojaEngine{}, OttoEngine{}}
}

// Eval evaluates expr with the default chain and returns the first success.
func Eval(expr string) (any, error) {
	return EvalWith(Engines(), expr, DefaultTimeout)
}

// EvalWith evaluates expr with each engine in turn. The returned error joins
// the failures of every engine.
func EvalWith(engines []Engine, expr string, timeout time.Duration) (any, error) {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimSuffix(expr, ";")
	if expr == "" {
		return nil, ErrEmpty
	}
	var errs []error
	for _, e := range engines {
		v, err := e.Eval(expr, timeout)
		if err == nil {
			return v, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
	}
	return nil, errors.Join(errs...)
}

// wrap forces object literals to parse as expressions, not blocks.
func wrap(expr string) string {
	return "(" + expr + "\n)"
}

// GojaEngine evaluates with github.com/dop251/goja.
type GojaEngine struct{}

func (GojaEngine) Name() string { return "goja" }

func (GojaEngine) Eval(expr string, timeout time.Duration) (any, error) {
	vm := goja.New()
	if timeout > 0 {
		t := time.AfterFunc(timeout, func() { vm.Interrupt("timeout") })
		defer t.Stop()
	}
	v, err := vm.RunString(wrap(expr))
	if err != nil {
		return nil, err
	}
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, errors.New("expression evaluated to null")
	}
	return normalize(v.Export()), nil
}

// OttoEngine evaluates with github.com/robertkrimen/otto.
type OttoEngine struct{}

func (OttoEngine) Name() string { return "otto" }

func (OttoEngine) Eval(expr string, timeout time.Duration) (out any, err error) {
	vm := otto.New()
	if timeout > 0 {
		vm.Interrupt = make(chan func(), 1)
		t := time.AfterFunc(timeout, func() {
			vm.Interrupt <- func() { panic(errOttoTimeout) }
		})
		defer t.Stop()
	}
	defer func() {
		if r := recover(); r != nil {
			if r == errOttoTimeout {
				out, err = nil, errOttoTimeout
				return
			}
			panic(r)
		}
	}()

	v, err := vm.Run(wrap(expr))
	if err != nil {
		return nil, err
	}
	if v.IsUndefined() || v.IsNull() {
		return nil, errors.New("expression evaluated to null")
	}
	exported, err := v.Export()
	if err != nil {
		return nil, err
	}
	return normalize(exported), nil
}

var errOttoTimeout = errors.New("timeout")

// normalize converts runtime-specific numeric and container types into
// map[string]any, []any, string, float64 and bool.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	case []int64:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = float64(val)
		}
		return out
	case []bool:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
