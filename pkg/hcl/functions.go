package hcl

import (
	"fmt"
	"math"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"
)

// maxGenerated caps the length of lists built by the helper functions.
const maxGenerated = 100000

// newEvalContext exposes linspace, arange and repeat to experiment files.
func newEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{
			"linspace": linspaceFunc,
			"arange":   arangeFunc,
			"repeat":   repeatFunc,
		},
	}
}

// linspace(start, stop, n) gives n evenly spaced numbers from start to stop inclusive.
var linspaceFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "start", Type: cty.Number},
		{Name: "stop", Type: cty.Number},
		{Name: "n", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.List(cty.Number)),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		var start, stop float64
		var n int
		if err := decodeArgs(args, &start, &stop, &n); err != nil {
			return cty.NilVal, err
		}
		if n < 0 || n > maxGenerated {
			return cty.NilVal, function.NewArgErrorf(2, "n must be between 0 and %d", maxGenerated)
		}
		values := make([]float64, n)
		for i := range values {
			if n == 1 {
				values[i] = start
				continue
			}
			values[i] = start + float64(i)*(stop-start)/float64(n-1)
		}
		return numberList(values), nil
	},
})

// arange(start, stop, step) gives start, start+step, ... below stop.
var arangeFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "start", Type: cty.Number},
		{Name: "stop", Type: cty.Number},
		{Name: "step", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.List(cty.Number)),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		var start, stop, step float64
		if err := decodeArgs(args, &start, &stop, &step); err != nil {
			return cty.NilVal, err
		}
		if !(step > 0) {
			return cty.NilVal, function.NewArgErrorf(2, "step must be positive")
		}
		n := int(math.Ceil((stop - start) / step))
		if n > maxGenerated {
			return cty.NilVal, function.NewArgErrorf(2, "more than %d values", maxGenerated)
		}
		values := make([]float64, 0, max(n, 0))
		for i := 0; i < n; i++ {
			values = append(values, start+float64(i)*step)
		}
		return numberList(values), nil
	},
})

// repeat(value, n) gives a list of n copies of value.
var repeatFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "value", Type: cty.Number},
		{Name: "n", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.List(cty.Number)),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		var value float64
		var n int
		if err := decodeArgs(args, &value, &n); err != nil {
			return cty.NilVal, err
		}
		if n < 0 || n > maxGenerated {
			return cty.NilVal, function.NewArgErrorf(1, "n must be between 0 and %d", maxGenerated)
		}
		values := make([]float64, n)
		for i := range values {
			values[i] = value
		}
		return numberList(values), nil
	},
})

func decodeArgs(args []cty.Value, targets ...interface{}) error {
	for i, target := range targets {
		if err := gocty.FromCtyValue(args[i], target); err != nil {
			return function.NewArgError(i, fmt.Errorf("invalid argument: %w", err))
		}
	}
	return nil
}

func numberList(values []float64) cty.Value {
	if len(values) == 0 {
		return cty.ListValEmpty(cty.Number)
	}
	out := make([]cty.Value, len(values))
	for i, v := range values {
		out[i] = cty.NumberFloatVal(v)
	}
	return cty.ListVal(out)
}
