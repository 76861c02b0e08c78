package hcl

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// evalContext is the evaluation scope of `input` and `config` expressions.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"coalesce":   stdlib.CoalesceFunc,
			"concat":     stdlib.ConcatFunc,
			"format":     stdlib.FormatFunc,
			"join":       stdlib.JoinFunc,
			"jsondecode": stdlib.JSONDecodeFunc,
			"jsonencode": stdlib.JSONEncodeFunc,
			"length":     stdlib.LengthFunc,
			"lower":      stdlib.LowerFunc,
			"merge":      stdlib.MergeFunc,
			"upper":      stdlib.UpperFunc,
		},
	}
}
