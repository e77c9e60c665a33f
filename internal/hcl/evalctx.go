package hcl

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/bundlego/internal/config"
	"github.com/vk/bundlego/internal/schema"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions is the fixed set of functions a descriptor may call.
var functions = map[string]function.Function{
	"upper":    stdlib.UpperFunc,
	"lower":    stdlib.LowerFunc,
	"format":   stdlib.FormatFunc,
	"join":     stdlib.JoinFunc,
	"concat":   stdlib.ConcatFunc,
	"coalesce": stdlib.CoalesceFunc,
	"replace":  stdlib.ReplaceFunc,
	"lookup":   stdlib.LookupFunc,
}

// buildEvalContext assembles the context used for the second decoding pass.
// Overrides are converted to the type of the variable's default so that a
// numeric variable stays numeric when set from the command line.
func buildEvalContext(decls []*schema.Variable, vars config.Variables) (*hcl.EvalContext, error) {
	values := make(map[string]cty.Value, len(decls))
	for _, decl := range decls {
		val := cty.NullVal(cty.String)
		if decl.Default != nil {
			val = *decl.Default
		}
		if raw, ok := vars.Overrides[decl.Name]; ok {
			converted, err := overrideValue(raw, val.Type())
			if err != nil {
				return nil, fmt.Errorf("variable %q: %w", decl.Name, err)
			}
			val = converted
		}
		values[decl.Name] = val
	}

	var unknown []string
	for name := range vars.Overrides {
		if _, ok := values[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("values given for undeclared variables: %v", unknown)
	}

	env := make(map[string]cty.Value, len(vars.Env))
	for k, v := range vars.Env {
		env[k] = cty.StringVal(v)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"var": cty.ObjectVal(values),
			"env": cty.ObjectVal(env),
		},
		Functions: functions,
	}, nil
}

func overrideValue(raw string, target cty.Type) (cty.Value, error) {
	val := cty.StringVal(raw)
	if target == cty.String || target == cty.DynamicPseudoType {
		return val, nil
	}
	converted, err := convert.Convert(val, target)
	if err != nil {
		return cty.NilVal, fmt.Errorf("cannot use %q as %s: %w", raw, target.FriendlyName(), err)
	}
	return converted, nil
}
