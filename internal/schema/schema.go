// Package schema validates workflow values against type constraints written
// in HCL type-expression syntax, e.g. `object({ name = string, tags = optional(list(string), []) })`.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Schema is a parsed type constraint plus the defaults for its optional
// object attributes.
type Schema struct {
	Type     cty.Type
	defaults *typeexpr.Defaults
}

// Of wraps an already constructed cty type.
func Of(ty cty.Type) *Schema {
	return &Schema{Type: ty}
}

// Any accepts every value, including null.
func Any() *Schema {
	return Of(cty.DynamicPseudoType)
}

// Parse reads a type constraint from source text.
func Parse(src string) (*Schema, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "schema", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse schema %q: %w", src, diags)
	}
	return FromExpression(expr)
}

// FromExpression reads a type constraint from an HCL expression, as found in
// a `schema = object({...})` attribute.
func FromExpression(expr hcl.Expression) (*Schema, error) {
	ty, defaults, diags := typeexpr.TypeConstraintWithDefaults(expr)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid type constraint: %w", diags)
	}
	return &Schema{Type: ty, defaults: defaults}, nil
}

// String renders the constraint back in type-expression syntax.
func (s *Schema) String() string {
	if s == nil {
		return "any"
	}
	return typeexpr.TypeString(s.Type)
}

// Required returns, sorted, the attributes an object schema requires.
// It returns nil for non-object schemas.
func (s *Schema) Required() []string {
	if s == nil || !s.Type.IsObjectType() {
		return nil
	}
	var out []string
	for name := range s.Type.AttributeTypes() {
		if !s.Type.AttributeOptional(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Result is the outcome of Validate. Value holds v converted to the schema's
// type with optional-attribute defaults applied; it is only meaningful when
// Valid is true.
type Result struct {
	Valid  bool
	Value  cty.Value
	Errors []string
}

// Err folds the result into a single error, or nil when valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return errors.New(strings.Join(r.Errors, "; "))
}

// Validate checks v against s. A nil schema accepts everything. A null value
// is only accepted by the dynamic `any` type.
func Validate(v cty.Value, s *Schema) Result {
	if v == cty.NilVal {
		v = cty.NullVal(cty.DynamicPseudoType)
	}
	if s == nil || s.Type == cty.NilType {
		return Result{Valid: true, Value: v}
	}

	if v.IsNull() && !s.Type.Equals(cty.DynamicPseudoType) {
		return Result{Errors: []string{fmt.Sprintf("value is required, expected %s", s.String())}}
	}

	if s.defaults != nil {
		v = s.defaults.Apply(v)
	}

	out, err := convert.Convert(v, s.Type)
	if err != nil {
		return Result{Errors: []string{describe(err)}}
	}
	return Result{Valid: true, Value: out}
}

func describe(err error) string {
	var pathErr cty.PathError
	if errors.As(err, &pathErr) && len(pathErr.Path) > 0 {
		return fmt.Sprintf("%s: %s", FormatPath(pathErr.Path), pathErr.Error())
	}
	return err.Error()
}

// FormatPath renders a cty path as `.attr[0]["key"]`.
func FormatPath(path cty.Path) string {
	var b strings.Builder
	for _, step := range path {
		switch s := step.(type) {
		case cty.GetAttrStep:
			b.WriteString(".")
			b.WriteString(s.Name)
		case cty.IndexStep:
			switch {
			case s.Key.Type().Equals(cty.String):
				fmt.Fprintf(&b, "[%q]", s.Key.AsString())
			case s.Key.Type().Equals(cty.Number):
				fmt.Fprintf(&b, "[%s]", s.Key.AsBigFloat().Text('f', -1))
			default:
				b.WriteString("[?]")
			}
		}
	}
	return b.String()
}
