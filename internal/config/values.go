package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ParseJSON converts a JSON document into a cty value, inferring its type.
func ParseJSON(data []byte) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer type of JSON value: %w", err)
	}
	v, err := ctyjson.Unmarshal(data, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("invalid JSON value: %w", err)
	}
	return v, nil
}

// LoadInput reads a JSON input file.
func LoadInput(path string) (cty.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to read input file: %w", err)
	}
	v, err := ParseJSON(data)
	if err != nil {
		return cty.NilVal, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// MarshalJSON renders v as JSON. Null and unset values render as `null`.
func MarshalJSON(v cty.Value) ([]byte, error) {
	if v == cty.NilVal || v.IsNull() {
		return []byte("null"), nil
	}
	return ctyjson.Marshal(v, v.Type())
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
// Decoded documents (maps, slices and scalars from encoding/json or
// yaml.v3) are routed through JSON so that their shape, not their Go type,
// decides the cty type.
func ToCtyValue(v any) (cty.Value, error) {
	switch v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return cty.NilVal, fmt.Errorf("unable to encode value: %w", err)
		}
		return ParseJSON(data)
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
