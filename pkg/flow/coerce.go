package flow

import (
	"github.com/mitchellh/mapstructure"

	"github.com/convoflow/convoflow/pkg/domain"
)

// CoerceArgs aligns raw call arguments with a section's field types using
// weakly-typed decoding, so "42" satisfies a number field and "true"
// satisfies a boolean field. Values that cannot be coerced pass through
// unchanged — the handler keeps the caller's original rather than dropping
// data.
func CoerceArgs(section *domain.ParsedSection, args map[string]any) map[string]any {
	if len(args) == 0 {
		return args
	}
	out := make(map[string]any, len(args))
	for key, value := range args {
		out[key] = coerceValue(section.FieldTypes[key], value)
	}
	return out
}

func coerceValue(fieldType domain.FieldType, value any) any {
	switch fieldType {
	case domain.FieldNumber:
		var n float64
		if err := weakDecode(value, &n); err == nil {
			return n
		}
	case domain.FieldBoolean:
		var b bool
		if err := weakDecode(value, &b); err == nil {
			return b
		}
	case domain.FieldString, domain.FieldEnum:
		var s string
		if err := weakDecode(value, &s); err == nil {
			return s
		}
	}
	return value
}

func weakDecode(input, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
