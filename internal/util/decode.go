package util

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeArgs decodes a validated argument map into a typed struct using
// mapstructure, honoring json tags. Numeric JSON values (float64) are
// weakly converted so integer struct fields accept 3.0.
func DecodeArgs(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
