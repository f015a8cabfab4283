package browser

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// decodeArgs decodes MCP call arguments into a tool input struct using its
// json tags. Scalars are weakly typed so "true" decodes into a bool.
func decodeArgs(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create argument decoder: %w", err)
	}

	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
