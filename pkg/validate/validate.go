// Package validate checks model output against a JSON Schema and
// canonicalizes it, so callers receive either conforming JSON or a
// structured-output error naming the violations.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/agentkit-dev/agentkit"
)

// Output parses text as JSON, validates it against schema, and returns
// the canonical re-encoding. Failures come back as
// *agentkit.StructuredOutputError.
func Output(text string, schema json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)

	var value any
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return nil, &agentkit.StructuredOutputError{
			Reason: "output is not valid JSON",
			Err:    err,
		}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewGoLoader(value),
	)
	if err != nil {
		return nil, &agentkit.StructuredOutputError{
			Reason: "schema could not be evaluated",
			Err:    err,
		}
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			violations = append(violations, e.String())
		}
		return nil, &agentkit.StructuredOutputError{
			Reason: fmt.Sprintf("output does not match schema: %s", strings.Join(violations, "; ")),
		}
	}

	canonical, err := json.Marshal(value)
	if err != nil {
		return nil, &agentkit.StructuredOutputError{
			Reason: "output could not be re-encoded",
			Err:    err,
		}
	}
	return canonical, nil
}
