package validate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit-dev/agentkit"
)

var personSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"age": {"type": "integer", "minimum": 0}
	},
	"required": ["name", "age"]
}`)

func TestOutputAcceptsConformingJSON(t *testing.T) {
	out, err := Output(`  {"name": "Ada", "age": 36}  `, personSchema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ada","age":36}`, string(out))
}

func TestOutputRejectsNonJSON(t *testing.T) {
	_, err := Output("Sure! Here is the answer you asked for.", personSchema)

	var soErr *agentkit.StructuredOutputError
	require.ErrorAs(t, err, &soErr)
	assert.Contains(t, soErr.Reason, "not valid JSON")
}

func TestOutputRejectsSchemaViolation(t *testing.T) {
	_, err := Output(`{"name": "Ada"}`, personSchema)

	var soErr *agentkit.StructuredOutputError
	require.ErrorAs(t, err, &soErr)
	assert.Contains(t, soErr.Reason, "does not match schema")
	assert.Contains(t, soErr.Reason, "age")
}

func TestOutputRejectsWrongType(t *testing.T) {
	_, err := Output(`{"name": "Ada", "age": "thirty-six"}`, personSchema)

	var soErr *agentkit.StructuredOutputError
	require.ErrorAs(t, err, &soErr)
	assert.Contains(t, soErr.Reason, "does not match schema")
}
