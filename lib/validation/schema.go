package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// AssistantReplySchema defines the JSON schema the chat assistant's model
// output must satisfy before it is accepted.
var AssistantReplySchema = `{
	"type": "object",
	"properties": {
		"message": {"type": "string", "minLength": 1},
		"suggestions": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"title": {"type": "string", "minLength": 1},
					"tmdb_id": {"type": "integer", "minimum": 0},
					"reason": {"type": "string", "minLength": 1}
				},
				"required": ["title", "reason"],
				"additionalProperties": false
			},
			"minItems": 0,
			"maxItems": 10
		}
	},
	"required": ["message", "suggestions"],
	"additionalProperties": false
}`

// ValidateAssistantReply validates a JSON assistant reply against the schema.
func ValidateAssistantReply(jsonData []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(AssistantReplySchema)
	documentLoader := gojsonschema.NewBytesLoader(jsonData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate JSON schema: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("assistant reply failed validation: %s", strings.Join(problems, "; "))
	}
	return nil
}
