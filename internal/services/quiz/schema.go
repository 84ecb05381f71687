package quiz

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// bankSchema is the JSON Schema every question bank document must satisfy.
const bankSchema = `{
  "type": "object",
  "required": ["language", "questions"],
  "properties": {
    "language": {"type": "string", "minLength": 2},
    "version": {"type": "string"},
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "prompt", "options"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "prompt": {"type": "string", "minLength": 1},
          "options": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["text"],
              "properties": {
                "text": {"type": "string", "minLength": 1},
                "signals": {
                  "type": ["object", "null"],
                  "additionalProperties": false,
                  "properties": {
                    "work_preference": {"$ref": "#/definitions/weights"},
                    "learning_tolerance": {"$ref": "#/definitions/weights"},
                    "environment": {"$ref": "#/definitions/weights"},
                    "value_tradeoff": {"$ref": "#/definitions/weights"},
                    "energy_sensitivity": {"$ref": "#/definitions/weights"}
                  }
                }
              }
            }
          }
        }
      }
    }
  },
  "definitions": {
    "weights": {
      "type": ["object", "null"],
      "additionalProperties": {"type": "integer"}
    }
  }
}`

var bankSchemaLoader = gojsonschema.NewStringLoader(bankSchema)

// ValidateDocument checks a YAML bank document against the bank schema.
func ValidateDocument(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse question bank: %w", err)
	}

	result, err := gojsonschema.Validate(bankSchemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to validate question bank: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid question bank: %s", strings.Join(msgs, "; "))
}
