package generation

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var questionSchema = map[string]any{
	"type":     "object",
	"required": []any{"prompt", "options", "answer"},
	"properties": map[string]any{
		"prompt":      map[string]any{"type": "string"},
		"options":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"answer":      map[string]any{"type": "string"},
		"explanation": map[string]any{"type": "string"},
	},
}

var outputSchemas = map[Kind]map[string]any{
	KindInterview: {
		"type":     "object",
		"required": []any{"topics"},
		"properties": map[string]any{
			"topics": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"name", "questions"},
					"properties": map[string]any{
						"name":      map[string]any{"type": "string"},
						"questions": map[string]any{"type": "array", "items": questionSchema},
					},
				},
			},
		},
	},
	KindPractice: {
		"type":     "object",
		"required": []any{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{"type": "array", "items": questionSchema},
		},
	},
}

var compiled sync.Map // map[Kind]*jsonschema.Schema

func schemaFor(kind Kind) (*jsonschema.Schema, error) {
	if cached, ok := compiled.Load(kind); ok {
		return cached.(*jsonschema.Schema), nil
	}

	def, ok := outputSchemas[kind]
	if !ok {
		return nil, fmt.Errorf("no output schema for kind %q", kind)
	}

	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	url := fmt.Sprintf("schema://generation/%s.json", kind)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	compiled.Store(kind, sch)
	return sch, nil
}

func validateOutput(kind Kind, raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	sch, err := schemaFor(kind)
	if err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
