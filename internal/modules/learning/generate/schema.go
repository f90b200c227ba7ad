package generate

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/yungbote/lingua-backend/internal/modules/learning/prompts"
)

// schemaSet compiles prompt output schemas on first use.
type schemaSet struct {
	reg      *prompts.Registry
	compiled sync.Map // prompts.PromptName -> *jsonschema.Schema
}

func newSchemaSet(reg *prompts.Registry) *schemaSet {
	return &schemaSet{reg: reg}
}

func (s *schemaSet) get(name prompts.PromptName) (*jsonschema.Schema, error) {
	if cached, ok := s.compiled.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}
	schemaName, def, ok := s.reg.Schema(name)
	if !ok {
		return nil, fmt.Errorf("no schema registered for %s", name)
	}
	// The compiler wants a decoded JSON value, so round-trip the Go map.
	defBytes, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", schemaName, err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", schemaName, err)
	}
	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schemaName)
	if err := c.AddResource(url, defParsed); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", schemaName, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", schemaName, err)
	}
	s.compiled.Store(name, compiled)
	return compiled, nil
}

// validate checks raw model output against the prompt's output schema.
func (s *schemaSet) validate(name prompts.PromptName, raw json.RawMessage) error {
	compiled, err := s.get(name)
	if err != nil {
		return err
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
