package toolproc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compiledSchemaCache avoids recompiling a tool's ArgsSchema on every call;
// schemas are small and static for the lifetime of a registered tool. It is
// shared across every Dispatch call a Registry serves, so lookups and
// inserts both take the lock.
type compiledSchemaCache struct {
	mu         sync.Mutex
	byToolName map[string]*jsonschema.Schema
}

func newCompiledSchemaCache() *compiledSchemaCache {
	return &compiledSchemaCache{byToolName: make(map[string]*jsonschema.Schema)}
}

func (c *compiledSchemaCache) compile(toolName string, schema map[string]any) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.byToolName[toolName]; ok {
		return cached, nil
	}
	if schema == nil {
		return nil, nil
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema for %q: %w", toolName, err)
	}

	compiler := jsonschema.NewCompiler()
	const resource = "args.json"
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource for %q: %w", toolName, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %q: %w", toolName, err)
	}

	c.byToolName[toolName] = compiled
	return compiled, nil
}

// validateArgs checks parsed arguments against a tool's ArgsSchema, when one
// is declared. Tools with a nil schema accept any shape.
func (c *compiledSchemaCache) validateArgs(toolName string, schema map[string]any, args any) error {
	compiled, err := c.compile(toolName, schema)
	if err != nil {
		return err
	}
	if compiled == nil {
		return nil
	}
	if err := compiled.Validate(args); err != nil {
		return fmt.Errorf("arguments for %q do not match schema: %w", toolName, err)
	}
	return nil
}
