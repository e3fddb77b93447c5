package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// calculatorArgs is reflected into calculatorTool's ArgsSchema via
// invopop/jsonschema rather than hand-writing JSON-Schema literals.
type calculatorArgs struct {
	Op string  `json:"op" jsonschema:"enum=add,enum=sub,enum=mul,enum=div,description=Arithmetic operation to perform"`
	A  float64 `json:"a" jsonschema:"description=Left operand"`
	B  float64 `json:"b" jsonschema:"description=Right operand"`
}

func structSchema(v any) map[string]any {
	reflector := &jsonschema.Reflector{ExpandedStruct: true}
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return out
}

// calculatorTool is a deterministic demo tool so agentctl run has something
// to dispatch a tool call into without any external dependency.
type calculatorTool struct{}

func (calculatorTool) Name() string { return "calculator" }
func (calculatorTool) Description() string {
	return "Performs a single arithmetic operation on two numbers."
}
func (calculatorTool) ArgsSchema() map[string]any {
	return structSchema(&calculatorArgs{})
}

func (calculatorTool) Run(ctx context.Context, args any) (any, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}
	var a calculatorArgs
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode args: %w", err)
	}

	switch a.Op {
	case "add":
		return map[string]any{"result": a.A + a.B}, nil
	case "sub":
		return map[string]any{"result": a.A - a.B}, nil
	case "mul":
		return map[string]any{"result": a.A * a.B}, nil
	case "div":
		if a.B == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return map[string]any{"result": a.A / a.B}, nil
	default:
		return nil, fmt.Errorf("unknown op %q", a.Op)
	}
}
