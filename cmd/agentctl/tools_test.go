package main

import (
	"context"
	"testing"
)

func TestCalculatorToolAdd(t *testing.T) {
	tool := calculatorTool{}
	out, err := tool.Run(context.Background(), map[string]any{"op": "add", "a": 2.0, "b": 3.0})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	result, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("unexpected output type %T", out)
	}
	if result["result"] != 5.0 {
		t.Errorf("result = %v, want 5", result["result"])
	}
}

func TestCalculatorToolDivideByZero(t *testing.T) {
	tool := calculatorTool{}
	if _, err := tool.Run(context.Background(), map[string]any{"op": "div", "a": 1.0, "b": 0.0}); err == nil {
		t.Fatal("expected division by zero error")
	}
}

func TestCalculatorToolSchemaHasRequiredFields(t *testing.T) {
	schema := calculatorTool{}.ArgsSchema()
	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want object", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatal("schema missing properties map")
	}
	for _, field := range []string{"op", "a", "b"} {
		if _, ok := props[field]; !ok {
			t.Errorf("schema missing property %q", field)
		}
	}
}

func TestBuildModelUnknownProvider(t *testing.T) {
	_, err := buildModel(context.Background(), &runFlags{provider: "unknown"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
