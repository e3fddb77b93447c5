package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/agentcore/runtime/pkg/capability"
)

// GoogleConfig configures a Gemini-backed LanguageModel.
type GoogleConfig struct {
	APIKey       string
	DefaultModel string
}

// Google adapts the Gemini GenerateContent API to capability.LanguageModel.
type Google struct {
	client *genai.Client
	model  string
}

// NewGoogle constructs a Google adapter. APIKey is required.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("providers: google API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("providers: google: create client: %w", err)
	}

	return &Google{client: client, model: cfg.DefaultModel}, nil
}

func convertMessagesGoogle(messages []capability.Message) (system string, contents []*genai.Content) {
	for _, m := range messages {
		if m.Role == capability.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		role := genai.RoleUser
		if m.Role == capability.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return system, contents
}

func buildConfigGoogle(system string, tools []capability.ToolDescription) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if len(tools) == 0 {
		return cfg
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schemaFromJSON(t.Parameters),
		})
	}
	cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	return cfg
}

// schemaFromJSON adapts a JSON-Schema map (the shape every capability.Tool
// declares) to the genai.Schema the Gemini SDK expects for function
// parameters. Only the subset the function-calling API actually reads is
// populated.
func schemaFromJSON(params map[string]any) *genai.Schema {
	if params == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	var schema genai.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return &genai.Schema{Type: genai.TypeObject}
	}
	return &schema
}

// Chat performs a single non-streaming Gemini generation call.
func (g *Google) Chat(ctx context.Context, messages []capability.Message, tools []capability.ToolDescription, outputSchema map[string]any) (capability.ChatResponse, error) {
	system, contents := convertMessagesGoogle(messages)
	cfg := buildConfigGoogle(system, tools)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return capability.ChatResponse{}, fmt.Errorf("providers: google generate: %w", err)
	}

	var out capability.ChatResponse
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				out.Text += part.Text
			}
			if part.FunctionCall != nil {
				args, _ := json.Marshal(part.FunctionCall.Args)
				out.ToolCalls = append(out.ToolCalls, capability.RequestedToolCall{
					ID: part.FunctionCall.Name, Name: part.FunctionCall.Name, Arguments: string(args),
				})
			}
		}
	}
	if resp.UsageMetadata != nil {
		out.Usage = &capability.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// ChatStream performs a streaming Gemini generation call over the SDK's
// iterator-based streaming API, translating each response into content and
// function-call deltas.
func (g *Google) ChatStream(ctx context.Context, messages []capability.Message, tools []capability.ToolDescription, outputSchema map[string]any) (<-chan capability.StreamResponse, <-chan error) {
	out := make(chan capability.StreamResponse)
	errs := make(chan error, 1)

	system, contents := convertMessagesGoogle(messages)
	cfg := buildConfigGoogle(system, tools)

	go func() {
		defer close(out)
		defer close(errs)

		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
			if err != nil {
				errs <- fmt.Errorf("providers: google stream: %w", err)
				return
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" {
					select {
					case out <- capability.StreamResponse{Choices: []capability.StreamChoice{{Delta: capability.StreamDelta{Content: part.Text}}}}:
					case <-ctx.Done():
						errs <- ctx.Err()
						return
					}
				}
				if part.FunctionCall != nil {
					args, _ := json.Marshal(part.FunctionCall.Args)
					tc := capability.RequestedToolCall{ID: part.FunctionCall.Name, Name: part.FunctionCall.Name, Arguments: string(args)}
					select {
					case out <- capability.StreamResponse{Choices: []capability.StreamChoice{{Delta: capability.StreamDelta{ToolCall: &tc}}}}:
					case <-ctx.Done():
						errs <- ctx.Err()
						return
					}
				}
			}
		}
	}()

	return out, errs
}

var _ capability.LanguageModel = (*Google)(nil)
