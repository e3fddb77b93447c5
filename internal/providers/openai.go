package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agentcore/runtime/pkg/capability"
)

// OpenAIConfig configures an OpenAI-backed LanguageModel.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// OpenAI adapts the Chat Completions API to capability.LanguageModel.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI constructs an OpenAI adapter. APIKey is required.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("providers: openai API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openai.GPT4o
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAI{client: openai.NewClientWithConfig(clientCfg), model: cfg.DefaultModel}, nil
}

func convertMessagesOpenAI(messages []capability.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case capability.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case capability.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case capability.RoleTool:
			role = openai.ChatMessageRoleTool
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func convertToolsOpenAI(tools []capability.ToolDescription) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

// Chat performs a single non-streaming chat completion.
func (o *OpenAI) Chat(ctx context.Context, messages []capability.Message, tools []capability.ToolDescription, outputSchema map[string]any) (capability.ChatResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: convertMessagesOpenAI(messages),
	}
	if len(tools) > 0 {
		req.Tools = convertToolsOpenAI(tools)
	}
	if outputSchema != nil {
		raw, _ := json.Marshal(outputSchema)
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "agent_output",
				Schema: json.RawMessage(raw),
				Strict: true,
			},
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return capability.ChatResponse{}, fmt.Errorf("providers: openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return capability.ChatResponse{}, fmt.Errorf("providers: openai chat: no choices returned")
	}

	choice := resp.Choices[0]
	out := capability.ChatResponse{Text: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, capability.RequestedToolCall{
			ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments,
		})
	}
	out.Usage = &capability.Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens}
	return out, nil
}

// ChatStream performs a streaming chat completion. Tool-call argument
// fragments are concatenated by index as OpenAI's delta protocol requires,
// and the assembled calls are emitted once the stream ends (io.EOF).
func (o *OpenAI) ChatStream(ctx context.Context, messages []capability.Message, tools []capability.ToolDescription, outputSchema map[string]any) (<-chan capability.StreamResponse, <-chan error) {
	out := make(chan capability.StreamResponse)
	errs := make(chan error, 1)

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: convertMessagesOpenAI(messages),
		Stream:   true,
	}
	if len(tools) > 0 {
		req.Tools = convertToolsOpenAI(tools)
	}

	go func() {
		defer close(out)
		defer close(errs)

		stream, err := o.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			errs <- fmt.Errorf("providers: openai stream create: %w", err)
			return
		}
		defer stream.Close()

		type pendingCall struct {
			id, name, args string
		}
		pending := map[int]*pendingCall{}
		order := []int{}

		flush := func() {
			for _, idx := range order {
				pc := pending[idx]
				if pc == nil || pc.name == "" {
					continue
				}
				tc := capability.RequestedToolCall{ID: pc.id, Name: pc.name, Arguments: pc.args}
				select {
				case out <- capability.StreamResponse{Choices: []capability.StreamChoice{{Delta: capability.StreamDelta{ToolCall: &tc}}}}:
				case <-ctx.Done():
				}
			}
		}

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				flush()
				return
			}
			if err != nil {
				errs <- fmt.Errorf("providers: openai stream recv: %w", err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta
			if delta.Content != "" {
				select {
				case out <- capability.StreamResponse{Choices: []capability.StreamChoice{{Delta: capability.StreamDelta{Content: delta.Content}}}}:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
			for _, tc := range delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				pc, ok := pending[idx]
				if !ok {
					pc = &pendingCall{}
					pending[idx] = pc
					order = append(order, idx)
				}
				if tc.ID != "" {
					pc.id = tc.ID
				}
				if tc.Function.Name != "" {
					pc.name = tc.Function.Name
				}
				pc.args += tc.Function.Arguments
			}
		}
	}()

	return out, errs
}

var _ capability.LanguageModel = (*OpenAI)(nil)
