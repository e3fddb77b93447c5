// Package providers adapts concrete LLM SDKs to the capability.LanguageModel
// contract the ReAct executor drives. Each adapter owns exactly the
// translation between the SDK's request/response shapes and the core's
// Message/ChatResponse/StreamResponse vocabulary; none of them know
// anything about turns, memory, or tool dispatch.
package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentcore/runtime/pkg/capability"
)

// AnthropicConfig configures an Anthropic-backed LanguageModel.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxTokens    int64
}

// Anthropic adapts the Claude Messages API to capability.LanguageModel.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic constructs an Anthropic adapter. APIKey is required.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("providers: anthropic API key is required")
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     cfg.DefaultModel,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (a *Anthropic) convertMessages(messages []capability.Message) (system string, out []anthropic.MessageParam) {
	for _, m := range messages {
		switch m.Role {
		case capability.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case capability.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case capability.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case capability.RoleTool:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return system, out
}

func (a *Anthropic) convertTools(tools []capability.ToolDescription) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.Parameters["properties"],
				},
			},
		})
	}
	return out
}

// Chat performs a single non-streaming Claude completion.
func (a *Anthropic) Chat(ctx context.Context, messages []capability.Message, tools []capability.ToolDescription, outputSchema map[string]any) (capability.ChatResponse, error) {
	system, msgs := a.convertMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = a.convertTools(tools)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return capability.ChatResponse{}, fmt.Errorf("providers: anthropic chat: %w", err)
	}

	return a.toChatResponse(msg), nil
}

func (a *Anthropic) toChatResponse(msg *anthropic.Message) capability.ChatResponse {
	var resp capability.ChatResponse
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Text += variant.Text
		case anthropic.ToolUseBlock:
			args, _ := json.Marshal(variant.Input)
			resp.ToolCalls = append(resp.ToolCalls, capability.RequestedToolCall{
				ID: variant.ID, Name: variant.Name, Arguments: string(args),
			})
		}
	}
	if msg.Usage.InputTokens != 0 || msg.Usage.OutputTokens != 0 {
		resp.Usage = &capability.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		}
	}
	return resp
}

// ChatStream performs a streaming Claude completion. Content deltas are
// forwarded as they arrive; tool_use blocks are accumulated and emitted
// whole once their input JSON is complete, matching the SDK's
// incremental-JSON accumulation idiom.
func (a *Anthropic) ChatStream(ctx context.Context, messages []capability.Message, tools []capability.ToolDescription, outputSchema map[string]any) (<-chan capability.StreamResponse, <-chan error) {
	out := make(chan capability.StreamResponse)
	errs := make(chan error, 1)

	system, msgs := a.convertMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = a.convertTools(tools)
	}

	go func() {
		defer close(out)
		defer close(errs)

		stream := a.client.Messages.NewStreaming(ctx, params)

		var acc anthropic.Message
		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				errs <- fmt.Errorf("providers: anthropic stream accumulate: %w", err)
				return
			}

			switch variant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					select {
					case out <- capability.StreamResponse{Choices: []capability.StreamChoice{{Delta: capability.StreamDelta{Content: delta.Text}}}}:
					case <-ctx.Done():
						errs <- ctx.Err()
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			errs <- fmt.Errorf("providers: anthropic stream: %w", err)
			return
		}

		for _, block := range acc.Content {
			if tu, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
				args, _ := json.Marshal(tu.Input)
				tc := capability.RequestedToolCall{ID: tu.ID, Name: tu.Name, Arguments: string(args)}
				select {
				case out <- capability.StreamResponse{Choices: []capability.StreamChoice{{Delta: capability.StreamDelta{ToolCall: &tc}}}}:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
	}()

	return out, errs
}

var _ capability.LanguageModel = (*Anthropic)(nil)
