package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/agentcore/runtime/pkg/capability"
)

// BedrockConfig configures a Bedrock-backed LanguageModel via the Converse API.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	DefaultModel    string
}

// Bedrock adapts the AWS Bedrock Converse API to capability.LanguageModel.
// It uses the non-streaming Converse call for Chat and the ConverseStream
// call for ChatStream, the same split the Converse API itself offers.
type Bedrock struct {
	client *bedrockruntime.Client
	model  string
}

// NewBedrock constructs a Bedrock adapter, loading AWS credentials from the
// explicit fields in cfg if present, or the default credential chain
// (environment, shared config, IAM role) otherwise.
func NewBedrock(ctx context.Context, cfg BedrockConfig) (*Bedrock, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic.claude-3-sonnet-20240229-v1:0"
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("providers: bedrock: load AWS config: %w", err)
	}

	return &Bedrock{client: bedrockruntime.NewFromConfig(awsCfg), model: cfg.DefaultModel}, nil
}

func convertMessagesBedrock(messages []capability.Message) (system []types.SystemContentBlock, out []types.Message) {
	for _, m := range messages {
		if m.Role == capability.RoleSystem {
			system = append(system, &types.SystemContentBlockMemberText{Value: m.Content})
			continue
		}
		role := types.ConversationRoleUser
		if m.Role == capability.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		out = append(out, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}
	return system, out
}

func convertToolsBedrock(tools []capability.ToolDescription) *types.ToolConfiguration {
	if len(tools) == 0 {
		return nil
	}
	specs := make([]types.Tool, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(t.Name),
				Description: aws.String(t.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(t.Parameters),
				},
			},
		})
	}
	return &types.ToolConfiguration{Tools: specs}
}

// Chat performs a single non-streaming Converse call.
func (b *Bedrock) Chat(ctx context.Context, messages []capability.Message, tools []capability.ToolDescription, outputSchema map[string]any) (capability.ChatResponse, error) {
	system, msgs := convertMessagesBedrock(messages)

	out, err := b.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:    aws.String(b.model),
		Messages:   msgs,
		System:     system,
		ToolConfig: convertToolsBedrock(tools),
	})
	if err != nil {
		return capability.ChatResponse{}, fmt.Errorf("providers: bedrock converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return capability.ChatResponse{}, fmt.Errorf("providers: bedrock converse: unexpected output shape")
	}

	var resp capability.ChatResponse
	for _, block := range msg.Value.Content {
		switch v := block.(type) {
		case *types.ContentBlockMemberText:
			resp.Text += v.Value
		case *types.ContentBlockMemberToolUse:
			args, _ := json.Marshal(v.Value.Input)
			resp.ToolCalls = append(resp.ToolCalls, capability.RequestedToolCall{
				ID: aws.ToString(v.Value.ToolUseId), Name: aws.ToString(v.Value.Name), Arguments: string(args),
			})
		}
	}
	if out.Usage != nil {
		resp.Usage = &capability.Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}
	return resp, nil
}

// ChatStream performs a streaming ConverseStream call, forwarding text
// deltas and emitting each tool_use block once its input JSON closes.
func (b *Bedrock) ChatStream(ctx context.Context, messages []capability.Message, tools []capability.ToolDescription, outputSchema map[string]any) (<-chan capability.StreamResponse, <-chan error) {
	out := make(chan capability.StreamResponse)
	errs := make(chan error, 1)

	system, msgs := convertMessagesBedrock(messages)

	go func() {
		defer close(out)
		defer close(errs)

		resp, err := b.client.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
			ModelId:    aws.String(b.model),
			Messages:   msgs,
			System:     system,
			ToolConfig: convertToolsBedrock(tools),
		})
		if err != nil {
			errs <- fmt.Errorf("providers: bedrock converse stream: %w", err)
			return
		}

		stream := resp.GetStream()
		defer stream.Close()

		var toolName, toolID string
		var toolArgs string

		for event := range stream.Events() {
			switch v := event.(type) {
			case *types.ConverseStreamOutputMemberContentBlockStart:
				if start, ok := v.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
					toolName = aws.ToString(start.Value.Name)
					toolID = aws.ToString(start.Value.ToolUseId)
					toolArgs = ""
				}
			case *types.ConverseStreamOutputMemberContentBlockDelta:
				switch d := v.Value.Delta.(type) {
				case *types.ContentBlockDeltaMemberText:
					if d.Value != "" {
						select {
						case out <- capability.StreamResponse{Choices: []capability.StreamChoice{{Delta: capability.StreamDelta{Content: d.Value}}}}:
						case <-ctx.Done():
							errs <- ctx.Err()
							return
						}
					}
				case *types.ContentBlockDeltaMemberToolUse:
					toolArgs += aws.ToString(d.Value.Input)
				}
			case *types.ConverseStreamOutputMemberContentBlockStop:
				if toolName != "" {
					tc := capability.RequestedToolCall{ID: toolID, Name: toolName, Arguments: toolArgs}
					select {
					case out <- capability.StreamResponse{Choices: []capability.StreamChoice{{Delta: capability.StreamDelta{ToolCall: &tc}}}}:
					case <-ctx.Done():
						errs <- ctx.Err()
						return
					}
					toolName = ""
				}
			}
		}
		if err := stream.Err(); err != nil {
			errs <- fmt.Errorf("providers: bedrock stream: %w", err)
		}
	}()

	return out, errs
}

var _ capability.LanguageModel = (*Bedrock)(nil)
