package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentcore/runtime/internal/config"
	"github.com/agentcore/runtime/internal/executor"
	"github.com/agentcore/runtime/internal/memory"
	"github.com/agentcore/runtime/internal/providers"
	"github.com/agentcore/runtime/internal/telemetry"
	"github.com/agentcore/runtime/internal/toolproc"
	"github.com/agentcore/runtime/pkg/capability"
	"github.com/agentcore/runtime/pkg/protocol"
)

type runFlags struct {
	provider   string
	model      string
	prompt     string
	configPath string
	maxTurns   int
	stream     bool
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a single ReAct task against a chosen LLM backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.provider, "provider", "anthropic", "LLM backend: anthropic, openai, bedrock, or google")
	cmd.Flags().StringVar(&flags.model, "model", "", "model id override; defaults to the backend's built-in default")
	cmd.Flags().StringVar(&flags.prompt, "prompt", "What is 6 times 7?", "task prompt")
	cmd.Flags().StringVar(&flags.configPath, "config", "", "optional agentcore YAML config path")
	cmd.Flags().IntVar(&flags.maxTurns, "max-turns", 0, "override executor max turns (0 keeps config/default)")
	cmd.Flags().BoolVar(&flags.stream, "stream", false, "use ExecuteStream instead of Execute")

	return cmd
}

func runExecute(cmd *cobra.Command, flags *runFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if flags.maxTurns > 0 {
		cfg.Executor.MaxTurns = flags.maxTurns
	}

	model, err := buildModel(ctx, flags)
	if err != nil {
		return err
	}

	tools := toolproc.NewRegistry()
	tools.Register(calculatorTool{})

	mapper := buildMapper(cfg)

	exec := executor.New("agentctl", "agentctl", model, tools, memory.New(), nil, executor.Config{MaxTurns: cfg.Executor.MaxTurns})
	if mapper != nil {
		exec.Emit = func(e protocol.Event) { mapper.Consume(ctx, e) }
		defer mapper.Close()
	}

	task := protocol.NewTask(flags.prompt, nil)

	var out protocol.ReActAgentOutput
	if flags.stream {
		out, err = runStreamed(ctx, exec, task)
	} else {
		out, err = exec.Execute(ctx, task)
	}
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runStreamed(ctx context.Context, exec *executor.Executor, task protocol.Task) (protocol.ReActAgentOutput, error) {
	outputs, errs := exec.ExecuteStream(ctx, task)
	var last protocol.ReActAgentOutput
	for {
		select {
		case out, ok := <-outputs:
			if !ok {
				outputs = nil
				continue
			}
			last = out
			slog.Debug("stream partial", "done", out.Done, "tool_calls", len(out.ToolCalls))
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return protocol.ReActAgentOutput{}, err
			}
		}
		if outputs == nil && errs == nil {
			return last, nil
		}
	}
}

func buildModel(ctx context.Context, flags *runFlags) (capability.LanguageModel, error) {
	switch flags.provider {
	case "anthropic":
		cfg := providers.AnthropicConfig{APIKey: os.Getenv("ANTHROPIC_API_KEY"), DefaultModel: orDefault(flags.model, "claude-sonnet-4-5")}
		return providers.NewAnthropic(cfg)
	case "openai":
		cfg := providers.OpenAIConfig{APIKey: os.Getenv("OPENAI_API_KEY"), DefaultModel: orDefault(flags.model, "gpt-4o")}
		return providers.NewOpenAI(cfg)
	case "bedrock":
		cfg := providers.BedrockConfig{
			Region:          os.Getenv("AWS_REGION"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			DefaultModel:    orDefault(flags.model, "anthropic.claude-3-5-sonnet-20241022-v2:0"),
		}
		return providers.NewBedrock(ctx, cfg)
	case "google":
		cfg := providers.GoogleConfig{APIKey: os.Getenv("GOOGLE_API_KEY"), DefaultModel: orDefault(flags.model, "gemini-2.0-flash")}
		return providers.NewGoogle(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q", flags.provider)
	}
}

func buildMapper(cfg config.Config) *telemetry.Mapper {
	if cfg.Telemetry.Exporter.OTLP.Endpoint == "" && !cfg.Telemetry.MetricsEnabled {
		return nil
	}

	tracer, _ := telemetry.NewTracer(telemetry.TraceConfig{
		ServiceName:  orDefault(cfg.Telemetry.ServiceName, "agentctl"),
		RuntimeID:    cfg.Telemetry.RuntimeID,
		OTLPEndpoint: cfg.Telemetry.Exporter.OTLP.Endpoint,
		Insecure:     cfg.Telemetry.Exporter.OTLP.Insecure,
	})

	var metrics *telemetry.Metrics
	if cfg.Telemetry.MetricsEnabled {
		metrics = telemetry.NewMetrics()
	}

	redact := telemetry.DefaultRedactor
	redactFields := map[string]bool{
		"task.description": cfg.Telemetry.Redaction.RedactTaskInputs,
		"task.result":      cfg.Telemetry.Redaction.RedactTaskOutputs,
		"tool.arguments":   cfg.Telemetry.Redaction.RedactToolArguments,
		"tool.result":      cfg.Telemetry.Redaction.RedactToolResults,
	}

	return telemetry.New(telemetry.Config{
		Tracer:       tracer,
		Metrics:      metrics,
		Redact:       redact,
		RedactFields: redactFields,
	})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
