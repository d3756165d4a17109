// Package anthropic provides a model wrapper for the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/hupe1980/missionmesh/model"
)

// Options configures the Anthropic model adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Model wraps the Anthropic Messages API behind the generic model.Model
// interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// Generate implements model.Model. Streaming is not supported by this
// adapter yet; requests with Stream set fail fast so callers can fall back
// to the single-shot mode.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		if req.Stream {
			errCh <- fmt.Errorf("streaming not yet implemented for anthropic model")
			return
		}

		params := anthropic.MessageNewParams{
			Model:       m.opts.Model,
			Messages:    buildMessages(req.Messages),
			MaxTokens:   m.opts.MaxTokens,
			Temperature: anthropic.Float(m.opts.Temperature),
		}
		if system := systemBlocks(req.Messages); len(system) > 0 {
			params.System = system
		}
		if len(req.Tools) > 0 {
			params.Tools = buildTools(req.Tools)
		}

		resp, err := m.client.Messages.New(ctx, params)
		if err != nil {
			errCh <- fmt.Errorf("anthropic api error: %w", err)
			return
		}

		out <- toResponse(resp)
	}()

	return out, errCh
}

// buildMessages converts normalized messages to the Anthropic format. Tool
// responses are folded into user-role tool_result blocks, which is how the
// Messages API expects them.
func buildMessages(messages []model.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			continue // handled via params.System
		case "assistant":
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Text))
			}
			for _, tc := range msg.ToolCalls {
				var input any
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &input); err != nil {
						input = string(tc.Arguments)
					}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		case "tool":
			var blocks []anthropic.ContentBlockParamUnion
			for _, tr := range msg.ToolResponses {
				blocks = append(blocks, anthropic.NewToolResultBlock(tr.ID, tr.Result, tr.Error != ""))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		default: // user and unknown roles
			if msg.Text != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text)))
			}
		}
	}

	return out
}

func systemBlocks(messages []model.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, msg := range messages {
		if msg.Role == "system" && msg.Text != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: msg.Text})
		}
	}
	return blocks
}

func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if tool.Parameters != nil {
			if properties, ok := tool.Parameters["properties"]; ok {
				schema.Properties = properties
			}
			schema.Required = requiredFields(tool.Parameters)
		}
		out[i] = anthropic.ToolUnionParamOfTool(schema, tool.Name)
	}
	return out
}

// requiredFields tolerates both []string and []any shapes in the schema.
func requiredFields(params map[string]any) []string {
	raw, ok := params["required"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toResponse(resp *anthropic.Message) model.Response {
	msg := model.Message{Role: "assistant"}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			msg.Text += block.AsText().Text
		case "tool_use":
			tu := block.AsToolUse()
			var args json.RawMessage
			if tu.Input != nil {
				if b, err := json.Marshal(tu.Input); err == nil {
					args = b
				}
			}
			msg.ToolCalls = append(msg.ToolCalls, model.ToolCall{ID: tu.ID, Name: tu.Name, Arguments: args})
		}
	}

	finishReason := "stop"
	if resp.StopReason != "" {
		finishReason = string(resp.StopReason)
	}

	return model.Response{
		ID:           resp.ID,
		Partial:      false,
		Message:      msg,
		FinishReason: finishReason,
	}
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          string(m.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}
