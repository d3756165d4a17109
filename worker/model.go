package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/hupe1980/missionmesh/core"
	"github.com/hupe1980/missionmesh/internal/util"
	"github.com/hupe1980/missionmesh/logging"
	"github.com/hupe1980/missionmesh/model"
	"github.com/hupe1980/missionmesh/tool"
)

// ModelWorkerOptions configures a ModelWorker instance.
//
// Use functional options with NewModelWorker to override defaults.
type ModelWorkerOptions struct {
	// Description is advertised in the worker catalog and guides the
	// orchestrator's task routing.
	Description string
	// Instruction becomes the system prompt. Template variables of the form
	// {{name}} are substituted from the task metadata.
	Instruction Instruction
	// Tools enables function calling when non-nil.
	Tools *tool.Registry
	// MaxToolRounds bounds the generate/execute loop.
	MaxToolRounds int
	// ToolTimeout caps each individual tool call.
	ToolTimeout time.Duration
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// ModelWorker executes tasks by conversing with a language model, optionally
// calling registered tools until the model produces a final text answer. It
// implements core.Worker and core.StreamingWorker.
type ModelWorker struct {
	info          core.WorkerInfo
	llm           model.Model
	instruction   Instruction
	tools         *tool.Registry
	maxToolRounds int
	toolTimeout   time.Duration
	logger        logging.Logger
}

// NewModelWorker creates a model-backed worker with sensible defaults: a
// generic assistant instruction, no tools, five tool rounds and a 15 second
// per-tool timeout.
func NewModelWorker(name string, llm model.Model, optFns ...func(o *ModelWorkerOptions)) *ModelWorker {
	opts := ModelWorkerOptions{
		Instruction:   NewInstructionFromText(fmt.Sprintf("You are %s, a focused worker agent. Complete the task you are given and reply with the result only.", name)),
		MaxToolRounds: 5,
		ToolTimeout:   15 * time.Second,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &ModelWorker{
		info: core.WorkerInfo{
			ID:          name,
			Name:        name,
			Description: opts.Description,
		},
		llm:           llm,
		instruction:   opts.Instruction,
		tools:         opts.Tools,
		maxToolRounds: opts.MaxToolRounds,
		toolTimeout:   opts.ToolTimeout,
		logger:        opts.Logger,
	}
}

// Info implements core.Worker.
func (w *ModelWorker) Info() core.WorkerInfo { return w.info }

// Invoke implements core.Worker. The model is queried in a loop: tool calls
// in a response are executed against the registry and fed back until the
// model answers with plain text or the round limit is hit.
func (w *ModelWorker) Invoke(ctx context.Context, req core.WorkRequest) (*core.WorkResult, error) {
	messages, toolDefs, err := w.prepare(req)
	if err != nil {
		return nil, err
	}

	var trace []core.ToolCallTrace
	usage := &core.UsageMetadata{}

	for round := 0; round <= w.maxToolRounds; round++ {
		resp, err := model.GenerateSync(ctx, w.llm, model.Request{Messages: messages, Tools: toolDefs})
		if err != nil {
			return nil, fmt.Errorf("worker %s: %w", w.info.Name, err)
		}
		accumulateUsage(usage, resp.Usage)

		if len(resp.Message.ToolCalls) == 0 || w.tools == nil {
			return &core.WorkResult{Text: resp.Message.Text, ToolCalls: trace, Usage: usage}, nil
		}

		messages = append(messages, resp.Message)
		responses := make([]model.ToolResponse, 0, len(resp.Message.ToolCalls))
		for _, call := range resp.Message.ToolCalls {
			tr, entry := w.executeToolCall(ctx, call)
			responses = append(responses, tr)
			trace = append(trace, entry)
		}
		messages = append(messages, model.Message{Role: "tool", ToolResponses: responses})
	}

	return nil, fmt.Errorf("worker %s: tool round limit (%d) exceeded", w.info.Name, w.maxToolRounds)
}

// InvokeStream implements core.StreamingWorker. Partial text arrives as it is
// generated; tool calls are surfaced as trace chunks between rounds.
func (w *ModelWorker) InvokeStream(ctx context.Context, req core.WorkRequest) (<-chan core.WorkChunk, <-chan error) {
	chunkCh := make(chan core.WorkChunk, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunkCh)
		defer close(errCh)

		messages, toolDefs, err := w.prepare(req)
		if err != nil {
			errCh <- err
			return
		}

		for round := 0; round <= w.maxToolRounds; round++ {
			respCh, genErrCh := w.llm.Generate(ctx, model.Request{Messages: messages, Tools: toolDefs, Stream: true})

			var final *model.Response
			for resp := range respCh {
				if resp.Partial {
					if resp.Message.Text != "" {
						select {
						case chunkCh <- core.WorkChunk{Text: resp.Message.Text}:
						case <-ctx.Done():
							errCh <- ctx.Err()
							return
						}
					}
					continue
				}
				r := resp
				final = &r
			}
			if err := <-genErrCh; err != nil {
				errCh <- fmt.Errorf("worker %s: %w", w.info.Name, err)
				return
			}
			if final == nil {
				errCh <- fmt.Errorf("worker %s: model produced no final response", w.info.Name)
				return
			}

			if len(final.Message.ToolCalls) == 0 || w.tools == nil {
				chunkCh <- core.WorkChunk{Text: final.Message.Text, Final: true}
				return
			}

			messages = append(messages, final.Message)
			responses := make([]model.ToolResponse, 0, len(final.Message.ToolCalls))
			for _, call := range final.Message.ToolCalls {
				tr, entry := w.executeToolCall(ctx, call)
				responses = append(responses, tr)
				e := entry
				select {
				case chunkCh <- core.WorkChunk{ToolCall: &e}:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
			messages = append(messages, model.Message{Role: "tool", ToolResponses: responses})
		}

		errCh <- fmt.Errorf("worker %s: tool round limit (%d) exceeded", w.info.Name, w.maxToolRounds)
	}()

	return chunkCh, errCh
}

// prepare resolves the instruction and builds the initial message window for
// the task, including dependency context when present.
func (w *ModelWorker) prepare(req core.WorkRequest) ([]model.Message, []model.ToolDefinition, error) {
	system, err := w.instruction.Resolve(req)
	if err != nil {
		return nil, nil, fmt.Errorf("worker %s: resolve instruction: %w", w.info.Name, err)
	}
	if len(req.Metadata) > 0 {
		system = util.SubstituteVars(system, req.Metadata)
	}

	user := req.Prompt
	if req.Context != "" {
		user = fmt.Sprintf("%s\n\nContext from earlier tasks:\n%s", req.Prompt, req.Context)
	}

	messages := []model.Message{
		{Role: "system", Text: system},
		{Role: "user", Text: user},
	}

	var toolDefs []model.ToolDefinition
	if w.tools != nil {
		toolDefs = w.tools.Definitions()
	}
	return messages, toolDefs, nil
}

// executeToolCall runs one requested tool call. Failures are reported back to
// the model as tool errors rather than aborting the invocation, so it can
// recover or rephrase.
func (w *ModelWorker) executeToolCall(ctx context.Context, call model.ToolCall) (model.ToolResponse, core.ToolCallTrace) {
	resp := model.ToolResponse{ID: call.ID, Name: call.Name}
	entry := core.ToolCallTrace{Name: call.Name, Arguments: string(call.Arguments)}

	t, ok := w.tools.Get(call.Name)
	if !ok {
		resp.Error = fmt.Sprintf("tool %s not found", call.Name)
		entry.Result = resp.Error
		return resp, entry
	}

	args, err := decodeToolArgs(call.Arguments)
	if err != nil {
		resp.Error = fmt.Sprintf("invalid arguments: %v", err)
		entry.Result = resp.Error
		return resp, entry
	}

	callCtx := ctx
	if w.toolTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, w.toolTimeout)
		defer cancel()
	}

	result, err := t.Call(callCtx, args)
	if err != nil {
		w.logger.Warn("tool call failed", "worker", w.info.Name, "tool", call.Name, "error", err)
		resp.Error = err.Error()
		entry.Result = resp.Error
		return resp, entry
	}

	resp.Result = stringifyToolResult(result)
	entry.Result = resp.Result
	return resp, entry
}

// decodeToolArgs parses tool-call arguments, repairing the JSON when a model
// emits damaged syntax.
func decodeToolArgs(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	args := map[string]any{}
	if err := json.Unmarshal(raw, &args); err == nil {
		return args, nil
	}

	repaired, err := jsonrepair.JSONRepair(string(raw))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		return nil, err
	}
	return args, nil
}

func stringifyToolResult(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func accumulateUsage(total *core.UsageMetadata, delta *core.UsageMetadata) {
	if delta == nil {
		return
	}
	total.PromptTokens += delta.PromptTokens
	total.CompletionTokens += delta.CompletionTokens
	total.TotalTokens += delta.TotalTokens
}
