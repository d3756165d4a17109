package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/hupe1980/missionmesh/core"
	"github.com/hupe1980/missionmesh/model"
)

// ProposedTask is one task suggested by the analysis step. Dependencies
// reference other proposed tasks by title; Materialize resolves them to ids.
type ProposedTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Worker      string   `json:"worker"`
	Priority    string   `json:"priority,omitempty"`
	DependsOn   []string `json:"depends_on,omitempty"`
}

// Analysis is the structured result of the analyze step. An empty task list
// is valid and equivalent to NeedsPlan=false.
type Analysis struct {
	NeedsPlan bool           `json:"needs_plan"`
	Reasoning string         `json:"reasoning"`
	Tasks     []ProposedTask `json:"tasks,omitempty"`
}

const analyzeSystemPrompt = `You are the orchestrator of a team of worker agents.
Decide whether the user's request needs to be decomposed into delegated tasks.

Available workers:
%s

Respond with JSON only, in this shape:
{
  "needs_plan": true|false,
  "reasoning": "why",
  "tasks": [
    {
      "title": "short unique title",
      "description": "what to do",
      "worker": "worker id from the catalog",
      "priority": "low|medium|high",
      "depends_on": ["titles of tasks this one needs output from"]
    }
  ]
}

Simple requests that one answer can satisfy need no plan. Omit "tasks" when
needs_plan is false.`

// Analyze asks the model whether the request needs decomposition and returns
// its structured verdict. Model errors propagate without retry.
func (o *Orchestrator) Analyze(ctx context.Context, request string) (*Analysis, error) {
	catalog := o.workerCatalog()
	req := model.Request{
		Messages: []model.Message{
			{Role: "system", Text: fmt.Sprintf(analyzeSystemPrompt, catalog)},
			{Role: "user", Text: request},
		},
	}

	resp, err := model.GenerateSync(ctx, o.model, req)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	var analysis Analysis
	if err := decodeStructured(resp.Message.Text, &analysis); err != nil {
		return nil, fmt.Errorf("analyze: malformed model output: %w", err)
	}
	if len(analysis.Tasks) == 0 {
		analysis.NeedsPlan = false
	}

	o.logger.Debug("analysis finished", "needs_plan", analysis.NeedsPlan, "tasks", len(analysis.Tasks))
	return &analysis, nil
}

func (o *Orchestrator) workerCatalog() string {
	var sb strings.Builder
	for _, info := range o.executor.Workers() {
		fmt.Fprintf(&sb, "- id: %s, name: %s, description: %s\n", info.ID, info.Name, info.Description)
	}
	if sb.Len() == 0 {
		return "(no workers registered)"
	}
	return sb.String()
}

// decodeStructured parses model-produced JSON, stripping code fences and
// repairing common syntax damage before giving up.
func decodeStructured(text string, v any) error {
	cleaned := stripCodeFence(text)
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}
	return json.Unmarshal([]byte(repaired), v)
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// Materialize turns an analysis into a pending plan. Dependency titles are
// resolved to task ids; a dependency naming an unknown title drops that edge
// with a warning instead of failing the plan.
func (o *Orchestrator) Materialize(analysis *Analysis, goal string) (*core.Plan, error) {
	plan := core.NewPlan(goal)

	idByTitle := make(map[string]string, len(analysis.Tasks))
	tasks := make([]*core.Task, 0, len(analysis.Tasks))
	for _, pt := range analysis.Tasks {
		task := core.NewTask(pt.Title, pt.Description, func(to *core.TaskOptions) {
			to.Assignee = pt.Worker
			to.Priority = core.Priority(pt.Priority)
		})
		idByTitle[pt.Title] = task.ID
		tasks = append(tasks, task)
	}

	for i, pt := range analysis.Tasks {
		for _, depTitle := range pt.DependsOn {
			depID, ok := idByTitle[depTitle]
			if !ok {
				o.logger.Warn("dropping dependency on unknown task title", "task", pt.Title, "dependency", depTitle)
				continue
			}
			tasks[i].Dependencies = append(tasks[i].Dependencies, core.Dependency{TaskID: depID, Required: true})
		}
		if err := plan.AddTask(tasks[i]); err != nil {
			return nil, fmt.Errorf("materialize: %w", err)
		}
	}

	return plan, nil
}
