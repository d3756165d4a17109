package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/missionmesh/collab"
)

// notifyAgentTool sends a collaboration message to a named agent (or to all
// agents) through the mailbox hub.
type notifyAgentTool struct {
	hub  *collab.Hub
	from string
}

// NewNotifyAgentTool constructs the notification tool for a sending agent.
func NewNotifyAgentTool(hub *collab.Hub, from string) Tool {
	return &notifyAgentTool{hub: hub, from: from}
}

func (t *notifyAgentTool) Name() string { return "notify_agent" }

func (t *notifyAgentTool) Description() string {
	return "Send a short note to another agent by name, or to 'broadcast' to reach every agent. " +
		"Use to share findings other agents need."
}

func (t *notifyAgentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to":      map[string]any{"type": "string", "description": "Target agent name, or 'broadcast'"},
			"message": map[string]any{"type": "string", "description": "Note content"},
		},
		"required": []string{"to", "message"},
	}
}

func (t *notifyAgentTool) Call(_ context.Context, args map[string]any) (any, error) {
	to, ok := args["to"].(string)
	if !ok || to == "" {
		return nil, fmt.Errorf("field 'to' must be a non-empty string")
	}
	message, ok := args["message"].(string)
	if !ok || message == "" {
		return nil, fmt.Errorf("field 'message' must be a non-empty string")
	}

	delivered := t.hub.Send(t.from, to, message)
	return map[string]any{"delivered": len(delivered), "to": to}, nil
}
