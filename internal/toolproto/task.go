package toolproto

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/antigravity-dev/taskhub/internal/domain"
)

func (d *Dispatcher) registerTaskTools() {
	d.register(Tool{
		Name:        "taskhub.task.publish",
		Description: "Publish a new task. 'details' should read as a self-contained prompt for whichever hunter ends up claiming it, since that hunter has no other context on why the task exists.",
		Schema: schemaObject(map[string]any{
			"name":           stringProp("Short task title."),
			"details":        stringProp("Full task instructions/prompt."),
			"required_skill": stringProp("Skill domain a claiming hunter must have."),
			"task_type":      stringProp(`"NORMAL" or "EVALUATION"; defaults to "NORMAL".`),
			"depends_on": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Task IDs this one depends on. Recorded on the task; claiming does not check them.",
			},
		}, "name", "details", "required_skill"),
		Handler: func(ctx context.Context, header http.Header, args json.RawMessage) (any, error) {
			var in struct {
				Name          string   `json:"name"`
				Details       string   `json:"details"`
				RequiredSkill string   `json:"required_skill"`
				TaskType      string   `json:"task_type"`
				DependsOn     []string `json:"depends_on"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, badArgs(err)
			}
			taskType := domain.TaskNormal
			if in.TaskType != "" {
				taskType = domain.TaskType(in.TaskType)
			}
			return d.orch.TaskPublish(ctx, header, in.Name, in.Details, in.RequiredSkill, in.DependsOn, taskType)
		},
	})

	d.register(Tool{
		Name:        "taskhub.task.claim",
		Description: "Claim an unclaimed task for yourself. A hunter cannot claim a task it published itself.",
		Schema:      schemaObject(map[string]any{"task_id": stringProp("Task to claim.")}, "task_id"),
		Handler: func(ctx context.Context, header http.Header, args json.RawMessage) (any, error) {
			taskID, err := decodeTaskID(args)
			if err != nil {
				return nil, err
			}
			return d.orch.TaskClaim(ctx, header, taskID)
		},
	})

	d.register(Tool{
		Name:        "taskhub.task.start",
		Description: "Mark a task you've claimed as in progress.",
		Schema:      schemaObject(map[string]any{"task_id": stringProp("Task to start.")}, "task_id"),
		Handler: func(ctx context.Context, header http.Header, args json.RawMessage) (any, error) {
			taskID, err := decodeTaskID(args)
			if err != nil {
				return nil, err
			}
			return d.orch.TaskStart(ctx, header, taskID)
		},
	})

	d.register(Tool{
		Name:        "taskhub.task.complete",
		Description: "Mark a task you're working as finished, with a free-form result. This does not submit a report or spawn an evaluation task; report.submit does that.",
		Schema: schemaObject(map[string]any{
			"task_id":      stringProp("Task to complete."),
			"result":       stringProp("Outcome description."),
			"final_status": stringProp(`Terminal status, e.g. "completed" or "failed"; defaults to "completed".`),
		}, "task_id"),
		Handler: func(ctx context.Context, header http.Header, args json.RawMessage) (any, error) {
			var in struct {
				TaskID      string `json:"task_id"`
				Result      string `json:"result"`
				FinalStatus string `json:"final_status"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, badArgs(err)
			}
			status := domain.TaskCompleted
			if in.FinalStatus != "" {
				status = domain.TaskStatus(in.FinalStatus)
			}
			var result *string
			if in.Result != "" {
				result = &in.Result
			}
			return d.orch.TaskComplete(ctx, header, in.TaskID, result, status)
		},
	})

	d.register(Tool{
		Name:        "taskhub.task.list",
		Description: "List tasks, optionally filtered by status, required skill, or assigned hunter. Works without a resolved namespace header, falling back to the server's default namespace.",
		Schema: schemaObject(map[string]any{
			"status":         stringProp("Filter by task status."),
			"required_skill": stringProp("Filter by required skill."),
			"hunter_id":      stringProp("Filter by assigned hunter."),
		}),
		Handler: func(ctx context.Context, header http.Header, args json.RawMessage) (any, error) {
			var in struct {
				Status        string `json:"status"`
				RequiredSkill string `json:"required_skill"`
				HunterID      string `json:"hunter_id"`
			}
			if len(args) > 0 {
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, badArgs(err)
				}
			}
			var filter domain.TaskFilter
			if in.Status != "" {
				s := domain.TaskStatus(in.Status)
				filter.Status = &s
			}
			if in.RequiredSkill != "" {
				filter.RequiredSkill = &in.RequiredSkill
			}
			if in.HunterID != "" {
				filter.HunterID = &in.HunterID
			}
			return d.orch.TaskList(ctx, header, filter)
		},
	})

	d.register(Tool{
		Name:        "taskhub.task.archive",
		Description: "Archive a completed or failed task without deleting it. task.list still returns archived tasks.",
		Schema:      schemaObject(map[string]any{"task_id": stringProp("Task to archive.")}, "task_id"),
		Handler: func(ctx context.Context, header http.Header, args json.RawMessage) (any, error) {
			taskID, err := decodeTaskID(args)
			if err != nil {
				return nil, err
			}
			return d.orch.TaskArchive(ctx, header, taskID)
		},
	})

	d.register(Tool{
		Name:        "taskhub.task.delete",
		Description: "Permanently delete a task. Requires force=true for a task that is currently claimed.",
		Schema: schemaObject(map[string]any{
			"task_id": stringProp("Task to delete."),
			"force":   map[string]any{"type": "boolean", "description": "Delete even if the task is currently claimed."},
		}, "task_id"),
		Handler: func(ctx context.Context, header http.Header, args json.RawMessage) (any, error) {
			var in struct {
				TaskID string `json:"task_id"`
				Force  bool   `json:"force"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, badArgs(err)
			}
			return nil, d.orch.TaskDelete(ctx, header, in.TaskID, in.Force)
		},
	})
}

func decodeTaskID(args json.RawMessage) (string, error) {
	var in struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", badArgs(err)
	}
	return in.TaskID, nil
}
