package toolproto

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/antigravity-dev/taskhub/internal/domain"
)

func (d *Dispatcher) registerReportTools() {
	d.register(Tool{
		Name:        "taskhub.report.submit",
		Description: "Submit a report for a task you completed. This is what actually spawns the evaluation workflow; task.complete alone does not.",
		Schema: schemaObject(map[string]any{
			"task_id":      stringProp("Completed task this report covers."),
			"final_status": stringProp(`Status to record, e.g. "completed" or "failed".`),
			"result":       stringProp("Outcome summary."),
			"details":      stringProp("Additional detail for the evaluator."),
		}, "task_id", "final_status"),
		Handler: func(ctx context.Context, header http.Header, args json.RawMessage) (any, error) {
			var in struct {
				TaskID      string `json:"task_id"`
				FinalStatus string `json:"final_status"`
				Result      string `json:"result"`
				Details     string `json:"details"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, badArgs(err)
			}
			var result, details *string
			if in.Result != "" {
				result = &in.Result
			}
			if in.Details != "" {
				details = &in.Details
			}
			return d.orch.ReportSubmit(ctx, header, in.TaskID, domain.TaskStatus(in.FinalStatus), result, details)
		},
	})

	d.register(Tool{
		Name:        "taskhub.report.evaluate",
		Description: "Evaluate a submitted report: score it, leave feedback, and optionally adjust the reporting hunter's skills. A hunter cannot evaluate its own report.",
		Schema: schemaObject(map[string]any{
			"report_id": stringProp("Report to evaluate."),
			"score":     map[string]any{"type": "integer", "description": "Score from 0-100."},
			"feedback":  stringProp("Free-form feedback for the reporting hunter."),
			"skill_updates": map[string]any{
				"type":                 "object",
				"description":          "Skill name -> delta, scaled by the task's priority bonus and added to the reporting hunter's level for that skill (clamped to 0-100).",
				"additionalProperties": map[string]any{"type": "integer"},
			},
		}, "report_id", "score"),
		Handler: func(ctx context.Context, header http.Header, args json.RawMessage) (any, error) {
			var in struct {
				ReportID     string         `json:"report_id"`
				Score        int            `json:"score"`
				Feedback     string         `json:"feedback"`
				SkillUpdates map[string]int `json:"skill_updates"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, badArgs(err)
			}
			return d.orch.ReportEvaluate(ctx, header, in.ReportID, in.Score, in.Feedback, in.SkillUpdates)
		},
	})
}
