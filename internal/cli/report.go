package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/antigravity-dev/taskhub/internal/domain"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Submit and evaluate task reports"}
	cmd.AddCommand(newReportSubmitCmd())
	cmd.AddCommand(newReportEvaluateCmd())
	return cmd
}

func newReportSubmitCmd() *cobra.Command {
	var taskID, finalStatus, result, details string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a report for a completed task",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			var resultPtr, detailsPtr *string
			if result != "" {
				resultPtr = &result
			}
			if details != "" {
				detailsPtr = &details
			}
			res, err := orch.ReportSubmit(context.Background(), callerHeaders(cmd), taskID, domain.TaskStatus(finalStatus), resultPtr, detailsPtr)
			return printResult(res, err)
		},
	}
	cmd.Flags().StringVar(&taskID, "task-id", "", "completed task this report covers (required)")
	cmd.Flags().StringVar(&finalStatus, "final-status", "", `e.g. "completed" or "failed" (required)`)
	cmd.Flags().StringVar(&result, "result", "", "outcome summary")
	cmd.Flags().StringVar(&details, "details", "", "additional detail for the evaluator")
	cmd.MarkFlagRequired("task-id")
	cmd.MarkFlagRequired("final-status")
	return cmd
}

func newReportEvaluateCmd() *cobra.Command {
	var reportID, feedback, skillsFlag string
	var score int
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score and evaluate a submitted report",
		RunE: func(cmd *cobra.Command, args []string) error {
			skillUpdates, err := parseSkills(skillsFlag)
			if err != nil {
				return printResult(nil, err)
			}
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			res, err := orch.ReportEvaluate(context.Background(), callerHeaders(cmd), reportID, score, feedback, skillUpdates)
			return printResult(res, err)
		},
	}
	cmd.Flags().StringVar(&reportID, "report-id", "", "report to evaluate (required)")
	cmd.Flags().IntVar(&score, "score", 0, "score from 0-100 (required)")
	cmd.Flags().StringVar(&feedback, "feedback", "", "free-form feedback for the reporting hunter")
	cmd.Flags().StringVar(&skillsFlag, "skill-updates", "", "comma-separated name=delta pairs added to the reporting hunter's skill levels")
	cmd.MarkFlagRequired("report-id")
	cmd.MarkFlagRequired("score")
	return cmd
}
