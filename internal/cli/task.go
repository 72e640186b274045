package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/antigravity-dev/taskhub/internal/domain"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Publish, claim, and work tasks"}
	cmd.AddCommand(newTaskPublishCmd())
	cmd.AddCommand(newTaskClaimCmd())
	cmd.AddCommand(newTaskStartCmd())
	cmd.AddCommand(newTaskCompleteCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskArchiveCmd())
	cmd.AddCommand(newTaskDeleteCmd())
	return cmd
}

func newTaskPublishCmd() *cobra.Command {
	var name, details, requiredSkill, taskType, dependsOnFlag string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a new task",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			var dependsOn []string
			if dependsOnFlag != "" {
				dependsOn = strings.Split(dependsOnFlag, ",")
			}
			tt := domain.TaskNormal
			if taskType != "" {
				tt = domain.TaskType(taskType)
			}
			t, err := orch.TaskPublish(context.Background(), callerHeaders(cmd), name, details, requiredSkill, dependsOn, tt)
			return printResult(t, err)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "task title (required)")
	cmd.Flags().StringVar(&details, "details", "", "task instructions/prompt (required)")
	cmd.Flags().StringVar(&requiredSkill, "required-skill", "", "skill domain a claiming hunter must have (required)")
	cmd.Flags().StringVar(&taskType, "task-type", "", `"NORMAL" or "EVALUATION", defaults to NORMAL`)
	cmd.Flags().StringVar(&dependsOnFlag, "depends-on", "", "comma-separated task IDs this task depends on")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("details")
	cmd.MarkFlagRequired("required-skill")
	return cmd
}

func newTaskClaimCmd() *cobra.Command {
	var taskID string
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim an unclaimed task",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			t, err := orch.TaskClaim(context.Background(), callerHeaders(cmd), taskID)
			return printResult(t, err)
		},
	}
	cmd.Flags().StringVar(&taskID, "task-id", "", "task to claim (required)")
	cmd.MarkFlagRequired("task-id")
	return cmd
}

func newTaskStartCmd() *cobra.Command {
	var taskID string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Mark a claimed task as in progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			t, err := orch.TaskStart(context.Background(), callerHeaders(cmd), taskID)
			return printResult(t, err)
		},
	}
	cmd.Flags().StringVar(&taskID, "task-id", "", "task to start (required)")
	cmd.MarkFlagRequired("task-id")
	return cmd
}

func newTaskCompleteCmd() *cobra.Command {
	var taskID, result, finalStatus string
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Mark a task as finished",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			status := domain.TaskCompleted
			if finalStatus != "" {
				status = domain.TaskStatus(finalStatus)
			}
			var resultPtr *string
			if result != "" {
				resultPtr = &result
			}
			t, err := orch.TaskComplete(context.Background(), callerHeaders(cmd), taskID, resultPtr, status)
			return printResult(t, err)
		},
	}
	cmd.Flags().StringVar(&taskID, "task-id", "", "task to complete (required)")
	cmd.Flags().StringVar(&result, "result", "", "outcome description")
	cmd.Flags().StringVar(&finalStatus, "final-status", "", `defaults to "completed"`)
	cmd.MarkFlagRequired("task-id")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var status, requiredSkill, hunterID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			var filter domain.TaskFilter
			if status != "" {
				s := domain.TaskStatus(status)
				filter.Status = &s
			}
			if requiredSkill != "" {
				filter.RequiredSkill = &requiredSkill
			}
			if hunterID != "" {
				filter.HunterID = &hunterID
			}
			tasks, err := orch.TaskList(context.Background(), callerHeaders(cmd), filter)
			return printResult(tasks, err)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by task status")
	cmd.Flags().StringVar(&requiredSkill, "required-skill", "", "filter by required skill")
	cmd.Flags().StringVar(&hunterID, "assignee", "", "filter by assigned hunter")
	return cmd
}

func newTaskArchiveCmd() *cobra.Command {
	var taskID string
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive a terminal task",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			t, err := orch.TaskArchive(context.Background(), callerHeaders(cmd), taskID)
			return printResult(t, err)
		},
	}
	cmd.Flags().StringVar(&taskID, "task-id", "", "task to archive (required)")
	cmd.MarkFlagRequired("task-id")
	return cmd
}

func newTaskDeleteCmd() *cobra.Command {
	var taskID string
	var force bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Permanently delete a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestratorFor(cmd)
			if err != nil {
				return printResult(nil, err)
			}
			err = orch.TaskDelete(context.Background(), callerHeaders(cmd), taskID, force)
			return printResult(nil, err)
		},
	}
	cmd.Flags().StringVar(&taskID, "task-id", "", "task to delete (required)")
	cmd.Flags().BoolVar(&force, "force", false, "delete even if the task is currently claimed")
	cmd.MarkFlagRequired("task-id")
	return cmd
}
