// Package domain holds the core Taskhub entities: hunters, tasks, reports,
// evaluations, and discussion messages. These types are the shapes the
// store persists and the services mutate; they carry no storage or
// transport concerns of their own.
package domain

import "time"

// TaskStatus is a task's position in the lifecycle FSM.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskClaimed    TaskStatus = "claimed"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskArchived   TaskStatus = "archived"
)

// TaskType distinguishes hunter-published work from system-generated
// evaluation work and hunter-requested research work.
type TaskType string

const (
	TaskNormal     TaskType = "NORMAL"
	TaskEvaluation TaskType = "EVALUATION"
	TaskResearch   TaskType = "RESEARCH"
)

// SystemHunterID is the synthetic publisher identity used for
// system-generated tasks (evaluation tasks spawned by report.submit).
const SystemHunterID = "system"

// Hunter is an autonomous agent identity: its skills, reputation, and
// current workload.
type Hunter struct {
	ID                          string
	Skills                      map[string]int
	Reputation                  int
	Status                      string // "active" | "inactive"
	CurrentTasks                []string
	CompletedTasks              int
	FailedTasks                 int
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
	LastReadDiscussionTimestamp *time.Time
}

// HunterActive is the default/expected hunter status.
const (
	HunterActive   = "active"
	HunterInactive = "inactive"
)

// Task is a unit of work with a required skill, a lifecycle status, and
// optional dependencies.
type Task struct {
	ID                  string
	Name                string
	Details             string
	RequiredSkill       string
	Status              TaskStatus
	Priority            int
	TaskType            TaskType
	HunterID            *string
	PublishedByHunterID *string
	LeaseID             *string
	LeaseExpiresAt      *time.Time
	DependsOn           []string
	ParentTaskID        *string
	ReportID            *string
	Evaluation          *TaskEvaluationRecord
	Result              *string
	IsArchived           bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TaskEvaluationRecord is a denormalized mirror of the winning ReportEvaluation,
// stored on EVALUATION-tracking tasks purely for list/read convenience; the
// canonical evaluation lives on the Report.
type TaskEvaluationRecord struct {
	Score       int            `json:"score"`
	Feedback    string         `json:"feedback"`
	EvaluatorID string         `json:"evaluator_id"`
	SkillUpdates map[string]int `json:"skill_updates"`
	EvaluatedAt time.Time      `json:"evaluated_at"`
}

// Report is a hunter's submission for a task it completed or failed.
type Report struct {
	ID         string
	TaskID     string
	HunterID   string
	Status     TaskStatus // completed | failed
	Result     *string
	Details    *string
	Evaluation *ReportEvaluation
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ReportEvaluation is a peer-scored judgment of a report.
type ReportEvaluation struct {
	Score        int            `json:"score"`
	Feedback     string         `json:"feedback"`
	EvaluatorID  string         `json:"evaluator_id"`
	SkillUpdates map[string]int `json:"skill_updates"`
	EvaluatedAt  time.Time      `json:"evaluated_at"`
}

// DiscussionMessage is an append-only per-namespace chat entry.
type DiscussionMessage struct {
	ID        string
	HunterID  string
	Content   string
	CreatedAt time.Time
}

// TaskFilter narrows task.list results; zero-value fields are unfiltered.
type TaskFilter struct {
	Status        *TaskStatus
	RequiredSkill *string
	HunterID      *string
}
