package models

import "time"

// 任务状态
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusOverdue    = "overdue"
)

// 任务优先级
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// Task 待办任务
type Task struct {
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Description   string    `json:"description" db:"description"`
	Status        string    `json:"status" db:"status"`
	Type          string    `json:"type,omitempty" db:"type"` // meeting, call, email, follow_up, other
	Priority      string    `json:"priority" db:"priority"`
	DueDate       time.Time `json:"dueDate" db:"due_date"`
	AssignTo      string    `json:"assignTo,omitempty" db:"assign_to"`
	AssignToName  string    `json:"assignToName,omitempty"`
	AssignToImage string    `json:"assignToImage,omitempty"`
	AssignBy      string    `json:"assignBy,omitempty" db:"assign_by"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// TaskStatusUpdateRequest represents the status update payload
type TaskStatusUpdateRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
