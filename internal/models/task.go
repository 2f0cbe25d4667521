package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TaskPending    = "pending"
	TaskInProgress = "in-progress"
	TaskCompleted  = "completed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var TaskStatuses = []string{TaskPending, TaskInProgress, TaskCompleted}

type Task struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	DueDate     *time.Time         `bson:"due_date,omitempty" json:"due_date,omitempty"`
	Status      string             `bson:"status" json:"status"`
	Priority    string             `bson:"priority" json:"priority"`
	AssignedTo  primitive.ObjectID `bson:"assigned_to" json:"assigned_to"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`
	CompletedAt *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// VisibleTo reports whether userID is the creator or the assignee.
func (t Task) VisibleTo(userID primitive.ObjectID) bool {
	return t.CreatedBy == userID || t.AssignedTo == userID
}

// Overdue reports whether the task is past due and still open at now.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.Status != TaskCompleted && t.DueDate.Before(now)
}

// TaskFilter narrows task listings. Zero values mean "any".
type TaskFilter struct {
	AssignedTo primitive.ObjectID
	CreatedBy  primitive.ObjectID
	Status     string
	Priority   string
	DueFrom    *time.Time
	DueTo      *time.Time
}
