package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	QuestionSingle   = "single"
	QuestionMultiple = "multiple"
)

type Option struct {
	Text      string `bson:"text" json:"text"`
	IsCorrect bool   `bson:"is_correct" json:"is_correct"`
}

type Question struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	Text    string             `bson:"text" json:"text"`
	Type    string             `bson:"type" json:"type"`
	Options []Option           `bson:"options" json:"options"`
	Points  float64            `bson:"points" json:"points"`
	Topic   string             `bson:"topic,omitempty" json:"topic,omitempty"`
}

// CorrectIndices returns the indices of the correct options in order.
func (q Question) CorrectIndices() []int {
	var idx []int
	for i, o := range q.Options {
		if o.IsCorrect {
			idx = append(idx, i)
		}
	}
	return idx
}

type Exam struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title           string               `bson:"title" json:"title"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	Subject         string               `bson:"subject,omitempty" json:"subject,omitempty"`
	DurationMinutes int                  `bson:"duration_minutes" json:"duration_minutes"`
	PassingScore    float64              `bson:"passing_score" json:"passing_score"`
	MaxAttempts     int                  `bson:"max_attempts" json:"max_attempts"`
	Questions       []Question           `bson:"questions" json:"questions"`
	AssignedTo      []primitive.ObjectID `bson:"assigned_to" json:"assigned_to"`
	CreatedBy       primitive.ObjectID   `bson:"created_by" json:"created_by"`
	IsPublished     bool                 `bson:"is_published" json:"is_published"`
	DueDate         *time.Time           `bson:"due_date,omitempty" json:"due_date,omitempty"`
	CreatedAt       time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at" json:"updated_at"`
}

// IsAssigned reports whether studentID is on the assignment list.
func (e Exam) IsAssigned(studentID primitive.ObjectID) bool {
	for _, id := range e.AssignedTo {
		if id == studentID {
			return true
		}
	}
	return false
}

// TotalPoints sums the points of every question.
func (e Exam) TotalPoints() float64 {
	var total float64
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// ForStudent returns a copy with option correctness flags cleared.
func (e Exam) ForStudent() Exam {
	cp := e
	cp.AssignedTo = nil
	cp.Questions = make([]Question, len(e.Questions))
	for i, q := range e.Questions {
		q.Options = append([]Option(nil), q.Options...)
		for j := range q.Options {
			q.Options[j].IsCorrect = false
		}
		cp.Questions[i] = q
	}
	return cp
}

// ExamFilter narrows exam listings. Zero values mean "any".
type ExamFilter struct {
	CreatedBy     primitive.ObjectID
	AssignedTo    primitive.ObjectID
	PublishedOnly bool
}
