package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Answer struct {
	QuestionID      primitive.ObjectID `bson:"question_id" json:"question_id"`
	SelectedOptions []int              `bson:"selected_options" json:"selected_options"`
	IsCorrect       bool               `bson:"is_correct" json:"is_correct"`
	PointsEarned    float64            `bson:"points_earned" json:"points_earned"`
	PointsPossible  float64            `bson:"points_possible" json:"points_possible"`
}

type ExamResult struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ExamID           primitive.ObjectID `bson:"exam_id" json:"exam_id"`
	StudentID        primitive.ObjectID `bson:"student_id" json:"student_id"`
	Attempt          int                `bson:"attempt" json:"attempt"`
	Answers          []Answer           `bson:"answers" json:"answers"`
	Score            float64            `bson:"score" json:"score"`
	TotalPoints      float64            `bson:"total_points" json:"total_points"`
	Percentage       float64            `bson:"percentage" json:"percentage"`
	Passed           bool               `bson:"passed" json:"passed"`
	TimeSpentSeconds int                `bson:"time_spent_seconds" json:"time_spent_seconds"`
	StartedAt        *time.Time         `bson:"started_at,omitempty" json:"started_at,omitempty"`
	SubmittedAt      time.Time          `bson:"submitted_at" json:"submitted_at"`
}

// ResultFilter narrows result listings. Zero values mean "any".
type ResultFilter struct {
	ExamID    primitive.ObjectID
	ExamIDs   []primitive.ObjectID
	StudentID primitive.ObjectID
	Limit     int64
}
