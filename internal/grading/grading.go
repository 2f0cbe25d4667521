// Package grading scores exam submissions and aggregates results into
// per-exam analytics. It performs no I/O.
package grading

import (
	"math"
	"sort"

	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmittedAnswer is one answer as sent by a student.
type SubmittedAnswer struct {
	QuestionID      primitive.ObjectID `json:"question_id" validate:"required"`
	SelectedOptions []int              `json:"selected_options"`
}

// Outcome is the graded form of a submission.
type Outcome struct {
	Answers    []models.Answer
	Score      float64
	Total      float64
	Percentage float64
	Passed     bool
}

// Grade scores answers against exam. Every question of the exam yields one
// models.Answer, in exam order; unanswered questions earn nothing.
func Grade(exam models.Exam, answers []SubmittedAnswer) Outcome {
	byQuestion := make(map[primitive.ObjectID][]int, len(answers))
	for _, a := range answers {
		// first answer for a question wins
		if _, seen := byQuestion[a.QuestionID]; !seen {
			byQuestion[a.QuestionID] = a.SelectedOptions
		}
	}

	out := Outcome{Answers: make([]models.Answer, 0, len(exam.Questions))}
	for _, q := range exam.Questions {
		selected := normalizeSelection(byQuestion[q.ID], len(q.Options))
		correct := isCorrect(q, selected)

		ans := models.Answer{
			QuestionID:      q.ID,
			SelectedOptions: selected,
			IsCorrect:       correct,
			PointsPossible:  q.Points,
		}
		if correct {
			ans.PointsEarned = q.Points
			out.Score += q.Points
		}
		out.Total += q.Points
		out.Answers = append(out.Answers, ans)
	}

	out.Percentage = Percentage(out.Score, out.Total)
	out.Passed = out.Percentage >= exam.PassingScore
	return out
}

// Percentage returns score/total as a percentage rounded to two decimals.
func Percentage(score, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(score / total * 100)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// normalizeSelection drops out-of-range indices and duplicates and sorts.
func normalizeSelection(sel []int, optionCount int) []int {
	if len(sel) == 0 {
		return []int{}
	}
	seen := make(map[int]struct{}, len(sel))
	out := make([]int, 0, len(sel))
	for _, i := range sel {
		if i < 0 || i >= optionCount {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func isCorrect(q models.Question, selected []int) bool {
	want := q.CorrectIndices()
	if len(want) == 0 {
		return false
	}
	switch q.Type {
	case models.QuestionSingle:
		return len(selected) == 1 && len(want) == 1 && selected[0] == want[0]
	default:
		if len(selected) != len(want) {
			return false
		}
		// both sorted ascending
		for i := range want {
			if selected[i] != want[i] {
				return false
			}
		}
		return true
	}
}
