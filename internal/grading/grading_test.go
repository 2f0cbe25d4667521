package grading

import (
	"testing"

	"github.com/arzan03/EduHub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func question(typ, topic string, points float64, correct ...int) models.Question {
	q := models.Question{
		ID:     primitive.NewObjectID(),
		Text:   "q",
		Type:   typ,
		Points: points,
		Topic:  topic,
	}
	q.Options = make([]models.Option, 4)
	for i := range q.Options {
		q.Options[i].Text = string(rune('A' + i))
	}
	for _, c := range correct {
		q.Options[c].IsCorrect = true
	}
	return q
}

func sampleExam() models.Exam {
	return models.Exam{
		ID:           primitive.NewObjectID(),
		Title:        "Fractions",
		PassingScore: 60,
		Questions: []models.Question{
			question(models.QuestionSingle, "algebra", 2, 1),
			question(models.QuestionMultiple, "algebra", 3, 0, 2),
			question(models.QuestionSingle, "", 5, 3),
		},
	}
}

func TestGrade(t *testing.T) {
	exam := sampleExam()
	q := exam.Questions

	tests := []struct {
		name       string
		answers    []SubmittedAnswer
		score      float64
		percentage float64
		passed     bool
		correct    []bool
	}{
		{
			name: "all correct",
			answers: []SubmittedAnswer{
				{QuestionID: q[0].ID, SelectedOptions: []int{1}},
				{QuestionID: q[1].ID, SelectedOptions: []int{2, 0}},
				{QuestionID: q[2].ID, SelectedOptions: []int{3}},
			},
			score: 10, percentage: 100, passed: true,
			correct: []bool{true, true, true},
		},
		{
			name:    "nothing answered",
			answers: nil,
			score:   0, percentage: 0, passed: false,
			correct: []bool{false, false, false},
		},
		{
			name: "multiple choice is all or nothing",
			answers: []SubmittedAnswer{
				{QuestionID: q[1].ID, SelectedOptions: []int{0}},
				{QuestionID: q[2].ID, SelectedOptions: []int{3}},
			},
			score: 5, percentage: 50, passed: false,
			correct: []bool{false, false, true},
		},
		{
			name: "single choice with two selections is wrong",
			answers: []SubmittedAnswer{
				{QuestionID: q[0].ID, SelectedOptions: []int{1, 2}},
				{QuestionID: q[1].ID, SelectedOptions: []int{0, 2}},
				{QuestionID: q[2].ID, SelectedOptions: []int{3}},
			},
			score: 8, percentage: 80, passed: true,
			correct: []bool{false, true, true},
		},
		{
			name: "duplicates and out of range indices are ignored",
			answers: []SubmittedAnswer{
				{QuestionID: q[0].ID, SelectedOptions: []int{1, 1, 9, -1}},
				{QuestionID: q[1].ID, SelectedOptions: []int{2, 0, 0}},
			},
			score: 5, percentage: 50, passed: false,
			correct: []bool{true, true, false},
		},
		{
			name: "unknown question ids are ignored",
			answers: []SubmittedAnswer{
				{QuestionID: primitive.NewObjectID(), SelectedOptions: []int{1}},
				{QuestionID: q[2].ID, SelectedOptions: []int{3}},
				{QuestionID: q[0].ID, SelectedOptions: []int{1}},
			},
			score: 7, percentage: 70, passed: true,
			correct: []bool{true, false, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Grade(exam, tt.answers)

			assert.Equal(t, tt.score, out.Score)
			assert.Equal(t, 10.0, out.Total)
			assert.Equal(t, tt.percentage, out.Percentage)
			assert.Equal(t, tt.passed, out.Passed)
			require.Len(t, out.Answers, len(exam.Questions))
			for i, a := range out.Answers {
				assert.Equal(t, q[i].ID, a.QuestionID)
				assert.Equal(t, tt.correct[i], a.IsCorrect, "question %d", i)
				assert.Equal(t, q[i].Points, a.PointsPossible)
			}
		})
	}
}

func TestGradeFirstAnswerWins(t *testing.T) {
	exam := sampleExam()
	out := Grade(exam, []SubmittedAnswer{
		{QuestionID: exam.Questions[0].ID, SelectedOptions: []int{0}},
		{QuestionID: exam.Questions[0].ID, SelectedOptions: []int{1}},
	})
	assert.False(t, out.Answers[0].IsCorrect)
	assert.Equal(t, []int{0}, out.Answers[0].SelectedOptions)
}

func TestGradePassingBoundaryIsInclusive(t *testing.T) {
	exam := sampleExam()
	exam.PassingScore = 50
	out := Grade(exam, []SubmittedAnswer{
		{QuestionID: exam.Questions[2].ID, SelectedOptions: []int{3}},
	})
	assert.Equal(t, 50.0, out.Percentage)
	assert.True(t, out.Passed)
}

func TestGradeEmptyExam(t *testing.T) {
	out := Grade(models.Exam{PassingScore: 0}, nil)
	assert.Equal(t, 0.0, out.Percentage)
	assert.Empty(t, out.Answers)
	assert.True(t, out.Passed)
}

func TestPercentageRounding(t *testing.T) {
	assert.Equal(t, 33.33, Percentage(1, 3))
	assert.Equal(t, 66.67, Percentage(2, 3))
	assert.Equal(t, 0.0, Percentage(3, 0))
}
