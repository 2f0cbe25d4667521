package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/arzan03/EduHub/internal/events"
	"github.com/arzan03/EduHub/internal/grading"
	"github.com/arzan03/EduHub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func perfectAnswers(exam models.Exam) []grading.SubmittedAnswer {
	return []grading.SubmittedAnswer{
		{QuestionID: exam.Questions[0].ID, SelectedOptions: []int{1}},
		{QuestionID: exam.Questions[1].ID, SelectedOptions: []int{1, 0}},
	}
}

func TestCreateExamValidatesQuestions(t *testing.T) {
	f := newFixture(t)
	tutor := f.user(t, "tutor", models.RoleTutor)

	in := sampleExam()
	in.Questions[0].Options[0].IsCorrect = true
	_, err := f.exams.Create(context.Background(), tutor, in)
	requireStatus(t, err, http.StatusBadRequest)

	in = sampleExam()
	in.Questions = nil
	_, err = f.exams.Create(context.Background(), tutor, in)
	requireStatus(t, err, http.StatusBadRequest)

	in = sampleExam(tutor)
	_, err = f.exams.Create(context.Background(), tutor, in)
	requireStatus(t, err, http.StatusBadRequest)
}

func TestCreateExamDefaults(t *testing.T) {
	f := newFixture(t)
	tutor := f.user(t, "tutor", models.RoleTutor)
	student := f.user(t, "student", models.RoleStudent)

	in := sampleExam(student, student)
	exam, err := f.exams.Create(context.Background(), tutor, in)
	require.NoError(t, err)

	assert.Equal(t, float64(60), exam.PassingScore)
	assert.Equal(t, 1, exam.MaxAttempts)
	assert.Equal(t, float64(1), exam.Questions[0].Points)
	assert.Equal(t, float64(3), exam.TotalPoints())
	assert.Len(t, exam.AssignedTo, 1)
	assert.Equal(t, []string{events.SubjectExamAssigned}, f.events.Subjects())
}

func TestStudentSeesExamWithoutAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	student := f.user(t, "student", models.RoleStudent)
	outsider := f.user(t, "outsider", models.RoleStudent)

	exam, err := f.exams.Create(ctx, tutor, sampleExam(student))
	require.NoError(t, err)

	list, err := f.exams.List(ctx, student)
	require.NoError(t, err)
	require.Len(t, list, 1)
	for _, q := range list[0].Questions {
		for _, o := range q.Options {
			assert.False(t, o.IsCorrect)
		}
	}

	view, err := f.exams.Get(ctx, student, exam.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, view.AttemptsUsed)
	assert.Equal(t, int64(0), *view.AttemptsUsed)
	assert.Empty(t, view.AssignedTo)

	owner, err := f.exams.Get(ctx, tutor, exam.ID.Hex())
	require.NoError(t, err)
	assert.True(t, owner.Questions[0].Options[1].IsCorrect)

	_, err = f.exams.Get(ctx, outsider, exam.ID.Hex())
	requireStatus(t, err, http.StatusForbidden)

	none, err := f.exams.List(ctx, outsider)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSubmitGradesAndLimitsAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	student := f.user(t, "student", models.RoleStudent)

	exam, err := f.exams.Create(ctx, tutor, sampleExam(student))
	require.NoError(t, err)

	result, err := f.exams.Submit(ctx, student, exam.ID.Hex(), SubmitInput{Answers: perfectAnswers(exam), TimeSpentSeconds: 120})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempt)
	assert.Equal(t, float64(3), result.Score)
	assert.Equal(t, float64(100), result.Percentage)
	assert.True(t, result.Passed)
	require.Len(t, result.Answers, 2)
	assert.True(t, result.Answers[1].IsCorrect)
	assert.Equal(t, []string{events.SubjectExamAssigned, events.SubjectExamGraded}, f.events.Subjects())

	_, err = f.exams.Submit(ctx, student, exam.ID.Hex(), SubmitInput{Answers: perfectAnswers(exam)})
	requireStatus(t, err, http.StatusForbidden)

	view, err := f.exams.Get(ctx, student, exam.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(1), *view.AttemptsUsed)
}

func TestSubmitScoresMultipleAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	student := f.user(t, "student", models.RoleStudent)

	exam, err := f.exams.Create(ctx, tutor, sampleExam(student))
	require.NoError(t, err)

	result, err := f.exams.Submit(ctx, student, exam.ID.Hex(), SubmitInput{Answers: []grading.SubmittedAnswer{
		{QuestionID: exam.Questions[0].ID, SelectedOptions: []int{1}},
		{QuestionID: exam.Questions[1].ID, SelectedOptions: []int{0}},
	}})
	require.NoError(t, err)
	assert.Equal(t, float64(1), result.Score)
	assert.Equal(t, 33.33, result.Percentage)
	assert.False(t, result.Passed)
}

func TestSubmitRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	student := f.user(t, "student", models.RoleStudent)
	outsider := f.user(t, "outsider", models.RoleStudent)

	draft := sampleExam(student)
	draft.IsPublished = ptr(false)
	unpublished, err := f.exams.Create(ctx, tutor, draft)
	require.NoError(t, err)
	_, err = f.exams.Submit(ctx, student, unpublished.ID.Hex(), SubmitInput{})
	requireStatus(t, err, http.StatusForbidden)

	past := time.Now().Add(-time.Hour)
	overdue := sampleExam(student)
	overdue.DueDate = &past
	late, err := f.exams.Create(ctx, tutor, overdue)
	require.NoError(t, err)
	_, err = f.exams.Submit(ctx, student, late.ID.Hex(), SubmitInput{})
	requireStatus(t, err, http.StatusForbidden)

	open, err := f.exams.Create(ctx, tutor, sampleExam(student))
	require.NoError(t, err)
	_, err = f.exams.Submit(ctx, outsider, open.ID.Hex(), SubmitInput{})
	requireStatus(t, err, http.StatusForbidden)
}

func TestUpdateFreezesQuestionsAfterSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	student := f.user(t, "student", models.RoleStudent)

	exam, err := f.exams.Create(ctx, tutor, sampleExam(student))
	require.NoError(t, err)

	in := sampleExam(student)
	in.Title = "Renamed"
	for i := range in.Questions {
		in.Questions[i].ID = exam.Questions[i].ID.Hex()
	}
	renamed, err := f.exams.Update(ctx, tutor, exam.ID.Hex(), in)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Title)
	assert.Equal(t, exam.Questions[0].ID, renamed.Questions[0].ID)

	_, err = f.exams.Submit(ctx, student, exam.ID.Hex(), SubmitInput{Answers: perfectAnswers(exam)})
	require.NoError(t, err)

	in.Title = "Still editable"
	_, err = f.exams.Update(ctx, tutor, exam.ID.Hex(), in)
	require.NoError(t, err)

	in.Questions[0].Text = "3 + 1"
	_, err = f.exams.Update(ctx, tutor, exam.ID.Hex(), in)
	requireStatus(t, err, http.StatusBadRequest)
}

func TestUpdateKeepsPublishStateWhenOmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	student := f.user(t, "student", models.RoleStudent)

	exam, err := f.exams.Create(ctx, tutor, sampleExam(student))
	require.NoError(t, err)
	require.True(t, exam.IsPublished)

	in := sampleExam(student)
	in.IsPublished = nil
	in.Title = "Retitled"
	updated, err := f.exams.Update(ctx, tutor, exam.ID.Hex(), in)
	require.NoError(t, err)
	assert.True(t, updated.IsPublished)

	in.IsPublished = ptr(false)
	updated, err = f.exams.Update(ctx, tutor, exam.ID.Hex(), in)
	require.NoError(t, err)
	assert.False(t, updated.IsPublished)

	draft := sampleExam(student)
	draft.IsPublished = nil
	created, err := f.exams.Create(ctx, tutor, draft)
	require.NoError(t, err)
	assert.False(t, created.IsPublished)
}

func TestAssignDeduplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	s1 := f.user(t, "s1", models.RoleStudent)
	s2 := f.user(t, "s2", models.RoleStudent)
	intruder := f.user(t, "intruder", models.RoleTutor)

	exam, err := f.exams.Create(ctx, tutor, sampleExam(s1))
	require.NoError(t, err)

	updated, err := f.exams.Assign(ctx, tutor, exam.ID.Hex(), AssignInput{StudentIDs: []string{s2.ID.Hex(), s2.ID.Hex(), s1.ID.Hex()}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{s1.ID, s2.ID}, toAny(updated.AssignedTo))
	assert.Equal(t, []string{events.SubjectExamAssigned, events.SubjectExamAssigned}, f.events.Subjects())

	_, err = f.exams.Assign(ctx, tutor, exam.ID.Hex(), AssignInput{StudentIDs: []string{intruder.ID.Hex()}})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.exams.Assign(ctx, intruder, exam.ID.Hex(), AssignInput{StudentIDs: []string{s1.ID.Hex()}})
	requireStatus(t, err, http.StatusForbidden)
}

func TestResultsAndAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	other := f.user(t, "other", models.RoleTutor)
	s1 := f.user(t, "s1", models.RoleStudent)
	s2 := f.user(t, "s2", models.RoleStudent)

	exam, err := f.exams.Create(ctx, tutor, sampleExam(s1, s2))
	require.NoError(t, err)
	_, err = f.exams.Submit(ctx, s1, exam.ID.Hex(), SubmitInput{Answers: perfectAnswers(exam)})
	require.NoError(t, err)
	_, err = f.exams.Submit(ctx, s2, exam.ID.Hex(), SubmitInput{})
	require.NoError(t, err)

	all, err := f.exams.Results(ctx, tutor, exam.ID.Hex())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Algebra quiz", all[0].ExamTitle)

	own, err := f.exams.Results(ctx, s1, exam.ID.Hex())
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "s1", own[0].StudentName)

	_, err = f.exams.Results(ctx, other, exam.ID.Hex())
	requireStatus(t, err, http.StatusForbidden)

	report, err := f.exams.Analytics(ctx, tutor, exam.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempts)
	assert.Equal(t, 2, report.UniqueStudents)
	assert.Equal(t, float64(50), report.Average)
	assert.Equal(t, float64(50), report.PassRate)

	_, err = f.exams.Analytics(ctx, s1, exam.ID.Hex())
	requireStatus(t, err, http.StatusForbidden)

	mine, err := f.exams.MyResults(ctx, s2)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, float64(0), mine[0].Percentage)

	require.NoError(t, f.exams.Delete(ctx, tutor, exam.ID.Hex()))
	n, err := f.stores.Results.Count(ctx, models.ResultFilter{ExamID: exam.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPublishToggles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tutor := f.user(t, "tutor", models.RoleTutor)
	student := f.user(t, "student", models.RoleStudent)

	draft := sampleExam(student)
	draft.IsPublished = ptr(false)
	exam, err := f.exams.Create(ctx, tutor, draft)
	require.NoError(t, err)
	assert.Empty(t, f.events.Subjects())

	published, err := f.exams.Publish(ctx, tutor, exam.ID.Hex(), PublishInput{Published: true})
	require.NoError(t, err)
	assert.True(t, published.IsPublished)

	list, err := f.exams.List(ctx, student)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
