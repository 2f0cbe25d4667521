package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/events"
	"github.com/arzan03/EduHub/internal/grading"
	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultPassingScore = 60
	defaultMaxAttempts  = 1
	defaultPoints       = 1
)

type OptionInput struct {
	Text      string `json:"text" validate:"required,max=500"`
	IsCorrect bool   `json:"is_correct"`
}

type QuestionInput struct {
	// ID is set when editing to keep the identity of an existing question.
	ID      string        `json:"id"`
	Text    string        `json:"text" validate:"required,max=2000"`
	Type    string        `json:"type" validate:"required,oneof=single multiple"`
	Options []OptionInput `json:"options" validate:"required,min=2,max=10,dive"`
	Points  float64       `json:"points" validate:"gte=0,lte=1000"`
	Topic   string        `json:"topic" validate:"max=100"`
}

type ExamInput struct {
	Title           string          `json:"title" validate:"required,max=200"`
	Description     string          `json:"description" validate:"max=5000"`
	Subject         string          `json:"subject" validate:"max=100"`
	DurationMinutes int             `json:"duration_minutes" validate:"required,gt=0,lte=600"`
	PassingScore    *float64        `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
	MaxAttempts     int             `json:"max_attempts" validate:"gte=0,lte=20"`
	Questions       []QuestionInput `json:"questions" validate:"required,min=1,max=200,dive"`
	AssignedTo      []string        `json:"assigned_to"`
	DueDate         *time.Time      `json:"due_date"`
	IsPublished     *bool           `json:"is_published"`
}

type AssignInput struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1"`
}

type PublishInput struct {
	Published bool `json:"published"`
}

type SubmitInput struct {
	Answers          []grading.SubmittedAnswer `json:"answers" validate:"dive"`
	TimeSpentSeconds int                       `json:"time_spent_seconds" validate:"gte=0"`
	StartedAt        *time.Time                `json:"started_at"`
}

// ExamView is an exam as shown to a particular caller.
type ExamView struct {
	models.Exam
	AttemptsUsed *int64 `json:"attempts_used,omitempty"`
}

// ResultView decorates a stored result with display names.
type ResultView struct {
	models.ExamResult
	ExamTitle   string `json:"exam_title,omitempty"`
	StudentName string `json:"student_name,omitempty"`
}

type ExamAssignedEvent struct {
	ExamID     string     `json:"exam_id"`
	Title      string     `json:"title"`
	StudentIDs []string   `json:"student_ids"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}

type ExamGradedEvent struct {
	ExamID     string  `json:"exam_id"`
	ResultID   string  `json:"result_id"`
	StudentID  string  `json:"student_id"`
	TutorID    string  `json:"tutor_id"`
	Attempt    int     `json:"attempt"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}

type ExamService struct {
	stores Stores
	events events.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewExamService(stores Stores, pub events.Publisher, log *zap.Logger) *ExamService {
	return &ExamService{
		stores: stores,
		events: pub,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns a tutor's own exams or a student's published assignments.
func (s *ExamService) List(ctx context.Context, actor Actor) ([]models.Exam, error) {
	f := models.ExamFilter{CreatedBy: actor.ID}
	if !actor.IsTutor() {
		f = models.ExamFilter{AssignedTo: actor.ID, PublishedOnly: true}
	}
	exams, err := s.stores.Exams.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !actor.IsTutor() {
		for i := range exams {
			exams[i] = exams[i].ForStudent()
		}
	}
	return exams, nil
}

func (s *ExamService) Create(ctx context.Context, actor Actor, in ExamInput) (models.Exam, error) {
	questions, err := buildQuestions(in, nil)
	if err != nil {
		return models.Exam{}, err
	}
	assigned, err := s.resolveStudents(ctx, in.AssignedTo)
	if err != nil {
		return models.Exam{}, err
	}

	now := s.now()
	exam := models.Exam{
		ID:         primitive.NewObjectID(),
		CreatedBy:  actor.ID,
		Questions:  questions,
		AssignedTo: assigned,
		CreatedAt:  now,
	}
	applyExamInput(&exam, in, now)

	if err := s.stores.Exams.Insert(ctx, &exam); err != nil {
		return models.Exam{}, apperr.Internal(err)
	}
	if exam.IsPublished && len(assigned) > 0 {
		s.publishAssigned(exam, assigned)
	}
	return exam, nil
}

// Get returns the exam as the caller may see it.
func (s *ExamService) Get(ctx context.Context, actor Actor, idHex string) (ExamView, error) {
	exam, err := s.find(ctx, idHex)
	if err != nil {
		return ExamView{}, err
	}
	if exam.CreatedBy == actor.ID {
		return ExamView{Exam: exam}, nil
	}
	if actor.IsStudent() && exam.IsPublished && exam.IsAssigned(actor.ID) {
		used, err := s.stores.Results.Count(ctx, models.ResultFilter{ExamID: exam.ID, StudentID: actor.ID})
		if err != nil {
			return ExamView{}, apperr.Internal(err)
		}
		return ExamView{Exam: exam.ForStudent(), AttemptsUsed: &used}, nil
	}
	return ExamView{}, apperr.Forbidden("Not authorized to access this exam")
}

// Update edits an exam. Questions are frozen once anyone has submitted.
func (s *ExamService) Update(ctx context.Context, actor Actor, idHex string, in ExamInput) (models.Exam, error) {
	exam, err := s.owned(ctx, actor, idHex)
	if err != nil {
		return models.Exam{}, err
	}
	questions, err := buildQuestions(in, exam.Questions)
	if err != nil {
		return models.Exam{}, err
	}

	submissions, err := s.stores.Results.Count(ctx, models.ResultFilter{ExamID: exam.ID})
	if err != nil {
		return models.Exam{}, apperr.Internal(err)
	}
	if submissions > 0 && !sameQuestions(exam.Questions, questions) {
		return models.Exam{}, apperr.BadRequest("Questions cannot be changed after students have submitted")
	}

	assigned, err := s.resolveStudents(ctx, in.AssignedTo)
	if err != nil {
		return models.Exam{}, err
	}
	added := newIDs(exam.AssignedTo, assigned)
	wasPublished := exam.IsPublished

	exam.Questions = questions
	exam.AssignedTo = assigned
	applyExamInput(&exam, in, s.now())

	if err := s.stores.Exams.Update(ctx, &exam); err != nil {
		return models.Exam{}, notFoundOr(err, "Exam not found")
	}
	switch {
	case exam.IsPublished && !wasPublished && len(exam.AssignedTo) > 0:
		s.publishAssigned(exam, exam.AssignedTo)
	case exam.IsPublished && len(added) > 0:
		s.publishAssigned(exam, added)
	}
	return exam, nil
}

func (s *ExamService) Delete(ctx context.Context, actor Actor, idHex string) error {
	exam, err := s.owned(ctx, actor, idHex)
	if err != nil {
		return err
	}
	if err := s.stores.Exams.Delete(ctx, exam.ID); err != nil {
		return notFoundOr(err, "Exam not found")
	}
	if err := s.stores.Results.DeleteByExam(ctx, exam.ID); err != nil {
		s.log.Error("failed to delete exam results", zap.String("exam_id", exam.ID.Hex()), zap.Error(err))
	}
	return nil
}

// Assign adds students to the exam's assignment list.
func (s *ExamService) Assign(ctx context.Context, actor Actor, idHex string, in AssignInput) (models.Exam, error) {
	if err := validateStruct(in); err != nil {
		return models.Exam{}, err
	}
	exam, err := s.owned(ctx, actor, idHex)
	if err != nil {
		return models.Exam{}, err
	}
	students, err := s.resolveStudents(ctx, in.StudentIDs)
	if err != nil {
		return models.Exam{}, err
	}

	added := newIDs(exam.AssignedTo, students)
	updated, err := s.stores.Exams.AddAssignees(ctx, exam.ID, students)
	if err != nil {
		return models.Exam{}, notFoundOr(err, "Exam not found")
	}
	if updated.IsPublished && len(added) > 0 {
		s.publishAssigned(updated, added)
	}
	return updated, nil
}

func (s *ExamService) Publish(ctx context.Context, actor Actor, idHex string, in PublishInput) (models.Exam, error) {
	exam, err := s.owned(ctx, actor, idHex)
	if err != nil {
		return models.Exam{}, err
	}
	if exam.IsPublished == in.Published {
		return exam, nil
	}

	exam.IsPublished = in.Published
	exam.UpdatedAt = s.now()
	if err := s.stores.Exams.Update(ctx, &exam); err != nil {
		return models.Exam{}, notFoundOr(err, "Exam not found")
	}
	if exam.IsPublished && len(exam.AssignedTo) > 0 {
		s.publishAssigned(exam, exam.AssignedTo)
	}
	return exam, nil
}

// Submit grades and records one attempt of a student.
func (s *ExamService) Submit(ctx context.Context, actor Actor, idHex string, in SubmitInput) (models.ExamResult, error) {
	if err := validateStruct(in); err != nil {
		return models.ExamResult{}, err
	}
	exam, err := s.find(ctx, idHex)
	if err != nil {
		return models.ExamResult{}, err
	}
	if !exam.IsPublished || !exam.IsAssigned(actor.ID) {
		return models.ExamResult{}, apperr.Forbidden("This exam is not assigned to you")
	}

	now := s.now()
	if exam.DueDate != nil && now.After(*exam.DueDate) {
		return models.ExamResult{}, apperr.Forbidden("The due date for this exam has passed")
	}

	used, err := s.stores.Results.Count(ctx, models.ResultFilter{ExamID: exam.ID, StudentID: actor.ID})
	if err != nil {
		return models.ExamResult{}, apperr.Internal(err)
	}
	if used >= int64(exam.MaxAttempts) {
		return models.ExamResult{}, apperr.Forbidden(fmt.Sprintf("Maximum attempts (%d) reached", exam.MaxAttempts))
	}

	outcome := grading.Grade(exam, in.Answers)
	result := models.ExamResult{
		ID:               primitive.NewObjectID(),
		ExamID:           exam.ID,
		StudentID:        actor.ID,
		Attempt:          int(used) + 1,
		Answers:          outcome.Answers,
		Score:            outcome.Score,
		TotalPoints:      outcome.Total,
		Percentage:       outcome.Percentage,
		Passed:           outcome.Passed,
		TimeSpentSeconds: in.TimeSpentSeconds,
		StartedAt:        utc(in.StartedAt),
		SubmittedAt:      now,
	}
	if err := s.stores.Results.Insert(ctx, &result); err != nil {
		if apperr.IsDuplicate(err) {
			return models.ExamResult{}, apperr.New(http.StatusConflict, "This attempt was already submitted")
		}
		return models.ExamResult{}, apperr.Internal(err)
	}

	s.log.Info("exam graded",
		zap.String("exam_id", exam.ID.Hex()),
		zap.String("student_id", actor.ID.Hex()),
		zap.Int("attempt", result.Attempt),
		zap.Float64("percentage", result.Percentage),
	)
	evt := ExamGradedEvent{
		ExamID:     exam.ID.Hex(),
		ResultID:   result.ID.Hex(),
		StudentID:  actor.ID.Hex(),
		TutorID:    exam.CreatedBy.Hex(),
		Attempt:    result.Attempt,
		Percentage: result.Percentage,
		Passed:     result.Passed,
	}
	if err := s.events.Publish(events.SubjectExamGraded, evt); err != nil {
		s.log.Warn("failed to publish event", zap.String("subject", events.SubjectExamGraded), zap.Error(err))
	}
	return result, nil
}

// Results lists every attempt for the owner, or the caller's own attempts
// for an assigned student.
func (s *ExamService) Results(ctx context.Context, actor Actor, idHex string) ([]ResultView, error) {
	exam, err := s.find(ctx, idHex)
	if err != nil {
		return nil, err
	}

	f := models.ResultFilter{ExamID: exam.ID}
	switch {
	case exam.CreatedBy == actor.ID:
	case actor.IsStudent() && exam.IsAssigned(actor.ID):
		f.StudentID = actor.ID
	default:
		return nil, apperr.Forbidden("Not authorized to view these results")
	}

	results, err := s.stores.Results.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.decorate(ctx, results, map[primitive.ObjectID]models.Exam{exam.ID: exam})
}

// MyResults lists the caller's attempts across all exams.
func (s *ExamService) MyResults(ctx context.Context, actor Actor) ([]ResultView, error) {
	results, err := s.stores.Results.List(ctx, models.ResultFilter{StudentID: actor.ID})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.decorate(ctx, results, nil)
}

func (s *ExamService) Analytics(ctx context.Context, actor Actor, idHex string) (grading.Report, error) {
	exam, err := s.owned(ctx, actor, idHex)
	if err != nil {
		return grading.Report{}, err
	}
	results, err := s.stores.Results.List(ctx, models.ResultFilter{ExamID: exam.ID})
	if err != nil {
		return grading.Report{}, apperr.Internal(err)
	}
	return grading.Analyze(exam, results), nil
}

func (s *ExamService) find(ctx context.Context, idHex string) (models.Exam, error) {
	id, err := parseID(idHex, "exam")
	if err != nil {
		return models.Exam{}, err
	}
	exam, err := s.stores.Exams.FindByID(ctx, id)
	if err != nil {
		return models.Exam{}, notFoundOr(err, "Exam not found")
	}
	return exam, nil
}

func (s *ExamService) owned(ctx context.Context, actor Actor, idHex string) (models.Exam, error) {
	exam, err := s.find(ctx, idHex)
	if err != nil {
		return models.Exam{}, err
	}
	if exam.CreatedBy != actor.ID {
		return models.Exam{}, apperr.Forbidden("Only the exam owner can do this")
	}
	return exam, nil
}

// resolveStudents parses, deduplicates and checks that every id is a student.
func (s *ExamService) resolveStudents(ctx context.Context, hexes []string) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(hexes))
	seen := make(map[primitive.ObjectID]struct{}, len(hexes))
	for _, h := range hexes {
		id, err := parseID(h, "student")
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	users, err := s.stores.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	students := make(map[primitive.ObjectID]bool, len(users))
	for _, u := range users {
		students[u.ID] = u.IsStudent()
	}
	for _, id := range ids {
		if !students[id] {
			return nil, apperr.BadRequest(fmt.Sprintf("User %s is not a student", id.Hex()))
		}
	}
	return ids, nil
}

func (s *ExamService) decorate(ctx context.Context, results []models.ExamResult, exams map[primitive.ObjectID]models.Exam) ([]ResultView, error) {
	if exams == nil {
		exams = make(map[primitive.ObjectID]models.Exam)
	}
	studentIDs := make([]primitive.ObjectID, 0)
	seen := make(map[primitive.ObjectID]struct{})
	for _, r := range results {
		if _, ok := exams[r.ExamID]; !ok {
			exam, err := s.stores.Exams.FindByID(ctx, r.ExamID)
			if err != nil && !apperr.IsNotFound(err) {
				return nil, apperr.Internal(err)
			}
			exams[r.ExamID] = exam
		}
		if _, ok := seen[r.StudentID]; !ok {
			seen[r.StudentID] = struct{}{}
			studentIDs = append(studentIDs, r.StudentID)
		}
	}

	users, err := s.stores.Users.FindByIDs(ctx, studentIDs)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	names := make(map[primitive.ObjectID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	out := make([]ResultView, len(results))
	for i, r := range results {
		out[i] = ResultView{ExamResult: r, ExamTitle: exams[r.ExamID].Title, StudentName: names[r.StudentID]}
	}
	return out, nil
}

func (s *ExamService) publishAssigned(exam models.Exam, students []primitive.ObjectID) {
	ids := make([]string, len(students))
	for i, id := range students {
		ids[i] = id.Hex()
	}
	evt := ExamAssignedEvent{ExamID: exam.ID.Hex(), Title: exam.Title, StudentIDs: ids, DueDate: exam.DueDate}
	if err := s.events.Publish(events.SubjectExamAssigned, evt); err != nil {
		s.log.Warn("failed to publish event", zap.String("subject", events.SubjectExamAssigned), zap.Error(err))
	}
}

// applyExamInput replaces the editable fields. A missing is_published keeps
// the current state, so new exams start as drafts.
func applyExamInput(exam *models.Exam, in ExamInput, now time.Time) {
	exam.Title = strings.TrimSpace(in.Title)
	exam.Description = in.Description
	exam.Subject = strings.TrimSpace(in.Subject)
	exam.DurationMinutes = in.DurationMinutes
	exam.PassingScore = defaultPassingScore
	if in.PassingScore != nil {
		exam.PassingScore = *in.PassingScore
	}
	exam.MaxAttempts = in.MaxAttempts
	if exam.MaxAttempts == 0 {
		exam.MaxAttempts = defaultMaxAttempts
	}
	exam.DueDate = utc(in.DueDate)
	if in.IsPublished != nil {
		exam.IsPublished = *in.IsPublished
	}
	exam.UpdatedAt = now
}

// buildQuestions validates the input and converts it, reusing ids of
// existing questions when the client echoes them back.
func buildQuestions(in ExamInput, existing []models.Question) ([]models.Question, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(existing))
	for _, q := range existing {
		known[q.ID.Hex()] = struct{}{}
	}

	var fieldErrs []apperr.FieldError
	used := make(map[string]struct{}, len(in.Questions))
	out := make([]models.Question, 0, len(in.Questions))
	for i, qi := range in.Questions {
		field := fmt.Sprintf("questions[%d]", i)

		correct := 0
		for _, o := range qi.Options {
			if o.IsCorrect {
				correct++
			}
		}
		switch {
		case qi.Type == models.QuestionSingle && correct != 1:
			fieldErrs = append(fieldErrs, apperr.FieldError{Field: field + ".options", Message: "single choice questions need exactly one correct option"})
		case qi.Type == models.QuestionMultiple && correct == 0:
			fieldErrs = append(fieldErrs, apperr.FieldError{Field: field + ".options", Message: "multiple choice questions need at least one correct option"})
		}

		id := primitive.NewObjectID()
		if _, ok := known[qi.ID]; ok && qi.ID != "" {
			if _, dup := used[qi.ID]; !dup {
				id, _ = primitive.ObjectIDFromHex(qi.ID)
			}
		}
		used[id.Hex()] = struct{}{}

		q := models.Question{
			ID:      id,
			Text:    strings.TrimSpace(qi.Text),
			Type:    qi.Type,
			Points:  qi.Points,
			Topic:   strings.TrimSpace(qi.Topic),
			Options: make([]models.Option, len(qi.Options)),
		}
		if q.Points == 0 {
			q.Points = defaultPoints
		}
		for j, o := range qi.Options {
			q.Options[j] = models.Option{Text: strings.TrimSpace(o.Text), IsCorrect: o.IsCorrect}
		}
		out = append(out, q)
	}
	if len(fieldErrs) > 0 {
		return nil, apperr.Validation(fieldErrs...)
	}
	return out, nil
}

func sameQuestions(a, b []models.Question) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		qa, qb := a[i], b[i]
		if qa.ID != qb.ID || qa.Text != qb.Text || qa.Type != qb.Type || qa.Points != qb.Points ||
			qa.Topic != qb.Topic || len(qa.Options) != len(qb.Options) {
			return false
		}
		for j := range qa.Options {
			if qa.Options[j] != qb.Options[j] {
				return false
			}
		}
	}
	return true
}

// newIDs returns the members of next that are not in prev.
func newIDs(prev, next []primitive.ObjectID) []primitive.ObjectID {
	had := make(map[primitive.ObjectID]struct{}, len(prev))
	for _, id := range prev {
		had[id] = struct{}{}
	}
	var out []primitive.ObjectID
	for _, id := range next {
		if _, ok := had[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
