package services

import (
	"context"
	"time"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/models"
	"github.com/arzan03/EduHub/internal/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const dashboardListSize = 5

// PendingExam is an assigned exam the student can still attempt.
type PendingExam struct {
	ID                primitive.ObjectID `json:"id"`
	Title             string             `json:"title"`
	Subject           string             `json:"subject,omitempty"`
	DueDate           *time.Time         `json:"due_date,omitempty"`
	DurationMinutes   int                `json:"duration_minutes"`
	AttemptsRemaining int                `json:"attempts_remaining"`
}

type StudentDashboard struct {
	TaskCounts     map[string]int64 `json:"task_counts"`
	OverdueTasks   int              `json:"overdue_tasks"`
	UpcomingTasks  []models.Task    `json:"upcoming_tasks"`
	PendingExams   []PendingExam    `json:"pending_exams"`
	RecentResults  []ResultView     `json:"recent_results"`
	UnreadMessages int64            `json:"unread_messages"`
}

type TutorDashboard struct {
	Students          int64            `json:"students"`
	TaskCounts        map[string]int64 `json:"task_counts"`
	Exams             int64            `json:"exams"`
	PublishedExams    int64            `json:"published_exams"`
	RecentSubmissions []ResultView     `json:"recent_submissions"`
	UnreadMessages    int64            `json:"unread_messages"`
}

type DashboardService struct {
	stores Stores
	exams  *ExamService
	now    func() time.Time
}

func NewDashboardService(stores Stores, exams *ExamService) *DashboardService {
	return &DashboardService{stores: stores, exams: exams, now: func() time.Time { return time.Now().UTC() }}
}

// Summary returns the dashboard matching the caller's role.
func (s *DashboardService) Summary(ctx context.Context, actor Actor) (any, error) {
	if actor.IsTutor() {
		return s.Tutor(ctx, actor)
	}
	return s.Student(ctx, actor)
}

func (s *DashboardService) Student(ctx context.Context, actor Actor) (StudentDashboard, error) {
	var (
		d       StudentDashboard
		tasks   []models.Task
		exams   []models.Exam
		results []models.ExamResult
	)
	own := models.TaskFilter{AssignedTo: actor.ID}

	err := utils.RunParallelTasks(ctx,
		func(ctx context.Context) (err error) {
			d.TaskCounts, err = s.stores.Tasks.CountByStatus(ctx, own)
			return err
		},
		func(ctx context.Context) (err error) {
			tasks, err = s.stores.Tasks.List(ctx, own)
			return err
		},
		func(ctx context.Context) (err error) {
			exams, err = s.stores.Exams.List(ctx, models.ExamFilter{AssignedTo: actor.ID, PublishedOnly: true})
			return err
		},
		func(ctx context.Context) (err error) {
			results, err = s.stores.Results.List(ctx, models.ResultFilter{StudentID: actor.ID})
			return err
		},
		func(ctx context.Context) (err error) {
			d.UnreadMessages, err = s.stores.Messages.CountUnread(ctx, actor.ID)
			return err
		},
	)
	if err != nil {
		return StudentDashboard{}, apperr.Internal(err)
	}

	now := s.now()
	d.UpcomingTasks = make([]models.Task, 0, dashboardListSize)
	for _, t := range tasks {
		if t.Overdue(now) {
			d.OverdueTasks++
			continue
		}
		if t.DueDate != nil && t.Status != models.TaskCompleted && len(d.UpcomingTasks) < dashboardListSize {
			d.UpcomingTasks = append(d.UpcomingTasks, t)
		}
	}

	attempts := make(map[primitive.ObjectID]int, len(exams))
	for _, r := range results {
		attempts[r.ExamID]++
	}
	d.PendingExams = make([]PendingExam, 0)
	for _, e := range exams {
		left := e.MaxAttempts - attempts[e.ID]
		if left <= 0 || (e.DueDate != nil && now.After(*e.DueDate)) {
			continue
		}
		d.PendingExams = append(d.PendingExams, PendingExam{
			ID:                e.ID,
			Title:             e.Title,
			Subject:           e.Subject,
			DueDate:           e.DueDate,
			DurationMinutes:   e.DurationMinutes,
			AttemptsRemaining: left,
		})
	}

	if len(results) > dashboardListSize {
		results = results[:dashboardListSize]
	}
	if d.RecentResults, err = s.exams.decorate(ctx, results, nil); err != nil {
		return StudentDashboard{}, err
	}
	return d, nil
}

func (s *DashboardService) Tutor(ctx context.Context, actor Actor) (TutorDashboard, error) {
	var (
		d     TutorDashboard
		exams []models.Exam
	)
	err := utils.RunParallelTasks(ctx,
		func(ctx context.Context) (err error) {
			d.Students, err = s.stores.Users.Count(ctx, models.UserFilter{Role: models.RoleStudent})
			return err
		},
		func(ctx context.Context) (err error) {
			d.TaskCounts, err = s.stores.Tasks.CountByStatus(ctx, models.TaskFilter{CreatedBy: actor.ID})
			return err
		},
		func(ctx context.Context) (err error) {
			exams, err = s.stores.Exams.List(ctx, models.ExamFilter{CreatedBy: actor.ID})
			return err
		},
		func(ctx context.Context) (err error) {
			d.UnreadMessages, err = s.stores.Messages.CountUnread(ctx, actor.ID)
			return err
		},
	)
	if err != nil {
		return TutorDashboard{}, apperr.Internal(err)
	}

	ids := make([]primitive.ObjectID, 0, len(exams))
	byID := make(map[primitive.ObjectID]models.Exam, len(exams))
	for _, e := range exams {
		ids = append(ids, e.ID)
		byID[e.ID] = e
		if e.IsPublished {
			d.PublishedExams++
		}
	}
	d.Exams = int64(len(exams))

	d.RecentSubmissions = []ResultView{}
	if len(ids) == 0 {
		return d, nil
	}
	recent, err := s.stores.Results.List(ctx, models.ResultFilter{ExamIDs: ids, Limit: dashboardListSize})
	if err != nil {
		return TutorDashboard{}, apperr.Internal(err)
	}
	if d.RecentSubmissions, err = s.exams.decorate(ctx, recent, byID); err != nil {
		return TutorDashboard{}, err
	}
	return d, nil
}
