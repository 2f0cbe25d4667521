package services

import (
	"context"
	"sort"
	"time"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EventKindTask = "task"
	EventKindExam = "exam"
)

// CalendarEvent is a dated item shown on the caller's calendar.
type CalendarEvent struct {
	ID     primitive.ObjectID `json:"id"`
	Kind   string             `json:"kind"`
	Title  string             `json:"title"`
	Date   time.Time          `json:"date"`
	Status string             `json:"status"`
}

type CalendarService struct {
	stores Stores
}

func NewCalendarService(stores Stores) *CalendarService {
	return &CalendarService{stores: stores}
}

// Events lists tasks and exams due within [from, to].
func (s *CalendarService) Events(ctx context.Context, actor Actor, from, to time.Time) ([]CalendarEvent, error) {
	if to.Before(from) {
		return nil, apperr.BadRequest("'to' must not be before 'from'")
	}

	tf := models.TaskFilter{DueFrom: &from, DueTo: &to}
	ef := models.ExamFilter{CreatedBy: actor.ID}
	if actor.IsTutor() {
		tf.CreatedBy = actor.ID
	} else {
		tf.AssignedTo = actor.ID
		ef = models.ExamFilter{AssignedTo: actor.ID, PublishedOnly: true}
	}

	tasks, err := s.stores.Tasks.List(ctx, tf)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	exams, err := s.stores.Exams.List(ctx, ef)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	events := make([]CalendarEvent, 0, len(tasks)+len(exams))
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		events = append(events, CalendarEvent{ID: t.ID, Kind: EventKindTask, Title: t.Title, Date: *t.DueDate, Status: t.Status})
	}

	var taken map[primitive.ObjectID]bool
	if !actor.IsTutor() {
		results, err := s.stores.Results.List(ctx, models.ResultFilter{StudentID: actor.ID})
		if err != nil {
			return nil, apperr.Internal(err)
		}
		taken = make(map[primitive.ObjectID]bool, len(results))
		for _, r := range results {
			taken[r.ExamID] = true
		}
	}
	for _, e := range exams {
		if e.DueDate == nil || e.DueDate.Before(from) || e.DueDate.After(to) {
			continue
		}
		events = append(events, CalendarEvent{ID: e.ID, Kind: EventKindExam, Title: e.Title, Date: *e.DueDate, Status: examStatus(e, actor, taken)})
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events, nil
}

func examStatus(e models.Exam, actor Actor, taken map[primitive.ObjectID]bool) string {
	if actor.IsTutor() {
		if e.IsPublished {
			return "published"
		}
		return "draft"
	}
	if taken[e.ID] {
		return models.TaskCompleted
	}
	return models.TaskPending
}
