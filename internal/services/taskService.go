package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/events"
	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type TaskInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	DueDate     *time.Time `json:"due_date"`
	Status      string     `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo  string     `json:"assigned_to"`
}

type TaskStatusInput struct {
	Status string `json:"status" validate:"required,oneof=pending in-progress completed"`
}

type TaskQuery struct {
	Status   string `validate:"omitempty,oneof=pending in-progress completed"`
	Priority string `validate:"omitempty,oneof=low medium high"`
}

// TaskAssignedEvent is published when a tutor assigns a task.
type TaskAssignedEvent struct {
	TaskID     string     `json:"task_id"`
	Title      string     `json:"title"`
	AssignedTo string     `json:"assigned_to"`
	AssignedBy string     `json:"assigned_by"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}

type TaskService struct {
	stores Stores
	events events.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewTaskService(stores Stores, pub events.Publisher, log *zap.Logger) *TaskService {
	return &TaskService{
		stores: stores,
		events: pub,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns the caller's tasks: assigned ones for students, created ones
// for tutors. Tasks without due date come last.
func (s *TaskService) List(ctx context.Context, actor Actor, q TaskQuery) ([]models.Task, error) {
	if err := validateStruct(q); err != nil {
		return nil, err
	}
	f := models.TaskFilter{Status: q.Status, Priority: q.Priority}
	if actor.IsTutor() {
		f.CreatedBy = actor.ID
	} else {
		f.AssignedTo = actor.ID
	}

	tasks, err := s.stores.Tasks.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].DueDate != nil && tasks[j].DueDate == nil
	})
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, actor Actor, in TaskInput) (models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return models.Task{}, err
	}
	assignee, err := s.resolveAssignee(ctx, actor, in.AssignedTo)
	if err != nil {
		return models.Task{}, err
	}

	now := s.now()
	task := models.Task{
		ID:          primitive.NewObjectID(),
		Title:       in.Title,
		Description: in.Description,
		DueDate:     utc(in.DueDate),
		Status:      defaultString(in.Status, models.TaskPending),
		Priority:    defaultString(in.Priority, models.PriorityMedium),
		AssignedTo:  assignee,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	setCompletion(&task, now)

	if err := s.stores.Tasks.Insert(ctx, &task); err != nil {
		return models.Task{}, apperr.Internal(err)
	}
	if assignee != actor.ID {
		s.publishAssigned(task)
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, actor Actor, idHex string) (models.Task, error) {
	id, err := parseID(idHex, "task")
	if err != nil {
		return models.Task{}, err
	}
	task, err := s.stores.Tasks.FindByID(ctx, id)
	if err != nil {
		return models.Task{}, notFoundOr(err, "Task not found")
	}
	if !task.VisibleTo(actor.ID) {
		return models.Task{}, apperr.Forbidden("Not authorized to access this task")
	}
	return task, nil
}

// Update replaces the editable fields. Only the creator may edit.
func (s *TaskService) Update(ctx context.Context, actor Actor, idHex string, in TaskInput) (models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return models.Task{}, err
	}
	task, err := s.Get(ctx, actor, idHex)
	if err != nil {
		return models.Task{}, err
	}
	if task.CreatedBy != actor.ID {
		return models.Task{}, apperr.Forbidden("Only the creator can edit this task")
	}

	previous := task.AssignedTo
	if in.AssignedTo != "" {
		if task.AssignedTo, err = s.resolveAssignee(ctx, actor, in.AssignedTo); err != nil {
			return models.Task{}, err
		}
	}

	now := s.now()
	task.Title = in.Title
	task.Description = in.Description
	task.DueDate = utc(in.DueDate)
	task.Priority = defaultString(in.Priority, task.Priority)
	task.Status = defaultString(in.Status, task.Status)
	task.UpdatedAt = now
	setCompletion(&task, now)

	if err := s.stores.Tasks.Update(ctx, &task); err != nil {
		return models.Task{}, notFoundOr(err, "Task not found")
	}
	if task.AssignedTo != previous && task.AssignedTo != actor.ID {
		s.publishAssigned(task)
	}
	return task, nil
}

// UpdateStatus may be called by the creator or the assignee.
func (s *TaskService) UpdateStatus(ctx context.Context, actor Actor, idHex string, in TaskStatusInput) (models.Task, error) {
	if err := validateStruct(in); err != nil {
		return models.Task{}, err
	}
	task, err := s.Get(ctx, actor, idHex)
	if err != nil {
		return models.Task{}, err
	}

	now := s.now()
	task.Status = in.Status
	task.UpdatedAt = now
	setCompletion(&task, now)
	if err := s.stores.Tasks.Update(ctx, &task); err != nil {
		return models.Task{}, notFoundOr(err, "Task not found")
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, actor Actor, idHex string) error {
	task, err := s.Get(ctx, actor, idHex)
	if err != nil {
		return err
	}
	if task.CreatedBy != actor.ID {
		return apperr.Forbidden("Only the creator can delete this task")
	}
	if err := s.stores.Tasks.Delete(ctx, task.ID); err != nil {
		return notFoundOr(err, "Task not found")
	}
	return nil
}

// resolveAssignee applies the role rules: tutors assign to an existing
// student, students may only assign to themselves.
func (s *TaskService) resolveAssignee(ctx context.Context, actor Actor, hex string) (primitive.ObjectID, error) {
	if !actor.IsTutor() {
		if hex != "" && hex != actor.ID.Hex() {
			return primitive.NilObjectID, apperr.Forbidden("Students can only create tasks for themselves")
		}
		return actor.ID, nil
	}

	if hex == "" {
		return primitive.NilObjectID, apperr.Validation(apperr.FieldError{Field: "assigned_to", Message: "assigned_to is required"})
	}
	id, err := parseID(hex, "student")
	if err != nil {
		return primitive.NilObjectID, err
	}
	student, err := s.stores.Users.FindByID(ctx, id)
	if err != nil {
		return primitive.NilObjectID, notFoundOr(err, "Student not found")
	}
	if !student.IsStudent() {
		return primitive.NilObjectID, apperr.BadRequest("Tasks can only be assigned to students")
	}
	return id, nil
}

func (s *TaskService) publishAssigned(t models.Task) {
	evt := TaskAssignedEvent{
		TaskID:     t.ID.Hex(),
		Title:      t.Title,
		AssignedTo: t.AssignedTo.Hex(),
		AssignedBy: t.CreatedBy.Hex(),
		DueDate:    t.DueDate,
	}
	if err := s.events.Publish(events.SubjectTaskAssigned, evt); err != nil {
		s.log.Warn("failed to publish event", zap.String("subject", events.SubjectTaskAssigned), zap.Error(err))
	}
}

// setCompletion keeps CompletedAt consistent with Status.
func setCompletion(t *models.Task, now time.Time) {
	switch {
	case t.Status == models.TaskCompleted && t.CompletedAt == nil:
		t.CompletedAt = &now
	case t.Status != models.TaskCompleted:
		t.CompletedAt = nil
	}
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
