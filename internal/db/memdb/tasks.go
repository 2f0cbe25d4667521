package memdb

import (
	"context"

	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskRepository struct {
	db *DB
}

func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Insert(_ context.Context, t *models.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if _, ok := r.db.tasks[t.ID]; ok {
		return duplicate("tasks.insert")
	}
	r.db.tasks[t.ID] = &row[models.Task]{seq: r.db.next(), val: *t}
	return nil
}

func (r *TaskRepository) FindByID(_ context.Context, id primitive.ObjectID) (models.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if t, ok := r.db.tasks[id]; ok {
		return t.val, nil
	}
	return models.Task{}, notFound("tasks.findByID")
}

// List mirrors MongoDB's ascending sort where missing due dates come first.
func (r *TaskRepository) List(_ context.Context, f models.TaskFilter) ([]models.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows := query(r.db.tasks, taskMatcher(f), func(a, b *row[models.Task]) bool {
		ad, bd := a.val.DueDate, b.val.DueDate
		switch {
		case ad == nil && bd != nil:
			return true
		case ad != nil && bd == nil:
			return false
		case ad != nil && !ad.Equal(*bd):
			return ad.Before(*bd)
		default:
			return a.seq > b.seq
		}
	})
	out := make([]models.Task, len(rows))
	for i, t := range rows {
		out[i] = t.val
	}
	return out, nil
}

func (r *TaskRepository) CountByStatus(_ context.Context, f models.TaskFilter) (map[string]int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make(map[string]int64, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		out[s] = 0
	}
	for _, t := range query(r.db.tasks, taskMatcher(f), nil) {
		out[t.val.Status]++
	}
	return out, nil
}

func (r *TaskRepository) Update(_ context.Context, t *models.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.tasks[t.ID]
	if !ok {
		return notFound("tasks.update")
	}
	existing.val = *t
	return nil
}

func (r *TaskRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.tasks[id]; !ok {
		return notFound("tasks.delete")
	}
	delete(r.db.tasks, id)
	return nil
}

func (r *TaskRepository) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, t := range r.db.tasks {
		if t.val.AssignedTo == userID || t.val.CreatedBy == userID {
			delete(r.db.tasks, id)
		}
	}
	return nil
}

func taskMatcher(f models.TaskFilter) func(models.Task) bool {
	return func(t models.Task) bool {
		if !f.AssignedTo.IsZero() && t.AssignedTo != f.AssignedTo {
			return false
		}
		if !f.CreatedBy.IsZero() && t.CreatedBy != f.CreatedBy {
			return false
		}
		if f.Status != "" && t.Status != f.Status {
			return false
		}
		if f.Priority != "" && t.Priority != f.Priority {
			return false
		}
		if f.DueFrom != nil || f.DueTo != nil {
			if t.DueDate == nil {
				return false
			}
			if f.DueFrom != nil && t.DueDate.Before(*f.DueFrom) {
				return false
			}
			if f.DueTo != nil && t.DueDate.After(*f.DueTo) {
				return false
			}
		}
		return true
	}
}
