package memdb

import (
	"context"
	"time"

	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ExamRepository struct {
	db *DB
}

func NewExamRepository(db *DB) *ExamRepository {
	return &ExamRepository{db: db}
}

func (r *ExamRepository) Insert(_ context.Context, e *models.Exam) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if _, ok := r.db.exams[e.ID]; ok {
		return duplicate("exams.insert")
	}
	r.db.exams[e.ID] = &row[models.Exam]{seq: r.db.next(), val: cloneExam(*e)}
	return nil
}

func (r *ExamRepository) FindByID(_ context.Context, id primitive.ObjectID) (models.Exam, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if e, ok := r.db.exams[id]; ok {
		return cloneExam(e.val), nil
	}
	return models.Exam{}, notFound("exams.findByID")
}

func (r *ExamRepository) List(_ context.Context, f models.ExamFilter) ([]models.Exam, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows := query(r.db.exams, examMatcher(f), func(a, b *row[models.Exam]) bool {
		if !a.val.CreatedAt.Equal(b.val.CreatedAt) {
			return a.val.CreatedAt.After(b.val.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]models.Exam, len(rows))
	for i, e := range rows {
		out[i] = cloneExam(e.val)
	}
	return out, nil
}

func (r *ExamRepository) Count(_ context.Context, f models.ExamFilter) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return int64(len(query(r.db.exams, examMatcher(f), nil))), nil
}

func (r *ExamRepository) Update(_ context.Context, e *models.Exam) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.exams[e.ID]
	if !ok {
		return notFound("exams.update")
	}
	existing.val = cloneExam(*e)
	return nil
}

func (r *ExamRepository) AddAssignees(_ context.Context, id primitive.ObjectID, students []primitive.ObjectID) (models.Exam, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.exams[id]
	if !ok {
		return models.Exam{}, notFound("exams.addAssignees")
	}
	for _, s := range students {
		if !existing.val.IsAssigned(s) {
			existing.val.AssignedTo = append(existing.val.AssignedTo, s)
		}
	}
	existing.val.UpdatedAt = time.Now().UTC()
	return cloneExam(existing.val), nil
}

func (r *ExamRepository) RemoveAssignee(_ context.Context, studentID primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, e := range r.db.exams {
		kept := e.val.AssignedTo[:0]
		for _, id := range e.val.AssignedTo {
			if id != studentID {
				kept = append(kept, id)
			}
		}
		e.val.AssignedTo = kept
	}
	return nil
}

func (r *ExamRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.exams[id]; !ok {
		return notFound("exams.delete")
	}
	delete(r.db.exams, id)
	return nil
}

func examMatcher(f models.ExamFilter) func(models.Exam) bool {
	return func(e models.Exam) bool {
		if !f.CreatedBy.IsZero() && e.CreatedBy != f.CreatedBy {
			return false
		}
		if !f.AssignedTo.IsZero() && !e.IsAssigned(f.AssignedTo) {
			return false
		}
		if f.PublishedOnly && !e.IsPublished {
			return false
		}
		return true
	}
}
