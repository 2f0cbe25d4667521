package memdb

import (
	"context"

	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ResultRepository struct {
	db *DB
}

func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) Insert(_ context.Context, res *models.ExamResult) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.results {
		v := existing.val
		if v.ExamID == res.ExamID && v.StudentID == res.StudentID && v.Attempt == res.Attempt {
			return duplicate("results.insert")
		}
	}
	if res.ID.IsZero() {
		res.ID = primitive.NewObjectID()
	}
	r.db.results[res.ID] = &row[models.ExamResult]{seq: r.db.next(), val: cloneResult(*res)}
	return nil
}

// List returns results newest first.
func (r *ResultRepository) List(_ context.Context, f models.ResultFilter) ([]models.ExamResult, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows := query(r.db.results, resultMatcher(f), func(a, b *row[models.ExamResult]) bool {
		if !a.val.SubmittedAt.Equal(b.val.SubmittedAt) {
			return a.val.SubmittedAt.After(b.val.SubmittedAt)
		}
		return a.seq > b.seq
	})
	if f.Limit > 0 && int64(len(rows)) > f.Limit {
		rows = rows[:f.Limit]
	}
	out := make([]models.ExamResult, len(rows))
	for i, res := range rows {
		out[i] = cloneResult(res.val)
	}
	return out, nil
}

func (r *ResultRepository) Count(_ context.Context, f models.ResultFilter) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return int64(len(query(r.db.results, resultMatcher(f), nil))), nil
}

func (r *ResultRepository) DeleteByExam(_ context.Context, examID primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, res := range r.db.results {
		if res.val.ExamID == examID {
			delete(r.db.results, id)
		}
	}
	return nil
}

func (r *ResultRepository) DeleteByStudent(_ context.Context, studentID primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, res := range r.db.results {
		if res.val.StudentID == studentID {
			delete(r.db.results, id)
		}
	}
	return nil
}

func resultMatcher(f models.ResultFilter) func(models.ExamResult) bool {
	var examIDs map[primitive.ObjectID]struct{}
	if f.ExamID.IsZero() && f.ExamIDs != nil {
		examIDs = make(map[primitive.ObjectID]struct{}, len(f.ExamIDs))
		for _, id := range f.ExamIDs {
			examIDs[id] = struct{}{}
		}
	}
	return func(r models.ExamResult) bool {
		if !f.ExamID.IsZero() && r.ExamID != f.ExamID {
			return false
		}
		if examIDs != nil {
			if _, ok := examIDs[r.ExamID]; !ok {
				return false
			}
		}
		if !f.StudentID.IsZero() && r.StudentID != f.StudentID {
			return false
		}
		return true
	}
}
