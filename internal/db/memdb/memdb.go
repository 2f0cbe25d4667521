// Package memdb keeps every collection in process memory. It backs the
// handler and service tests and lets the API run without MongoDB.
package memdb

import (
	"context"
	"sort"
	"sync"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/models"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DB groups the in-memory tables behind a single lock.
type DB struct {
	mu       sync.RWMutex
	seq      int64
	users    map[primitive.ObjectID]*row[models.User]
	tasks    map[primitive.ObjectID]*row[models.Task]
	exams    map[primitive.ObjectID]*row[models.Exam]
	results  map[primitive.ObjectID]*row[models.ExamResult]
	messages map[primitive.ObjectID]*row[models.ChatMessage]
}

// row remembers insertion order so ties sort deterministically.
type row[T any] struct {
	seq int64
	val T
}

func New() *DB {
	return &DB{
		users:    make(map[primitive.ObjectID]*row[models.User]),
		tasks:    make(map[primitive.ObjectID]*row[models.Task]),
		exams:    make(map[primitive.ObjectID]*row[models.Exam]),
		results:  make(map[primitive.ObjectID]*row[models.ExamResult]),
		messages: make(map[primitive.ObjectID]*row[models.ChatMessage]),
	}
}

// Ping always succeeds; it lets the health check treat memdb like MongoDB.
func (db *DB) Ping(context.Context) error { return nil }

func (db *DB) next() int64 {
	db.seq++
	return db.seq
}

func notFound(op string) error  { return errors.Wrap(apperr.ErrNotFound, op) }
func duplicate(op string) error { return errors.Wrap(apperr.ErrDuplicate, op) }

// query returns the rows matching keep ordered by less, or by insertion
// when less is nil.
func query[T any](m map[primitive.ObjectID]*row[T], keep func(T) bool, less func(a, b *row[T]) bool) []*row[T] {
	out := make([]*row[T], 0, len(m))
	for _, r := range m {
		if keep == nil || keep(r.val) {
			out = append(out, r)
		}
	}
	if less == nil {
		less = func(a, b *row[T]) bool { return a.seq < b.seq }
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return nil
	}
	return append([]primitive.ObjectID(nil), ids...)
}

func cloneExam(e models.Exam) models.Exam {
	e.AssignedTo = cloneIDs(e.AssignedTo)
	if e.Questions != nil {
		qs := make([]models.Question, len(e.Questions))
		for i, q := range e.Questions {
			q.Options = append([]models.Option(nil), q.Options...)
			qs[i] = q
		}
		e.Questions = qs
	}
	return e
}

func cloneResult(r models.ExamResult) models.ExamResult {
	if r.Answers != nil {
		as := make([]models.Answer, len(r.Answers))
		for i, a := range r.Answers {
			a.SelectedOptions = append([]int(nil), a.SelectedOptions...)
			as[i] = a
		}
		r.Answers = as
	}
	return r
}
