package db

import (
	"context"

	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ResultRepository struct {
	coll *mongo.Collection
}

func NewResultRepository(db *mongo.Database) *ResultRepository {
	return &ResultRepository{coll: db.Collection(resultsCollection)}
}

// Insert stores a graded attempt. The unique (exam, student, attempt) index
// turns a concurrent double submit into ErrDuplicate.
func (r *ResultRepository) Insert(ctx context.Context, res *models.ExamResult) error {
	if res.ID.IsZero() {
		res.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, res)
	return translate(err, "results.insert")
}

// List returns results newest first.
func (r *ResultRepository) List(ctx context.Context, f models.ResultFilter) ([]models.ExamResult, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	return findAll[models.ExamResult](ctx, r.coll, resultQuery(f), opts, "results.list")
}

func (r *ResultRepository) Count(ctx context.Context, f models.ResultFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, resultQuery(f))
	return n, translate(err, "results.count")
}

func (r *ResultRepository) DeleteByExam(ctx context.Context, examID primitive.ObjectID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"exam_id": examID})
	return translate(err, "results.deleteByExam")
}

func (r *ResultRepository) DeleteByStudent(ctx context.Context, studentID primitive.ObjectID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"student_id": studentID})
	return translate(err, "results.deleteByStudent")
}

func resultQuery(f models.ResultFilter) bson.M {
	q := bson.M{}
	switch {
	case !f.ExamID.IsZero():
		q["exam_id"] = f.ExamID
	case f.ExamIDs != nil:
		q["exam_id"] = bson.M{"$in": f.ExamIDs}
	}
	if !f.StudentID.IsZero() {
		q["student_id"] = f.StudentID
	}
	return q
}
