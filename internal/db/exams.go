package db

import (
	"context"
	"time"

	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ExamRepository struct {
	coll *mongo.Collection
}

func NewExamRepository(db *mongo.Database) *ExamRepository {
	return &ExamRepository{coll: db.Collection(examsCollection)}
}

func (r *ExamRepository) Insert(ctx context.Context, e *models.Exam) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, e)
	return translate(err, "exams.insert")
}

func (r *ExamRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Exam, error) {
	var e models.Exam
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	return e, translate(err, "exams.findByID")
}

func (r *ExamRepository) List(ctx context.Context, f models.ExamFilter) ([]models.Exam, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findAll[models.Exam](ctx, r.coll, examQuery(f), opts, "exams.list")
}

func (r *ExamRepository) Count(ctx context.Context, f models.ExamFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, examQuery(f))
	return n, translate(err, "exams.count")
}

func (r *ExamRepository) Update(ctx context.Context, e *models.Exam) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": e.ID}, e)
	if err != nil {
		return translate(err, "exams.update")
	}
	if res.MatchedCount == 0 {
		return translate(mongo.ErrNoDocuments, "exams.update")
	}
	return nil
}

// AddAssignees appends student ids without duplicates and returns the
// updated exam.
func (r *ExamRepository) AddAssignees(ctx context.Context, id primitive.ObjectID, students []primitive.ObjectID) (models.Exam, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$addToSet": bson.M{"assigned_to": bson.M{"$each": students}},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	var e models.Exam
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&e)
	return e, translate(err, "exams.addAssignees")
}

// RemoveAssignee drops a student from every exam's assignment list.
func (r *ExamRepository) RemoveAssignee(ctx context.Context, studentID primitive.ObjectID) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"assigned_to": studentID},
		bson.M{"$pull": bson.M{"assigned_to": studentID}},
	)
	return translate(err, "exams.removeAssignee")
}

func (r *ExamRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "exams.delete")
	}
	if res.DeletedCount == 0 {
		return translate(mongo.ErrNoDocuments, "exams.delete")
	}
	return nil
}

func examQuery(f models.ExamFilter) bson.M {
	q := bson.M{}
	if !f.CreatedBy.IsZero() {
		q["created_by"] = f.CreatedBy
	}
	if !f.AssignedTo.IsZero() {
		q["assigned_to"] = f.AssignedTo
	}
	if f.PublishedOnly {
		q["is_published"] = true
	}
	return q
}
