package db

import (
	"context"

	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TaskRepository struct {
	coll *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{coll: db.Collection(tasksCollection)}
}

func (r *TaskRepository) Insert(ctx context.Context, t *models.Task) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, t)
	return translate(err, "tasks.insert")
}

func (r *TaskRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Task, error) {
	var t models.Task
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	return t, translate(err, "tasks.findByID")
}

// List returns tasks ordered by due date; ordering of undated tasks is left
// to the caller.
func (r *TaskRepository) List(ctx context.Context, f models.TaskFilter) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}, {Key: "created_at", Value: -1}})
	return findAll[models.Task](ctx, r.coll, taskQuery(f), opts, "tasks.list")
}

func (r *TaskRepository) CountByStatus(ctx context.Context, f models.TaskFilter) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: taskQuery(f)}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate(err, "tasks.countByStatus")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, translate(err, "tasks.countByStatus")
	}

	out := make(map[string]int64, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *TaskRepository) Update(ctx context.Context, t *models.Task) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	if err != nil {
		return translate(err, "tasks.update")
	}
	if res.MatchedCount == 0 {
		return translate(mongo.ErrNoDocuments, "tasks.update")
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "tasks.delete")
	}
	if res.DeletedCount == 0 {
		return translate(mongo.ErrNoDocuments, "tasks.delete")
	}
	return nil
}

// DeleteByUser removes every task a user created or was assigned.
func (r *TaskRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"assigned_to": userID},
		bson.M{"created_by": userID},
	}})
	return translate(err, "tasks.deleteByUser")
}

func taskQuery(f models.TaskFilter) bson.M {
	q := bson.M{}
	if !f.AssignedTo.IsZero() {
		q["assigned_to"] = f.AssignedTo
	}
	if !f.CreatedBy.IsZero() {
		q["created_by"] = f.CreatedBy
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Priority != "" {
		q["priority"] = f.Priority
	}
	if f.DueFrom != nil || f.DueTo != nil {
		due := bson.M{}
		if f.DueFrom != nil {
			due["$gte"] = *f.DueFrom
		}
		if f.DueTo != nil {
			due["$lte"] = *f.DueTo
		}
		q["due_date"] = due
	}
	return q
}
