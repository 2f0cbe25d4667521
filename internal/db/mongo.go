package db

import (
	"context"
	"time"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	usersCollection    = "users"
	tasksCollection    = "tasks"
	examsCollection    = "exams"
	resultsCollection  = "exam_results"
	messagesCollection = "messages"
)

// ConnectMongoDB opens the client, verifies it with a ping and returns the
// application database.
func ConnectMongoDB(ctx context.Context, uri, dbName string, log *zap.Logger) (*mongo.Database, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongo ping")
	}

	log.Info("connected to MongoDB", zap.String("database", dbName))
	return client.Database(dbName), nil
}

// EnsureIndexes creates the indexes every query path relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		tasksCollection: {
			{Keys: bson.D{{Key: "assigned_to", Value: 1}, {Key: "due_date", Value: 1}}},
			{Keys: bson.D{{Key: "created_by", Value: 1}, {Key: "due_date", Value: 1}}},
		},
		examsCollection: {
			{Keys: bson.D{{Key: "created_by", Value: 1}}},
			{Keys: bson.D{{Key: "assigned_to", Value: 1}, {Key: "is_published", Value: 1}}},
		},
		resultsCollection: {
			{Keys: bson.D{{Key: "exam_id", Value: 1}, {Key: "student_id", Value: 1}, {Key: "attempt", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "submitted_at", Value: -1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}}},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "create indexes on %s", coll)
		}
	}
	return nil
}

// Pinger reports database reachability for the health endpoint.
type Pinger struct {
	client *mongo.Client
}

func NewPinger(db *mongo.Database) *Pinger {
	return &Pinger{client: db.Client()}
}

func (p *Pinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, readpref.Primary())
}

// translate maps driver errors onto the store sentinels.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return errors.Wrap(apperr.ErrNotFound, op)
	case mongo.IsDuplicateKeyError(err):
		return errors.Wrap(apperr.ErrDuplicate, op)
	default:
		return errors.Wrap(err, op)
	}
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptions, op string) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err, op)
	}
	defer cursor.Close(ctx)

	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, op+": decode")
	}
	return out, nil
}
