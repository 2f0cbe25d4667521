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

type MessageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{coll: db.Collection(messagesCollection)}
}

func (r *MessageRepository) Insert(ctx context.Context, m *models.ChatMessage) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, m)
	return translate(err, "messages.insert")
}

func (r *MessageRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.ChatMessage, error) {
	var m models.ChatMessage
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	return m, translate(err, "messages.findByID")
}

// Conversation returns up to limit messages between a and b created before
// the given instant (if any), oldest first.
func (r *MessageRepository) Conversation(ctx context.Context, a, b primitive.ObjectID, before *time.Time, limit int64) ([]models.ChatMessage, error) {
	q := bson.M{"$or": bson.A{
		bson.M{"sender_id": a, "receiver_id": b},
		bson.M{"sender_id": b, "receiver_id": a},
	}}
	if before != nil {
		q["created_at"] = bson.M{"$lt": *before}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	msgs, err := findAll[models.ChatMessage](ctx, r.coll, q, opts, "messages.conversation")
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MarkRead flags every unread message from sender to receiver as read.
func (r *MessageRepository) MarkRead(ctx context.Context, sender, receiver primitive.ObjectID, at time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"sender_id": sender, "receiver_id": receiver, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": at}},
	)
	if err != nil {
		return 0, translate(err, "messages.markRead")
	}
	return res.ModifiedCount, nil
}

func (r *MessageRepository) CountUnread(ctx context.Context, receiver primitive.ObjectID) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"receiver_id": receiver, "read": false})
	return n, translate(err, "messages.countUnread")
}

// Conversations groups the user's messages by partner, newest conversation
// first.
func (r *MessageRepository) Conversations(ctx context.Context, userID primitive.ObjectID) ([]models.ConversationRow, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"sender_id": userID},
			bson.M{"receiver_id": userID},
		}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$sender_id", userID}}, "$receiver_id", "$sender_id",
			}},
			"last_message": bson.M{"$first": "$$ROOT"},
			"unread": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$receiver_id", userID}},
					bson.M{"$eq": bson.A{"$read", false}},
				}}, 1, 0,
			}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last_message.created_at", Value: -1}}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate(err, "messages.conversations")
	}
	defer cursor.Close(ctx)

	rows := make([]models.ConversationRow, 0)
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, translate(err, "messages.conversations")
	}
	return rows, nil
}

func (r *MessageRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "messages.delete")
	}
	if res.DeletedCount == 0 {
		return translate(mongo.ErrNoDocuments, "messages.delete")
	}
	return nil
}

func (r *MessageRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"sender_id": userID},
		bson.M{"receiver_id": userID},
	}})
	return translate(err, "messages.deleteByUser")
}
