package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatMessage struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SenderID   primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	ReceiverID primitive.ObjectID `bson:"receiver_id" json:"receiver_id"`
	Content    string             `bson:"content" json:"content"`
	Read       bool               `bson:"read" json:"read"`
	ReadAt     *time.Time         `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// Partner returns the other participant relative to userID.
func (m ChatMessage) Partner(userID primitive.ObjectID) primitive.ObjectID {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// ConversationSummary is one row of the caller's inbox.
type ConversationSummary struct {
	Partner     User        `json:"partner"`
	LastMessage ChatMessage `json:"last_message"`
	Unread      int64       `json:"unread"`
}

// ConversationRow is the store-level aggregate behind ConversationSummary.
type ConversationRow struct {
	PartnerID   primitive.ObjectID `bson:"_id"`
	LastMessage ChatMessage        `bson:"last_message"`
	Unread      int64              `bson:"unread"`
}
