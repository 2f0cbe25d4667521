package memdb

import (
	"context"
	"time"

	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageRepository struct {
	db *DB
}

func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Insert(_ context.Context, m *models.ChatMessage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	r.db.messages[m.ID] = &row[models.ChatMessage]{seq: r.db.next(), val: *m}
	return nil
}

func (r *MessageRepository) FindByID(_ context.Context, id primitive.ObjectID) (models.ChatMessage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if m, ok := r.db.messages[id]; ok {
		return m.val, nil
	}
	return models.ChatMessage{}, notFound("messages.findByID")
}

func (r *MessageRepository) Conversation(_ context.Context, a, b primitive.ObjectID, before *time.Time, limit int64) ([]models.ChatMessage, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows := query(r.db.messages, func(m models.ChatMessage) bool {
		between := (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
		return between && (before == nil || m.CreatedAt.Before(*before))
	}, newestFirst)

	if limit > 0 && int64(len(rows)) > limit {
		rows = rows[:limit]
	}
	out := make([]models.ChatMessage, len(rows))
	for i, m := range rows {
		out[len(rows)-1-i] = m.val
	}
	return out, nil
}

func (r *MessageRepository) MarkRead(_ context.Context, sender, receiver primitive.ObjectID, at time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for _, m := range r.db.messages {
		if m.val.SenderID == sender && m.val.ReceiverID == receiver && !m.val.Read {
			readAt := at
			m.val.Read = true
			m.val.ReadAt = &readAt
			n++
		}
	}
	return n, nil
}

func (r *MessageRepository) CountUnread(_ context.Context, receiver primitive.ObjectID) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var n int64
	for _, m := range r.db.messages {
		if m.val.ReceiverID == receiver && !m.val.Read {
			n++
		}
	}
	return n, nil
}

func (r *MessageRepository) Conversations(_ context.Context, userID primitive.ObjectID) ([]models.ConversationRow, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rows := query(r.db.messages, func(m models.ChatMessage) bool {
		return m.SenderID == userID || m.ReceiverID == userID
	}, newestFirst)

	index := make(map[primitive.ObjectID]int)
	out := make([]models.ConversationRow, 0)
	for _, m := range rows {
		partner := m.val.Partner(userID)
		i, seen := index[partner]
		if !seen {
			i = len(out)
			index[partner] = i
			out = append(out, models.ConversationRow{PartnerID: partner, LastMessage: m.val})
		}
		if m.val.ReceiverID == userID && !m.val.Read {
			out[i].Unread++
		}
	}
	return out, nil
}

func (r *MessageRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.messages[id]; !ok {
		return notFound("messages.delete")
	}
	delete(r.db.messages, id)
	return nil
}

func (r *MessageRepository) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, m := range r.db.messages {
		if m.val.SenderID == userID || m.val.ReceiverID == userID {
			delete(r.db.messages, id)
		}
	}
	return nil
}

func newestFirst(a, b *row[models.ChatMessage]) bool {
	if !a.val.CreatedAt.Equal(b.val.CreatedAt) {
		return a.val.CreatedAt.After(b.val.CreatedAt)
	}
	return a.seq > b.seq
}
