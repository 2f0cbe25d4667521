package services

import (
	"context"
	"strings"
	"time"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/events"
	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type SendMessageInput struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
	Content    string `json:"content" validate:"required,max=2000"`
}

// ConversationQuery pages backwards through a conversation.
type ConversationQuery struct {
	Limit  int
	Before *time.Time
}

type ChatMessageEvent struct {
	MessageID  string `json:"message_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	ReceiverID string `json:"receiver_id"`
	Preview    string `json:"preview"`
}

type ChatService struct {
	stores Stores
	events events.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewChatService(stores Stores, pub events.Publisher, log *zap.Logger) *ChatService {
	return &ChatService{
		stores: stores,
		events: pub,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *ChatService) Send(ctx context.Context, actor Actor, in SendMessageInput) (models.ChatMessage, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validateStruct(in); err != nil {
		return models.ChatMessage{}, err
	}
	receiverID, err := parseID(in.ReceiverID, "receiver")
	if err != nil {
		return models.ChatMessage{}, err
	}
	if receiverID == actor.ID {
		return models.ChatMessage{}, apperr.BadRequest("You cannot message yourself")
	}
	if _, err := s.stores.Users.FindByID(ctx, receiverID); err != nil {
		return models.ChatMessage{}, notFoundOr(err, "Receiver not found")
	}

	msg := models.ChatMessage{
		ID:         primitive.NewObjectID(),
		SenderID:   actor.ID,
		ReceiverID: receiverID,
		Content:    in.Content,
		CreatedAt:  s.now(),
	}
	if err := s.stores.Messages.Insert(ctx, &msg); err != nil {
		return models.ChatMessage{}, apperr.Internal(err)
	}
	s.publish(ctx, msg)
	return msg, nil
}

// Conversation returns messages exchanged with partner, oldest first, and
// marks the partner's messages to the caller as read.
func (s *ChatService) Conversation(ctx context.Context, actor Actor, partnerHex string, q ConversationQuery) ([]models.ChatMessage, error) {
	partner, err := parseID(partnerHex, "user")
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	msgs, err := s.stores.Messages.Conversation(ctx, actor.ID, partner, q.Before, int64(limit))
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := s.now()
	if _, err := s.stores.Messages.MarkRead(ctx, partner, actor.ID, now); err != nil {
		s.log.Warn("failed to mark messages read", zap.String("user_id", actor.ID.Hex()), zap.Error(err))
	} else {
		for i := range msgs {
			if msgs[i].SenderID == partner && !msgs[i].Read {
				msgs[i].Read = true
				msgs[i].ReadAt = &now
			}
		}
	}
	return msgs, nil
}

// Conversations lists one entry per chat partner, most recent first.
func (s *ChatService) Conversations(ctx context.Context, actor Actor) ([]models.ConversationSummary, error) {
	rows, err := s.stores.Messages.Conversations(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	ids := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.PartnerID
	}
	users, err := s.stores.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]models.ConversationSummary, 0, len(rows))
	for _, r := range rows {
		partner, ok := byID[r.PartnerID]
		if !ok {
			continue
		}
		out = append(out, models.ConversationSummary{Partner: partner, LastMessage: r.LastMessage, Unread: r.Unread})
	}
	return out, nil
}

func (s *ChatService) Unread(ctx context.Context, actor Actor) (int64, error) {
	n, err := s.stores.Messages.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return n, nil
}

// Delete removes a message. Only its sender may do so.
func (s *ChatService) Delete(ctx context.Context, actor Actor, idHex string) error {
	id, err := parseID(idHex, "message")
	if err != nil {
		return err
	}
	msg, err := s.stores.Messages.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "Message not found")
	}
	if msg.SenderID != actor.ID {
		return apperr.Forbidden("You can only delete your own messages")
	}
	if err := s.stores.Messages.Delete(ctx, id); err != nil {
		return notFoundOr(err, "Message not found")
	}
	return nil
}

func (s *ChatService) publish(ctx context.Context, msg models.ChatMessage) {
	evt := ChatMessageEvent{
		MessageID:  msg.ID.Hex(),
		SenderID:   msg.SenderID.Hex(),
		ReceiverID: msg.ReceiverID.Hex(),
		Preview:    preview(msg.Content, 80),
	}
	if sender, err := s.stores.Users.FindByID(ctx, msg.SenderID); err == nil {
		evt.SenderName = sender.Name
	}
	if err := s.events.Publish(events.SubjectChatMessage, evt); err != nil {
		s.log.Warn("failed to publish event", zap.String("subject", events.SubjectChatMessage), zap.Error(err))
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
