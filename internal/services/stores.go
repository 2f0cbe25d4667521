package services

import (
	"context"
	"io"
	"time"

	"github.com/arzan03/EduHub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repositories the services depend on. internal/db implements them on
// MongoDB and internal/db/memdb in memory.

type UserStore interface {
	Insert(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	List(ctx context.Context, f models.UserFilter) ([]models.User, error)
	Count(ctx context.Context, f models.UserFilter) (int64, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type TaskStore interface {
	Insert(ctx context.Context, t *models.Task) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Task, error)
	List(ctx context.Context, f models.TaskFilter) ([]models.Task, error)
	CountByStatus(ctx context.Context, f models.TaskFilter) (map[string]int64, error)
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type ExamStore interface {
	Insert(ctx context.Context, e *models.Exam) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Exam, error)
	List(ctx context.Context, f models.ExamFilter) ([]models.Exam, error)
	Count(ctx context.Context, f models.ExamFilter) (int64, error)
	Update(ctx context.Context, e *models.Exam) error
	AddAssignees(ctx context.Context, id primitive.ObjectID, students []primitive.ObjectID) (models.Exam, error)
	RemoveAssignee(ctx context.Context, studentID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ResultStore interface {
	Insert(ctx context.Context, r *models.ExamResult) error
	List(ctx context.Context, f models.ResultFilter) ([]models.ExamResult, error)
	Count(ctx context.Context, f models.ResultFilter) (int64, error)
	DeleteByExam(ctx context.Context, examID primitive.ObjectID) error
	DeleteByStudent(ctx context.Context, studentID primitive.ObjectID) error
}

type MessageStore interface {
	Insert(ctx context.Context, m *models.ChatMessage) error
	FindByID(ctx context.Context, id primitive.ObjectID) (models.ChatMessage, error)
	Conversation(ctx context.Context, a, b primitive.ObjectID, before *time.Time, limit int64) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, sender, receiver primitive.ObjectID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, receiver primitive.ObjectID) (int64, error)
	Conversations(ctx context.Context, userID primitive.ObjectID) ([]models.ConversationRow, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

// ObjectStore holds uploaded binary content such as avatars.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

// Stores bundles every repository.
type Stores struct {
	Users    UserStore
	Tasks    TaskStore
	Exams    ExamStore
	Results  ResultStore
	Messages MessageStore
}

// Actor is the authenticated caller as established by the JWT middleware.
type Actor struct {
	ID   primitive.ObjectID
	Role string
}

func (a Actor) IsTutor() bool   { return a.Role == models.RoleTutor }
func (a Actor) IsStudent() bool { return a.Role == models.RoleStudent }
