package services

import (
	"context"
	"testing"
	"time"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/db/memdb"
	"github.com/arzan03/EduHub/internal/events"
	"github.com/arzan03/EduHub/internal/models"
	"github.com/arzan03/EduHub/internal/storage"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	stores  Stores
	events  *events.Recorder
	objects *storage.MemoryStore

	auth     *AuthService
	users    *UserService
	tasks    *TaskService
	exams    *ExamService
	chat     *ChatService
	dash     *DashboardService
	calendar *CalendarService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memdb.New()
	stores := Stores{
		Users:    memdb.NewUserRepository(db),
		Tasks:    memdb.NewTaskRepository(db),
		Exams:    memdb.NewExamRepository(db),
		Results:  memdb.NewResultRepository(db),
		Messages: memdb.NewMessageRepository(db),
	}
	rec := &events.Recorder{}
	objects := storage.NewMemoryStore("http://cdn.test/avatars")
	log := zap.NewNop()

	exams := NewExamService(stores, rec, log)
	return &fixture{
		stores:   stores,
		events:   rec,
		objects:  objects,
		auth:     NewAuthService(stores.Users, "test-secret", time.Hour, log),
		users:    NewUserService(stores, objects, log),
		tasks:    NewTaskService(stores, rec, log),
		exams:    exams,
		chat:     NewChatService(stores, rec, log),
		dash:     NewDashboardService(stores, exams),
		calendar: NewCalendarService(stores),
	}
}

func (f *fixture) user(t *testing.T, name, role string) Actor {
	t.Helper()
	u := models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     name + "@example.com",
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.stores.Users.Insert(context.Background(), &u))
	return Actor{ID: u.ID, Role: role}
}

// sampleExam has one single and one multiple choice question worth 1 and 2.
func sampleExam(students ...Actor) ExamInput {
	ids := make([]string, len(students))
	for i, s := range students {
		ids[i] = s.ID.Hex()
	}
	return ExamInput{
		Title:           "Algebra quiz",
		DurationMinutes: 30,
		AssignedTo:      ids,
		IsPublished:     ptr(true),
		Questions: []QuestionInput{
			{
				Text:  "2 + 2",
				Type:  models.QuestionSingle,
				Topic: "arithmetic",
				Options: []OptionInput{
					{Text: "3"},
					{Text: "4", IsCorrect: true},
				},
			},
			{
				Text:   "Primes",
				Type:   models.QuestionMultiple,
				Points: 2,
				Options: []OptionInput{
					{Text: "2", IsCorrect: true},
					{Text: "3", IsCorrect: true},
					{Text: "4"},
				},
			},
		},
	}
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok, "expected an apperr.Error, got %v", err)
	require.Equal(t, status, e.Status, e.Message)
}

func ptr[T any](v T) *T { return &v }
