package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/arzan03/EduHub/internal/db/memdb"
	"github.com/arzan03/EduHub/internal/events"
	"github.com/arzan03/EduHub/internal/services"
	"github.com/arzan03/EduHub/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app    *fiber.App
	events *events.Recorder
}

func newTestServer(t *testing.T, db Pinger) *testServer {
	t.Helper()
	mem := memdb.New()
	stores := services.Stores{
		Users:    memdb.NewUserRepository(mem),
		Tasks:    memdb.NewTaskRepository(mem),
		Exams:    memdb.NewExamRepository(mem),
		Results:  memdb.NewResultRepository(mem),
		Messages: memdb.NewMessageRepository(mem),
	}
	rec := &events.Recorder{}
	log := zap.NewNop()
	avatars := storage.NewMemoryStore("http://cdn.test/avatars")
	exams := services.NewExamService(stores, rec, log)

	app := NewApp(Options{
		Services: Services{
			Auth:      services.NewAuthService(stores.Users, "test-secret", time.Hour, log),
			Users:     services.NewUserService(stores, avatars, log),
			Tasks:     services.NewTaskService(stores, rec, log),
			Exams:     exams,
			Chat:      services.NewChatService(stores, rec, log),
			Dashboard: services.NewDashboardService(stores, exams),
			Calendar:  services.NewCalendarService(stores),
		},
		DB:          db,
		Log:         log,
		Registry:    prometheus.NewRegistry(),
		Development: true,
		CORSOrigins: "*",
		Version:     "test",
		Avatars:     avatars,
	})
	return &testServer{app: app, events: rec}
}

// do sends a JSON request and decodes the JSON response into out when out
// is not nil.
func (s *testServer) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return s.send(t, req, out)
}

func (s *testServer) send(t *testing.T, req *http.Request, out any) int {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type authBody struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"user"`
}

func (s *testServer) register(t *testing.T, name, role string) authBody {
	t.Helper()
	var res authBody
	code := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": name + "@example.com", "password": "secret1", "role": role,
	}, &res)
	require.Equal(t, http.StatusCreated, code)
	return res
}

type errorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
	Error   string            `json:"error"`
}

func TestHealth(t *testing.T) {
	var body map[string]string
	code := newTestServer(t, fakePinger{}).do(t, http.MethodGet, "/health", "", nil, &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, "test", body["version"])

	code = newTestServer(t, fakePinger{err: errors.New("no servers")}).do(t, http.MethodGet, "/health", "", nil, &body)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "disconnected", body["database"])
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	reg := s.register(t, "ada", "tutor")
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "tutor", reg.User.Role)

	var dup errorBody
	code := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "ada", "email": "ada@example.com", "password": "secret1", "role": "tutor",
	}, &dup)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email already in use", dup.Message)

	var login authBody
	code = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "secret1"}, &login)
	require.Equal(t, http.StatusOK, code)

	var me map[string]any
	code = s.do(t, http.MethodGet, "/api/auth/me", login.Token, nil, &me)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ada@example.com", me["email"])
	assert.NotContains(t, me, "password")

	var bad errorBody
	code = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "nope"}, &bad)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid credentials", bad.Message)
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	var body errorBody
	code := s.do(t, http.MethodGet, "/api/tasks", "", nil, &body)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Missing token", body.Message)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Token abc")
	code = s.send(t, req, &body)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid token format", body.Message)

	code = s.do(t, http.MethodGet, "/api/tasks", "garbage", nil, &body)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid token", body.Message)
}

func TestRoleGuard(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	student := s.register(t, "bob", "student")

	var body errorBody
	code := s.do(t, http.MethodPost, "/api/exams", student.Token, map[string]any{"title": "x"}, &body)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Access denied. Tutors only.", body.Message)

	code = s.do(t, http.MethodGet, "/api/users", student.Token, nil, &body)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestValidationErrorsListFields(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	var body errorBody
	code := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "bad"}, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Validation failed", body.Message)
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "name")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	code = s.send(t, req, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request body", body.Message)
	assert.NotEmpty(t, body.Error)
}

func TestTaskRoutes(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	tutor := s.register(t, "ada", "tutor")
	student := s.register(t, "bob", "student")

	var task map[string]any
	code := s.do(t, http.MethodPost, "/api/tasks", tutor.Token, map[string]any{
		"title": "Read chapter 1", "assigned_to": student.User.ID, "due_date": "2030-01-02T15:04:05Z",
	}, &task)
	require.Equal(t, http.StatusCreated, code)
	id := task["id"].(string)

	var list []map[string]any
	code = s.do(t, http.MethodGet, "/api/tasks", student.Token, nil, &list)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, list, 1)

	code = s.do(t, http.MethodPatch, "/api/tasks/"+id+"/status", student.Token, map[string]string{"status": "completed"}, &task)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", task["status"])
	assert.NotEmpty(t, task["completed_at"])

	var body errorBody
	code = s.do(t, http.MethodDelete, "/api/tasks/"+id, student.Token, nil, &body)
	assert.Equal(t, http.StatusForbidden, code)

	code = s.do(t, http.MethodGet, "/api/tasks/not-an-id", student.Token, nil, &body)
	assert.Equal(t, http.StatusBadRequest, code)

	code = s.do(t, http.MethodDelete, "/api/tasks/"+id, tutor.Token, nil, &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Task deleted successfully", body.Message)
}

func TestExamRoutes(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	tutor := s.register(t, "ada", "tutor")
	student := s.register(t, "bob", "student")

	var exam struct {
		ID        string `json:"id"`
		Questions []struct {
			ID string `json:"id"`
		} `json:"questions"`
	}
	code := s.do(t, http.MethodPost, "/api/exams", tutor.Token, map[string]any{
		"title":            "Quiz",
		"duration_minutes": 10,
		"is_published":     true,
		"assigned_to":      []string{student.User.ID},
		"questions": []map[string]any{{
			"text": "2 + 2", "type": "single",
			"options": []map[string]any{{"text": "3"}, {"text": "4", "is_correct": true}},
		}},
	}, &exam)
	require.Equal(t, http.StatusCreated, code)

	var view map[string]any
	code = s.do(t, http.MethodGet, "/api/exams/"+exam.ID, student.Token, nil, &view)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, view["attempts_used"])

	var result map[string]any
	submit := map[string]any{"answers": []map[string]any{{"question_id": exam.Questions[0].ID, "selected_options": []int{1}}}}
	code = s.do(t, http.MethodPost, "/api/exams/"+exam.ID+"/submit", student.Token, submit, &result)
	require.Equal(t, http.StatusCreated, code)
	assert.EqualValues(t, 100, result["percentage"])
	assert.Equal(t, true, result["passed"])

	var body errorBody
	code = s.do(t, http.MethodPost, "/api/exams/"+exam.ID+"/submit", student.Token, submit, &body)
	assert.Equal(t, http.StatusForbidden, code)

	var mine []map[string]any
	code = s.do(t, http.MethodGet, "/api/exams/results/me", student.Token, nil, &mine)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, mine, 1)
	assert.Equal(t, "Quiz", mine[0]["exam_title"])

	var report map[string]any
	code = s.do(t, http.MethodGet, "/api/exams/"+exam.ID+"/analytics", tutor.Token, nil, &report)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, report["attempts"])
}

func TestChatRoutes(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	ada := s.register(t, "ada", "tutor")
	bob := s.register(t, "bob", "student")

	code := s.do(t, http.MethodPost, "/api/chat/messages", ada.Token, map[string]string{"receiver_id": bob.User.ID, "content": "hello"}, nil)
	require.Equal(t, http.StatusCreated, code)

	var unread map[string]int
	code = s.do(t, http.MethodGet, "/api/chat/unread", bob.Token, nil, &unread)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, unread["count"])

	var msgs []map[string]any
	code = s.do(t, http.MethodGet, "/api/chat/messages/"+ada.User.ID+"?limit=10", bob.Token, nil, &msgs)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, msgs, 1)
	assert.Equal(t, true, msgs[0]["read"])

	var body errorBody
	code = s.do(t, http.MethodGet, "/api/chat/messages/"+ada.User.ID+"?before=yesterday", bob.Token, nil, &body)
	assert.Equal(t, http.StatusBadRequest, code)

	var convs []map[string]any
	code = s.do(t, http.MethodGet, "/api/chat/conversations", ada.Token, nil, &convs)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, convs, 1)
}

func TestDashboardAndCalendar(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	student := s.register(t, "bob", "student")

	var dash map[string]any
	code := s.do(t, http.MethodGet, "/api/dashboard", student.Token, nil, &dash)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, dash, "task_counts")
	assert.Contains(t, dash, "pending_exams")

	code = s.do(t, http.MethodPost, "/api/tasks", student.Token, map[string]any{"title": "Revise", "due_date": "2030-05-10T09:00:00Z"}, nil)
	require.Equal(t, http.StatusCreated, code)

	var events []map[string]any
	code = s.do(t, http.MethodGet, "/api/calendar?from=2030-05-01&to=2030-05-10", student.Token, nil, &events)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, events, 1)
	assert.Equal(t, "task", events[0]["kind"])

	var body errorBody
	code = s.do(t, http.MethodGet, "/api/calendar?from=May", student.Token, nil, &body)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAvatarUpload(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	student := s.register(t, "bob", "student")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="avatar"; filename="me.png"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/users/profile/avatar", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+student.Token)

	var user map[string]any
	code := s.send(t, req, &user)
	require.Equal(t, http.StatusOK, code)
	url := user["avatar_url"].(string)
	require.True(t, strings.HasPrefix(url, "http://cdn.test/avatars/"+student.User.ID+"/"))

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, strings.TrimPrefix(url, "http://cdn.test"), nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, "\x89PNG fake", string(raw))

	code = s.do(t, http.MethodGet, "/avatars/missing.png", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMetricsAndUnknownRoutes(t *testing.T) {
	s := newTestServer(t, fakePinger{})

	var body errorBody
	code := s.do(t, http.MethodGet, "/api/nothing", "", nil, &body)
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotEmpty(t, body.Message)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "eduhub_http_requests_total")
}

func TestPanicsAreLoggedAndCounted(t *testing.T) {
	s := newTestServer(t, fakePinger{})
	s.app.Get("/boom", func(c *fiber.Ctx) error {
		panic("boom")
	})

	var body errorBody
	code := s.do(t, http.MethodGet, "/boom", "", nil, &body)
	assert.Equal(t, http.StatusInternalServerError, code)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `eduhub_http_requests_total{method="GET",route="/boom",status="500"} 1`)
}
