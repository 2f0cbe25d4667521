package handlers

import (
	"github.com/arzan03/EduHub/internal/middleware"
	"github.com/arzan03/EduHub/internal/models"
	"github.com/arzan03/EduHub/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// bodyLimit leaves room for a maximum size avatar plus multipart framing.
const bodyLimit = 4 << 20

// Services are the business operations exposed over HTTP.
type Services struct {
	Auth      *services.AuthService
	Users     *services.UserService
	Tasks     *services.TaskService
	Exams     *services.ExamService
	Chat      *services.ChatService
	Dashboard *services.DashboardService
	Calendar  *services.CalendarService
}

type Options struct {
	Services    Services
	DB          Pinger
	Log         *zap.Logger
	Registry    *prometheus.Registry
	Development bool
	CORSOrigins string
	Version     string
	// Avatars, when set, is served under /avatars.
	Avatars AvatarSource
}

// NewApp builds the fiber application with middleware and every route.
func NewApp(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "EduHub",
		BodyLimit:    bodyLimit,
		ErrorHandler: ErrorHandler(opts.Log, opts.Development),
	})

	metrics := middleware.NewMetrics(opts.Registry)
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: opts.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	app.Use(metrics.Handler())
	app.Use(middleware.RequestLogger(opts.Log))
	// Panics become errors here, so they are still logged and counted.
	app.Use(recover.New(recover.Config{EnableStackTrace: opts.Development}))

	health := NewHealthHandler(opts.DB, opts.Version, opts.Log)
	app.Get("/health", health.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))

	if opts.Avatars != nil {
		app.Get("/avatars/*", NewAvatarHandler(opts.Avatars).Get)
	}

	registerRoutes(app.Group("/api"), opts.Services)
	return app
}

func registerRoutes(api fiber.Router, svc Services) {
	auth := middleware.AuthMiddleware(svc.Auth)
	tutor := middleware.RequireRole(models.RoleTutor)
	student := middleware.RequireRole(models.RoleStudent)

	ah := NewAuthHandler(svc.Auth)
	a := api.Group("/auth")
	a.Post("/register", ah.Register)
	a.Post("/login", ah.Login)
	a.Get("/me", auth, ah.Me)
	a.Put("/password", auth, ah.ChangePassword)

	uh := NewUserHandler(svc.Users)
	u := api.Group("/users", auth)
	u.Get("/", tutor, uh.List)
	u.Get("/students", uh.Students)
	u.Put("/profile", uh.UpdateProfile)
	u.Post("/profile/avatar", uh.UploadAvatar)
	u.Get("/:id", uh.Get)
	u.Delete("/:id", tutor, uh.Delete)

	th := NewTaskHandler(svc.Tasks)
	t := api.Group("/tasks", auth)
	t.Get("/", th.List)
	t.Post("/", th.Create)
	t.Get("/:id", th.Get)
	t.Put("/:id", th.Update)
	t.Patch("/:id/status", th.UpdateStatus)
	t.Delete("/:id", th.Delete)

	eh := NewExamHandler(svc.Exams)
	e := api.Group("/exams", auth)
	e.Get("/", eh.List)
	e.Post("/", tutor, eh.Create)
	e.Get("/results/me", student, eh.MyResults)
	e.Get("/:id", eh.Get)
	e.Put("/:id", tutor, eh.Update)
	e.Delete("/:id", tutor, eh.Delete)
	e.Post("/:id/assign", tutor, eh.Assign)
	e.Post("/:id/publish", tutor, eh.Publish)
	e.Post("/:id/submit", student, eh.Submit)
	e.Get("/:id/results", eh.Results)
	e.Get("/:id/analytics", tutor, eh.Analytics)

	ch := NewChatHandler(svc.Chat)
	m := api.Group("/chat", auth)
	m.Post("/messages", ch.Send)
	m.Get("/messages/:userId", ch.Conversation)
	m.Delete("/messages/:id", ch.Delete)
	m.Get("/conversations", ch.Conversations)
	m.Get("/unread", ch.Unread)

	dh := NewDashboardHandler(svc.Dashboard, svc.Calendar)
	api.Get("/dashboard", auth, dh.Summary)
	api.Get("/calendar", auth, dh.Calendar)
}
