package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/models"
	"github.com/arzan03/EduHub/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubTokens map[string]services.Actor

func (s stubTokens) ParseJWT(token string) (services.Actor, error) {
	a, ok := s[token]
	if !ok {
		return services.Actor{}, apperr.Unauthorized("Invalid token")
	}
	return a, nil
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if ae, ok := apperr.As(err); ok {
			code = ae.Status
		}
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		return c.SendStatus(code)
	}})
}

func get(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAuthAndRole(t *testing.T) {
	tutor := services.Actor{ID: primitive.NewObjectID(), Role: models.RoleTutor}
	student := services.Actor{ID: primitive.NewObjectID(), Role: models.RoleStudent}
	tokens := stubTokens{"t": tutor, "s": student}

	var seen services.Actor
	app := newApp()
	app.Get("/", AuthMiddleware(tokens), RequireRole(models.RoleTutor), func(c *fiber.Ctx) error {
		seen = CurrentActor(c)
		return c.SendStatus(fiber.StatusNoContent)
	})

	assert.Equal(t, http.StatusUnauthorized, get(t, app, ""))
	assert.Equal(t, http.StatusUnauthorized, get(t, app, "unknown"))
	assert.Equal(t, http.StatusForbidden, get(t, app, "s"))
	assert.Equal(t, http.StatusNoContent, get(t, app, "t"))
	assert.Equal(t, tutor, seen)
}

func TestCurrentActorWithoutAuth(t *testing.T) {
	app := newApp()
	var seen services.Actor
	app.Get("/", func(c *fiber.Ctx) error {
		seen = CurrentActor(c)
		return nil
	})
	get(t, app, "")
	assert.True(t, seen.ID.IsZero())
}

func TestMetricsCountsRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	app := newApp()
	app.Use(m.Handler())
	app.Use(RequestLogger(zap.NewNop()))
	app.Get("/", func(c *fiber.Ctx) error { return apperr.Forbidden("no") })

	assert.Equal(t, http.StatusForbidden, get(t, app, ""))
	assert.Equal(t, http.StatusForbidden, get(t, app, ""))

	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != "eduhub_http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			assert.Equal(t, "403", labels["status"])
			total += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), total)
}
