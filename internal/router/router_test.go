package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestSetupRoutesRegistersSurface(t *testing.T) {
	e := echo.New()
	SetupMiddleware(e, nil)
	SetupRoutes(e, Dependencies{})

	registered := map[string]bool{}
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /api/v1/users/:id/updates",
		"POST /api/v1/updates/system",
		"POST /api/v1/events/pin-created",
		"POST /api/v1/events/friend-request",
		"GET /api/v1/users/:id/preferences",
		"PUT /api/v1/users/:id/preferences",
	} {
		assert.True(t, registered[want], want)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}
