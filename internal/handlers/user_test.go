package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type stubPreferences struct {
	prefs map[string]*bool
}

func (s *stubPreferences) GetUpdatePreferences(_ context.Context, ids []string) (map[string]*bool, error) {
	out := make(map[string]*bool)
	for _, id := range ids {
		if pref, ok := s.prefs[id]; ok {
			out[id] = pref
		}
	}
	return out, nil
}

func (s *stubPreferences) SetUpdatePreference(_ context.Context, userID string, updates *bool) error {
	if userID == "bad" {
		return repositories.ErrInvalidID
	}
	if _, ok := s.prefs[userID]; !ok {
		return repositories.ErrUserNotFound
	}
	s.prefs[userID] = updates
	return nil
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPreferences(t *testing.T) {
	off := false
	store := &stubPreferences{prefs: map[string]*bool{"unset": nil, "off": &off}}
	e := echo.New()
	NewUserHandler(store, nil).RegisterPreferenceRoutes(e.Group("/api/v1"))

	rec := serve(e, http.MethodGet, "/api/v1/users/unset/preferences", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"unset","updates":true,"explicit":false}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/api/v1/users/off/preferences", "")
	assert.JSONEq(t, `{"user_id":"off","updates":false,"explicit":true}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/api/v1/users/ghost/preferences", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(e, http.MethodPut, "/api/v1/users/off/preferences", `{"updates":null}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, store.prefs["off"])

	rec = serve(e, http.MethodPut, "/api/v1/users/unset/preferences", `{"updates":false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, store.prefs["unset"]) {
		assert.False(t, *store.prefs["unset"])
	}

	assert.Equal(t, http.StatusNotFound, serve(e, http.MethodPut, "/api/v1/users/ghost/preferences", `{"updates":true}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPut, "/api/v1/users/bad/preferences", `{"updates":true}`).Code)
}
