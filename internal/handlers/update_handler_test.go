package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/repositories"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/scheduler"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/updates"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validUserID = "665f1c2e9b1e8a3d4c5b6a70"

type stubUpdates struct {
	updates []models.Update
	skip    int64
	limit   int64
}

func (s *stubUpdates) InsertMany(context.Context, []models.Update) (repositories.InsertResult, error) {
	return repositories.InsertResult{}, nil
}

func (s *stubUpdates) ListByRecipient(_ context.Context, recipientID string, skip, limit int64) ([]models.Update, error) {
	s.skip, s.limit = skip, limit
	if recipientID != validUserID {
		return nil, repositories.ErrInvalidID
	}
	end := skip + limit
	if end > int64(len(s.updates)) {
		end = int64(len(s.updates))
	}
	if skip >= end {
		return nil, nil
	}
	return s.updates[skip:end], nil
}

func (s *stubUpdates) CountByRecipient(_ context.Context, recipientID string) (int64, error) {
	if recipientID != validUserID {
		return 0, fmt.Errorf("recipient %q: %w", recipientID, repositories.ErrInvalidID)
	}
	return int64(len(s.updates)), nil
}

type announcement struct {
	ids   []string
	title string
}

type stubAnnouncer struct{ got []announcement }

func (a *stubAnnouncer) System(ids []string, title, _, _ string) {
	a.got = append(a.got, announcement{ids: ids, title: title})
}

func newTestEcho(h *UpdateHandler) *echo.Echo {
	e := echo.New()
	e.Validator = validators.NewValidator()
	h.RegisterUpdateRoutes(e.Group("/api/v1"))
	return e
}

func seededUpdates(n int) []models.Update {
	out := make([]models.Update, n)
	for i := range out {
		out[i] = models.Update{
			ID:              fmt.Sprintf("u%d", i),
			RecipientUserID: validUserID,
			Payload:         models.SystemPayload{Content: models.Content{Title: fmt.Sprintf("update %d", i)}},
			CreatedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		}
	}
	return out
}

func TestGetUpdatesPaginates(t *testing.T) {
	repo := &stubUpdates{updates: seededUpdates(5)}
	e := newTestEcho(NewUpdateHandler(repo, &stubAnnouncer{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+validUserID+"/updates?page=2&limit=2", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, repo.skip)
	assert.EqualValues(t, 2, repo.limit)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Updates []struct {
				ID      string `json:"id"`
				Payload struct {
					Type  string `json:"type"`
					Title string `json:"title"`
				} `json:"payload"`
			} `json:"updates"`
		} `json:"data"`
		Meta struct {
			CurrentPage     int  `json:"currentPage"`
			TotalPages      int  `json:"totalPages"`
			TotalItems      int  `json:"totalItems"`
			HasNextPage     bool `json:"hasNextPage"`
			HasPreviousPage bool `json:"hasPreviousPage"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.True(t, body.Success)
	require.Len(t, body.Data.Updates, 2)
	assert.Equal(t, "u2", body.Data.Updates[0].ID)
	assert.Equal(t, "system", body.Data.Updates[0].Payload.Type)
	assert.Equal(t, "update 2", body.Data.Updates[0].Payload.Title)
	assert.Equal(t, 3, body.Meta.TotalPages)
	assert.Equal(t, 5, body.Meta.TotalItems)
	assert.True(t, body.Meta.HasNextPage)
	assert.True(t, body.Meta.HasPreviousPage)
}

func TestGetUpdatesClampsHugePage(t *testing.T) {
	repo := &stubUpdates{updates: seededUpdates(3)}
	e := newTestEcho(NewUpdateHandler(repo, &stubAnnouncer{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+validUserID+"/updates?page=922337203685477580&limit=20", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, (maxPage-1)*20, repo.skip)
	assert.Contains(t, rec.Body.String(), `"updates":[]`)
}

func TestGetUpdatesEmptyPageIsAnArray(t *testing.T) {
	e := newTestEcho(NewUpdateHandler(&stubUpdates{}, &stubAnnouncer{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+validUserID+"/updates", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"updates":[]`)
}

func TestGetUpdatesRejectsMalformedID(t *testing.T) {
	e := newTestEcho(NewUpdateHandler(&stubUpdates{}, &stubAnnouncer{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/not-an-id/updates", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSystemUpdate(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		queued bool
	}{
		{"valid", `{"recipient_ids":["a","b"],"title":"Maintenance tonight"}`, http.StatusAccepted, true},
		{"missing title", `{"recipient_ids":["a"]}`, http.StatusBadRequest, false},
		{"no recipients", `{"recipient_ids":[],"title":"hi"}`, http.StatusBadRequest, false},
		{"blank recipient", `{"recipient_ids":[""],"title":"hi"}`, http.StatusBadRequest, false},
		{"malformed json", `{"recipient_ids":`, http.StatusBadRequest, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			announcer := &stubAnnouncer{}
			e := newTestEcho(NewUpdateHandler(&stubUpdates{}, announcer, nil))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/updates/system", strings.NewReader(tc.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.queued {
				require.Len(t, announcer.got, 1)
				assert.Equal(t, []string{"a", "b"}, announcer.got[0].ids)
				assert.Equal(t, "Maintenance tonight", announcer.got[0].title)
			} else {
				assert.Empty(t, announcer.got)
			}
		})
	}
}

type stubQueue struct{}

func (stubQueue) Stats() updates.DispatcherStats {
	return updates.DispatcherStats{Queued: 3, Enqueued: 10}
}

type stubSweeps struct{}

func (stubSweeps) Status() scheduler.Status {
	return scheduler.Status{Running: true, Policy: scheduler.PolicySkip, Interval: "5m0s"}
}

func TestHealthCheckReportsQueueAndScheduler(t *testing.T) {
	e := echo.New()
	e.GET("/health", NewHealthHandler(stubQueue{}, stubSweeps{}).HealthCheck)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string                  `json:"status"`
		Fanout updates.DispatcherStats `json:"fanout"`
		Sched  scheduler.Status        `json:"scheduler"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, 3, body.Fanout.Queued)
	assert.True(t, body.Sched.Running)
	assert.Equal(t, "skip", body.Sched.Policy)
}
