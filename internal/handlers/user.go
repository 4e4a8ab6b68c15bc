package handlers

import (
	"errors"
	"net/http"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PreferenceStore reads and writes the "updates" preference
type PreferenceStore interface {
	repositories.PreferenceRepository
	repositories.PreferenceWriter
}

// UserHandler handles HTTP requests related to user preferences
type UserHandler struct {
	preferences PreferenceStore
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(preferences PreferenceStore, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{preferences: preferences, logger: logger}
}

// RegisterPreferenceRoutes registers user preference routes
func (h *UserHandler) RegisterPreferenceRoutes(g *echo.Group) {
	g.GET("/users/:id/preferences", h.GetPreferences)
	g.PUT("/users/:id/preferences", h.UpdatePreferences)
}

// UpdatePreferencesRequest sets the "updates" preference; null clears it
type UpdatePreferencesRequest struct {
	Updates *bool `json:"updates"`
}

type preferencesResponse struct {
	UserID   string `json:"user_id"`
	Updates  bool   `json:"updates"`
	Explicit bool   `json:"explicit"`
}

// GetPreferences returns the effective preference for a user
func (h *UserHandler) GetPreferences(c echo.Context) error {
	userID := c.Param("id")
	prefs, err := h.preferences.GetUpdatePreferences(c.Request().Context(), []string{userID})
	if err != nil {
		h.logger.Error("get preferences", zap.String("user_id", userID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load preferences")
	}

	pref, found := prefs[userID]
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	return c.JSON(http.StatusOK, effective(userID, pref))
}

// UpdatePreferences stores the preference for a user
func (h *UserHandler) UpdatePreferences(c echo.Context) error {
	userID := c.Param("id")

	var req UpdatePreferencesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	err := h.preferences.SetUpdatePreference(c.Request().Context(), userID, req.Updates)
	switch {
	case errors.Is(err, repositories.ErrInvalidID):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	case errors.Is(err, repositories.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	case err != nil:
		h.logger.Error("update preferences", zap.String("user_id", userID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update preferences")
	}

	return c.JSON(http.StatusOK, effective(userID, req.Updates))
}

func effective(userID string, pref *bool) preferencesResponse {
	return preferencesResponse{
		UserID:   userID,
		Updates:  pref == nil || *pref,
		Explicit: pref != nil,
	}
}
