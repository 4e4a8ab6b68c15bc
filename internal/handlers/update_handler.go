package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Announcer queues an operator announcement
type Announcer interface {
	System(recipientIDs []string, title, body, category string)
}

// UpdateHandler handles update-feed HTTP requests
type UpdateHandler struct {
	updateRepository repositories.UpdateRepository
	announcer        Announcer
	logger           *zap.Logger
}

// NewUpdateHandler creates a new UpdateHandler
func NewUpdateHandler(updateRepo repositories.UpdateRepository, announcer Announcer, logger *zap.Logger) *UpdateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpdateHandler{
		updateRepository: updateRepo,
		announcer:        announcer,
		logger:           logger,
	}
}

// RegisterUpdateRoutes registers update routes
func (h *UpdateHandler) RegisterUpdateRoutes(g *echo.Group) {
	g.GET("/users/:id/updates", h.GetUpdates)
	g.POST("/updates/system", h.CreateSystemUpdate)
}

// maxPage keeps the skip offset well inside int64
const maxPage = 1_000_000

// SystemUpdateRequest is the body of an operator announcement
type SystemUpdateRequest struct {
	RecipientIDs []string `json:"recipient_ids" validate:"required,min=1,max=1000,dive,required"`
	Title        string   `json:"title" validate:"required,max=200"`
	Body         string   `json:"body" validate:"max=1000"`
	Category     string   `json:"category" validate:"omitempty,max=50"`
}

// GetUpdates returns a recipient's updates, newest first
func (h *UpdateHandler) GetUpdates(c echo.Context) error {
	recipientID := c.Param("id")

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	ctx := c.Request().Context()
	total, err := h.updateRepository.CountByRecipient(ctx, recipientID)
	if errors.Is(err, repositories.ErrInvalidID) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	if err != nil {
		h.logger.Error("count updates", zap.String("recipient_user_id", recipientID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load updates")
	}

	updates, err := h.updateRepository.ListByRecipient(ctx, recipientID, int64((page-1)*limit), int64(limit))
	if err != nil {
		h.logger.Error("list updates", zap.String("recipient_user_id", recipientID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load updates")
	}
	if updates == nil {
		updates = []models.Update{}
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"updates": updates,
		},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      total,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}

// CreateSystemUpdate queues an announcement and returns before it is written
func (h *UpdateHandler) CreateSystemUpdate(c echo.Context) error {
	var req SystemUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	h.announcer.System(req.RecipientIDs, req.Title, req.Body, req.Category)

	return c.JSON(http.StatusAccepted, echo.Map{
		"success": true,
		"message": "Update queued",
	})
}
