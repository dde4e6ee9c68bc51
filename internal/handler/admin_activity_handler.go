package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerinvest-api/internal/dto"
	"github.com/noah-isme/peerinvest-api/internal/service"
	"github.com/noah-isme/peerinvest-api/internal/utils"
)

// AdminActivityHandler exposes the grading audit trail.
type AdminActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewAdminActivityHandler constructs the activity log handler.
func NewAdminActivityHandler(service service.ActivityService, logger zerolog.Logger) *AdminActivityHandler {
	return &AdminActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_activity_handler").Logger(),
	}
}

// Register wires the routes.
func (h *AdminActivityHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
}

func (h *AdminActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	req := dto.ActivityListRequest{
		Page:     page,
		PageSize: pageSize,
		Action:   strings.TrimSpace(c.Query("action")),
	}
	if raw := strings.TrimSpace(c.Query("assignment_id")); raw != "" {
		assignmentID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment_id")
		}
		req.AssignmentID = uint(assignmentID)
	}

	result, err := h.service.List(withRequestContext(c), req)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list activities")
	}

	return utils.SendSuccess(c, "activities", result)
}
