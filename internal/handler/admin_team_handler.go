package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerinvest-api/internal/dto"
	"github.com/noah-isme/peerinvest-api/internal/service"
	"github.com/noah-isme/peerinvest-api/internal/utils"
)

// AdminTeamHandler forms and lists course teams.
type AdminTeamHandler struct {
	service service.TeamService
	logger  zerolog.Logger
}

// NewAdminTeamHandler constructs the handler.
func NewAdminTeamHandler(service service.TeamService, logger zerolog.Logger) *AdminTeamHandler {
	return &AdminTeamHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_team_handler").Logger(),
	}
}

// Register attaches the routes to the courses group.
func (h *AdminTeamHandler) Register(router fiber.Router) {
	router.Post("/:id/teams", h.create)
	router.Get("/:id/teams", h.list)
}

func (h *AdminTeamHandler) create(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CreateTeamRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	team, err := h.service.CreateTeam(withRequestContext(c), activityActorFromContext(c), courseID, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to create team")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "team created", team)
}

func (h *AdminTeamHandler) list(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	teams, err := h.service.ListTeams(withRequestContext(c), courseID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list teams")
	}

	return utils.SendSuccess(c, "teams", teams)
}
