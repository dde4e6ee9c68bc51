package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerinvest-api/internal/service"
	"github.com/noah-isme/peerinvest-api/internal/utils"
)

// AdminEvaluationHandler lets teachers open, inspect and close evaluation phases.
type AdminEvaluationHandler struct {
	service service.DistributionService
	logger  zerolog.Logger
}

// NewAdminEvaluationHandler constructs the handler.
func NewAdminEvaluationHandler(service service.DistributionService, logger zerolog.Logger) *AdminEvaluationHandler {
	return &AdminEvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_evaluation_handler").Logger(),
	}
}

// Register attaches evaluation endpoints to the assignments group.
func (h *AdminEvaluationHandler) Register(router fiber.Router) {
	router.Post("/:id/distribute", h.distribute)
	router.Post("/:id/evaluation/close", h.close)
	router.Get("/:id/evaluations", h.list)
}

func (h *AdminEvaluationHandler) distribute(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Distribute(withRequestContext(c), activityActorFromContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to distribute evaluations")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evaluations distributed", result)
}

func (h *AdminEvaluationHandler) close(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.CloseEvaluation(withRequestContext(c), activityActorFromContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to close evaluation")
	}

	return utils.SendSuccess(c, "evaluation closed", result)
}

func (h *AdminEvaluationHandler) list(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	rows, err := h.service.ListEvaluations(withRequestContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list evaluations")
	}

	return utils.SendSuccess(c, "evaluations", rows)
}
