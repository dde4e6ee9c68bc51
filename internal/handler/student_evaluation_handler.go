package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerinvest-api/internal/dto"
	"github.com/noah-isme/peerinvest-api/internal/middleware"
	"github.com/noah-isme/peerinvest-api/internal/service"
	"github.com/noah-isme/peerinvest-api/internal/utils"
)

// StudentEvaluationHandler serves a student's review duties, investments and published grades.
type StudentEvaluationHandler struct {
	investments service.InvestmentService
	grading     service.GradingService
	rateLimit   int
	logger      zerolog.Logger
}

// NewStudentEvaluationHandler constructs the handler. rateLimit caps investment writes per
// student per minute.
func NewStudentEvaluationHandler(investments service.InvestmentService, grading service.GradingService, rateLimit int, logger zerolog.Logger) *StudentEvaluationHandler {
	return &StudentEvaluationHandler{
		investments: investments,
		grading:     grading,
		rateLimit:   rateLimit,
		logger:      logger.With().Str("component", "student_evaluation_handler").Logger(),
	}
}

// Register attaches the routes to the assignments group.
func (h *StudentEvaluationHandler) Register(router fiber.Router) {
	router.Get("/:id/evaluations", h.assigned)
	router.Get("/:id/investments", h.ledger)
	router.Post("/:id/investments", middleware.RateLimit("invest", h.rateLimit, time.Minute), h.invest)
	router.Get("/:id/grades", h.grades)
}

func (h *StudentEvaluationHandler) assigned(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	rows, err := h.investments.ListAssigned(withRequestContext(c), studentID, id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load evaluations")
	}

	return utils.SendSuccess(c, "evaluations", rows)
}

func (h *StudentEvaluationHandler) ledger(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ledger, err := h.investments.Ledger(withRequestContext(c), studentID, id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load investments")
	}

	return utils.SendSuccess(c, "investments", ledger)
}

func (h *StudentEvaluationHandler) invest(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.InvestmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	investment, err := h.investments.Record(withRequestContext(c), studentID, id, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to record investment")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "investment recorded", investment)
}

func (h *StudentEvaluationHandler) grades(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grades, err := h.grading.ListGrades(withRequestContext(c), id, true)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list grades")
	}

	return utils.SendSuccess(c, "grades", grades)
}
