package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerinvest-api/internal/dto"
	"github.com/noah-isme/peerinvest-api/internal/service"
	"github.com/noah-isme/peerinvest-api/internal/utils"
)

// AdminGradeHandler runs grading, reviews draft grades and publishes them.
type AdminGradeHandler struct {
	grading service.GradingService
	review  service.GradeReviewService
	logger  zerolog.Logger
}

// NewAdminGradeHandler constructs the handler.
func NewAdminGradeHandler(grading service.GradingService, review service.GradeReviewService, logger zerolog.Logger) *AdminGradeHandler {
	return &AdminGradeHandler{
		grading: grading,
		review:  review,
		logger:  logger.With().Str("component", "admin_grade_handler").Logger(),
	}
}

// RegisterAssignmentRoutes attaches per-assignment grading endpoints.
func (h *AdminGradeHandler) RegisterAssignmentRoutes(router fiber.Router) {
	router.Post("/:id/grades", h.compute)
	router.Get("/:id/grades", h.list)
	router.Post("/:id/grades/publish", h.publish)
}

// RegisterGradeRoutes attaches endpoints addressing a single grade.
func (h *AdminGradeHandler) RegisterGradeRoutes(router fiber.Router) {
	router.Patch("/:id", h.reviewGrade)
}

func (h *AdminGradeHandler) compute(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.grading.GradeAssignment(withRequestContext(c), activityActorFromContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to grade assignment")
	}

	return utils.SendSuccess(c, "assignment graded", result)
}

func (h *AdminGradeHandler) list(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grades, err := h.grading.ListGrades(withRequestContext(c), id, false)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list grades")
	}

	return utils.SendSuccess(c, "grades", grades)
}

func (h *AdminGradeHandler) reviewGrade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	grade, err := h.review.ReviewGrade(withRequestContext(c), activityActorFromContext(c), id, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to review grade")
	}

	return utils.SendSuccess(c, "grade reviewed", grade)
}

func (h *AdminGradeHandler) publish(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grades, err := h.review.PublishGrades(withRequestContext(c), activityActorFromContext(c), id)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to publish grades")
	}

	return utils.SendSuccess(c, "grades published", grades)
}
