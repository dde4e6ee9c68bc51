package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerinvest-api/internal/service"
	"github.com/noah-isme/peerinvest-api/internal/utils"
)

// StudentInterestHandler reports interest earned by the authenticated student.
type StudentInterestHandler struct {
	service service.InterestService
	logger  zerolog.Logger
}

// NewStudentInterestHandler constructs the handler.
func NewStudentInterestHandler(service service.InterestService, logger zerolog.Logger) *StudentInterestHandler {
	return &StudentInterestHandler{
		service: service,
		logger:  logger.With().Str("component", "student_interest_handler").Logger(),
	}
}

// Register attaches the route to the student group.
func (h *StudentInterestHandler) Register(router fiber.Router) {
	router.Get("/interest", h.summary)
}

func (h *StudentInterestHandler) summary(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	summary, err := h.service.TotalStudentInterest(withRequestContext(c), studentID)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to load interest")
	}

	return utils.SendSuccess(c, "interest", summary)
}
