package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerinvest-api/internal/engine"
	"github.com/noah-isme/peerinvest-api/internal/middleware"
	"github.com/noah-isme/peerinvest-api/internal/service"
	"github.com/noah-isme/peerinvest-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(name)), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func userIDStringFromContext(c *fiber.Ctx) string {
	id := userIDFromContext(c)
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	return service.ActivityActor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
}

func withRequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func validationDetails(err error) (map[string]string, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, false
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return details, true
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrAssignmentNotFound, fiber.StatusNotFound},
	{service.ErrGradeNotFound, fiber.StatusNotFound},
	{service.ErrNotificationNotFound, fiber.StatusNotFound},
	{service.ErrEvaluationPhaseActive, fiber.StatusConflict},
	{service.ErrEvaluationPhaseInactive, fiber.StatusConflict},
	{service.ErrGradeAlreadyPublished, fiber.StatusConflict},
	{service.ErrTeamsLocked, fiber.StatusConflict},
	{service.ErrStudentAlreadyTeamed, fiber.StatusConflict},
	{service.ErrLockTimeout, fiber.StatusServiceUnavailable},
	{engine.ErrDuplicateInvestment, fiber.StatusConflict},
	{engine.ErrSelfEvaluationDetected, fiber.StatusConflict},
	{engine.ErrNotAssigned, fiber.StatusForbidden},
	{engine.ErrWindowClosed, fiber.StatusForbidden},
	{engine.ErrCapExceeded, fiber.StatusUnprocessableEntity},
	{engine.ErrBudgetExceeded, fiber.StatusUnprocessableEntity},
	{engine.ErrInsufficientData, fiber.StatusUnprocessableEntity},
	{engine.ErrTokensOutOfRange, fiber.StatusBadRequest},
	{engine.ErrCommentRequired, fiber.StatusBadRequest},
}

// sendServiceError maps domain errors to their status and logs anything unexpected.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	for _, known := range errorStatuses {
		if errors.Is(err, known.err) {
			return utils.SendError(c, known.status, err.Error())
		}
	}
	if details, ok := validationDetails(err); ok {
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "invalid payload", details)
	}

	requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg(fallback)
	return utils.SendError(c, fiber.StatusInternalServerError, fallback)
}
