package router

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/noah-isme/peerinvest-api/internal/config"
	"github.com/noah-isme/peerinvest-api/internal/handler"
	"github.com/noah-isme/peerinvest-api/internal/middleware"
	"github.com/noah-isme/peerinvest-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	DB                       *gorm.DB
	AdminEvaluationHandler   *handler.AdminEvaluationHandler
	AdminGradeHandler        *handler.AdminGradeHandler
	AdminActivityHandler     *handler.AdminActivityHandler
	AdminTeamHandler         *handler.AdminTeamHandler
	StudentEvaluationHandler *handler.StudentEvaluationHandler
	StudentInterestHandler   *handler.StudentInterestHandler
	NotificationHandler      *handler.NotificationHandler
	JWTMiddleware            fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	admin := app.Group("/api/admin", jwtMiddleware, middleware.RequireRole(middleware.RoleAdmin, middleware.RoleTeacher))
	adminAssignments := admin.Group("/assignments")
	if deps.AdminEvaluationHandler != nil {
		deps.AdminEvaluationHandler.Register(adminAssignments)
	}
	if deps.AdminGradeHandler != nil {
		deps.AdminGradeHandler.RegisterAssignmentRoutes(adminAssignments)
		deps.AdminGradeHandler.RegisterGradeRoutes(admin.Group("/grades"))
	}
	if deps.AdminTeamHandler != nil {
		deps.AdminTeamHandler.Register(admin.Group("/courses"))
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activities"))
	}

	student := app.Group("/api/v2", jwtMiddleware)
	if deps.StudentEvaluationHandler != nil {
		deps.StudentEvaluationHandler.Register(student.Group("/assignments"))
	}
	if deps.StudentInterestHandler != nil {
		deps.StudentInterestHandler.Register(student.Group("/student"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(student.Group("/notifications"))
	}
}
