package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerinvest-api/internal/config"
	"github.com/noah-isme/peerinvest-api/internal/database"
	"github.com/noah-isme/peerinvest-api/internal/handler"
	"github.com/noah-isme/peerinvest-api/internal/middleware"
	"github.com/noah-isme/peerinvest-api/internal/repository"
	"github.com/noah-isme/peerinvest-api/internal/router"
	"github.com/noah-isme/peerinvest-api/internal/service"
)

const lockTTL = 5 * time.Second

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.AppEnv == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	policy, err := service.NewEnginePolicy(cfg.Engine)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid engine policy")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx := context.Background()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis disabled: interest cache off, investment locks are process-local")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	locker := service.NewLocalLocker()
	if redisClient != nil {
		locker = service.NewRedisLocker(redisClient, cfg.ChannelBase, lockTTL)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	investmentRepo := repository.NewInvestmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	interestRepo := repository.NewInterestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, natsConn, cfg.ChannelBase, logger)
	teamService := service.NewTeamService(teamRepo, activityService, validate, logger)
	rosterService := service.NewRosterService(enrollmentRepo, teamRepo, submissionRepo)
	distributionService := service.NewDistributionService(assignmentRepo, evaluationRepo, rosterService, activityService, notificationService, policy, logger)
	investmentService := service.NewInvestmentService(assignmentRepo, teamRepo, evaluationRepo, investmentRepo, locker, policy.Ledger, validate, logger)
	interestService := service.NewInterestService(investmentRepo, gradeRepo, interestRepo, redisClient, cfg.ChannelBase, cfg.InterestCacheTTL, policy, logger)
	gradingService := service.NewGradingService(assignmentRepo, submissionRepo, investmentRepo, gradeRepo, interestService, activityService, policy, logger)
	reviewService := service.NewGradeReviewService(assignmentRepo, gradeRepo, teamRepo, investmentRepo, interestService, activityService, notificationService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSOrigins,
		AccessLog:    cfg.AccessLog,
	})
	router.Register(app, cfg, router.Dependencies{
		DB:                       db,
		AdminEvaluationHandler:   handler.NewAdminEvaluationHandler(distributionService, logger),
		AdminGradeHandler:        handler.NewAdminGradeHandler(gradingService, reviewService, logger),
		AdminActivityHandler:     handler.NewAdminActivityHandler(activityService, logger),
		AdminTeamHandler:         handler.NewAdminTeamHandler(teamService, logger),
		StudentEvaluationHandler: handler.NewStudentEvaluationHandler(investmentService, gradingService, cfg.InvestRateLimit, logger),
		StudentInterestHandler:   handler.NewStudentInterestHandler(interestService, logger),
		NotificationHandler:      handler.NewNotificationHandler(notificationService, logger),
		JWTMiddleware:            middleware.JWTProtected(cfg.JWTSecret),
	})

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepExpiredEvaluations(sweepCtx, distributionService, cfg.SweepInterval, logger)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

// sweepExpiredEvaluations closes evaluation phases whose window has elapsed. A zero or
// negative interval disables the sweep.
func sweepExpiredEvaluations(ctx context.Context, distribution service.DistributionService, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed, err := distribution.CloseExpired(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("evaluation sweep failed")
				continue
			}
			if closed > 0 {
				logger.Info().Int("closed", closed).Msg("closed expired evaluation phases")
			}
		}
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
