package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/peerinvest-api/internal/dto"
	"github.com/noah-isme/peerinvest-api/internal/models"
	"github.com/noah-isme/peerinvest-api/internal/observability"
	"github.com/noah-isme/peerinvest-api/internal/repository"
)

// Notification types.
const (
	NotificationEvaluationAssigned = "evaluation.assigned"
	NotificationGradesPublished    = "grades.published"
)

// Notice is a message addressed to a set of students.
type Notice struct {
	Type       string
	Message    string
	Recipients []uint
}

// Notifier delivers notices to students.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// NotificationService stores notices and lets students read them.
type NotificationService interface {
	Notifier
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id uint, userID string) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	repo        repository.NotificationRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	nodeID      string
}

type notificationEvent struct {
	Source       string                     `json:"source"`
	Notification []dto.NotificationResponse `json:"notifications"`
	SentAt       time.Time                  `json:"sent_at"`
}

// NewNotificationService constructs a notification service. Redis and NATS are optional fan-out
// channels for other nodes and consumers.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notificationService{
		repo:        repo,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/peerinvest-api/internal/service/notification"),
		sanitizer:   bluemonday.StrictPolicy(),
		nodeID:      uuid.NewString(),
	}
}

func (s *notificationService) Notify(ctx context.Context, notice Notice) error {
	message := strings.TrimSpace(s.sanitizer.Sanitize(notice.Message))
	if message == "" {
		return errors.New("notification message empty after sanitization")
	}
	if len(notice.Recipients) == 0 {
		return nil
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.notify", trace.WithAttributes(
		attribute.String("notification.type", notice.Type),
		attribute.Int("notification.recipients", len(notice.Recipients)),
	))
	defer span.End()

	seen := make(map[uint]struct{}, len(notice.Recipients))
	rows := make([]models.Notification, 0, len(notice.Recipients))
	for _, recipient := range notice.Recipients {
		if _, dup := seen[recipient]; dup {
			continue
		}
		seen[recipient] = struct{}{}
		rows = append(rows, models.Notification{
			UserID:  userKey(recipient),
			Type:    notice.Type,
			Message: message,
		})
	}

	if err := s.repo.CreateBatch(spanCtx, rows); err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.publish(spanCtx, dto.NewNotificationResponseSlice(rows)); err != nil {
		s.logger.Warn().Err(err).Str("type", notice.Type).Msg("failed to publish notification to broker")
	}

	observability.NotificationsPublishedTotal().WithLabelValues(notice.Type).Add(float64(len(rows)))
	return nil
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]dto.NotificationResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is required")
	}

	notifications, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userID string) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.String("notification.user_id", userID),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, errors.New("user id is required")
	}
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *notificationService) publish(ctx context.Context, notifications []dto.NotificationResponse) error {
	if (s.redis == nil || s.redisStream == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(notificationEvent{
		Source:       s.nodeID,
		Notification: notifications,
		SentAt:       time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}
