package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SigNoz/freshmart-storefront/internal/events"
	"github.com/SigNoz/freshmart-storefront/internal/models"
	"github.com/SigNoz/freshmart-storefront/internal/notify"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContactService accepts contact page messages and forwards them as events
type ContactService struct {
	publisher events.Publisher
	topic     string
	validate  *validator.Validate
	notifier  notify.Notifier
	log       logrus.FieldLogger
}

// NewContactService creates a contact service publishing to topic
func NewContactService(
	publisher events.Publisher,
	topic string,
	validate *validator.Validate,
	notifier notify.Notifier,
	log logrus.FieldLogger,
) *ContactService {
	return &ContactService{
		publisher: publisher,
		topic:     topic,
		validate:  validate,
		notifier:  notifier,
		log:       log,
	}
}

// Submit validates req and publishes it. A failed publish is logged and the
// message still counts as sent.
func (s *ContactService) Submit(ctx context.Context, sessionID string, req models.ContactRequest) (string, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidContact, err)
	}

	event := models.ContactSubmittedEvent{
		Type:        events.ContactSubmitted,
		MessageID:   uuid.NewString(),
		SessionID:   sessionID,
		Name:        req.Name,
		Email:       req.Email,
		Subject:     req.Subject,
		Message:     req.Message,
		SubmittedAt: time.Now().UTC(),
	}

	log := s.log.WithFields(logrus.Fields{
		"session":    sessionID,
		"message_id": event.MessageID,
		"subject":    req.Subject,
	})
	if err := s.publisher.PublishEvent(ctx, s.topic, sessionID, event); err != nil {
		log.WithError(err).Warn("failed to publish contact message")
	}

	log.Info("contact message received")
	s.notifier.Success(ctx, "Your message has been sent successfully!")
	return event.MessageID, nil
}
