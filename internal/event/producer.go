package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linguahub/linguahub/internal/domain"
	pkgkafka "github.com/linguahub/linguahub/pkg/kafka"
)

// Kafka topic constants for domain events.
const (
	TopicUserRegistered  = "linguahub.user.registered"
	TopicUserVerified    = "linguahub.user.verified"
	TopicUserOnboarded   = "linguahub.user.onboarded"
	TopicFriendsAccepted = "linguahub.friend.accepted"
)

// Aggregate type constants.
const (
	AggregateTypeUser       = "user"
	AggregateTypeFriendship = "friendship"
)

// Source identifier for events originating from this server.
const SourceLinguaHub = "linguahub"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserVerifiedData is the payload for a user.verified event.
type UserVerifiedData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserOnboardedData is the payload for a user.onboarded event.
type UserOnboardedData struct {
	ID               string `json:"id"`
	NativeLanguage   string `json:"native_language"`
	LearningLanguage string `json:"learning_language"`
}

// FriendsAcceptedData is the payload for a friend.accepted event.
type FriendsAcceptedData struct {
	RequestID   string `json:"request_id"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
}

// Producer publishes domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceLinguaHub, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// PublishUserVerified publishes a user.verified event.
func (p *Producer) PublishUserVerified(ctx context.Context, user *domain.User) error {
	data := UserVerifiedData{
		ID:    user.ID,
		Email: user.Email,
	}

	event, err := pkgkafka.NewEvent(TopicUserVerified, user.ID, AggregateTypeUser, SourceLinguaHub, data)
	if err != nil {
		return fmt.Errorf("create user.verified event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserVerified, event); err != nil {
		return fmt.Errorf("publish user.verified event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.verified event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishUserOnboarded publishes a user.onboarded event.
func (p *Producer) PublishUserOnboarded(ctx context.Context, user *domain.User) error {
	data := UserOnboardedData{
		ID:               user.ID,
		NativeLanguage:   user.NativeLanguage,
		LearningLanguage: user.LearningLanguage,
	}

	event, err := pkgkafka.NewEvent(TopicUserOnboarded, user.ID, AggregateTypeUser, SourceLinguaHub, data)
	if err != nil {
		return fmt.Errorf("create user.onboarded event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserOnboarded, event); err != nil {
		return fmt.Errorf("publish user.onboarded event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.onboarded event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishFriendsAccepted publishes a friend.accepted event.
func (p *Producer) PublishFriendsAccepted(ctx context.Context, request *domain.FriendRequest) error {
	data := FriendsAcceptedData{
		RequestID:   request.ID,
		SenderID:    request.SenderID,
		RecipientID: request.RecipientID,
	}

	event, err := pkgkafka.NewEvent(TopicFriendsAccepted, request.ID, AggregateTypeFriendship, SourceLinguaHub, data)
	if err != nil {
		return fmt.Errorf("create friend.accepted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicFriendsAccepted, event); err != nil {
		return fmt.Errorf("publish friend.accepted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published friend.accepted event",
		slog.String("request_id", request.ID),
		slog.String("sender_id", request.SenderID),
		slog.String("recipient_id", request.RecipientID),
	)

	return nil
}
