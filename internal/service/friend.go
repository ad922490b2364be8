package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linguahub/linguahub/internal/domain"
	"github.com/linguahub/linguahub/internal/event"
	"github.com/linguahub/linguahub/internal/repository"
	apperrors "github.com/linguahub/linguahub/pkg/errors"
)

// FriendService implements the friend request lifecycle and friendship queries.
type FriendService struct {
	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
	producer   *event.Producer
	logger     *slog.Logger
}

// NewFriendService creates a new friend service.
func NewFriendService(
	userRepo repository.UserRepository,
	friendRepo repository.FriendRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *FriendService {
	return &FriendService{
		userRepo:   userRepo,
		friendRepo: friendRepo,
		producer:   producer,
		logger:     logger,
	}
}

// RecommendedUsers returns users the given user could befriend.
func (s *FriendService) RecommendedUsers(ctx context.Context, userID string) ([]domain.PublicProfile, error) {
	profiles, err := s.userRepo.ListRecommended(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list recommended users: %w", err)
	}
	return profiles, nil
}

// Friends returns the user's friends.
func (s *FriendService) Friends(ctx context.Context, userID string) ([]domain.PublicProfile, error) {
	friends, err := s.friendRepo.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}

// SendRequest creates a pending friend request from sender to recipient.
func (s *FriendService) SendRequest(ctx context.Context, senderID, recipientID string) (*domain.FriendRequest, error) {
	if recipientID == "" {
		return nil, apperrors.InvalidInput("recipient is required")
	}
	if senderID == recipientID {
		return nil, apperrors.InvalidInput("you cannot send a friend request to yourself")
	}

	if _, err := s.userRepo.GetByID(ctx, recipientID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", recipientID)
		}
		return nil, fmt.Errorf("get recipient: %w", err)
	}

	friends, err := s.friendRepo.AreFriends(ctx, senderID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("check friendship: %w", err)
	}
	if friends {
		return nil, apperrors.Conflict("you are already friends with this user")
	}

	// A request in either direction blocks a new one.
	existing, err := s.friendRepo.GetRequestBetween(ctx, senderID, recipientID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing request: %w", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("a friend request already exists between you and this user")
	}

	now := time.Now().UTC()
	request := &domain.FriendRequest{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Status:      domain.RequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.friendRepo.CreateRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("create friend request: %w", err)
	}

	s.logger.InfoContext(ctx, "friend request sent",
		slog.String("request_id", request.ID),
		slog.String("sender_id", senderID),
		slog.String("recipient_id", recipientID),
	)

	return request, nil
}

// AcceptRequest accepts a pending request addressed to the user, linking
// both users as friends.
func (s *FriendService) AcceptRequest(ctx context.Context, userID, requestID string) (*domain.FriendRequest, error) {
	request, err := s.getOwnPendingRequest(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	if err := s.friendRepo.AcceptRequest(ctx, request.ID); err != nil {
		return nil, fmt.Errorf("accept friend request: %w", err)
	}
	request.Status = domain.RequestAccepted

	if err := s.producer.PublishFriendsAccepted(ctx, request); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish friend.accepted event",
			slog.String("request_id", request.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "friend request accepted",
		slog.String("request_id", request.ID),
		slog.String("sender_id", request.SenderID),
		slog.String("recipient_id", request.RecipientID),
	)

	return request, nil
}

// RejectRequest removes a pending request addressed to the user. The sender
// is free to ask again later; no tombstone is kept.
func (s *FriendService) RejectRequest(ctx context.Context, userID, requestID string) error {
	request, err := s.getOwnPendingRequest(ctx, userID, requestID)
	if err != nil {
		return err
	}

	if err := s.friendRepo.DeleteRequest(ctx, request.ID); err != nil {
		return fmt.Errorf("reject friend request: %w", err)
	}

	s.logger.InfoContext(ctx, "friend request rejected",
		slog.String("request_id", request.ID),
		slog.String("sender_id", request.SenderID),
	)

	return nil
}

// RemoveFriend dissolves the friendship between the user and a friend. The
// accepted request record goes with it, so either side can send a fresh
// request afterwards.
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	if friendID == "" {
		return apperrors.InvalidInput("friend is required")
	}
	if userID == friendID {
		return apperrors.InvalidInput("you cannot unfriend yourself")
	}

	if err := s.friendRepo.RemoveFriendship(ctx, userID, friendID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("friendship", friendID)
		}
		return fmt.Errorf("remove friendship: %w", err)
	}

	s.logger.InfoContext(ctx, "friendship removed",
		slog.String("user_id", userID),
		slog.String("friend_id", friendID),
	)

	return nil
}

// RequestsOverview bundles the request lists shown on the notifications page.
type RequestsOverview struct {
	IncomingRequests []domain.FriendRequestView `json:"incomingRequests"`
	AcceptedRequests []domain.FriendRequestView `json:"acceptedRequests"`
}

// Requests returns pending requests addressed to the user alongside received
// requests the user has already accepted.
func (s *FriendService) Requests(ctx context.Context, userID string) (*RequestsOverview, error) {
	incoming, err := s.friendRepo.ListIncomingPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list incoming requests: %w", err)
	}

	accepted, err := s.friendRepo.ListAcceptedReceived(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accepted requests: %w", err)
	}

	return &RequestsOverview{
		IncomingRequests: incoming,
		AcceptedRequests: accepted,
	}, nil
}

// OutgoingRequests returns pending requests the user has sent.
func (s *FriendService) OutgoingRequests(ctx context.Context, userID string) ([]domain.FriendRequestView, error) {
	outgoing, err := s.friendRepo.ListOutgoingPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list outgoing requests: %w", err)
	}
	return outgoing, nil
}

// getOwnPendingRequest fetches a request and checks that it is pending and
// addressed to the given user.
func (s *FriendService) getOwnPendingRequest(ctx context.Context, userID, requestID string) (*domain.FriendRequest, error) {
	request, err := s.friendRepo.GetRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("friend request", requestID)
		}
		return nil, fmt.Errorf("get friend request: %w", err)
	}

	if request.RecipientID != userID {
		return nil, apperrors.Unauthorized("this friend request is not addressed to you")
	}
	if request.Status != domain.RequestPending {
		return nil, apperrors.Conflict("friend request is no longer pending")
	}

	return request, nil
}
