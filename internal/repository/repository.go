package repository

import (
	"context"

	"github.com/linguahub/linguahub/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user in the store, including the
	// outstanding challenge columns.
	Update(ctx context.Context, user *domain.User) error


	// ListRecommended returns onboarded users that are neither the given
	// user nor already their friend.
	ListRecommended(ctx context.Context, userID string) ([]domain.PublicProfile, error)
}

// FriendRepository defines the interface for friend request and friendship
// persistence operations.
type FriendRepository interface {
	// CreateRequest inserts a new pending friend request.
	CreateRequest(ctx context.Context, request *domain.FriendRequest) error

	// GetRequestByID retrieves a friend request by its identifier.
	GetRequestByID(ctx context.Context, id string) (*domain.FriendRequest, error)

	// GetRequestBetween retrieves the request between two users in either
	// direction, regardless of status.
	GetRequestBetween(ctx context.Context, userA, userB string) (*domain.FriendRequest, error)

	// AcceptRequest transitions a pending request to accepted and records
	// the friendship edges in both directions, atomically.
	AcceptRequest(ctx context.Context, id string) error

	// DeleteRequest removes a friend request.
	DeleteRequest(ctx context.Context, id string) error

	// ListIncomingPending returns pending requests addressed to the user,
	// joined with the sender's profile.
	ListIncomingPending(ctx context.Context, userID string) ([]domain.FriendRequestView, error)

	// ListOutgoingPending returns pending requests the user has sent,
	// joined with the recipient's profile.
	ListOutgoingPending(ctx context.Context, userID string) ([]domain.FriendRequestView, error)

	// ListAcceptedReceived returns requests the user received that were accepted,
	// joined with the sender's profile.
	ListAcceptedReceived(ctx context.Context, userID string) ([]domain.FriendRequestView, error)

	// ListFriends returns the public profiles of the user's friends.
	ListFriends(ctx context.Context, userID string) ([]domain.PublicProfile, error)

	// AreFriends reports whether a friendship edge exists between the users.
	AreFriends(ctx context.Context, userA, userB string) (bool, error)

	// RemoveFriendship deletes the friendship edges in both directions and
	// any accepted request record between the users, atomically.
	RemoveFriendship(ctx context.Context, userA, userB string) error
}
