package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linguahub/linguahub/internal/domain"
	"github.com/linguahub/linguahub/pkg/database"
	apperrors "github.com/linguahub/linguahub/pkg/errors"
)

const requestColumns = `id, sender_id, recipient_id, status, created_at, updated_at`

// FriendRepository implements repository.FriendRepository using PostgreSQL.
type FriendRepository struct {
	db database.DBTX
}

// NewFriendRepository creates a new PostgreSQL-backed friend repository.
func NewFriendRepository(db database.DBTX) *FriendRepository {
	return &FriendRepository{db: db}
}

// CreateRequest inserts a new pending friend request.
func (r *FriendRepository) CreateRequest(ctx context.Context, req *domain.FriendRequest) error {
	query := `
		INSERT INTO friend_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		req.ID,
		req.SenderID,
		req.RecipientID,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("friend request already exists between these users")
		}
		return fmt.Errorf("insert friend request: %w", err)
	}

	return nil
}

// GetRequestByID retrieves a friend request by its identifier.
func (r *FriendRepository) GetRequestByID(ctx context.Context, id string) (*domain.FriendRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM friend_requests
		WHERE id = $1`

	return r.scanRequest(ctx, query, id)
}

// GetRequestBetween retrieves the request between two users in either
// direction, regardless of status.
func (r *FriendRepository) GetRequestBetween(ctx context.Context, userA, userB string) (*domain.FriendRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM friend_requests
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		LIMIT 1`

	return r.scanRequest(ctx, query, userA, userB)
}

// AcceptRequest transitions a pending request to accepted and records the
// friendship edges in both directions within a transaction. The edge inserts
// are idempotent, so re-running against an already linked pair is harmless.
func (r *FriendRepository) AcceptRequest(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var senderID, recipientID string
	err = tx.QueryRow(ctx,
		`UPDATE friend_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4
		 RETURNING sender_id, recipient_id`,
		domain.RequestAccepted, time.Now().UTC(), id, domain.RequestPending,
	).Scan(&senderID, &recipientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("friend request", id)
		}
		return fmt.Errorf("accept friend request: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO friendships (user_id, friend_id, created_at)
		 VALUES ($1, $2, $3), ($2, $1, $3)
		 ON CONFLICT (user_id, friend_id) DO NOTHING`,
		senderID, recipientID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert friendship edges: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// DeleteRequest removes a friend request.
func (r *FriendRepository) DeleteRequest(ctx context.Context, id string) error {
	query := `DELETE FROM friend_requests WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete friend request: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("friend request", id)
	}

	return nil
}

// ListIncomingPending returns pending requests addressed to the user, joined
// with the sender's profile.
func (r *FriendRepository) ListIncomingPending(ctx context.Context, userID string) ([]domain.FriendRequestView, error) {
	query := `
		SELECT fr.id, fr.sender_id, fr.recipient_id, fr.status, fr.created_at, fr.updated_at,
		       u.id, u.name, u.avatar_url, u.native_language, u.learning_language, u.location
		FROM friend_requests fr
		JOIN users u ON u.id = fr.sender_id
		WHERE fr.recipient_id = $1 AND fr.status = $2
		ORDER BY fr.created_at DESC`

	return r.listRequestViews(ctx, query, true, userID, domain.RequestPending)
}

// ListOutgoingPending returns pending requests the user has sent, joined with
// the recipient's profile.
func (r *FriendRepository) ListOutgoingPending(ctx context.Context, userID string) ([]domain.FriendRequestView, error) {
	query := `
		SELECT fr.id, fr.sender_id, fr.recipient_id, fr.status, fr.created_at, fr.updated_at,
		       u.id, u.name, u.avatar_url, u.native_language, u.learning_language, u.location
		FROM friend_requests fr
		JOIN users u ON u.id = fr.recipient_id
		WHERE fr.sender_id = $1 AND fr.status = $2
		ORDER BY fr.created_at DESC`

	return r.listRequestViews(ctx, query, false, userID, domain.RequestPending)
}

// ListAcceptedReceived returns requests the user received that were accepted,
// joined with the sender's profile.
func (r *FriendRepository) ListAcceptedReceived(ctx context.Context, userID string) ([]domain.FriendRequestView, error) {
	query := `
		SELECT fr.id, fr.sender_id, fr.recipient_id, fr.status, fr.created_at, fr.updated_at,
		       u.id, u.name, u.avatar_url, u.native_language, u.learning_language, u.location
		FROM friend_requests fr
		JOIN users u ON u.id = fr.sender_id
		WHERE fr.recipient_id = $1 AND fr.status = $2
		ORDER BY fr.updated_at DESC`

	return r.listRequestViews(ctx, query, true, userID, domain.RequestAccepted)
}

// ListFriends returns the public profiles of the user's friends.
func (r *FriendRepository) ListFriends(ctx context.Context, userID string) ([]domain.PublicProfile, error) {
	query := `
		SELECT u.id, u.name, u.avatar_url, u.native_language, u.learning_language, u.location
		FROM friendships f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = $1
		ORDER BY u.name`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

// AreFriends reports whether a friendship edge exists between the users.
func (r *FriendRepository) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userA, userB).Scan(&exists); err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}

	return exists, nil
}

// RemoveFriendship deletes the friendship edges in both directions and any
// accepted request record between the users within a transaction.
func (r *FriendRepository) RemoveFriendship(ctx context.Context, userA, userB string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx,
		`DELETE FROM friendships
		 WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)`,
		userA, userB,
	)
	if err != nil {
		return fmt.Errorf("delete friendship edges: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("friendship", userA+"/"+userB)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM friend_requests
		 WHERE status = $1
		   AND ((sender_id = $2 AND recipient_id = $3) OR (sender_id = $3 AND recipient_id = $2))`,
		domain.RequestAccepted, userA, userB,
	)
	if err != nil {
		return fmt.Errorf("delete accepted request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// scanRequest is a helper that executes a query expected to return a single request row.
func (r *FriendRepository) scanRequest(ctx context.Context, query string, args ...any) (*domain.FriendRequest, error) {
	var req domain.FriendRequest

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&req.ID,
		&req.SenderID,
		&req.RecipientID,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan friend request: %w", err)
	}

	return &req, nil
}

// listRequestViews drains rows of request + joined profile columns. The
// joined profile lands on the sender or recipient side of the view depending
// on which party the query joined.
func (r *FriendRepository) listRequestViews(ctx context.Context, query string, joinedSender bool, args ...any) ([]domain.FriendRequestView, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()

	var views []domain.FriendRequestView
	for rows.Next() {
		var (
			v domain.FriendRequestView
			p domain.PublicProfile
		)
		if err := rows.Scan(
			&v.ID,
			&v.SenderID,
			&v.RecipientID,
			&v.Status,
			&v.CreatedAt,
			&v.UpdatedAt,
			&p.ID,
			&p.Name,
			&p.AvatarURL,
			&p.NativeLanguage,
			&p.LearningLanguage,
			&p.Location,
		); err != nil {
			return nil, fmt.Errorf("scan friend request row: %w", err)
		}
		if joinedSender {
			v.Sender = &p
		} else {
			v.Recipient = &p
		}
		views = append(views, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend request rows: %w", err)
	}

	if views == nil {
		views = []domain.FriendRequestView{}
	}

	return views, nil
}
