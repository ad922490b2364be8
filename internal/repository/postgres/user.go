package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/linguahub/linguahub/internal/domain"
	"github.com/linguahub/linguahub/pkg/database"
	apperrors "github.com/linguahub/linguahub/pkg/errors"
)

const userColumns = `id, name, email, password_hash, bio, avatar_url, native_language, learning_language, location,
		is_verified, is_onboarded, otp_purpose, otp_code, otp_expires_at, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	purpose, code, expiresAt := challengeColumns(u.Challenge)
	_, err := r.db.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.Bio,
		u.AvatarURL,
		u.NativeLanguage,
		u.LearningLanguage,
		u.Location,
		u.IsVerified,
		u.IsOnboarded,
		purpose,
		code,
		expiresAt,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	return r.scanUser(ctx, query, id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`

	return r.scanUser(ctx, query, email)
}

// Update modifies an existing user in the database.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, bio = $4, avatar_url = $5,
		    native_language = $6, learning_language = $7, location = $8,
		    is_verified = $9, is_onboarded = $10,
		    otp_purpose = $11, otp_code = $12, otp_expires_at = $13, updated_at = $14
		WHERE id = $15`

	purpose, code, expiresAt := challengeColumns(u.Challenge)
	ct, err := r.db.Exec(ctx, query,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.Bio,
		u.AvatarURL,
		u.NativeLanguage,
		u.LearningLanguage,
		u.Location,
		u.IsVerified,
		u.IsOnboarded,
		purpose,
		code,
		expiresAt,
		u.UpdatedAt,
		u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", u.ID)
	}

	return nil
}

// ListRecommended returns users that are neither the given user nor already
// their friend.
func (r *UserRepository) ListRecommended(ctx context.Context, userID string) ([]domain.PublicProfile, error) {
	query := `
		SELECT id, name, avatar_url, native_language, learning_language, location
		FROM users
		WHERE id <> $1
		  AND id NOT IN (SELECT friend_id FROM friendships WHERE user_id = $1)
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list recommended users: %w", err)
	}
	defer rows.Close()

	profiles, err := scanProfiles(rows)
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// scanUser is a helper that executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var (
		u         domain.User
		purpose   *string
		code      *string
		expiresAt *time.Time
	)

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Bio,
		&u.AvatarURL,
		&u.NativeLanguage,
		&u.LearningLanguage,
		&u.Location,
		&u.IsVerified,
		&u.IsOnboarded,
		&purpose,
		&code,
		&expiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if purpose != nil && code != nil && expiresAt != nil {
		u.Challenge = &domain.Challenge{
			Purpose:   domain.ChallengePurpose(*purpose),
			Code:      *code,
			ExpiresAt: *expiresAt,
		}
	}

	return &u, nil
}

// challengeColumns flattens an optional challenge into its nullable columns.
func challengeColumns(c *domain.Challenge) (purpose, code *string, expiresAt *time.Time) {
	if c == nil {
		return nil, nil, nil
	}
	p := string(c.Purpose)
	return &p, &c.Code, &c.ExpiresAt
}

// scanProfiles drains rows of public profile columns.
func scanProfiles(rows pgx.Rows) ([]domain.PublicProfile, error) {
	var profiles []domain.PublicProfile
	for rows.Next() {
		var p domain.PublicProfile
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.AvatarURL,
			&p.NativeLanguage,
			&p.LearningLanguage,
			&p.Location,
		); err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile rows: %w", err)
	}

	if profiles == nil {
		profiles = []domain.PublicProfile{}
	}

	return profiles, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
