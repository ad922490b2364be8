package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linguahub/linguahub/internal/domain"
	"github.com/linguahub/linguahub/pkg/database"
	apperrors "github.com/linguahub/linguahub/pkg/errors"
)

// helper to build a sample user for tests.
func sampleUser() *domain.User {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	return &domain.User{
		ID:               "usr-001",
		Name:             "Mina Park",
		Email:            "mina@example.com",
		PasswordHash:     "$2a$10$hashhashhashhashhashha",
		Bio:              "learning spanish",
		AvatarURL:        "https://avatar.iran.liara.run/public/7.png",
		NativeLanguage:   "korean",
		LearningLanguage: "spanish",
		Location:         "Seoul",
		IsVerified:       true,
		IsOnboarded:      true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

var userRows = []string{
	"id", "name", "email", "password_hash", "bio", "avatar_url",
	"native_language", "learning_language", "location",
	"is_verified", "is_onboarded", "otp_purpose", "otp_code", "otp_expires_at",
	"created_at", "updated_at",
}

func userRowValues(u *domain.User) []any {
	purpose, code, expiresAt := challengeColumns(u.Challenge)
	return []any{
		u.ID, u.Name, u.Email, u.PasswordHash, u.Bio, u.AvatarURL,
		u.NativeLanguage, u.LearningLanguage, u.Location,
		u.IsVerified, u.IsOnboarded, purpose, code, expiresAt,
		u.CreatedAt, u.UpdatedAt,
	}
}

func TestUserRepository_Create_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock)
	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(
			u.ID, u.Name, u.Email, u.PasswordHash, u.Bio, u.AvatarURL,
			u.NativeLanguage, u.LearningLanguage, u.Location,
			u.IsVerified, u.IsOnboarded,
			(*string)(nil), (*string)(nil), (*time.Time)(nil),
			u.CreatedAt, u.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), u)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock)
	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(
			u.ID, u.Name, u.Email, u.PasswordHash, u.Bio, u.AvatarURL,
			u.NativeLanguage, u.LearningLanguage, u.Location,
			u.IsVerified, u.IsOnboarded,
			(*string)(nil), (*string)(nil), (*time.Time)(nil),
			u.CreatedAt, u.UpdatedAt,
		).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "users_email_key" (SQLSTATE 23505)`))

	err = repo.Create(context.Background(), u)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock)
	u := sampleUser()
	u.Challenge = &domain.Challenge{
		Purpose:   domain.PurposeMFA,
		Code:      "123456",
		ExpiresAt: time.Date(2026, 8, 1, 12, 10, 0, 0, time.UTC),
	}

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs(u.Email).
		WillReturnRows(pgxmock.NewRows(userRows).AddRow(userRowValues(u)...))

	got, err := repo.GetByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.Challenge)
	assert.Equal(t, domain.PurposeMFA, got.Challenge.Purpose)
	assert.Equal(t, "123456", got.Challenge.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock)
	u := sampleUser()
	u.Challenge = &domain.Challenge{Purpose: domain.PurposeVerification, Code: "654321", ExpiresAt: time.Now().UTC()}

	mock.ExpectExec("UPDATE users").
		WithArgs(
			u.Name, u.Email, u.PasswordHash, u.Bio, u.AvatarURL,
			u.NativeLanguage, u.LearningLanguage, u.Location,
			u.IsVerified, u.IsOnboarded,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			u.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.Update(context.Background(), u)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock)
	u := sampleUser()

	mock.ExpectExec("UPDATE users").
		WithArgs(
			u.Name, u.Email, u.PasswordHash, u.Bio, u.AvatarURL,
			u.NativeLanguage, u.LearningLanguage, u.Location,
			u.IsVerified, u.IsOnboarded,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			u.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.Update(context.Background(), u)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListRecommended(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock)

	rows := pgxmock.NewRows([]string{"id", "name", "avatar_url", "native_language", "learning_language", "location"}).
		AddRow("usr-002", "Diego", "https://avatar.iran.liara.run/public/12.png", "spanish", "korean", "Madrid").
		AddRow("usr-003", "Yuki", "https://avatar.iran.liara.run/public/33.png", "japanese", "english", "Osaka")

	mock.ExpectQuery(`FROM users\s+WHERE id <> \$1\s+AND id NOT IN`).
		WithArgs("usr-001").
		WillReturnRows(rows)

	profiles, err := repo.ListRecommended(context.Background(), "usr-001")
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Diego", profiles[0].Name)
	assert.Equal(t, "Yuki", profiles[1].Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ListRecommended_Empty(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("usr-001").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "avatar_url", "native_language", "learning_language", "location"}))

	profiles, err := repo.ListRecommended(context.Background(), "usr-001")
	require.NoError(t, err)
	assert.NotNil(t, profiles)
	assert.Empty(t, profiles)

	assert.NoError(t, mock.ExpectationsWereMet())
}
