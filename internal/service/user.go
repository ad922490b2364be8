package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/linguahub/linguahub/internal/auth"
	"github.com/linguahub/linguahub/internal/domain"
	"github.com/linguahub/linguahub/internal/event"
	mailpkg "github.com/linguahub/linguahub/internal/mail"
	"github.com/linguahub/linguahub/internal/oauth"
	"github.com/linguahub/linguahub/internal/otp"
	"github.com/linguahub/linguahub/internal/repository"
	apperrors "github.com/linguahub/linguahub/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 10

// minPasswordLength is the minimum password length required.
const minPasswordLength = 6

// invalidCodeMessage is deliberately identical for every code failure so a
// caller cannot distinguish a wrong code from an expired or absent one.
const invalidCodeMessage = "invalid or expired code"

// ChatProvider mirrors user identities into the chat backend and mints
// client tokens.
type ChatProvider interface {
	UpsertUser(ctx context.Context, profile domain.PublicProfile) error
	TokenFor(userID string) (string, error)
}

// GoogleVerifier validates Google sign-in credentials.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*oauth.GoogleIdentity, error)
}

// AvatarUploader stores avatar images and returns their public URL.
type AvatarUploader interface {
	UploadDataURI(ctx context.Context, userID, dataURI string) (string, error)
}

// UserService implements the business logic for auth and profile operations.
type UserService struct {
	userRepo   repository.UserRepository
	jwtManager *auth.JWTManager
	producer   *event.Producer
	mailSender mailpkg.Sender
	chat       ChatProvider
	google     GoogleVerifier
	uploader   AvatarUploader
	appName    string
	otpTTL     time.Duration
	logger     *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repository.UserRepository,
	jwtManager *auth.JWTManager,
	producer *event.Producer,
	mailSender mailpkg.Sender,
	chat ChatProvider,
	google GoogleVerifier,
	uploader AvatarUploader,
	appName string,
	otpTTL time.Duration,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		producer:   producer,
		mailSender: mailSender,
		chat:       chat,
		google:     google,
		uploader:   uploader,
		appName:    appName,
		otpTTL:     otpTTL,
		logger:     logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// OnboardInput holds the profile fields required to complete onboarding.
type OnboardInput struct {
	Name             string
	Bio              string
	NativeLanguage   string
	LearningLanguage string
	Location         string
	AvatarDataURI    string
}

// UpdateProfileInput holds the optional fields for a profile patch.
type UpdateProfileInput struct {
	Name             *string
	Bio              *string
	NativeLanguage   *string
	LearningLanguage *string
	Location         *string
	AvatarDataURI    *string
}

// --- Auth Operations ---

// Register creates a new unverified account and emails a verification code.
// Re-registering an email that never completed verification replaces the
// stale account instead of failing, so an abandoned signup cannot squat the
// address.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil && existing.IsVerified {
		return nil, apperrors.Conflict("email is already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	challenge, err := otp.NewChallenge(domain.PurposeVerification, s.otpTTL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var user *domain.User
	if existing != nil {
		// Unverified leftover from an abandoned signup: take the row over.
		user = existing
		user.Name = input.Name
		user.PasswordHash = string(hashedPassword)
		user.Challenge = challenge
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("replace unverified user: %w", err)
		}
	} else {
		user = &domain.User{
			ID:           uuid.New().String(),
			Name:         input.Name,
			Email:        input.Email,
			PasswordHash: string(hashedPassword),
			AvatarURL:    randomAvatarURL(),
			Challenge:    challenge,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	}

	s.sendCode(ctx, user, challenge)

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// VerifyEmail consumes a verification code, marks the account verified and
// opens the first session. Verification happens at most once: a repeat call
// fails with a conflict even when the code matches.
func (s *UserService) VerifyEmail(ctx context.Context, userID, code string) (*domain.User, string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, "", apperrors.NotFound("user", userID)
		}
		return nil, "", fmt.Errorf("get user %s: %w", userID, err)
	}

	if user.IsVerified {
		return nil, "", apperrors.Conflict("email is already verified")
	}

	if err := consumeChallenge(user, code, domain.PurposeVerification); err != nil {
		return nil, "", err
	}

	user.IsVerified = true
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, "", fmt.Errorf("mark user verified: %w", err)
	}

	// Mirror the identity into the chat backend (non-blocking on failure).
	if err := s.chat.UpsertUser(ctx, user.Public()); err != nil {
		s.logger.ErrorContext(ctx, "failed to upsert chat identity",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishUserVerified(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.verified event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	token, err := s.jwtManager.GenerateSessionToken(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	s.logger.InfoContext(ctx, "email verified",
		slog.String("user_id", user.ID),
	)

	return user, token, nil
}

// Login checks the password and emails a login code. No session is issued
// until the code is confirmed with VerifyMFA.
func (s *UserService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if password == "" {
		return nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Missing account and wrong password fail identically so the
		// endpoint cannot be used to enumerate registered emails.
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput("invalid email or password")
		}
		return nil, fmt.Errorf("look up user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.InvalidInput("invalid email or password")
	}

	if !user.IsVerified {
		return nil, apperrors.InvalidInput("email is not verified")
	}

	challenge, err := otp.NewChallenge(domain.PurposeMFA, s.otpTTL)
	if err != nil {
		return nil, err
	}
	user.Challenge = challenge
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("store login challenge: %w", err)
	}

	s.sendCode(ctx, user, challenge)

	s.logger.InfoContext(ctx, "login code issued",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// VerifyMFA consumes a login code and issues a session token. An unknown
// user fails the same way as a wrong code.
func (s *UserService) VerifyMFA(ctx context.Context, userID, code string) (*domain.User, string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, "", apperrors.InvalidInput(invalidCodeMessage)
	}

	if err := consumeChallenge(user, code, domain.PurposeMFA); err != nil {
		return nil, "", err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, "", fmt.Errorf("clear login challenge: %w", err)
	}

	token, err := s.jwtManager.GenerateSessionToken(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
	)

	return user, token, nil
}

// GoogleLogin signs a user in with a Google credential, creating a verified
// account on first sight. Google already proved mailbox ownership, so no
// code round-trip happens here.
func (s *UserService) GoogleLogin(ctx context.Context, idToken string) (*domain.User, string, error) {
	if idToken == "" {
		return nil, "", apperrors.InvalidInput("credential is required")
	}

	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, "", err
	}

	user, err := s.userRepo.GetByEmail(ctx, identity.Email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, "", fmt.Errorf("look up google user: %w", err)
		}

		avatar := identity.Picture
		if avatar == "" {
			avatar = randomAvatarURL()
		}

		// Federated users never authenticate with a password; store a
		// throwaway hash so password login can never match.
		throwaway, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcryptCost)
		if err != nil {
			return nil, "", fmt.Errorf("generate placeholder credential: %w", err)
		}

		now := time.Now().UTC()
		user = &domain.User{
			ID:           uuid.New().String(),
			Name:         identity.Name,
			Email:        identity.Email,
			PasswordHash: string(throwaway),
			AvatarURL:    avatar,
			IsVerified:   true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, "", fmt.Errorf("create google user: %w", err)
		}

		if err := s.chat.UpsertUser(ctx, user.Public()); err != nil {
			s.logger.ErrorContext(ctx, "failed to upsert chat identity",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish user.registered event",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	} else if !user.IsVerified {
		// A password signup that never finished verification: Google just
		// proved the mailbox, so promote the account.
		user.IsVerified = true
		user.Challenge = nil
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, "", fmt.Errorf("promote google user: %w", err)
		}
	}

	token, err := s.jwtManager.GenerateSessionToken(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in with google",
		slog.String("user_id", user.ID),
	)

	return user, token, nil
}

// ValidateSession validates a session token and returns its claims.
func (s *UserService) ValidateSession(token string) (*auth.SessionClaims, error) {
	return s.jwtManager.ValidateSessionToken(token)
}

// --- Profile Operations ---

// GetProfile retrieves a user by their ID.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// Onboard completes the profile a new user must fill in before appearing in
// recommendations.
func (s *UserService) Onboard(ctx context.Context, userID string, input OnboardInput) (*domain.User, error) {
	missing := missingOnboardFields(input)
	if len(missing) > 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("missing required fields: %v", missing))
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for onboarding: %w", err)
	}

	user.Name = input.Name
	user.Bio = input.Bio
	user.NativeLanguage = input.NativeLanguage
	user.LearningLanguage = input.LearningLanguage
	user.Location = input.Location
	user.IsOnboarded = true

	if input.AvatarDataURI != "" {
		url, err := s.uploader.UploadDataURI(ctx, user.ID, input.AvatarDataURI)
		if err != nil {
			return nil, fmt.Errorf("upload avatar: %w", err)
		}
		user.AvatarURL = url
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := s.chat.UpsertUser(ctx, user.Public()); err != nil {
		s.logger.ErrorContext(ctx, "failed to upsert chat identity",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.producer.PublishUserOnboarded(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.onboarded event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user onboarded",
		slog.String("user_id", user.ID),
		slog.String("native_language", user.NativeLanguage),
		slog.String("learning_language", user.LearningLanguage),
	)

	return user, nil
}

// UpdateProfile applies a partial profile update.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		user.Name = *input.Name
	}
	if input.Bio != nil {
		user.Bio = *input.Bio
	}
	if input.NativeLanguage != nil {
		user.NativeLanguage = *input.NativeLanguage
	}
	if input.LearningLanguage != nil {
		user.LearningLanguage = *input.LearningLanguage
	}
	if input.Location != nil {
		user.Location = *input.Location
	}
	if input.AvatarDataURI != nil && *input.AvatarDataURI != "" {
		url, err := s.uploader.UploadDataURI(ctx, user.ID, *input.AvatarDataURI)
		if err != nil {
			return nil, fmt.Errorf("upload avatar: %w", err)
		}
		user.AvatarURL = url
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := s.chat.UpsertUser(ctx, user.Public()); err != nil {
		s.logger.ErrorContext(ctx, "failed to upsert chat identity",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user profile updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// ChatToken mints a chat client token for the user.
func (s *UserService) ChatToken(ctx context.Context, userID string) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get user for chat token: %w", err)
	}

	token, err := s.chat.TokenFor(user.ID)
	if err != nil {
		return "", fmt.Errorf("mint chat token: %w", err)
	}

	return token, nil
}

// --- Helpers ---

// consumeChallenge validates and clears the outstanding challenge for the
// given purpose. Every failure returns the same generic error: wrong code,
// wrong purpose and expired code are indistinguishable to the caller.
func consumeChallenge(user *domain.User, code string, purpose domain.ChallengePurpose) error {
	if code == "" {
		return apperrors.InvalidInput(invalidCodeMessage)
	}

	ch := user.Challenge
	if ch == nil || ch.Purpose != purpose || ch.Code != code || ch.Expired(time.Now().UTC()) {
		return apperrors.InvalidInput(invalidCodeMessage)
	}

	// Single use: the caller persists the cleared challenge together with
	// whatever state change the code unlocked.
	user.Challenge = nil
	return nil
}

// sendCode emails the outstanding challenge to the user. Delivery failures
// are logged, not surfaced: the user can retry the flow to get a new code.
func (s *UserService) sendCode(ctx context.Context, user *domain.User, ch *domain.Challenge) {
	var msg *mailpkg.Message
	switch ch.Purpose {
	case domain.PurposeVerification:
		msg = mailpkg.VerificationMessage(s.appName, user.Email, user.Name, ch.Code, s.otpTTL)
	case domain.PurposeMFA:
		msg = mailpkg.LoginCodeMessage(s.appName, user.Email, user.Name, ch.Code, s.otpTTL)
	default:
		return
	}

	if err := s.mailSender.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to send code email",
			slog.String("user_id", user.ID),
			slog.String("sender", s.mailSender.Name()),
			slog.String("error", err.Error()),
		)
	}
}

// missingOnboardFields lists the required onboarding fields that are empty.
func missingOnboardFields(input OnboardInput) []string {
	var missing []string
	if input.Name == "" {
		missing = append(missing, "name")
	}
	if input.Bio == "" {
		missing = append(missing, "bio")
	}
	if input.NativeLanguage == "" {
		missing = append(missing, "nativeLanguage")
	}
	if input.LearningLanguage == "" {
		missing = append(missing, "learningLanguage")
	}
	if input.Location == "" {
		missing = append(missing, "location")
	}
	return missing
}

// randomAvatarURL picks one of the hosted placeholder avatars.
func randomAvatarURL() string {
	return fmt.Sprintf("https://avatar.iran.liara.run/public/%d.png", rand.IntN(100)+1)
}

// validateEmail checks that the address parses as RFC 5322.
func validateEmail(email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperrors.InvalidInput("email is not a valid address")
	}
	return nil
}

// validatePassword checks that the password meets the minimum length.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}
