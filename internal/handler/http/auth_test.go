package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/linguahub/linguahub/internal/auth"
	"github.com/linguahub/linguahub/internal/domain"
	"github.com/linguahub/linguahub/internal/event"
	"github.com/linguahub/linguahub/internal/mail"
	"github.com/linguahub/linguahub/internal/oauth"
	"github.com/linguahub/linguahub/internal/service"
	apperrors "github.com/linguahub/linguahub/pkg/errors"
	"github.com/linguahub/linguahub/pkg/health"
	pkgkafka "github.com/linguahub/linguahub/pkg/kafka"
	"github.com/linguahub/linguahub/pkg/middleware"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) ListRecommended(ctx context.Context, userID string) ([]domain.PublicProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PublicProfile), args.Error(1)
}

type mockFriendRepo struct {
	mock.Mock
}

func (m *mockFriendRepo) CreateRequest(ctx context.Context, request *domain.FriendRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *mockFriendRepo) GetRequestByID(ctx context.Context, id string) (*domain.FriendRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FriendRequest), args.Error(1)
}

func (m *mockFriendRepo) GetRequestBetween(ctx context.Context, userA, userB string) (*domain.FriendRequest, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FriendRequest), args.Error(1)
}

func (m *mockFriendRepo) AcceptRequest(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockFriendRepo) DeleteRequest(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockFriendRepo) ListIncomingPending(ctx context.Context, userID string) ([]domain.FriendRequestView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FriendRequestView), args.Error(1)
}

func (m *mockFriendRepo) ListOutgoingPending(ctx context.Context, userID string) ([]domain.FriendRequestView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FriendRequestView), args.Error(1)
}

func (m *mockFriendRepo) ListAcceptedReceived(ctx context.Context, userID string) ([]domain.FriendRequestView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FriendRequestView), args.Error(1)
}

func (m *mockFriendRepo) ListFriends(ctx context.Context, userID string) ([]domain.PublicProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PublicProfile), args.Error(1)
}

func (m *mockFriendRepo) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	args := m.Called(ctx, userA, userB)
	return args.Bool(0), args.Error(1)
}

func (m *mockFriendRepo) RemoveFriendship(ctx context.Context, userA, userB string) error {
	args := m.Called(ctx, userA, userB)
	return args.Error(0)
}

// ============================================================================
// Stub Collaborators
// ============================================================================

type stubChat struct {
	token string
}

func (s stubChat) UpsertUser(ctx context.Context, profile domain.PublicProfile) error {
	return nil
}

func (s stubChat) TokenFor(userID string) (string, error) {
	return s.token, nil
}

type stubGoogle struct {
	identity *oauth.GoogleIdentity
	err      error
}

func (s stubGoogle) Verify(ctx context.Context, idToken string) (*oauth.GoogleIdentity, error) {
	return s.identity, s.err
}

type stubUploader struct{}

func (stubUploader) UploadDataURI(ctx context.Context, userID, dataURI string) (string, error) {
	return "https://cdn.example.com/avatars/" + userID + ".png", nil
}

// ============================================================================
// Test Helpers
// ============================================================================

const testSessionSecret = "handler-test-secret-key"

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func handlerTestProducer() *event.Producer {
	logger := handlerTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

type routerDeps struct {
	userRepo   *mockUserRepo
	friendRepo *mockFriendRepo
	google     stubGoogle
}

func newTestRouter(t *testing.T, deps *routerDeps) http.Handler {
	t.Helper()
	logger := handlerTestLogger()
	jwtManager := auth.NewJWTManager(testSessionSecret, 7*24*time.Hour)

	userService := service.NewUserService(
		deps.userRepo,
		jwtManager,
		handlerTestProducer(),
		mail.NewLogSender(logger),
		stubChat{token: "chat-token"},
		deps.google,
		stubUploader{},
		"LinguaHub",
		10*time.Minute,
		logger,
	)
	friendService := service.NewFriendService(deps.userRepo, deps.friendRepo, handlerTestProducer(), logger)

	return NewRouter(
		userService,
		friendService,
		SessionCookieConfig{Secure: false, MaxAge: 7 * 24 * time.Hour},
		health.NewHandler(),
		logger,
		CORSConfig{AllowedOrigins: []string{"*"}, Environment: "development"},
	)
}

// sessionFor mints a valid session token for requests that need auth.
func sessionFor(t *testing.T, userID, email string) string {
	t.Helper()
	token, err := auth.NewJWTManager(testSessionSecret, time.Hour).GenerateSessionToken(userID, email)
	require.NoError(t, err)
	return token
}

type testResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *errorResponse  `json:"error"`
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var resp testResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

const testUserID = "550e8400-e29b-41d4-a716-446655440001"

func handlerSampleUser() *domain.User {
	now := time.Now().UTC()
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), 4)
	return &domain.User{
		ID:           testUserID,
		Name:         "Mina",
		Email:        "mina@example.com",
		PasswordHash: string(hash),
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ============================================================================
// Register Tests
// ============================================================================

func TestRegister_Created(t *testing.T) {
	deps := &routerDeps{userRepo: new(mockUserRepo), friendRepo: new(mockFriendRepo)}
	router := newTestRouter(t, deps)

	deps.userRepo.On("GetByEmail", mock.Anything, "mina@example.com").Return(nil, apperrors.ErrNotFound)
	deps.userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	req := jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Mina",
		"email":    "mina@example.com",
		"password": "secret123",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, sessionCookie(rec), "registration does not open a session")

	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.Contains(t, string(resp.Data), `"needVerification":true`)
	assert.NotContains(t, string(resp.Data), "password")
	deps.userRepo.AssertExpectations(t)
}

func TestRegister_ValidationError(t *testing.T) {
	deps := &routerDeps{userRepo: new(mockUserRepo), friendRepo: new(mockFriendRepo)}
	router := newTestRouter(t, deps)

	req := jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Mina",
		"email":    "not-an-email",
		"password": "123",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "Email")
	assert.Contains(t, resp.Error.Fields, "Password")
}

func TestRegister_VerifiedEmailConflict(t *testing.T) {
	deps := &routerDeps{userRepo: new(mockUserRepo), friendRepo: new(mockFriendRepo)}
	router := newTestRouter(t, deps)

	deps.userRepo.On("GetByEmail", mock.Anything, "mina@example.com").Return(handlerSampleUser(), nil)

	req := jsonRequest(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     "Mina",
		"email":    "mina@example.com",
		"password": "secret123",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_RequiresJSONContentType(t *testing.T) {
	deps := &routerDeps{userRepo: new(mockUserRepo), friendRepo: new(mockFriendRepo)}
	router := newTestRouter(t, deps)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("name=Mina"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// ============================================================================
// Verify / Login Tests
// ============================================================================

func TestVerifyEmail_OK(t *testing.T) {
	deps := &routerDeps{userRepo: new(mockUserRepo), friendRepo: new(mockFriendRepo)}
	router := newTestRouter(t, deps)

	user := handlerSampleUser()
	user.IsVerified = false
	user.Challenge = &domain.Challenge{
		Purpose:   domain.PurposeVerification,
		Code:      "123456",
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	}
	deps.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	deps.userRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	req := jsonRequest(t, http.MethodPost, "/api/auth/verify-email", map[string]string{
		"userId": user.ID,
		"otp":    "123456",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, sessionCookie(rec), "verification opens the first session")
}

func TestLogin_SendsCodeWithoutSession(t *testing.T) {
	deps := &routerDeps{userRepo: new(mockUserRepo), friendRepo: new(mockFriendRepo)}
	router := newTestRouter(t, deps)

	deps.userRepo.On("GetByEmail", mock.Anything, "mina@example.com").Return(handlerSampleUser(), nil)
	deps.userRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	req := jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "mina@example.com",
		"password": "secret123",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, sessionCookie(rec), "no session until the code is confirmed")

	resp := decodeResponse(t, rec)
	assert.Contains(t, string(resp.Data), `"mfaRequired":true`)
	assert.Contains(t, string(resp.Data), testUserID)
}

func TestLogin_WrongPassword(t *testing.T) {
	deps := &routerDeps{userRepo: new(mockUserRepo), friendRepo: new(mockFriendRepo)}
	router := newTestRouter(t, deps)

	deps.userRepo.On("GetByEmail", mock.Anything, "mina@example.com").Return(handlerSampleUser(), nil)

	req := jsonRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "mina@example.com",
		"password": "wrong-password",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestVerifyMFA_SetsSessionCookie(t *testing.T) {
	deps := &routerDeps{userRepo: new(mockUserRepo), friendRepo: new(mockFriendRepo)}
	router := newTestRouter(t, deps)

	user := handlerSampleUser()
	user.Challenge = &domain.Challenge{
		Purpose:   domain.PurposeMFA,
		Code:      "654321",
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	}
	deps.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	deps.userRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	req := jsonRequest(t, http.MethodPost, "/api/auth/verify-mfa", map[string]string{
		"userId": user.ID,
		"otp":    "654321",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	// The cookie value is a session token the auth middleware accepts.
	claims, err := auth.NewJWTManager(testSessionSecret, time.Hour).ValidateSessionToken(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestVerifyMFA_WrongCode(t *testing.T) {
	deps := &routerDeps{userRepo: new(mockUserRepo), friendRepo: new(mockFriendRepo)}
	router := newTestRouter(t, deps)

	user := handlerSampleUser()
	user.Challenge = &domain.Challenge{
		Purpose:   domain.PurposeMFA,
		Code:      "654321",
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	}
	deps.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	req := jsonRequest(t, http.MethodPost, "/api/auth/verify-mfa", map[string]string{
		"userId": user.ID,
		"otp":    "111111",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, sessionCookie(rec))
}

// ============================================================================
// Google / Logout / Me Tests
// ============================================================================

func TestGoogleLogin_SetsSessionCookie(t *testing.T) {
	deps := &routerDeps{
		userRepo:   new(mockUserRepo),
		friendRepo: new(mockFriendRepo),
		google: stubGoogle{identity: &oauth.GoogleIdentity{
			Email:         "mina@example.com",
			EmailVerified: "true",
			Name:          "Mina",
		}},
	}
	router := newTestRouter(t, deps)

	deps.userRepo.On("GetByEmail", mock.Anything, "mina@example.com").Return(handlerSampleUser(), nil)

	req := jsonRequest(t, http.MethodPost, "/api/auth/google", map[string]string{
		"credential": "google-id-token",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, sessionCookie(rec))
}

func TestLogout_ClearsSessionCookie(t *testing.T) {
	deps := &routerDeps{userRepo: new(mockUserRepo), friendRepo: new(mockFriendRepo)}
	router := newTestRouter(t, deps)

	req := jsonRequest(t, http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestMe_WithSessionCookie(t *testing.T) {
	deps := &routerDeps{userRepo: new(mockUserRepo), friendRepo: new(mockFriendRepo)}
	router := newTestRouter(t, deps)

	user := handlerSampleUser()
	deps.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sessionFor(t, user.ID, user.Email)})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMe_Unauthenticated(t *testing.T) {
	deps := &routerDeps{userRepo: new(mockUserRepo), friendRepo: new(mockFriendRepo)}
	router := newTestRouter(t, deps)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOnboarding_MarksOnboarded(t *testing.T) {
	deps := &routerDeps{userRepo: new(mockUserRepo), friendRepo: new(mockFriendRepo)}
	router := newTestRouter(t, deps)

	user := handlerSampleUser()
	deps.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	deps.userRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	req := jsonRequest(t, http.MethodPost, "/api/auth/onboarding", map[string]string{
		"name":             "Mina Park",
		"bio":              "learning spanish",
		"nativeLanguage":   "korean",
		"learningLanguage": "spanish",
		"location":         "Seoul",
	})
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sessionFor(t, user.ID, user.Email)})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Contains(t, string(resp.Data), `"is_onboarded":true`)
}
