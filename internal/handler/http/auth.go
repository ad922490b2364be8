package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/linguahub/linguahub/internal/service"
	"github.com/linguahub/linguahub/pkg/middleware"
	"github.com/linguahub/linguahub/pkg/validator"
)

// SessionCookieConfig controls the session cookie the auth handlers set.
type SessionCookieConfig struct {
	// Secure marks the cookie HTTPS-only. Off in development so the local
	// frontend can log in over plain HTTP.
	Secure bool
	MaxAge time.Duration
}

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service *service.UserService
	cookie  SessionCookieConfig
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.UserService, cookie SessionCookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, cookie: cookie, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// VerifyCodeRequest is the JSON request body for confirming a one-time code.
type VerifyCodeRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	OTP    string `json:"otp" validate:"required,len=6,numeric"`
}

// LoginRequest is the JSON request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleLoginRequest is the JSON request body for Google sign-in.
type GoogleLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

// OnboardRequest is the JSON request body for completing onboarding.
type OnboardRequest struct {
	Name             string `json:"name" validate:"required,min=1,max=100"`
	Bio              string `json:"bio" validate:"required,max=500"`
	NativeLanguage   string `json:"nativeLanguage" validate:"required,max=50"`
	LearningLanguage string `json:"learningLanguage" validate:"required,max=50"`
	Location         string `json:"location" validate:"required,max=100"`
	Avatar           string `json:"avatar" validate:"omitempty"`
}

// --- Handlers ---

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{
		Data: map[string]any{
			"userId":           user.ID,
			"needVerification": true,
		},
	})
}

// VerifyEmail handles POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := h.service.VerifyEmail(r.Context(), req.UserID, req.OTP)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, response{Data: map[string]any{"user": user}})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]any{"mfaRequired": true, "userId": user.ID},
	})
}

// VerifyMFA handles POST /api/auth/verify-mfa
func (h *AuthHandler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := h.service.VerifyMFA(r.Context(), req.UserID, req.OTP)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, response{Data: map[string]any{"user": user}})
}

// GoogleLogin handles POST /api/auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := h.service.GoogleLogin(r.Context(), req.Credential)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, response{Data: map[string]any{"user": user}})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, response{Data: map[string]string{"message": "logged out"}})
}

// Me handles GET /api/auth/me and GET /api/auth/check
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]any{"user": user}})
}

// Onboard handles POST /api/auth/onboarding
func (h *AuthHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
		return
	}

	var req OnboardRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.service.Onboard(r.Context(), userID, service.OnboardInput{
		Name:             req.Name,
		Bio:              req.Bio,
		NativeLanguage:   req.NativeLanguage,
		LearningLanguage: req.LearningLanguage,
		Location:         req.Location,
		AvatarDataURI:    req.Avatar,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]any{"user": user}})
}

// --- Cookie helpers ---

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// decodeBody decodes and validates a JSON request body, writing the error
// response itself when the body is unusable.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return false
	}

	if err := validator.Validate(v); err != nil {
		writeValidationError(w, err)
		return false
	}

	return true
}
