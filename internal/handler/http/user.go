package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linguahub/linguahub/internal/service"
	"github.com/linguahub/linguahub/pkg/middleware"
)

// UserHandler handles HTTP requests for user discovery and friend endpoints.
type UserHandler struct {
	users   *service.UserService
	friends *service.FriendService
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(users *service.UserService, friends *service.FriendService) *UserHandler {
	return &UserHandler{users: users, friends: friends}
}

// --- Request DTOs ---

// UpdateProfileRequest is the JSON request body for a profile patch.
type UpdateProfileRequest struct {
	Name             *string `json:"name" validate:"omitempty,min=1,max=100"`
	Bio              *string `json:"bio" validate:"omitempty,max=500"`
	NativeLanguage   *string `json:"nativeLanguage" validate:"omitempty,max=50"`
	LearningLanguage *string `json:"learningLanguage" validate:"omitempty,max=50"`
	Location         *string `json:"location" validate:"omitempty,max=100"`
	Avatar           *string `json:"avatar" validate:"omitempty"`
}

// --- Handlers ---

// ListRecommended handles GET /api/users
func (h *UserHandler) ListRecommended(w http.ResponseWriter, r *http.Request) {
	userID := authedUserID(w, r)
	if userID == "" {
		return
	}

	profiles, err := h.friends.RecommendedUsers(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: profiles})
}

// ListFriends handles GET /api/users/friends
func (h *UserHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID := authedUserID(w, r)
	if userID == "" {
		return
	}

	friends, err := h.friends.Friends(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: friends})
}

// UpdateProfile handles PUT /api/users/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := authedUserID(w, r)
	if userID == "" {
		return
	}

	var req UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, service.UpdateProfileInput{
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

// SendFriendRequest handles POST /api/users/friend-request/{id}
func (h *UserHandler) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	userID := authedUserID(w, r)
	if userID == "" {
		return
	}

	recipientID := chi.URLParam(r, "id")
	request, err := h.friends.SendRequest(r.Context(), userID, recipientID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: request})
}

// AcceptFriendRequest handles PUT /api/users/friend-request/{id}/accept
func (h *UserHandler) AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	userID := authedUserID(w, r)
	if userID == "" {
		return
	}

	requestID := chi.URLParam(r, "id")
	request, err := h.friends.AcceptRequest(r.Context(), userID, requestID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: request})
}

// RejectFriendRequest handles PUT /api/users/friend-request/{id}/reject
func (h *UserHandler) RejectFriendRequest(w http.ResponseWriter, r *http.Request) {
	userID := authedUserID(w, r)
	if userID == "" {
		return
	}

	requestID := chi.URLParam(r, "id")
	if err := h.friends.RejectRequest(r.Context(), userID, requestID); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"id": requestID, "status": "rejected"}})
}

// ListFriendRequests handles GET /api/users/friend-requests
func (h *UserHandler) ListFriendRequests(w http.ResponseWriter, r *http.Request) {
	userID := authedUserID(w, r)
	if userID == "" {
		return
	}

	overview, err := h.friends.Requests(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: overview})
}

// ListOutgoingFriendRequests handles GET /api/users/outgoing-friend-requests
func (h *UserHandler) ListOutgoingFriendRequests(w http.ResponseWriter, r *http.Request) {
	userID := authedUserID(w, r)
	if userID == "" {
		return
	}

	outgoing, err := h.friends.OutgoingRequests(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: outgoing})
}

// RemoveFriend handles DELETE /api/users/friend/{id}
func (h *UserHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	userID := authedUserID(w, r)
	if userID == "" {
		return
	}

	friendID := chi.URLParam(r, "id")
	if err := h.friends.RemoveFriend(r.Context(), userID, friendID); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"id": friendID, "status": "removed"}})
}

// authedUserID extracts the authenticated user or writes a 401.
func authedUserID(w http.ResponseWriter, r *http.Request) string {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "user not authenticated"},
		})
	}
	return userID
}
