package http

import (
	"net/http"

	"github.com/linguahub/linguahub/internal/service"
)

// ChatHandler handles HTTP requests for the chat integration.
type ChatHandler struct {
	users *service.UserService
}

// NewChatHandler creates a new chat HTTP handler.
func NewChatHandler(users *service.UserService) *ChatHandler {
	return &ChatHandler{users: users}
}

// Token handles GET /api/chat/token
func (h *ChatHandler) Token(w http.ResponseWriter, r *http.Request) {
	userID := authedUserID(w, r)
	if userID == "" {
		return
	}

	token, err := h.users.ChatToken(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"token": token}})
}
