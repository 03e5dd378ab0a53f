package handler

import (
	"net/http"

	"github.com/kortix-auth-service/internal/middleware"
)

// AccountHandler echoes the authenticated identity back to the caller.
type AccountHandler struct{}

func NewAccountHandler() *AccountHandler {
	return &AccountHandler{}
}

type accountResponse struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

func (h *AccountHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing authenticated user")
		return
	}

	RespondJSON(w, http.StatusOK, accountResponse{
		AccountID: user.ID,
		Email:     user.Email,
	})
}
