package handler

import (
	"net/http"

	"github.com/kortix-auth-service/internal/middleware"
	"github.com/kortix-auth-service/internal/service"
)

// CreditsHandler serves the read-only credit balance view.
type CreditsHandler struct {
	svc *service.CreditService
}

func NewCreditsHandler(svc *service.CreditService) *CreditsHandler {
	return &CreditsHandler{svc: svc}
}

func (h *CreditsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing authenticated user")
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), user.ID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, balance)
}
