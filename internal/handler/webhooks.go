package handler

import (
	"io"
	"net/http"

	"github.com/kortix-auth-service/internal/service"
)

// SignatureHeader is the provider's signature header name.
const SignatureHeader = "Stripe-Signature"

// StripeWebhookHandler receives billing provider callbacks. The raw body is
// read before any parsing: the signature covers the exact payload bytes.
type StripeWebhookHandler struct {
	svc *service.WebhookService
}

func NewStripeWebhookHandler(svc *service.WebhookService) *StripeWebhookHandler {
	return &StripeWebhookHandler{svc: svc}
}

type webhookAck struct {
	Received bool `json:"received"`
}

func (h *StripeWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Failed to read payload")
		return
	}

	if err := h.svc.Process(r.Context(), r.Header.Get(SignatureHeader), payload); err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, webhookAck{Received: true})
}
