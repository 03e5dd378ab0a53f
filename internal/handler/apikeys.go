package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kortix-auth-service/internal/middleware"
	"github.com/kortix-auth-service/internal/model"
	"github.com/kortix-auth-service/internal/service"
)

// --- Create API Key ---

type CreateAPIKeyHandler struct {
	svc *service.APIKeyService
}

func NewCreateAPIKeyHandler(svc *service.APIKeyService) *CreateAPIKeyHandler {
	return &CreateAPIKeyHandler{svc: svc}
}

type createAPIKeyRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	ExpiresInDays *int   `json:"expires_in_days,omitempty"`
}

type createAPIKeyResponse struct {
	KeyID     uuid.UUID `json:"key_id"`
	PublicKey string    `json:"public_key"`
	SecretKey string    `json:"secret_key"`
	Title     string    `json:"title"`
	CreatedAt string    `json:"created_at"`
	Message   string    `json:"message"`
}

func (h *CreateAPIKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing authenticated user")
		return
	}

	var req createAPIKeyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	result, err := h.svc.Create(r.Context(), user.ID, service.CreateAPIKeyInput{
		Title:         req.Title,
		Description:   req.Description,
		ExpiresInDays: req.ExpiresInDays,
	})
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, createAPIKeyResponse{
		KeyID:     result.APIKey.KeyID,
		PublicKey: result.APIKey.PublicKey,
		SecretKey: result.SecretKey,
		Title:     result.APIKey.Title,
		CreatedAt: result.APIKey.CreatedAt.Format(time.RFC3339),
		Message:   "Store the secret key now; it cannot be retrieved again",
	})
}

// --- List API Keys ---

type ListAPIKeysHandler struct {
	svc *service.APIKeyService
}

func NewListAPIKeysHandler(svc *service.APIKeyService) *ListAPIKeysHandler {
	return &ListAPIKeysHandler{svc: svc}
}

type listAPIKeysResponse struct {
	APIKeys []*model.APIKey `json:"api_keys"`
	Total   int             `json:"total"`
}

func (h *ListAPIKeysHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing authenticated user")
		return
	}

	keys, err := h.svc.List(r.Context(), user.ID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, listAPIKeysResponse{APIKeys: keys, Total: len(keys)})
}

// --- Revoke API Key ---

type RevokeAPIKeyHandler struct {
	svc *service.APIKeyService
}

func NewRevokeAPIKeyHandler(svc *service.APIKeyService) *RevokeAPIKeyHandler {
	return &RevokeAPIKeyHandler{svc: svc}
}

func (h *RevokeAPIKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing authenticated user")
		return
	}

	keyID, err := uuid.Parse(chi.URLParam(r, "keyID"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid API key ID")
		return
	}

	if err := h.svc.Revoke(r.Context(), user.ID, keyID); err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"message": "API key revoked"})
}

// --- Delete API Key ---

type DeleteAPIKeyHandler struct {
	svc *service.APIKeyService
}

func NewDeleteAPIKeyHandler(svc *service.APIKeyService) *DeleteAPIKeyHandler {
	return &DeleteAPIKeyHandler{svc: svc}
}

func (h *DeleteAPIKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing authenticated user")
		return
	}

	keyID, err := uuid.Parse(chi.URLParam(r, "keyID"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid API key ID")
		return
	}

	if err := h.svc.Delete(r.Context(), user.ID, keyID); err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"message": "API key deleted"})
}

// --- Verify API Key ---

// VerifyAPIKeyHandler authenticates a pk/sk pair for resource servers. The
// route itself is unauthenticated: the key pair in the body is the credential.
type VerifyAPIKeyHandler struct {
	svc *service.APIKeyService
}

func NewVerifyAPIKeyHandler(svc *service.APIKeyService) *VerifyAPIKeyHandler {
	return &VerifyAPIKeyHandler{svc: svc}
}

type verifyAPIKeyRequest struct {
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
}

type verifyAPIKeyResponse struct {
	Valid     bool      `json:"valid"`
	KeyID     uuid.UUID `json:"key_id"`
	AccountID string    `json:"account_id"`
	Title     string    `json:"title"`
}

func (h *VerifyAPIKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req verifyAPIKeyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.PublicKey == "" || req.SecretKey == "" {
		RespondError(w, http.StatusBadRequest, "invalid_request", "public_key and secret_key are required")
		return
	}

	apiKey, err := h.svc.Verify(r.Context(), req.PublicKey, req.SecretKey)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, verifyAPIKeyResponse{
		Valid:     true,
		KeyID:     apiKey.KeyID,
		AccountID: apiKey.AccountID,
		Title:     apiKey.Title,
	})
}
