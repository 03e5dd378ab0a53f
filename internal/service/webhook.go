package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kortix-auth-service/internal/model"
	"github.com/kortix-auth-service/internal/store"
)

// signatureTolerance bounds how old a signed timestamp may be. Replays of a
// captured delivery outside this window are rejected.
const signatureTolerance = 5 * time.Minute

// WebhookService verifies and processes payment-provider callbacks. Every
// payload must carry a valid signature before any field of it is trusted,
// and each event id is processed at most once.
type WebhookService struct {
	events  store.WebhookEventStore
	credits store.CreditStore
	secret  string
	now     func() time.Time
}

func NewWebhookService(events store.WebhookEventStore, credits store.CreditStore, secret string) *WebhookService {
	return &WebhookService{events: events, credits: credits, secret: secret, now: time.Now}
}

// Process verifies the provider signature and dispatches the event.
// Duplicate deliveries are acknowledged without reprocessing.
func (s *WebhookService) Process(ctx context.Context, signatureHeader string, payload []byte) error {
	if s.secret == "" {
		return NewInternal("not_configured", "Webhook secret is not configured")
	}
	if signatureHeader == "" {
		return NewBadRequest("missing_signature", "Missing signature header")
	}

	if err := s.verifySignature(signatureHeader, payload); err != nil {
		return NewBadRequest("invalid_signature", err.Error())
	}

	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				Metadata struct {
					AccountID string `json:"account_id"`
					Tier      string `json:"tier"`
				} `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return NewBadRequest("invalid_payload", "Malformed event payload")
	}
	if event.ID == "" || event.Type == "" {
		return NewBadRequest("invalid_payload", "Event id and type are required")
	}

	fresh, err := s.events.RecordWebhookEvent(ctx, &model.WebhookEvent{
		EventID:   event.ID,
		EventType: event.Type,
	})
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("failed to record webhook event")
		return NewInternal("internal_error", "Failed to process event")
	}
	if !fresh {
		log.Info().Str("event_id", event.ID).Msg("duplicate webhook delivery acknowledged")
		return nil
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		accountID := event.Data.Object.Metadata.AccountID
		tier := event.Data.Object.Metadata.Tier
		if accountID == "" || tier == "" {
			log.Warn().Str("event_id", event.ID).Str("type", event.Type).
				Msg("subscription event without account/tier metadata")
			return nil
		}
		if err := s.credits.SetTier(ctx, accountID, tier); err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("failed to update tier")
			return NewInternal("internal_error", "Failed to process event")
		}
	case "customer.subscription.deleted":
		accountID := event.Data.Object.Metadata.AccountID
		if accountID == "" {
			log.Warn().Str("event_id", event.ID).Msg("subscription deletion without account metadata")
			return nil
		}
		if err := s.credits.SetTier(ctx, accountID, model.TierNone); err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("failed to reset tier")
			return NewInternal("internal_error", "Failed to process event")
		}
	case "invoice.paid", "invoice.payment_failed":
		// Credit grants and dunning live in the billing backend; the event
		// is recorded for audit and acknowledged.
		log.Info().Str("event_id", event.ID).Str("type", event.Type).Msg("invoice event acknowledged")
	default:
		log.Info().Str("event_id", event.ID).Str("type", event.Type).Msg("unhandled webhook event type")
	}

	return nil
}

// verifySignature checks the provider's `t=<unix>,v1=<hex>` header scheme:
// HMAC-SHA256 over "<t>.<payload>" with the endpoint secret, compared in
// constant time, with the timestamp bounded by signatureTolerance.
func (s *WebhookService) verifySignature(header string, payload []byte) error {
	var timestamp string
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signatures = append(signatures, v)
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("malformed signature header")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed signature timestamp")
	}
	age := s.now().Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1 {
			return nil
		}
	}
	return fmt.Errorf("signature mismatch")
}
