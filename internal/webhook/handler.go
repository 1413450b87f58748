package webhook

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"outreach-gateway/internal/config"
	"outreach-gateway/internal/events"
	"outreach-gateway/internal/models"
	"outreach-gateway/internal/store"
	"outreach-gateway/internal/tenant"
	"outreach-gateway/internal/ws"

	"github.com/gin-gonic/gin"
)

const (
	retryAttempts = 3
	retryBackoff  = 200 * time.Millisecond
)

type Handler struct {
	Config   *config.Config
	Contacts store.ContactStore
	Messages store.MessageStore
	Hub      *ws.Hub
	Events   events.Publisher
}

func NewHandler(cfg *config.Config, contacts store.ContactStore, messages store.MessageStore, hub *ws.Hub, publisher events.Publisher) *Handler {
	return &Handler{
		Config:   cfg,
		Contacts: contacts,
		Messages: messages,
		Hub:      hub,
		Events:   publisher,
	}
}

// VerifyWebhook answers provider liveness probes and the subscription
// challenge handshake.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	if challenge := c.Query("hub.challenge"); challenge != "" {
		if c.Query("hub.verify_token") == h.Config.WebhookSecret {
			c.String(http.StatusOK, challenge)
		} else {
			c.Status(http.StatusForbidden)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleInbound ingests one provider event: authenticity check, sender and
// body extraction, dedup by provider message id, persistence with retry,
// contact touch. Returning 500 makes the provider redeliver, which together
// with the unique dedup index gives at-least-once with no duplicates.
func (h *Handler) HandleInbound(c *gin.Context) {
	requestID := c.GetString("requestID")

	if !h.verifySecret(c) {
		if !h.Config.WebhookAllowUnverified {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "webhook token mismatch"})
			return
		}
		// Explicit opt-in for legacy integrations that cannot send the token.
		slog.Warn("webhook token mismatch, proceeding because WEBHOOK_ALLOW_UNVERIFIED is set",
			"request_id", requestID, "host", c.Request.Host)
	}

	tenantID, ok := tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "host not authorized"})
		return
	}

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		slog.Warn("webhook payload is not valid JSON", "request_id", requestID, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	sender, err := ExtractPhone(payload)
	if err != nil {
		slog.Warn("webhook payload has no identifiable phone",
			"request_id", requestID, "tenant", tenantID)
		c.JSON(http.StatusBadRequest, gin.H{"error": "no phone number in payload"})
		return
	}

	body := ExtractBody(payload)
	if body == "" {
		// Delivery receipts and similar notifications carry no text.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	senderName := ExtractSenderName(payload)
	providerMessageID := ExtractMessageID(payload)

	var contact *models.Contact
	err = store.WithRetry(retryAttempts, retryBackoff, func() error {
		var upsertErr error
		var name *string
		if senderName != "" {
			name = &senderName
		}
		contact, upsertErr = h.Contacts.Upsert(tenantID, sender, name, true)
		return upsertErr
	})
	if err != nil {
		slog.Error("contact upsert failed",
			"request_id", requestID, "tenant", tenantID, "phone", sender, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persistence failure"})
		return
	}

	msg := &models.Message{
		ContactID: contact.ID,
		TenantID:  tenantID,
		Direction: models.DirectionInbound,
		Body:      &body,
		Status:    models.StatusReceived,
	}
	if providerMessageID != "" {
		msg.ProviderMessageID = &providerMessageID
	}

	var inserted bool
	err = store.WithRetry(retryAttempts, retryBackoff, func() error {
		var insertErr error
		inserted, insertErr = h.Messages.InsertDeduped(msg)
		return insertErr
	})
	if err != nil {
		slog.Error("message insert failed",
			"request_id", requestID, "tenant", tenantID, "phone", sender,
			"provider_message_id", providerMessageID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persistence failure"})
		return
	}

	if !inserted {
		// At-least-once delivery: same provider event seen before.
		c.JSON(http.StatusOK, gin.H{"status": "duplicate", "deduped": true})
		return
	}

	if err := h.Contacts.Touch(tenantID, contact.ID, time.Now()); err != nil {
		slog.Error("contact touch failed",
			"request_id", requestID, "tenant", tenantID, "contact_id", contact.ID, "error", err)
	}

	if h.Hub != nil {
		h.Hub.NotifyMessage(tenantID, *msg)
	}
	if h.Events != nil {
		if err := h.Events.Publish(c.Request.Context(), events.KeyMessageReceived, tenantID, msg); err != nil {
			slog.Error("event publish failed", "request_id", requestID, "tenant", tenantID, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "received", "message_id": msg.ID})
}

// verifySecret checks the shared secret against the header locations the
// provider has been observed to use, in constant time.
func (h *Handler) verifySecret(c *gin.Context) bool {
	secret := []byte(h.Config.WebhookSecret)
	for _, candidate := range secretCandidates(c) {
		if candidate == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(candidate), secret) == 1 {
			return true
		}
	}
	return false
}

func secretCandidates(c *gin.Context) []string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		auth = auth[len("bearer "):]
	}
	return []string{
		auth,
		c.GetHeader("X-Webhook-Token"),
		c.GetHeader("X-Api-Key"),
		c.GetHeader("apikey"),
	}
}
