package api

import (
	"log/slog"
	"net/http"
	"time"

	"outreach-gateway/internal/events"
	"outreach-gateway/internal/models"
	"outreach-gateway/internal/phone"
	"outreach-gateway/internal/store"
	"outreach-gateway/internal/tenant"
	"outreach-gateway/internal/whatsapp"
	"outreach-gateway/internal/ws"

	"github.com/gin-gonic/gin"
)

// Per-recipient dispatch outcomes, reported in-band.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

type DispatchHandler struct {
	Client   whatsapp.Sender
	Contacts store.ContactStore
	Messages store.MessageStore
	Hub      *ws.Hub
	Events   events.Publisher
}

func NewDispatchHandler(client whatsapp.Sender, contacts store.ContactStore, messages store.MessageStore, hub *ws.Hub, publisher events.Publisher) *DispatchHandler {
	return &DispatchHandler{
		Client:   client,
		Contacts: contacts,
		Messages: messages,
		Hub:      hub,
		Events:   publisher,
	}
}

type Attachment struct {
	Data     string `json:"data"` // base64
	MimeType string `json:"mime_type"`
	Filename string `json:"filename"`
}

type SendRequest struct {
	Phones     []string    `json:"phones"`
	Message    string      `json:"message"`
	SenderName string      `json:"sender_name"`
	Template   string      `json:"template"`
	Attachment *Attachment `json:"attachment"`
}

type RecipientResult struct {
	Phone     string `json:"phone"`
	Status    string `json:"status"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Send dispatches the message to each recipient independently. Recipients
// are processed in sequence so the (tenant, phone) contact upsert never
// races itself; batch sizes here are tens, not thousands. One recipient's
// failure is reported in its result entry and never aborts the rest.
func (h *DispatchHandler) Send(c *gin.Context) {
	tenantID, ok := tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "tenant not resolved"})
		return
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Phones) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipient list is required"})
		return
	}
	if req.Message == "" && req.Template == "" && req.Attachment == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message body is required"})
		return
	}

	requestID := c.GetString("requestID")
	results := make([]RecipientResult, 0, len(req.Phones))
	for _, raw := range req.Phones {
		results = append(results, h.dispatchOne(c, tenantID, requestID, raw, &req))
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *DispatchHandler) dispatchOne(c *gin.Context, tenantID, requestID, rawPhone string, req *SendRequest) RecipientResult {
	to, err := phone.Normalize(rawPhone)
	if err != nil {
		return RecipientResult{Phone: rawPhone, Status: ResultSkipped, Error: "invalid phone number"}
	}

	contact, err := h.Contacts.Upsert(tenantID, to, nil, true)
	if err != nil {
		slog.Error("contact upsert failed",
			"request_id", requestID, "tenant", tenantID, "phone", to, "error", err)
		return RecipientResult{Phone: to, Status: ResultFailed, Error: err.Error()}
	}

	resp, err := h.send(to, req)
	if err != nil {
		slog.Error("provider send failed",
			"request_id", requestID, "tenant", tenantID, "phone", to, "error", err)
		return RecipientResult{Phone: to, Status: ResultFailed, Error: err.Error()}
	}

	msg := &models.Message{
		ContactID: contact.ID,
		TenantID:  tenantID,
		Direction: models.DirectionOutbound,
		Status:    models.StatusSent,
	}
	if req.Message != "" {
		body := req.Message
		msg.Body = &body
	}
	if req.Attachment != nil {
		msg.MediaMimeType = req.Attachment.MimeType
		msg.MediaFilename = req.Attachment.Filename
	}
	if resp.MessageID != "" {
		id := resp.MessageID
		msg.ProviderMessageID = &id
	}

	if err := h.Messages.Insert(msg); err != nil {
		slog.Error("outbound message insert failed",
			"request_id", requestID, "tenant", tenantID, "phone", to, "error", err)
		return RecipientResult{Phone: to, Status: ResultFailed, MessageID: resp.MessageID, Error: err.Error()}
	}

	if err := h.Contacts.Touch(tenantID, contact.ID, time.Now()); err != nil {
		slog.Error("contact touch failed",
			"request_id", requestID, "tenant", tenantID, "contact_id", contact.ID, "error", err)
	}

	if h.Hub != nil {
		h.Hub.NotifyMessage(tenantID, *msg)
	}
	if h.Events != nil {
		if err := h.Events.Publish(c.Request.Context(), events.KeyMessageSent, tenantID, msg); err != nil {
			slog.Error("event publish failed", "request_id", requestID, "tenant", tenantID, "error", err)
		}
	}

	return RecipientResult{Phone: to, Status: ResultSent, MessageID: resp.MessageID}
}

func (h *DispatchHandler) send(to string, req *SendRequest) (*whatsapp.SendResponse, error) {
	switch {
	case req.Attachment != nil:
		return h.Client.SendFile(to, req.Attachment.Data, req.Attachment.MimeType, req.Attachment.Filename, req.Message)
	case req.Template != "":
		return h.Client.SendTemplate(to, req.Template)
	default:
		return h.Client.SendText(to, req.Message, req.SenderName)
	}
}
