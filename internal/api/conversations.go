package api

import (
	"net/http"
	"strconv"
	"time"

	"outreach-gateway/internal/store"
	"outreach-gateway/internal/tenant"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type ConversationHandler struct {
	Contacts store.ContactStore
	Messages store.MessageStore
}

func NewConversationHandler(contacts store.ContactStore, messages store.MessageStore) *ConversationHandler {
	return &ConversationHandler{Contacts: contacts, Messages: messages}
}

// ListConversations returns the tenant's contacts ordered by most recent
// activity, paginated by limit/offset.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	tenantID, ok := tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "tenant not resolved"})
		return
	}

	limit := intQuery(c, "limit", defaultPageSize)
	offset := intQuery(c, "offset", 0)

	contacts, err := h.Contacts.List(tenantID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, contacts)
}

// ListMessages returns one conversation's messages, newest first, paginated
// by limit plus an optional before-timestamp cursor (RFC 3339).
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	tenantID, ok := tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "tenant not resolved"})
		return
	}

	contactID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contact id"})
		return
	}

	contact, err := h.Contacts.Get(tenantID, uint(contactID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if contact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	limit := intQuery(c, "limit", defaultPageSize)
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "before must be RFC 3339"})
			return
		}
		before = &t
	}

	messages, err := h.Messages.List(tenantID, uint(contactID), limit, before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Opening a conversation clears its unread flag.
	_ = h.Contacts.SetUnread(tenantID, uint(contactID), false)

	c.JSON(http.StatusOK, messages)
}

// ClearConversation removes every message in the conversation; the contact
// itself survives.
func (h *ConversationHandler) ClearConversation(c *gin.Context) {
	tenantID, ok := tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "tenant not resolved"})
		return
	}

	contactID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contact id"})
		return
	}

	removed, err := h.Messages.ClearConversation(tenantID, uint(contactID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "conversation cleared", "removed": removed})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	if key == "limit" && (v == 0 || v > maxPageSize) {
		return fallback
	}
	return v
}
