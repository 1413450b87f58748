package api

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"outreach-gateway/internal/phone"
	"outreach-gateway/internal/store"
	"outreach-gateway/internal/tenant"
	"outreach-gateway/internal/whatsapp"

	"github.com/gin-gonic/gin"
)

// exportLimit caps a CSV export well above any realistic tenant size.
const exportLimit = 100000

type ContactHandler struct {
	Contacts store.ContactStore
	Client   *whatsapp.Client
}

func NewContactHandler(contacts store.ContactStore, client *whatsapp.Client) *ContactHandler {
	return &ContactHandler{Contacts: contacts, Client: client}
}

type CreateContactRequest struct {
	Phone string `json:"phone" binding:"required"`
	Name  string `json:"name"`
}

func (h *ContactHandler) CreateContact(c *gin.Context) {
	tenantID, ok := tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "tenant not resolved"})
		return
	}

	var req CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	normalized, err := phone.Normalize(req.Phone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return
	}

	var name *string
	if req.Name != "" {
		name = &req.Name
	}
	contact, err := h.Contacts.Upsert(tenantID, normalized, name, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create contact"})
		return
	}

	c.JSON(http.StatusCreated, contact)
}

type UpdateContactRequest struct {
	Name string `json:"name"`
}

func (h *ContactHandler) UpdateContact(c *gin.Context) {
	tenantID, ok := tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "tenant not resolved"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contact id"})
		return
	}

	var req UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := h.Contacts.Get(tenantID, uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if contact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
		return
	}

	var name *string
	if req.Name != "" {
		name = &req.Name
	}
	if _, err := h.Contacts.Upsert(tenantID, contact.Phone, name, contact.HasWhatsApp); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update contact"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "contact updated"})
}

func (h *ContactHandler) DeleteContact(c *gin.Context) {
	tenantID, ok := tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "tenant not resolved"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contact id"})
		return
	}

	deleted, err := h.Contacts.Delete(tenantID, uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete contact"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "contact deleted"})
}

func (h *ContactHandler) ExportContacts(c *gin.Context) {
	tenantID, ok := tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "tenant not resolved"})
		return
	}

	contacts, err := h.Contacts.List(tenantID, exportLimit, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=contacts.csv")

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"Phone", "Name", "WhatsApp", "Last Activity"})
	for _, contact := range contacts {
		name := ""
		if contact.Name != nil {
			name = *contact.Name
		}
		lastActivity := ""
		if contact.LastMessageAt != nil {
			lastActivity = contact.LastMessageAt.Format(time.RFC3339)
		}
		_ = w.Write([]string{contact.Phone, name, strconv.FormatBool(contact.HasWhatsApp), lastActivity})
	}
	w.Flush()
}

type CheckNumbersRequest struct {
	Phones []string `json:"phones" binding:"required"`
}

// CheckNumbers runs the provider's batch existence check. Candidates must
// pass the strict normalizer (10-11 national digits); the rest are reported
// as invalid without querying the provider.
func (h *ContactHandler) CheckNumbers(c *gin.Context) {
	tenantID, ok := tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "tenant not resolved"})
		return
	}

	var req CheckNumbersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	valid := make([]string, 0, len(req.Phones))
	invalid := []string{}
	for _, raw := range req.Phones {
		normalized, err := phone.NormalizeStrict(raw)
		if err != nil {
			invalid = append(invalid, raw)
			continue
		}
		valid = append(valid, normalized)
	}

	statuses := []whatsapp.NumberStatus{}
	if len(valid) > 0 {
		var err error
		statuses, err = h.Client.CheckNumbers(valid)
		if err != nil {
			slog.Error("batch existence check failed",
				"request_id", c.GetString("requestID"), "tenant", tenantID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"results": statuses, "invalid": invalid})
}

// GetProfile fetches the provider's metadata for a number and persists it
// onto the contact when one exists.
func (h *ContactHandler) GetProfile(c *gin.Context) {
	tenantID, ok := tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "tenant not resolved"})
		return
	}

	normalized, err := phone.Normalize(c.Param("phone"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return
	}

	profile, err := h.Client.GetProfile(normalized)
	if err != nil {
		slog.Error("profile lookup failed",
			"request_id", c.GetString("requestID"), "tenant", tenantID, "phone", normalized, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if err := h.Contacts.UpdateProfile(tenantID, normalized, profile.PictureURL, profile.About, profile.Presence); err != nil {
		slog.Error("profile persist failed",
			"request_id", c.GetString("requestID"), "tenant", tenantID, "phone", normalized, "error", err)
	}

	c.JSON(http.StatusOK, profile)
}
