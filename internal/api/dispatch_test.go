package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"outreach-gateway/internal/events"
	"outreach-gateway/internal/models"
	"outreach-gateway/internal/store"
	"outreach-gateway/internal/whatsapp"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// mockSender fails for the configured recipients and records every call.
type mockSender struct {
	failFor map[string]bool
	calls   []string
}

func (m *mockSender) SendText(to, body, senderName string) (*whatsapp.SendResponse, error) {
	m.calls = append(m.calls, to)
	if m.failFor[to] {
		return nil, &whatsapp.ProviderError{StatusCode: 500, Body: "provider down"}
	}
	return &whatsapp.SendResponse{MessageID: "mid-" + to, Status: "sent"}, nil
}

func (m *mockSender) SendFile(to, data, mimeType, filename, caption string) (*whatsapp.SendResponse, error) {
	return m.SendText(to, caption, "")
}

func (m *mockSender) SendTemplate(to, templateName string) (*whatsapp.SendResponse, error) {
	return m.SendText(to, templateName, "")
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Contact{}, &models.Message{}); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return db
}

func setupDispatch(t *testing.T, sender whatsapp.Sender) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	handler := NewDispatchHandler(sender,
		store.NewContactStore(db),
		store.NewMessageStore(db),
		nil,
		events.NewNoop(slog.Default()))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("tenantID", "t1")
		c.Next()
	})
	r.POST("/api/send", handler.Send)
	return r, db
}

func postSend(r *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/send", bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type sendResponse struct {
	Results []RecipientResult `json:"results"`
}

func TestSendPartialFailure(t *testing.T) {
	sender := &mockSender{failFor: map[string]bool{"5511911111111": true}}
	r, db := setupDispatch(t, sender)

	w := postSend(r, SendRequest{
		Phones:  []string{"11900000000", "11911111111", "11922222222"},
		Message: "promo",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with in-band failures", w.Code)
	}

	var resp sendResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("result count = %d, want 3", len(resp.Results))
	}

	wantStatuses := []string{ResultSent, ResultFailed, ResultSent}
	for i, want := range wantStatuses {
		if resp.Results[i].Status != want {
			t.Errorf("result[%d].Status = %q, want %q", i, resp.Results[i].Status, want)
		}
	}
	if resp.Results[1].Error == "" {
		t.Error("failed result carries no error string")
	}

	// Two outbound rows, not three.
	var count int64
	db.Model(&models.Message{}).Count(&count)
	if count != 2 {
		t.Errorf("message count = %d, want 2", count)
	}

	// All three contacts exist; the failed recipient still got its upsert.
	db.Model(&models.Contact{}).Count(&count)
	if count != 3 {
		t.Errorf("contact count = %d, want 3", count)
	}
}

func TestSendRecordsProviderMessageID(t *testing.T) {
	sender := &mockSender{}
	r, db := setupDispatch(t, sender)

	w := postSend(r, SendRequest{Phones: []string{"11900000000"}, Message: "hi"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var msg models.Message
	if err := db.First(&msg).Error; err != nil {
		t.Fatalf("message not persisted: %v", err)
	}
	if msg.Direction != models.DirectionOutbound || msg.Status != models.StatusSent {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.ProviderMessageID == nil || *msg.ProviderMessageID != "mid-5511900000000" {
		t.Errorf("provider message id = %v", msg.ProviderMessageID)
	}

	var contact models.Contact
	if err := db.First(&contact).Error; err != nil {
		t.Fatalf("contact not created: %v", err)
	}
	if contact.LastMessageAt == nil {
		t.Error("last activity not refreshed")
	}
}

func TestSendSkipsInvalidPhones(t *testing.T) {
	sender := &mockSender{}
	r, db := setupDispatch(t, sender)

	w := postSend(r, SendRequest{Phones: []string{"garbage", "11900000000"}, Message: "hi"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp sendResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Results[0].Status != ResultSkipped {
		t.Errorf("result[0].Status = %q, want skipped", resp.Results[0].Status)
	}
	if resp.Results[1].Status != ResultSent {
		t.Errorf("result[1].Status = %q, want sent", resp.Results[1].Status)
	}

	if len(sender.calls) != 1 {
		t.Errorf("provider called %d times, want 1 (invalid numbers dropped before dispatch)", len(sender.calls))
	}

	var count int64
	db.Model(&models.Message{}).Count(&count)
	if count != 1 {
		t.Errorf("message count = %d, want 1", count)
	}
}

func TestSendValidation(t *testing.T) {
	sender := &mockSender{}
	r, _ := setupDispatch(t, sender)

	if w := postSend(r, SendRequest{Message: "hi"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing phones: status = %d, want 400", w.Code)
	}
	if w := postSend(r, SendRequest{Phones: []string{"11900000000"}}); w.Code != http.StatusBadRequest {
		t.Errorf("missing body: status = %d, want 400", w.Code)
	}
}

func TestSendTemplate(t *testing.T) {
	sender := &mockSender{}
	r, db := setupDispatch(t, sender)

	w := postSend(r, SendRequest{Phones: []string{"11900000000"}, Template: "welcome"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var count int64
	db.Model(&models.Message{}).Count(&count)
	if count != 1 {
		t.Errorf("message count = %d, want 1", count)
	}
}
