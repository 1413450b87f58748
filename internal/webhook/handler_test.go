package webhook

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"outreach-gateway/internal/config"
	"outreach-gateway/internal/events"
	"outreach-gateway/internal/models"
	"outreach-gateway/internal/store"
	"outreach-gateway/internal/tenant"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "s3cret-token"

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

func setupRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	handler := NewHandler(cfg,
		store.NewContactStore(db),
		store.NewMessageStore(db),
		nil,
		events.NewNoop(slog.Default()))

	resolver := tenant.NewResolver([]tenant.Mapping{
		{Host: "inbox.acme.com", Prefixes: []string{"/"}, OwnerID: "t1"},
	}, "", true)

	r := gin.New()
	grp := r.Group("/webhook")
	grp.Use(tenant.Middleware(resolver, false))
	grp.GET("", handler.VerifyWebhook)
	grp.POST("", handler.HandleInbound)
	return r, db
}

func postWebhook(r *gin.Engine, host, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	req.Host = host
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Webhook-Token", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testConfig() *config.Config {
	return &config.Config{WebhookSecret: testSecret}
}

func TestInboundMessagePersisted(t *testing.T) {
	r, db := setupRouter(t, testConfig())

	payload := `{"messageId": "wamid.1", "from": "11987654321", "pushName": "Maria", "message": {"body": "ola"}}`
	w := postWebhook(r, "inbox.acme.com", testSecret, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var msg models.Message
	if err := db.First(&msg).Error; err != nil {
		t.Fatalf("message not persisted: %v", err)
	}
	if msg.TenantID != "t1" || msg.Direction != models.DirectionInbound {
		t.Errorf("unexpected message row: %+v", msg)
	}
	if msg.Body == nil || *msg.Body != "ola" {
		t.Errorf("body = %v, want ola", msg.Body)
	}

	var contact models.Contact
	if err := db.First(&contact).Error; err != nil {
		t.Fatalf("contact not created: %v", err)
	}
	if contact.Phone != "5511987654321" || contact.TenantID != "t1" {
		t.Errorf("unexpected contact: %+v", contact)
	}
	if contact.LastMessageAt == nil {
		t.Error("last activity not set")
	}
	if contact.Name == nil || *contact.Name != "Maria" {
		t.Errorf("sender name not saved: %v", contact.Name)
	}
}

func TestInboundReplayDeduplicated(t *testing.T) {
	r, db := setupRouter(t, testConfig())

	payload := `{"messageId": "wamid.dup", "from": "11987654321", "message": {"body": "ola"}}`
	if w := postWebhook(r, "inbox.acme.com", testSecret, payload); w.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d", w.Code)
	}
	w := postWebhook(r, "inbox.acme.com", testSecret, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("replay status = %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding replay response: %v", err)
	}
	if resp["deduped"] != true {
		t.Errorf("replay response missing dedup indicator: %v", resp)
	}

	var count int64
	db.Model(&models.Message{}).Count(&count)
	if count != 1 {
		t.Errorf("message count = %d, want 1", count)
	}
}

func TestInboundEmptyBodyIgnored(t *testing.T) {
	r, db := setupRouter(t, testConfig())

	payload := `{"messageId": "wamid.2", "from": "11987654321", "status": "DELIVERY_ACK"}`
	w := postWebhook(r, "inbox.acme.com", testSecret, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ignored") {
		t.Errorf("response = %s, want ignored status", w.Body.String())
	}

	var count int64
	db.Model(&models.Message{}).Count(&count)
	if count != 0 {
		t.Errorf("message count = %d, want 0", count)
	}
}

func TestInboundNoPhoneRejected(t *testing.T) {
	r, _ := setupRouter(t, testConfig())

	w := postWebhook(r, "inbox.acme.com", testSecret, `{"message": {"body": "ola"}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestInboundBadTokenFailsClosed(t *testing.T) {
	r, db := setupRouter(t, testConfig())

	payload := `{"from": "11987654321", "message": {"body": "ola"}}`
	w := postWebhook(r, "inbox.acme.com", "wrong-token", payload)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	var count int64
	db.Model(&models.Message{}).Count(&count)
	if count != 0 {
		t.Errorf("message persisted despite bad token")
	}
}

func TestInboundBadTokenAllowedWhenOptedIn(t *testing.T) {
	cfg := testConfig()
	cfg.WebhookAllowUnverified = true
	r, db := setupRouter(t, cfg)

	payload := `{"from": "11987654321", "message": {"body": "ola"}}`
	w := postWebhook(r, "inbox.acme.com", "wrong-token", payload)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with opt-in", w.Code)
	}

	var count int64
	db.Model(&models.Message{}).Count(&count)
	if count != 1 {
		t.Errorf("message count = %d, want 1", count)
	}
}

func TestInboundSecretInAlternateHeaders(t *testing.T) {
	r, _ := setupRouter(t, testConfig())

	for _, header := range []string{"Authorization", "X-Api-Key", "apikey"} {
		req := httptest.NewRequest(http.MethodPost, "/webhook",
			bytes.NewBufferString(`{"from": "11987654321", "body": "hi"}`))
		req.Host = "inbox.acme.com"
		req.Header.Set("Content-Type", "application/json")
		if header == "Authorization" {
			req.Header.Set(header, "Bearer "+testSecret)
		} else {
			req.Header.Set(header, testSecret)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("header %s: status = %d, want 200", header, w.Code)
		}
	}
}

func TestInboundUnmappedHostRejected(t *testing.T) {
	r, db := setupRouter(t, testConfig())

	payload := `{"from": "11987654321", "message": {"body": "ola"}}`
	w := postWebhook(r, "evil.example.com", testSecret, payload)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}

	var count int64
	db.Model(&models.Message{}).Count(&count)
	if count != 0 {
		t.Error("message persisted for unmapped host")
	}
}

func TestWebhookLiveness(t *testing.T) {
	r, _ := setupRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	req.Host = "inbox.acme.com"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("liveness status = %d, want 200", w.Code)
	}
}

func TestWebhookChallengeEcho(t *testing.T) {
	r, _ := setupRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.challenge=12345&hub.verify_token="+testSecret, nil)
	req.Host = "inbox.acme.com"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "12345" {
		t.Errorf("challenge echo = %d %q", w.Code, w.Body.String())
	}
}
