// Package whatsapp is the HTTP client for the messaging provider: sending,
// profile metadata lookup and the batch number-existence check.
package whatsapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"outreach-gateway/internal/config"
)

// Sender is the part of the provider surface the dispatcher needs; tests
// substitute a mock.
type Sender interface {
	SendText(to, body, senderName string) (*SendResponse, error)
	SendFile(to, base64Data, mimeType, filename, caption string) (*SendResponse, error)
	SendTemplate(to, templateName string) (*SendResponse, error)
}

type Client struct {
	Config *config.Config
	http   *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{Config: cfg, http: &http.Client{}}
}

// ProviderError wraps a non-2xx or malformed provider response.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error: status %d - %s", e.StatusCode, e.Body)
}

type SendResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

type NumberStatus struct {
	Phone  string `json:"phone"`
	Exists bool   `json:"exists"`
}

type Profile struct {
	PictureURL string `json:"pictureUrl"`
	About      string `json:"about"`
	Presence   string `json:"presence"`
	Name       string `json:"name"`
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("%s/instances/%s%s", c.Config.WhatsAppBaseURL, c.Config.WhatsAppInstanceID, path)
}

func (c *Client) sendRequest(method, url string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.Config.WhatsAppToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return respBody, &ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

func (c *Client) SendText(to, body, senderName string) (*SendResponse, error) {
	payload := map[string]interface{}{
		"phone":   to,
		"message": body,
	}
	if senderName != "" {
		payload["senderName"] = senderName
	}

	resp, err := c.sendRequest("POST", c.url("/send-text"), payload)
	if err != nil {
		return nil, err
	}
	return parseSendResponse(resp)
}

func (c *Client) SendFile(to, base64Data, mimeType, filename, caption string) (*SendResponse, error) {
	payload := map[string]interface{}{
		"phone":    to,
		"file":     base64Data,
		"mimeType": mimeType,
		"filename": filename,
	}
	if caption != "" {
		payload["caption"] = caption
	}

	resp, err := c.sendRequest("POST", c.url("/send-file"), payload)
	if err != nil {
		return nil, err
	}
	return parseSendResponse(resp)
}

func (c *Client) SendTemplate(to, templateName string) (*SendResponse, error) {
	payload := map[string]interface{}{
		"phone":    to,
		"template": templateName,
	}

	resp, err := c.sendRequest("POST", c.url("/send-template"), payload)
	if err != nil {
		return nil, err
	}
	return parseSendResponse(resp)
}

// CheckNumbers asks the provider which of the given canonical numbers have
// a WhatsApp account. Callers are expected to pre-validate the list with the
// strict normalizer.
func (c *Client) CheckNumbers(phones []string) ([]NumberStatus, error) {
	resp, err := c.sendRequest("POST", c.url("/phone-exists-batch"), map[string]interface{}{
		"phones": phones,
	})
	if err != nil {
		return nil, err
	}

	var statuses []NumberStatus
	if err := json.Unmarshal(resp, &statuses); err != nil {
		return nil, &ProviderError{StatusCode: http.StatusOK, Body: string(resp)}
	}
	return statuses, nil
}

func (c *Client) GetProfile(phoneNumber string) (*Profile, error) {
	resp, err := c.sendRequest("GET", c.url("/contacts/"+phoneNumber), nil)
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := json.Unmarshal(resp, &profile); err != nil {
		return nil, &ProviderError{StatusCode: http.StatusOK, Body: string(resp)}
	}
	return &profile, nil
}

func parseSendResponse(resp []byte) (*SendResponse, error) {
	var out SendResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, &ProviderError{StatusCode: http.StatusOK, Body: string(resp)}
	}
	return &out, nil
}
