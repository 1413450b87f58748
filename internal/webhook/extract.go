package webhook

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"outreach-gateway/internal/phone"
)

// The provider's payload structure varies by event type and is not strictly
// schematized, so extraction runs ordered lists of extractor functions over
// the decoded JSON instead of binding to a fixed shape.

var ErrPhoneNotFound = errors.New("no phone number found in payload")

type extractor func(payload map[string]interface{}) string

// Sender phone candidates, highest priority first.
var phoneExtractors = []extractor{
	stringField("phone"),
	stringField("from"),
	stringField("sender"),
	chatIDField("chatId"),
	chatIDField("chat_id"),
	nestedStringField("message", "phone"),
	nestedStringField("message", "from"),
	nestedStringField("message", "sender"),
}

// ExtractPhone returns the first candidate that looks like a phone number
// (10-13 digits after stripping), normalized to canonical form.
func ExtractPhone(payload map[string]interface{}) (string, error) {
	for _, extract := range phoneExtractors {
		candidate := extract(payload)
		if candidate == "" {
			continue
		}
		if !phone.PlausibleLength(phone.Digits(candidate)) {
			continue
		}
		normalized, err := phone.Normalize(candidate)
		if err != nil {
			continue
		}
		return normalized, nil
	}
	return "", ErrPhoneNotFound
}

// ExtractSenderName picks up the display name the provider attaches to the
// sender, when any.
func ExtractSenderName(payload map[string]interface{}) string {
	for _, extract := range []extractor{
		stringField("senderName"),
		stringField("pushName"),
		stringField("notifyName"),
		nestedStringField("message", "senderName"),
	} {
		if name := extract(payload); name != "" {
			return name
		}
	}
	return ""
}

// ExtractMessageID returns the provider-assigned message id, when present.
func ExtractMessageID(payload map[string]interface{}) string {
	for _, extract := range []extractor{
		stringField("messageId"),
		stringField("message_id"),
		nestedStringField("message", "id"),
		nestedStringField("key", "id"),
		stringField("id"),
	} {
		if id := extract(payload); id != "" {
			return id
		}
	}
	return ""
}

const maxTextDepth = 3

var textKeys = []string{"message", "text", "body", "caption", "conversation"}

var embeddedTextPattern = regexp.MustCompile(`"(?:message|text)"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// ExtractBody finds the message text. The provider nests it in different
// places depending on message type, so candidate locations are tried in
// priority order and each is searched recursively for text-bearing keys up
// to a bounded depth. An empty result means an empty-body notification
// (e.g. a delivery receipt), which callers acknowledge without persisting.
func ExtractBody(payload map[string]interface{}) string {
	candidates := []interface{}{
		dig(payload, "message", "body"),
		dig(payload, "message", "text"),
		payload["body"],
		payload["text"],
		payload["message"],
		payload,
	}

	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		if text := searchText(candidate, maxTextDepth); text != "" {
			return unwrapBody(text)
		}
	}
	return ""
}

// searchText walks maps by the known text-bearing keys, depth-bounded.
func searchText(v interface{}, depth int) string {
	if depth <= 0 {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case map[string]interface{}:
		for _, key := range textKeys {
			if inner, ok := val[key]; ok {
				if text := searchText(inner, depth-1); text != "" {
					return text
				}
			}
		}
	}
	return ""
}

// unwrapBody handles text that is itself a JSON-encoded object carrying a
// message/text field, and falls back to pattern extraction for malformed
// nesting where the JSON does not parse cleanly.
func unwrapBody(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		var inner map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &inner); err == nil {
			for _, key := range []string{"message", "text"} {
				if s, ok := inner[key].(string); ok && strings.TrimSpace(s) != "" {
					return unescape(strings.TrimSpace(s))
				}
			}
		}
		if m := embeddedTextPattern.FindStringSubmatch(trimmed); m != nil {
			return unescape(m[1])
		}
	}
	return unescape(trimmed)
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\"`, `"`)
	return s
}

func stringField(key string) extractor {
	return func(payload map[string]interface{}) string {
		if s, ok := payload[key].(string); ok {
			return strings.TrimSpace(s)
		}
		return ""
	}
}

// chatIDField handles chat-id style values like "5511999998888@c.us".
func chatIDField(key string) extractor {
	return func(payload map[string]interface{}) string {
		s, ok := payload[key].(string)
		if !ok {
			return ""
		}
		if at := strings.IndexByte(s, '@'); at >= 0 {
			s = s[:at]
		}
		return strings.TrimSpace(s)
	}
}

func nestedStringField(outer, inner string) extractor {
	return func(payload map[string]interface{}) string {
		if s, ok := dig(payload, outer, inner).(string); ok {
			return strings.TrimSpace(s)
		}
		return ""
	}
}

func dig(payload map[string]interface{}, keys ...string) interface{} {
	var current interface{} = payload
	for _, key := range keys {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}
