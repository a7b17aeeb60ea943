package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrConfigInvalid    = errors.New("webhook config invalid")
	ErrPayloadInvalid   = errors.New("webhook payload invalid")
	ErrSignatureMissing = errors.New("webhook signature missing")
	ErrSignatureInvalid = errors.New("webhook signature invalid")
)

const (
	// SignatureHeader 支付平台回调的签名头
	SignatureHeader = "X-Webhook-Signature"

	defaultToleranceSeconds = 300
)

// Config Webhook 校验配置。
type Config struct {
	Secret           string
	ToleranceSeconds int64
}

// Event 解析后的支付事件。
type Event struct {
	ID             string
	Type           string
	CustomerID     string
	ReferralID     string
	Code           string
	UserID         string
	ChargeID       string
	SubscriptionID string
	ProductID      string
	AmountCents    int64
	Guest          bool
	Raw            map[string]interface{}
}

// VerifyAndParse 校验签名并解析支付事件。
// 签名头格式 t=<unix>,v1=<hex>，签名串为 HMAC-SHA256(timestamp + "." + body)。
func VerifyAndParse(cfg *Config, headers map[string]string, body []byte, now time.Time) (*Event, error) {
	if err := VerifySignature(cfg, headers, body, now); err != nil {
		return nil, err
	}
	return ParseEvent(body)
}

// VerifySignature 只做签名校验，不解析负载。
func VerifySignature(cfg *Config, headers map[string]string, body []byte, now time.Time) error {
	if cfg == nil || strings.TrimSpace(cfg.Secret) == "" {
		return fmt.Errorf("%w: secret is required", ErrConfigInvalid)
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: body is empty", ErrPayloadInvalid)
	}
	if now.IsZero() {
		now = time.Now()
	}

	signatureHeader := getHeaderValue(headers, SignatureHeader)
	if strings.TrimSpace(signatureHeader) == "" {
		return ErrSignatureMissing
	}
	timestamp, signatures, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return err
	}

	tolerance := cfg.ToleranceSeconds
	if tolerance <= 0 {
		tolerance = defaultToleranceSeconds
	}
	if math.Abs(float64(now.Unix()-timestamp)) > float64(tolerance) {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrSignatureInvalid)
	}

	expected := computeSignature(cfg.Secret, timestamp, body)
	for _, sig := range signatures {
		if hmac.Equal([]byte(strings.ToLower(sig)), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("%w: verify failed", ErrSignatureInvalid)
}

// ParseEvent 解析事件负载。
// 事件体格式：{"id": ..., "type": ..., "data": {"object": {...}}}
func ParseEvent(body []byte) (*Event, error) {
	eventRaw, err := decodeRawMap(body)
	if err != nil {
		return nil, err
	}
	eventType := strings.TrimSpace(readString(eventRaw, "type"))
	if eventType == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrPayloadInvalid)
	}
	eventID := strings.TrimSpace(readString(eventRaw, "id"))
	if eventID == "" {
		return nil, fmt.Errorf("%w: missing event id", ErrPayloadInvalid)
	}
	dataRaw := readMap(eventRaw, "data")
	if dataRaw == nil {
		return nil, fmt.Errorf("%w: missing data object", ErrPayloadInvalid)
	}
	objectRaw := readMap(dataRaw, "object")
	if objectRaw == nil {
		return nil, fmt.Errorf("%w: missing event object", ErrPayloadInvalid)
	}

	event := &Event{
		ID:             eventID,
		Type:           eventType,
		CustomerID:     strings.TrimSpace(readString(objectRaw, "customer")),
		ReferralID:     strings.TrimSpace(readString(objectRaw, "referral_id")),
		Code:           strings.TrimSpace(readString(objectRaw, "code")),
		UserID:         strings.TrimSpace(readString(objectRaw, "user_id")),
		ChargeID:       strings.TrimSpace(readString(objectRaw, "charge")),
		SubscriptionID: strings.TrimSpace(readString(objectRaw, "subscription")),
		ProductID:      strings.TrimSpace(readString(objectRaw, "product_id")),
		AmountCents:    readInt64(objectRaw, "amount"),
		Guest:          readBool(objectRaw, "guest"),
		Raw:            eventRaw,
	}
	return event, nil
}

// ComputeSignatureHeader 生成签名头，测试与事件重放工具使用。
func ComputeSignatureHeader(secret string, timestamp int64, body []byte) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, computeSignature(secret, timestamp, body))
}

func computeSignature(secret string, timestamp int64, body []byte) string {
	payload := strconv.FormatInt(timestamp, 10) + "." + string(body)
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write([]byte(payload))
	return strings.ToLower(hex.EncodeToString(h.Sum(nil)))
}

func parseSignatureHeader(signatureHeader string) (int64, []string, error) {
	timestamp := int64(0)
	signatures := make([]string, 0)
	for _, part := range strings.Split(signatureHeader, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil || parsed <= 0 {
				return 0, nil, fmt.Errorf("%w: invalid timestamp", ErrSignatureInvalid)
			}
			timestamp = parsed
		case "v1":
			if value != "" {
				signatures = append(signatures, strings.ToLower(value))
			}
		}
	}
	if timestamp <= 0 {
		return 0, nil, fmt.Errorf("%w: timestamp is missing", ErrSignatureInvalid)
	}
	if len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: v1 signature is missing", ErrSignatureInvalid)
	}
	return timestamp, signatures, nil
}

func getHeaderValue(headers map[string]string, key string) string {
	if len(headers) == 0 || strings.TrimSpace(key) == "" {
		return ""
	}
	for h, value := range headers {
		if strings.EqualFold(strings.TrimSpace(h), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func decodeRawMap(body []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode body failed", ErrPayloadInvalid)
	}
	return raw, nil
}

func readString(raw map[string]interface{}, key string) string {
	if raw == nil || strings.TrimSpace(key) == "" {
		return ""
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case float64:
		// 保留小数部分，避免把 42.5 截断成 42
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int64:
		return strings.TrimSpace(strconv.FormatInt(typed, 10))
	case int:
		return strings.TrimSpace(strconv.Itoa(typed))
	default:
		return ""
	}
}

func readMap(raw map[string]interface{}, key string) map[string]interface{} {
	if raw == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return nil
	}
	mapped, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	return mapped
}

func readInt64(raw map[string]interface{}, key string) int64 {
	if raw == nil || strings.TrimSpace(key) == "" {
		return 0
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return 0
	}
	switch typed := value.(type) {
	case int64:
		return typed
	case int:
		return int64(typed)
	case float64:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err == nil {
			return parsed
		}
		floatVal, err := typed.Float64()
		if err != nil {
			return 0
		}
		return int64(floatVal)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func readBool(raw map[string]interface{}, key string) bool {
	if raw == nil || strings.TrimSpace(key) == "" {
		return false
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return false
	}
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		return strings.EqualFold(strings.TrimSpace(typed), "true")
	default:
		return false
	}
}
