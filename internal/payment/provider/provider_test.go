package provider

import (
	"errors"
	"testing"
	"time"
)

var testEventBody = []byte(`{
	"id": "evt_123",
	"type": "payment.succeeded",
	"data": {
		"object": {
			"customer": "cus_1",
			"charge": "ch_1",
			"subscription": "sub_1",
			"product_id": "plan-pro",
			"user_id": "user-1",
			"amount": 12500,
			"guest": false
		}
	}
}`)

func signedHeaders(secret string, at time.Time, body []byte) map[string]string {
	return map[string]string{
		SignatureHeader: ComputeSignatureHeader(secret, at.Unix(), body),
	}
}

func TestVerifyAndParse(t *testing.T) {
	now := time.Now()
	cfg := &Config{Secret: "whsec_test"}

	event, err := VerifyAndParse(cfg, signedHeaders("whsec_test", now, testEventBody), testEventBody, now)
	if err != nil {
		t.Fatalf("verify and parse failed: %v", err)
	}
	if event.ID != "evt_123" || event.Type != "payment.succeeded" {
		t.Fatalf("unexpected event identity %+v", event)
	}
	if event.CustomerID != "cus_1" || event.ChargeID != "ch_1" || event.SubscriptionID != "sub_1" {
		t.Fatalf("unexpected event references %+v", event)
	}
	if event.ProductID != "plan-pro" || event.AmountCents != 12500 || event.Guest {
		t.Fatalf("unexpected event payload %+v", event)
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	now := time.Now()
	err := VerifySignature(&Config{Secret: "whsec_right"}, signedHeaders("whsec_wrong", now, testEventBody), testEventBody, now)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifySignatureRejectsMissingHeader(t *testing.T) {
	err := VerifySignature(&Config{Secret: "whsec_test"}, nil, testEventBody, time.Now())
	if !errors.Is(err, ErrSignatureMissing) {
		t.Fatalf("expected ErrSignatureMissing, got %v", err)
	}
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	now := time.Now()
	stale := now.Add(-10 * time.Minute)
	err := VerifySignature(&Config{Secret: "whsec_test"}, signedHeaders("whsec_test", stale, testEventBody), testEventBody, now)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}

	// 容差放宽后同一签名可用
	err = VerifySignature(&Config{Secret: "whsec_test", ToleranceSeconds: 3600}, signedHeaders("whsec_test", stale, testEventBody), testEventBody, now)
	if err != nil {
		t.Fatalf("expected signature within tolerance, got %v", err)
	}
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	now := time.Now()
	headers := signedHeaders("whsec_test", now, testEventBody)
	tampered := []byte(`{"id":"evt_123","type":"payment.succeeded","data":{"object":{"amount":1}}}`)
	err := VerifySignature(&Config{Secret: "whsec_test"}, headers, tampered, now)
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifySignatureHeaderLookupIsCaseInsensitive(t *testing.T) {
	now := time.Now()
	headers := map[string]string{
		"x-webhook-signature": ComputeSignatureHeader("whsec_test", now.Unix(), testEventBody),
	}
	if err := VerifySignature(&Config{Secret: "whsec_test"}, headers, testEventBody, now); err != nil {
		t.Fatalf("expected case insensitive header lookup, got %v", err)
	}
}

func TestVerifySignatureConfigRequired(t *testing.T) {
	err := VerifySignature(nil, nil, testEventBody, time.Now())
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
	err = VerifySignature(&Config{Secret: "  "}, nil, testEventBody, time.Now())
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
	err = VerifySignature(&Config{Secret: "whsec_test"}, nil, nil, time.Now())
	if !errors.Is(err, ErrPayloadInvalid) {
		t.Fatalf("expected ErrPayloadInvalid, got %v", err)
	}
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	now := time.Now()
	cfg := &Config{Secret: "whsec_test"}
	cases := map[string]string{
		"no_timestamp":  "v1=abcdef",
		"no_signature":  "t=1700000000",
		"bad_timestamp": "t=later,v1=abcdef",
		"empty_header":  "   ",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			err := VerifySignature(cfg, map[string]string{SignatureHeader: header}, testEventBody, now)
			if err == nil {
				t.Fatal("expected verification failure")
			}
		})
	}
}

func TestParseEventRejectsBadPayload(t *testing.T) {
	cases := map[string][]byte{
		"not_json":       []byte("not-json"),
		"missing_type":   []byte(`{"id":"evt_1","data":{"object":{}}}`),
		"missing_id":     []byte(`{"type":"payment.succeeded","data":{"object":{}}}`),
		"missing_data":   []byte(`{"id":"evt_1","type":"payment.succeeded"}`),
		"missing_object": []byte(`{"id":"evt_1","type":"payment.succeeded","data":{}}`),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseEvent(body); !errors.Is(err, ErrPayloadInvalid) {
				t.Fatalf("expected ErrPayloadInvalid, got %v", err)
			}
		})
	}
}

func TestParseEventCoercesScalarTypes(t *testing.T) {
	body := []byte(`{
		"id": "evt_9",
		"type": "payment.succeeded",
		"data": {"object": {"amount": "990", "guest": "true", "customer": 42}}
	}`)
	event, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.AmountCents != 990 {
		t.Fatalf("expected string amount coerced, got %d", event.AmountCents)
	}
	if !event.Guest {
		t.Fatal("expected string guest flag coerced")
	}
	if event.CustomerID != "42" {
		t.Fatalf("expected numeric customer coerced, got %s", event.CustomerID)
	}
}

func TestParseEventKeepsFractionalNumericIDs(t *testing.T) {
	body := []byte(`{
		"id": "evt_10",
		"type": "payment.succeeded",
		"data": {"object": {"customer": 42.5, "charge": 7.25}}
	}`)
	event, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if event.CustomerID != "42.5" {
		t.Fatalf("expected fractional customer kept, got %s", event.CustomerID)
	}
	if event.ChargeID != "7.25" {
		t.Fatalf("expected fractional charge kept, got %s", event.ChargeID)
	}
}
