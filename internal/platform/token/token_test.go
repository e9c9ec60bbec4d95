package token

import (
	"strings"
	"testing"
	"time"
)

func TestSignParseRoundtrip(t *testing.T) {
	m := NewManager("test-secret", "")

	signed, err := m.Sign("abc-123", time.Hour)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	got, err := m.Parse(signed)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if got != "abc-123" {
		t.Fatalf("expected session id abc-123, got %s", got)
	}
}

func TestParseRejectsTampering(t *testing.T) {
	m := NewManager("test-secret", "")

	signed, err := m.Sign("abc-123", time.Hour)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("x", len(parts[2]))

	if _, err := m.Parse(tampered); err == nil {
		t.Fatalf("expected tampered token to be rejected")
	}
}

func TestParseRejectsWrongSecretAndExpiry(t *testing.T) {
	m := NewManager("test-secret", "")

	signed, err := m.Sign("abc-123", time.Hour)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := NewManager("other-secret", "").Parse(signed); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}

	expired, err := m.Sign("abc-123", -time.Minute)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := m.Parse(expired); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}
