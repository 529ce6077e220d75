package miniapp_test

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"swipely/internal/config"
	"swipely/internal/miniapp"
)

const botToken = "123456:TEST-token"

func launchValues(authDate time.Time) url.Values {
	values := url.Values{}
	values.Set("query_id", "AAE1")
	values.Set("user", `{"id":777,"first_name":"Ann","username":"ann","language_code":"ru"}`)
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	return values
}

func TestValidateInitDataAcceptsSignedPayload(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	raw := miniapp.SignInitData(launchValues(now.Add(-time.Minute)), botToken)

	data, err := miniapp.ValidateInitData(raw, botToken, time.Hour, now)
	if err != nil {
		t.Fatalf("ValidateInitData: %v", err)
	}
	if data.User.ID != 777 || data.User.LanguageCode != "ru" || data.QueryID != "AAE1" {
		t.Fatalf("unexpected init data: %+v", data)
	}
}

func TestValidateInitDataRejectsTampering(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	raw := miniapp.SignInitData(launchValues(now), botToken)

	tampered := strings.Replace(raw, "777", "778", 1)
	if _, err := miniapp.ValidateInitData(tampered, botToken, time.Hour, now); !errors.Is(err, miniapp.ErrInvalidInitData) {
		t.Fatalf("expected invalid init data for tampered user, got %v", err)
	}
	if _, err := miniapp.ValidateInitData(raw, "other:token", time.Hour, now); !errors.Is(err, miniapp.ErrInvalidInitData) {
		t.Fatalf("expected invalid init data for wrong token, got %v", err)
	}
	if _, err := miniapp.ValidateInitData("user=%7B%7D", botToken, time.Hour, now); !errors.Is(err, miniapp.ErrInvalidInitData) {
		t.Fatalf("expected invalid init data without hash, got %v", err)
	}
}

func TestValidateInitDataRejectsStaleAuthDate(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	raw := miniapp.SignInitData(launchValues(now.Add(-2*time.Hour)), botToken)

	if _, err := miniapp.ValidateInitData(raw, botToken, time.Hour, now); !errors.Is(err, miniapp.ErrInitDataExpired) {
		t.Fatalf("expected expired init data, got %v", err)
	}
	if _, err := miniapp.ValidateInitData(raw, botToken, 0, now); err != nil {
		t.Fatalf("expected freshness check disabled with zero max age: %v", err)
	}
}

func TestSessionsRoundTrip(t *testing.T) {
	sessions, err := miniapp.NewSessions(config.Auth{JWTSecret: "0123456789abcdef0123", SessionTTLHours: 1})
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}
	token, expires, err := sessions.Issue(777, "ru")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expires) <= 0 || time.Until(expires) > time.Hour {
		t.Fatalf("unexpected expiry %v", expires)
	}
	claims, err := sessions.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.TelegramID != 777 || claims.Language != "ru" || claims.Subject != "777" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	other, err := miniapp.NewSessions(config.Auth{JWTSecret: "another-secret-0123456789"})
	if err != nil {
		t.Fatalf("NewSessions: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, miniapp.ErrInvalidSession) {
		t.Fatalf("expected invalid session for foreign secret, got %v", err)
	}
	if _, err := sessions.Verify(""); !errors.Is(err, miniapp.ErrInvalidSession) {
		t.Fatalf("expected invalid session for empty token, got %v", err)
	}
}

func TestNewSessionsRequiresSecret(t *testing.T) {
	if _, err := miniapp.NewSessions(config.Auth{JWTSecret: "short"}); err == nil {
		t.Fatal("expected error for short secret")
	}
}
