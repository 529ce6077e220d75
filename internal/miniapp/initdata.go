package miniapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidInitData is returned when initData is malformed or its signature does not match.
	ErrInvalidInitData = errors.New("invalid init data")
	// ErrInitDataExpired is returned when auth_date is older than the allowed age.
	ErrInitDataExpired = errors.New("init data expired")
)

// WebAppUser is the Telegram user embedded in initData.
type WebAppUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
}

// InitData is a verified Mini App launch payload.
type InitData struct {
	User       WebAppUser
	AuthDate   time.Time
	QueryID    string
	StartParam string
}

// ValidateInitData verifies the initData query string signed with the bot
// token. A non-positive maxAge disables the freshness check.
func ValidateInitData(raw, botToken string, maxAge time.Duration, now time.Time) (*InitData, error) {
	if strings.TrimSpace(botToken) == "" {
		return nil, fmt.Errorf("%w: bot token not configured", ErrInvalidInitData)
	}
	values, err := url.ParseQuery(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}
	hash := values.Get("hash")
	if hash == "" {
		return nil, fmt.Errorf("%w: hash missing", ErrInvalidInitData)
	}
	expected := signature(values, botToken)
	if !hmac.Equal([]byte(strings.ToLower(hash)), []byte(expected)) {
		return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidInitData)
	}

	authUnix, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil || authUnix <= 0 {
		return nil, fmt.Errorf("%w: auth_date missing", ErrInvalidInitData)
	}
	authDate := time.Unix(authUnix, 0).UTC()
	if maxAge > 0 && now.Sub(authDate) > maxAge {
		return nil, ErrInitDataExpired
	}

	data := &InitData{
		AuthDate:   authDate,
		QueryID:    values.Get("query_id"),
		StartParam: values.Get("start_param"),
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &data.User); err != nil || data.User.ID == 0 {
		return nil, fmt.Errorf("%w: user missing", ErrInvalidInitData)
	}
	return data, nil
}

// SignInitData adds a valid hash to values and returns the encoded initData.
// The web API tests and local development tooling use it to mint launch data.
func SignInitData(values url.Values, botToken string) string {
	signed := url.Values{}
	for key, vals := range values {
		if key == "hash" {
			continue
		}
		signed[key] = append([]string(nil), vals...)
	}
	signed.Set("hash", signature(signed, botToken))
	return signed.Encode()
}

// signature computes the hex HMAC of the data-check-string: every field but
// hash, sorted by key, as key=value lines. The key is HMAC("WebAppData", token).
func signature(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+"="+values.Get(key))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
