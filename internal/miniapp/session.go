package miniapp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"

	"swipely/internal/config"
)

const sessionIssuer = "swipely"

// ErrInvalidSession is returned for missing, expired or tampered session tokens.
var ErrInvalidSession = errors.New("invalid session")

// Claims is the session token payload.
type Claims struct {
	TelegramID int64  `json:"tid"`
	Language   string `json:"lang,omitempty"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies HS256 session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions builds a session issuer from the [auth] section.
func NewSessions(cfg config.Auth) (*Sessions, error) {
	if len(strings.TrimSpace(cfg.JWTSecret)) < 16 {
		return nil, errors.New("auth.jwt_secret must be at least 16 characters")
	}
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(cfg.JWTSecret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a session for a Telegram user.
func (s *Sessions) Issue(telegramID int64, language string) (string, time.Time, error) {
	now := s.now().UTC()
	expires := now.Add(s.ttl)
	claims := Claims{
		TelegramID: telegramID,
		Language:   language,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   strconv.FormatInt(telegramID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expires, nil
}

// Verify parses a session token and returns its claims.
func (s *Sessions) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidSession
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Issuer != sessionIssuer || claims.TelegramID == 0 {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
