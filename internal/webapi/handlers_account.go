package webapi

import (
	"errors"
	"net/http"
	"time"

	"swipely/internal/api"
	"swipely/internal/logging"
	"swipely/internal/miniapp"
	"swipely/internal/store"
)

type authRequest struct {
	InitData string `json:"initData"`
}

type authResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expiresAt"`
	Profile   api.Profile `json:"profile"`
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		s.writeError(w, http.StatusServiceUnavailable, "sessions are not configured")
		return
	}
	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	maxAge := time.Duration(s.cfg.Telegram.InitDataMaxAgeSecond) * time.Second
	data, err := miniapp.ValidateInitData(req.InitData, s.cfg.Telegram.BotToken, maxAge, s.now())
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, miniapp.ErrInitDataExpired) {
			status = http.StatusForbidden
		}
		s.logger.Info("mini app auth rejected", logging.Error(err))
		s.writeError(w, status, err.Error())
		return
	}

	user, err := s.store.EnsureUser(r.Context(), store.Profile{
		TelegramID: data.User.ID,
		Username:   data.User.Username,
		FirstName:  data.User.FirstName,
		Language:   data.User.LanguageCode,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	token, expires, err := s.sessions.Issue(user.TelegramID, user.Language)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	profile, err := s.profiles.Profile(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, authResponse{
		Token:     token,
		ExpiresAt: expires.UTC().Format(time.RFC3339),
		Profile:   profile,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profiles.Profile(r.Context(), userFromContext(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var update api.PreferenceUpdate
	if err := decodeJSON(r, &update); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	user, err := s.profiles.UpdatePreferences(r.Context(), userFromContext(r.Context()), update)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	profile, err := s.profiles.Profile(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"default": s.catalog.DefaultID(),
		"items":   api.FromTemplates(s.catalog.List()),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListHistory(r.Context(), userFromContext(r.Context()).TelegramID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if s.payments == nil {
		s.writeError(w, http.StatusServiceUnavailable, "payments are not configured")
		return
	}
	checkout, err := s.payments.CreateCheckout(r.Context(), userFromContext(r.Context()).TelegramID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, checkout)
}

// handleWebhook acknowledges every notification it could process, including
// duplicates, so YooKassa stops redelivering. Failures that a retry may fix
// answer 5xx.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.payments == nil {
		s.writeError(w, http.StatusServiceUnavailable, "payments are not configured")
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	outcome, err := s.payments.HandleWebhook(r.Context(), body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"payment_id": outcome.PaymentID,
		"status":     outcome.Status,
		"applied":    outcome.Applied,
	})
}
