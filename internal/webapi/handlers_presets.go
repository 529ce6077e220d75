package webapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"swipely/internal/carousel"
	"swipely/internal/services"
)

type presetRequest struct {
	Name     string                  `json:"name"`
	Style    string                  `json:"style"`
	Settings carousel.FormatSettings `json:"settings"`
}

func (s *Server) decodePreset(r *http.Request) (carousel.StylePreset, error) {
	var req presetRequest
	if err := decodeJSON(r, &req); err != nil {
		return carousel.StylePreset{}, err
	}
	if _, ok := s.catalog.Lookup(strings.TrimSpace(req.Style)); !ok {
		return carousel.StylePreset{}, services.Wrap(services.ErrValidation, "api", "preset", "Unknown style "+req.Style, nil)
	}
	return carousel.StylePreset{
		Name:     req.Name,
		Style:    strings.TrimSpace(req.Style),
		Settings: req.Settings,
	}, nil
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.store.ListPresets(r.Context(), userFromContext(r.Context()).TelegramID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": presets})
}

func (s *Server) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	preset, err := s.decodePreset(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	created, err := s.store.CreatePreset(r.Context(), userFromContext(r.Context()).TelegramID, preset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdatePreset(w http.ResponseWriter, r *http.Request) {
	preset, err := s.decodePreset(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	preset.ID = chi.URLParam(r, "presetID")
	updated, err := s.store.UpdatePreset(r.Context(), userFromContext(r.Context()).TelegramID, preset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePreset(r.Context(), userFromContext(r.Context()).TelegramID, chi.URLParam(r, "presetID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
