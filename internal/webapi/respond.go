package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"swipely/internal/api"
	"swipely/internal/logging"
	"swipely/internal/services"
	"swipely/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps classified errors onto HTTP statuses. Unclassified
// errors are logged and reported as 500 without their text.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, api.ErrBusy):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "busy"})
		return
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
		return
	case errors.Is(err, store.ErrConflict):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "conflict"})
		return
	case errors.Is(err, store.ErrInvalidPreset):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: string(services.KindValidation)})
		return
	}

	details := services.Details(err)
	status := http.StatusInternalServerError
	switch details.Kind {
	case services.KindValidation:
		status = http.StatusBadRequest
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindLimit:
		status = http.StatusTooManyRequests
	case services.KindForbidden:
		status = http.StatusForbidden
	case services.KindConfiguration:
		status = http.StatusServiceUnavailable
	case services.KindTransient, services.KindExternal, services.KindTimeout:
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Error("request failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_request_failed"),
			logging.String("path", r.URL.Path),
		)
	}
	message := details.Message
	if status == http.StatusInternalServerError || message == "" {
		message = http.StatusText(status)
	}
	s.writeJSON(w, status, errorResponse{Error: message, Kind: string(details.Kind)})
}

// decodeJSON reads a bounded JSON body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return services.Wrap(services.ErrValidation, "api", "decode", fmt.Sprintf("Invalid request body: %v", err), err)
	}
	return nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, services.Wrap(services.ErrValidation, "api", "path", fmt.Sprintf("Invalid %s %q", name, raw), nil)
	}
	return value, nil
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "api", "read body", "Could not read request body", err)
	}
	return data, nil
}
