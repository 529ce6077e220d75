package webapi

import (
	"net/http"
	"strconv"
	"strings"

	"swipely/internal/api"
	"swipely/internal/logging"
	"swipely/internal/services"
	"swipely/internal/store"
)

func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.writeError(w, http.StatusServiceUnavailable, "status unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, s.status.Status(r.Context()))
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.AdminStats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromAdminStats(stats))
}

func (s *Server) handleAdminJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []store.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := store.ParseStatus(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status "+trimmed)
			return
		}
		statuses = append(statuses, status)
	}
	items, err := s.jobs.List(r.Context(), statuses...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []api.Carousel{}
	}
	s.writeJSON(w, http.StatusOK, api.CarouselListResponse{Items: items})
}

func (s *Server) handleAdminJob(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	item, err := s.jobs.Describe(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if item == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.CarouselResponse{Item: *item})
}

type retryRequest struct {
	IDs []int64 `json:"ids"`
}

func (s *Server) handleAdminRetry(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if len(req.IDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "ids required")
		return
	}
	result, err := api.RetryFailedJobsByID(r.Context(), s.store, req.IDs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info("jobs retried via api", logging.Int64("updated", result.UpdatedCount))
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAdminRemove(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	result, err := api.RemoveJobsByID(r.Context(), s.store, []int64{id})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	users, err := s.store.ListUsers(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": api.FromUsers(users, s.now())})
}

type tierRequest struct {
	Tier string `json:"tier"`
	Days int    `json:"days"`
}

func (s *Server) handleAdminSetTier(w http.ResponseWriter, r *http.Request) {
	telegramID, err := int64Param(r, "telegramID")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var req tierRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	tier, ok := store.ParseTier(req.Tier)
	if !ok || req.Days < 0 {
		s.writeServiceError(w, r, services.Wrap(services.ErrValidation, "api", "tier", "tier must be free or pro and days non-negative", nil))
		return
	}
	user, err := s.store.SetTier(r.Context(), telegramID, tier, req.Days)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info("tier changed via api",
		logging.Int64(logging.FieldUserID, telegramID),
		logging.String("tier", string(tier)),
		logging.Int("days", req.Days),
	)
	s.writeJSON(w, http.StatusOK, api.FromUsers([]*store.User{user}, s.now())[0])
}

func (s *Server) handleAdminResetUsage(w http.ResponseWriter, r *http.Request) {
	telegramID, err := int64Param(r, "telegramID")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	day := store.DayKey(s.now())
	if err := s.store.ResetUsage(r.Context(), telegramID, day); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"telegramId": telegramID, "day": day})
}
