package webapi

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"swipely/internal/api"
	"swipely/internal/carousel"
	"swipely/internal/render"
	"swipely/internal/services"
	"swipely/internal/store"
	"swipely/internal/templates"
)

const listLimit = 50

func (s *Server) handleListCarousels(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListForUser(r.Context(), userFromContext(r.Context()).TelegramID, listLimit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	items := api.FromJobs(jobs)
	if items == nil {
		items = []api.Carousel{}
	}
	s.writeJSON(w, http.StatusOK, api.CarouselListResponse{Items: items})
}

func (s *Server) handleCreateCarousel(w http.ResponseWriter, r *http.Request) {
	var req api.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	req.Source = store.SourceWeb
	job, err := s.carousels.Create(r.Context(), userFromContext(r.Context()), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.CarouselResponse{Item: api.FromJob(job)})
}

func (s *Server) handleGetCarousel(w http.ResponseWriter, r *http.Request) {
	job, ok := s.ownedJob(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, api.CarouselResponse{Item: api.FromJob(job)})
}

func (s *Server) handleEditCarousel(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var req api.EditRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	job, err := s.carousels.Edit(r.Context(), userFromContext(r.Context()), id, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.CarouselResponse{Item: api.FromJob(job)})
}

// handleSlideImage serves one rendered PNG; n counts from 1 and may carry a
// .png suffix.
func (s *Server) handleSlideImage(w http.ResponseWriter, r *http.Request) {
	job, ok := s.ownedJob(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSuffix(chi.URLParam(r, "n"), ".png"))
	if err != nil || n < 1 || n > carousel.MaxSlides {
		s.writeError(w, http.StatusNotFound, "slide not found")
		return
	}
	dir := job.OutputDir
	if dir == "" {
		dir = s.cfg.JobOutputDir(job.ID)
	}
	path := filepath.Join(dir, render.SlideFileName(n-1))
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, "slide not rendered")
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

type previewRequest struct {
	Slides   []carousel.Slide         `json:"slides"`
	Style    string                   `json:"style"`
	Settings *carousel.FormatSettings `json:"settings,omitempty"`
	Language string                   `json:"language,omitempty"`
}

// handlePreview renders slide HTML without saving anything. Client supplied
// image paths are dropped; uploaded images only exist on stored jobs.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if len(req.Slides) == 0 || len(req.Slides) > carousel.MaxSlides {
		s.writeServiceError(w, r, services.Wrap(services.ErrValidation, "api", "preview", "Preview needs between 1 and 15 slides", nil))
		return
	}
	style, ok := s.catalog.Lookup(strings.TrimSpace(req.Style))
	if !ok {
		style = s.catalog.Get(s.catalog.DefaultID())
	}
	settings := carousel.DefaultSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	slides := carousel.Normalize(req.Slides)
	for i := range slides {
		slides[i].ImagePath = ""
	}
	settings = settings.Normalize()
	dims := settings.Format.Dimensions()
	user := userFromContext(r.Context())
	docs, err := templates.RenderAll(slides, style, settings, firstNonEmpty(req.Language, user.Language))
	if err != nil {
		s.writeServiceError(w, r, services.Wrap(services.ErrValidation, "api", "preview", "Slides could not be rendered", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"style":  style.ID,
		"width":  dims.Width,
		"height": dims.Height,
		"slides": docs,
	})
}

// ownedJob loads the {id} job and hides jobs of other users.
func (s *Server) ownedJob(w http.ResponseWriter, r *http.Request) (*store.Job, bool) {
	id, err := int64Param(r, "id")
	if err != nil {
		s.writeServiceError(w, r, err)
		return nil, false
	}
	job, err := s.carousels.Get(r.Context(), userFromContext(r.Context()), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) || errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "carousel not found")
			return nil, false
		}
		s.writeServiceError(w, r, err)
		return nil, false
	}
	return job, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
