package webapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"swipely/internal/api"
	"swipely/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// event is one progress frame on the events socket.
type event struct {
	Type string       `json:"type"`
	Item api.Carousel `json:"item"`
}

// handleEvents streams job progress until the job reaches a terminal status
// or the client goes away. Job state is polled from the store, so updates
// written by any lane show up here.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	job, ok := s.ownedJob(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	// The client never sends anything meaningful; reading detects disconnects.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := r.Context()
	logger := logging.WithContext(ctx, s.logger).With(logging.Int64(logging.FieldJobID, job.ID))
	ticker := time.NewTicker(s.eventInterval)
	defer ticker.Stop()

	var last api.Carousel
	sent := false
	for {
		current := api.FromJob(job)
		if !sent || changed(last, current) {
			kind := "progress"
			if job.Status.IsTerminal() {
				kind = string(job.Status)
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(event{Type: kind, Item: current}); err != nil {
				logger.Debug("websocket write failed", logging.Error(err))
				return
			}
			last, sent = current, true
		}
		if job.Status.IsTerminal() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(job.Status)),
				time.Now().Add(time.Second))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-clientGone:
			return
		case <-ticker.C:
		}

		fresh, err := s.store.GetByID(ctx, job.ID)
		if err != nil {
			logger.Warn("events poll failed", logging.Error(err),
				logging.String(logging.FieldEventType, "events_poll_failed"),
				logging.String(logging.FieldErrorHint, "check database health"),
				logging.String(logging.FieldImpact, "client stops receiving progress"),
			)
			return
		}
		if fresh == nil {
			return
		}
		job = fresh
	}
}

func changed(a, b api.Carousel) bool {
	return a.Status != b.Status || a.Progress != b.Progress || a.ErrorMessage != b.ErrorMessage || a.UpdatedAt != b.UpdatedAt
}
