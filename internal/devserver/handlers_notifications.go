package devserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/notifications"
)

// notify drops a notification into userID's inbox. Failures only get logged.
func (s *Server) notify(userID string, n *notifications.Notification) {
	n.CreatedAt = s.nowTime()
	if err := s.notifications.Add(userID, n); err != nil {
		s.logger.Err(err).Str("user_id", userID).Msg("failed to add notification")
	}
}

func (s *Server) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())
	list, err := s.notifications.List(account.ID)
	if err != nil {
		s.internalError(w, err, "failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, notifications.ListResponse{Count: len(list), Results: list})
}

func (s *Server) updateNotificationHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())
	n, err := s.notifications.Get(account.ID, chi.URLParam(r, "notificationID"))
	if errors.Is(err, autherrors.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	if err != nil {
		s.internalError(w, err, "failed to load notification")
		return
	}

	var req notifications.UpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Read != nil {
		n.Read = *req.Read
	}
	if err := s.notifications.Upsert(account.ID, n); err != nil {
		s.internalError(w, err, "failed to update notification")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) markAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())
	changed, err := s.notifications.MarkAllRead(account.ID)
	if err != nil {
		s.internalError(w, err, "failed to mark notifications read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": changed})
}
