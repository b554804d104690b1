package devserver

import (
	"net/http"

	"github.com/jrsteele09/go-auth-client/users"
)

func (s *Server) currentUserHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())
	writeJSON(w, http.StatusOK, account.Profile())
}

func (s *Server) updateCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	var update users.ProfileUpdate
	if !decodeBody(w, r, &update) {
		return
	}

	if update.Email != nil {
		if !validEmail(*update.Email) {
			fieldErrors{"email": {"Enter a valid email address."}}.write(w)
			return
		}
		if other, err := s.accounts.GetByEmail(*update.Email); err == nil && other.ID != account.ID {
			fieldErrors{"email": {"A user with that email already exists."}}.write(w)
			return
		}
	}

	update.Apply(&account.User)
	if err := s.accounts.Upsert(account); err != nil {
		s.internalError(w, err, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, account.Profile())
}
