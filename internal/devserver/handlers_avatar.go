package devserver

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-auth-client/internal/utils"
)

const (
	avatarField   = "avatar"
	maxAvatarSize = 2 << 20
)

var avatarTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

type avatarImage struct {
	data        []byte
	contentType string
}

func avatarURL(userID string) string {
	return "/media/avatars/" + userID
}

func (s *Server) uploadAvatarHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize+(64<<10))
	file, _, err := r.FormFile(avatarField)
	if err != nil {
		fieldErrors{avatarField: {"No file was submitted."}}.write(w)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAvatarSize+1))
	if err != nil {
		fieldErrors{avatarField: {"The submitted file could not be read."}}.write(w)
		return
	}
	if len(data) > maxAvatarSize {
		fieldErrors{avatarField: {"The file is larger than 2 MB."}}.write(w)
		return
	}
	mime := mimetype.Detect(data)
	if !mimetype.EqualsAny(mime.String(), avatarTypes...) {
		fieldErrors{avatarField: {"Upload a valid image. The file you uploaded was either not an image or a corrupted image."}}.write(w)
		return
	}

	s.avatarsLock.Lock()
	s.avatars[account.ID] = avatarImage{data: data, contentType: mime.String()}
	s.avatarsLock.Unlock()

	account.Avatar = utils.Ptr(avatarURL(account.ID))
	if err := s.accounts.Upsert(account); err != nil {
		s.internalError(w, err, "failed to store avatar")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatar": *account.Avatar})
}

func (s *Server) deleteAvatarHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	s.avatarsLock.Lock()
	delete(s.avatars, account.ID)
	s.avatarsLock.Unlock()

	account.Avatar = nil
	if err := s.accounts.Upsert(account); err != nil {
		s.internalError(w, err, "failed to delete avatar")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) avatarImageHandler(w http.ResponseWriter, r *http.Request) {
	s.avatarsLock.RLock()
	img, ok := s.avatars[chi.URLParam(r, "userID")]
	s.avatarsLock.RUnlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	w.Header().Set("Content-Type", img.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.data)))
	_, _ = io.Copy(w, bytes.NewReader(img.data))
}
