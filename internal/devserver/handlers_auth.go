package devserver

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/notifications"
	"github.com/jrsteele09/go-auth-client/users"
)

var errEmailTaken = errors.New("a user with that email already exists")

type credentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type registrationRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetConfirmRequest struct {
	UID      string `json:"uid" validate:"required"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) createAccount(email, password string, firstName, lastName *string, staff bool) (*users.Account, error) {
	if _, err := s.accounts.GetByEmail(email); err == nil {
		return nil, errEmailTaken
	}
	account := &users.Account{
		User: users.User{
			Email:     strings.TrimSpace(email),
			FirstName: firstName,
			LastName:  lastName,
			IsActive:  true,
			IsStaff:   staff,
		},
		DateJoined: s.nowTime(),
	}
	if err := account.SetPassword(password); err != nil {
		return nil, err
	}
	if err := s.accounts.Upsert(account); err != nil {
		return nil, err
	}
	s.notify(account.ID, &notifications.Notification{
		Type:    notifications.TypeInfo,
		Title:   "Welcome",
		Content: "Your account is ready.",
	})
	return account, nil
}

func (s *Server) tokenHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if fields := validateRequest(req); fields != nil {
		fields.write(w)
		return
	}

	account, err := s.accounts.GetByEmail(req.Email)
	if err != nil || !account.IsActive || !account.CheckPassword(req.Password) {
		s.logger.Info().Str("email", req.Email).Msg("failed login")
		writeNonFieldErrors(w, "Unable to log in with provided credentials.")
		return
	}

	access, err := s.issuer.AccessToken(account)
	if err != nil {
		s.internalError(w, err, "failed to issue access token")
		return
	}
	refresh, err := s.issuer.CreateRefresh(account.ID)
	if err != nil {
		s.internalError(w, err, "failed to issue refresh token")
		return
	}

	account.LastLogin = s.nowTime()
	if err := s.accounts.Upsert(account); err != nil {
		s.logger.Err(err).Str("user_id", account.ID).Msg("failed to record last login")
	}
	writeJSON(w, http.StatusOK, tokenPairResponse{Access: access, Refresh: refresh})
}

func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if fields := validateRequest(req); fields != nil {
		fields.write(w)
		return
	}

	invalid := func() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
	}

	record, err := s.issuer.LookupRefresh(req.Refresh)
	if err != nil {
		invalid()
		return
	}
	account, err := s.accounts.GetByID(record.UserID)
	if err != nil || !account.IsActive {
		s.issuer.DeleteRefresh(req.Refresh)
		invalid()
		return
	}

	access, err := s.issuer.AccessToken(account)
	if err != nil {
		s.internalError(w, err, "failed to issue access token")
		return
	}

	resp := tokenPairResponse{Access: access}
	if s.rotateRefresh {
		s.issuer.DeleteRefresh(req.Refresh)
		if resp.Refresh, err = s.issuer.CreateRefresh(account.ID); err != nil {
			s.internalError(w, err, "failed to rotate refresh token")
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) registrationHandler(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fields := validateRequest(req)
	if fields == nil {
		fields = fieldErrors{}
	}
	if _, missing := fields["password"]; !missing {
		if err := users.ValidatePasswordStrength(req.Password); err != nil {
			fields.add("password", capitalise(err.Error())+".")
		}
	}
	if len(fields) > 0 {
		fields.write(w)
		return
	}

	account, err := s.createAccount(req.Email, req.Password, req.FirstName, req.LastName, false)
	if errors.Is(err, errEmailTaken) {
		fieldErrors{"email": {"A user with that email already exists."}}.write(w)
		return
	}
	if err != nil {
		s.internalError(w, err, "failed to create account")
		return
	}

	s.logger.Info().Str("user_id", account.ID).Str("email", account.Email).Msg("registered account")
	writeDetail(w, http.StatusCreated, "Registration successful. You can now log in.")
}

// logoutHandler revokes whatever the caller presents. It always succeeds.
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Refresh != "" {
		s.issuer.DeleteRefresh(req.Refresh)
	}
	if claims, _, ok := s.verifyBearer(r); ok {
		jti, _ := claims["jti"].(string)
		if exp, err := claims.GetExpirationTime(); err == nil && jti != "" {
			s.issuer.Revoke(jti, exp.Time)
		}
	}
	writeDetail(w, http.StatusOK, "Successfully logged out.")
}

// passwordResetHandler never reveals whether the email is registered.
func (s *Server) passwordResetHandler(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if fields := validateRequest(req); fields != nil {
		fields.write(w)
		return
	}

	if account, err := s.accounts.GetByEmail(req.Email); err == nil && account.IsActive {
		token, err := randomToken(16)
		if err != nil {
			s.internalError(w, err, "failed to generate reset token")
			return
		}
		account.ResetToken = token
		if err := s.accounts.Upsert(account); err != nil {
			s.internalError(w, err, "failed to store reset token")
			return
		}
		s.notifyReset(account.Email, account.ID, token)
	}
	writeDetail(w, http.StatusOK, "Password reset e-mail has been sent.")
}

func (s *Server) passwordResetConfirmHandler(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if fields := validateRequest(req); fields != nil {
		fields.write(w)
		return
	}

	account, err := s.accounts.GetByResetToken(req.Token)
	if errors.Is(err, autherrors.ErrNotFound) || (err == nil && account.ID != req.UID) {
		fieldErrors{"token": {"Invalid value"}}.write(w)
		return
	}
	if err != nil {
		s.internalError(w, err, "failed to look up reset token")
		return
	}
	if err := users.ValidatePasswordStrength(req.Password); err != nil {
		fieldErrors{"password": {capitalise(err.Error()) + "."}}.write(w)
		return
	}

	if err := account.SetPassword(req.Password); err != nil {
		s.internalError(w, err, "failed to hash password")
		return
	}
	account.ResetToken = ""
	if err := s.accounts.Upsert(account); err != nil {
		s.internalError(w, err, "failed to store password")
		return
	}
	s.issuer.DeleteRefreshForUser(account.ID)
	s.notify(account.ID, &notifications.Notification{
		Type:    notifications.TypeWarning,
		Title:   "Password changed",
		Content: "Your password was reset. Every other session has been signed out.",
	})
	writeDetail(w, http.StatusOK, "Password has been reset with the new password.")
}

func (s *Server) logResetToken(email, uid, token string) {
	s.logger.Info().Str("email", email).Str("uid", uid).Str("token", token).Msg("password reset requested")
}

func (s *Server) internalError(w http.ResponseWriter, err error, msg string) {
	s.logger.Err(err).Msg(msg)
	writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

