package auth

// Backend endpoints, relative to the API base URL.
const (
	RouteToken                = "auth/token/"
	RouteTokenRefresh         = "auth/token/refresh/"
	RouteRegistration         = "auth/registration/"
	RouteLogout               = "auth/logout/"
	RoutePasswordReset        = "auth/password/reset/"
	RoutePasswordResetConfirm = "auth/password/reset/confirm/"
	RouteCurrentUser          = "users/me/"
	RouteAvatar               = "users/avatar/"

	avatarField = "avatar"
)

const (
	registrationDefaultMessage = "Registration successful"
	resetRequestDefaultMessage = "Password reset email sent"
	resetConfirmDefaultMessage = "Password reset successful"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmation is the body of auth/password/reset/confirm/.
type PasswordResetConfirmation struct {
	UID      string `json:"uid"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}
