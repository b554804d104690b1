package users

import (
	"strings"
)

// User is the profile returned by users/me/. It is cached by the client and
// overwritten, never merged, on every successful fetch.
type User struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	IsActive  bool    `json:"isActive"`
	IsStaff   bool    `json:"isStaff"`
	TenantID  *string `json:"tenantId,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}

// DisplayName is "First Last" when either is set, else the email
func (u *User) DisplayName() string {
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	if len(parts) == 0 {
		return u.Email
	}
	return strings.Join(parts, " ")
}

// ProfileUpdate is the PATCH body for users/me/. Nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
}

func (p ProfileUpdate) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil
}

// Apply copies the set fields onto u
func (p ProfileUpdate) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = p.FirstName
	}
	if p.LastName != nil {
		u.LastName = p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
}

// Registration is the body of auth/registration/.
type Registration struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// AvatarResponse is the body returned by POST users/avatar/.
type AvatarResponse struct {
	Avatar string `json:"avatar"`
}
