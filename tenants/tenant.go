package tenants

import "time"

// Tenant is an isolated customer organization on the backend.
type Tenant struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	IsActive  bool       `json:"isActive"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	Domain    string     `json:"domain,omitempty"`
	Owner     *Owner     `json:"owner,omitempty"`
}

type Owner struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// OwnedBy reports whether userID owns the tenant
func (t *Tenant) OwnedBy(userID string) bool {
	return t.Owner != nil && t.Owner.ID == userID
}

// CreateRequest is the body of POST tenants/.
type CreateRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

// UpdateRequest is the body of PATCH tenants/{id}/. Nil fields are left unchanged.
type UpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Domain   *string `json:"domain,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

func (u UpdateRequest) Apply(t *Tenant) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Domain != nil {
		t.Domain = *u.Domain
	}
	if u.IsActive != nil {
		t.IsActive = *u.IsActive
	}
}

// ListResponse is the paginated envelope returned by GET tenants/.
type ListResponse struct {
	Count   int       `json:"count"`
	Results []*Tenant `json:"results"`
}

// SetCurrentRequest is the body of POST tenants/set-current/.
type SetCurrentRequest struct {
	TenantID string `json:"tenant_id"`
}
