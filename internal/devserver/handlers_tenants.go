package devserver

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/notifications"
	"github.com/jrsteele09/go-auth-client/tenants"
	"github.com/jrsteele09/go-auth-client/users"
)

const maxTenants = 1000

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// visibleTenant loads tenantID if account may see it. Staff see every tenant.
func (s *Server) visibleTenant(w http.ResponseWriter, account *users.Account, tenantID string) (*tenants.Tenant, bool) {
	t, err := s.tenants.Get(tenantID)
	if errors.Is(err, autherrors.ErrTenantNotFound) || (err == nil && !account.IsStaff && !t.OwnedBy(account.ID)) {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return nil, false
	}
	if err != nil {
		s.internalError(w, err, "failed to load tenant")
		return nil, false
	}
	return t, true
}

func (s *Server) listTenantsHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	owner := account.ID
	if account.IsStaff {
		owner = ""
	}
	list, err := s.tenants.List(owner, 0, maxTenants)
	if err != nil {
		s.internalError(w, err, "failed to list tenants")
		return
	}
	if list == nil {
		list = []*tenants.Tenant{}
	}
	writeJSON(w, http.StatusOK, tenants.ListResponse{Count: len(list), Results: list})
}

func (s *Server) createTenantHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	var req tenants.CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		fieldErrors{"name": {fieldRequired}}.write(w)
		return
	}

	t := &tenants.Tenant{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Slug:      slugify(req.Name),
		IsActive:  true,
		CreatedAt: utils.Ptr(s.nowTime()),
		Domain:    req.Domain,
		Owner:     &tenants.Owner{ID: account.ID, Email: account.Email},
	}
	if err := s.tenants.Upsert(t); err != nil {
		s.internalError(w, err, "failed to create tenant")
		return
	}
	s.logger.Info().Str("tenant_id", t.ID).Str("owner", account.ID).Msg("created tenant")
	s.notify(account.ID, &notifications.Notification{
		Type:              notifications.TypeTenant,
		Title:             "Tenant created",
		Content:           t.Name + " is ready to use.",
		RelatedObjectID:   t.ID,
		RelatedObjectType: "tenant",
	})
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTenantHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())
	t, ok := s.visibleTenant(w, account, chi.URLParam(r, "tenantID"))
	if !ok {
		return
	}

	var req tenants.UpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		fieldErrors{"name": {"This field may not be blank."}}.write(w)
		return
	}

	req.Apply(t)
	if req.Name != nil {
		t.Slug = slugify(*req.Name)
	}
	if err := s.tenants.Upsert(t); err != nil {
		s.internalError(w, err, "failed to update tenant")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTenantHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())
	t, ok := s.visibleTenant(w, account, chi.URLParam(r, "tenantID"))
	if !ok {
		return
	}

	if err := s.tenants.Delete(t.ID); err != nil {
		s.internalError(w, err, "failed to delete tenant")
		return
	}
	if utils.Value(account.TenantID) == t.ID {
		account.TenantID = nil
		if err := s.accounts.Upsert(account); err != nil {
			s.logger.Err(err).Str("user_id", account.ID).Msg("failed to clear current tenant")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setCurrentTenantHandler(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r.Context())

	var req tenants.SetCurrentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TenantID == "" {
		fieldErrors{"tenant_id": {fieldRequired}}.write(w)
		return
	}
	t, ok := s.visibleTenant(w, account, req.TenantID)
	if !ok {
		return
	}

	account.TenantID = utils.Ptr(t.ID)
	if err := s.accounts.Upsert(account); err != nil {
		s.internalError(w, err, "failed to set current tenant")
		return
	}
	writeDetail(w, http.StatusOK, "Current tenant updated.")
}
