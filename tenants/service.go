package tenants

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	listPath       = "tenants/"
	setCurrentPath = "tenants/set-current/"
)

func tenantPath(id string) string {
	return fmt.Sprintf("tenants/%s/", url.PathEscape(id))
}

// Requester issues a JSON request relative to the API base URL and decodes
// the response into out.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// CurrentStore persists the selected tenant across runs.
type CurrentStore interface {
	SaveTenant(t *Tenant) error
	LoadTenant() (*Tenant, bool)
	ClearTenant()
}

type Service struct {
	api    Requester
	store  CurrentStore
	logger zerolog.Logger
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

func NewService(api Requester, store CurrentStore, options ...Option) (*Service, error) {
	if api == nil {
		return nil, fmt.Errorf("[NewService] api is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[NewService] store is required")
	}
	s := &Service{
		api:    api,
		store:  store,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// List fetches the tenants visible to the current user.
func (s *Service) List(ctx context.Context) ([]*Tenant, error) {
	var resp ListResponse
	if err := s.api.Do(ctx, http.MethodGet, listPath, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "[Service.List] list tenants")
	}
	if resp.Results == nil {
		return []*Tenant{}, nil
	}
	return resp.Results, nil
}

// Current is the locally selected tenant.
func (s *Service) Current() (*Tenant, bool) {
	return s.store.LoadTenant()
}

// Switch selects tenant id. The selection is stored locally before the
// backend is told, so a failed set-current call still leaves it selected.
func (s *Service) Switch(ctx context.Context, id string) (*Tenant, error) {
	if id == "" {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidInput, "[Service.Switch] tenant id is required")
	}

	list, err := s.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Switch]")
	}

	var selected *Tenant
	for _, t := range list {
		if t.ID == id {
			selected = t
			break
		}
	}
	if selected == nil {
		return nil, autherrors.Wrapf(autherrors.ErrTenantNotFound, "[Service.Switch] %s", id)
	}

	if err := s.store.SaveTenant(selected); err != nil {
		return nil, errors.Wrap(err, "[Service.Switch] save current tenant")
	}

	if err := s.api.Do(ctx, http.MethodPost, setCurrentPath, SetCurrentRequest{TenantID: id}, nil); err != nil {
		return selected, errors.Wrap(err, "[Service.Switch] set current tenant")
	}
	s.logger.Info().Str("tenant_id", id).Str("tenant", selected.Name).Msg("switched tenant")
	return selected, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Tenant, error) {
	if req.Name == "" {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidInput, "[Service.Create] name is required")
	}
	var t Tenant
	if err := s.api.Do(ctx, http.MethodPost, listPath, req, &t); err != nil {
		return nil, errors.Wrap(err, "[Service.Create] create tenant")
	}
	return &t, nil
}

// Update patches tenant id and refreshes the stored selection when it is the current tenant.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Tenant, error) {
	if id == "" {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidInput, "[Service.Update] tenant id is required")
	}
	var t Tenant
	if err := s.api.Do(ctx, http.MethodPatch, tenantPath(id), req, &t); err != nil {
		return nil, errors.Wrap(err, "[Service.Update] update tenant")
	}

	if current, ok := s.store.LoadTenant(); ok && current.ID == id {
		if err := s.store.SaveTenant(&t); err != nil {
			s.logger.Err(err).Str("tenant_id", id).Msg("[Service.Update] failed to refresh current tenant")
		}
	}
	return &t, nil
}

// Delete removes tenant id and clears the stored selection when it is the current tenant.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return autherrors.Wrapf(autherrors.ErrInvalidInput, "[Service.Delete] tenant id is required")
	}
	if err := s.api.Do(ctx, http.MethodDelete, tenantPath(id), nil, nil); err != nil {
		return errors.Wrap(err, "[Service.Delete] delete tenant")
	}

	if current, ok := s.store.LoadTenant(); ok && current.ID == id {
		s.store.ClearTenant()
	}
	return nil
}
