package tenants

// Repo stores the dev backend's tenants.
type Repo interface {
	Upsert(tenant *Tenant) error
	Delete(tenantID string) error
	Get(tenantID string) (*Tenant, error)
	// List returns tenants owned by ownerID, or all tenants when ownerID is empty
	List(ownerID string, offset, limit int) ([]*Tenant, error)
}
