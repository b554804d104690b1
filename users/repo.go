package users

// AccountRepo stores the dev backend's accounts.
type AccountRepo interface {
	Upsert(account *Account) error
	Delete(email string) error
	GetByEmail(email string) (*Account, error)
	GetByID(ID string) (*Account, error)
	GetByResetToken(token string) (*Account, error)
	List(offset, limit int) ([]*Account, error)
}
