package fakeuserrepo

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
)

var _ users.AccountRepo = (*FakeAccountRepo)(nil)

type FakeAccountRepo struct {
	accounts map[string]*users.Account
	emailIds map[string]string // lowercased email to account id
	lock     sync.RWMutex
}

func NewFakeAccountRepo() users.AccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[string]*users.Account),
		emailIds: make(map[string]string),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (ur *FakeAccountRepo) Upsert(account *users.Account) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if previous, ok := ur.accounts[account.ID]; ok && emailKey(previous.Email) != emailKey(account.Email) {
		delete(ur.emailIds, emailKey(previous.Email))
	}
	ur.accounts[account.ID] = account
	ur.emailIds[emailKey(account.Email)] = account.ID
	return nil
}

func (ur *FakeAccountRepo) Delete(email string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	id, ok := ur.emailIds[emailKey(email)]
	if !ok {
		return autherrors.ErrNotFound
	}
	delete(ur.emailIds, emailKey(email))
	delete(ur.accounts, id)
	return nil
}

func (ur *FakeAccountRepo) GetByEmail(email string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[emailKey(email)]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return ur.accounts[id], nil
}

func (ur *FakeAccountRepo) GetByID(id string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	a, ok := ur.accounts[id]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return a, nil
}

func (ur *FakeAccountRepo) GetByResetToken(token string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if token == "" {
		return nil, autherrors.ErrNotFound
	}
	for _, a := range ur.accounts {
		if a.ResetToken == token {
			return a, nil
		}
	}
	return nil, autherrors.ErrNotFound
}

func (ur *FakeAccountRepo) List(offset, limit int) ([]*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	list := make([]*users.Account, 0, len(ur.accounts))
	for _, a := range ur.accounts {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Email < list[j].Email
	})

	if offset >= len(list) {
		return nil, nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end], nil
}
