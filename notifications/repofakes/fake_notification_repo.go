package notificationrepofakes

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/notifications"
)

var _ notifications.Repo = (*FakeNotificationRepo)(nil)

type FakeNotificationRepo struct {
	byUser map[string]map[string]*notifications.Notification
	lock   sync.RWMutex
}

func NewFakeNotificationRepo() notifications.Repo {
	return &FakeNotificationRepo{
		byUser: make(map[string]map[string]*notifications.Notification),
	}
}

func (nr *FakeNotificationRepo) Add(userID string, n *notifications.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nr.Upsert(userID, n)
}

func (nr *FakeNotificationRepo) Get(userID, id string) (*notifications.Notification, error) {
	nr.lock.RLock()
	defer nr.lock.RUnlock()
	n, ok := nr.byUser[userID][id]
	if !ok {
		return nil, autherrors.ErrNotFound
	}
	return n, nil
}

func (nr *FakeNotificationRepo) Upsert(userID string, n *notifications.Notification) error {
	nr.lock.Lock()
	defer nr.lock.Unlock()
	inbox, ok := nr.byUser[userID]
	if !ok {
		inbox = make(map[string]*notifications.Notification)
		nr.byUser[userID] = inbox
	}
	inbox[n.ID] = n
	return nil
}

func (nr *FakeNotificationRepo) List(userID string) ([]*notifications.Notification, error) {
	nr.lock.RLock()
	defer nr.lock.RUnlock()

	list := make([]*notifications.Notification, 0, len(nr.byUser[userID]))
	for _, n := range nr.byUser[userID] {
		list = append(list, n)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (nr *FakeNotificationRepo) MarkAllRead(userID string) (int, error) {
	nr.lock.Lock()
	defer nr.lock.Unlock()
	changed := 0
	for _, n := range nr.byUser[userID] {
		if !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed, nil
}
