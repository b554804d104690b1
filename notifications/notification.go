package notifications

import "time"

type Type string

const (
	TypeInfo       Type = "info"
	TypeWarning    Type = "warning"
	TypeError      Type = "error"
	TypeSuccess    Type = "success"
	TypeSystem     Type = "system"
	TypeInvitation Type = "invitation"
	TypeTenant     Type = "tenant"
)

// Notification is a message the backend has addressed to the signed-in user.
type Notification struct {
	ID                string    `json:"id"`
	Title             string    `json:"title,omitempty"`
	Content           string    `json:"content"`
	Read              bool      `json:"read"`
	CreatedAt         time.Time `json:"createdAt"`
	Type              Type      `json:"type"`
	Link              string    `json:"link,omitempty"`
	RelatedObjectID   string    `json:"relatedObjectId,omitempty"`
	RelatedObjectType string    `json:"relatedObjectType,omitempty"`
}

// ListResponse is the paginated envelope returned by GET notifications/.
type ListResponse struct {
	Count    int             `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  []*Notification `json:"results"`
}

// UpdateRequest is the body of PATCH notifications/{id}/.
type UpdateRequest struct {
	Read *bool `json:"read,omitempty"`
}

// Inbox is one fetch of the user's notifications.
type Inbox struct {
	Notifications []*Notification
	Unread        int
}

// UnreadCount counts the notifications not yet read
func UnreadCount(list []*Notification) int {
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n
}
