package notifications

// Repo stores the dev backend's notifications per recipient.
type Repo interface {
	Add(userID string, n *Notification) error
	Get(userID, id string) (*Notification, error)
	Upsert(userID string, n *Notification) error
	// List returns the user's notifications, newest first
	List(userID string) ([]*Notification, error)
	// MarkAllRead marks every notification of the user read and returns how many changed
	MarkAllRead(userID string) (int, error)
}
