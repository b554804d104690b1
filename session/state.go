package session

// State is derived from the stored tokens on every call and never persisted.
type State int

const (
	Anonymous State = iota
	Authenticated
	// Expired means the access token has lapsed but a refresh token is held
	Expired
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return "anonymous"
	}
}
