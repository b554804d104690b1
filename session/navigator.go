package session

import "sync"

// Navigator moves the user to another entry point, e.g. the login route
// after a forced logout.
type Navigator interface {
	Redirect(route string)
}

// NavigatorFunc adapts a function to a Navigator.
type NavigatorFunc func(route string)

func (f NavigatorFunc) Redirect(route string) {
	f(route)
}

// Recorder is a Navigator that remembers every redirect, for headless callers
// that poll for a pending navigation.
type Recorder struct {
	lock   sync.Mutex
	routes []string
}

func (r *Recorder) Redirect(route string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.routes = append(r.routes, route)
}

func (r *Recorder) Routes() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.routes...)
}

// Last is the most recent redirect target
func (r *Recorder) Last() (string, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.routes) == 0 {
		return "", false
	}
	return r.routes[len(r.routes)-1], true
}
