package cli

import "sync"

// Nav tracks the current route. It is the navigation port the gateway and
// session store redirect through; constructed before them so it can be
// injected into both.
type Nav struct {
	mu   sync.Mutex
	path string
}

// NewNav starts at the landing route.
func NewNav() *Nav {
	return &Nav{path: "/"}
}

// CurrentPath returns the current route.
func (n *Nav) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

// Navigate moves to path.
func (n *Nav) Navigate(path string) {
	n.mu.Lock()
	n.path = path
	n.mu.Unlock()
}
