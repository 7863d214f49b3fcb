package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/runmateapp/runmate-client/internal/models"
)

// fakeCaller records concept calls and dispatches them to registered
// handlers, mimicking the gateway's decode through a JSON round-trip.
type fakeCaller struct {
	mu       sync.Mutex
	calls    []conceptCall
	handlers map[string]func(payload any, out any) error
}

type conceptCall struct {
	concept string
	action  string
	payload any
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{handlers: map[string]func(payload any, out any) error{}}
}

func (f *fakeCaller) on(concept, action string, h func(payload any, out any) error) {
	f.handlers[concept+"/"+action] = h
}

func (f *fakeCaller) CallConceptAction(_ context.Context, concept, action string, payload any, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, conceptCall{concept: concept, action: action, payload: payload})
	h := f.handlers[concept+"/"+action]
	f.mu.Unlock()
	if h != nil {
		return h(payload, out)
	}
	return nil
}

func (f *fakeCaller) callCount(concept, action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.concept == concept && c.action == action {
			n++
		}
	}
	return n
}

func (f *fakeCaller) lastPayload(concept, action string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].concept == concept && f.calls[i].action == action {
			return f.calls[i].payload
		}
	}
	return nil
}

// respond copies v into out through JSON, the way the gateway decodes.
func respond(out any, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

type fakeIdentity struct {
	user    *models.User
	session string
}

func (f *fakeIdentity) User() *models.User {
	if f.user == nil {
		return nil
	}
	u := *f.user
	return &u
}

func (f *fakeIdentity) Session() string { return f.session }

func loggedIn(id string) *fakeIdentity {
	return &fakeIdentity{user: &models.User{ID: id, Username: "u-" + id}, session: "tok-" + id}
}

func anonymous() *fakeIdentity { return &fakeIdentity{} }
