// Package remotetest provides a configurable in-memory server double for
// tests. Entities and pages are served from maps; any operation can be made
// to fail, block or return a canned response.
package remotetest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/gozephyr/viewsync/entity"
	"github.com/gozephyr/viewsync/errors"
	"github.com/gozephyr/viewsync/remote"
)

// Fake is an in-memory remote.API. The zero value is not usable; call New.
type Fake struct {
	mu        sync.Mutex
	entities  map[string]entity.Value
	pages     map[string]map[string]remote.Page
	responses map[string]remote.Response
	errs      map[string]error
	onceErrs  map[string]error
	gates     map[string]chan struct{}
	calls     map[string]int
}

// New creates an empty fake server.
func New() *Fake {
	return &Fake{
		entities:  make(map[string]entity.Value),
		pages:     make(map[string]map[string]remote.Page),
		responses: make(map[string]remote.Response),
		errs:      make(map[string]error),
		onceErrs:  make(map[string]error),
		gates:     make(map[string]chan struct{}),
		calls:     make(map[string]int),
	}
}

// Put stores an entity served by FetchEntity.
func (f *Fake) Put(v entity.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ref := range v.Refs() {
		f.entities[ref.String()] = v
	}
}

// AddPage stores the page served for the given list and cursor. The first
// page of a list lives under the empty cursor.
func (f *Fake) AddPage(kind, parentID, cursor string, p remote.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lk := kind + "/" + parentID
	if f.pages[lk] == nil {
		f.pages[lk] = make(map[string]remote.Page)
	}
	f.pages[lk][cursor] = p
}

// Respond sets the canned response returned by the named operation.
func (f *Fake) Respond(op string, resp remote.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[op] = resp
}

// Fail makes the named operation return err until cleared with Fail(op, nil).
func (f *Fake) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// FailOnce makes the next call of the named operation return err.
func (f *Fake) FailOnce(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onceErrs[op] = err
}

// Block makes the named operation wait; the returned func releases it.
func (f *Fake) Block(op string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[op] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns how many times the named operation was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// enter records the call, honors any gate and returns the configured error.
func (f *Fake) enter(op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.gates[op]
	err, once := f.onceErrs[op]
	if once {
		delete(f.onceErrs, op)
	} else {
		err = f.errs[op]
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (f *Fake) respond(op string) (remote.Response, error) {
	if err := f.enter(op); err != nil {
		return remote.Response{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.responses[op], nil
}

// FetchEntity implements remote.API.
func (f *Fake) FetchEntity(_ context.Context, ref entity.Ref) (entity.Value, error) {
	if err := f.enter("FetchEntity"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.entities[ref.String()]; ok {
		return v.Clone(), nil
	}
	return nil, errors.ErrKeyNotFound
}

// FetchPage implements remote.API.
func (f *Fake) FetchPage(_ context.Context, kind, parentID, cursor string, _ int) (remote.Page, error) {
	if err := f.enter("FetchPage"); err != nil {
		return remote.Page{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pages[kind+"/"+parentID][cursor]; ok {
		return p, nil
	}
	return remote.Page{}, errors.ErrKeyNotFound
}

// Like implements remote.API.
func (f *Fake) Like(_ context.Context, _ entity.Ref) (remote.Response, error) {
	return f.respond("Like")
}

// Unlike implements remote.API.
func (f *Fake) Unlike(_ context.Context, _ entity.Ref) (remote.Response, error) {
	return f.respond("Unlike")
}

// Follow implements remote.API.
func (f *Fake) Follow(_ context.Context, _ string) (remote.Response, error) {
	return f.respond("Follow")
}

// Unfollow implements remote.API.
func (f *Fake) Unfollow(_ context.Context, _ string) (remote.Response, error) {
	return f.respond("Unfollow")
}

// PostComment implements remote.API. Without a canned response it creates
// the comment server-side the way the real API would.
func (f *Fake) PostComment(_ context.Context, parent entity.Ref, body string) (remote.Response, error) {
	if err := f.enter("PostComment"); err != nil {
		return remote.Response{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if resp, ok := f.responses["PostComment"]; ok {
		return resp, nil
	}
	return remote.Response{
		Created: &entity.Comment{ID: uuid.NewString(), ReviewID: parent.ID, Body: body},
	}, nil
}

// DeleteComment implements remote.API.
func (f *Fake) DeleteComment(_ context.Context, _ string) (remote.Response, error) {
	return f.respond("DeleteComment")
}

// SubmitRating implements remote.API.
func (f *Fake) SubmitRating(_ context.Context, _ string, _ float64) (remote.Response, error) {
	return f.respond("SubmitRating")
}

// UpdatePrivacy implements remote.API.
func (f *Fake) UpdatePrivacy(_ context.Context, _, _ string, _ bool) (remote.Response, error) {
	return f.respond("UpdatePrivacy")
}

// AddToLibrary implements remote.API.
func (f *Fake) AddToLibrary(_ context.Context, _, _ string) (remote.Response, error) {
	return f.respond("AddToLibrary")
}

// RemoveFromLibrary implements remote.API.
func (f *Fake) RemoveFromLibrary(_ context.Context, _, _ string) (remote.Response, error) {
	return f.respond("RemoveFromLibrary")
}

var _ remote.API = (*Fake)(nil)
