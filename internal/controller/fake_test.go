package controller

import (
	"context"
	"fmt"
	"io"
	"sync"

	"pazzo-admin/internal/resource"
)

// fakeEndpoint is an in-memory collection that records every call.
type fakeEndpoint struct {
	mu      sync.Mutex
	records []resource.Record
	nextID  int
	calls   []string
	bodies  []string

	listErr   error
	createErr error
	updateErr error
	deleteErr error

	// listHold, when set, makes List wait for a value before answering.
	listHold chan struct{}
	// ignoreCtx makes held calls answer even after their context ends.
	ignoreCtx bool
	// listStarted is signalled when a held List begins waiting.
	listStarted chan struct{}
	// saveHold and saveStarted do the same for Create and Update.
	saveHold    chan struct{}
	saveStarted chan struct{}
}

func newFakeEndpoint(records ...resource.Record) *fakeEndpoint {
	return &fakeEndpoint{records: records, nextID: len(records)}
}

func (f *fakeEndpoint) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeEndpoint) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeEndpoint) List(ctx context.Context) ([]resource.Record, error) {
	f.record("GET")

	f.mu.Lock()
	hold, started := f.listHold, f.listStarted
	snapshot := append([]resource.Record(nil), f.records...)
	f.mu.Unlock()
	if hold != nil {
		if started != nil {
			started <- struct{}{}
		}
		if f.ignoreCtx {
			<-hold
		} else {
			select {
			case <-hold:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return snapshot, nil
}

func (f *fakeEndpoint) waitSave(ctx context.Context) error {
	f.mu.Lock()
	hold, started, ignore := f.saveHold, f.saveStarted, f.ignoreCtx
	f.mu.Unlock()
	if hold == nil {
		return nil
	}
	if started != nil {
		started <- struct{}{}
	}
	if ignore {
		<-hold
		return nil
	}
	select {
	case <-hold:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeEndpoint) Create(ctx context.Context, p resource.Payload) error {
	f.record("POST")
	body, _ := io.ReadAll(p.Body)
	if err := f.waitSave(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, string(body))
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	f.records = append(f.records, resource.Record{ID: fmt.Sprint(f.nextID), Name: "created"})
	return nil
}

func (f *fakeEndpoint) Update(ctx context.Context, id string, p resource.Payload) error {
	f.record("PUT " + id)
	body, _ := io.ReadAll(p.Body)
	if err := f.waitSave(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, string(body))
	return f.updateErr
}

func (f *fakeEndpoint) Bodies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.bodies...)
}

func (f *fakeEndpoint) Delete(_ context.Context, id string) error {
	f.record("DELETE " + id)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, r := range f.records {
		if r.ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			break
		}
	}
	return nil
}
