// Package controller keeps a list view, a form view and a remote collection
// consistent under create, update and delete.
//
// A ListController owns the collection snapshot and replaces it wholesale
// after every successful fetch. A FormController owns one draft and reports
// success upward through a callback; it never touches the snapshot. Both are
// safe for concurrent use, but only one mutation per list may be in flight.
package controller

import (
	"context"
	"errors"
	"sync/atomic"

	"pazzo-admin/internal/resource"
)

var (
	// ErrBusy is returned when a mutation is already in flight.
	ErrBusy = errors.New("controller: another operation is in progress")
	// ErrNotEditing is returned by form operations outside the editing state.
	ErrNotEditing = errors.New("controller: form is not being edited")
	// ErrUnsaved is returned when an identifier is needed but missing.
	ErrUnsaved = errors.New("controller: record has no identifier")
	// ErrNotMounted is returned by list operations outside a mount scope.
	ErrNotMounted = errors.New("controller: view is not mounted")
	// ErrMounted is returned when mounting an already mounted view.
	ErrMounted = errors.New("controller: view is already mounted")
	// ErrStale reports a response that was discarded because its view was
	// torn down or a newer request superseded it.
	ErrStale = errors.New("controller: stale response discarded")
)

// Endpoint is the remote collection for one resource type.
type Endpoint interface {
	List(ctx context.Context) ([]resource.Record, error)
	Create(ctx context.Context, p resource.Payload) error
	Update(ctx context.Context, id string, p resource.Payload) error
	Delete(ctx context.Context, id string) error
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// AlwaysConfirm accepts every prompt.
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

// MessageKind classifies a user-visible message.
type MessageKind int

const (
	MessageNone MessageKind = iota
	MessageSuccess
	MessageError
)

// Message is the transient feedback line shown above a view.
type Message struct {
	Kind MessageKind
	Text string
}

func success(text string) Message { return Message{Kind: MessageSuccess, Text: text} }
func failure(text string) Message { return Message{Kind: MessageError, Text: text} }

// gate serializes mutations between a list and its form.
type gate struct {
	held atomic.Bool
}

func (g *gate) acquire() bool { return g.held.CompareAndSwap(false, true) }
func (g *gate) release()      { g.held.Store(false) }
func (g *gate) busy() bool    { return g.held.Load() }

// joinScope returns a context cancelled when either ctx or scope is done.
func joinScope(ctx, scope context.Context) (context.Context, context.CancelFunc) {
	joined, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(scope, cancel)
	return joined, func() {
		stop()
		cancel()
	}
}
