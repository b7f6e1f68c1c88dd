package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"pazzo-admin/internal/resource"
	"pazzo-admin/pkg/apierror"
)

// Mode is what the list view is currently showing.
type Mode int

const (
	ModeList Mode = iota
	ModeForm
)

// State is an immutable copy of a list view, handed to observers.
type State struct {
	Mode    Mode
	Records []resource.Record
	Message Message
	// Editing is the record open in the form, nil when creating or idle.
	Editing *resource.Record
	Loading bool
	Busy    bool
	Mounted bool
}

// Empty reports whether the list has no rows to show.
func (s State) Empty() bool {
	return len(s.Records) == 0
}

// ListOption configures a ListController.
type ListOption func(*ListController)

// WithConfirmer sets the delete confirmation prompt. Without one every delete
// is declined.
func WithConfirmer(c Confirmer) ListOption {
	return func(l *ListController) { l.confirm = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) ListOption {
	return func(l *ListController) { l.log = log }
}

// WithObserver registers fn to receive every state change.
func WithObserver(fn func(State)) ListOption {
	return func(l *ListController) { l.observers = append(l.observers, fn) }
}

// ListController owns the collection snapshot for one resource type and
// mediates every action that mutates it.
type ListController struct {
	mu        sync.Mutex
	cfg       resource.Config
	endpoint  Endpoint
	confirm   Confirmer
	log       *zap.Logger
	observers []func(State)
	gate      *gate
	form      *FormController

	records []resource.Record
	message Message
	mode    Mode
	editing *resource.Record
	loading bool

	// scope lives from Mount to Unmount; every request issued by the view is
	// joined to it.
	scope  context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	// fetchGen numbers issued fetches; only the latest one may apply.
	fetchGen uint64
}

// NewList creates a list controller with its form.
func NewList(cfg resource.Config, endpoint Endpoint, opts ...ListOption) *ListController {
	l := &ListController{
		cfg:      cfg,
		endpoint: endpoint,
		confirm: ConfirmFunc(func(context.Context, string) (bool, error) {
			return false, nil
		}),
		log:  zap.NewNop(),
		gate: &gate{},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.form = newForm(cfg, endpoint, l.gate, l.log.Named("form"), l.OnFormSuccess)
	return l
}

// Config returns the resource this list serves.
func (l *ListController) Config() resource.Config {
	return l.cfg
}

// Form returns the form controller paired with this list.
func (l *ListController) Form() *FormController {
	return l.form
}

// Mount opens the view scope and starts the initial load in the background.
// The returned channel receives the initial load's result.
func (l *ListController) Mount(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	l.mu.Lock()
	if l.scope != nil {
		l.mu.Unlock()
		done <- ErrMounted
		return done
	}
	l.scope, l.cancel = context.WithCancel(ctx)
	scope := l.scope
	l.wg.Add(1)
	st := l.stateLocked()
	l.mu.Unlock()
	l.emit(st)

	go func() {
		defer l.wg.Done()
		err := l.Load(scope)
		if err != nil && !errors.Is(err, ErrStale) {
			l.log.Debug("initial load failed", zap.Error(err))
		}
		done <- err
	}()
	return done
}

// Unmount cancels the scope, discards the form, and waits for background work
// started by Mount. Responses arriving afterwards are dropped. Calling it on
// an unmounted view is a no-op.
func (l *ListController) Unmount() {
	l.mu.Lock()
	if l.scope == nil {
		l.mu.Unlock()
		return
	}
	l.cancel()
	l.scope, l.cancel = nil, nil
	l.loading = false
	l.mode = ModeList
	l.editing = nil
	l.form.Cancel()
	l.mu.Unlock()

	l.wg.Wait()
}

// Load fetches the collection. Success replaces the snapshot; failure sets
// the message and keeps the previous snapshot. The result is dropped with
// ErrStale if the view was unmounted or a newer fetch was issued meanwhile.
func (l *ListController) Load(ctx context.Context) error {
	l.mu.Lock()
	scope := l.scope
	if scope == nil {
		l.mu.Unlock()
		return ErrNotMounted
	}
	l.fetchGen++
	gen := l.fetchGen
	l.loading = true
	st := l.stateLocked()
	l.mu.Unlock()
	l.emit(st)

	reqCtx, cancel := joinScope(ctx, scope)
	defer cancel()
	records, err := l.endpoint.List(reqCtx)

	l.mu.Lock()
	if l.scope != scope || scope.Err() != nil {
		l.mu.Unlock()
		l.log.Debug("fetch discarded after unmount")
		return ErrStale
	}
	if gen != l.fetchGen {
		l.mu.Unlock()
		l.log.Debug("fetch superseded", zap.Uint64("gen", gen))
		return ErrStale
	}
	l.loading = false
	if err != nil {
		l.message = failure(apierror.Message(err, fmt.Sprintf("Failed to fetch %s.", l.cfg.Plural)))
		st = l.stateLocked()
		l.mu.Unlock()
		l.emit(st)
		l.log.Warn("fetch failed", zap.Error(err))
		return err
	}
	l.records = records
	st = l.stateLocked()
	l.mu.Unlock()
	l.emit(st)
	return nil
}

// RequestDelete asks for confirmation, deletes id and reloads. A declined
// prompt is not an error.
func (l *ListController) RequestDelete(ctx context.Context, id string) error {
	if id == "" {
		return ErrUnsaved
	}

	l.mu.Lock()
	scope := l.scope
	if scope == nil {
		l.mu.Unlock()
		return ErrNotMounted
	}
	if !l.gate.acquire() {
		l.mu.Unlock()
		return ErrBusy
	}
	st := l.stateLocked()
	l.mu.Unlock()
	l.emit(st)

	reqCtx, cancel := joinScope(ctx, scope)
	defer cancel()

	ok, err := l.confirm.Confirm(reqCtx, "Are you sure?")
	if err != nil || !ok {
		l.gate.release()
		l.emit(l.State())
		return err
	}

	err = l.endpoint.Delete(reqCtx, id)
	l.gate.release()

	l.mu.Lock()
	if l.scope != scope {
		l.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		l.message = failure(apierror.Message(err, "Failed to delete item."))
		st = l.stateLocked()
		l.mu.Unlock()
		l.emit(st)
		l.log.Warn("delete failed", zap.String("id", id), zap.Error(err))
		return err
	}
	l.message = success("Item deleted successfully.")
	clearForm := l.editing != nil && l.editing.ID == id
	if clearForm {
		l.editing = nil
		l.mode = ModeList
	}
	st = l.stateLocked()
	l.mu.Unlock()
	l.emit(st)

	if clearForm {
		l.form.Cancel()
	}
	l.log.Info("deleted", zap.String("id", id))

	if err := l.Load(ctx); err != nil && !errors.Is(err, ErrStale) {
		return err
	}
	return nil
}

// BeginEdit opens the form on rec.
func (l *ListController) BeginEdit(rec resource.Record) error {
	if !rec.Saved() {
		return ErrUnsaved
	}

	l.mu.Lock()
	l.mode = ModeForm
	l.editing = &rec
	l.message = Message{}
	st := l.stateLocked()
	l.mu.Unlock()

	l.form.Begin(&rec)
	l.emit(st)
	return nil
}

// BeginCreate opens the form with an empty draft.
func (l *ListController) BeginCreate() {
	l.mu.Lock()
	l.mode = ModeForm
	l.editing = nil
	l.message = Message{}
	st := l.stateLocked()
	l.mu.Unlock()

	l.form.Begin(nil)
	l.emit(st)
}

// Submit submits the form within the view scope.
func (l *ListController) Submit(ctx context.Context) error {
	l.mu.Lock()
	scope := l.scope
	l.mu.Unlock()
	if scope == nil {
		return ErrNotMounted
	}

	reqCtx, cancel := joinScope(ctx, scope)
	defer cancel()
	return l.form.Submit(reqCtx)
}

// OnFormSuccess returns to the list, reports success and reloads.
func (l *ListController) OnFormSuccess(ctx context.Context) error {
	l.mu.Lock()
	if l.scope == nil {
		l.mu.Unlock()
		return ErrStale
	}
	l.mode = ModeList
	l.editing = nil
	l.message = success("Operation successful!")
	st := l.stateLocked()
	l.mu.Unlock()
	l.emit(st)

	if err := l.Load(ctx); err != nil && !errors.Is(err, ErrStale) {
		return err
	}
	return nil
}

// OnFormCancel returns to the list, discarding the draft and messages.
func (l *ListController) OnFormCancel() {
	l.form.Cancel()

	l.mu.Lock()
	l.mode = ModeList
	l.editing = nil
	l.message = Message{}
	st := l.stateLocked()
	l.mu.Unlock()
	l.emit(st)
}

// State returns a copy of the current view state.
func (l *ListController) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked()
}

func (l *ListController) stateLocked() State {
	st := State{
		Mode:    l.mode,
		Records: append([]resource.Record(nil), l.records...),
		Message: l.message,
		Loading: l.loading,
		Busy:    l.gate.busy(),
		Mounted: l.scope != nil,
	}
	if l.editing != nil {
		rec := *l.editing
		st.Editing = &rec
	}
	return st
}

func (l *ListController) emit(st State) {
	for _, fn := range l.observers {
		fn(st)
	}
}
