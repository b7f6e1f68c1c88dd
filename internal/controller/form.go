package controller

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"pazzo-admin/internal/resource"
	"pazzo-admin/pkg/apierror"
)

// FormState is the form's position in idle → editing → submitting.
type FormState int

const (
	FormIdle FormState = iota
	FormEditing
	FormSubmitting
)

func (s FormState) String() string {
	switch s {
	case FormEditing:
		return "editing"
	case FormSubmitting:
		return "submitting"
	default:
		return "idle"
	}
}

// FormController collects input for one record and submits it.
type FormController struct {
	mu        sync.Mutex
	cfg       resource.Config
	endpoint  Endpoint
	gate      *gate
	log       *zap.Logger
	onSuccess func(ctx context.Context) error

	state   FormState
	draft   resource.Draft
	message Message
	// gen changes on Begin and Cancel so a response for a discarded draft
	// is ignored.
	gen uint64
}

// NewForm creates a standalone form controller. onSuccess, when set, runs
// after every successful submit.
func NewForm(cfg resource.Config, endpoint Endpoint, log *zap.Logger, onSuccess func(ctx context.Context) error) *FormController {
	return newForm(cfg, endpoint, &gate{}, log, onSuccess)
}

func newForm(cfg resource.Config, endpoint Endpoint, g *gate, log *zap.Logger, onSuccess func(ctx context.Context) error) *FormController {
	if log == nil {
		log = zap.NewNop()
	}
	return &FormController{
		cfg:       cfg,
		endpoint:  endpoint,
		gate:      g,
		log:       log,
		onSuccess: onSuccess,
	}
}

// Begin enters editing with an empty draft (rec == nil) or one populated from
// rec. Any previous draft is discarded.
func (f *FormController) Begin(rec *resource.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gen++
	f.state = FormEditing
	f.message = Message{}
	if rec == nil {
		f.draft = resource.Draft{}
		return
	}
	f.draft = resource.DraftFrom(*rec).Clone()
}

// Cancel discards the draft unconditionally and returns to idle.
func (f *FormController) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gen++
	f.state = FormIdle
	f.draft = resource.Draft{}
	f.message = Message{}
}

// edit applies fn to the draft if the form is editing.
func (f *FormController) edit(fn func(d *resource.Draft) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case FormSubmitting:
		return ErrBusy
	case FormIdle:
		return ErrNotEditing
	}
	return fn(&f.draft)
}

// SetName updates the draft name.
func (f *FormController) SetName(v string) error {
	return f.edit(func(d *resource.Draft) error { d.Name = v; return nil })
}

// SetPrice updates the draft price text.
func (f *FormController) SetPrice(v string) error {
	return f.edit(func(d *resource.Draft) error { d.Price = v; return nil })
}

// SetDescription updates the draft description.
func (f *FormController) SetDescription(v string) error {
	return f.edit(func(d *resource.Draft) error { d.Description = v; return nil })
}

// ChooseImage validates and stores an image for upload. A rejected file
// leaves the previous choice in place and sets the form message.
func (f *FormController) ChooseImage(file resource.ImageFile) error {
	return f.edit(func(d *resource.Draft) error {
		if err := resource.CheckImage(file); err != nil {
			f.message = failure(apierror.Message(err, "Please select a valid image file."))
			return err
		}
		file.Data = append([]byte(nil), file.Data...)
		d.Image = &file
		f.message = Message{}
		return nil
	})
}

// Submit validates the draft and issues create (no identifier) or update.
// Validation failures never reach the network. On failure the draft is left
// exactly as it was and the form stays in editing. After a successful save
// the error of the success callback, if any, is returned.
func (f *FormController) Submit(ctx context.Context) error {
	f.mu.Lock()
	switch f.state {
	case FormSubmitting:
		f.mu.Unlock()
		return ErrBusy
	case FormIdle:
		f.mu.Unlock()
		return ErrNotEditing
	}

	draft := f.draft.Clone()
	price, err := draft.Validate(f.cfg)
	if err != nil {
		f.message = failure(apierror.Message(err, "Please fill in all required fields."))
		f.mu.Unlock()
		return err
	}
	payload, err := draft.Encode(f.cfg, price)
	if err != nil {
		f.message = failure("Failed to save item.")
		f.mu.Unlock()
		return err
	}
	if !f.gate.acquire() {
		f.mu.Unlock()
		return ErrBusy
	}
	f.state = FormSubmitting
	f.message = Message{}
	gen := f.gen
	f.mu.Unlock()

	if draft.ID == "" {
		err = f.endpoint.Create(ctx, payload)
	} else {
		err = f.endpoint.Update(ctx, draft.ID, payload)
	}
	f.gate.release()

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		f.log.Debug("submit result discarded", zap.String("id", draft.ID))
		return ErrStale
	}
	if err != nil {
		f.state = FormEditing
		f.message = failure(apierror.Message(err, "Failed to save item."))
		f.mu.Unlock()
		f.log.Warn("submit failed", zap.String("id", draft.ID), zap.Error(err))
		return err
	}

	f.gen++
	f.state = FormIdle
	f.draft = resource.Draft{}
	if draft.ID == "" {
		f.message = success("Item added successfully!")
	} else {
		f.message = success("Item updated successfully!")
	}
	onSuccess := f.onSuccess
	f.mu.Unlock()

	if onSuccess != nil {
		return onSuccess(ctx)
	}
	return nil
}

// State returns the current form state.
func (f *FormController) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Draft returns a copy of the current draft.
func (f *FormController) Draft() resource.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.Clone()
}

// Message returns the form's inline message.
func (f *FormController) Message() Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}
