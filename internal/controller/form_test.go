package controller

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pazzo-admin/internal/resource"
	"pazzo-admin/pkg/apierror"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

func fill(t *testing.T, f *FormController, name, price, desc string) {
	t.Helper()
	require.NoError(t, f.SetName(name))
	require.NoError(t, f.SetPrice(price))
	require.NoError(t, f.SetDescription(desc))
}

func TestSubmitValidationNeverTouchesNetwork(t *testing.T) {
	tests := []struct {
		name    string
		fields  [3]string
		message string
	}{
		{"missing name", [3]string{"", "10", "desc"}, "Name is required."},
		{"blank name", [3]string{"   ", "10", "desc"}, "Name is required."},
		{"missing price", [3]string{"ups", "", "desc"}, "Price is required."},
		{"bad price", [3]string{"ups", "ten", "desc"}, "Price must be a valid non-negative number."},
		{"negative price", [3]string{"ups", "-1", "desc"}, "Price must be a valid non-negative number."},
		{"not a number price", [3]string{"ups", "NaN", "desc"}, "Price must be a valid non-negative number."},
		{"infinite price", [3]string{"ups", "+Inf", "desc"}, "Price must be a valid non-negative number."},
		{"missing description", [3]string{"ups", "10", ""}, "Description is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := newFakeEndpoint()
			f := NewForm(lookup(t, "openups"), ep, nil, nil)
			f.Begin(nil)
			fill(t, f, tt.fields[0], tt.fields[1], tt.fields[2])

			err := f.Submit(context.Background())
			require.Error(t, err)
			assert.True(t, apierror.IsValidation(err))
			assert.Equal(t, Message{Kind: MessageError, Text: tt.message}, f.Message())
			assert.Equal(t, FormEditing, f.State())
			assert.Empty(t, ep.Calls())
		})
	}
}

func TestSubmitRequiresImageForNewLog(t *testing.T) {
	ep := newFakeEndpoint()
	f := NewForm(lookup(t, "firewalls"), ep, nil, nil)
	f.Begin(nil)
	fill(t, f, "rule", "1", "blocked")

	err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Image is required for new Log items.", f.Message().Text)
	assert.Empty(t, ep.Calls())

	// Existing logs keep their stored image.
	f.Begin(&resource.Record{ID: "abc", Name: "rule", Price: 1, Description: "blocked"})
	require.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, []string{"PUT abc"}, ep.Calls())
}

func TestImageOptionalForNewProduct(t *testing.T) {
	ep := newFakeEndpoint()
	f := NewForm(lookup(t, "ccs"), ep, nil, nil)
	f.Begin(nil)
	fill(t, f, "cable", "2.5", "cat6")

	require.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, []string{"POST"}, ep.Calls())
	assert.Equal(t, Message{Kind: MessageSuccess, Text: "Item added successfully!"}, f.Message())
}

func TestSubmitFailureLeavesDraftUnchanged(t *testing.T) {
	ep := newFakeEndpoint()
	ep.updateErr = apierror.FromResponse(400, []byte(`{"message":"Name already taken"}`))
	f := NewForm(lookup(t, "openups"), ep, nil, nil)

	f.Begin(&resource.Record{ID: "7", Name: "ups", Price: 99, Description: "rack"})
	require.NoError(t, f.ChooseImage(resource.ImageFile{Name: "a.png", ContentType: "image/png", Data: pngBytes}))
	require.NoError(t, f.SetName("ups pro"))
	before := f.Draft()

	require.Error(t, f.Submit(context.Background()))

	assert.Empty(t, cmp.Diff(before, f.Draft()))
	assert.Equal(t, FormEditing, f.State())
	assert.Equal(t, Message{Kind: MessageError, Text: "Name already taken"}, f.Message())

	ep.updateErr = errors.New("reset by peer")
	require.Error(t, f.Submit(context.Background()))
	assert.Equal(t, "Failed to save item.", f.Message().Text)
	assert.Empty(t, cmp.Diff(before, f.Draft()))
}

func TestCreateOmitsIdentifierAndUpdateUsesURL(t *testing.T) {
	ep := newFakeEndpoint()
	f := NewForm(lookup(t, "firewalls"), ep, nil, nil)

	f.Begin(nil)
	fill(t, f, "rule", "0", "allow")
	require.NoError(t, f.ChooseImage(resource.ImageFile{Name: "a.png", ContentType: "image/png", Data: pngBytes}))
	require.NoError(t, f.Submit(context.Background()))

	f.Begin(&resource.Record{ID: "65f0c0ffee", Name: "rule", Price: 4, Description: "deny"})
	require.NoError(t, f.Submit(context.Background()))

	assert.Equal(t, []string{"POST", "PUT 65f0c0ffee"}, ep.Calls())
	for _, body := range ep.Bodies() {
		var fields map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(body), &fields))
		assert.NotContains(t, fields, "_id")
		assert.NotContains(t, fields, "id")
		assert.NotContains(t, body, "65f0c0ffee")
	}
}

func TestMultipartBodyOmitsIdentifier(t *testing.T) {
	ep := newFakeEndpoint()
	f := NewForm(lookup(t, "openups"), ep, nil, nil)

	f.Begin(&resource.Record{ID: "65f0c0ffee", Name: "ups", Price: 4, Description: "rack"})
	require.NoError(t, f.Submit(context.Background()))

	bodies := ep.Bodies()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], `name="name"`)
	assert.NotContains(t, bodies[0], "65f0c0ffee")
	assert.Equal(t, Message{Kind: MessageSuccess, Text: "Item updated successfully!"}, f.Message())
}

func TestSubmitSuccessReloadsList(t *testing.T) {
	ep := newFakeEndpoint(resource.Record{ID: "1", Name: "alpha"})
	l := NewList(lookup(t, "ccs"), ep)
	mounted(t, l)

	l.BeginCreate()
	fill(t, l.Form(), "beta", "5", "new")
	require.NoError(t, l.Submit(context.Background()))

	st := l.State()
	assert.Equal(t, ModeList, st.Mode)
	assert.Equal(t, Message{Kind: MessageSuccess, Text: "Operation successful!"}, st.Message)
	assert.Equal(t, []string{"1", "2"}, ids(st.Records))
	assert.Equal(t, FormIdle, l.Form().State())
	assert.Equal(t, resource.Draft{}, l.Form().Draft())
	assert.Equal(t, []string{"GET", "POST", "GET"}, ep.Calls())
}

func TestSubmitWhileDeleteInFlight(t *testing.T) {
	ep := newFakeEndpoint()
	l := NewList(lookup(t, "ccs"), ep)
	mounted(t, l)

	l.BeginCreate()
	fill(t, l.Form(), "beta", "5", "new")

	require.True(t, l.gate.acquire())
	assert.ErrorIs(t, l.Submit(context.Background()), ErrBusy)
	l.gate.release()

	assert.Equal(t, FormEditing, l.Form().State())
	assert.Equal(t, []string{"GET"}, ep.Calls())
}

func TestConcurrentSubmitIsBusy(t *testing.T) {
	ep := newFakeEndpoint()
	ep.saveHold = make(chan struct{})
	ep.saveStarted = make(chan struct{}, 1)
	f := NewForm(lookup(t, "ccs"), ep, nil, nil)
	f.Begin(nil)
	fill(t, f, "beta", "5", "new")

	result := make(chan error, 1)
	go func() { result <- f.Submit(context.Background()) }()
	<-ep.saveStarted

	assert.Equal(t, FormSubmitting, f.State())
	assert.ErrorIs(t, f.Submit(context.Background()), ErrBusy)
	assert.ErrorIs(t, f.SetName("other"), ErrBusy)

	close(ep.saveHold)
	require.NoError(t, <-result)
	assert.Equal(t, []string{"POST"}, ep.Calls())
}

func TestCancelDuringSubmitDiscardsResult(t *testing.T) {
	ep := newFakeEndpoint()
	ep.saveHold = make(chan struct{})
	ep.saveStarted = make(chan struct{}, 1)
	called := false
	f := NewForm(lookup(t, "ccs"), ep, nil, func(context.Context) error {
		called = true
		return nil
	})
	f.Begin(&resource.Record{ID: "1", Name: "alpha", Price: 1, Description: "d"})

	result := make(chan error, 1)
	go func() { result <- f.Submit(context.Background()) }()
	<-ep.saveStarted
	f.Cancel()
	close(ep.saveHold)

	assert.ErrorIs(t, <-result, ErrStale)
	assert.False(t, called)
	assert.Equal(t, FormIdle, f.State())
	assert.Equal(t, Message{}, f.Message())
}

func TestUnmountDuringSubmitDiscardsResult(t *testing.T) {
	ep := newFakeEndpoint()
	ep.listHold = make(chan struct{})
	ep.listStarted = make(chan struct{}, 1)
	ep.saveHold = make(chan struct{})
	ep.saveStarted = make(chan struct{}, 1)
	ep.ignoreCtx = true

	l := NewList(lookup(t, "ccs"), ep)
	initial := l.Mount(context.Background())
	<-ep.listStarted

	l.BeginCreate()
	fill(t, l.Form(), "alpha", "10", "desc")

	result := make(chan error, 1)
	go func() { result <- l.Submit(context.Background()) }()
	<-ep.saveStarted

	unmounted := make(chan struct{})
	go func() {
		l.Unmount()
		close(unmounted)
	}()
	require.Eventually(t, func() bool { return !l.State().Mounted }, time.Second, time.Millisecond)

	close(ep.saveHold)
	assert.ErrorIs(t, <-result, ErrStale)

	st := l.State()
	assert.False(t, st.Mounted)
	assert.Equal(t, ModeList, st.Mode)
	assert.Equal(t, Message{}, st.Message)
	assert.Equal(t, FormIdle, l.Form().State())
	assert.Equal(t, Message{}, l.Form().Message())

	close(ep.listHold)
	<-unmounted
	assert.ErrorIs(t, <-initial, ErrStale)
	assert.Equal(t, []string{"GET", "POST"}, ep.Calls())
}

func TestEditOutsideEditing(t *testing.T) {
	f := NewForm(lookup(t, "ccs"), newFakeEndpoint(), nil, nil)

	assert.ErrorIs(t, f.SetName("x"), ErrNotEditing)
	assert.ErrorIs(t, f.Submit(context.Background()), ErrNotEditing)

	f.Begin(nil)
	require.NoError(t, f.SetName("x"))
	f.Cancel()
	assert.Equal(t, resource.Draft{}, f.Draft())
	assert.ErrorIs(t, f.SetName("y"), ErrNotEditing)
}

func TestChooseImageRejectsInvalidFile(t *testing.T) {
	f := NewForm(lookup(t, "openups"), newFakeEndpoint(), nil, nil)
	f.Begin(nil)
	require.NoError(t, f.ChooseImage(resource.ImageFile{Name: "a.png", ContentType: "image/png", Data: pngBytes}))

	err := f.ChooseImage(resource.ImageFile{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")})
	require.Error(t, err)
	assert.Equal(t, "Please select a valid image file.", f.Message().Text)
	require.NotNil(t, f.Draft().Image)
	assert.Equal(t, "a.png", f.Draft().Image.Name)

	big := append(append([]byte(nil), pngBytes...), make([]byte, resource.MaxImageBytes)...)
	err = f.ChooseImage(resource.ImageFile{Name: "huge.png", ContentType: "image/png", Data: big})
	require.Error(t, err)
	assert.Equal(t, "Image must be smaller than 5MB.", f.Message().Text)
}

func TestBeginPopulatesFromRecord(t *testing.T) {
	f := NewForm(lookup(t, "openups"), newFakeEndpoint(), nil, nil)
	img := &resource.Image{Data: pngBytes, ContentType: "image/png"}
	f.Begin(&resource.Record{ID: "9", Name: "ups", Price: 12.5, Description: "tower", Image: img})

	d := f.Draft()
	assert.Equal(t, "9", d.ID)
	assert.Equal(t, "12.5", d.Price)
	assert.True(t, strings.HasPrefix(d.Preview(), "data:image/png;base64,"))
}
