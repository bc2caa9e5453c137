package services_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"hightech/internal/models"
	"hightech/internal/repositories"
	"hightech/internal/services"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingStore holds Insert until release is closed.
type blockingStore struct {
	repositories.DocumentStore
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Insert(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	close(s.entered)
	<-s.release
	return s.DocumentStore.Insert(ctx, collection, data)
}

type consoleFixture struct {
	docs    *repositories.MockDocumentStore
	fs      afero.Fs
	deps    services.ConsoleDeps
	console *services.Console
}

func newConsoleFixture(t *testing.T) *consoleFixture {
	t.Helper()
	docs := repositories.NewMockDocumentStore()
	t.Cleanup(func() { docs.Close() })

	dxfFiles := services.NewDXFCatalog(docs)
	printItems := services.NewPrintCatalog(docs)
	require.NoError(t, dxfFiles.Start())
	require.NoError(t, printItems.Start())
	t.Cleanup(dxfFiles.Close)
	t.Cleanup(printItems.Close)

	fs := afero.NewMemMapFs()
	deps := services.ConsoleDeps{
		Docs:    docs,
		DXF:     dxfFiles,
		Print:   printItems,
		Uploads: services.NewUploadService(repositories.NewAferoObjectStorage(fs, "/uploads"), 0),
	}
	return &consoleFixture{docs: docs, fs: fs, deps: deps, console: services.NewConsole(deps)}
}

func (f *consoleFixture) waitForDXF(t *testing.T, id string) models.DXFFile {
	t.Helper()
	var file models.DXFFile
	require.Eventually(t, func() bool {
		var ok bool
		file, ok = f.deps.DXF.Get(id)
		return ok
	}, time.Second, 5*time.Millisecond)
	return file
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestConsole_InitialState(t *testing.T) {
	f := newConsoleFixture(t)

	state := f.console.State()
	assert.Equal(t, services.TabDXF, state.Tab)
	assert.Empty(t, state.EditingID)
	assert.Equal(t, "Mechanical", state.Form["category"])
	assert.False(t, state.Saving)
}

func TestConsole_SaveInsertsThenResets(t *testing.T) {
	f := newConsoleFixture(t)
	ctx := context.Background()

	require.NoError(t, f.console.SetField("name", "Gear Plate"))
	require.NoError(t, f.console.SetField("price", "1500"))

	id, err := f.console.Save(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := f.docs.Get(ctx, models.CollectionDXFFiles, id)
	require.NoError(t, err)
	assert.Equal(t, "Gear Plate", doc.Data["name"])
	assert.EqualValues(t, 1500, doc.Data["price"])
	assert.Equal(t, "Mechanical", doc.Data["category"])

	state := f.console.State()
	assert.Equal(t, "", state.Form["name"], "form reset after save")
	assert.Empty(t, state.Error)
}

func TestConsole_EditAndUpdate(t *testing.T) {
	f := newConsoleFixture(t)
	ctx := context.Background()

	id := insertDXF(t, f.docs, map[string]interface{}{"name": "Bracket", "price": 800, "category": "Automotive"})
	f.waitForDXF(t, id)

	require.NoError(t, f.console.StartEdit(id))
	state := f.console.State()
	assert.Equal(t, id, state.EditingID)
	assert.Equal(t, "Bracket", state.Form["name"])
	assert.Equal(t, "Automotive", state.Form["category"])
	assert.Equal(t, "Beginner", state.Form["complexity"], "blank fields take defaults")

	require.NoError(t, f.console.SetField("price", 950))
	savedID, err := f.console.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, savedID)

	doc, err := f.docs.Get(ctx, models.CollectionDXFFiles, id)
	require.NoError(t, err)
	assert.EqualValues(t, 950, doc.Data["price"])
	assert.Empty(t, f.console.State().EditingID)
}

func TestConsole_StartEditMissing(t *testing.T) {
	f := newConsoleFixture(t)
	err := f.console.StartEdit("nope")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestConsole_InvalidFormIsKept(t *testing.T) {
	f := newConsoleFixture(t)

	require.NoError(t, f.console.SetField("price", "10"))
	_, err := f.console.Save(context.Background())
	require.Error(t, err)

	state := f.console.State()
	assert.True(t, strings.HasPrefix(state.Error, "Error saving DXF file:"))
	assert.EqualValues(t, 10, state.Form["price"])
	assert.False(t, state.Saving)
}

func TestConsole_SecondSaveWhileSaving(t *testing.T) {
	f := newConsoleFixture(t)
	blocking := &blockingStore{DocumentStore: f.docs, entered: make(chan struct{}), release: make(chan struct{})}
	deps := f.deps
	deps.Docs = blocking
	console := services.NewConsole(deps)
	require.NoError(t, console.SetField("name", "Panel"))

	done := make(chan error, 1)
	go func() {
		_, err := console.Save(context.Background())
		done <- err
	}()

	<-blocking.entered
	assert.True(t, console.State().Saving)
	_, err := console.Save(context.Background())
	assert.ErrorIs(t, err, services.ErrSaveInProgress)

	close(blocking.release)
	assert.NoError(t, <-done)
	assert.False(t, console.State().Saving)
}

func TestConsole_Delete(t *testing.T) {
	f := newConsoleFixture(t)
	ctx := context.Background()

	keep := insertDXF(t, f.docs, map[string]interface{}{"name": "Keep"})
	drop := insertDXF(t, f.docs, map[string]interface{}{"name": "Drop"})
	f.waitForDXF(t, keep)
	f.waitForDXF(t, drop)

	require.NoError(t, f.console.StartEdit(keep))
	assert.ErrorIs(t, f.console.Delete(ctx, drop, false), services.ErrDeleteNotConfirmed)
	_, err := f.docs.Get(ctx, models.CollectionDXFFiles, drop)
	require.NoError(t, err, "unconfirmed delete leaves the item")

	require.NoError(t, f.console.Delete(ctx, drop, true))
	assert.Equal(t, keep, f.console.State().EditingID, "deleting another item keeps the form")

	require.NoError(t, f.console.Delete(ctx, keep, true))
	assert.Empty(t, f.console.State().EditingID, "deleting the edited item resets the form")

	err = f.console.Delete(ctx, keep, true)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.NotEmpty(t, f.console.State().Error)
}

func TestConsole_SwitchTab(t *testing.T) {
	f := newConsoleFixture(t)

	require.NoError(t, f.console.SetField("name", "Draft"))
	require.NoError(t, f.console.SwitchTab(services.TabPrint))

	state := f.console.State()
	assert.Equal(t, services.TabPrint, state.Tab)
	assert.Equal(t, "", state.Form["name"])
	assert.Equal(t, "PLA", state.Form["material"])

	assert.ErrorIs(t, f.console.SwitchTab("orders"), services.ErrUnknownTab)

	require.NoError(t, f.console.SetField("name", "Dragon"))
	id, err := f.console.Save(context.Background())
	require.NoError(t, err)
	_, err = f.docs.Get(context.Background(), models.CollectionPrintItems, id)
	assert.NoError(t, err, "saved under the print collection")

	assert.Eventually(t, func() bool {
		listing := f.console.List()
		return len(listing.PrintItems) == 1 && listing.Tab == services.TabPrint
	}, time.Second, 5*time.Millisecond)
}

func TestConsole_UploadImage(t *testing.T) {
	f := newConsoleFixture(t)

	url, err := f.console.UploadImage(context.Background(), "gear.png", bytes.NewReader(pngBytes(t, 4, 4)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/dxfImages/"))

	state := f.console.State()
	assert.Equal(t, url, state.Form["image"])
	assert.Equal(t, 100, state.UploadProgress)
	assert.False(t, state.Uploading)
}

func TestConsole_UploadImageRejected(t *testing.T) {
	f := newConsoleFixture(t)

	_, err := f.console.UploadImage(context.Background(), "notes.txt", strings.NewReader("plain text"))
	assert.ErrorIs(t, err, services.ErrUnsupportedImage)

	state := f.console.State()
	assert.Equal(t, "", state.Form["image"])
	assert.Contains(t, state.Error, "Error uploading image")
	assert.False(t, state.Uploading)
}

func TestConsoleRegistry_ResetsOnSignOut(t *testing.T) {
	f := newConsoleFixture(t)
	registry := services.NewConsoleRegistry(f.deps)

	alice := services.Principal{ID: "u1", Email: "alice@example.com"}
	bob := services.Principal{ID: "u2", Email: "bob@example.com"}

	require.NoError(t, registry.Get(alice.ID).SetField("name", "Alice draft"))
	require.NoError(t, registry.Get(bob.ID).SetField("name", "Bob draft"))
	assert.Same(t, registry.Get(alice.ID), registry.Get(alice.ID))

	registry.HandleSessionChange(alice, services.LoggedIn(alice))
	assert.Equal(t, "Alice draft", registry.Get(alice.ID).State().Form["name"])

	registry.HandleSessionChange(alice, services.LoggedOut())
	assert.Equal(t, "", registry.Get(alice.ID).State().Form["name"])
	assert.Equal(t, "Bob draft", registry.Get(bob.ID).State().Form["name"])
}

func TestConsole_SetFieldsIsAllOrNothing(t *testing.T) {
	f := newConsoleFixture(t)
	require.NoError(t, f.console.SetFields(map[string]interface{}{"name": "Gear Plate", "price": "3500"}))

	err := f.console.SetFields(map[string]interface{}{
		"name":      "Renamed",
		"downloads": "12",
		"rating":    "xyz",
	})
	assert.ErrorIs(t, err, services.ErrInvalidField)

	form := f.console.State().Form
	assert.Equal(t, "Gear Plate", form["name"])
	assert.EqualValues(t, 3500, form["price"])
	assert.EqualValues(t, 0, form["downloads"])
	assert.Equal(t, 4.5, form["rating"])

	assert.ErrorIs(t, f.console.SetField("price", "abc"), services.ErrInvalidField)
	assert.EqualValues(t, 3500, f.console.State().Form["price"])
}
