package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"

	"hightech/internal/models"
	"hightech/internal/repositories"

	"github.com/go-playground/validator/v10"
)

var (
	ErrSaveInProgress     = errors.New("a save is already in progress")
	ErrUploadInProgress   = errors.New("an upload is already in progress")
	ErrDeleteNotConfirmed = errors.New("delete must be confirmed")
)

// ConsoleState is a snapshot of the admin console for rendering.
type ConsoleState struct {
	Tab            Tab                    `json:"tab"`
	EditingID      string                 `json:"editing_id,omitempty"`
	Form           map[string]interface{} `json:"form"`
	Saving         bool                   `json:"saving"`
	Uploading      bool                   `json:"uploading"`
	UploadProgress int                    `json:"upload_progress"`
	Error          string                 `json:"error,omitempty"`
}

// ConsoleListing is the live list of the active tab.
type ConsoleListing struct {
	Tab        Tab                `json:"tab"`
	Loading    bool               `json:"loading"`
	DXFFiles   []models.DXFFile   `json:"dxf_files,omitempty"`
	PrintItems []models.PrintItem `json:"print_items,omitempty"`
}

// ConsoleDeps are shared by every console.
type ConsoleDeps struct {
	Docs    repositories.DocumentStore
	DXF     *CatalogStore[models.DXFFile]
	Print   *CatalogStore[models.PrintItem]
	Uploads *UploadService
}

// Console is the editing state of one admin principal.
type Console struct {
	deps     ConsoleDeps
	validate *validator.Validate

	mu        sync.Mutex
	tab       Tab
	editingID string
	form      ItemForm
	saving    bool
	uploading bool
	progress  int
	lastErr   string
}

// NewConsole creates a console on the DXF tab with a blank form.
func NewConsole(deps ConsoleDeps) *Console {
	return &Console{
		deps:     deps,
		validate: validator.New(),
		tab:      TabDXF,
		form:     NewForm(TabDXF),
	}
}

// State returns a copy of the console state.
func (c *Console) State() ConsoleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConsoleState{
		Tab:            c.tab,
		EditingID:      c.editingID,
		Form:           c.form.Fields(),
		Saving:         c.saving,
		Uploading:      c.uploading,
		UploadProgress: c.progress,
		Error:          c.lastErr,
	}
}

// resetLocked clears the editing id and puts the tab's default form in place.
func (c *Console) resetLocked() {
	c.editingID = ""
	c.form = NewForm(c.tab)
}

// Reset returns the console to a blank form on the current tab.
func (c *Console) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.lastErr = ""
}

// SwitchTab activates a tab and resets the form to its default.
func (c *Console) SwitchTab(tab Tab) error {
	if _, err := ParseTab(string(tab)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tab = tab
	c.resetLocked()
	return nil
}

// StartNew begins a new item on the active tab.
func (c *Console) StartNew() {
	c.Reset()
}

// StartEdit loads an item of the active tab into the form.
func (c *Console) StartEdit(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var form ItemForm
	switch c.tab {
	case TabPrint:
		item, ok := c.deps.Print.Get(id)
		if !ok {
			return fmt.Errorf("printing item %s: %w", id, repositories.ErrNotFound)
		}
		form = PrintItemFormFrom(item)
	default:
		file, ok := c.deps.DXF.Get(id)
		if !ok {
			return fmt.Errorf("dxf file %s: %w", id, repositories.ErrNotFound)
		}
		form = CutFileFormFrom(file)
	}

	c.editingID = id
	c.form = form
	c.lastErr = ""
	return nil
}

// SetField coerces and stores one field of the form.
func (c *Console) SetField(name string, raw interface{}) error {
	return c.SetFields(map[string]interface{}{name: raw})
}

// SetFields applies several fields at once. If any field is rejected the form is left
// unchanged.
func (c *Console) SetFields(fields map[string]interface{}) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	c.mu.Lock()
	defer c.mu.Unlock()

	draft := c.form.clone()
	for _, name := range names {
		if err := draft.SetField(name, fields[name]); err != nil {
			return err
		}
	}
	c.form = draft
	return nil
}

// List returns the items of the active tab ordered by name.
func (c *Console) List() ConsoleListing {
	c.mu.Lock()
	tab := c.tab
	c.mu.Unlock()

	if tab == TabPrint {
		return ConsoleListing{Tab: tab, Loading: c.deps.Print.Loading(), PrintItems: c.deps.Print.List()}
	}
	return ConsoleListing{Tab: tab, Loading: c.deps.DXF.Loading(), DXFFiles: c.deps.DXF.List()}
}

// Save updates the edited item or inserts a new one. On success the form is reset; on
// failure it keeps its values and the error is recorded.
func (c *Console) Save(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return "", ErrSaveInProgress
	}
	if err := c.form.Validate(c.validate); err != nil {
		c.lastErr = fmt.Sprintf("Error saving %s: %v", c.tab.ItemLabel(), err)
		c.mu.Unlock()
		return "", fmt.Errorf("invalid %s: %w", c.tab.ItemLabel(), err)
	}
	c.saving = true
	tab := c.tab
	editingID := c.editingID
	fields := c.form.Fields()
	c.mu.Unlock()

	id := editingID
	var err error
	if editingID != "" {
		err = c.deps.Docs.Update(ctx, tab.Collection(), editingID, fields)
	} else {
		id, err = c.deps.Docs.Insert(ctx, tab.Collection(), fields)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.saving = false
	if err != nil {
		log.Printf("Error saving %s: %v", tab.ItemLabel(), err)
		c.lastErr = fmt.Sprintf("Error saving %s: %v", tab.ItemLabel(), err)
		return "", fmt.Errorf("failed to save %s: %w", tab.ItemLabel(), err)
	}
	c.lastErr = ""
	c.resetLocked()
	return id, nil
}

// Delete removes an item of the active tab. Unconfirmed deletes are refused. Deleting the
// item being edited resets the form.
func (c *Console) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrDeleteNotConfirmed
	}

	c.mu.Lock()
	tab := c.tab
	c.mu.Unlock()

	if err := c.deps.Docs.Delete(ctx, tab.Collection(), id); err != nil {
		log.Printf("Error deleting %s %s: %v", tab.ItemLabel(), id, err)
		c.mu.Lock()
		c.lastErr = fmt.Sprintf("Error deleting %s: %v", tab.ItemLabel(), err)
		c.mu.Unlock()
		return fmt.Errorf("failed to delete %s: %w", tab.ItemLabel(), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editingID == id {
		c.resetLocked()
	}
	c.lastErr = ""
	return nil
}

// UploadImage stores an image under the active tab's folder and writes its URL into the
// form. Progress is visible through State while the upload runs.
func (c *Console) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return "", ErrUploadInProgress
	}
	c.uploading = true
	c.progress = 0
	folder := c.tab.ImageFolder()
	c.mu.Unlock()

	url, err := c.deps.Uploads.Upload(ctx, folder, filename, r, func(percent int) {
		c.mu.Lock()
		c.progress = percent
		c.mu.Unlock()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploading = false
	if err != nil {
		log.Printf("Image upload error: %v", err)
		c.lastErr = fmt.Sprintf("Error uploading image: %v", err)
		return "", err
	}
	c.form.SetImage(url)
	c.lastErr = ""
	return url, nil
}

// ConsoleRegistry keeps one console per admin principal.
type ConsoleRegistry struct {
	deps ConsoleDeps

	mu       sync.Mutex
	consoles map[string]*Console
}

// NewConsoleRegistry creates a new ConsoleRegistry.
func NewConsoleRegistry(deps ConsoleDeps) *ConsoleRegistry {
	return &ConsoleRegistry{
		deps:     deps,
		consoles: make(map[string]*Console),
	}
}

// Get returns the console of a principal, creating it on first use.
func (r *ConsoleRegistry) Get(principalID string) *Console {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.consoles[principalID]
	if !ok {
		c = NewConsole(r.deps)
		r.consoles[principalID] = c
	}
	return c
}

// HandleSessionChange resets the console of a principal that signed out.
func (r *ConsoleRegistry) HandleSessionChange(p Principal, s Session) {
	if s.LoggedIn() {
		return
	}
	r.mu.Lock()
	c, ok := r.consoles[p.ID]
	r.mu.Unlock()
	if ok {
		c.Reset()
	}
}
