package services

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"hightech/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

// Tab selects which collection the admin console edits.
type Tab string

const (
	TabDXF   Tab = "dxf"
	TabPrint Tab = "print"
)

var (
	ErrUnknownTab   = errors.New("unknown tab")
	ErrUnknownField = errors.New("unknown form field")
	ErrInvalidField = errors.New("invalid form field value")
)

// ParseTab validates a tab name.
func ParseTab(s string) (Tab, error) {
	switch Tab(s) {
	case TabDXF, TabPrint:
		return Tab(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
}

// Collection is the document collection edited under the tab.
func (t Tab) Collection() string {
	if t == TabPrint {
		return models.CollectionPrintItems
	}
	return models.CollectionDXFFiles
}

// ImageFolder is the object storage folder for images uploaded under the tab.
func (t Tab) ImageFolder() string {
	if t == TabPrint {
		return FolderPrintImages
	}
	return FolderDXFImages
}

// ItemLabel names the kind of item edited under the tab.
func (t Tab) ItemLabel() string {
	if t == TabPrint {
		return "printing item"
	}
	return "DXF file"
}

// ItemForm is the edit form of one tab. It is either a *CutFileForm or a *PrintItemForm.
type ItemForm interface {
	Tab() Tab
	// Fields is the document payload written on save.
	Fields() map[string]interface{}
	SetField(name string, raw interface{}) error
	SetImage(url string)
	Validate(v *validator.Validate) error
	clone() ItemForm
}

// NewForm returns the default form of a tab.
func NewForm(tab Tab) ItemForm {
	if tab == TabPrint {
		return DefaultPrintItemForm()
	}
	return DefaultCutFileForm()
}

// CutFileForm edits a document of the dxfFiles collection.
type CutFileForm struct {
	Name        string  `json:"name" validate:"required"`
	Price       int64   `json:"price" validate:"gte=0"`
	Category    string  `json:"category"`
	Complexity  string  `json:"complexity"`
	Format      string  `json:"format"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Downloads   int64   `json:"downloads" validate:"gte=0"`
	Rating      float64 `json:"rating" validate:"gte=0,lte=5"`
}

// DefaultCutFileForm is the blank DXF form.
func DefaultCutFileForm() *CutFileForm {
	return &CutFileForm{
		Category:   "Mechanical",
		Complexity: "Beginner",
		Format:     "DXF",
		Rating:     4.5,
	}
}

// CutFileFormFrom fills the form from a stored file, using defaults for blank fields.
func CutFileFormFrom(f models.DXFFile) *CutFileForm {
	form := DefaultCutFileForm()
	form.Name = f.Name
	form.Price = f.Price
	form.Description = f.Description
	form.Image = f.Image
	form.Downloads = f.Downloads
	if f.Category != "" {
		form.Category = f.Category
	}
	if f.Complexity != "" {
		form.Complexity = f.Complexity
	}
	if f.Format != "" {
		form.Format = f.Format
	}
	if f.Rating != 0 {
		form.Rating = f.Rating
	}
	return form
}

func (f *CutFileForm) Tab() Tab { return TabDXF }

func (f *CutFileForm) clone() ItemForm {
	c := *f
	return &c
}

func (f *CutFileForm) SetImage(url string) { f.Image = url }

func (f *CutFileForm) Validate(v *validator.Validate) error {
	return v.Struct(f)
}

func (f *CutFileForm) Fields() map[string]interface{} {
	return map[string]interface{}{
		"name":        f.Name,
		"price":       f.Price,
		"category":    f.Category,
		"complexity":  f.Complexity,
		"format":      f.Format,
		"description": f.Description,
		"image":       f.Image,
		"downloads":   f.Downloads,
		"rating":      f.Rating,
	}
}

func (f *CutFileForm) SetField(name string, raw interface{}) error {
	switch name {
	case "name":
		return setWith(&f.Name, toString, name, raw)
	case "category":
		return setWith(&f.Category, toString, name, raw)
	case "complexity":
		return setWith(&f.Complexity, toString, name, raw)
	case "format":
		return setWith(&f.Format, toString, name, raw)
	case "description":
		return setWith(&f.Description, toString, name, raw)
	case "image":
		return setWith(&f.Image, toString, name, raw)
	case "price":
		return setWith(&f.Price, toWhole, name, raw)
	case "downloads":
		return setWith(&f.Downloads, toWhole, name, raw)
	case "rating":
		return setWith(&f.Rating, toNumber, name, raw)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
}

// PrintItemForm edits a document of the printingItems collection.
type PrintItemForm struct {
	Name          string  `json:"name" validate:"required"`
	Price         int64   `json:"price" validate:"gte=0"`
	Category      string  `json:"category"`
	Material      string  `json:"material"`
	PrintTime     string  `json:"printTime"`
	Description   string  `json:"description"`
	Image         string  `json:"image"`
	Orders        int64   `json:"orders" validate:"gte=0"`
	Rating        float64 `json:"rating" validate:"gte=0,lte=5"`
	RushAvailable bool    `json:"rushAvailable"`
}

// DefaultPrintItemForm is the blank printing item form.
func DefaultPrintItemForm() *PrintItemForm {
	return &PrintItemForm{
		Category:  "Figurines",
		Material:  "PLA",
		PrintTime: "2-3 days",
		Rating:    4.5,
	}
}

// PrintItemFormFrom fills the form from a stored item, using defaults for blank fields.
func PrintItemFormFrom(p models.PrintItem) *PrintItemForm {
	form := DefaultPrintItemForm()
	form.Name = p.Name
	form.Price = p.Price
	form.Description = p.Description
	form.Image = p.Image
	form.Orders = p.Orders
	form.RushAvailable = p.RushAvailable
	if p.Category != "" {
		form.Category = p.Category
	}
	if p.Material != "" {
		form.Material = p.Material
	}
	if p.PrintTime != "" {
		form.PrintTime = p.PrintTime
	}
	if p.Rating != 0 {
		form.Rating = p.Rating
	}
	return form
}

func (f *PrintItemForm) Tab() Tab { return TabPrint }

func (f *PrintItemForm) clone() ItemForm {
	c := *f
	return &c
}

func (f *PrintItemForm) SetImage(url string) { f.Image = url }

func (f *PrintItemForm) Validate(v *validator.Validate) error {
	return v.Struct(f)
}

func (f *PrintItemForm) Fields() map[string]interface{} {
	return map[string]interface{}{
		"name":          f.Name,
		"price":         f.Price,
		"category":      f.Category,
		"material":      f.Material,
		"printTime":     f.PrintTime,
		"description":   f.Description,
		"image":         f.Image,
		"orders":        f.Orders,
		"rating":        f.Rating,
		"rushAvailable": f.RushAvailable,
	}
}

func (f *PrintItemForm) SetField(name string, raw interface{}) error {
	switch name {
	case "name":
		return setWith(&f.Name, toString, name, raw)
	case "category":
		return setWith(&f.Category, toString, name, raw)
	case "material":
		return setWith(&f.Material, toString, name, raw)
	case "printTime":
		return setWith(&f.PrintTime, toString, name, raw)
	case "description":
		return setWith(&f.Description, toString, name, raw)
	case "image":
		return setWith(&f.Image, toString, name, raw)
	case "price":
		return setWith(&f.Price, toWhole, name, raw)
	case "orders":
		return setWith(&f.Orders, toWhole, name, raw)
	case "rating":
		return setWith(&f.Rating, toNumber, name, raw)
	case "rushAvailable":
		return setWith(&f.RushAvailable, toBool, name, raw)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
}

// setWith converts raw and stores it in dst. dst is left alone when the conversion fails.
func setWith[T any](dst *T, convert func(string, interface{}) (T, error), name string, raw interface{}) error {
	v, err := convert(name, raw)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func toString(name string, raw interface{}) (string, error) {
	s, err := cast.ToStringE(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidField, name, err)
	}
	return s, nil
}

func toNumber(name string, raw interface{}) (float64, error) {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		raw = s
	}
	n, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidField, name)
	}
	return n, nil
}

func toWhole(name string, raw interface{}) (int64, error) {
	n, err := toNumber(name, raw)
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) {
		return 0, fmt.Errorf("%w: %s must be a whole number", ErrInvalidField, name)
	}
	return int64(n), nil
}

func toBool(name string, raw interface{}) (bool, error) {
	if s, ok := raw.(string); ok && strings.EqualFold(strings.TrimSpace(s), "on") {
		return true, nil
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", ErrInvalidField, name)
	}
	return b, nil
}
