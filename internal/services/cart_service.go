package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"hightech/internal/models"
	"hightech/internal/repositories"

	"github.com/cespare/xxhash/v2"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidQuantity is returned when a quantity input is not a whole number.
	ErrInvalidQuantity = errors.New("quantity must be a whole number")
	// ErrCartUnavailable is returned by mutations of a cart whose stored state could not be read.
	ErrCartUnavailable = errors.New("cart unavailable")
)

const cartLockStripes = 64

// CartService opens carts by id. Every open cart holds the lock of its stripe until released,
// so mutations of one cart never interleave.
type CartService struct {
	storage  repositories.CartStorage
	validate *validator.Validate
	locks    [cartLockStripes]sync.Mutex
}

// NewCartService creates a new CartService.
func NewCartService(storage repositories.CartStorage) *CartService {
	return &CartService{
		storage:  storage,
		validate: validator.New(),
	}
}

func (s *CartService) lock(cartID string) *sync.Mutex {
	return &s.locks[xxhash.Sum64String(cartID)%cartLockStripes]
}

// Open locks and restores the cart identified by cartID. The returned release func must be
// called once the caller is done with the manager.
func (s *CartService) Open(ctx context.Context, cartID string) (*CartManager, func()) {
	mu := s.lock(cartID)
	mu.Lock()

	m := &CartManager{
		ctx:      ctx,
		cartID:   cartID,
		storage:  s.storage,
		validate: s.validate,
	}
	if err := m.restore(); err != nil {
		log.Printf("Failed to load cart %s: %v", cartID, err)
		m.loadErr = err
	}
	return m, mu.Unlock
}

// Summary returns a read-only view of a cart.
func (s *CartService) Summary(ctx context.Context, cartID string) models.CartSummary {
	m, release := s.Open(ctx, cartID)
	defer release()
	return m.Summary()
}

// CartManager owns the line items of one cart and writes them back on every mutation.
type CartManager struct {
	ctx      context.Context
	cartID   string
	storage  repositories.CartStorage
	validate *validator.Validate
	items    []models.LineItem
	loadErr  error
}

// restore reads the stored lines. Unreadable data yields an empty cart; a storage error is
// returned so the stored cart is never overwritten with a blank one.
func (m *CartManager) restore() error {
	m.items = []models.LineItem{}

	data, err := m.storage.Load(m.ctx, m.cartID)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var stored []models.LineItem
	if err := json.Unmarshal(data, &stored); err != nil {
		log.Printf("Discarding unreadable cart %s: %v", m.cartID, err)
		return nil
	}

	seen := make(map[string]bool, len(stored))
	for _, item := range stored {
		if item.ID == "" || item.Quantity < 1 || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		m.items = append(m.items, item)
	}
	return nil
}

// writable reports whether the cart was restored and may be changed.
func (m *CartManager) writable() error {
	if m.loadErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrCartUnavailable, m.cartID, m.loadErr)
	}
	return nil
}

func (m *CartManager) persist() error {
	data, err := json.Marshal(m.items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := m.storage.Save(m.ctx, m.cartID, data); err != nil {
		return fmt.Errorf("failed to save cart %s: %w", m.cartID, err)
	}
	return nil
}

func (m *CartManager) indexOf(id string) int {
	for i, item := range m.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// AddToCart increments the quantity of an existing line or appends a new line with quantity 1.
// Name and price are captured only on the first add.
func (m *CartManager) AddToCart(item models.CartItem) error {
	if err := m.validate.Struct(item); err != nil {
		return fmt.Errorf("invalid cart item: %w", err)
	}
	if err := m.writable(); err != nil {
		return err
	}

	if i := m.indexOf(item.ID); i >= 0 {
		m.items[i].Quantity++
	} else {
		m.items = append(m.items, models.LineItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Type:     item.Type,
			Quantity: 1,
		})
	}
	return m.persist()
}

// RemoveFromCart drops the line with the given id. Missing ids are a no-op.
func (m *CartManager) RemoveFromCart(id string) error {
	if err := m.writable(); err != nil {
		return err
	}
	i := m.indexOf(id)
	if i < 0 {
		return m.persist()
	}
	m.items = append(m.items[:i], m.items[i+1:]...)
	return m.persist()
}

// UpdateQuantity sets the quantity of a line; a quantity of zero or less removes it.
func (m *CartManager) UpdateQuantity(id string, quantity int) error {
	if err := m.writable(); err != nil {
		return err
	}
	if quantity <= 0 {
		return m.RemoveFromCart(id)
	}
	if i := m.indexOf(id); i >= 0 {
		m.items[i].Quantity = quantity
	}
	return m.persist()
}

// UpdateQuantityInput parses raw form input before applying UpdateQuantity. Empty or
// non-integer input returns ErrInvalidQuantity and leaves the cart untouched.
func (m *CartManager) UpdateQuantityInput(id, raw string) error {
	quantity, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}
	return m.UpdateQuantity(id, quantity)
}

// ClearCart empties the cart.
func (m *CartManager) ClearCart() error {
	if err := m.writable(); err != nil {
		return err
	}
	m.items = []models.LineItem{}
	return m.persist()
}

// Deduct takes the quantities of lines off the cart, as captured at checkout. A line left
// with no units is removed; lines not in the list are kept.
func (m *CartManager) Deduct(lines []models.LineItem) error {
	if err := m.writable(); err != nil {
		return err
	}
	for _, line := range lines {
		i := m.indexOf(line.ID)
		if i < 0 {
			continue
		}
		if m.items[i].Quantity <= line.Quantity {
			m.items = append(m.items[:i], m.items[i+1:]...)
			continue
		}
		m.items[i].Quantity -= line.Quantity
	}
	return m.persist()
}

// Items returns a copy of the line items in insertion order.
func (m *CartManager) Items() []models.LineItem {
	out := make([]models.LineItem, len(m.items))
	copy(out, m.items)
	return out
}

// Count is the total number of units in the cart.
func (m *CartManager) Count() int {
	count := 0
	for _, item := range m.items {
		count += item.Quantity
	}
	return count
}

// Subtotal is the sum of price × quantity over all lines.
func (m *CartManager) Subtotal() int64 {
	var subtotal int64
	for _, item := range m.items {
		subtotal += item.Price * int64(item.Quantity)
	}
	return subtotal
}

// Summary bundles items, count and subtotal.
func (m *CartManager) Summary() models.CartSummary {
	return models.CartSummary{
		Items:    m.Items(),
		Count:    m.Count(),
		Subtotal: m.Subtotal(),
	}
}
