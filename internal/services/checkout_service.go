package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"hightech/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CheckoutState is the stage of a checkout.
type CheckoutState string

const (
	StateAwaitingInput CheckoutState = "awaiting_input"
	StateProcessing    CheckoutState = "processing"
	StateCompleted     CheckoutState = "completed"
)

// Messages shown to shoppers.
const (
	IncompleteFormMessage = "Please complete all fields."
	EmptyCartNotice       = "Your cart is empty. Add DXF files before checking out."
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrIncompleteForm     = errors.New("checkout form is incomplete")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// CheckoutConfig tunes totals and order id synthesis. Now and Sleep default to the
// wall clock.
type CheckoutConfig struct {
	TaxRate       decimal.Decimal
	SettleDelay   time.Duration
	OrderIDPrefix string
	Now           func() time.Time
	Sleep         func(time.Duration)
}

// DefaultCheckoutConfig is 16% tax, a 1.2s settling delay and HTE- order ids.
func DefaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		TaxRate:       decimal.NewFromFloat(0.16),
		SettleDelay:   1200 * time.Millisecond,
		OrderIDPrefix: "HTE-",
	}
}

// CheckoutView is what the checkout page renders.
type CheckoutView struct {
	State  CheckoutState     `json:"state"`
	Items  []models.LineItem `json:"items"`
	Totals models.Totals     `json:"totals"`
}

// CheckoutService turns a cart into a synthetic order. No payment is captured and no order
// is stored.
type CheckoutService struct {
	carts     *CartService
	publisher EventPublisher
	validate  *validator.Validate
	cfg       CheckoutConfig

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewCheckoutService creates a new CheckoutService. publisher may be nil.
func NewCheckoutService(carts *CartService, publisher EventPublisher, cfg CheckoutConfig) *CheckoutService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	return &CheckoutService{
		carts:     carts,
		publisher: publisher,
		validate:  validator.New(),
		cfg:       cfg,
		inFlight:  make(map[string]bool),
	}
}

// ComputeTotals applies the tax rate to subtotal, rounding half up to a whole unit.
func (s *CheckoutService) ComputeTotals(subtotal int64) models.Totals {
	tax := decimal.NewFromInt(subtotal).Mul(s.cfg.TaxRate).Round(0).IntPart()
	return models.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}

// View returns the current checkout page state. An empty cart cannot be checked out.
func (s *CheckoutService) View(ctx context.Context, cartID string) (CheckoutView, error) {
	summary := s.carts.Summary(ctx, cartID)

	state := StateAwaitingInput
	if s.processing(cartID) {
		state = StateProcessing
	} else if len(summary.Items) == 0 {
		return CheckoutView{}, ErrEmptyCart
	}

	return CheckoutView{
		State:  state,
		Items:  summary.Items,
		Totals: s.ComputeTotals(summary.Subtotal),
	}, nil
}

func (s *CheckoutService) processing(cartID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[cartID]
}

func (s *CheckoutService) begin(cartID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[cartID] {
		return false
	}
	s.inFlight[cartID] = true
	return true
}

func (s *CheckoutService) finish(cartID string) {
	s.mu.Lock()
	delete(s.inFlight, cartID)
	s.mu.Unlock()
}

// Submit validates the form and completes the checkout after the settling delay. Once the
// form is accepted the checkout cannot fail: the purchased lines are taken off the cart and a
// confirmation returned. Items added while the checkout settles stay in the cart.
func (s *CheckoutService) Submit(ctx context.Context, cartID string, form models.CheckoutForm) (*models.Confirmation, error) {
	if !s.begin(cartID) {
		return nil, ErrCheckoutInProgress
	}
	defer s.finish(cartID)

	summary := s.carts.Summary(ctx, cartID)
	if len(summary.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := s.validate.Struct(form); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompleteForm, err)
	}

	totals := s.ComputeTotals(summary.Subtotal)
	s.cfg.Sleep(s.cfg.SettleDelay)

	orderID := s.orderID()
	cart, release := s.carts.Open(ctx, cartID)
	if err := cart.Deduct(summary.Items); err != nil {
		log.Printf("Failed to deduct checkout %s from cart %s: %v", orderID, cartID, err)
	}
	release()

	confirmation := &models.Confirmation{
		OrderID: orderID,
		Total:   totals.Total,
		Email:   form.Email,
	}
	publishEvent(s.publisher, EventCheckoutComplete, map[string]interface{}{
		"order_id": orderID,
		"email":    form.Email,
		"items":    summary.Items,
		"subtotal": totals.Subtotal,
		"tax":      totals.Tax,
		"total":    totals.Total,
	})
	return confirmation, nil
}

// orderID is the prefix followed by the last six digits of the current unix time in ms.
func (s *CheckoutService) orderID() string {
	ms := strconv.FormatInt(s.cfg.Now().UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return s.cfg.OrderIDPrefix + ms
}

// ConfirmationFor builds the confirmation view of orderID. Total and email come from the
// checkout context when there is one, and fall back to 0 and "your email".
func ConfirmationFor(orderID string, c *models.Confirmation) models.Confirmation {
	out := models.Confirmation{OrderID: orderID, Total: 0, Email: "your email"}
	if c == nil {
		return out
	}
	out.Total = c.Total
	if c.Email != "" {
		out.Email = c.Email
	}
	return out
}
