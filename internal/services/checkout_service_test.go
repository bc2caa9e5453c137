package services_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"hightech/internal/models"
	"hightech/internal/repositories"
	"hightech/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var completeForm = models.CheckoutForm{
	Name:            "Wanjiru Kamau",
	Email:           "wanjiru@example.com",
	Phone:           "0712345678",
	TransactionCode: "QWE123RTY",
}

type checkoutFixture struct {
	carts    *services.CartService
	checkout *services.CheckoutService
	slept    []time.Duration
}

func newCheckoutFixture(t *testing.T, publisher services.EventPublisher) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{carts: services.NewCartService(repositories.NewMockCartStorage())}
	cfg := services.DefaultCheckoutConfig()
	cfg.Now = func() time.Time { return time.UnixMilli(1700000123456) }
	cfg.Sleep = func(d time.Duration) { f.slept = append(f.slept, d) }
	f.checkout = services.NewCheckoutService(f.carts, publisher, cfg)
	return f
}

func (f *checkoutFixture) add(t *testing.T, cartID string, items ...models.CartItem) {
	t.Helper()
	cart, release := f.carts.Open(context.Background(), cartID)
	defer release()
	for _, it := range items {
		require.NoError(t, cart.AddToCart(it))
	}
}

func TestCheckoutService_ComputeTotals(t *testing.T) {
	checkout := services.NewCheckoutService(nil, nil, services.DefaultCheckoutConfig())

	tests := []struct {
		subtotal int64
		want     models.Totals
	}{
		{1000, models.Totals{Subtotal: 1000, Tax: 160, Total: 1160}},
		{2500, models.Totals{Subtotal: 2500, Tax: 400, Total: 2900}},
		{0, models.Totals{}},
		{1003, models.Totals{Subtotal: 1003, Tax: 160, Total: 1163}},
		{1022, models.Totals{Subtotal: 1022, Tax: 164, Total: 1186}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, checkout.ComputeTotals(tt.subtotal), "subtotal %d", tt.subtotal)
	}
}

func TestCheckoutService_EmptyCartIsNotEnterable(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	ctx := context.Background()

	_, err := f.checkout.View(ctx, "c1")
	assert.ErrorIs(t, err, services.ErrEmptyCart)

	_, err = f.checkout.Submit(ctx, "c1", completeForm)
	assert.ErrorIs(t, err, services.ErrEmptyCart)
	assert.Empty(t, f.slept)
}

func TestCheckoutService_View(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	f.add(t, "c1", gearbox, gearbox, dragon)

	view, err := f.checkout.View(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, services.StateAwaitingInput, view.State)
	assert.Len(t, view.Items, 2)
	assert.Equal(t, models.Totals{Subtotal: 8500, Tax: 1360, Total: 9860}, view.Totals)
}

func TestCheckoutService_IncompleteFormStaysAwaitingInput(t *testing.T) {
	f := newCheckoutFixture(t, nil)
	f.add(t, "c1", gearbox)

	for _, form := range []models.CheckoutForm{
		{Email: "a@b.c", Phone: "1", TransactionCode: "x"},
		{Name: "n", Phone: "1", TransactionCode: "x"},
		{Name: "n", Email: "a@b.c", TransactionCode: "x"},
		{Name: "n", Email: "a@b.c", Phone: "1"},
		{},
	} {
		_, err := f.checkout.Submit(context.Background(), "c1", form)
		assert.ErrorIs(t, err, services.ErrIncompleteForm)
	}

	assert.Empty(t, f.slept, "no processing for invalid forms")
	assert.Equal(t, 1, f.carts.Summary(context.Background(), "c1").Count, "cart untouched")

	view, err := f.checkout.View(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, services.StateAwaitingInput, view.State)
}

func TestCheckoutService_Submit(t *testing.T) {
	publisher := new(MockPublisher)
	publisher.On("Publish", services.EventsExchange, services.EventCheckoutComplete, mock.Anything).Return(nil).Once()

	f := newCheckoutFixture(t, publisher)
	f.add(t, "c1", models.CartItem{ID: "x", Name: "Panel", Price: 1000, Type: models.KindDXF})

	confirmation, err := f.checkout.Submit(context.Background(), "c1", completeForm)
	require.NoError(t, err)

	assert.Equal(t, "HTE-123456", confirmation.OrderID)
	assert.Equal(t, int64(1160), confirmation.Total)
	assert.Equal(t, "wanjiru@example.com", confirmation.Email)
	assert.Equal(t, []time.Duration{1200 * time.Millisecond}, f.slept)
	assert.Equal(t, 0, f.carts.Summary(context.Background(), "c1").Count, "cart cleared")

	publisher.AssertExpectations(t)
	body := publisher.Calls[0].Arguments.Get(2).([]byte)
	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &event))
	assert.Equal(t, "HTE-123456", event["order_id"])
	assert.EqualValues(t, 1160, event["total"])
}

func TestCheckoutService_PublishFailureDoesNotFailCheckout(t *testing.T) {
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	f := newCheckoutFixture(t, publisher)
	f.add(t, "c1", gearbox)

	confirmation, err := f.checkout.Submit(context.Background(), "c1", completeForm)
	require.NoError(t, err)
	assert.Equal(t, int64(4060), confirmation.Total)
}

func TestCheckoutService_KeepsItemsAddedWhileSettling(t *testing.T) {
	ctx := context.Background()
	carts := services.NewCartService(repositories.NewMockCartStorage())
	cfg := services.DefaultCheckoutConfig()
	cfg.Sleep = func(time.Duration) {
		cart, release := carts.Open(ctx, "c1")
		defer release()
		require.NoError(t, cart.AddToCart(gearbox))
		require.NoError(t, cart.AddToCart(dragon))
	}
	checkout := services.NewCheckoutService(carts, nil, cfg)

	cart, release := carts.Open(ctx, "c1")
	require.NoError(t, cart.AddToCart(gearbox))
	release()

	confirmation, err := checkout.Submit(ctx, "c1", completeForm)
	require.NoError(t, err)
	assert.Equal(t, int64(4060), confirmation.Total, "only the reviewed cart is charged")

	summary := carts.Summary(ctx, "c1")
	require.Len(t, summary.Items, 2)
	assert.Equal(t, "gearbox", summary.Items[0].ID)
	assert.Equal(t, 1, summary.Items[0].Quantity)
	assert.Equal(t, "dragon", summary.Items[1].ID)
	assert.Equal(t, 1, summary.Items[1].Quantity)
}

func TestCheckoutService_SecondSubmitWhileProcessing(t *testing.T) {
	carts := services.NewCartService(repositories.NewMockCartStorage())
	cart, release := carts.Open(context.Background(), "c1")
	require.NoError(t, cart.AddToCart(gearbox))
	release()

	entered := make(chan struct{})
	proceed := make(chan struct{})
	cfg := services.DefaultCheckoutConfig()
	cfg.Sleep = func(time.Duration) {
		close(entered)
		<-proceed
	}
	checkout := services.NewCheckoutService(carts, nil, cfg)

	var wg sync.WaitGroup
	wg.Add(1)
	var first *models.Confirmation
	go func() {
		defer wg.Done()
		var err error
		first, err = checkout.Submit(context.Background(), "c1", completeForm)
		assert.NoError(t, err)
	}()

	<-entered
	view, err := checkout.View(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, services.StateProcessing, view.State)

	_, err = checkout.Submit(context.Background(), "c1", completeForm)
	assert.ErrorIs(t, err, services.ErrCheckoutInProgress)

	close(proceed)
	wg.Wait()
	require.NotNil(t, first)
	assert.Regexp(t, `^HTE-\d{6}$`, first.OrderID)
}

func TestConfirmationFor(t *testing.T) {
	got := services.ConfirmationFor("HTE-000001", nil)
	assert.Equal(t, models.Confirmation{OrderID: "HTE-000001", Total: 0, Email: "your email"}, got)

	got = services.ConfirmationFor("HTE-000002", &models.Confirmation{OrderID: "HTE-000002", Total: 1160, Email: "a@b.c"})
	assert.Equal(t, models.Confirmation{OrderID: "HTE-000002", Total: 1160, Email: "a@b.c"}, got)

	got = services.ConfirmationFor("HTE-000003", &models.Confirmation{Total: 10})
	assert.Equal(t, "your email", got.Email)
	assert.Equal(t, int64(10), got.Total)
}
