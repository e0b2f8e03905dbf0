package services

import (
	"context"
	"errors"
	"testing"

	"github.com/siacollections/storefront/internal/domain"
)

type stubOrders struct {
	createFn func(context.Context, CreateOrderCommand) (domain.Order, error)
	created  []CreateOrderCommand
}

func (s *stubOrders) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	s.created = append(s.created, cmd)
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Order{
		ID:            "SIA20250623042",
		Customer:      cmd.Customer,
		Address:       cmd.Address,
		PaymentMethod: cmd.PaymentMethod,
		Items:         cmd.Items,
		Notes:         cmd.Notes,
		Summary:       cmd.Summary,
		Status:        domain.OrderStatusProcessing,
		PlacedAt:      fixedClock(),
	}, nil
}

func (s *stubOrders) GetOrder(context.Context, string) (domain.Order, error) {
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrders) ListRecent(context.Context, int) ([]domain.Order, error) {
	return nil, nil
}

func (s *stubOrders) Stats(context.Context) (domain.StoreStats, error) {
	return domain.StoreStats{}, nil
}

type checkoutHarness struct {
	svc    CheckoutService
	cart   CartService
	repo   *memCartRepo
	orders *stubOrders
}

func newCheckoutHarness(t *testing.T) *checkoutHarness {
	t.Helper()

	catalog := catalogWithProducts(
		domain.Product{ID: "p1", Name: "Makeup Kit", Price: 2000},
		domain.Product{ID: "p2", Name: "Skin Care Set", Price: 1500},
	)
	repo := newMemCartRepo()
	cart := newTestCartService(t, repo, catalog)
	orders := &stubOrders{}

	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Cart:        cart,
		Orders:      orders,
		Pricing:     NewPricingEngine(testStoreConfig()),
		DefaultCity: "dhaka",
	})
	if err != nil {
		t.Fatalf("NewCheckoutService: %v", err)
	}
	return &checkoutHarness{svc: svc, cart: cart, repo: repo, orders: orders}
}

// fillCart seeds the canonical test cart: 1x2000 + 2x1500, subtotal 5000.
func (h *checkoutHarness) fillCart(t *testing.T, cartID string) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.cart.AddItem(ctx, AddItemCommand{CartID: cartID, ProductID: "p1", Quantity: 1}); err != nil {
		t.Fatalf("AddItem p1: %v", err)
	}
	if _, err := h.cart.AddItem(ctx, AddItemCommand{CartID: cartID, ProductID: "p2", Quantity: 2}); err != nil {
		t.Fatalf("AddItem p2: %v", err)
	}
}

func (h *checkoutHarness) fillFields(t *testing.T, cartID string) {
	t.Helper()
	_, err := h.svc.SetFields(context.Background(), SetCheckoutFieldsCommand{
		CartID:    cartID,
		FirstName: strPtr("Sadia"),
		LastName:  strPtr("Islam"),
		Email:     strPtr("sadia@example.com"),
		Phone:     strPtr("01700000000"),
		Address:   strPtr("12 Green Road"),
	})
	if err != nil {
		t.Fatalf("SetFields: %v", err)
	}
}

func (h *checkoutHarness) advanceToReview(t *testing.T, cartID string) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := h.svc.Continue(ctx, cartID); err != nil {
			t.Fatalf("Continue %d: %v", i, err)
		}
	}
}

func strPtr(s string) *string { return &s }

func TestCheckoutGetCreatesSessionWithDefaults(t *testing.T) {
	h := newCheckoutHarness(t)
	h.fillCart(t, "c1")

	view, err := h.svc.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Step != StepCustomerInfo {
		t.Fatalf("expected first step, got %s", view.Step)
	}
	if view.Address.City != "dhaka" || view.PaymentMethod != domain.PaymentMethodCard {
		t.Fatalf("expected dhaka/card defaults, got %s/%s", view.Address.City, view.PaymentMethod)
	}
	want := domain.OrderSummary{Subtotal: 5000, Shipping: 100, Total: 5100}
	if view.Summary != want {
		t.Fatalf("expected summary %+v, got %+v", want, view.Summary)
	}
}

func TestCheckoutNavigationBounds(t *testing.T) {
	h := newCheckoutHarness(t)
	ctx := context.Background()

	// Previous at the first step stays put.
	view, err := h.svc.Previous(ctx, "c1")
	if err != nil {
		t.Fatalf("Previous: %v", err)
	}
	if view.Step != StepCustomerInfo {
		t.Fatalf("expected to stay at customer_info, got %s", view.Step)
	}

	steps := []CheckoutStep{StepShippingInfo, StepPayment, StepReview, StepReview}
	for i, want := range steps {
		view, err = h.svc.Continue(ctx, "c1")
		if err != nil {
			t.Fatalf("Continue %d: %v", i, err)
		}
		if view.Step != want {
			t.Fatalf("step %d: expected %s, got %s", i, want, view.Step)
		}
	}

	back := []CheckoutStep{StepPayment, StepShippingInfo, StepCustomerInfo, StepCustomerInfo}
	for i, want := range back {
		view, err = h.svc.Previous(ctx, "c1")
		if err != nil {
			t.Fatalf("Previous %d: %v", i, err)
		}
		if view.Step != want {
			t.Fatalf("back step %d: expected %s, got %s", i, want, view.Step)
		}
	}
}

func TestCheckoutSummaryTracksCityAndMethod(t *testing.T) {
	h := newCheckoutHarness(t)
	h.fillCart(t, "c1")
	ctx := context.Background()

	view, err := h.svc.SetFields(ctx, SetCheckoutFieldsCommand{
		CartID:        "c1",
		City:          strPtr("chittagong"),
		PaymentMethod: strPtr("cod"),
	})
	if err != nil {
		t.Fatalf("SetFields: %v", err)
	}
	want := domain.OrderSummary{Subtotal: 5000, Shipping: 200, CODCharge: 50, Total: 5250}
	if view.Summary != want {
		t.Fatalf("expected summary %+v, got %+v", want, view.Summary)
	}

	// Switching back to card drops the surcharge on the next read.
	view, err = h.svc.SetFields(ctx, SetCheckoutFieldsCommand{CartID: "c1", PaymentMethod: strPtr("card")})
	if err != nil {
		t.Fatalf("SetFields card: %v", err)
	}
	if view.Summary.CODCharge != 0 || view.Summary.Total != 5200 {
		t.Fatalf("expected surcharge dropped, got %+v", view.Summary)
	}
}

func TestCheckoutSetFieldsRejectsUnknownMethod(t *testing.T) {
	h := newCheckoutHarness(t)

	_, err := h.svc.SetFields(context.Background(), SetCheckoutFieldsCommand{
		CartID:        "c1",
		PaymentMethod: strPtr("paypal"),
	})
	if !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected ErrCheckoutInvalidInput, got %v", err)
	}
}

func TestCheckoutSubmitHappyPath(t *testing.T) {
	h := newCheckoutHarness(t)
	h.fillCart(t, "c1")
	h.fillFields(t, "c1")
	h.advanceToReview(t, "c1")
	ctx := context.Background()

	view, err := h.svc.Submit(ctx, "c1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if view.Step != StepCompleted {
		t.Fatalf("expected completed, got %s (errors %v)", view.Step, view.FieldErrors)
	}
	if view.Order == nil {
		t.Fatal("expected order on the completed view")
	}
	if view.Order.Summary.Total != 5100 {
		t.Fatalf("expected order total 5100, got %d", view.Order.Summary.Total)
	}
	if len(h.orders.created) != 1 {
		t.Fatalf("expected exactly one create call, got %d", len(h.orders.created))
	}
	if len(h.orders.created[0].Items) != 2 {
		t.Fatalf("expected 2 snapshotted items, got %d", len(h.orders.created[0].Items))
	}

	cartView, err := h.cart.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("cart Get: %v", err)
	}
	if cartView.ItemCount != 0 {
		t.Fatalf("expected cart cleared after completion, got %d items", cartView.ItemCount)
	}
}

func TestCheckoutSubmitValidatesRequiredFields(t *testing.T) {
	h := newCheckoutHarness(t)
	h.fillCart(t, "c1")
	h.advanceToReview(t, "c1")

	view, err := h.svc.Submit(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if view.Step != StepReview {
		t.Fatalf("expected to stay in review, got %s", view.Step)
	}
	for _, field := range []string{"first_name", "last_name", "email", "phone", "address"} {
		if view.FieldErrors[field] == "" {
			t.Fatalf("expected error for %s, got %v", field, view.FieldErrors)
		}
	}
	if len(h.orders.created) != 0 {
		t.Fatalf("expected no order created, got %d", len(h.orders.created))
	}
}

func TestCheckoutSubmitRejectsEmptyCart(t *testing.T) {
	h := newCheckoutHarness(t)
	h.fillFields(t, "c1")
	h.advanceToReview(t, "c1")

	view, err := h.svc.Submit(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if view.Step != StepReview {
		t.Fatalf("expected to stay in review, got %s", view.Step)
	}
	if view.FieldErrors["cart"] == "" {
		t.Fatalf("expected empty-cart error, got %v", view.FieldErrors)
	}
}

func TestCheckoutSubmitFromEarlyStepIsRejected(t *testing.T) {
	h := newCheckoutHarness(t)
	h.fillCart(t, "c1")

	_, err := h.svc.Submit(context.Background(), "c1")
	if !errors.Is(err, ErrCheckoutInvalidState) {
		t.Fatalf("expected ErrCheckoutInvalidState, got %v", err)
	}
}

func TestCheckoutSubmitFailureKeepsCartAndAllowsRetry(t *testing.T) {
	h := newCheckoutHarness(t)
	h.fillCart(t, "c1")
	h.fillFields(t, "c1")
	h.advanceToReview(t, "c1")
	ctx := context.Background()

	h.orders.createFn = func(context.Context, CreateOrderCommand) (domain.Order, error) {
		return domain.Order{}, ErrOrderUnavailable
	}

	view, err := h.svc.Submit(ctx, "c1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if view.Step != StepFailed {
		t.Fatalf("expected failed, got %s", view.Step)
	}

	cartView, err := h.cart.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("cart Get: %v", err)
	}
	if cartView.ItemCount != 3 {
		t.Fatalf("expected cart untouched after failure, got %d items", cartView.ItemCount)
	}

	// The backend recovers and the retry goes through.
	h.orders.createFn = nil
	view, err = h.svc.Submit(ctx, "c1")
	if err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if view.Step != StepCompleted {
		t.Fatalf("expected completed after retry, got %s", view.Step)
	}
}

func TestCheckoutSubmitAfterCompletionReturnsExistingOrder(t *testing.T) {
	h := newCheckoutHarness(t)
	h.fillCart(t, "c1")
	h.fillFields(t, "c1")
	h.advanceToReview(t, "c1")
	ctx := context.Background()

	first, err := h.svc.Submit(ctx, "c1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	second, err := h.svc.Submit(ctx, "c1")
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if second.Step != StepCompleted || second.Order == nil {
		t.Fatalf("expected completed view with order, got %+v", second)
	}
	if second.Order.ID != first.Order.ID {
		t.Fatalf("expected same order id, got %s vs %s", second.Order.ID, first.Order.ID)
	}
	if len(h.orders.created) != 1 {
		t.Fatalf("expected exactly one create call, got %d", len(h.orders.created))
	}
}

func TestCheckoutCompletedViewKeepsFrozenSummary(t *testing.T) {
	h := newCheckoutHarness(t)
	h.fillCart(t, "c1")
	h.fillFields(t, "c1")
	h.advanceToReview(t, "c1")
	ctx := context.Background()

	// The cart is cleared on completion, but the confirmation must keep the
	// order totals rather than recompute over the emptied cart.
	view, err := h.svc.Submit(ctx, "c1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if view.Summary.Total != 5100 || view.Summary.Subtotal != 5000 {
		t.Fatalf("expected frozen totals 5100/5000, got %+v", view.Summary)
	}

	// So must the idempotent resubmission view.
	view, err = h.svc.Submit(ctx, "c1")
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if view.Summary.Total != 5100 || view.Summary.Subtotal != 5000 {
		t.Fatalf("expected frozen totals on resubmit, got %+v", view.Summary)
	}
}

func TestCheckoutRestartsAfterCompletedOrder(t *testing.T) {
	h := newCheckoutHarness(t)
	h.fillCart(t, "c1")
	h.fillFields(t, "c1")
	h.advanceToReview(t, "c1")
	ctx := context.Background()

	if view, err := h.svc.Submit(ctx, "c1"); err != nil || view.Step != StepCompleted {
		t.Fatalf("first Submit: step %s, err %v", view.Step, err)
	}

	// The shopper comes back and fills the cart again. The next checkout
	// visit starts a fresh flow instead of replaying the old confirmation.
	h.fillCart(t, "c1")
	view, err := h.svc.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Step != StepCustomerInfo {
		t.Fatalf("expected fresh flow, got step %s", view.Step)
	}
	if view.Order != nil {
		t.Fatalf("expected no order on the fresh flow, got %s", view.Order.ID)
	}
	if view.Customer.FirstName != "" {
		t.Fatalf("expected blank form, got %+v", view.Customer)
	}

	h.fillFields(t, "c1")
	h.advanceToReview(t, "c1")
	view, err = h.svc.Submit(ctx, "c1")
	if err != nil {
		t.Fatalf("second order Submit: %v", err)
	}
	if view.Step != StepCompleted || view.Order == nil {
		t.Fatalf("expected second order completed, got %+v", view)
	}
	if len(h.orders.created) != 2 {
		t.Fatalf("expected two create calls, got %d", len(h.orders.created))
	}
	if len(h.orders.created[1].Items) != 2 {
		t.Fatalf("expected 2 snapshotted items on the second order, got %d", len(h.orders.created[1].Items))
	}
}

func TestCheckoutConcurrentSubmitCreatesOneOrder(t *testing.T) {
	h := newCheckoutHarness(t)
	h.fillCart(t, "c1")
	h.fillFields(t, "c1")
	h.advanceToReview(t, "c1")
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	h.orders.createFn = func(_ context.Context, cmd CreateOrderCommand) (domain.Order, error) {
		close(entered)
		<-release
		return domain.Order{
			ID:      "SIA20250623042",
			Items:   cmd.Items,
			Summary: cmd.Summary,
			Status:  domain.OrderStatusProcessing,
		}, nil
	}

	type submitResult struct {
		view CheckoutView
		err  error
	}
	done := make(chan submitResult, 1)
	go func() {
		view, err := h.svc.Submit(ctx, "c1")
		done <- submitResult{view: view, err: err}
	}()
	<-entered

	// Second click while the first submission is parked in the order backend.
	second, err := h.svc.Submit(ctx, "c1")
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if second.Step != StepSubmitting {
		t.Fatalf("expected submitting, got %s", second.Step)
	}
	if second.Order != nil {
		t.Fatal("expected no order on the in-flight view")
	}

	close(release)
	first := <-done
	if first.err != nil {
		t.Fatalf("first Submit: %v", first.err)
	}
	if first.view.Step != StepCompleted || first.view.Order == nil {
		t.Fatalf("expected completed view with order, got %+v", first.view)
	}
	if len(h.orders.created) != 1 {
		t.Fatalf("expected exactly one create call, got %d", len(h.orders.created))
	}
}

func TestCheckoutSessionsAreIndependent(t *testing.T) {
	h := newCheckoutHarness(t)
	ctx := context.Background()

	if _, err := h.svc.Continue(ctx, "c1"); err != nil {
		t.Fatalf("Continue c1: %v", err)
	}

	view, err := h.svc.Get(ctx, "c2")
	if err != nil {
		t.Fatalf("Get c2: %v", err)
	}
	if view.Step != StepCustomerInfo {
		t.Fatalf("expected fresh session for c2, got %s", view.Step)
	}
}
