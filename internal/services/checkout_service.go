package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/siacollections/storefront/internal/domain"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input.
	ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")
	// ErrCheckoutInvalidState indicates the operation is not allowed in the
	// current checkout step.
	ErrCheckoutInvalidState = errors.New("checkout service: invalid state")
	// ErrCheckoutUnavailable indicates a dependency failed while reading state.
	ErrCheckoutUnavailable = errors.New("checkout service: unavailable")
)

// CheckoutStep names one state of the checkout flow.
type CheckoutStep string

const (
	// StepCustomerInfo collects name, email and phone.
	StepCustomerInfo CheckoutStep = "customer_info"
	// StepShippingInfo collects the delivery address.
	StepShippingInfo CheckoutStep = "shipping_info"
	// StepPayment selects the payment method.
	StepPayment CheckoutStep = "payment"
	// StepReview shows the order summary before submission.
	StepReview CheckoutStep = "review"
	// StepSubmitting marks an order submission in flight.
	StepSubmitting CheckoutStep = "submitting"
	// StepCompleted means the order was placed and the cart cleared.
	StepCompleted CheckoutStep = "completed"
	// StepFailed means the last submission was rejected; the cart is intact
	// and the customer may retry.
	StepFailed CheckoutStep = "failed"
)

// checkoutSession is the mutable per-cart flow state. The order summary is
// never stored here; it is recomputed from the live cart on every read.
type checkoutSession struct {
	step     CheckoutStep
	customer domain.CustomerInfo
	address  domain.ShippingAddress
	method   domain.PaymentMethod
	notes    string
	order    *domain.Order
}

// CheckoutServiceDeps wires the cart, order and pricing dependencies for the
// checkout flow.
type CheckoutServiceDeps struct {
	Cart        CartService
	Orders      OrderService
	Pricing     *PricingEngine
	DefaultCity string
	Logger      func(context.Context, string, map[string]any)
}

type checkoutService struct {
	cart        CartService
	orders      OrderService
	pricing     *PricingEngine
	defaultCity string
	logger      func(context.Context, string, map[string]any)

	mu       sync.Mutex
	sessions map[string]*checkoutSession
}

// NewCheckoutService constructs a CheckoutService enforcing dependency
// validation.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Cart == nil {
		return nil, errors.New("checkout service: cart service is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order service is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("checkout service: pricing engine is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &checkoutService{
		cart:        deps.Cart,
		orders:      deps.Orders,
		pricing:     deps.Pricing,
		defaultCity: strings.TrimSpace(deps.DefaultCity),
		logger:      logger,
		sessions:    make(map[string]*checkoutSession),
	}, nil
}

// Get returns the checkout state for the cart, creating a fresh session at the
// first step when none exists yet or when the previous flow already completed.
func (s *checkoutService) Get(ctx context.Context, cartID string) (CheckoutView, error) {
	id, err := normalizeCartID(cartID)
	if err != nil {
		return CheckoutView{}, err
	}

	s.mu.Lock()
	session := s.ensureSession(id)
	snapshot := *session
	s.mu.Unlock()

	return s.viewOf(ctx, id, snapshot, nil)
}

// Continue advances to the next form step. Navigation is unconditional; field
// validation happens once, at submission. Past the review step Continue is a
// no-op.
func (s *checkoutService) Continue(ctx context.Context, cartID string) (CheckoutView, error) {
	id, err := normalizeCartID(cartID)
	if err != nil {
		return CheckoutView{}, err
	}

	s.mu.Lock()
	session := s.ensureSession(id)
	switch session.step {
	case StepCustomerInfo:
		session.step = StepShippingInfo
	case StepShippingInfo:
		session.step = StepPayment
	case StepPayment:
		session.step = StepReview
	}
	snapshot := *session
	s.mu.Unlock()

	return s.viewOf(ctx, id, snapshot, nil)
}

// Previous steps back towards the first form step. A failed submission steps
// back to review so the customer can adjust and retry. At the first step
// Previous is a no-op.
func (s *checkoutService) Previous(ctx context.Context, cartID string) (CheckoutView, error) {
	id, err := normalizeCartID(cartID)
	if err != nil {
		return CheckoutView{}, err
	}

	s.mu.Lock()
	session := s.ensureSession(id)
	switch session.step {
	case StepShippingInfo:
		session.step = StepCustomerInfo
	case StepPayment:
		session.step = StepShippingInfo
	case StepReview:
		session.step = StepPayment
	case StepFailed:
		session.step = StepReview
	}
	snapshot := *session
	s.mu.Unlock()

	return s.viewOf(ctx, id, snapshot, nil)
}

// SetFields patches the checkout form fields. Nil pointers leave the current
// value untouched. Fields are frozen while a submission is in flight.
func (s *checkoutService) SetFields(ctx context.Context, cmd SetCheckoutFieldsCommand) (CheckoutView, error) {
	id, err := normalizeCartID(cmd.CartID)
	if err != nil {
		return CheckoutView{}, err
	}

	var method domain.PaymentMethod
	if cmd.PaymentMethod != nil {
		method = domain.NormalizePaymentMethod(*cmd.PaymentMethod)
		if !method.Valid() {
			return CheckoutView{}, fmt.Errorf("%w: unknown payment method %q", ErrCheckoutInvalidInput, *cmd.PaymentMethod)
		}
	}

	s.mu.Lock()
	session := s.ensureSession(id)
	if session.step == StepSubmitting {
		snapshot := *session
		s.mu.Unlock()
		return s.viewOf(ctx, id, snapshot, nil)
	}
	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	applyString(&session.customer.FirstName, cmd.FirstName)
	applyString(&session.customer.LastName, cmd.LastName)
	applyString(&session.customer.Email, cmd.Email)
	applyString(&session.customer.Phone, cmd.Phone)
	applyString(&session.address.Address, cmd.Address)
	applyString(&session.address.City, cmd.City)
	applyString(&session.address.PostalCode, cmd.PostalCode)
	applyString(&session.notes, cmd.Notes)
	if cmd.PaymentMethod != nil {
		session.method = method
	}
	snapshot := *session
	s.mu.Unlock()

	return s.viewOf(ctx, id, snapshot, nil)
}

// Submit places the order. It is only accepted from the review step, or from
// the failed step as a retry. Required-field validation happens here and a
// failing form keeps the session in review with per-field messages. A second
// Submit racing a submission in flight returns the current state untouched,
// and Submit after completion returns the already placed order. Every other
// operation replaces a completed session with a fresh flow, so the next
// checkout visit starts over.
func (s *checkoutService) Submit(ctx context.Context, cartID string) (CheckoutView, error) {
	id, err := normalizeCartID(cartID)
	if err != nil {
		return CheckoutView{}, err
	}

	s.mu.Lock()
	session, ok := s.sessions[id]
	if !ok {
		session = s.ensureSession(id)
	}
	switch session.step {
	case StepSubmitting, StepCompleted:
		snapshot := *session
		s.mu.Unlock()
		return s.viewOf(ctx, id, snapshot, nil)
	case StepReview, StepFailed:
		// proceed
	default:
		step := session.step
		s.mu.Unlock()
		return CheckoutView{}, fmt.Errorf("%w: cannot submit from step %s", ErrCheckoutInvalidState, step)
	}
	session.step = StepReview
	snapshot := *session
	s.mu.Unlock()

	cartView, err := s.cart.Get(ctx, id)
	if err != nil {
		return CheckoutView{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}

	fieldErrors := validateCheckoutFields(snapshot, cartView)
	if len(fieldErrors) > 0 {
		return s.viewWithCart(id, snapshot, cartView, fieldErrors), nil
	}

	// Claim the submission. Another goroutine observing submitting backs off
	// above, so at most one order is placed per session.
	s.mu.Lock()
	if session.step != StepReview {
		snapshot = *session
		s.mu.Unlock()
		return s.viewOf(ctx, id, snapshot, nil)
	}
	session.step = StepSubmitting
	snapshot = *session
	s.mu.Unlock()

	summary := s.pricing.Summarize(cartView.Cart, snapshot.address.City, snapshot.method)
	order, err := s.orders.CreateOrder(ctx, CreateOrderCommand{
		Customer:      snapshot.customer,
		Address:       snapshot.address,
		PaymentMethod: snapshot.method,
		Items:         cartView.Cart.Items,
		Notes:         snapshot.notes,
		Summary:       summary,
	})

	s.mu.Lock()
	if err != nil {
		session.step = StepFailed
		snapshot = *session
		s.mu.Unlock()
		s.logger(ctx, "checkout.submit_failed", map[string]any{"cart_id": id, "error": err.Error()})
		return s.viewWithCart(id, snapshot, cartView, nil), nil
	}
	session.step = StepCompleted
	session.order = &order
	snapshot = *session
	s.mu.Unlock()

	if _, err := s.cart.Clear(ctx, id); err != nil {
		// The order exists; an uncleared cart is recoverable noise, not a
		// reason to report failure to the customer.
		s.logger(ctx, "checkout.cart_clear_failed", map[string]any{"cart_id": id, "error": err.Error()})
	}
	s.logger(ctx, "checkout.completed", map[string]any{"cart_id": id, "order_id": order.ID})

	return s.viewWithCart(id, snapshot, CartView{Cart: domain.Cart{ID: id}}, nil), nil
}

// ensureSession returns the session for the cart, creating one at the first
// step with the store defaults. A session left at completed by a previous
// order is replaced with a fresh one, so a returning shopper starts a new
// flow instead of being pinned to the old confirmation; the replacement also
// keeps the registry at one live session per cart. Submit reads the map
// directly so a double submission still gets the placed order back.
// Callers must hold s.mu.
func (s *checkoutService) ensureSession(cartID string) *checkoutSession {
	if session, ok := s.sessions[cartID]; ok && session.step != StepCompleted {
		return session
	}
	session := &checkoutSession{
		step:    StepCustomerInfo,
		address: domain.ShippingAddress{City: s.defaultCity},
		method:  domain.PaymentMethodCard,
	}
	s.sessions[cartID] = session
	return session
}

func (s *checkoutService) viewOf(ctx context.Context, cartID string, session checkoutSession, fieldErrors map[string]string) (CheckoutView, error) {
	cartView, err := s.cart.Get(ctx, cartID)
	if err != nil {
		return CheckoutView{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}
	return s.viewWithCart(cartID, session, cartView, fieldErrors), nil
}

func (s *checkoutService) viewWithCart(cartID string, session checkoutSession, cartView CartView, fieldErrors map[string]string) CheckoutView {
	view := CheckoutView{
		CartID:        cartID,
		Step:          session.step,
		Customer:      session.customer,
		Address:       session.address,
		PaymentMethod: session.method,
		Notes:         session.notes,
		Summary:       s.pricing.Summarize(cartView.Cart, session.address.City, session.method),
		ItemCount:     cartView.ItemCount,
		FieldErrors:   fieldErrors,
		Order:         session.order,
	}
	if session.order != nil {
		// The confirmation page shows the frozen order totals, not a live
		// recomputation over the now empty cart.
		view.Summary = session.order.Summary
	}
	return view
}

func validateCheckoutFields(session checkoutSession, cartView CartView) map[string]string {
	errs := make(map[string]string)
	if cartView.ItemCount == 0 {
		errs["cart"] = "cart is empty"
	}
	if session.customer.FirstName == "" {
		errs["first_name"] = "first name is required"
	}
	if session.customer.LastName == "" {
		errs["last_name"] = "last name is required"
	}
	if session.customer.Email == "" {
		errs["email"] = "email is required"
	} else if !strings.Contains(session.customer.Email, "@") {
		errs["email"] = "email is invalid"
	}
	if session.customer.Phone == "" {
		errs["phone"] = "phone is required"
	}
	if session.address.Address == "" {
		errs["address"] = "address is required"
	}
	if session.address.City == "" {
		errs["city"] = "city is required"
	}
	if !session.method.Valid() {
		errs["payment_method"] = "payment method is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func normalizeCartID(cartID string) (string, error) {
	id := strings.TrimSpace(cartID)
	if id == "" {
		return "", fmt.Errorf("%w: cart id is required", ErrCheckoutInvalidInput)
	}
	return id, nil
}
