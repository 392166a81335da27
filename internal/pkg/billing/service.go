package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/tlcshift/ShiftMarket/app/models"
	"github.com/tlcshift/ShiftMarket/app/repository"
	"github.com/tlcshift/ShiftMarket/internal/pkg/config"
)

// Fallback shown when the provider price lookup fails or no price is
// configured. Matches the advertised listing subscription.
const (
	DefaultListingPriceAmount   = 5.00
	DefaultListingPriceCurrency = "usd"
	DefaultListingPriceInterval = "month"
)

var (
	ErrNotSubscriptionOwner = errors.New("subscription does not belong to this user")
	ErrListingNotFound      = errors.New("listing not found")
	ErrInvalidPaymentType   = errors.New("unknown payment type")
)

type eventHandler func(ctx context.Context, event *stripelib.Event) error

// Service reconciles provider billing state with the local ledger. Webhook
// handling is idempotent: redelivered events always converge on the same
// local state.
type Service struct {
	client   Client
	settings *config.Settings
	users    repository.UserRepository
	listings repository.ListingRepository
	payments repository.PaymentRepository
	emails   repository.EmailLogRepository

	handlers map[EventKind]eventHandler
}

// NewService wires the billing service from an injected provider client and
// the repository set.
func NewService(client Client, settings *config.Settings, repos *repository.Repositories) *Service {
	s := &Service{
		client:   client,
		settings: settings,
		users:    repos.User,
		listings: repos.Listing,
		payments: repos.Payment,
		emails:   repos.EmailLog,
	}
	s.handlers = map[EventKind]eventHandler{
		EventCheckoutSessionCompleted: s.handleCheckoutCompleted,
		EventSubscriptionDeleted:      s.handleSubscriptionDeleted,
		EventInvoicePaymentSucceeded:  s.handleInvoiceOutcome,
		EventInvoicePaymentFailed:     s.handleInvoiceOutcome,
		EventInvoiceSent:              s.handleInvoiceSent,
		EventPaymentIntentSucceeded:   s.handlePaymentIntent,
		EventPaymentIntentFailed:      s.handlePaymentIntent,
	}
	return s
}

// CheckPaymentRequirement reports whether the user's next listing needs a
// subscription. The first FreeListingsLimit active listings are free.
func (s *Service) CheckPaymentRequirement(userID uint) (*RequirementCheck, error) {
	active, err := s.listings.CountActiveByUser(userID)
	if err != nil {
		return nil, err
	}

	remaining := int64(FreeListingsLimit) - active
	if remaining < 0 {
		remaining = 0
	}

	check := &RequirementCheck{
		ActiveListings: active,
		FreeRemaining:  remaining,
	}
	if remaining > 0 {
		check.Message = fmt.Sprintf("You have %d free listing(s) remaining.", remaining)
	} else {
		check.PaymentRequired = true
		check.Message = "Free listing limit reached. A subscription is required for additional listings."
	}
	return check, nil
}

// EnsureCustomer returns the user's provider customer id, creating one on
// first use. A stored id is reused unless the remote customer was deleted.
func (s *Service) EnsureCustomer(user *models.User) (string, error) {
	if user.StripeCustomerID != "" {
		remote, err := s.client.GetCustomer(user.StripeCustomerID)
		if err == nil && remote != nil && !remote.Deleted {
			return user.StripeCustomerID, nil
		}
		log.Printf("billing: stored customer %s unusable, creating a new one: %v", user.StripeCustomerID, err)
	}

	created, err := s.client.CreateCustomer(user.Email, user.FullName(), map[string]string{
		MetadataUserID: strconv.FormatUint(uint64(user.ID), 10),
	})
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	if err := s.users.UpdateStripeCustomerID(user.ID, created.ID); err != nil {
		return "", err
	}
	user.StripeCustomerID = created.ID
	return created.ID, nil
}

// GetListingPriceInfo resolves the configured listing price from the
// provider, falling back to the advertised default when the lookup fails.
func (s *Service) GetListingPriceInfo() PriceInfo {
	fallback := PriceInfo{
		Amount:   DefaultListingPriceAmount,
		Currency: DefaultListingPriceCurrency,
		Interval: DefaultListingPriceInterval,
		PriceID:  s.settings.StripeListingPriceID,
	}
	if s.settings.StripeListingPriceID == "" {
		return fallback
	}

	p, err := s.client.GetPrice(s.settings.StripeListingPriceID)
	if err != nil || p == nil {
		log.Printf("billing: price lookup failed, using fallback: %v", err)
		return fallback
	}

	info := PriceInfo{
		Amount:   float64(p.UnitAmount) / 100,
		Currency: string(p.Currency),
		Interval: DefaultListingPriceInterval,
		PriceID:  p.ID,
	}
	if p.Recurring != nil {
		info.Interval = string(p.Recurring.Interval)
	}
	return info
}

// CreateCheckoutSession starts a subscription checkout for one listing and
// records a pending ledger row before the redirect URL is returned. An empty
// paymentType defaults to a plain listing subscription.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID, listingID uint, paymentType string) (*CheckoutResult, error) {
	switch paymentType {
	case "":
		paymentType = models.PaymentTypeListing
	case models.PaymentTypeListing, models.PaymentTypePromoteListing:
	default:
		return nil, ErrInvalidPaymentType
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	listing, err := s.listings.GetByID(listingID)
	if err != nil {
		return nil, ErrListingNotFound
	}
	if listing.UserID != userID {
		return nil, ErrListingNotFound
	}

	customerID, err := s.EnsureCustomer(user)
	if err != nil {
		return nil, err
	}

	priceInfo := s.GetListingPriceInfo()
	successURL := s.settings.FrontendURL + "/payments/success?session_id={CHECKOUT_SESSION_ID}"
	cancelURL := s.settings.FrontendURL + "/payments/cancelled"

	params := &stripelib.CheckoutSessionParams{
		Mode:       stripelib.String(string(stripelib.CheckoutSessionModeSubscription)),
		Customer:   stripelib.String(customerID),
		SuccessURL: stripelib.String(successURL),
		CancelURL:  stripelib.String(cancelURL),
		LineItems: []*stripelib.CheckoutSessionLineItemParams{
			{
				Price:    stripelib.String(s.settings.StripeListingPriceID),
				Quantity: stripelib.Int64(1),
			},
		},
		Metadata: map[string]string{
			MetadataUserID:      strconv.FormatUint(uint64(userID), 10),
			MetadataPaymentType: paymentType,
			MetadataListingID:   strconv.FormatUint(uint64(listingID), 10),
		},
	}

	sess, err := s.client.CreateCheckoutSession(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	// Subscription checkouts carry no payment intent until the first invoice
	// is paid, so the session id keys the pending row.
	payment := &models.Payment{
		UserID:                userID,
		StripePaymentIntentID: sess.ID,
		StripeSessionID:       sess.ID,
		Amount:                priceInfo.Amount,
		Currency:              priceInfo.Currency,
		Status:                models.PaymentStatusPending,
		PaymentType:           paymentType,
		ListingID:             &listingID,
		StripeCustomerID:      customerID,
	}
	if err := s.payments.Create(payment); err != nil {
		return nil, err
	}

	return &CheckoutResult{
		SessionID:   sess.ID,
		CheckoutURL: sess.URL,
		PaymentID:   payment.ID,
	}, nil
}

// SubscriptionInfo aggregates the user's billing picture for the account
// page: active listing count, the current per-listing price, and the total
// monthly charge summed over every active subscription's line items.
// Provider failures degrade to the zero charge so the page keeps rendering.
func (s *Service) SubscriptionInfo(userID uint) (*SubscriptionStatus, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	activeListings, err := s.listings.CountActiveByUser(userID)
	if err != nil {
		return nil, err
	}

	priceInfo := s.GetListingPriceInfo()
	status := &SubscriptionStatus{
		Subscriptions:     []SubscriptionSummary{},
		ActiveListings:    activeListings,
		PricePerListing:   priceInfo.Amount,
		Currency:          priceInfo.Currency,
		FreeListingsLimit: FreeListingsLimit,
	}
	if user.StripeCustomerID == "" {
		return status, nil
	}

	subs, err := s.client.ListActiveSubscriptions(user.StripeCustomerID)
	if err != nil {
		log.Printf("billing: subscription list failed for customer %s: %v", user.StripeCustomerID, err)
		return status, nil
	}

	for _, sub := range subs {
		summary := SubscriptionSummary{
			ID:                sub.ID,
			Status:            string(sub.Status),
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		}
		if sub.Items != nil && len(sub.Items.Data) > 0 {
			item := sub.Items.Data[0]
			if item.Price != nil {
				summary.PriceID = item.Price.ID
			}
			summary.CurrentPeriodEnd = item.CurrentPeriodEnd
		}
		if sub.Items != nil {
			for _, item := range sub.Items.Data {
				if item.Price != nil {
					status.MonthlyCharge += float64(item.Price.UnitAmount) / 100
				}
			}
		}
		status.Subscriptions = append(status.Subscriptions, summary)
	}
	status.Count = len(status.Subscriptions)
	status.PaidListings = status.Count
	status.HasActiveSubscription = status.Count > 0
	return status, nil
}

// CancelSubscription cancels a provider subscription immediately after
// verifying ownership. Local listing state is updated by the
// customer.subscription.deleted webhook, not here.
func (s *Service) CancelSubscription(userID uint, subscriptionID string) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	if user.StripeCustomerID == "" {
		return ErrNotSubscriptionOwner
	}

	subs, err := s.client.ListActiveSubscriptions(user.StripeCustomerID)
	if err != nil {
		return fmt.Errorf("verify subscription ownership: %w", err)
	}
	owned := false
	for _, sub := range subs {
		if sub.ID == subscriptionID {
			owned = true
			break
		}
	}
	if !owned {
		return ErrNotSubscriptionOwner
	}

	if _, err := s.client.CancelSubscription(subscriptionID); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	return nil
}

// VerifyWebhook checks the provider signature over the raw payload and
// returns the decoded event.
func (s *Service) VerifyWebhook(payload []byte, sigHeader string) (*stripelib.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.settings.StripeWebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// HandleWebhookEvent dispatches a verified event to its handler. Unknown
// event types are acknowledged without side effects.
func (s *Service) HandleWebhookEvent(ctx context.Context, event *stripelib.Event) error {
	kind := ParseEventKind(string(event.Type))
	handler, ok := s.handlers[kind]
	if !ok {
		log.Printf("billing: ignoring webhook event %s (%s)", event.ID, event.Type)
		return nil
	}
	return handler(ctx, event)
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event *stripelib.Event) error {
	_ = ctx
	var sess checkoutSessionPayload
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}
	if sess.PaymentStatus != "paid" {
		log.Printf("billing: checkout session %s completed with payment_status=%s, no action", sess.ID, sess.PaymentStatus)
		return nil
	}

	payment, err := s.payments.GetBySessionID(sess.ID)
	if err == nil && payment != nil {
		if payment.CanTransitionTo(models.PaymentStatusPaid) {
			payment.Status = models.PaymentStatusPaid
			payment.SubscriptionID = sess.Subscription
			payment.StripeCustomerID = sess.Customer
			if err := s.payments.Update(payment); err != nil {
				return err
			}
		}
	} else {
		log.Printf("billing: no pending payment for checkout session %s", sess.ID)
	}

	listingID := parseListingID(sess.Metadata)
	if listingID == 0 && payment != nil && payment.ListingID != nil {
		listingID = *payment.ListingID
	}
	if listingID == 0 {
		return nil
	}
	if err := s.listings.SetActive(listingID, true, sess.Subscription); err != nil {
		return fmt.Errorf("activate listing %d: %w", listingID, err)
	}
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event *stripelib.Event) error {
	_ = ctx
	var sub subscriptionPayload
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}

	listing, err := s.listings.GetBySubscriptionID(sub.ID)
	if err != nil || listing == nil {
		log.Printf("billing: subscription %s deleted, no linked listing", sub.ID)
		return nil
	}
	if err := s.listings.SetActive(listing.ID, false, ""); err != nil {
		return fmt.Errorf("deactivate listing %d: %w", listing.ID, err)
	}
	return nil
}

func (s *Service) handleInvoiceOutcome(ctx context.Context, event *stripelib.Event) error {
	_ = ctx
	var inv invoicePayload
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return fmt.Errorf("decode invoice: %w", err)
	}
	log.Printf("billing: invoice %s (%s) for subscription %s: %s", inv.ID, event.Type, inv.Subscription, inv.Status)
	return nil
}

func (s *Service) handleInvoiceSent(ctx context.Context, event *stripelib.Event) error {
	_ = ctx
	var inv invoicePayload
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return fmt.Errorf("decode invoice: %w", err)
	}
	if inv.ID == "" {
		return nil
	}

	exists, err := s.emails.ExistsByInvoiceID(inv.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	entry := &models.EmailLog{
		To:                   inv.CustomerEmail,
		ToName:               inv.CustomerName,
		Subject:              "Your invoice from " + s.settings.SenderName,
		EmailType:            models.EmailTypeStripeInvoice,
		Status:               models.EmailStatusRecorded,
		StripeInvoiceID:      inv.ID,
		StripeSubscriptionID: inv.Subscription,
	}
	return s.emails.Create(entry)
}

func (s *Service) handlePaymentIntent(ctx context.Context, event *stripelib.Event) error {
	_ = ctx
	var pi paymentIntentPayload
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return fmt.Errorf("decode payment intent: %w", err)
	}

	payment, err := s.payments.GetByPaymentIntentID(pi.ID)
	if err != nil || payment == nil {
		log.Printf("billing: no ledger row for payment intent %s", pi.ID)
		return nil
	}
	if payment.IsTerminal() {
		log.Printf("billing: payment %d already in terminal state %s, ignoring %s", payment.ID, payment.Status, event.Type)
		return nil
	}

	target := models.PaymentStatusPaid
	if EventKind(event.Type) == EventPaymentIntentFailed {
		target = models.PaymentStatusFailed
		if pi.LastPaymentError != nil {
			payment.ErrorMessage = pi.LastPaymentError.Message
		}
	}
	if !payment.CanTransitionTo(target) {
		log.Printf("billing: payment %d cannot move %s -> %s, keeping current state", payment.ID, payment.Status, target)
		return nil
	}

	payment.Status = target
	if len(pi.Charges.Data) > 0 {
		detail := pi.Charges.Data[0].PaymentMethodDetails
		payment.CardBrand = detail.Card.Brand
		payment.Last4Digits = detail.Card.Last4
		payment.PaymentMethodType = paymentMethodType(detail.Type, detail.Card.Wallet.Type)
	}
	return s.payments.Update(payment)
}

func parseListingID(metadata map[string]string) uint {
	raw, ok := metadata[MetadataListingID]
	if !ok {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func paymentMethodType(methodType, walletType string) string {
	switch walletType {
	case "apple_pay":
		return models.PaymentMethodApplePay
	case "google_pay":
		return models.PaymentMethodGooglePay
	}
	if methodType != "" {
		return methodType
	}
	return models.PaymentMethodCard
}
