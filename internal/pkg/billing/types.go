package billing

// EventKind is the closed set of webhook event types the reconciler acts on.
// Everything else is acknowledged without side effects.
type EventKind string

const (
	EventCheckoutSessionCompleted EventKind = "checkout.session.completed"
	EventSubscriptionDeleted      EventKind = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded  EventKind = "invoice.payment_succeeded"
	EventInvoicePaymentFailed     EventKind = "invoice.payment_failed"
	EventInvoiceSent              EventKind = "invoice.sent"
	EventPaymentIntentSucceeded   EventKind = "payment_intent.succeeded"
	EventPaymentIntentFailed      EventKind = "payment_intent.payment_failed"
	EventUnknown                  EventKind = ""
)

// ParseEventKind maps a provider event type string onto the closed enum.
func ParseEventKind(eventType string) EventKind {
	switch EventKind(eventType) {
	case EventCheckoutSessionCompleted,
		EventSubscriptionDeleted,
		EventInvoicePaymentSucceeded,
		EventInvoicePaymentFailed,
		EventInvoiceSent,
		EventPaymentIntentSucceeded,
		EventPaymentIntentFailed:
		return EventKind(eventType)
	default:
		return EventUnknown
	}
}

// Metadata keys attached to checkout sessions so webhook events can be
// routed back to local records.
const (
	MetadataUserID      = "user_id"
	MetadataPaymentType = "payment_type"
	MetadataListingID   = "listing_id"
)

// FreeListingsLimit is how many listings a user may keep active before a
// subscription is required for the next one.
const FreeListingsLimit = 2

// PriceInfo describes the listing subscription price shown to clients.
type PriceInfo struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Interval string  `json:"interval"`
	PriceID  string  `json:"price_id,omitempty"`
}

// RequirementCheck is the answer to "does creating one more listing need a
// subscription for this user".
type RequirementCheck struct {
	PaymentRequired bool   `json:"payment_required"`
	ActiveListings  int64  `json:"active_listings"`
	FreeRemaining   int64  `json:"free_remaining"`
	Message         string `json:"message"`
}

// CheckoutResult is returned after a checkout session is created and the
// pending ledger row is persisted.
type CheckoutResult struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
	PaymentID   uint   `json:"payment_id"`
}

// SubscriptionSummary is a client-facing view of one provider subscription.
type SubscriptionSummary struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	PriceID           string `json:"price_id,omitempty"`
	CurrentPeriodEnd  int64  `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
}

// SubscriptionStatus aggregates the billing picture of one customer: the
// active subscriptions plus the listing counts and monthly total the account
// page renders. Provider failures degrade the charge to zero instead of
// erroring.
type SubscriptionStatus struct {
	HasActiveSubscription bool                  `json:"has_active_subscription"`
	Count                 int                   `json:"count"`
	ActiveListings        int64                 `json:"active_listings_count"`
	PaidListings          int                   `json:"paid_listings_count"`
	MonthlyCharge         float64               `json:"monthly_charge"`
	PricePerListing       float64               `json:"price_per_listing"`
	Currency              string                `json:"currency"`
	FreeListingsLimit     int                   `json:"free_listings_limit"`
	Subscriptions         []SubscriptionSummary `json:"subscriptions"`
}

// checkoutSessionPayload is the minimal shape decoded from a
// checkout.session.completed event.
type checkoutSessionPayload struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	PaymentStatus string `json:"payment_status"`
	AmountTotal   int64  `json:"amount_total"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

// subscriptionPayload is the minimal shape decoded from a
// customer.subscription.* event.
type subscriptionPayload struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Metadata           map[string]string `json:"metadata"`
}

// invoicePayload is the minimal shape decoded from an invoice.* event.
type invoicePayload struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Subscription     string `json:"subscription"`
	Status           string `json:"status"`
	AmountDue        int64  `json:"amount_due"`
	AmountPaid       int64  `json:"amount_paid"`
	Currency         string `json:"currency"`
	CustomerEmail    string `json:"customer_email"`
	CustomerName     string `json:"customer_name"`
	HostedInvoiceURL string `json:"hosted_invoice_url"`
}

// paymentIntentPayload is the minimal shape decoded from a payment_intent.*
// event, including card detail for the ledger.
type paymentIntentPayload struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Customer string `json:"customer"`
	Charges  struct {
		Data []struct {
			PaymentMethodDetails struct {
				Type string `json:"type"`
				Card struct {
					Brand  string `json:"brand"`
					Last4  string `json:"last4"`
					Wallet struct {
						Type string `json:"type"`
					} `json:"wallet"`
				} `json:"card"`
			} `json:"payment_method_details"`
		} `json:"data"`
	} `json:"charges"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
	Metadata map[string]string `json:"metadata"`
}
