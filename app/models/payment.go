package models

import "time"

const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusCancelled = "cancelled"
)

const (
	PaymentTypeListing        = "listing"
	PaymentTypePromoteListing = "promote_listing"
)

const (
	PaymentMethodCard      = "card"
	PaymentMethodApplePay  = "apple_pay"
	PaymentMethodGooglePay = "google_pay"
)

// Payment is an append-mostly ledger row mirroring billing provider state.
// It is keyed by the provider's payment-intent/subscription id and, for
// checkout flows, additionally by the checkout session id. Method detail
// fields stay empty until the provider confirms a charge.
type Payment struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	UserID                uint       `gorm:"not null;index" json:"user_id"`
	StripePaymentIntentID string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"stripe_payment_intent_id"`
	StripeSessionID       string     `gorm:"type:varchar(191);default:null;index" json:"stripe_session_id"`
	Amount                float64    `gorm:"not null" json:"amount"`
	Currency              string     `gorm:"type:varchar(10);not null;default:'usd'" json:"currency"`
	Status                string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentType           string     `gorm:"type:varchar(30);not null" json:"payment_type"`
	Last4Digits           string     `gorm:"type:varchar(4);default:null" json:"last_4_digits,omitempty"`
	CardBrand             string     `gorm:"type:varchar(30);default:null" json:"card_brand,omitempty"`
	PaymentMethodType     string     `gorm:"type:varchar(20);default:null" json:"payment_method_type,omitempty"`
	ListingID             *uint      `gorm:"default:null;index" json:"listing_id,omitempty"`
	SubscriptionID        string     `gorm:"type:varchar(100);default:null;index" json:"subscription_id,omitempty"`
	PeriodStart           *time.Time `gorm:"type:timestamp;default:null" json:"period_start,omitempty"`
	PeriodEnd             *time.Time `gorm:"type:timestamp;default:null" json:"period_end,omitempty"`
	StripeCustomerID      string     `gorm:"type:varchar(100);default:null" json:"-"`
	ErrorMessage          string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanTransitionTo reports whether moving to the target status respects the
// monotonic ledger: pending -> {paid, failed}, paid -> {refunded, cancelled}.
// Setting the current status again is allowed so redelivered webhook events
// stay no-ops.
func (p *Payment) CanTransitionTo(status string) bool {
	if p.Status == status {
		return true
	}
	switch p.Status {
	case PaymentStatusPending:
		return status == PaymentStatusPaid || status == PaymentStatusFailed
	case PaymentStatusPaid:
		return status == PaymentStatusRefunded || status == PaymentStatusCancelled
	default:
		return false
	}
}

// IsTerminal reports whether no further forward transition exists.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusFailed ||
		p.Status == PaymentStatusRefunded ||
		p.Status == PaymentStatusCancelled
}
