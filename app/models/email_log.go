package models

import "time"

const (
	EmailTypeWelcome              = "welcome"
	EmailTypePasswordReset        = "password_reset"
	EmailTypeWaitlistConfirmation = "waitlist_confirmation"
	EmailTypeOAuthAccountExists   = "oauth_account_exists"
	EmailTypeStripeInvoice        = "stripe_invoice"
)

const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
	// EmailStatusRecorded marks audit rows for emails the billing provider
	// sent itself (invoice.sent events).
	EmailStatusRecorded = "recorded"
)

// EmailLog is the audit trail for outbound transactional email and for
// invoices the billing provider mails directly. StripeInvoiceID is unique so
// a redelivered invoice.sent event cannot create a second row.
type EmailLog struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	To                   string    `gorm:"type:varchar(200);not null;index" json:"to"`
	ToName               string    `gorm:"type:varchar(200)" json:"to_name"`
	Subject              string    `gorm:"type:varchar(255)" json:"subject"`
	EmailType            string    `gorm:"type:varchar(40);not null;index" json:"email_type"`
	FromEmail            string    `gorm:"type:varchar(200)" json:"from_email"`
	FromName             string    `gorm:"type:varchar(200)" json:"from_name"`
	Status               string    `gorm:"type:varchar(20);not null;index" json:"status"`
	ProviderMessageID    string    `gorm:"type:varchar(191)" json:"provider_message_id,omitempty"`
	StripeInvoiceID      string    `gorm:"type:varchar(191);default:null;uniqueIndex" json:"stripe_invoice_id,omitempty"`
	StripeSubscriptionID string    `gorm:"type:varchar(191)" json:"stripe_subscription_id,omitempty"`
	UserID               *uint     `gorm:"default:null;index" json:"user_id,omitempty"`
	ErrorMessage         string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt            time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
