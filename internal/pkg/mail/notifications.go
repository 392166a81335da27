package mail

import (
	"fmt"
	"log"

	"github.com/tlcshift/ShiftMarket/app/models"
	"github.com/tlcshift/ShiftMarket/app/repository"
)

// Notifier sends the marketplace's transactional emails and records every
// attempt in the email audit log. Controllers call it fire-and-forget; a
// failed send never blocks the request that triggered it.
type Notifier struct {
	mailer      *Mailer
	emails      repository.EmailLogRepository
	frontendURL string
}

func NewNotifier(mailer *Mailer, emails repository.EmailLogRepository, frontendURL string) *Notifier {
	return &Notifier{mailer: mailer, emails: emails, frontendURL: frontendURL}
}

// SendWelcome greets a freshly registered account.
func (n *Notifier) SendWelcome(user *models.User) {
	subject := fmt.Sprintf("Welcome to %s", n.mailer.SenderName())
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your account is ready. You can create your first listing right away.</p>",
		user.FirstName,
	)
	n.send(user.Email, user.FullName(), subject, body, models.EmailTypeWelcome, &user.ID)
}

// SendPasswordReset delivers the single-use reset link. The raw token is
// only ever sent here; the database stores its hash.
func (n *Notifier) SendPasswordReset(user *models.User, rawToken string) {
	link := fmt.Sprintf("%s/reset-password?token=%s", n.frontendURL, rawToken)
	subject := "Reset your password"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Use the link below to choose a new password. It expires in %d minutes.</p><p><a href=\"%s\">Reset password</a></p><p>If you did not request this, you can ignore this email.</p>",
		user.FirstName, int(models.PasswordResetTokenTTL.Minutes()), link,
	)
	n.send(user.Email, user.FullName(), subject, body, models.EmailTypePasswordReset, &user.ID)
}

// SendOAuthAccountExists tells a Google-linked account holder that a
// password reset was requested but does not apply to them.
func (n *Notifier) SendOAuthAccountExists(user *models.User) {
	subject := "About your sign-in method"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>A password reset was requested for this address, but your account signs in with Google and has no password. Use the \"Sign in with Google\" button instead.</p>",
		user.FirstName,
	)
	n.send(user.Email, user.FullName(), subject, body, models.EmailTypeOAuthAccountExists, &user.ID)
}

// SendWaitlistConfirmation acknowledges a waitlist signup.
func (n *Notifier) SendWaitlistConfirmation(email string) {
	subject := fmt.Sprintf("You're on the %s waitlist", n.mailer.SenderName())
	body := "<p>Thanks for your interest. We'll let you know as soon as a spot opens up.</p>"
	n.send(email, "", subject, body, models.EmailTypeWaitlistConfirmation, nil)
}

func (n *Notifier) send(to, toName, subject, body, emailType string, userID *uint) {
	err := n.mailer.Send(to, subject, body)

	entry := &models.EmailLog{
		To:        to,
		ToName:    toName,
		Subject:   subject,
		EmailType: emailType,
		FromEmail: n.mailer.Sender(),
		FromName:  n.mailer.SenderName(),
		Status:    models.EmailStatusSent,
		UserID:    userID,
	}
	if err != nil {
		entry.Status = models.EmailStatusFailed
		entry.ErrorMessage = err.Error()
	}
	if logErr := n.emails.Create(entry); logErr != nil {
		log.Printf("mail: failed to record email log for %s: %v", to, logErr)
	}
}
