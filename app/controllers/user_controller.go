package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/tlcshift/ShiftMarket/app/models"
	"github.com/tlcshift/ShiftMarket/app/repository"
	"github.com/tlcshift/ShiftMarket/internal/pkg/config"
	"github.com/tlcshift/ShiftMarket/internal/pkg/mail"
	"github.com/tlcshift/ShiftMarket/internal/pkg/middleware"
	"github.com/tlcshift/ShiftMarket/internal/pkg/oauth"
	"github.com/tlcshift/ShiftMarket/internal/pkg/token"
)

// UserController owns account lifecycle: signup, login, Google OAuth and
// password reset.
type UserController struct {
	settings *config.Settings
	users    repository.UserRepository
	resets   repository.PasswordResetRepository
	notifier *mail.Notifier
	verifier oauth.Verifier
}

func NewUserController(settings *config.Settings, repos *repository.Repositories, notifier *mail.Notifier, verifier oauth.Verifier) *UserController {
	return &UserController{
		settings: settings,
		users:    repos.User,
		resets:   repos.PasswordReset,
		notifier: notifier,
		verifier: verifier,
	}
}

type signupRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	LegalConsentAccepted bool   `json:"legal_consent_accepted"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authUserResponse struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (ctl *UserController) issueToken(user *models.User) (string, error) {
	return token.New(ctl.settings.SecretKey, user.ID, user.Email, ctl.settings.AccessTokenExpireMinutes)
}

func authResponse(user *models.User, accessToken string) fiber.Map {
	return fiber.Map{
		"user": authUserResponse{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		},
		"access_token": accessToken,
		"token_type":   "bearer",
	}
}

// HandleSignup registers a password account. Legal consent is checked before
// anything touches the database.
func (ctl *UserController) HandleSignup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if !req.LegalConsentAccepted {
		return jsonError(c, fiber.StatusBadRequest, "consent_required", "Legal consent must be accepted to create an account")
	}

	if existing, err := ctl.users.GetByEmail(req.Email); err == nil && existing != nil {
		return jsonError(c, fiber.StatusBadRequest, "email_taken", "User with this email already exists")
	}

	user, err := models.CreateUser(req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := ctl.users.Create(user); err != nil {
		log.Printf("users: signup create failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create account")
	}

	go ctl.notifier.SendWelcome(user)

	accessToken, err := ctl.issueToken(user)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to issue token")
	}
	return c.Status(fiber.StatusCreated).JSON(authResponse(user, accessToken))
}

// HandleLogin authenticates a password account. The failure message never
// reveals whether the email exists or the account is OAuth-only.
func (ctl *UserController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	user, err := ctl.users.GetByEmail(req.Email)
	if err != nil || user == nil || !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Incorrect email or password")
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := ctl.users.Update(user); err != nil {
		log.Printf("users: failed to record login time for %d: %v", user.ID, err)
	}

	accessToken, err := ctl.issueToken(user)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to issue token")
	}
	return c.JSON(authResponse(user, accessToken))
}

type googleAuthRequest struct {
	IDToken   string `json:"id_token"`
	VisitorID string `json:"visitor_id"`
}

// HandleGoogleAuth signs in with a verified Google ID token: match by google
// id first, then link by email, then create a fresh account.
func (ctl *UserController) HandleGoogleAuth(c *fiber.Ctx) error {
	var req googleAuthRequest
	if err := c.BodyParser(&req); err != nil || req.IDToken == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "id_token is required")
	}

	identity, err := ctl.verifier.Verify(c.Context(), req.IDToken)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid Google token")
	}

	user, err := ctl.users.GetByGoogleID(identity.Subject)
	if err != nil {
		user, err = ctl.users.GetByEmail(identity.Email)
		if err == nil && user != nil {
			if linkErr := ctl.users.UpdateGoogleID(user.ID, identity.Subject); linkErr != nil {
				log.Printf("users: failed to link google id for %d: %v", user.ID, linkErr)
				return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to link account")
			}
			user.GoogleID = identity.Subject
		} else {
			user, err = models.CreateOAuthUser(identity.Email, identity.GivenName, identity.FamilyName, identity.Subject, req.VisitorID)
			if err != nil {
				return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
			}
			if err := ctl.users.Create(user); err != nil {
				log.Printf("users: google signup create failed: %v", err)
				return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create account")
			}
			go ctl.notifier.SendWelcome(user)
		}
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := ctl.users.Update(user); err != nil {
		log.Printf("users: failed to record login time for %d: %v", user.ID, err)
	}

	accessToken, err := ctl.issueToken(user)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to issue token")
	}
	return c.JSON(authResponse(user, accessToken))
}

type requestPasswordResetRequest struct {
	Email string `json:"email"`
}

const passwordResetAck = "If an account exists for this email, a reset link has been sent."

// HandleRequestPasswordReset issues a reset token. The response is identical
// whether or not the account exists.
func (ctl *UserController) HandleRequestPasswordReset(c *fiber.Ctx) error {
	var req requestPasswordResetRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "email is required")
	}

	// Opportunistic sweep so expired tokens never accumulate.
	if _, err := ctl.resets.DeleteExpired(); err != nil {
		log.Printf("users: expired reset token sweep failed: %v", err)
	}

	since := time.Now().UTC().Add(-models.PasswordResetRateWindow)
	recent, err := ctl.resets.CountRecentByEmail(req.Email, since)
	if err != nil {
		log.Printf("users: reset rate check failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to process request")
	}
	if recent >= models.PasswordResetMaxRequests {
		return jsonError(c, fiber.StatusTooManyRequests, "rate_limited", "Too many reset requests. Try again later.")
	}

	user, err := ctl.users.GetByEmail(req.Email)
	if err != nil || user == nil {
		return c.JSON(fiber.Map{"message": passwordResetAck})
	}

	// OAuth-only accounts have no password to reset; tell them how they
	// actually sign in instead of sending a useless link.
	if user.Password == "" {
		go ctl.notifier.SendOAuthAccountExists(user)
		return c.JSON(fiber.Map{"message": passwordResetAck})
	}

	rawToken, err := models.GeneratePasswordResetToken()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to process request")
	}
	entry := &models.PasswordResetToken{
		UserID:    user.ID,
		Email:     user.Email,
		TokenHash: models.HashPasswordResetToken(rawToken),
		ExpiresAt: time.Now().UTC().Add(models.PasswordResetTokenTTL),
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
	if err := ctl.resets.Create(entry); err != nil {
		log.Printf("users: reset token create failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to process request")
	}

	go ctl.notifier.SendPasswordReset(user, rawToken)
	return c.JSON(fiber.Map{"message": passwordResetAck})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// HandleResetPassword consumes a valid token and sets the new password. All
// outstanding tokens for the user are invalidated afterwards.
func (ctl *UserController) HandleResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "token and new_password are required")
	}
	if len(req.NewPassword) < 8 {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Password must be at least 8 characters")
	}

	entry, err := ctl.resets.GetValidByHash(models.HashPasswordResetToken(req.Token))
	if err != nil || entry == nil || !entry.IsValid() {
		return jsonError(c, fiber.StatusBadRequest, "invalid_token", "Invalid or expired reset token")
	}

	user, err := ctl.users.GetByID(entry.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusBadRequest, "invalid_token", "Invalid or expired reset token")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to reset password")
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to reset password")
	}
	if err := ctl.users.Update(user); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to reset password")
	}
	if err := ctl.resets.MarkUsed(entry.ID); err != nil {
		log.Printf("users: failed to mark reset token used: %v", err)
	}
	if err := ctl.resets.InvalidateUserTokens(user.ID); err != nil {
		log.Printf("users: failed to invalidate reset tokens for %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{"message": "Password has been reset"})
}

// HandleGetMe returns the authenticated account.
func (ctl *UserController) HandleGetMe(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Not authenticated")
	}
	user, err := ctl.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "User not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load user")
	}
	return c.JSON(user)
}
