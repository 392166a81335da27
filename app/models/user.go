package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User is a marketplace account. Password is empty for OAuth-only accounts.
type User struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	Email                string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password             string         `gorm:"type:text" json:"-"`
	FirstName            string         `gorm:"type:varchar(100)" json:"first_name" validate:"required,min=1,max=100"`
	LastName             string         `gorm:"type:varchar(100)" json:"last_name" validate:"required,min=1,max=100"`
	GoogleID             string         `gorm:"type:varchar(100);default:null;index" json:"-"`
	StripeCustomerID     string         `gorm:"type:varchar(100);default:null;index" json:"-"`
	VisitorID            string         `gorm:"type:varchar(100);default:null" json:"-"`
	LegalConsentAccepted bool           `gorm:"default:false" json:"legal_consent_accepted"`
	LegalConsentAt       *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt          *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds a password-based account. Legal consent must already be
// accepted; the caller rejects the request otherwise.
func CreateUser(email, password, firstName, lastName string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &User{
		Email:                email,
		Password:             pw,
		FirstName:            firstName,
		LastName:             lastName,
		LegalConsentAccepted: true,
		LegalConsentAt:       &now,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

// CreateOAuthUser builds an account from a verified Google identity.
// OAuth accounts carry no password hash.
func CreateOAuthUser(email, firstName, lastName, googleID, visitorID string) (*User, error) {
	now := time.Now().UTC()
	u := &User{
		Email:                email,
		FirstName:            firstName,
		LastName:             lastName,
		GoogleID:             googleID,
		VisitorID:            visitorID,
		LegalConsentAccepted: true,
		LegalConsentAt:       &now,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies the provided password against the stored hash.
// Accounts without a stored hash (OAuth-only) never match, including the
// empty string.
func (u *User) CheckPassword(password string) bool {
	if u.Password == "" {
		return false
	}
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user.
func (u *User) SetPassword(password string) error {
	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return nil
}

// FullName joins first and last name for provider-facing records.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
