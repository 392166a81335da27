package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles every repository implementation.
type Repositories struct {
	User          UserRepository
	Listing       ListingRepository
	Payment       PaymentRepository
	PasswordReset PasswordResetRepository
	EmailLog      EmailLogRepository
	Waitlist      WaitlistRepository
	Feedback      FeedbackRepository
}

// NewRepositories creates all repository instances against one DB handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:          NewUserRepository(db),
		Listing:       NewListingRepository(db),
		Payment:       NewPaymentRepository(db),
		PasswordReset: NewPasswordResetRepository(db),
		EmailLog:      NewEmailLogRepository(db),
		Waitlist:      NewWaitlistRepository(db),
		Feedback:      NewFeedbackRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

var (
	globalFactory   *Factory
	globalFactoryMu sync.RWMutex
)

// SetGlobalFactory installs the process-wide factory at startup.
func SetGlobalFactory(f *Factory) {
	globalFactoryMu.Lock()
	defer globalFactoryMu.Unlock()
	globalFactory = f
}

// GetGlobalFactory returns the installed factory.
func GetGlobalFactory() *Factory {
	globalFactoryMu.RLock()
	defer globalFactoryMu.RUnlock()
	return globalFactory
}
