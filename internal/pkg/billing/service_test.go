package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlcshift/ShiftMarket/app/models"
	"github.com/tlcshift/ShiftMarket/app/repository"
	"github.com/tlcshift/ShiftMarket/internal/pkg/config"
)

type fakeClient struct {
	customers        map[string]*stripelib.Customer
	createdCustomers int
	sessions         []*stripelib.CheckoutSessionParams
	subs             []*stripelib.Subscription
	listErr          error
	cancelled        []string
	priceErr         error
	price            *stripelib.Price
}

func (f *fakeClient) GetCustomer(id string) (*stripelib.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, errors.New("no such customer")
	}
	return c, nil
}

func (f *fakeClient) CreateCustomer(email, name string, metadata map[string]string) (*stripelib.Customer, error) {
	f.createdCustomers++
	c := &stripelib.Customer{ID: "cus_new", Email: email}
	if f.customers == nil {
		f.customers = map[string]*stripelib.Customer{}
	}
	f.customers[c.ID] = c
	return c, nil
}

func (f *fakeClient) CreateCheckoutSession(params *stripelib.CheckoutSessionParams) (*stripelib.CheckoutSession, error) {
	f.sessions = append(f.sessions, params)
	return &stripelib.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func (f *fakeClient) GetPrice(id string) (*stripelib.Price, error) {
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	return f.price, nil
}

func (f *fakeClient) ListActiveSubscriptions(customerID string) ([]*stripelib.Subscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.subs, nil
}

func (f *fakeClient) CancelSubscription(id string) (*stripelib.Subscription, error) {
	f.cancelled = append(f.cancelled, id)
	return &stripelib.Subscription{ID: id, Status: stripelib.SubscriptionStatusCanceled}, nil
}

type fakeUserRepo struct {
	repository.UserRepository
	users map[uint]*models.User
}

func (f *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func (f *fakeUserRepo) UpdateStripeCustomerID(id uint, customerID string) error {
	if u, ok := f.users[id]; ok {
		u.StripeCustomerID = customerID
	}
	return nil
}

type fakeListingRepo struct {
	repository.ListingRepository
	listings    map[uint]*models.Listing
	activeCount int64
}

func (f *fakeListingRepo) GetByID(id uint) (*models.Listing, error) {
	l, ok := f.listings[id]
	if !ok {
		return nil, errors.New("listing not found")
	}
	return l, nil
}

func (f *fakeListingRepo) GetBySubscriptionID(subscriptionID string) (*models.Listing, error) {
	for _, l := range f.listings {
		if l.SubscriptionID == subscriptionID {
			return l, nil
		}
	}
	return nil, errors.New("listing not found")
}

func (f *fakeListingRepo) SetActive(id uint, active bool, subscriptionID string) error {
	l, ok := f.listings[id]
	if !ok {
		return errors.New("listing not found")
	}
	l.Active = active
	if subscriptionID != "" {
		l.SubscriptionID = subscriptionID
	}
	return nil
}

func (f *fakeListingRepo) CountActiveByUser(userID uint) (int64, error) {
	return f.activeCount, nil
}

type fakePaymentRepo struct {
	repository.PaymentRepository
	payments map[string]*models.Payment
	nextID   uint
}

func (f *fakePaymentRepo) Create(payment *models.Payment) error {
	f.nextID++
	payment.ID = f.nextID
	if f.payments == nil {
		f.payments = map[string]*models.Payment{}
	}
	f.payments[payment.StripePaymentIntentID] = payment
	return nil
}

func (f *fakePaymentRepo) GetBySessionID(sessionID string) (*models.Payment, error) {
	for _, p := range f.payments {
		if p.StripeSessionID == sessionID {
			return p, nil
		}
	}
	return nil, errors.New("payment not found")
}

func (f *fakePaymentRepo) GetByPaymentIntentID(paymentIntentID string) (*models.Payment, error) {
	p, ok := f.payments[paymentIntentID]
	if !ok {
		return nil, errors.New("payment not found")
	}
	return p, nil
}

func (f *fakePaymentRepo) Update(payment *models.Payment) error {
	f.payments[payment.StripePaymentIntentID] = payment
	return nil
}

type fakeEmailLogRepo struct {
	repository.EmailLogRepository
	entries []*models.EmailLog
}

func (f *fakeEmailLogRepo) Create(entry *models.EmailLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeEmailLogRepo) ExistsByInvoiceID(invoiceID string) (bool, error) {
	for _, e := range f.entries {
		if e.StripeInvoiceID == invoiceID {
			return true, nil
		}
	}
	return false, nil
}

func newTestService(client *fakeClient, users *fakeUserRepo, listings *fakeListingRepo, payments *fakePaymentRepo, emails *fakeEmailLogRepo) *Service {
	settings := &config.Settings{
		StripeListingPriceID: "price_listing",
		StripeWebhookSecret:  "whsec_test",
		FrontendURL:          "https://app.example",
		SenderName:           "TLC Shift",
	}
	repos := &repository.Repositories{
		User:     users,
		Listing:  listings,
		Payment:  payments,
		EmailLog: emails,
	}
	return NewService(client, settings, repos)
}

func stripeEvent(t *testing.T, eventType string, payload any) *stripelib.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &stripelib.Event{
		ID:   "evt_test",
		Type: stripelib.EventType(eventType),
		Data: &stripelib.EventData{Raw: raw},
	}
}

func TestCheckPaymentRequirement(t *testing.T) {
	tests := []struct {
		name          string
		active        int64
		wantRequired  bool
		wantRemaining int64
	}{
		{"no listings", 0, false, 2},
		{"one listing", 1, false, 1},
		{"at limit", 2, true, 0},
		{"over limit", 5, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeClient{}, &fakeUserRepo{}, &fakeListingRepo{activeCount: tt.active}, &fakePaymentRepo{}, &fakeEmailLogRepo{})

			check, err := svc.CheckPaymentRequirement(1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRequired, check.PaymentRequired)
			assert.Equal(t, tt.wantRemaining, check.FreeRemaining)
			assert.NotEmpty(t, check.Message)
		})
	}
}

func TestEnsureCustomerReusesStored(t *testing.T) {
	client := &fakeClient{customers: map[string]*stripelib.Customer{
		"cus_existing": {ID: "cus_existing"},
	}}
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@b.com", StripeCustomerID: "cus_existing"},
	}}
	svc := newTestService(client, users, &fakeListingRepo{}, &fakePaymentRepo{}, &fakeEmailLogRepo{})

	id, err := svc.EnsureCustomer(users.users[1])
	require.NoError(t, err)
	assert.Equal(t, "cus_existing", id)
	assert.Zero(t, client.createdCustomers)
}

func TestEnsureCustomerRecreatesDeleted(t *testing.T) {
	client := &fakeClient{customers: map[string]*stripelib.Customer{
		"cus_old": {ID: "cus_old", Deleted: true},
	}}
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@b.com", StripeCustomerID: "cus_old"},
	}}
	svc := newTestService(client, users, &fakeListingRepo{}, &fakePaymentRepo{}, &fakeEmailLogRepo{})

	id, err := svc.EnsureCustomer(users.users[1])
	require.NoError(t, err)
	assert.Equal(t, "cus_new", id)
	assert.Equal(t, 1, client.createdCustomers)
	assert.Equal(t, "cus_new", users.users[1].StripeCustomerID)
}

func TestGetListingPriceInfoFallback(t *testing.T) {
	client := &fakeClient{priceErr: errors.New("provider down")}
	svc := newTestService(client, &fakeUserRepo{}, &fakeListingRepo{}, &fakePaymentRepo{}, &fakeEmailLogRepo{})

	info := svc.GetListingPriceInfo()
	assert.Equal(t, 5.00, info.Amount)
	assert.Equal(t, "usd", info.Currency)
	assert.Equal(t, "month", info.Interval)
}

func TestGetListingPriceInfoFromProvider(t *testing.T) {
	client := &fakeClient{price: &stripelib.Price{
		ID:         "price_listing",
		UnitAmount: 750,
		Currency:   stripelib.CurrencyUSD,
		Recurring:  &stripelib.PriceRecurring{Interval: stripelib.PriceRecurringIntervalMonth},
	}}
	svc := newTestService(client, &fakeUserRepo{}, &fakeListingRepo{}, &fakePaymentRepo{}, &fakeEmailLogRepo{})

	info := svc.GetListingPriceInfo()
	assert.Equal(t, 7.50, info.Amount)
	assert.Equal(t, "usd", info.Currency)
	assert.Equal(t, "month", info.Interval)
}

func TestCreateCheckoutSessionPersistsPendingPayment(t *testing.T) {
	client := &fakeClient{}
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@b.com", FirstName: "A", LastName: "B"},
	}}
	listings := &fakeListingRepo{listings: map[uint]*models.Listing{
		10: {ID: 10, UserID: 1},
	}}
	payments := &fakePaymentRepo{}
	svc := newTestService(client, users, listings, payments, &fakeEmailLogRepo{})

	result, err := svc.CreateCheckoutSession(context.Background(), 1, 10, "")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", result.SessionID)
	assert.NotEmpty(t, result.CheckoutURL)

	pending, err := payments.GetBySessionID("cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, pending.Status)
	assert.Equal(t, models.PaymentTypeListing, pending.PaymentType)
	require.NotNil(t, pending.ListingID)
	assert.Equal(t, uint(10), *pending.ListingID)

	require.Len(t, client.sessions, 1)
	assert.Equal(t, "1", client.sessions[0].Metadata[MetadataUserID])
	assert.Equal(t, "10", client.sessions[0].Metadata[MetadataListingID])
}

func TestCreateCheckoutSessionCarriesPaymentType(t *testing.T) {
	client := &fakeClient{}
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@b.com", FirstName: "A", LastName: "B"},
	}}
	listings := &fakeListingRepo{listings: map[uint]*models.Listing{
		10: {ID: 10, UserID: 1},
	}}
	payments := &fakePaymentRepo{}
	svc := newTestService(client, users, listings, payments, &fakeEmailLogRepo{})

	_, err := svc.CreateCheckoutSession(context.Background(), 1, 10, models.PaymentTypePromoteListing)
	require.NoError(t, err)

	pending, err := payments.GetBySessionID("cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentTypePromoteListing, pending.PaymentType)
	require.Len(t, client.sessions, 1)
	assert.Equal(t, models.PaymentTypePromoteListing, client.sessions[0].Metadata[MetadataPaymentType])
}

func TestCreateCheckoutSessionRejectsUnknownPaymentType(t *testing.T) {
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@b.com"},
	}}
	svc := newTestService(&fakeClient{}, users, &fakeListingRepo{}, &fakePaymentRepo{}, &fakeEmailLogRepo{})

	_, err := svc.CreateCheckoutSession(context.Background(), 1, 10, "gift")
	assert.ErrorIs(t, err, ErrInvalidPaymentType)
}

func TestCreateCheckoutSessionRejectsForeignListing(t *testing.T) {
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@b.com"},
	}}
	listings := &fakeListingRepo{listings: map[uint]*models.Listing{
		10: {ID: 10, UserID: 99},
	}}
	svc := newTestService(&fakeClient{}, users, listings, &fakePaymentRepo{}, &fakeEmailLogRepo{})

	_, err := svc.CreateCheckoutSession(context.Background(), 1, 10, "")
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestHandleCheckoutCompletedActivatesListing(t *testing.T) {
	listingID := uint(10)
	listings := &fakeListingRepo{listings: map[uint]*models.Listing{
		10: {ID: 10, UserID: 1},
	}}
	payments := &fakePaymentRepo{payments: map[string]*models.Payment{
		"cs_1": {ID: 1, UserID: 1, StripePaymentIntentID: "cs_1", StripeSessionID: "cs_1", Status: models.PaymentStatusPending, ListingID: &listingID},
	}}
	svc := newTestService(&fakeClient{}, &fakeUserRepo{}, listings, payments, &fakeEmailLogRepo{})

	event := stripeEvent(t, "checkout.session.completed", map[string]any{
		"id":             "cs_1",
		"customer":       "cus_1",
		"subscription":   "sub_1",
		"payment_status": "paid",
		"metadata":       map[string]string{"user_id": "1", "listing_id": "10"},
	})

	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))

	assert.True(t, listings.listings[10].Active)
	assert.Equal(t, "sub_1", listings.listings[10].SubscriptionID)
	assert.Equal(t, models.PaymentStatusPaid, payments.payments["cs_1"].Status)
	assert.Equal(t, "sub_1", payments.payments["cs_1"].SubscriptionID)

	// Redelivery converges on the same state.
	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
	assert.True(t, listings.listings[10].Active)
	assert.Equal(t, models.PaymentStatusPaid, payments.payments["cs_1"].Status)
}

func TestHandleCheckoutCompletedUnpaidNoAction(t *testing.T) {
	listings := &fakeListingRepo{listings: map[uint]*models.Listing{
		10: {ID: 10, UserID: 1},
	}}
	svc := newTestService(&fakeClient{}, &fakeUserRepo{}, listings, &fakePaymentRepo{}, &fakeEmailLogRepo{})

	event := stripeEvent(t, "checkout.session.completed", map[string]any{
		"id":             "cs_2",
		"payment_status": "unpaid",
		"metadata":       map[string]string{"listing_id": "10"},
	})

	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
	assert.False(t, listings.listings[10].Active)
}

func TestHandleSubscriptionDeletedDeactivatesListing(t *testing.T) {
	listings := &fakeListingRepo{listings: map[uint]*models.Listing{
		10: {ID: 10, UserID: 1, Active: true, SubscriptionID: "sub_1"},
	}}
	svc := newTestService(&fakeClient{}, &fakeUserRepo{}, listings, &fakePaymentRepo{}, &fakeEmailLogRepo{})

	event := stripeEvent(t, "customer.subscription.deleted", map[string]any{
		"id":       "sub_1",
		"customer": "cus_1",
		"status":   "canceled",
	})

	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
	assert.False(t, listings.listings[10].Active)
}

func TestHandleSubscriptionDeletedUnknownSubscriptionIsNoop(t *testing.T) {
	listings := &fakeListingRepo{listings: map[uint]*models.Listing{
		10: {ID: 10, UserID: 1, Active: true, SubscriptionID: "sub_other"},
	}}
	svc := newTestService(&fakeClient{}, &fakeUserRepo{}, listings, &fakePaymentRepo{}, &fakeEmailLogRepo{})

	event := stripeEvent(t, "customer.subscription.deleted", map[string]any{
		"id": "sub_unknown",
	})

	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
	assert.True(t, listings.listings[10].Active)
}

func TestHandleInvoiceSentDeduplicates(t *testing.T) {
	emails := &fakeEmailLogRepo{}
	svc := newTestService(&fakeClient{}, &fakeUserRepo{}, &fakeListingRepo{}, &fakePaymentRepo{}, emails)

	event := stripeEvent(t, "invoice.sent", map[string]any{
		"id":             "in_1",
		"customer_email": "a@b.com",
		"subscription":   "sub_1",
	})

	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))

	require.Len(t, emails.entries, 1)
	assert.Equal(t, "in_1", emails.entries[0].StripeInvoiceID)
	assert.Equal(t, models.EmailStatusRecorded, emails.entries[0].Status)
}

func TestHandlePaymentIntentSucceededUpdatesCardDetail(t *testing.T) {
	payments := &fakePaymentRepo{payments: map[string]*models.Payment{
		"pi_1": {ID: 1, UserID: 1, StripePaymentIntentID: "pi_1", Status: models.PaymentStatusPending},
	}}
	svc := newTestService(&fakeClient{}, &fakeUserRepo{}, &fakeListingRepo{}, payments, &fakeEmailLogRepo{})

	event := stripeEvent(t, "payment_intent.succeeded", map[string]any{
		"id": "pi_1",
		"charges": map[string]any{
			"data": []map[string]any{{
				"payment_method_details": map[string]any{
					"type": "card",
					"card": map[string]any{
						"brand":  "visa",
						"last4":  "4242",
						"wallet": map[string]any{"type": "apple_pay"},
					},
				},
			}},
		},
	})

	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))

	p := payments.payments["pi_1"]
	assert.Equal(t, models.PaymentStatusPaid, p.Status)
	assert.Equal(t, "visa", p.CardBrand)
	assert.Equal(t, "4242", p.Last4Digits)
	assert.Equal(t, models.PaymentMethodApplePay, p.PaymentMethodType)
}

func TestHandlePaymentIntentFailedRecordsError(t *testing.T) {
	payments := &fakePaymentRepo{payments: map[string]*models.Payment{
		"pi_2": {ID: 2, UserID: 1, StripePaymentIntentID: "pi_2", Status: models.PaymentStatusPending},
	}}
	svc := newTestService(&fakeClient{}, &fakeUserRepo{}, &fakeListingRepo{}, payments, &fakeEmailLogRepo{})

	event := stripeEvent(t, "payment_intent.payment_failed", map[string]any{
		"id": "pi_2",
		"last_payment_error": map[string]any{
			"message": "card declined",
		},
	})

	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
	assert.Equal(t, models.PaymentStatusFailed, payments.payments["pi_2"].Status)
	assert.Equal(t, "card declined", payments.payments["pi_2"].ErrorMessage)
}

func TestHandlePaymentIntentMonotonicGuard(t *testing.T) {
	payments := &fakePaymentRepo{payments: map[string]*models.Payment{
		"pi_3": {ID: 3, UserID: 1, StripePaymentIntentID: "pi_3", Status: models.PaymentStatusFailed},
	}}
	svc := newTestService(&fakeClient{}, &fakeUserRepo{}, &fakeListingRepo{}, payments, &fakeEmailLogRepo{})

	event := stripeEvent(t, "payment_intent.succeeded", map[string]any{"id": "pi_3"})

	require.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
	assert.Equal(t, models.PaymentStatusFailed, payments.payments["pi_3"].Status)
}

func TestHandleUnknownEventIsAcknowledged(t *testing.T) {
	svc := newTestService(&fakeClient{}, &fakeUserRepo{}, &fakeListingRepo{}, &fakePaymentRepo{}, &fakeEmailLogRepo{})

	event := stripeEvent(t, "charge.refund.updated", map[string]any{"id": "re_1"})
	assert.NoError(t, svc.HandleWebhookEvent(context.Background(), event))
}

func TestSubscriptionInfoAggregatesMonthlyCharge(t *testing.T) {
	item := func(amount int64) *stripelib.SubscriptionItem {
		return &stripelib.SubscriptionItem{
			Price:            &stripelib.Price{ID: "price_listing", UnitAmount: amount},
			CurrentPeriodEnd: 1700000000,
		}
	}
	client := &fakeClient{subs: []*stripelib.Subscription{
		{ID: "sub_1", Status: stripelib.SubscriptionStatusActive, Items: &stripelib.SubscriptionItemList{Data: []*stripelib.SubscriptionItem{item(500)}}},
		{ID: "sub_2", Status: stripelib.SubscriptionStatusActive, Items: &stripelib.SubscriptionItemList{Data: []*stripelib.SubscriptionItem{item(500)}}},
	}}
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@b.com", StripeCustomerID: "cus_1"},
	}}
	svc := newTestService(client, users, &fakeListingRepo{activeCount: 3}, &fakePaymentRepo{}, &fakeEmailLogRepo{})

	status, err := svc.SubscriptionInfo(1)
	require.NoError(t, err)
	assert.True(t, status.HasActiveSubscription)
	assert.Equal(t, 2, status.Count)
	assert.Equal(t, 2, status.PaidListings)
	assert.Equal(t, int64(3), status.ActiveListings)
	assert.Equal(t, 10.00, status.MonthlyCharge)
	assert.Equal(t, 5.00, status.PricePerListing)
	assert.Equal(t, FreeListingsLimit, status.FreeListingsLimit)
	assert.Equal(t, int64(1700000000), status.Subscriptions[0].CurrentPeriodEnd)
}

func TestSubscriptionInfoDegradesOnProviderFailure(t *testing.T) {
	client := &fakeClient{listErr: errors.New("provider down")}
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@b.com", StripeCustomerID: "cus_1"},
	}}
	svc := newTestService(client, users, &fakeListingRepo{activeCount: 1}, &fakePaymentRepo{}, &fakeEmailLogRepo{})

	status, err := svc.SubscriptionInfo(1)
	require.NoError(t, err)
	assert.False(t, status.HasActiveSubscription)
	assert.Zero(t, status.Count)
	assert.Zero(t, status.MonthlyCharge)
	// Locally derived figures still render while the provider is down.
	assert.Equal(t, int64(1), status.ActiveListings)
	assert.Equal(t, 5.00, status.PricePerListing)
	assert.Equal(t, FreeListingsLimit, status.FreeListingsLimit)
}

func TestCancelSubscriptionVerifiesOwnership(t *testing.T) {
	client := &fakeClient{subs: []*stripelib.Subscription{
		{ID: "sub_mine", Status: stripelib.SubscriptionStatusActive},
	}}
	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "a@b.com", StripeCustomerID: "cus_1"},
	}}
	svc := newTestService(client, users, &fakeListingRepo{}, &fakePaymentRepo{}, &fakeEmailLogRepo{})

	require.NoError(t, svc.CancelSubscription(1, "sub_mine"))
	assert.Equal(t, []string{"sub_mine"}, client.cancelled)

	err := svc.CancelSubscription(1, "sub_theirs")
	assert.ErrorIs(t, err, ErrNotSubscriptionOwner)
}

func TestParseEventKindClosedSet(t *testing.T) {
	assert.Equal(t, EventCheckoutSessionCompleted, ParseEventKind("checkout.session.completed"))
	assert.Equal(t, EventSubscriptionDeleted, ParseEventKind("customer.subscription.deleted"))
	assert.Equal(t, EventUnknown, ParseEventKind("customer.created"))
	assert.Equal(t, EventUnknown, ParseEventKind(""))
}
