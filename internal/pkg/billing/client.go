package billing

import (
	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/price"
	"github.com/stripe/stripe-go/v82/subscription"
)

// Client is the surface of the payment provider the service depends on.
// Tests substitute a fake; production uses the Stripe-backed implementation.
type Client interface {
	GetCustomer(id string) (*stripelib.Customer, error)
	CreateCustomer(email, name string, metadata map[string]string) (*stripelib.Customer, error)
	CreateCheckoutSession(params *stripelib.CheckoutSessionParams) (*stripelib.CheckoutSession, error)
	GetPrice(id string) (*stripelib.Price, error)
	ListActiveSubscriptions(customerID string) ([]*stripelib.Subscription, error)
	CancelSubscription(id string) (*stripelib.Subscription, error)
}

type stripeClient struct{}

// NewStripeClient sets the package-level API key and returns the live client.
func NewStripeClient(apiKey string) Client {
	stripelib.Key = apiKey
	return &stripeClient{}
}

func (c *stripeClient) GetCustomer(id string) (*stripelib.Customer, error) {
	return customer.Get(id, nil)
}

func (c *stripeClient) CreateCustomer(email, name string, metadata map[string]string) (*stripelib.Customer, error) {
	params := &stripelib.CustomerParams{
		Email: stripelib.String(email),
		Name:  stripelib.String(name),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	return customer.New(params)
}

func (c *stripeClient) CreateCheckoutSession(params *stripelib.CheckoutSessionParams) (*stripelib.CheckoutSession, error) {
	return session.New(params)
}

func (c *stripeClient) GetPrice(id string) (*stripelib.Price, error) {
	return price.Get(id, nil)
}

func (c *stripeClient) ListActiveSubscriptions(customerID string) ([]*stripelib.Subscription, error) {
	params := &stripelib.SubscriptionListParams{
		Customer: stripelib.String(customerID),
		Status:   stripelib.String(string(stripelib.SubscriptionStatusActive)),
	}
	var subs []*stripelib.Subscription
	iter := subscription.List(params)
	for iter.Next() {
		subs = append(subs, iter.Subscription())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func (c *stripeClient) CancelSubscription(id string) (*stripelib.Subscription, error) {
	return subscription.Cancel(id, nil)
}
