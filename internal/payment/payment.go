// Package payment defines the capability the service layer needs from an
// external payment gateway, independent of any particular provider.
package payment

import (
	"context"
	"time"
)

// IntentStatus is the gateway-reported state of a payment intent.
type IntentStatus string

// Intent states. Only IntentSucceeded means money was captured.
const (
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentProcessing            IntentStatus = "processing"
	IntentSucceeded             IntentStatus = "succeeded"
	IntentCanceled              IntentStatus = "canceled"
)

// Intent is a gateway payment intent. AmountMinor is in the currency's minor units.
type Intent struct {
	ID                 string            `json:"id"`
	AmountMinor        int64             `json:"amount"`
	Currency           string            `json:"currency"`
	Status             IntentStatus      `json:"status"`
	PaymentMethodTypes []string          `json:"payment_method_types"`
	CustomerID         string            `json:"customer,omitempty"`
	ClientSecret       string            `json:"client_secret,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

// Succeeded reports whether the intent captured its amount.
func (i *Intent) Succeeded() bool {
	return i.Status == IntentSucceeded
}

// CreateIntentParams describes a new payment intent.
type CreateIntentParams struct {
	AmountMinor     int64
	Currency        string
	PaymentMethodID string
	CustomerID      string
	// Confirm asks the gateway to confirm the intent immediately.
	Confirm  bool
	Metadata map[string]string
}

// Customer is a gateway customer record used to keep saved cards.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Gateway is the external payment provider.
//
// Implementations return ErrIntentNotFound when a reference cannot be
// resolved and a *GatewayError for every other upstream failure.
type Gateway interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, reference string) (*Intent, error)
	ListIntents(ctx context.Context, limit int) ([]*Intent, error)
	CreateCustomer(ctx context.Context, email string) (*Customer, error)
	AttachPaymentSource(ctx context.Context, customerID, token string) error
	// ConfirmWithSavedCustomer charges the customer's default saved source and
	// returns the confirmed intent.
	ConfirmWithSavedCustomer(ctx context.Context, customerID string, amountMinor int64, currency string, metadata map[string]string) (*Intent, error)
}
