// Package stripe implements payment.Gateway over Stripe's form-encoded REST API.
package stripe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/phrazzld/pantognostis-api/internal/config"
	"github.com/phrazzld/pantognostis-api/internal/payment"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
)

// DefaultBaseURL is Stripe's production API endpoint.
const DefaultBaseURL = "https://api.stripe.com"

const maxListLimit = 100

// Client is a Stripe payment gateway.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

var _ payment.Gateway = (*Client)(nil)

// NewClient creates a client authenticated with the configured secret key.
func NewClient(cfg config.PaymentConfig, logger *slog.Logger) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("payment secret key cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(cfg.SecretKey, "").
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetError(&errorEnvelope{})

	return &Client{
		http:   httpClient,
		logger: logger.With(slog.String("component", "stripe_gateway")),
	}, nil
}

type intentResponse struct {
	ID                 string            `json:"id"`
	Amount             int64             `json:"amount"`
	Currency           string            `json:"currency"`
	Status             string            `json:"status"`
	PaymentMethodTypes []string          `json:"payment_method_types"`
	Customer           string            `json:"customer"`
	ClientSecret       string            `json:"client_secret"`
	Metadata           map[string]string `json:"metadata"`
	Created            int64             `json:"created"`
}

func (r *intentResponse) toIntent() *payment.Intent {
	return &payment.Intent{
		ID:                 r.ID,
		AmountMinor:        r.Amount,
		Currency:           r.Currency,
		Status:             payment.IntentStatus(r.Status),
		PaymentMethodTypes: r.PaymentMethodTypes,
		CustomerID:         r.Customer,
		ClientSecret:       r.ClientSecret,
		Metadata:           r.Metadata,
		CreatedAt:          time.Unix(r.Created, 0).UTC(),
	}
}

type listResponse struct {
	Data []intentResponse `json:"data"`
}

type customerResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DefaultSource string `json:"default_source"`
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent implements payment.Gateway.CreateIntent
func (c *Client) CreateIntent(ctx context.Context, params payment.CreateIntentParams) (*payment.Intent, error) {
	form := map[string]string{
		"amount":   strconv.FormatInt(params.AmountMinor, 10),
		"currency": params.Currency,
		"confirm":  strconv.FormatBool(params.Confirm),
	}
	if params.PaymentMethodID != "" {
		form["payment_method"] = params.PaymentMethodID
	}
	if params.CustomerID != "" {
		form["customer"] = params.CustomerID
	}
	for k, v := range params.Metadata {
		form["metadata["+k+"]"] = v
	}

	var out intentResponse
	if err := c.do(ctx, "create intent", c.http.R().SetFormData(form).SetResult(&out), http.MethodPost, "/v1/payment_intents"); err != nil {
		return nil, err
	}
	return out.toIntent(), nil
}

// RetrieveIntent implements payment.Gateway.RetrieveIntent
func (c *Client) RetrieveIntent(ctx context.Context, reference string) (*payment.Intent, error) {
	var out intentResponse
	req := c.http.R().SetPathParam("id", reference).SetResult(&out)
	if err := c.do(ctx, "retrieve intent", req, http.MethodGet, "/v1/payment_intents/{id}"); err != nil {
		return nil, err
	}
	return out.toIntent(), nil
}

// ListIntents implements payment.Gateway.ListIntents
func (c *Client) ListIntents(ctx context.Context, limit int) ([]*payment.Intent, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	var out listResponse
	req := c.http.R().SetQueryParam("limit", strconv.Itoa(limit)).SetResult(&out)
	if err := c.do(ctx, "list intents", req, http.MethodGet, "/v1/payment_intents"); err != nil {
		return nil, err
	}
	intents := make([]*payment.Intent, 0, len(out.Data))
	for i := range out.Data {
		intents = append(intents, out.Data[i].toIntent())
	}
	return intents, nil
}

// CreateCustomer implements payment.Gateway.CreateCustomer
func (c *Client) CreateCustomer(ctx context.Context, email string) (*payment.Customer, error) {
	var out customerResponse
	req := c.http.R().SetFormData(map[string]string{"email": email}).SetResult(&out)
	if err := c.do(ctx, "create customer", req, http.MethodPost, "/v1/customers"); err != nil {
		return nil, err
	}
	return &payment.Customer{ID: out.ID, Email: out.Email}, nil
}

// AttachPaymentSource implements payment.Gateway.AttachPaymentSource
func (c *Client) AttachPaymentSource(ctx context.Context, customerID, token string) error {
	req := c.http.R().
		SetPathParam("id", customerID).
		SetFormData(map[string]string{"source": token})
	return c.do(ctx, "attach source", req, http.MethodPost, "/v1/customers/{id}/sources")
}

// ConfirmWithSavedCustomer implements payment.Gateway.ConfirmWithSavedCustomer.
// The charge carries an Idempotency-Key derived from its arguments, so a
// retried checkout for the same user and course reuses the first intent.
func (c *Client) ConfirmWithSavedCustomer(ctx context.Context, customerID string, amountMinor int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	var customer customerResponse
	req := c.http.R().SetPathParam("id", customerID).SetResult(&customer)
	if err := c.do(ctx, "retrieve customer", req, http.MethodGet, "/v1/customers/{id}"); err != nil {
		return nil, err
	}
	if customer.DefaultSource == "" {
		return nil, payment.NewGatewayError(0, "no_default_source", "customer has no saved payment source", nil)
	}

	form := map[string]string{
		"amount":         strconv.FormatInt(amountMinor, 10),
		"currency":       currency,
		"customer":       customerID,
		"payment_method": customer.DefaultSource,
		"confirm":        "true",
		"off_session":    "true",
	}
	for k, v := range metadata {
		form["metadata["+k+"]"] = v
	}

	var out intentResponse
	req = c.http.R().
		SetHeader("Idempotency-Key", savedCardKey(customerID, amountMinor, currency, metadata)).
		SetFormData(form).
		SetResult(&out)
	if err := c.do(ctx, "confirm saved card", req, http.MethodPost, "/v1/payment_intents"); err != nil {
		return nil, err
	}
	return out.toIntent(), nil
}

// savedCardKey hashes the charge so identical requests share a key.
func savedCardKey(customerID string, amountMinor int64, currency string, metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s", customerID, amountMinor, strings.ToLower(currency))
	for _, k := range keys {
		fmt.Fprintf(h, "|%s=%s", k, metadata[k])
	}
	return "saved-card-" + hex.EncodeToString(h.Sum(nil))
}

// do executes req and converts transport failures and error responses into
// payment errors.
func (c *Client) do(ctx context.Context, op string, req *resty.Request, method, path string) error {
	log := logger.FromContextOrDefault(ctx, c.logger)

	resp, err := req.SetContext(ctx).Execute(method, path)
	if err != nil {
		log.Error("gateway request failed",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return payment.NewGatewayError(0, "", fmt.Sprintf("%s request failed", op), err)
	}

	if !resp.IsError() {
		log.Debug("gateway request completed",
			slog.String("operation", op),
			slog.Int("status", resp.StatusCode()))
		return nil
	}

	var code, message string
	if env, ok := resp.Error().(*errorEnvelope); ok && env != nil {
		code, message = env.Error.Code, env.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode())
	}

	if resp.StatusCode() == http.StatusNotFound || code == "resource_missing" {
		log.Info("gateway resource not found",
			slog.String("operation", op),
			slog.String("code", code))
		return fmt.Errorf("%w: %s", payment.ErrIntentNotFound, message)
	}

	log.Warn("gateway returned an error",
		slog.String("operation", op),
		slog.Int("status", resp.StatusCode()),
		slog.String("code", code))
	return payment.NewGatewayError(resp.StatusCode(), code, message, nil)
}
