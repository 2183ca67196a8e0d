// Package factus talks to the Factus electronic billing provider: a
// password-grant token exchange followed by an invoice validation call.
package factus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrRequestFailed marks a transport failure or a non-2xx provider
	// response.
	ErrRequestFailed = errors.New("factus request failed")
	// ErrMissingDocumentURL marks a 2xx response that lacks the document
	// reference field.
	ErrMissingDocumentURL = errors.New("factus response missing document url")
)

// Customer is the billing identity block of an invoice request.
type Customer struct {
	IdentificationDocumentID int    `json:"identification_document_id"`
	Identification           string `json:"identification"`
	Names                    string `json:"names"`
	Email                    string `json:"email"`
	LegalOrganizationID      string `json:"legal_organization_id"`
	TributeID                string `json:"tribute_id"`
	MunicipalityID           int    `json:"municipality_id"`
}

// Item is one invoice line.
type Item struct {
	CodeReference  string          `json:"code_reference"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	DiscountRate   float32         `json:"discount_rate"`
	Price          decimal.Decimal `json:"price"`
	TaxRate        string          `json:"tax_rate"`
	UnitMeasureID  int             `json:"unit_measure_id"`
	StandardCodeID int             `json:"standard_code_id"`
	IsExcluded     int             `json:"is_excluded"`
	TributeID      int             `json:"tribute_id"`
}

// InvoiceRequest is the body submitted to the invoice endpoint. The
// reference code must be unique per attempt.
type InvoiceRequest struct {
	NumberingRangeID int      `json:"numbering_range_id"`
	ReferenceCode    string   `json:"reference_code"`
	Customer         Customer `json:"customer"`
	Items            []Item   `json:"items"`
}

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Timeout      time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      Config
}

const defaultTimeout = 15 * time.Second

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		creds:      cfg,
	}
}

// CreateInvoice obtains a short-lived bearer token, submits the invoice and
// returns the document URL from the provider's response.
func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal invoice request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/bills/validate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build invoice request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: invoice endpoint returned %s", ErrRequestFailed, resp.Status)
	}

	var payload struct {
		Data struct {
			Bill struct {
				QR string `json:"qr"`
			} `json:"bill"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode invoice response: %v", ErrRequestFailed, err)
	}
	if payload.Data.Bill.QR == "" {
		return "", ErrMissingDocumentURL
	}
	return payload.Data.Bill.QR, nil
}

// token exchanges the configured credentials for a bearer token. Tokens are
// short-lived, so one is fetched per invoice attempt.
func (c *Client) token(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.creds.ClientID)
	form.Set("client_secret", c.creds.ClientSecret)
	form.Set("username", c.creds.Username)
	form.Set("password", c.creds.Password)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: token endpoint returned %s", ErrRequestFailed, resp.Status)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrRequestFailed, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: token response missing access_token", ErrRequestFailed)
	}
	return payload.AccessToken, nil
}
