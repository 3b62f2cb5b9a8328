// Package firefly talks to the Firefly III budgeting ledger.
//
// Firefly is the system of record: the sync reads its transactions and
// accounts, and writes approved discrepancies back. Every write carries a
// single-split payload with empty optional fields omitted rather than sent
// as null.
package firefly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
)

// Config configures the Firefly III client.
type Config struct {
	// APIURL is the API base, e.g. https://firefly.example.org/api/v1.
	APIURL string

	// APIToken is the personal access token. Sensitive, never logged.
	APIToken string

	// Timeout bounds one HTTP request. Zero means 30s.
	Timeout time.Duration

	// HTTPClient overrides the transport, for tests.
	HTTPClient *http.Client
}

// Client talks to one Firefly III instance.
type Client struct {
	httpClient *http.Client
	apiURL     string
	token      string
	logger     *slog.Logger
}

// APIError is a non-2xx answer from Firefly.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("firefly: request failed with status %d: %s", e.StatusCode, e.Message)
}

// New creates a Firefly client. A nil logger disables diagnostics.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("firefly: api url is required")
	}
	if cfg.APIToken == "" {
		return nil, errors.New("firefly: api token is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		rc := retryablehttp.NewClient()
		rc.RetryMax = 3
		rc.Logger = logger.With("system", "firefly-http")
		httpClient = rc.StandardClient()
		httpClient.Timeout = timeout
	}

	return &Client{
		httpClient: httpClient,
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		token:      cfg.APIToken,
		logger:     logger,
	}, nil
}

// ListTransactions returns every transaction between start and end
// inclusive, walking pagination until exhausted, sorted by numeric id. A
// zero time omits that bound. Malformed entries are logged and skipped;
// they never abort the listing.
func (c *Client) ListTransactions(ctx context.Context, start, end time.Time) ([]ledger.Transaction, error) {
	params := url.Values{}
	if !start.IsZero() {
		params.Set("start", start.Format(ledger.DateLayout))
	}
	if !end.IsZero() {
		params.Set("end", end.Format(ledger.DateLayout))
	}

	resources, err := listPaginated[transactionResource](ctx, c, "transactions", params)
	if err != nil {
		return nil, err
	}

	transactions := make([]ledger.Transaction, 0, len(resources))
	for _, res := range resources {
		tx, err := mapTransaction(res)
		if err != nil {
			c.logger.Warn("skipping malformed ledger transaction", "id", res.ID, "error", err)
			continue
		}
		transactions = append(transactions, tx)
	}

	sort.Slice(transactions, func(i, j int) bool {
		return numericID(transactions[i].ID) < numericID(transactions[j].ID)
	})
	return transactions, nil
}

// ListAccounts returns every account, sorted by numeric id.
func (c *Client) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	resources, err := listPaginated[accountResource](ctx, c, "accounts", url.Values{})
	if err != nil {
		return nil, err
	}

	accounts := make([]ledger.Account, 0, len(resources))
	for _, res := range resources {
		balance, err := strconv.ParseFloat(res.Attributes.CurrentBalance, 64)
		if err != nil {
			c.logger.Warn("skipping account with unparsable balance",
				"id", res.ID, "name", res.Attributes.Name, "balance", res.Attributes.CurrentBalance)
			continue
		}
		balanceDate, err := time.Parse(time.RFC3339, res.Attributes.CurrentBalanceDate)
		if err != nil {
			balanceDate = time.Time{}
		}
		accounts = append(accounts, ledger.Account{
			Name:           res.Attributes.Name,
			Type:           res.Attributes.Type,
			CurrentBalance: balance,
			BalanceDate:    balanceDate,
		})
	}
	return accounts, nil
}

// GetTransaction fetches one transaction by id.
func (c *Client) GetTransaction(ctx context.Context, id string) (ledger.Transaction, error) {
	var out singleResponse
	if err := c.do(ctx, http.MethodGet, "transactions/"+id, nil, nil, &out); err != nil {
		return ledger.Transaction{}, err
	}
	return mapTransaction(out.Data)
}

// StoreTransaction writes a new transaction and returns it as stored,
// ledger id included.
func (c *Client) StoreTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	var out singleResponse
	if err := c.do(ctx, http.MethodPost, "transactions", nil, writeRequest(tx), &out); err != nil {
		return ledger.Transaction{}, err
	}
	stored, err := mapTransaction(out.Data)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("firefly: stored transaction came back malformed: %w", err)
	}
	c.logger.Info("transaction stored in ledger", "id", stored.ID, "description", stored.Description)
	return stored, nil
}

// UpdateTransaction rewrites the transaction identified by tx.ID and
// returns it as stored. Firefly rejects cross-type updates; callers detect
// a type change and delete/recreate instead.
func (c *Client) UpdateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	if !tx.Persisted() {
		return ledger.Transaction{}, errors.New("firefly: cannot update a transaction without an id")
	}
	var out singleResponse
	if err := c.do(ctx, http.MethodPut, "transactions/"+tx.ID, nil, writeRequest(tx), &out); err != nil {
		return ledger.Transaction{}, err
	}
	return mapTransaction(out.Data)
}

// DeleteTransaction removes the transaction by id.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "transactions/"+id, nil, nil, nil)
}

type transactionResource struct {
	ID         string `json:"id"`
	Attributes struct {
		Transactions []transactionSplit `json:"transactions"`
	} `json:"attributes"`
}

type transactionSplit struct {
	Type            string `json:"type"`
	Date            string `json:"date"`
	Amount          string `json:"amount"`
	Description     string `json:"description"`
	SourceName      string `json:"source_name"`
	DestinationName string `json:"destination_name"`
}

type accountResource struct {
	ID         string `json:"id"`
	Attributes struct {
		Name               string `json:"name"`
		Type               string `json:"type"`
		CurrentBalance     string `json:"current_balance"`
		CurrentBalanceDate string `json:"current_balance_date"`
	} `json:"attributes"`
}

type singleResponse struct {
	Data transactionResource `json:"data"`
}

type page[T any] struct {
	Data []T `json:"data"`
	Meta struct {
		Pagination struct {
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	} `json:"meta"`
}

// storePayload is the single-split write body. Optional fields are
// omitted when empty rather than sent as null.
type storePayload struct {
	ApplyRules   bool           `json:"apply_rules"`
	FireWebhooks bool           `json:"fire_webhooks"`
	Transactions []splitPayload `json:"transactions"`
}

type splitPayload struct {
	Type            string `json:"type"`
	Date            string `json:"date"`
	Amount          string `json:"amount"`
	Description     string `json:"description,omitempty"`
	SourceName      string `json:"source_name,omitempty"`
	DestinationName string `json:"destination_name,omitempty"`
}

func writeRequest(tx ledger.Transaction) storePayload {
	return storePayload{
		ApplyRules:   true,
		FireWebhooks: true,
		Transactions: []splitPayload{{
			Type:            string(tx.Type),
			Date:            tx.DateString(),
			Amount:          strconv.FormatFloat(tx.Amount, 'f', -1, 64),
			Description:     tx.Description,
			SourceName:      tx.SourceName,
			DestinationName: tx.DestinationName,
		}},
	}
}

// mapTransaction maps the first split of a transaction group into the
// domain model.
func mapTransaction(res transactionResource) (ledger.Transaction, error) {
	if len(res.Attributes.Transactions) == 0 {
		return ledger.Transaction{}, fmt.Errorf("transaction %s has no splits", res.ID)
	}
	split := res.Attributes.Transactions[0]

	date, err := ledger.ParseDate(split.Date)
	if err != nil {
		return ledger.Transaction{}, err
	}
	amount, err := strconv.ParseFloat(split.Amount, 64)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("invalid amount %q: %w", split.Amount, err)
	}

	tx := ledger.Transaction{
		ID:              res.ID,
		Date:            date,
		Amount:          amount,
		Type:            ledger.Type(split.Type),
		Description:     split.Description,
		SourceName:      split.SourceName,
		DestinationName: split.DestinationName,
	}
	if err := tx.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

// listPaginated walks pages until the reported total is reached.
func listPaginated[T any](ctx context.Context, c *Client, endpoint string, params url.Values) ([]T, error) {
	var all []T
	for pageNum := 1; ; pageNum++ {
		params.Set("page", strconv.Itoa(pageNum))
		var p page[T]
		if err := c.do(ctx, http.MethodGet, endpoint, params, nil, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Data...)
		if pageNum >= p.Meta.Pagination.TotalPages {
			break
		}
	}
	return all, nil
}

// do performs one authenticated request and decodes the response into out
// when out is non-nil.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body, out any) error {
	target := c.apiURL + "/" + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("firefly: failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return fmt.Errorf("firefly: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("firefly: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("firefly: failed to decode response: %w", err)
	}
	return nil
}

func numericID(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
