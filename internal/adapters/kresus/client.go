// Package kresus fetches the account and transaction export from a Kresus
// instance and maps it into the domain model.
//
// Kresus is the aggregation side: it sees raw bank movements as signed
// amounts on a single account. Mapping turns the sign into a transaction
// type, keeps the magnitude, and fills the unseen endpoint with the
// counterparty placeholder. Records that cannot be mapped fail
// individually and never abort the batch.
package kresus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
)

// Config configures the Kresus client.
type Config struct {
	// APIURL is the full export endpoint of the Kresus instance.
	APIURL string

	// Accounts restricts the sync to these account labels. Empty means
	// every account in the export.
	Accounts []string

	// Timeout bounds one HTTP request. Zero means 30s.
	Timeout time.Duration

	// HTTPClient overrides the transport, for tests.
	HTTPClient *http.Client
}

// Client talks to one Kresus instance.
type Client struct {
	httpClient *http.Client
	apiURL     string
	allowlist  map[string]bool
	logger     *slog.Logger
}

// Data is one mapped export. MappingErrors carries the per-record mapping
// failures: the affected records are absent from Transactions, everything
// else went through.
type Data struct {
	Accounts      []ledger.Account
	Transactions  []ledger.Transaction
	MappingErrors []error
}

// APIError is a non-2xx answer from Kresus.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kresus: request failed with status %d: %s", e.StatusCode, e.Message)
}

// New creates a Kresus client. A nil logger disables diagnostics.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("kresus: api url is required")
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
		rc.Logger = logger.With("system", "kresus-http")
		httpClient = rc.StandardClient()
		httpClient.Timeout = timeout
	}

	allowlist := make(map[string]bool, len(cfg.Accounts))
	for _, name := range cfg.Accounts {
		allowlist[name] = true
	}

	return &Client{
		httpClient: httpClient,
		apiURL:     cfg.APIURL,
		allowlist:  allowlist,
		logger:     logger,
	}, nil
}

// Fetch downloads the export and maps every account and transaction on or
// after since. Transactions come back sorted by date ascending.
func (c *Client) Fetch(ctx context.Context, since time.Time) (*Data, error) {
	payload, err := c.fetchExport(ctx)
	if err != nil {
		return nil, err
	}

	accounts, nameByID := c.mapAccounts(payload.Accounts)
	c.logger.Info("kresus accounts selected for sync", "count", len(accounts))

	transactions, mappingErrs := c.mapTransactions(payload.Transactions, nameByID, since)
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].Date.Before(transactions[j].Date)
	})

	return &Data{
		Accounts:      accounts,
		Transactions:  transactions,
		MappingErrors: mappingErrs,
	}, nil
}

type export struct {
	Accounts     []rawAccount     `json:"accounts"`
	Transactions []rawTransaction `json:"transactions"`
}

type rawAccount struct {
	ID          int     `json:"id"`
	Type        string  `json:"type"`
	Label       string  `json:"label"`
	CustomLabel string  `json:"customLabel"`
	Balance     float64 `json:"balance"`
	ImportDate  string  `json:"importDate"`
}

type rawTransaction struct {
	ID        int     `json:"id"`
	AccountID int     `json:"accountId"`
	Amount    float64 `json:"amount"`
	Label     string  `json:"label"`
	Date      string  `json:"date"`
	DebitDate string  `json:"debitDate"`
}

func (c *Client) fetchExport(ctx context.Context) (*export, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("kresus: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kresus: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var payload export
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("kresus: failed to decode export: %w", err)
	}
	return &payload, nil
}

// mapAccounts keeps allowlisted accounts and returns them together with
// the id-to-name index the transaction mapping needs.
func (c *Client) mapAccounts(raw []rawAccount) ([]ledger.Account, map[int]string) {
	var accounts []ledger.Account
	nameByID := make(map[int]string, len(raw))

	for _, a := range raw {
		name := a.CustomLabel
		if name == "" {
			name = a.Label
		}
		if len(c.allowlist) > 0 && !c.allowlist[name] {
			c.logger.Debug("account not in sync list", "label", name, "account_id", a.ID)
			continue
		}

		balanceDate, err := time.Parse(time.RFC3339, a.ImportDate)
		if err != nil {
			balanceDate = time.Time{}
		}
		accounts = append(accounts, ledger.Account{
			Name:           name,
			Type:           strings.TrimPrefix(a.Type, "account-type."),
			CurrentBalance: a.Balance,
			BalanceDate:    balanceDate,
		})
		nameByID[a.ID] = name
	}
	return accounts, nameByID
}

// mapTransactions maps raw movements into domain transactions. Records on
// accounts outside the sync list are skipped; malformed records produce
// one error each and the batch continues.
func (c *Client) mapTransactions(raw []rawTransaction, nameByID map[int]string, since time.Time) ([]ledger.Transaction, []error) {
	var transactions []ledger.Transaction
	var mappingErrs []error

	for _, t := range raw {
		accountName, synced := nameByID[t.AccountID]
		if !synced {
			c.logger.Debug("skipping transaction on unsynced account",
				"transaction_id", t.ID, "account_id", t.AccountID, "label", t.Label)
			continue
		}

		dateStr := t.DebitDate
		if dateStr == "" {
			dateStr = t.Date
		}
		date, err := ledger.ParseDate(dateStr)
		if err != nil {
			mappingErrs = append(mappingErrs, fmt.Errorf("kresus: transaction %d (%q): %w", t.ID, t.Label, err))
			continue
		}
		if date.Before(since) {
			continue
		}

		if t.Amount == 0 {
			mappingErrs = append(mappingErrs, fmt.Errorf("kresus: transaction %d (%q): zero amount, direction cannot be determined", t.ID, t.Label))
			continue
		}

		tx := ledger.Transaction{
			Date:            date,
			Amount:          t.Amount,
			Type:            ledger.TypeDeposit,
			Description:     t.Label,
			SourceName:      ledger.CounterpartyPlaceholder,
			DestinationName: accountName,
		}
		if t.Amount < 0 {
			tx.Amount = -t.Amount
			tx.Type = ledger.TypeWithdrawal
			tx.SourceName = accountName
			tx.DestinationName = ledger.CounterpartyPlaceholder
		}

		if err := tx.Validate(); err != nil {
			mappingErrs = append(mappingErrs, fmt.Errorf("kresus: transaction %d (%q): %w", t.ID, t.Label, err))
			continue
		}
		transactions = append(transactions, tx)
	}
	return transactions, mappingErrs
}
