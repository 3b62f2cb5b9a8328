// Package csvfile reads and writes the spreadsheet ledger.
//
// The spreadsheet is the operator's hand-maintained view of the ledger. Its
// transaction sheet carries no type column worth trusting; the type of each
// row is inferred from which endpoints are accounts the operator owns.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
)

// Import is the result of parsing a transaction sheet. Rows that cannot be
// mapped are reported in RecordErrors and never abort the import.
type Import struct {
	Transactions []ledger.Transaction
	RecordErrors []error
}

var transactionColumns = []string{"Date", "FireflyID", "Type", "Libellé", "Montant", "Source", "Destination"}

var accountColumns = []string{"Nom", "Type"}

// WriteTransactions exports transactions, one row per record.
func WriteTransactions(w io.Writer, transactions []ledger.Transaction) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(transactionColumns); err != nil {
		return fmt.Errorf("csvfile: failed to write header: %w", err)
	}
	for _, tx := range transactions {
		row := []string{
			tx.DateString(),
			tx.ID,
			string(tx.Type),
			tx.Description,
			strconv.FormatFloat(tx.Amount, 'f', -1, 64),
			tx.SourceName,
			tx.DestinationName,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("csvfile: failed to write transaction row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteAccounts exports accounts sorted by name.
func WriteAccounts(w io.Writer, accounts []ledger.Account) error {
	sorted := make([]ledger.Account, len(accounts))
	copy(sorted, accounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	writer := csv.NewWriter(w)
	if err := writer.Write(accountColumns); err != nil {
		return fmt.Errorf("csvfile: failed to write header: %w", err)
	}
	for _, account := range sorted {
		if err := writer.Write([]string{account.Name, account.Type}); err != nil {
			return fmt.Errorf("csvfile: failed to write account row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadAccounts parses an account sheet. Rows whose type is empty or "Fake"
// are bookkeeping placeholders, not accounts the operator owns, and are
// skipped. Every surviving account is an asset account.
func ReadAccounts(r io.Reader) ([]ledger.Account, error) {
	rows, index, err := readSheet(r, "Nom", "Type")
	if err != nil {
		return nil, err
	}

	var accounts []ledger.Account
	for _, row := range rows {
		accountType := strings.TrimSpace(row[index["Type"]])
		if accountType == "" || accountType == "Fake" {
			continue
		}
		accounts = append(accounts, ledger.Account{
			Name: strings.TrimSpace(row[index["Nom"]]),
			Type: "asset",
		})
	}
	return accounts, nil
}

// ReadTransactions parses a transaction sheet against the operator's
// accounts. A row whose destination is not a known account is a withdrawal,
// one whose source is not known is a deposit, and one with both endpoints
// known is a transfer. A row where neither endpoint is known cannot be
// classified and becomes a record error.
func ReadTransactions(r io.Reader, accounts []ledger.Account) (*Import, error) {
	rows, index, err := readSheet(r, "Date", "FireflyID", "Libellé", "Montant", "Source", "Destination")
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(accounts))
	for _, account := range accounts {
		known[account.Name] = true
	}

	result := &Import{}
	for i, row := range rows {
		tx, err := mapRow(row, index, known)
		if err != nil {
			result.RecordErrors = append(result.RecordErrors, fmt.Errorf("row %d: %w", i+2, err))
			continue
		}
		result.Transactions = append(result.Transactions, tx)
	}
	return result, nil
}

func mapRow(row []string, index map[string]int, known map[string]bool) (ledger.Transaction, error) {
	date, err := ledger.ParseDate(strings.TrimSpace(row[index["Date"]]))
	if err != nil {
		return ledger.Transaction{}, err
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(row[index["Montant"]]), 64)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("invalid amount %q: %w", row[index["Montant"]], err)
	}

	source := strings.TrimSpace(row[index["Source"]])
	destination := strings.TrimSpace(row[index["Destination"]])

	var txType ledger.Type
	switch {
	case !known[source] && !known[destination]:
		return ledger.Transaction{}, fmt.Errorf("neither %q nor %q is a known account", source, destination)
	case !known[destination]:
		txType = ledger.TypeWithdrawal
	case !known[source]:
		txType = ledger.TypeDeposit
	default:
		txType = ledger.TypeTransfer
	}

	tx := ledger.Transaction{
		ID:              normalizeID(row[index["FireflyID"]]),
		Date:            date,
		Amount:          amount,
		Type:            txType,
		Description:     strings.TrimSpace(row[index["Libellé"]]),
		SourceName:      source,
		DestinationName: destination,
	}
	if err := tx.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	return tx, nil
}

// normalizeID undoes the float rendering spreadsheet exports apply to
// numeric id cells ("42.0" for 42). An empty cell means the row has never
// been written to the ledger.
func normalizeID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return raw
}

// readSheet reads all rows and locates the required columns by header name,
// so column order in the sheet does not matter. Ragged files fail as a
// whole; a sheet that is not rectangular was not produced by an export.
func readSheet(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("csvfile: failed to read sheet: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("csvfile: sheet is empty")
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, nil, fmt.Errorf("csvfile: sheet is missing column %q", name)
		}
	}
	return records[1:], index, nil
}
