// Package ledger defines the transaction and account model shared by the
// aggregation side (Kresus) and the budgeting side (Firefly III) of the sync.
//
// Directionality is carried by Type plus which endpoint holds the
// counterparty placeholder, never by the sign of Amount. Two equality
// predicates exist on purpose and answer different questions:
//
//   - Equal: exact structural equality, used to detect content drift on
//     records that already share a ledger id.
//   - Matches: approximate content equality (same date, amount within a
//     cent, similar description), used to decide whether two independently
//     sourced records describe the same real-world movement.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/example/firefly-kresus-sync/internal/domain/similarity"
)

// Type classifies the direction of a transaction.
type Type string

const (
	TypeWithdrawal Type = "withdrawal"
	TypeDeposit    Type = "deposit"
	TypeTransfer   Type = "transfer"
)

// DateLayout is the calendar-date form used everywhere. Dates carry no time
// component; adapters normalize to UTC midnight when parsing.
const DateLayout = "2006-01-02"

// CounterpartyPlaceholder names the unknown side of a one-sided movement.
// The aggregation source only sees its own account, so the other endpoint
// is filled with this placeholder rather than left empty. The value is
// persisted to the budgeting ledger as-is and must stay stable: announced
// candidates are deduplicated by a fingerprint that covers it.
const CounterpartyPlaceholder = "Fake Fake"

// AmountTolerance is the absolute amount tolerance used by Matches.
const AmountTolerance = 0.01

// Transaction is one financial movement from either source.
type Transaction struct {
	// ID is the budgeting-ledger id. Empty for records known only from the
	// aggregation source; filled once the record is persisted.
	ID string

	Date            time.Time
	Amount          float64
	Type            Type
	Description     string
	SourceName      string
	DestinationName string
}

// DateString returns the calendar date in ISO form.
func (t Transaction) DateString() string {
	return t.Date.Format(DateLayout)
}

// Persisted reports whether the record carries a budgeting-ledger id.
func (t Transaction) Persisted() bool {
	return t.ID != ""
}

// Validate rejects structurally invalid records. The mapping adapters call
// this before a record may enter the engine; a failure aborts that single
// record, not the batch.
func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return errors.New("transaction date is required")
	}
	if t.Amount < 0 {
		return fmt.Errorf("transaction amount must be non-negative, got %.2f", t.Amount)
	}
	switch t.Type {
	case TypeWithdrawal, TypeDeposit, TypeTransfer:
	default:
		return fmt.Errorf("unknown transaction type %q", t.Type)
	}
	return nil
}

// Equal reports exact structural equality, id included. A persisted record
// drifts when the record sharing its id is not Equal to it.
func (t Transaction) Equal(other Transaction) bool {
	return t.ID == other.ID &&
		t.Date.Equal(other.Date) &&
		t.Amount == other.Amount &&
		t.Type == other.Type &&
		t.Description == other.Description &&
		t.SourceName == other.SourceName &&
		t.DestinationName == other.DestinationName
}

// Matches reports approximate content equality: dates exactly equal,
// amounts within AmountTolerance, descriptions scored similar. Type and
// endpoint names are ignored: the two systems label them inconsistently.
func (t Transaction) Matches(other Transaction) bool {
	if !t.Date.Equal(other.Date) {
		return false
	}
	if math.Abs(t.Amount-other.Amount) >= AmountTolerance {
		return false
	}
	return similarity.Score(t.Description, other.Description) >= similarity.DefaultThreshold
}

// String renders a fixed-width report row.
func (t Transaction) String() string {
	if t.Persisted() {
		return fmt.Sprintf("Transaction ID: %-5s Type: %-10s Amount: %-8.2f Date: %-10s Description: %s",
			t.ID, t.Type, t.Amount, t.DateString(), t.Description)
	}
	return fmt.Sprintf("| Type: %-10s Amount: %-8.2f Date: %-10s Description: %-40s |",
		t.Type, t.Amount, t.DateString(), t.Description)
}

// ParseDate parses an ISO calendar date, tolerating a trailing time
// component as sent by both remote systems.
func ParseDate(s string) (time.Time, error) {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	return d, nil
}
