package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
)

// Helper to create a test transaction
func makeTransaction(txType ledger.Type, date time.Time, amount float64, source, destination string) ledger.Transaction {
	return ledger.Transaction{
		Date:            date,
		Amount:          amount,
		Type:            txType,
		Description:     "test transaction",
		SourceName:      source,
		DestinationName: destination,
	}
}

func TestFindMissing_IdenticalLists(t *testing.T) {
	// Arrange
	m := New(DefaultConfig(), nil)
	local := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 12.50, "Checking", ledger.CounterpartyPlaceholder),
		makeTransaction(ledger.TypeDeposit, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), 1800.00, ledger.CounterpartyPlaceholder, "Checking"),
		makeTransaction(ledger.TypeWithdrawal, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), 42.00, "Savings", ledger.CounterpartyPlaceholder),
	}

	// Act
	missing := m.FindMissing(local, local)

	// Assert - a list compared against itself has nothing missing
	assert.Empty(t, missing)
}

func TestFindMissing_AmountBeyondTolerance(t *testing.T) {
	// Arrange
	m := New(DefaultConfig(), nil)
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	local := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, date, 12.50, "Checking", ledger.CounterpartyPlaceholder),
	}
	remote := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, date, 12.502, "Checking", ledger.CounterpartyPlaceholder),
	}

	// Act
	missing := m.FindMissing(local, remote)

	// Assert - a difference at or above the tolerance keeps the record missing
	assert.Len(t, missing, 1)
	assert.Equal(t, 12.50, missing[0].Amount)
}

func TestFindMissing_AmountWithinTolerance(t *testing.T) {
	// Arrange
	m := New(DefaultConfig(), nil)
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	local := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, date, 12.50, "Checking", ledger.CounterpartyPlaceholder),
	}
	remote := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, date, 12.5005, "Checking", ledger.CounterpartyPlaceholder),
	}

	// Act
	missing := m.FindMissing(local, remote)

	// Assert
	assert.Empty(t, missing)
}

func TestFindMissing_RemoteSupersetOfLocal(t *testing.T) {
	// Arrange
	m := New(DefaultConfig(), nil)
	local := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 12.50, "Checking", ledger.CounterpartyPlaceholder),
		makeTransaction(ledger.TypeDeposit, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), 1800.00, ledger.CounterpartyPlaceholder, "Checking"),
	}
	remote := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 99.99, "Savings", ledger.CounterpartyPlaceholder),
	}
	remote = append(remote, local...)

	// Act
	missing := m.FindMissing(local, remote)

	// Assert - every local record has an exact remote duplicate
	assert.Empty(t, missing)
}

func TestFindMissing_NoSharedEndpoint(t *testing.T) {
	// Arrange - same date and amount, but neither endpoint name matches
	m := New(DefaultConfig(), nil)
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	local := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, date, 12.50, "Checking", ledger.CounterpartyPlaceholder),
	}
	remote := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, date, 12.50, "Savings", "Groceries"),
	}

	// Act
	missing := m.FindMissing(local, remote)

	// Assert
	assert.Len(t, missing, 1)
}

func TestFindMissing_SharedDestinationOnly(t *testing.T) {
	// Arrange - sources differ but destinations agree, which is enough
	m := New(DefaultConfig(), nil)
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	local := []ledger.Transaction{
		makeTransaction(ledger.TypeDeposit, date, 250.00, ledger.CounterpartyPlaceholder, "Checking"),
	}
	remote := []ledger.Transaction{
		makeTransaction(ledger.TypeDeposit, date, 250.00, "Employer", "Checking"),
	}

	// Act
	missing := m.FindMissing(local, remote)

	// Assert
	assert.Empty(t, missing)
}

func TestFindMissing_DateMismatch(t *testing.T) {
	// Arrange - identical except the ledger recorded it a day later
	m := New(DefaultConfig(), nil)
	local := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 12.50, "Checking", ledger.CounterpartyPlaceholder),
	}
	remote := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), 12.50, "Checking", ledger.CounterpartyPlaceholder),
	}

	// Act
	missing := m.FindMissing(local, remote)

	// Assert
	assert.Len(t, missing, 1)
}

func TestFindMissing_TypeIgnored(t *testing.T) {
	// Arrange - the two systems disagree on direction for the same movement
	m := New(DefaultConfig(), nil)
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	local := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, date, 12.50, "Checking", ledger.CounterpartyPlaceholder),
	}
	remote := []ledger.Transaction{
		makeTransaction(ledger.TypeTransfer, date, 12.50, "Checking", "Savings"),
	}

	// Act
	missing := m.FindMissing(local, remote)

	// Assert - type differences do not make a record missing
	assert.Empty(t, missing)
}

func TestFindMissing_PreservesLocalOrder(t *testing.T) {
	// Arrange
	m := New(DefaultConfig(), nil)
	first := makeTransaction(ledger.TypeWithdrawal, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 10.00, "Checking", ledger.CounterpartyPlaceholder)
	second := makeTransaction(ledger.TypeWithdrawal, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), 20.00, "Checking", ledger.CounterpartyPlaceholder)
	third := makeTransaction(ledger.TypeWithdrawal, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), 30.00, "Checking", ledger.CounterpartyPlaceholder)
	local := []ledger.Transaction{first, second, third}

	// Act
	missing := m.FindMissing(local, nil)

	// Assert - missing records come back in local order, not date order
	assert.Len(t, missing, 3)
	assert.Equal(t, 10.00, missing[0].Amount)
	assert.Equal(t, 20.00, missing[1].Amount)
	assert.Equal(t, 30.00, missing[2].Amount)
}

func TestFindMissing_EmptyLocal(t *testing.T) {
	// Arrange
	m := New(DefaultConfig(), nil)
	remote := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 12.50, "Checking", ledger.CounterpartyPlaceholder),
	}

	// Act
	missing := m.FindMissing(nil, remote)

	// Assert
	assert.Empty(t, missing)
}

func TestFindMissing_InputsNotMutated(t *testing.T) {
	// Arrange
	m := New(DefaultConfig(), nil)
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	local := []ledger.Transaction{
		makeTransaction(ledger.TypeWithdrawal, date, 12.50, "Checking", ledger.CounterpartyPlaceholder),
	}
	remote := []ledger.Transaction{
		makeTransaction(ledger.TypeDeposit, date, 99.00, ledger.CounterpartyPlaceholder, "Savings"),
	}
	localBefore := append([]ledger.Transaction(nil), local...)
	remoteBefore := append([]ledger.Transaction(nil), remote...)

	// Act
	m.FindMissing(local, remote)

	// Assert
	assert.Equal(t, localBefore, local)
	assert.Equal(t, remoteBefore, remote)
}
