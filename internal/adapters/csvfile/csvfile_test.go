package csvfile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
)

func knownAccounts() []ledger.Account {
	return []ledger.Account{
		{Name: "Checking", Type: "asset"},
		{Name: "Savings", Type: "asset"},
	}
}

func TestWriteTransactions(t *testing.T) {
	// Arrange
	transactions := []ledger.Transaction{
		{
			ID:              "42",
			Date:            time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
			Amount:          12.5,
			Type:            ledger.TypeWithdrawal,
			Description:     "Groceries",
			SourceName:      "Checking",
			DestinationName: "Supermarket",
		},
		{
			Date:            time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
			Amount:          1500,
			Type:            ledger.TypeDeposit,
			Description:     "Salary",
			SourceName:      "Employer",
			DestinationName: "Checking",
		},
	}
	var out strings.Builder

	// Act
	err := WriteTransactions(&out, transactions)

	// Assert
	require.NoError(t, err)
	expected := "Date,FireflyID,Type,Libellé,Montant,Source,Destination\n" +
		"2024-01-06,42,withdrawal,Groceries,12.5,Checking,Supermarket\n" +
		"2024-01-07,,deposit,Salary,1500,Employer,Checking\n"
	assert.Equal(t, expected, out.String())
}

func TestWriteAccounts_SortedByName(t *testing.T) {
	// Arrange
	accounts := []ledger.Account{
		{Name: "Savings", Type: "asset"},
		{Name: "Checking", Type: "asset"},
	}
	var out strings.Builder

	// Act
	err := WriteAccounts(&out, accounts)

	// Assert
	require.NoError(t, err)
	expected := "Nom,Type\n" +
		"Checking,asset\n" +
		"Savings,asset\n"
	assert.Equal(t, expected, out.String())
}

func TestReadAccounts_SkipsPlaceholderRows(t *testing.T) {
	// Arrange
	sheet := "Nom,Type\n" +
		"Checking,Courant\n" +
		"Supermarket,Fake\n" +
		"Notes row,\n" +
		"Savings,Epargne\n"

	// Act
	accounts, err := ReadAccounts(strings.NewReader(sheet))

	// Assert
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Checking", accounts[0].Name)
	assert.Equal(t, "asset", accounts[0].Type)
	assert.Equal(t, "Savings", accounts[1].Name)
}

func TestReadTransactions_InfersTypes(t *testing.T) {
	// Arrange, columns shuffled on purpose
	sheet := "Libellé,Date,Montant,Source,Destination,FireflyID\n" +
		"Groceries,2024-01-06,12.5,Checking,Supermarket,\n" +
		"Salary,2024-01-07,1500,Employer,Checking,\n" +
		"Savings stash,2024-01-08,200,Checking,Savings,42.0\n"

	// Act
	result, err := ReadTransactions(strings.NewReader(sheet), knownAccounts())

	// Assert
	require.NoError(t, err)
	require.Empty(t, result.RecordErrors)
	require.Len(t, result.Transactions, 3)

	assert.Equal(t, ledger.TypeWithdrawal, result.Transactions[0].Type)
	assert.Equal(t, ledger.TypeDeposit, result.Transactions[1].Type)
	assert.Equal(t, ledger.TypeTransfer, result.Transactions[2].Type)
	assert.Equal(t, "Groceries", result.Transactions[0].Description)
	assert.Equal(t, "2024-01-06", result.Transactions[0].DateString())
	assert.InDelta(t, 12.5, result.Transactions[0].Amount, 0.0001)
}

func TestReadTransactions_NormalizesSpreadsheetIDs(t *testing.T) {
	// Arrange
	sheet := "Date,FireflyID,Libellé,Montant,Source,Destination\n" +
		"2024-01-08,42.0,Stash,200,Checking,Savings\n" +
		"2024-01-09,,Groceries,12.5,Checking,Supermarket\n"

	// Act
	result, err := ReadTransactions(strings.NewReader(sheet), knownAccounts())

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, "42", result.Transactions[0].ID)
	assert.True(t, result.Transactions[0].Persisted())
	assert.False(t, result.Transactions[1].Persisted())
}

func TestReadTransactions_RecordErrorsDoNotAbort(t *testing.T) {
	// Arrange
	sheet := "Date,FireflyID,Libellé,Montant,Source,Destination\n" +
		"2024-01-06,,Groceries,12.5,Checking,Supermarket\n" +
		"2024-01-07,,Mystery,30,Nowhere,Elsewhere\n" +
		"not-a-date,,Broken,5,Checking,Supermarket\n" +
		"2024-01-08,,Bad amount,abc,Checking,Supermarket\n"

	// Act
	result, err := ReadTransactions(strings.NewReader(sheet), knownAccounts())

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "Groceries", result.Transactions[0].Description)

	require.Len(t, result.RecordErrors, 3)
	assert.Contains(t, result.RecordErrors[0].Error(), "row 3")
	assert.Contains(t, result.RecordErrors[0].Error(), "known account")
}

func TestReadTransactions_MissingColumnFails(t *testing.T) {
	// Arrange
	sheet := "Date,FireflyID,Libellé,Montant,Source\n" +
		"2024-01-06,,Groceries,12.5,Checking\n"

	// Act
	_, err := ReadTransactions(strings.NewReader(sheet), knownAccounts())

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Destination")
}

func TestRoundTrip(t *testing.T) {
	// Arrange
	original := []ledger.Transaction{
		{
			ID:              "7",
			Date:            time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
			Amount:          200,
			Type:            ledger.TypeTransfer,
			Description:     "Savings stash",
			SourceName:      "Checking",
			DestinationName: "Savings",
		},
	}
	var out strings.Builder
	require.NoError(t, WriteTransactions(&out, original))

	// Act
	result, err := ReadTransactions(strings.NewReader(out.String()), knownAccounts())

	// Assert
	require.NoError(t, err)
	require.Empty(t, result.RecordErrors)
	require.Len(t, result.Transactions, 1)
	assert.True(t, original[0].Equal(result.Transactions[0]))
}
