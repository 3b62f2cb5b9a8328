package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTransaction() Transaction {
	return Transaction{
		ID:              "42",
		Date:            time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Amount:          12.50,
		Type:            TypeWithdrawal,
		Description:     "CARTE AU DELICE DU BUR",
		SourceName:      "Checking",
		DestinationName: CounterpartyPlaceholder,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr bool
	}{
		{name: "valid withdrawal", mutate: func(*Transaction) {}, wantErr: false},
		{name: "valid transfer", mutate: func(tx *Transaction) { tx.Type = TypeTransfer }, wantErr: false},
		{name: "zero date", mutate: func(tx *Transaction) { tx.Date = time.Time{} }, wantErr: true},
		{name: "negative amount", mutate: func(tx *Transaction) { tx.Amount = -5 }, wantErr: true},
		{name: "unknown type", mutate: func(tx *Transaction) { tx.Type = "refund" }, wantErr: true},
		{name: "empty type", mutate: func(tx *Transaction) { tx.Type = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := testTransaction()
			tt.mutate(&tx)

			err := tx.Validate()

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEqual_ExactStructuralEquality(t *testing.T) {
	// Arrange
	a := testTransaction()
	b := testTransaction()

	// Act / Assert
	assert.True(t, a.Equal(b))

	// Any field difference breaks exact equality, id and type included.
	b = testTransaction()
	b.Description = "CARTE AU DELICE"
	assert.False(t, a.Equal(b))

	b = testTransaction()
	b.Type = TypeDeposit
	assert.False(t, a.Equal(b))

	b = testTransaction()
	b.ID = "43"
	assert.False(t, a.Equal(b))

	b = testTransaction()
	b.Amount = 12.51
	assert.False(t, a.Equal(b))
}

func TestMatches_ApproximateEquality(t *testing.T) {
	// Arrange - the ledger rounded the amount and relabeled the endpoints
	a := testTransaction()
	b := testTransaction()
	b.ID = ""
	b.Amount = 12.509
	b.Type = TypeTransfer
	b.SourceName = "Something Else"
	b.DestinationName = "Savings"

	// Act / Assert - type and endpoints are not part of the contract
	assert.True(t, a.Matches(b))
}

func TestMatches_DateMustBeExact(t *testing.T) {
	a := testTransaction()
	b := testTransaction()
	b.Date = b.Date.AddDate(0, 0, 1)

	assert.False(t, a.Matches(b))
}

func TestMatches_AmountTolerance(t *testing.T) {
	a := testTransaction()

	within := testTransaction()
	within.Amount = a.Amount + 0.009
	assert.True(t, a.Matches(within))

	outside := testTransaction()
	outside.Amount = a.Amount + 0.011
	assert.False(t, a.Matches(outside))
}

func TestMatches_DissimilarDescriptions(t *testing.T) {
	a := testTransaction()
	b := testTransaction()
	b.Description = "VIREMENT LOYER JANVIER"

	assert.False(t, a.Matches(b))
}

func TestPersisted(t *testing.T) {
	tx := testTransaction()
	assert.True(t, tx.Persisted())

	tx.ID = ""
	assert.False(t, tx.Persisted())
}

func TestParseDate(t *testing.T) {
	// Plain calendar date
	d, err := ParseDate("2024-01-08")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), d)

	// Timestamp form as sent by the aggregation source
	d, err = ParseDate("2024-01-08T00:00:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), d)

	// Garbage
	_, err = ParseDate("08/01/2024")
	assert.Error(t, err)

	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestAccountKey(t *testing.T) {
	a := Account{Name: "Checking", Type: "asset", CurrentBalance: 100}
	b := Account{Name: "Checking", Type: "asset", CurrentBalance: 250.75}
	c := Account{Name: "Checking", Type: "expense"}

	// Identity ignores balance but not type
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}
