package ledger

import (
	"fmt"
	"time"
)

// Account is a named financial account. It exists for the secondary
// balance-consistency check only; the matching engine never looks at it.
type Account struct {
	Name           string
	Type           string
	CurrentBalance float64
	BalanceDate    time.Time
}

// AccountKey is the identity of an account: two accounts with the same
// type and name are the same account, whatever else differs.
type AccountKey struct {
	Type string
	Name string
}

// Key returns the identity of the account.
func (a Account) Key() AccountKey {
	return AccountKey{Type: a.Type, Name: a.Name}
}

func (a Account) String() string {
	return fmt.Sprintf("Account %-17s Name: %-30s Balance: %.2f", a.Type, a.Name, a.CurrentBalance)
}
