package types

import "math/big"

// Account is the balance-bearing record tracked for every participant
// address, including the module vault that holds escrowed value.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}

// Clone returns a deep copy so callers can mutate the result without
// affecting the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	clone := *a
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	} else {
		clone.Balance = big.NewInt(0)
	}
	return &clone
}
