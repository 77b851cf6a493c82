package types

import "math/big"

// Account tracks the token balances controlled by a single address. Balances
// are keyed by token symbol and are non-nil after NormalizeAccount.
type Account struct {
	Nonce    uint64              `json:"nonce"`
	Balances map[string]*big.Int `json:"balances"`
}

// Balance returns the balance held for the given token, defaulting to zero.
func (a *Account) Balance(token string) *big.Int {
	if a == nil || a.Balances == nil {
		return big.NewInt(0)
	}
	if bal, ok := a.Balances[token]; ok && bal != nil {
		return bal
	}
	return big.NewInt(0)
}

// SetBalance stores the balance for the given token, allocating the balance
// map on first use.
func (a *Account) SetBalance(token string, amount *big.Int) {
	if a == nil {
		return
	}
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	a.Balances[token] = new(big.Int).Set(amount)
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Nonce: a.Nonce}
	if a.Balances != nil {
		clone.Balances = make(map[string]*big.Int, len(a.Balances))
		for token, bal := range a.Balances {
			if bal == nil {
				bal = big.NewInt(0)
			}
			clone.Balances[token] = new(big.Int).Set(bal)
		}
	}
	return clone
}

// NormalizeAccount returns a usable account value, replacing nil accounts and
// nil balance maps with empty ones.
func NormalizeAccount(a *Account) *Account {
	if a == nil {
		return &Account{Balances: make(map[string]*big.Int)}
	}
	if a.Balances == nil {
		a.Balances = make(map[string]*big.Int)
	}
	return a
}
