package model

import "github.com/shopspring/decimal"

// Identity is the configured account owner, supplied at startup and used
// only to validate that the account returned after login belongs to them.
type Identity struct {
	FirstName string
	LastName  string
	Email     string
}

// Account is the investor account record returned by the marketplace.
type Account struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Funds is the investor funds record returned by the marketplace.
type Funds struct {
	AvailableBalance decimal.Decimal `json:"available_balance"`
}
