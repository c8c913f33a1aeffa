package model

// Account is a customer account held in the account store.
type Account struct {
	ID         int64
	AccountNo  string
	HolderName string
	BankCode   string
}
