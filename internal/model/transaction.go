package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferState represents the lifecycle state of a transfer.
type TransferState string

const (
	TransferPending   TransferState = "pending"
	TransferCompleted TransferState = "completed"
)

// AccountTransfer moves money between two accounts held by the same
// institution.
type AccountTransfer struct {
	ID                int64
	SenderID          int64
	SenderAccountNo   string
	ReceiverAccountNo string
	Amount            decimal.Decimal
	Subject           string
	Date              time.Time
	State             TransferState
	SkipSecondaryAuth bool // imported transfers are not confirmed by mobile TAN
}

// BankTransfer is an outbound transfer to an account at another bank.
type BankTransfer struct {
	ID                int64
	SenderID          int64
	Amount            decimal.Decimal
	Subject           string
	ReceiverHolder    string
	ReceiverAccountNo string
	ReceiverBankCode  string
	State             TransferState
}
