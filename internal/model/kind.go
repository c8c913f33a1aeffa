package model

// Kind classifies an import row into the transaction it produces.
type Kind int

const (
	KindUnclassified Kind = iota
	KindAccountTransfer
	KindBankTransfer
	KindDirectDebit
)

func (k Kind) String() string {
	switch k {
	case KindAccountTransfer:
		return "AccountTransfer"
	case KindBankTransfer:
		return "BankTransfer"
	case KindDirectDebit:
		return "DirectDebitCollection"
	default:
		return "Unclassified"
	}
}
