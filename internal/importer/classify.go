package importer

import (
	"fmt"

	"github.com/cleared-dev/recon/internal/model"
)

// Bank codes with a fixed meaning in import files.
const (
	// InternalBankCode marks an account held at this institution.
	InternalBankCode = "00000000"
	// CollectorBankCode is the institution that collects direct debits.
	CollectorBankCode = "70022200"
)

// Transaction subtype codes (UMSATZ_KEY).
const (
	SubtypeStandard   = "10"
	SubtypeCollection = "16"
)

// ValidateRow checks the structural preconditions of a row. Only the
// standard and collection subtypes are accepted.
func ValidateRow(row model.Row) error {
	switch row.Get(model.FieldSubtype) {
	case SubtypeStandard, SubtypeCollection:
		return nil
	}
	return &Failure{
		Kind: FailureStructural,
		Msg:  fmt.Sprintf("%s %s is not allowed", model.FieldSubtype, row.Get(model.FieldSubtype)),
	}
}

// Classify maps the sender bank code, receiver bank code and subtype of a
// row to a transaction kind. The first matching rule wins.
func Classify(senderBankCode, receiverBankCode, subtype string) model.Kind {
	switch {
	case senderBankCode == InternalBankCode && receiverBankCode == InternalBankCode:
		return model.KindAccountTransfer
	case senderBankCode == InternalBankCode && subtype == SubtypeStandard:
		return model.KindBankTransfer
	case receiverBankCode == CollectorBankCode && subtype == SubtypeCollection:
		return model.KindDirectDebit
	default:
		return model.KindUnclassified
	}
}

// ClassifyRow classifies row by its bank codes and subtype.
func ClassifyRow(row model.Row) model.Kind {
	return Classify(row.Get(model.FieldSenderBankCode), row.Get(model.FieldReceiverBankCode), row.Get(model.FieldSubtype))
}
