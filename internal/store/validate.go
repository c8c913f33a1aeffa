package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/recon/internal/model"
)

// MaxSubjectLength is the longest subject a transfer may carry.
const MaxSubjectLength = 140

var (
	accountNoPattern = regexp.MustCompile(`^[0-9]{1,10}$`)
	bankCodePattern  = regexp.MustCompile(`^[0-9]{8}$`)
)

// ValidationError describes a single business-rule violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// JoinMessages joins violation messages with "; ".
func JoinMessages(errs []ValidationError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// AccountTransferRules checks an account transfer against the rules that
// need no database access.
func AccountTransferRules(t model.AccountTransfer) []ValidationError {
	errs := amountRules(t.Amount)
	errs = append(errs, subjectRules(t.Subject)...)

	if !accountNoPattern.MatchString(t.ReceiverAccountNo) {
		errs = append(errs, ValidationError{Field: "receiver_account_no", Message: "Receiver account number is invalid"})
	} else if t.ReceiverAccountNo == t.SenderAccountNo {
		errs = append(errs, ValidationError{Field: "receiver_account_no", Message: "Receiver account must differ from sender account"})
	}

	if t.Date.IsZero() {
		errs = append(errs, ValidationError{Field: "date", Message: "Date can't be blank"})
	}
	return errs
}

// BankTransferRules checks an outbound bank transfer.
func BankTransferRules(t model.BankTransfer) []ValidationError {
	errs := amountRules(t.Amount)
	errs = append(errs, subjectRules(t.Subject)...)

	if strings.TrimSpace(t.ReceiverHolder) == "" {
		errs = append(errs, ValidationError{Field: "receiver_holder", Message: "Receiver holder can't be blank"})
	}
	if !accountNoPattern.MatchString(t.ReceiverAccountNo) {
		errs = append(errs, ValidationError{Field: "receiver_account_no", Message: "Receiver account number is invalid"})
	}
	if !bankCodePattern.MatchString(t.ReceiverBankCode) {
		errs = append(errs, ValidationError{Field: "receiver_bank_code", Message: "Receiver bank code is invalid"})
	}
	return errs
}

func amountRules(amount decimal.Decimal) []ValidationError {
	var errs []ValidationError
	if !amount.IsPositive() {
		errs = append(errs, ValidationError{Field: "amount", Message: "Amount must be greater than 0"})
	}
	// No more than 2 decimal places.
	if !amount.Equal(amount.Truncate(2)) {
		errs = append(errs, ValidationError{Field: "amount", Message: "Amount must not have more than 2 decimal places"})
	}
	return errs
}

func subjectRules(subject string) []ValidationError {
	if strings.TrimSpace(subject) == "" {
		return []ValidationError{{Field: "subject", Message: "Subject can't be blank"}}
	}
	if utf8.RuneCountInString(subject) > MaxSubjectLength {
		return []ValidationError{{Field: "subject", Message: fmt.Sprintf("Subject is too long (maximum is %d characters)", MaxSubjectLength)}}
	}
	return nil
}

// ValidateAccountTransfer applies AccountTransferRules and checks that the
// receiving account exists.
func (s *Store) ValidateAccountTransfer(ctx context.Context, t model.AccountTransfer) ([]ValidationError, error) {
	errs := AccountTransferRules(t)
	if !accountNoPattern.MatchString(t.ReceiverAccountNo) {
		return errs, nil
	}

	_, err := s.FindAccount(ctx, t.ReceiverAccountNo)
	if errors.Is(err, ErrNotFound) {
		errs = append(errs, ValidationError{Field: "receiver_account_no", Message: fmt.Sprintf("Receiver account %s does not exist", t.ReceiverAccountNo)})
		return errs, nil
	}
	if err != nil {
		return nil, err
	}
	return errs, nil
}

// ValidateBankTransfer applies BankTransferRules.
func (s *Store) ValidateBankTransfer(_ context.Context, t model.BankTransfer) ([]ValidationError, error) {
	return BankTransferRules(t), nil
}
