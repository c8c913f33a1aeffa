package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/recon/internal/batch"
	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/store"
)

// Store is the account and transfer store the handlers write to.
type Store interface {
	FindAccount(ctx context.Context, accountNo string) (model.Account, error)
	FindAccountTransfer(ctx context.Context, senderID, id int64) (model.AccountTransfer, error)
	ValidateAccountTransfer(ctx context.Context, t model.AccountTransfer) ([]store.ValidationError, error)
	CreateAccountTransfer(ctx context.Context, t *model.AccountTransfer) error
	CompleteAccountTransfer(ctx context.Context, t *model.AccountTransfer) error
	ValidateBankTransfer(ctx context.Context, t model.BankTransfer) ([]store.ValidationError, error)
	CreateBankTransfer(ctx context.Context, t *model.BankTransfer) error
}

// Accepted ENTRY_DATE layouts.
var dateLayouts = []string{"2006-01-02", "02.01.2006", "20060102", "2006/01/02"}

// handle dispatches row to the handler for kind.
func (im *Importer) handle(ctx context.Context, doc *batch.Document, kind model.Kind, row model.Row, validateOnly bool) error {
	switch kind {
	case model.KindAccountTransfer:
		return im.addAccountTransfer(ctx, row, validateOnly)
	case model.KindBankTransfer:
		return im.addBankTransfer(ctx, row, validateOnly)
	case model.KindDirectDebit:
		return im.addDirectDebit(doc, row, validateOnly)
	default:
		return failf(FailureClassification, "Transaction type not found")
	}
}

func (im *Importer) sender(ctx context.Context, row model.Row) (model.Account, error) {
	no := row.Get(model.FieldSenderAccount)
	acct, err := im.store.FindAccount(ctx, no)
	if errors.Is(err, store.ErrNotFound) {
		return model.Account{}, failf(FailureLookup, "Account %s not found", no)
	}
	if err != nil {
		return model.Account{}, persistenceFailure(err)
	}
	return acct, nil
}

func (im *Importer) addAccountTransfer(ctx context.Context, row model.Row, validateOnly bool) error {
	sender, err := im.sender(ctx, row)
	if err != nil {
		return err
	}

	ref := strings.TrimSpace(row.Get(model.FieldDepotActivityID))

	var tr model.AccountTransfer
	if ref == "" {
		amount, err := parseAmount(row.Get(model.FieldAmount))
		if err != nil {
			return err
		}
		date, err := parseDate(row.Get(model.FieldEntryDate))
		if err != nil {
			return err
		}
		tr = model.AccountTransfer{
			SenderID:          sender.ID,
			SenderAccountNo:   sender.AccountNo,
			ReceiverAccountNo: row.Get(model.FieldReceiverAccount),
			Amount:            amount,
			Subject:           row.Subject(),
			Date:              date,
			SkipSecondaryAuth: true,
		}
	} else {
		tr, err = im.pendingTransfer(ctx, sender, ref)
		if err != nil {
			return err
		}
		tr.Subject = row.Subject()
	}

	verrs, err := im.store.ValidateAccountTransfer(ctx, tr)
	if err != nil {
		return persistenceFailure(err)
	}
	if len(verrs) > 0 {
		return failf(FailureValidation, "AccountTransfer validation error(s): %s", store.JoinMessages(verrs))
	}

	if validateOnly {
		return nil
	}

	if ref == "" {
		err = im.store.CreateAccountTransfer(ctx, &tr)
	} else {
		err = im.store.CompleteAccountTransfer(ctx, &tr)
	}
	if err != nil {
		return persistenceFailure(err)
	}
	return nil
}

// pendingTransfer loads the sender's transfer referenced by ref and checks
// that it still awaits completion.
func (im *Importer) pendingTransfer(ctx context.Context, sender model.Account, ref string) (model.AccountTransfer, error) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return model.AccountTransfer{}, failf(FailureLookup, "AccountTransfer not found")
	}

	tr, err := im.store.FindAccountTransfer(ctx, sender.ID, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.AccountTransfer{}, failf(FailureLookup, "AccountTransfer not found")
	}
	if err != nil {
		return model.AccountTransfer{}, persistenceFailure(err)
	}

	if tr.State != model.TransferPending {
		return model.AccountTransfer{}, failf(FailureValidation, "AccountTransfer state expected '%s' but was '%s'", model.TransferPending, tr.State)
	}
	return tr, nil
}

func (im *Importer) addBankTransfer(ctx context.Context, row model.Row, validateOnly bool) error {
	sender, err := im.sender(ctx, row)
	if err != nil {
		return err
	}

	amount, err := parseAmount(row.Get(model.FieldAmount))
	if err != nil {
		return err
	}

	bt := model.BankTransfer{
		SenderID:          sender.ID,
		Amount:            amount,
		Subject:           row.Subject(),
		ReceiverHolder:    row.Get(model.FieldReceiverName),
		ReceiverAccountNo: row.Get(model.FieldReceiverAccount),
		ReceiverBankCode:  row.Get(model.FieldReceiverBankCode),
	}

	verrs, err := im.store.ValidateBankTransfer(ctx, bt)
	if err != nil {
		return persistenceFailure(err)
	}
	if len(verrs) > 0 {
		return failf(FailureValidation, "BankTransfer validation error(s): %s", store.JoinMessages(verrs))
	}

	if validateOnly {
		return nil
	}
	if err := im.store.CreateBankTransfer(ctx, &bt); err != nil {
		return persistenceFailure(err)
	}
	return nil
}

// addDirectDebit appends a collection to the batch document. In
// validation-only mode the entry is checked but not appended.
func (im *Importer) addDirectDebit(doc *batch.Document, row model.Row, validateOnly bool) error {
	account := row.Get(model.FieldSenderAccount)
	bankCode := row.Get(model.FieldSenderBankCode)
	if !doc.ValidSender(account, bankCode) {
		return failf(FailureValidation, "BLZ/Konto not valid, csv file not written")
	}

	amount, err := parseAmount(row.Get(model.FieldAmount))
	if err != nil {
		return err
	}
	holder := ASCIIHolder(row.Get(model.FieldSenderName))

	if validateOnly {
		return nil
	}
	doc.Add(account, bankCode, holder, amount.Abs(), row.Subject())
	return nil
}

// parseAmount parses a decimal amount. A lone comma is read as the decimal
// separator ("12,50").
func parseAmount(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	if !strings.Contains(v, ".") {
		v = strings.Replace(v, ",", ".", 1)
	}
	amount, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, failf(FailureValidation, "%s %q is not a valid amount", model.FieldAmount, s)
	}
	return amount, nil
}

// parseDate parses an entry date. A blank value yields the zero time and is
// left to the store's validation.
func parseDate(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, failf(FailureValidation, "%s %q is not a valid date", model.FieldEntryDate, s)
}

func rowError(row model.Row, err error) string {
	return fmt.Sprintf("%s: %v", row.ActivityID(), err)
}
