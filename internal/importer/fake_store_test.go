package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleared-dev/recon/internal/model"
	"github.com/cleared-dev/recon/internal/store"
)

// fakeStore is an in-memory Store. createErrs makes the next n creates fail.
type fakeStore struct {
	accounts         map[string]model.Account
	accountTransfers map[int64]model.AccountTransfer
	bankTransfers    []model.BankTransfer
	nextID           int64

	createErrs int
	creates    int
	lookups    int
}

func newFakeStore(accounts ...model.Account) *fakeStore {
	fs := &fakeStore{
		accounts:         map[string]model.Account{},
		accountTransfers: map[int64]model.AccountTransfer{},
		nextID:           100,
	}
	for i, a := range accounts {
		if a.ID == 0 {
			a.ID = int64(i + 1)
		}
		fs.accounts[a.AccountNo] = a
	}
	return fs
}

func (f *fakeStore) FindAccount(_ context.Context, accountNo string) (model.Account, error) {
	f.lookups++
	a, ok := f.accounts[accountNo]
	if !ok {
		return model.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) FindAccountTransfer(_ context.Context, senderID, id int64) (model.AccountTransfer, error) {
	t, ok := f.accountTransfers[id]
	if !ok || t.SenderID != senderID {
		return model.AccountTransfer{}, store.ErrNotFound
	}
	return t, nil
}

func (f *fakeStore) ValidateAccountTransfer(_ context.Context, t model.AccountTransfer) ([]store.ValidationError, error) {
	errs := store.AccountTransferRules(t)
	if _, ok := f.accounts[t.ReceiverAccountNo]; !ok && len(errs) == 0 {
		errs = append(errs, store.ValidationError{Field: "receiver_account_no", Message: fmt.Sprintf("Receiver account %s does not exist", t.ReceiverAccountNo)})
	}
	return errs, nil
}

func (f *fakeStore) ValidateBankTransfer(_ context.Context, t model.BankTransfer) ([]store.ValidationError, error) {
	return store.BankTransferRules(t), nil
}

func (f *fakeStore) fail() error {
	f.creates++
	if f.createErrs > 0 {
		f.createErrs--
		return errors.New("database is locked")
	}
	return nil
}

func (f *fakeStore) CreateAccountTransfer(_ context.Context, t *model.AccountTransfer) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.nextID++
	t.ID = f.nextID
	if t.State == "" {
		t.State = model.TransferPending
		if t.SkipSecondaryAuth {
			t.State = model.TransferCompleted
		}
	}
	f.accountTransfers[t.ID] = *t
	return nil
}

func (f *fakeStore) CompleteAccountTransfer(_ context.Context, t *model.AccountTransfer) error {
	if err := f.fail(); err != nil {
		return err
	}
	t.State = model.TransferCompleted
	f.accountTransfers[t.ID] = *t
	return nil
}

func (f *fakeStore) CreateBankTransfer(_ context.Context, t *model.BankTransfer) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.nextID++
	t.ID = f.nextID
	t.State = model.TransferPending
	f.bankTransfers = append(f.bankTransfers, *t)
	return nil
}
