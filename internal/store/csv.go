package store

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/cleared-dev/recon/internal/model"
)

const (
	numFields   = 3
	colAccount  = 0
	colHolder   = 1
	colBankCode = 2
)

// ReadAccounts reads an account seed CSV (account_no,holder_name,bank_code).
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes an account seed CSV.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"account_no", "holder_name", "bank_code"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colAccount] = acct.AccountNo
	row[colHolder] = acct.HolderName
	row[colBankCode] = acct.BankCode
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	if !accountNoPattern.MatchString(record[colAccount]) {
		return model.Account{}, fmt.Errorf("invalid account_no %q", record[colAccount])
	}
	if record[colBankCode] != "" && !bankCodePattern.MatchString(record[colBankCode]) {
		return model.Account{}, fmt.Errorf("invalid bank_code %q", record[colBankCode])
	}

	return model.Account{
		AccountNo:  record[colAccount],
		HolderName: record[colHolder],
		BankCode:   record[colBankCode],
	}, nil
}
