// Package batch builds the settlement batch document for direct-debit
// collections. A Document is filled row by row while one import file is
// processed and written to disk at most once.
package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Header identifies the collecting account that every entry settles against.
type Header struct {
	Kind      string `yaml:"kind" mapstructure:"kind"`
	AccountNo string `yaml:"account_no" mapstructure:"account_no"`
	BankCode  string `yaml:"bank_code" mapstructure:"bank_code"`
	Name      string `yaml:"name" mapstructure:"name"`
}

// Entry is one direct-debit collection.
type Entry struct {
	AccountNo string
	BankCode  string
	Holder    string
	Amount    decimal.Decimal // never negative
	Subject   string
}

// Record type markers of the written document.
const (
	recordHeader  = "A"
	recordEntry   = "C"
	recordTrailer = "E"
)

const dateFormat = "20060102"

var (
	accountNoPattern = regexp.MustCompile(`^[0-9]{1,10}$`)
	bankCodePattern  = regexp.MustCompile(`^[0-9]{8}$`)
)

// Document is an append-only set of direct-debit entries.
type Document struct {
	header  Header
	created time.Time
	entries []Entry
}

// NewDocument creates an empty Document for the given collecting account.
func NewDocument(h Header, created time.Time) *Document {
	return &Document{header: h, created: created}
}

// ValidSender reports whether an account/bank code pair can be debited:
// a 1-10 digit account number and an 8 digit bank code, neither all zeros.
func (d *Document) ValidSender(accountNo, bankCode string) bool {
	if !accountNoPattern.MatchString(accountNo) || !bankCodePattern.MatchString(bankCode) {
		return false
	}
	return !allZero(accountNo) && !allZero(bankCode)
}

func allZero(s string) bool {
	for _, r := range s {
		if r != '0' {
			return false
		}
	}
	return true
}

// Add appends an entry. The stored amount is the absolute value of amount.
func (d *Document) Add(accountNo, bankCode, holder string, amount decimal.Decimal, subject string) {
	d.entries = append(d.entries, Entry{
		AccountNo: accountNo,
		BankCode:  bankCode,
		Holder:    holder,
		Amount:    amount.Abs(),
		Subject:   subject,
	})
}

// IsEmpty reports whether no entry has been added.
func (d *Document) IsEmpty() bool {
	return len(d.entries) == 0
}

// Len returns the number of entries.
func (d *Document) Len() int {
	return len(d.entries)
}

// Entries returns a copy of the entries in insertion order.
func (d *Document) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Total returns the sum of all entry amounts.
func (d *Document) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range d.entries {
		total = total.Add(e.Amount)
	}
	return total
}

// Write encodes the document: one header record, one record per entry and a
// trailer carrying the entry count and total.
func (d *Document) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	header := []string{recordHeader, d.header.Kind, d.header.AccountNo, d.header.BankCode, d.header.Name, d.created.Format(dateFormat)}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, e := range d.entries {
		rec := []string{recordEntry, e.AccountNo, e.BankCode, e.Holder, e.Amount.StringFixed(2), e.Subject}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing entry %d: %w", i+1, err)
		}
	}

	trailer := []string{recordTrailer, fmt.Sprintf("%d", len(d.entries)), d.Total().StringFixed(2)}
	if err := cw.Write(trailer); err != nil {
		return fmt.Errorf("writing trailer: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile writes the document to path. The file appears atomically: it is
// written to a temporary file in the same directory and linked into place.
// An existing file at path is never replaced; the error then matches
// os.ErrExist.
func (d *Document) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating batch dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating batch file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := d.Write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing batch file: %w", err)
	}
	if err := os.Link(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving batch file into place: %w", err)
	}
	return nil
}
