// Package store persists accounts and transfers in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cleared-dev/recon/internal/model"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

const dateFormat = "2006-01-02"

// Store is the account and transfer store.
type Store struct {
	db *sql.DB
}

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
}

// Open opens (and migrates) the SQLite database at path.
func Open(path string) (*Store, error) {
	if err := migrateUp(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FindAccount returns the account with the given account number.
func (s *Store) FindAccount(ctx context.Context, accountNo string) (model.Account, error) {
	var a model.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, account_no, holder_name, bank_code FROM accounts WHERE account_no = ?`,
		accountNo,
	).Scan(&a.ID, &a.AccountNo, &a.HolderName, &a.BankCode)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("finding account %s: %w", accountNo, err)
	}
	return a, nil
}

// UpsertAccounts inserts accounts or updates them by account number.
func (s *Store) UpsertAccounts(ctx context.Context, accounts []model.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	for _, a := range accounts {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts(account_no, holder_name, bank_code)
		VALUES (?, ?, ?)
		ON CONFLICT(account_no) DO UPDATE SET
		 holder_name=excluded.holder_name,
		 bank_code=excluded.bank_code,
		 updated_at=CURRENT_TIMESTAMP;
		`, a.AccountNo, a.HolderName, a.BankCode)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upserting account %s: %w", a.AccountNo, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing accounts: %w", err)
	}
	return nil
}

// FindAccountTransfer returns a transfer by id, scoped to its sender.
func (s *Store) FindAccountTransfer(ctx context.Context, senderID, id int64) (model.AccountTransfer, error) {
	var (
		t    model.AccountTransfer
		date string
		skip bool
	)
	err := s.db.QueryRowContext(ctx, `
	SELECT t.id, t.sender_id, a.account_no, t.receiver_account_no, t.amount, t.subject, t.entry_date, t.state, t.skip_secondary_auth
	FROM account_transfers t JOIN accounts a ON a.id = t.sender_id
	WHERE t.id = ? AND t.sender_id = ?`,
		id, senderID,
	).Scan(&t.ID, &t.SenderID, &t.SenderAccountNo, &t.ReceiverAccountNo, &t.Amount, &t.Subject, &date, &t.State, &skip)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AccountTransfer{}, ErrNotFound
	}
	if err != nil {
		return model.AccountTransfer{}, fmt.Errorf("finding account transfer %d: %w", id, err)
	}

	if date != "" {
		t.Date, err = time.Parse(dateFormat, date)
		if err != nil {
			return model.AccountTransfer{}, fmt.Errorf("parsing date %q of transfer %d: %w", date, id, err)
		}
	}
	t.SkipSecondaryAuth = skip
	return t, nil
}

// CreateAccountTransfer inserts a new transfer and sets its ID. Transfers
// that skip secondary authorisation are booked immediately.
func (s *Store) CreateAccountTransfer(ctx context.Context, t *model.AccountTransfer) error {
	if t.State == "" {
		t.State = model.TransferPending
		if t.SkipSecondaryAuth {
			t.State = model.TransferCompleted
		}
	}

	var date string
	if !t.Date.IsZero() {
		date = t.Date.Format(dateFormat)
	}

	res, err := s.db.ExecContext(ctx, `
	INSERT INTO account_transfers(sender_id, receiver_account_no, amount, subject, entry_date, state, skip_secondary_auth, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, CASE WHEN ? = 'completed' THEN CURRENT_TIMESTAMP END)`,
		t.SenderID, t.ReceiverAccountNo, t.Amount.String(), t.Subject, date, string(t.State), t.SkipSecondaryAuth, string(t.State),
	)
	if err != nil {
		return fmt.Errorf("creating account transfer: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading account transfer id: %w", err)
	}
	return nil
}

// CompleteAccountTransfer moves a pending transfer to completed and stores
// its current subject.
func (s *Store) CompleteAccountTransfer(ctx context.Context, t *model.AccountTransfer) error {
	res, err := s.db.ExecContext(ctx, `
	UPDATE account_transfers
	SET state = ?, subject = ?, completed_at = CURRENT_TIMESTAMP
	WHERE id = ? AND sender_id = ? AND state = ?`,
		string(model.TransferCompleted), t.Subject, t.ID, t.SenderID, string(model.TransferPending),
	)
	if err != nil {
		return fmt.Errorf("completing account transfer %d: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("completing account transfer %d: %w", t.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("account transfer %d is no longer pending", t.ID)
	}
	t.State = model.TransferCompleted
	return nil
}

// CreateBankTransfer inserts a new outbound transfer and sets its ID.
func (s *Store) CreateBankTransfer(ctx context.Context, t *model.BankTransfer) error {
	if t.State == "" {
		t.State = model.TransferPending
	}
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO bank_transfers(sender_id, amount, subject, receiver_holder, receiver_account_no, receiver_bank_code, state)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.SenderID, t.Amount.String(), t.Subject, t.ReceiverHolder, t.ReceiverAccountNo, t.ReceiverBankCode, string(t.State),
	)
	if err != nil {
		return fmt.Errorf("creating bank transfer: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading bank transfer id: %w", err)
	}
	return nil
}

// CountTransfers returns the number of stored account and bank transfers.
func (s *Store) CountTransfers(ctx context.Context) (accountTransfers, bankTransfers int, err error) {
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM account_transfers`).Scan(&accountTransfers); err != nil {
		return 0, 0, fmt.Errorf("counting account transfers: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bank_transfers`).Scan(&bankTransfers); err != nil {
		return 0, 0, fmt.Errorf("counting bank transfers: %w", err)
	}
	return accountTransfers, bankTransfers, nil
}
