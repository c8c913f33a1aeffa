package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cleared-dev/recon/internal/batch"
	"github.com/cleared-dev/recon/internal/model"
)

const header = "ACTIVITY_ID;SENDER_KONTO;SENDER_BLZ;SENDER_NAME;RECEIVER_KONTO;RECEIVER_BLZ;RECEIVER_NAME;UMSATZ_KEY;AMOUNT;ENTRY_DATE;DEPOT_ACTIVITY_ID;DESC1;DESC2"

var (
	alice = model.Account{ID: 1, AccountNo: "1000001", HolderName: "Alice", BankCode: InternalBankCode}
	bob   = model.Account{ID: 2, AccountNo: "1000002", HolderName: "Bob", BankCode: InternalBankCode}

	fixedNow = time.Date(2025, 1, 3, 10, 15, 0, 0, time.UTC)
)

func writeImport(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transactions.csv")
	content := header + "\n" + strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestImporter(t *testing.T, st Store) (*Importer, string) {
	t.Helper()
	dir := t.TempDir()
	im := New(st, Config{
		BatchDir:      dir,
		Discriminator: "201",
		Header:        batch.Header{Kind: "LK", AccountNo: "8888888888", BankCode: "99999999", Name: "Credit collection"},
	}, zap.NewNop())
	im.now = func() time.Time { return fixedNow }
	return im, dir
}

func batchFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// Rows by kind. Columns follow header.
const (
	rowAccountTransfer = "1;1000001;00000000;Alice;1000002;00000000;Bob;10;25.50;2025-01-02;;Rent;January"
	rowBankTransfer    = "2;1000001;00000000;Alice;4711;37040044;Carol Jones;10;100;02.01.2025;;Invoice 42;"
	rowDirectDebit     = "3;123456;37040044;Jürgen Müller-Lüdenscheid;9999;70022200;Collector;16;-12.34;2025-01-02;;Fee;"
)

func TestImportFile_AllKinds(t *testing.T) {
	st := newFakeStore(alice, bob)
	im, dir := newTestImporter(t, st)

	out := im.ImportFile(context.Background(), writeImport(t, rowAccountTransfer, rowBankTransfer, rowDirectDebit), false)

	assert.True(t, out.OK(), out.Errors)
	assert.Equal(t, StatusSuccess, out.Status())
	assert.Equal(t, []string{"1", "2", "3"}, out.Imported)
	assert.Equal(t, "transactions.csv", out.File)
	assert.Equal(t, "DTAUS20250103_101500_201.csv", out.BatchFile)
	assert.Equal(t, []string{out.BatchFile}, batchFiles(t, dir))

	require.Len(t, st.accountTransfers, 1)
	for _, tr := range st.accountTransfers {
		assert.Equal(t, "RentJanuary", tr.Subject)
		assert.True(t, tr.Amount.Equal(decimal.RequireFromString("25.50")))
		assert.True(t, tr.SkipSecondaryAuth)
		assert.Equal(t, model.TransferCompleted, tr.State)
		assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), tr.Date)
	}
	require.Len(t, st.bankTransfers, 1)
	assert.Equal(t, "Carol Jones", st.bankTransfers[0].ReceiverHolder)
	assert.Equal(t, "37040044", st.bankTransfers[0].ReceiverBankCode)

	data, err := os.ReadFile(filepath.Join(dir, out.BatchFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "C;123456;37040044;Jurgen MullerLudenscheid;12.34;Fee")
	assert.NotContains(t, string(data), "-12.34")
}

func TestImportFile_BatchNamesDoNotCollide(t *testing.T) {
	st := newFakeStore(alice, bob)
	im, dir := newTestImporter(t, st)
	other := "4;654321;37040044;Erika Mustermann;9999;70022200;Collector;16;-7;2025-01-02;;Fee;"

	first := im.ImportFile(context.Background(), writeImport(t, rowDirectDebit), false)
	second := im.ImportFile(context.Background(), writeImport(t, other), false)

	require.True(t, first.OK(), first.Errors)
	require.True(t, second.OK(), second.Errors)
	assert.Equal(t, "DTAUS20250103_101500_201.csv", first.BatchFile)
	assert.Equal(t, "DTAUS20250103_101501_201.csv", second.BatchFile)
	assert.ElementsMatch(t, []string{first.BatchFile, second.BatchFile}, batchFiles(t, dir))

	data, err := os.ReadFile(filepath.Join(dir, first.BatchFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Jurgen")
	assert.NotContains(t, string(data), "Erika")

	data, err = os.ReadFile(filepath.Join(dir, second.BatchFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Erika")
}

func TestImportFile_NoBatchWithoutDirectDebits(t *testing.T) {
	st := newFakeStore(alice, bob)
	im, dir := newTestImporter(t, st)

	out := im.ImportFile(context.Background(), writeImport(t, rowAccountTransfer), false)

	assert.Equal(t, StatusSuccess, out.Status())
	assert.Empty(t, out.BatchFile)
	assert.Empty(t, batchFiles(t, dir))
}

func TestImportFile_DisallowedSubtypeStopsFile(t *testing.T) {
	st := newFakeStore(alice, bob)
	im, _ := newTestImporter(t, st)

	bad := "9;1000001;00000000;Alice;1000002;00000000;Bob;99;1;2025-01-02;;x;"
	out := im.ImportFile(context.Background(), writeImport(t, bad, rowAccountTransfer), false)

	assert.Empty(t, out.Imported)
	assert.Equal(t, []string{"9: UMSATZ_KEY 99 is not allowed"}, out.Errors)
	assert.Empty(t, st.accountTransfers)
}

func TestImportFile_SkipsBlankActivityID(t *testing.T) {
	st := newFakeStore(alice, bob)
	im, _ := newTestImporter(t, st)

	blank := ";1000001;00000000;Alice;1000002;00000000;Bob;10;1;2025-01-02;;x;"
	out := im.ImportFile(context.Background(), writeImport(t, blank, rowAccountTransfer), false)

	assert.Equal(t, []string{"1"}, out.Imported)
	assert.Empty(t, out.Errors)
	assert.Len(t, st.accountTransfers, 1)
}

func TestImportFile_FailFast(t *testing.T) {
	st := newFakeStore(alice, bob)
	im, dir := newTestImporter(t, st)

	unknown := "5;5555555;00000000;Nobody;1000002;00000000;Bob;10;1;2025-01-02;;x;"
	out := im.ImportFile(context.Background(), writeImport(t, rowDirectDebit, unknown, rowAccountTransfer, rowBankTransfer), false)

	assert.Equal(t, []string{"3"}, out.Imported)
	assert.Equal(t, []string{"5: Account 5555555 not found"}, out.Errors)
	assert.Equal(t, "Imported: 3 Errors: 5: Account 5555555 not found", out.Status())
	assert.Empty(t, st.accountTransfers)
	assert.Empty(t, st.bankTransfers)
	assert.Empty(t, batchFiles(t, dir), "no batch document after an error")
}

func TestImportFile_Unclassified(t *testing.T) {
	im, _ := newTestImporter(t, newFakeStore(alice))

	row := "7;123;37040044;X;456;10020030;Y;10;1;2025-01-02;;x;"
	out := im.ImportFile(context.Background(), writeImport(t, row), false)

	assert.Equal(t, []string{"7: Transaction type not found"}, out.Errors)
}

func TestImportFile_ValidationErrors(t *testing.T) {
	im, _ := newTestImporter(t, newFakeStore(alice, bob))

	row := "4;1000001;00000000;Alice;1000002;00000000;Bob;10;0;2025-01-02;;;"
	out := im.ImportFile(context.Background(), writeImport(t, row), false)

	assert.Equal(t, []string{"4: AccountTransfer validation error(s): Amount must be greater than 0; Subject can't be blank"}, out.Errors)
}

func TestImportFile_BankTransferValidation(t *testing.T) {
	im, _ := newTestImporter(t, newFakeStore(alice))

	row := "2;1000001;00000000;Alice;4711;3704;;10;100;;;Invoice;"
	out := im.ImportFile(context.Background(), writeImport(t, row), false)

	require.Len(t, out.Errors, 1)
	assert.True(t, strings.HasPrefix(out.Errors[0], "2: BankTransfer validation error(s): "), out.Errors[0])
	assert.Contains(t, out.Errors[0], "Receiver holder can't be blank")
	assert.Contains(t, out.Errors[0], "Receiver bank code is invalid")
}

func TestImportFile_InvalidAmount(t *testing.T) {
	im, _ := newTestImporter(t, newFakeStore(alice, bob))

	row := "1;1000001;00000000;Alice;1000002;00000000;Bob;10;ten;2025-01-02;;Rent;"
	out := im.ImportFile(context.Background(), writeImport(t, row), false)

	assert.Equal(t, []string{`1: AMOUNT "ten" is not a valid amount`}, out.Errors)
}

func TestImportFile_DirectDebitInvalidSender(t *testing.T) {
	im, dir := newTestImporter(t, newFakeStore())

	row := "3;00000000;00000000;X;9999;70022200;Collector;16;5;2025-01-02;;Fee;"
	out := im.ImportFile(context.Background(), writeImport(t, row), false)

	assert.Equal(t, []string{"3: BLZ/Konto not valid, csv file not written"}, out.Errors)
	assert.Empty(t, batchFiles(t, dir))
}

func TestImportFile_CompletesReferencedTransfer(t *testing.T) {
	st := newFakeStore(alice, bob)
	st.accountTransfers[55] = model.AccountTransfer{
		ID: 55, SenderID: alice.ID, SenderAccountNo: alice.AccountNo, ReceiverAccountNo: bob.AccountNo,
		Amount: decimal.NewFromInt(10), Subject: "old", Date: fixedNow, State: model.TransferPending,
	}
	im, _ := newTestImporter(t, st)

	row := "1;1000001;00000000;Alice;1000002;00000000;Bob;10;999;;55;New;subject"
	out := im.ImportFile(context.Background(), writeImport(t, row), false)

	require.True(t, out.OK(), out.Errors)
	got := st.accountTransfers[55]
	assert.Equal(t, model.TransferCompleted, got.State)
	assert.Equal(t, "Newsubject", got.Subject)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(10)), "amount of a referenced transfer is kept")
}

func TestImportFile_ReferencedTransferNotPending(t *testing.T) {
	st := newFakeStore(alice, bob)
	st.accountTransfers[55] = model.AccountTransfer{ID: 55, SenderID: alice.ID, State: model.TransferCompleted}
	im, _ := newTestImporter(t, st)

	row := "1;1000001;00000000;Alice;1000002;00000000;Bob;10;1;;55;x;"
	out := im.ImportFile(context.Background(), writeImport(t, row), false)

	assert.Equal(t, []string{"1: AccountTransfer state expected 'pending' but was 'completed'"}, out.Errors)
}

func TestImportFile_ReferencedTransferMissing(t *testing.T) {
	im, _ := newTestImporter(t, newFakeStore(alice, bob))

	row := "1;1000001;00000000;Alice;1000002;00000000;Bob;10;1;;77;x;"
	out := im.ImportFile(context.Background(), writeImport(t, row), false)

	assert.Equal(t, []string{"1: AccountTransfer not found"}, out.Errors)
}

func TestImportFile_RetriesPersistenceFailures(t *testing.T) {
	st := newFakeStore(alice, bob)
	st.createErrs = 2
	im, _ := newTestImporter(t, st)

	out := im.ImportFile(context.Background(), writeImport(t, rowBankTransfer), false)

	assert.True(t, out.OK(), out.Errors)
	assert.Equal(t, 3, st.creates)
	assert.Len(t, st.bankTransfers, 1)
}

func TestImportFile_RetryBound(t *testing.T) {
	st := newFakeStore(alice, bob)
	st.createErrs = 100
	im, _ := newTestImporter(t, st)

	out := im.ImportFile(context.Background(), writeImport(t, rowBankTransfer, rowAccountTransfer), false)

	assert.Equal(t, 5, st.creates)
	assert.Equal(t, 5, st.lookups, "every attempt re-runs the whole handler")
	assert.Equal(t, []string{"2: database is locked"}, out.Errors)
	assert.Empty(t, out.Imported)
}

func TestImportFile_ValidateOnly(t *testing.T) {
	st := newFakeStore(alice, bob)
	im, dir := newTestImporter(t, st)
	path := writeImport(t, rowAccountTransfer, rowBankTransfer, rowDirectDebit)

	first := im.ImportFile(context.Background(), path, true)
	second := im.ImportFile(context.Background(), path, true)

	assert.Equal(t, first, second)
	assert.Equal(t, StatusSuccess, first.Status())
	assert.Equal(t, []string{"1", "2", "3"}, first.Imported)
	assert.Empty(t, first.BatchFile)
	assert.Empty(t, st.accountTransfers)
	assert.Empty(t, st.bankTransfers)
	assert.Zero(t, st.creates)
	assert.Empty(t, batchFiles(t, dir))
}

func TestImportFile_MissingFile(t *testing.T) {
	im, _ := newTestImporter(t, newFakeStore())

	out := im.ImportFile(context.Background(), filepath.Join(t.TempDir(), "gone.csv"), false)

	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "opening import file")
	assert.Equal(t, "gone.csv", out.File)
}

func TestImportFile_DirectDebitAmountsNonNegative(t *testing.T) {
	st := newFakeStore()
	im, dir := newTestImporter(t, st)

	out := im.ImportFile(context.Background(), writeImport(t,
		"1;123456;37040044;A;9999;70022200;C;16;-5.00;;;a;",
		"2;123457;37040044;B;9999;70022200;C;16;7.25;;;b;",
	), false)
	require.True(t, out.OK(), out.Errors)

	data, err := os.ReadFile(filepath.Join(dir, out.BatchFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "C;123456;37040044;A;5.00;a")
	assert.Contains(t, string(data), "C;123457;37040044;B;7.25;b")
	assert.Contains(t, string(data), "E;2;12.25")
}

func TestOutcomeStatus(t *testing.T) {
	assert.Equal(t, "Success", Outcome{Imported: []string{"1"}}.Status())
	assert.Equal(t, "Imported: 1, 2 Errors: 3: boom",
		Outcome{Imported: []string{"1", "2"}, Errors: []string{"3: boom"}}.Status())
	assert.Equal(t, "Imported:  Errors: 1: a; 2: b",
		Outcome{Errors: []string{"1: a", "2: b"}}.Status())
}

func TestReport(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	out := Outcome{File: "a.csv", Imported: []string{"1"}, Errors: []string{"2: x"}}

	status := Report(zap.New(core), out, fixedNow)

	assert.Equal(t, "Imported: 1 Errors: 2: x", status)
	entries := logs.FilterMessage("import result").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "a.csv", fields["file"])
	assert.Equal(t, status, fields["status"])
	ts, ok := fields["timestamp"].(time.Time)
	require.True(t, ok)
	assert.True(t, fixedNow.Equal(ts))
}
