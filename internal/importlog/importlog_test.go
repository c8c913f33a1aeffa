package importlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		RunID:     "3f1c9a52-6a0e-4a3b-9a57-0d1c2b8f0e11",
		File:      "transactions.csv",
		Imported:  12,
		Errors:    0,
		BatchFile: "DTAUS20250115_103000_201.csv",
		Status:    "Success",
	}
}

func logPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "logs", "import-log.csv")
}

func TestAppend_NewFile(t *testing.T) {
	path := logPath(t)
	require.NoError(t, Append(path, testEntry()))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "transactions.csv", entries[0].File)
	assert.True(t, entries[0].OK())
}

func TestAppend_ExistingFile(t *testing.T) {
	path := logPath(t)
	require.NoError(t, Append(path, testEntry()))

	failed := testEntry()
	failed.File = "broken.csv"
	failed.Imported = 1
	failed.Errors = 1
	failed.BatchFile = ""
	failed.Status = "Imported: 1 Errors: 2: Account 9 not found; with, comma"
	require.NoError(t, Append(path, failed))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "transactions.csv", entries[0].File)
	assert.Equal(t, failed, entries[1])
	assert.False(t, entries[1].OK())
}

func TestRead_RoundTrip(t *testing.T) {
	path := logPath(t)
	original := testEntry()
	require.NoError(t, Append(path, original))

	entries, err := Read(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, original.Timestamp.Equal(entries[0].Timestamp))
	assert.Equal(t, original.RunID, entries[0].RunID)
	assert.Equal(t, original.Imported, entries[0].Imported)
	assert.Equal(t, original.BatchFile, entries[0].BatchFile)
	assert.Equal(t, original.Status, entries[0].Status)
}

func TestRead_NotFound(t *testing.T) {
	entries, err := Read(logPath(t))
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_HeaderOnly(t *testing.T) {
	path := logPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(Header+"\n"), 0o644))

	entries, err := Read(path)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	assert.ErrorContains(t, err, "expected 7 fields")

	row := MarshalEntry(testEntry())
	row[colImported] = "many"
	_, err = UnmarshalEntry(row)
	assert.ErrorContains(t, err, "parsing imported count")
}

func TestTimestampFormat(t *testing.T) {
	row := MarshalEntry(testEntry())
	assert.Equal(t, "2025-01-15T10:30:00Z", row[colTimestamp])
}

func TestLast(t *testing.T) {
	var entries []Entry
	for i := 0; i < 4; i++ {
		e := testEntry()
		e.Imported = i
		entries = append(entries, e)
	}

	last := Last(entries, 2)
	require.Len(t, last, 2)
	assert.Equal(t, 3, last[0].Imported)
	assert.Equal(t, 2, last[1].Imported)

	assert.Len(t, Last(entries, 0), 4)
	assert.Len(t, Last(entries, 10), 4)
	assert.Empty(t, Last(nil, 3))
}
