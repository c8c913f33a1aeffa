// Package importlog keeps an append-only CSV ledger of imported files.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry records the result of importing one file.
type Entry struct {
	Timestamp time.Time
	RunID     string
	File      string
	Imported  int
	Errors    int
	BatchFile string
	Status    string
}

// OK reports whether the file was imported without errors.
func (e Entry) OK() bool {
	return e.Errors == 0
}

// Header is the CSV header of the import log.
const Header = "timestamp,run_id,file,imported,errors,batch_file,status"

// DefaultPath is the log location relative to the working directory.
const DefaultPath = "logs/import-log.csv"

const (
	numFields    = 7
	colTimestamp = 0
	colRunID     = 1
	colFile      = 2
	colImported  = 3
	colErrors    = 4
	colBatchFile = 5
	colStatus    = 6
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colFile] = e.File
	row[colImported] = strconv.Itoa(e.Imported)
	row[colErrors] = strconv.Itoa(e.Errors)
	row[colBatchFile] = e.BatchFile
	row[colStatus] = e.Status
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	imported, err := strconv.Atoi(record[colImported])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing imported count %q: %w", record[colImported], err)
	}
	errs, err := strconv.Atoi(record[colErrors])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing error count %q: %w", record[colErrors], err)
	}

	return Entry{
		Timestamp: ts,
		RunID:     record[colRunID],
		File:      record[colFile],
		Imported:  imported,
		Errors:    errs,
		BatchFile: record[colBatchFile],
		Status:    record[colStatus],
	}, nil
}

// Append writes entries to the log at path, creating the file and header if
// needed.
func Append(path string, entries ...Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries of the log at path. A missing log has no entries.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Last returns up to n most recent entries, newest first.
func Last(entries []Entry, n int) []Entry {
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	out := make([]Entry, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		out = append(out, entries[i])
	}
	return out
}
