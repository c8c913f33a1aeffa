package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/cleared-dev/recon/internal/model"
)

// Delimiter separates the columns of an import file.
const Delimiter = ';'

// Supported import file encodings.
const (
	CharsetUTF8        = "utf-8"
	CharsetISO88591    = "iso-8859-1"
	CharsetWindows1252 = "windows-1252"
)

const bom = "\ufeff"

// decode wraps r so that it yields UTF-8 for the given charset.
func decode(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", CharsetUTF8, "utf8":
		return r, nil
	case CharsetISO88591, "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	case CharsetWindows1252, "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(r), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
}

// ReadRows parses a header-defined, semicolon-separated file. Blank lines
// are skipped; short rows leave the missing columns empty.
func ReadRows(r io.Reader, charset string) ([]model.Row, error) {
	dr, err := decode(r, charset)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(dr)
	cr.Comma = Delimiter
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, bom))
	}

	var rows []model.Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading import file: %w", err)
		}
		if isBlank(rec) {
			continue
		}

		line, _ := cr.FieldPos(0)
		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				fields[name] = rec[i]
			} else {
				fields[name] = ""
			}
		}
		rows = append(rows, model.NewRow(line, fields))
	}
	return rows, nil
}

// ReadRowsFile opens path and parses it with ReadRows.
func ReadRowsFile(path, charset string) ([]model.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	return ReadRows(f, charset)
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
