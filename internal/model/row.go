package model

import (
	"strconv"
	"strings"
)

// Column names of the import file header.
const (
	FieldActivityID       = "ACTIVITY_ID"
	FieldSenderAccount    = "SENDER_KONTO"
	FieldSenderBankCode   = "SENDER_BLZ"
	FieldSenderName       = "SENDER_NAME"
	FieldReceiverAccount  = "RECEIVER_KONTO"
	FieldReceiverBankCode = "RECEIVER_BLZ"
	FieldReceiverName     = "RECEIVER_NAME"
	FieldSubtype          = "UMSATZ_KEY"
	FieldAmount           = "AMOUNT"
	FieldEntryDate        = "ENTRY_DATE"
	FieldDepotActivityID  = "DEPOT_ACTIVITY_ID"
)

// DescriptionFields is the number of DESCn columns that make up a subject.
const DescriptionFields = 14

// Row is one parsed line of an import file, keyed by header name.
type Row struct {
	Line   int // 1-based line in the source file
	Fields map[string]string
}

// NewRow returns a Row for the given line and fields.
func NewRow(line int, fields map[string]string) Row {
	if fields == nil {
		fields = map[string]string{}
	}
	return Row{Line: line, Fields: fields}
}

// Get returns the value of a column, or "" if the column is absent.
func (r Row) Get(name string) string {
	return r.Fields[name]
}

// ActivityID returns the row identifier. Blank means the row is skipped.
func (r Row) ActivityID() string {
	return r.Fields[FieldActivityID]
}

// Description returns the value of DESCn.
func (r Row) Description(n int) string {
	return r.Fields["DESC"+strconv.Itoa(n)]
}

// Subject concatenates all non-blank DESC1..DESC14 values in column order.
func (r Row) Subject() string {
	var b strings.Builder
	for n := 1; n <= DescriptionFields; n++ {
		d := r.Description(n)
		if strings.TrimSpace(d) == "" {
			continue
		}
		b.WriteString(d)
	}
	return b.String()
}
