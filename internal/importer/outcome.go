package importer

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// StatusSuccess is the status of a file imported without errors.
const StatusSuccess = "Success"

// Outcome is the result of importing one file.
type Outcome struct {
	File      string
	Imported  []string // activity ids in file order
	Errors    []string // "<activity id>: <message>" in file order
	BatchFile string   // name of the written batch document, if any
}

// OK reports whether the file was imported without errors.
func (o Outcome) OK() bool {
	return len(o.Errors) == 0
}

// Status formats the outcome as a single line.
func (o Outcome) Status() string {
	if o.OK() {
		return StatusSuccess
	}
	return "Imported: " + strings.Join(o.Imported, ", ") + " Errors: " + strings.Join(o.Errors, "; ")
}

// Report logs the outcome's status and returns it.
func Report(log *zap.Logger, o Outcome, now time.Time) string {
	status := o.Status()
	log.Info("import result",
		zap.Time("timestamp", now),
		zap.String("file", o.File),
		zap.Int("imported", len(o.Imported)),
		zap.Int("errors", len(o.Errors)),
		zap.String("status", status),
	)
	return status
}
