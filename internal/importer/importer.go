// Package importer turns a transaction CSV file into stored transfers and a
// direct-debit batch document.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cleared-dev/recon/internal/batch"
	"github.com/cleared-dev/recon/internal/id"
	"github.com/cleared-dev/recon/internal/model"
)

// Config controls how files are imported.
type Config struct {
	BatchDir      string       // where batch documents are written
	Discriminator string       // fixed suffix of batch file names
	Header        batch.Header // sender block of every batch document
	Charset       string       // encoding of import files, default utf-8
	MaxAttempts   int          // handler attempts per row, default 5
}

// Importer imports transaction files one at a time.
type Importer struct {
	store Store
	cfg   Config
	log   *zap.Logger
	now   func() time.Time
}

// New creates an Importer writing to st.
func New(st Store, cfg Config, log *zap.Logger) *Importer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{store: st, cfg: cfg, log: log, now: time.Now}
}

// ImportFile imports every row of the file at path, stopping at the first
// row that fails. In validateOnly mode rows are checked but nothing is
// stored and no batch document is written.
func (im *Importer) ImportFile(ctx context.Context, path string, validateOnly bool) Outcome {
	out := Outcome{File: filepath.Base(path)}
	log := im.log.With(zap.String("file", out.File), zap.Bool("validate_only", validateOnly))

	rows, err := ReadRowsFile(path, im.cfg.Charset)
	if err != nil {
		log.Error("parsing import file", zap.Error(err))
		out.Errors = append(out.Errors, err.Error())
		return out
	}

	doc := batch.NewDocument(im.cfg.Header, im.now())

	for _, row := range rows {
		if err := ValidateRow(row); err != nil {
			log.Warn("row rejected", zap.Int("line", row.Line), zap.Error(err))
			out.Errors = append(out.Errors, rowError(row, err))
			break
		}
		if strings.TrimSpace(row.ActivityID()) == "" {
			log.Debug("skipping row without activity id", zap.Int("line", row.Line))
			continue
		}
		if err := im.importRow(ctx, log, doc, row, validateOnly); err != nil {
			out.Errors = append(out.Errors, rowError(row, err))
			break
		}
		out.Imported = append(out.Imported, row.ActivityID())
	}

	if len(out.Errors) > 0 || validateOnly || doc.IsEmpty() {
		return out
	}

	name, err := im.writeBatch(doc)
	if err != nil {
		log.Error("writing batch document", zap.Error(err))
		out.Errors = append(out.Errors, err.Error())
		return out
	}
	log.Info("batch document written", zap.String("name", name), zap.Int("entries", doc.Len()), zap.Stringer("total", doc.Total()))
	out.BatchFile = name
	return out
}

// maxBatchNameProbes bounds how many later seconds are tried when the batch
// name for the current second is taken.
const maxBatchNameProbes = 60

// writeBatch writes doc under the first free batch file name, starting at the
// current second. Earlier documents are never overwritten.
func (im *Importer) writeBatch(doc *batch.Document) (string, error) {
	ts := im.now()
	for i := 0; i < maxBatchNameProbes; i++ {
		name := id.BatchFileName(ts.Add(time.Duration(i)*time.Second), im.cfg.Discriminator)
		err := doc.WriteFile(filepath.Join(im.cfg.BatchDir, name))
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no free batch file name after %s", id.BatchFileName(ts, im.cfg.Discriminator))
}

func (im *Importer) importRow(ctx context.Context, log *zap.Logger, doc *batch.Document, row model.Row, validateOnly bool) error {
	kind := ClassifyRow(row)
	attempts, err := retry(ctx, im.cfg.MaxAttempts, func() error {
		return im.handle(ctx, doc, kind, row, validateOnly)
	})

	fields := []zap.Field{
		zap.String("activity_id", row.ActivityID()),
		zap.Stringer("kind", kind),
		zap.Int("attempts", attempts),
	}
	if err != nil {
		log.Warn("row failed", append(fields, zap.Stringer("failure", KindOf(err)), zap.Error(err))...)
		return err
	}
	log.Debug("row imported", fields...)
	return nil
}
