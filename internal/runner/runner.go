// Package runner drives one import run: it fetches ready files from the
// remote drop area, imports them in name order and reports the results.
// The run stops at the first file that does not import cleanly.
package runner

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cleared-dev/recon/internal/id"
	"github.com/cleared-dev/recon/internal/importer"
	"github.com/cleared-dev/recon/internal/importlog"
	"github.com/cleared-dev/recon/internal/notify"
	"github.com/cleared-dev/recon/internal/transport"
)

// Defaults for Options.
const (
	DefaultRemoteDir     = "/data/files/csv"
	DefaultQuarantineDir = "/data/files/batch_processed"
	DefaultExtension     = ".csv"
	DefaultMarkerSuffix  = ".start"
)

// FileImporter imports one staged file.
type FileImporter interface {
	ImportFile(ctx context.Context, path string, validateOnly bool) importer.Outcome
}

// Options configures a Runner.
type Options struct {
	RemoteDir     string // remote directory polled for import files
	QuarantineDir string // remote directory receiving error reports
	StagingDir    string // local directory files are downloaded to
	UploadDir     string // local directory error reports are written to
	Extension     string // data file extension
	MarkerSuffix  string // suffix of the "ready" marker next to a file
	RemoveRemote  bool   // delete the remote data file after a successful import
	ImportLog     string // import log path, empty to disable
}

func (o *Options) setDefaults() {
	if o.RemoteDir == "" {
		o.RemoteDir = DefaultRemoteDir
	}
	if o.QuarantineDir == "" {
		o.QuarantineDir = DefaultQuarantineDir
	}
	if o.Extension == "" {
		o.Extension = DefaultExtension
	}
	if o.MarkerSuffix == "" {
		o.MarkerSuffix = DefaultMarkerSuffix
	}
}

// Runner imports remote files.
type Runner struct {
	tr     transport.Transport
	imp    FileImporter
	notify notify.Notifier
	opts   Options
	log    *zap.Logger
	now    func() time.Time
}

// New creates a Runner. A nil notifier disables notifications.
func New(tr transport.Transport, imp FileImporter, n notify.Notifier, opts Options, log *zap.Logger) *Runner {
	opts.setDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{tr: tr, imp: imp, notify: n, opts: opts, log: log, now: time.Now}
}

// FileResult is the result of one processed file.
type FileResult struct {
	Name    string
	Status  string
	Outcome importer.Outcome
}

// OK reports whether the file imported cleanly.
func (f FileResult) OK() bool {
	return f.Status == importer.StatusSuccess
}

// Summary describes a run.
type Summary struct {
	RunID  string
	Files  []FileResult
	Halted bool // a file failed and later files were not processed
}

// OK reports whether every processed file imported cleanly.
func (s Summary) OK() bool {
	return !s.Halted
}

// Candidate is a remote file selected for import.
type Candidate struct {
	Name   string
	Marker string // name of the listed ready marker, if any
}

// Eligible selects the files to import from a directory listing, in name
// order. A file qualifies if it has the data extension or a ready marker is
// listed next to it. Markers themselves never qualify.
func Eligible(names []string, extension, markerSuffix string) []Candidate {
	listed := make(map[string]bool, len(names))
	for _, n := range names {
		listed[n] = true
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var out []Candidate
	for _, n := range sorted {
		if strings.HasSuffix(n, markerSuffix) {
			continue
		}
		marker := n + markerSuffix
		hasMarker := listed[marker]
		if !strings.HasSuffix(n, extension) && !hasMarker {
			continue
		}
		c := Candidate{Name: n}
		if hasMarker {
			c.Marker = marker
		}
		out = append(out, c)
	}
	return out
}

// Run processes all eligible files. Transport and local I/O failures end
// the run with an error; import failures end it with Summary.Halted set.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: id.NewRunID()}
	log := r.log.With(zap.String("run_id", sum.RunID))

	for _, dir := range []string{r.opts.StagingDir, r.opts.UploadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return sum, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	names, err := r.tr.List(ctx, r.opts.RemoteDir)
	if err != nil {
		return sum, fmt.Errorf("listing %s: %w", r.opts.RemoteDir, err)
	}
	candidates := Eligible(names, r.opts.Extension, r.opts.MarkerSuffix)
	log.Info("import run started", zap.Int("listed", len(names)), zap.Int("eligible", len(candidates)))

	for _, c := range candidates {
		res, err := r.processFile(ctx, log, sum.RunID, c)
		if res.Name != "" {
			sum.Files = append(sum.Files, res)
		}
		if err != nil {
			return sum, fmt.Errorf("processing %s: %w", c.Name, err)
		}
		if !res.OK() {
			sum.Halted = true
			log.Warn("import run halted", zap.String("file", c.Name))
			break
		}
	}

	log.Info("import run finished", zap.Int("files", len(sum.Files)), zap.Bool("halted", sum.Halted))
	return sum, nil
}

func (r *Runner) processFile(ctx context.Context, log *zap.Logger, runID string, c Candidate) (FileResult, error) {
	remote := path.Join(r.opts.RemoteDir, c.Name)
	local := filepath.Join(r.opts.StagingDir, c.Name)

	if err := r.tr.Download(ctx, remote, local); err != nil {
		return FileResult{}, err
	}
	if c.Marker != "" {
		if err := r.tr.Remove(ctx, path.Join(r.opts.RemoteDir, c.Marker)); err != nil {
			return FileResult{}, err
		}
	}

	out := r.imp.ImportFile(ctx, local, false)
	out.File = c.Name
	now := r.now()
	status := importer.Report(log, out, now)
	res := FileResult{Name: c.Name, Status: status, Outcome: out}

	var err error
	if res.OK() {
		err = r.cleanup(ctx, local, remote)
	} else {
		err = r.quarantine(ctx, c.Name, status)
	}

	if r.opts.ImportLog != "" {
		entry := importlog.Entry{
			Timestamp: now,
			RunID:     runID,
			File:      c.Name,
			Imported:  len(out.Imported),
			Errors:    len(out.Errors),
			BatchFile: out.BatchFile,
			Status:    status,
		}
		if lerr := importlog.Append(r.opts.ImportLog, entry); lerr != nil {
			log.Error("appending import log", zap.String("path", r.opts.ImportLog), zap.Error(lerr))
		}
	}

	r.sendNotification(ctx, log, c.Name, status)
	return res, err
}

// cleanup removes the staged copy of a successfully imported file and, when
// configured, the remote original.
func (r *Runner) cleanup(ctx context.Context, local, remote string) error {
	if err := os.Remove(local); err != nil {
		return fmt.Errorf("removing staged file: %w", err)
	}
	if r.opts.RemoveRemote {
		return r.tr.Remove(ctx, remote)
	}
	return nil
}

// quarantine writes the status to an error report and uploads it under the
// file's name.
func (r *Runner) quarantine(ctx context.Context, name, status string) error {
	report := filepath.Join(r.opts.UploadDir, name)
	if err := os.WriteFile(report, []byte(status), 0o644); err != nil {
		return fmt.Errorf("writing error report: %w", err)
	}
	return r.tr.Upload(ctx, report, path.Join(r.opts.QuarantineDir, name))
}

// sendNotification reports the file's result. Delivery failures are logged
// and do not affect the run.
func (r *Runner) sendNotification(ctx context.Context, log *zap.Logger, name, status string) {
	if r.notify == nil {
		return
	}
	msg := notify.SuccessMessage(name)
	if status != importer.StatusSuccess {
		msg = notify.FailureMessage(name, status)
	}
	if err := r.notify.Notify(ctx, msg); err != nil {
		log.Warn("sending notification", zap.String("file", name), zap.Error(err))
	}
}
