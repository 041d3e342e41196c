package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/seltzinger/airsync/internal/device"
	"github.com/seltzinger/airsync/internal/journal"
	"github.com/seltzinger/airsync/internal/types"
	"github.com/seltzinger/airsync/internal/utils"
)

// Outcome classifies what a transfer did with one file.
type Outcome int

const (
	OutcomeTransferred Outcome = iota
	OutcomeReplaced
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTransferred:
		return "transferred"
	case OutcomeReplaced:
		return "replaced"
	case OutcomeSkipped:
		return "skipped"
	}
	return "unknown"
}

// Result is the outcome of one file.
type Result struct {
	File    types.FileInfo
	Outcome Outcome
	Bytes   int64
	Elapsed time.Duration
}

// Report sums the results of one batch.
type Report struct {
	Results []Result
	Bytes   int64
	Elapsed time.Duration
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	r.Bytes += res.Bytes
}

// Transferred counts the files actually written, replacements included.
func (r *Report) Transferred() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome != OutcomeSkipped {
			n++
		}
	}
	return n
}

// Skipped counts the files left alone because both sides already match.
func (r *Report) Skipped() int {
	return len(r.Results) - r.Transferred()
}

// InterruptedError reports a stream dying partway through a transfer.
// The partial destination artifact has been removed by the time the
// caller sees this.
type InterruptedError struct {
	Path string
	Err  error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("transfer of %s interrupted: %v", e.Path, e.Err)
}

func (e *InterruptedError) Unwrap() error { return e.Err }

// Recorder persists finished transfer attempts. Recording failures are
// logged and never interrupt a sync.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// ProgressFunc observes streaming progress, called after each chunk
// with the total bytes moved so far. Errors it returns are logged and
// never interrupt a transfer.
type ProgressFunc func(f types.FileInfo, written int64) error

// Engine moves files between the session's two sides. Per file it
// decides transfer, replace or skip by comparing sizes against the
// destination, and it cleans up the destination artifact when a stream
// dies partway. Writes go straight to the final name, no temp file and
// rename, so a concurrent reader can catch a file mid-write.
type Engine struct {
	session  *Session
	recorder Recorder
	progress ProgressFunc
}

type EngineOption func(*Engine)

func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

func WithProgress(fn ProgressFunc) EngineOption {
	return func(e *Engine) { e.progress = fn }
}

func NewEngine(session *Session, opts ...EngineOption) *Engine {
	e := &Engine{session: session}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Session() *Session { return e.session }

// DownloadAll copies files from the card into the local directory,
// stopping at the first failure. The partial report covers the files
// handled before the error.
func (e *Engine) DownloadAll(ctx context.Context, files []types.FileInfo) (*Report, error) {
	report := &Report{}
	start := time.Now()
	defer func() { report.Elapsed = time.Since(start) }()
	for _, f := range files {
		res, err := e.downloadOne(ctx, f)
		if err != nil {
			return report, err
		}
		report.add(res)
	}
	return report, nil
}

// UploadAll copies files from the local directory onto the card,
// stopping at the first failure. The remote directory is listed once up
// front to decide skips and replacements.
func (e *Engine) UploadAll(ctx context.Context, files []types.FileInfo) (*Report, error) {
	entries, err := e.session.Device.ListEntries(ctx, e.session.RemoteDir)
	if err != nil {
		return nil, err
	}
	remote := make(map[string]device.RawEntry, len(entries))
	for _, entry := range entries {
		if entry.Attr.Directory() || entry.Attr.Volume() {
			continue
		}
		remote[entry.Filename] = entry
	}

	report := &Report{}
	start := time.Now()
	defer func() { report.Elapsed = time.Since(start) }()
	for _, f := range files {
		res, err := e.uploadOne(ctx, f, remote)
		if err != nil {
			return report, err
		}
		report.add(res)
	}
	return report, nil
}

func (e *Engine) downloadOne(ctx context.Context, f types.FileInfo) (Result, error) {
	dest := filepath.Join(e.session.LocalDir, f.Filename)
	outcome := OutcomeTransferred
	if fi, err := fs.Stat(dest); err == nil {
		if fi.Size() == f.Size {
			log.WithField("file", dest).Info("skipping, already exists locally")
			return e.finish(ctx, DirectionDown, f, dest, Result{File: f, Outcome: OutcomeSkipped}), nil
		}
		log.WithFields(log.Fields{
			"file": dest, "local_size": fi.Size(), "remote_size": f.Size,
		}).Warn("removing local copy, size differs")
		if err := fs.Remove(dest); err != nil {
			return Result{}, e.fail(ctx, DirectionDown, f, dest, err)
		}
		outcome = OutcomeReplaced
	}

	log.WithFields(log.Fields{"from": f.Path, "to": dest}).Info("copying remote file")
	start := time.Now()
	body, _, err := e.session.Device.Fetch(ctx, f.Path)
	if err != nil {
		return Result{}, e.fail(ctx, DirectionDown, f, dest, err)
	}
	defer body.Close()

	out, err := fs.Create(dest)
	if err != nil {
		return Result{}, e.fail(ctx, DirectionDown, f, dest, err)
	}
	written, err := e.copyChunks(ctx, out, body, f)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		e.removeLocal(dest, err)
		return Result{}, e.fail(ctx, DirectionDown, f, dest, &InterruptedError{Path: dest, Err: err})
	}

	res := Result{File: f, Outcome: outcome, Bytes: written, Elapsed: time.Since(start)}
	logThroughput(f.Filename, written, res.Elapsed)
	return e.finish(ctx, DirectionDown, f, dest, res), nil
}

func (e *Engine) uploadOne(ctx context.Context, f types.FileInfo, remote map[string]device.RawEntry) (Result, error) {
	dest := path.Join(e.session.RemoteDir, f.Filename)
	outcome := OutcomeTransferred
	if existing, ok := remote[f.Filename]; ok {
		if existing.Size == f.Size {
			log.WithField("file", f.Filename).Info("skipping, already exists on card")
			return e.finish(ctx, DirectionUp, f, dest, Result{File: f, Outcome: OutcomeSkipped}), nil
		}
		log.WithFields(log.Fields{
			"file": f.Filename, "local_size": f.Size, "remote_size": existing.Size,
		}).Warn("removing remote copy, size differs")
		if err := e.session.Device.Delete(ctx, existing.Path); err != nil {
			return Result{}, e.fail(ctx, DirectionUp, f, dest, err)
		}
		outcome = OutcomeReplaced
	}

	log.WithFields(log.Fields{"from": f.Path, "to": e.session.RemoteDir}).Info("uploading local file")
	in, err := fs.Open(f.Path)
	if err != nil {
		return Result{}, e.fail(ctx, DirectionUp, f, dest, err)
	}
	defer in.Close()

	start := time.Now()
	counter := &countingReader{r: in, f: f, report: e.reportProgress}
	err = e.session.Device.Upload(ctx, e.session.RemoteDir, f.Filename, counter, f.Modified)
	if err != nil {
		var unsupported *device.UnsupportedError
		if errors.As(err, &unsupported) {
			// Nothing reached the card, so there is no partial to clean.
			return Result{}, e.fail(ctx, DirectionUp, f, dest, err)
		}
		e.removeRemote(ctx, dest, err)
		return Result{}, e.fail(ctx, DirectionUp, f, dest, &InterruptedError{Path: dest, Err: err})
	}

	res := Result{File: f, Outcome: outcome, Bytes: counter.written, Elapsed: time.Since(start)}
	logThroughput(f.Filename, counter.written, res.Elapsed)
	return e.finish(ctx, DirectionUp, f, dest, res), nil
}

// copyChunks streams src to dst in fixed-size chunks, reporting
// progress after each one.
func (e *Engine) copyChunks(ctx context.Context, dst io.Writer, src io.Reader, f types.FileInfo) (int64, error) {
	buf := make([]byte, utils.TransferChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			n2, werr := dst.Write(buf[:n])
			if werr == nil && n2 != n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return written, werr
			}
			written += int64(n)
			e.reportProgress(f, written)
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

func (e *Engine) reportProgress(f types.FileInfo, written int64) {
	if e.progress == nil {
		return
	}
	if err := e.progress(f, written); err != nil {
		log.WithError(err).Warn("progress reporting failed")
	}
}

// removeLocal drops a partial local artifact, tolerating its absence.
func (e *Engine) removeLocal(dest string, cause error) {
	log.WithError(cause).WithField("file", dest).Warn("cleaning up partial file")
	if err := fs.Remove(dest); err != nil && !os.IsNotExist(err) {
		log.WithError(err).WithField("file", dest).Warn("partial file cleanup failed")
	}
}

// removeRemote asks the card to drop a partial upload. The cleanup must
// run even when the transfer died of cancellation.
func (e *Engine) removeRemote(ctx context.Context, dest string, cause error) {
	log.WithError(cause).WithField("file", dest).Warn("cleaning up partial remote file")
	if err := e.session.Device.Delete(context.WithoutCancel(ctx), dest); err != nil {
		log.WithError(err).WithField("file", dest).Warn("partial remote cleanup failed")
	}
}

func (e *Engine) finish(ctx context.Context, direction Direction, f types.FileInfo, dest string, res Result) Result {
	e.record(ctx, direction, f, dest, res.Outcome.String(), res, nil)
	return res
}

func (e *Engine) fail(ctx context.Context, direction Direction, f types.FileInfo, dest string, cause error) error {
	e.record(ctx, direction, f, dest, "failed", Result{}, cause)
	return cause
}

func (e *Engine) record(ctx context.Context, direction Direction, f types.FileInfo, dest, outcome string, res Result, cause error) {
	if e.recorder == nil {
		return
	}
	entry := journal.Entry{
		Direction: direction.String(),
		Filename:  f.Filename,
		Source:    f.Path,
		Dest:      dest,
		Size:      f.Size,
		Duration:  res.Elapsed,
		Outcome:   outcome,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := e.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		log.WithError(err).Warn("journal write failed")
	}
}

// countingReader tracks upload progress, reporting at chunk-sized
// intervals so callbacks fire at the same cadence as downloads.
type countingReader struct {
	r          io.Reader
	f          types.FileInfo
	report     func(types.FileInfo, int64)
	written    int64
	lastReport int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.written += int64(n)
	}
	if c.written-c.lastReport >= utils.TransferChunkSize || (err == io.EOF && c.written > c.lastReport) {
		c.lastReport = c.written
		c.report(c.f, c.written)
	}
	return n, err
}

func logThroughput(filename string, written int64, elapsed time.Duration) {
	var rate float64
	if elapsed > 0 {
		rate = float64(written) / elapsed.Seconds()
	}
	log.WithFields(log.Fields{
		"file":     filename,
		"size":     humanize.Bytes(uint64(written)),
		"duration": elapsed.Round(10 * time.Millisecond).String(),
		"rate":     humanize.Bytes(uint64(rate)) + "/s",
	}).Info("transfer complete")
}
