package download

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/quasarmc/launchercore/errs"
	"github.com/quasarmc/launchercore/hash"
	"github.com/quasarmc/launchercore/progress"
)

const (
	// DefaultMaxConcurrentDownloads is the default worker pool size per job.
	DefaultMaxConcurrentDownloads = 16
	// DefaultMaxDownloadAttempts is the default per-item retry budget.
	DefaultMaxDownloadAttempts = 5

	backoffBase = 250 * time.Millisecond
	backoffCap  = 4 * time.Second
)

// Job is a named collection of downloadables run against a bounded worker
// pool with per-item retry and progress reporting.
type Job struct {
	Name          string
	Client        HTTPDoer
	MaxConcurrent int
	MaxAttempts   int
	Reporter      progress.Reporter
	items         []Downloadable
}

// NewJob constructs a Job with spec defaults applied for zero-value options.
func NewJob(name string, client HTTPDoer, reporter progress.Reporter) *Job {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	return &Job{
		Name:          name,
		Client:        client,
		MaxConcurrent: DefaultMaxConcurrentDownloads,
		MaxAttempts:   DefaultMaxDownloadAttempts,
		Reporter:      progress.NewDebouncer(reporter, 100*time.Millisecond),
	}
}

// Add queues one or more downloadables onto the job.
func (j *Job) Add(items ...Downloadable) {
	j.items = append(j.items, items...)
}

// Result is the outcome of running a job to completion.
type Result struct {
	Completed int
	Failed    int
	Errors    error // *multierror.Error, nil if every item succeeded
}

// Run executes every queued item against the worker pool. It completes
// when every item has either succeeded or exhausted its retries, and it
// fails (via a non-nil Result.Errors) iff any item failed.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	total := len(j.items)
	if total == 0 {
		return &Result{}, nil
	}

	maxConcurrent := j.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentDownloads
	}
	maxAttempts := j.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxDownloadAttempts
	}

	work := make(chan Downloadable, total)
	for _, it := range j.items {
		work <- it
	}
	close(work)

	var (
		completed int64
		failed    int64
		errMu     sync.Mutex
		errAgg    *multierror.Error
	)

	// progressMu keeps each Completed count and its Report call together
	// so events reach the reporter in increasing order.
	var progressMu sync.Mutex

	j.Reporter.Report(progress.Event{Job: j.Name, Status: "starting", Completed: 0, Total: total})

	var wg sync.WaitGroup
	for i := 0; i < maxConcurrent; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				select {
				case <-ctx.Done():
					errMu.Lock()
					errAgg = multierror.Append(errAgg, ctx.Err())
					errMu.Unlock()
					atomic.AddInt64(&failed, 1)
					continue
				default:
				}

				err := j.attempt(ctx, item, maxAttempts)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					errMu.Lock()
					errAgg = multierror.Append(errAgg, fmt.Errorf("%s: %w", item.SourceURL(), err))
					errMu.Unlock()
				}

				progressMu.Lock()
				done := int(atomic.AddInt64(&completed, 1))
				j.Reporter.Report(progress.Event{
					Job:       j.Name,
					Status:    fmt.Sprintf("downloaded %s", filepath.Base(item.TargetPath())),
					Completed: done,
					Total:     total,
				})
				progressMu.Unlock()
			}
		}()
	}

	wg.Wait()

	j.Reporter.Report(progress.Event{Job: j.Name, Status: "done", Completed: total, Total: total, Done: true})

	result := &Result{Completed: int(completed) - int(failed), Failed: int(failed)}
	if errAgg != nil {
		result.Errors = errAgg.ErrorOrNil()
		return result, result.Errors
	}
	return result, nil
}

// attempt runs the item's full retry loop: existence/hash check, then up
// to maxAttempts network fetches with exponential backoff and jitter.
func (j *Job) attempt(ctx context.Context, item Downloadable, maxAttempts int) error {
	if !item.ForceDownload() {
		if ok, err := isPresent(item, j.Client, ctx); err == nil && ok {
			return nil
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return err
			}
		}

		err := fetchAndStore(ctx, item, j.Client)
		if err == nil {
			return nil
		}
		lastErr = err
		if !errs.IsRetryable(err) {
			return err
		}
	}
	return lastErr
}

func isPresent(item Downloadable, client HTTPDoer, ctx context.Context) (bool, error) {
	info, err := os.Stat(item.TargetPath())
	if err != nil || info.IsDir() {
		return false, nil
	}

	expected, known, err := item.resolveExpectedHash(ctx, client)
	if err != nil {
		// Can't determine the expected hash (e.g. remote .sha1 unreachable);
		// conservatively treat as absent so the main fetch is attempted.
		return false, nil
	}
	if !known {
		return true, nil // invariant 2: no SHA-1 known ⇒ existence alone is sufficient
	}

	f, err := os.Open(item.TargetPath())
	if err != nil {
		return false, nil
	}
	defer f.Close()

	actual, err := hash.FromReader(f)
	if err != nil {
		return false, nil
	}
	return actual.Equal(expected), nil
}

func fetchAndStore(ctx context.Context, item Downloadable, client HTTPDoer) error {
	expected, known, err := item.resolveExpectedHash(ctx, client)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.SourceURL(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(item.SourceURL(), resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(item.TargetPath()), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmpPath := item.TargetPath() + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	hasher := sha1.New()
	writer := io.MultiWriter(f, hasher)
	if _, err := io.Copy(writer, resp.Body); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", errs.ErrNetwork, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if known {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if actual != expected.String() {
			os.Remove(tmpPath)
			return fmt.Errorf("%w: expected %s, got %s", errs.ErrChecksumMismatch, expected, actual)
		}
	}

	if err := os.Rename(tmpPath, item.TargetPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// sleepBackoff sleeps for attempt's exponential backoff-with-jitter delay
// (base 250ms, cap 4s), returning ctx.Err() if the context is cancelled
// first.
func sleepBackoff(ctx context.Context, attempt int) error {
	delay := backoffBase << uint(attempt-1)
	if delay > backoffCap || delay <= 0 {
		delay = backoffCap
	}
	jitter := time.Duration(rand.Int63n(int64(delay) + 1))
	wait := delay/2 + jitter/2

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
