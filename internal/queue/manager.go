// Package queue orchestrates download jobs: a bounded worker pool pulls
// from a shared priority/FIFO ready set, per-domain permits gate dispatch,
// retries wait in a timer-driven delay queue, and every state transition is
// persisted and published to subscribers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
	"github.com/primoscope/CoomerDL-sub000/internal/ratelimit"
	"github.com/primoscope/CoomerDL-sub000/internal/retry"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// ErrStopped rejects submissions after shutdown has begun.
var ErrStopped = errors.New("job queue is stopped")

// Options configures a Manager. Zero fields fall back to the package
// defaults in consts.
type Options struct {
	MaxConcurrent     int
	DomainConcurrency int
	DomainInterval    time.Duration
	GracePeriod       time.Duration
	Retry             retry.Policy
	DownloadDir       string
}

// SubmitOptions carries per-job overrides accepted at submission.
type SubmitOptions struct {
	Priority    int
	MaxAttempts int // 0 = retry policy default
}

// activeJob tracks one job from dequeue until its worker finishes with it.
type activeJob struct {
	job        *models.Job
	cancel     context.CancelFunc
	dl         contracts.Downloader
	userCancel bool
}

// Manager owns the job lifecycle end to end: intake, scheduling, dispatch,
// retry, cancellation, persistence, and event fan-out.
type Manager struct {
	store   contracts.Store
	factory contracts.DownloaderFactory
	limiter *ratelimit.Limiter
	policy  retry.Policy
	opts    Options

	events *eventBus
	delay  *delayQueue

	mu         sync.Mutex
	ready      *readySet
	active     map[string]*activeJob
	activeURLs map[string]string
	faultErr   error
	started    bool
	closed     bool

	wake      chan struct{}
	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup
}

// NewManager builds a stopped manager around the given store and downloader
// factory. Call Start to reclaim interrupted jobs and begin dispatching.
func NewManager(store contracts.Store, factory contracts.DownloaderFactory, opts Options) *Manager {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = consts.DefaultMaxConcurrent
	}
	if opts.DomainConcurrency < 1 {
		opts.DomainConcurrency = consts.DefaultDomainConcurrency
	}
	if opts.DomainInterval < 0 {
		opts.DomainInterval = 0
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = consts.ShutdownGracePeriod
	}
	if opts.Retry == (retry.Policy{}) {
		opts.Retry = retry.DefaultPolicy()
	}

	runCtx, cancelRun := context.WithCancel(context.Background())

	m := &Manager{
		store:      store,
		factory:    factory,
		limiter:    ratelimit.New(opts.DomainConcurrency, opts.DomainInterval),
		policy:     opts.Retry,
		opts:       opts,
		events:     newEventBus(),
		ready:      newReadySet(),
		active:     make(map[string]*activeJob),
		activeURLs: make(map[string]string),
		wake:       make(chan struct{}, 1),
		runCtx:     runCtx,
		cancelRun:  cancelRun,
	}
	m.delay = newDelayQueue(m.enqueueReady)
	return m
}

// Start requeues jobs interrupted by the previous run, loads the pending
// backlog, and spins up the worker pool.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("job queue already started")
	}
	if m.closed {
		m.mu.Unlock()
		return ErrStopped
	}
	m.started = true
	m.mu.Unlock()

	js := m.store.JobStore()

	reclaimed, err := js.ReclaimInterruptedJobs()
	if err != nil {
		return fmt.Errorf("failed to requeue interrupted jobs: %w", err)
	}
	if reclaimed > 0 {
		logging.I("Requeued %d job(s) left running by the previous run", reclaimed)
	}

	pending, err := js.LoadPendingJobs()
	if err != nil {
		return fmt.Errorf("failed to load pending jobs: %w", err)
	}

	now := time.Now()
	var delayed []*models.Job

	m.mu.Lock()
	for _, j := range pending {
		m.activeURLs[j.URL] = j.ID
		if j.NextRetryAt != nil && j.NextRetryAt.After(now) {
			delayed = append(delayed, j)
			continue
		}
		m.ready.add(j)
	}
	m.mu.Unlock()

	for _, j := range delayed {
		m.delay.add(j, *j.NextRetryAt)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.delay.run(m.runCtx)
	}()

	for w := 1; w <= m.opts.MaxConcurrent; w++ {
		m.wg.Add(1)
		go m.worker(w)
	}

	logging.I("Job queue started: %d worker(s), backlog of %d job(s)", m.opts.MaxConcurrent, len(pending))
	m.signal()
	return nil
}

// Stop cancels in-flight downloads, waits up to the grace period for
// workers to finish their bookkeeping, and returns any job still recorded
// as running to the pending backlog.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	started := m.started
	m.mu.Unlock()

	m.cancelRun()

	var timedOut bool
	if started {
		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(m.opts.GracePeriod):
			timedOut = true
			logging.E("Shutdown grace period %s elapsed with workers still active", m.opts.GracePeriod)
		}
	}

	// Safety net for the timeout path; a no-op after a clean unwind.
	if _, err := m.store.JobStore().ReclaimInterruptedJobs(); err != nil {
		logging.E("Failed to requeue running jobs at shutdown: %v", err)
	}

	m.events.close()

	if timedOut {
		return fmt.Errorf("shutdown exceeded the %s grace period", m.opts.GracePeriod)
	}
	logging.I("Job queue stopped")
	return nil
}

// Submit queues a download for the URL and returns its job ID. Submitting a
// URL that already has an active job returns the existing ID instead of
// queuing a duplicate.
func (m *Manager) Submit(rawURL, dir string, opts SubmitOptions) (string, error) {
	domain, err := net.CanonicalDomain(rawURL)
	if err != nil {
		return "", fmt.Errorf("cannot queue %q: %w", rawURL, err)
	}

	if dir == "" {
		dir = m.opts.DownloadDir
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = m.policy.MaxAttempts
	}

	j := &models.Job{
		ID:          uuid.NewString(),
		URL:         rawURL,
		Domain:      domain,
		Status:      consts.JobStatusPending,
		Priority:    opts.Priority,
		MaxAttempts: maxAttempts,
		DownloadDir: dir,
		CreatedAt:   time.Now(),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrStopped
	}
	if m.faultErr != nil {
		fault := m.faultErr
		m.mu.Unlock()
		return "", fmt.Errorf("job intake halted by an earlier persistence failure: %w", fault)
	}
	if existing, ok := m.activeURLs[rawURL]; ok {
		m.mu.Unlock()
		logging.D("URL %q already queued as job %q", rawURL, existing)
		return existing, nil
	}
	m.activeURLs[rawURL] = j.ID
	m.mu.Unlock()

	if err := m.store.JobStore().AddJob(j); err != nil {
		m.forgetURL(rawURL)
		m.persistFault(err)
		return "", fmt.Errorf("failed to queue %q: %w", rawURL, err)
	}

	m.recordEvent(j.ID, consts.EventAdded, fmt.Sprintf("queued %s for %s", rawURL, domain))

	m.mu.Lock()
	m.ready.add(j)
	m.mu.Unlock()
	m.signal()

	logging.I("Queued job %q for %q", j.ID, rawURL)
	return j.ID, nil
}

// Cancel stops the job wherever it currently is: waiting jobs are marked
// cancelled immediately, a running job is signalled and marked once its
// worker unwinds. Cancelling an already finished job is a no-op.
func (m *Manager) Cancel(jobID string) error {
	m.mu.Lock()
	if aj, ok := m.active[jobID]; ok {
		aj.userCancel = true
		dl := aj.dl
		cancel := aj.cancel
		m.mu.Unlock()

		if dl != nil {
			dl.RequestCancel()
		}
		cancel()
		logging.I("Cancellation requested for running job %q", jobID)
		return nil
	}
	j := m.ready.remove(jobID)
	m.mu.Unlock()

	if j == nil {
		j = m.delay.remove(jobID)
	}
	if j != nil {
		return m.cancelIdle(j)
	}

	stored, hasRow, err := m.store.JobStore().GetJob(jobID)
	if err != nil {
		return fmt.Errorf("failed to look up job %q: %w", jobID, err)
	}
	if !hasRow {
		return fmt.Errorf("no job with ID %q", jobID)
	}
	if stored.Status.Terminal() {
		return nil
	}
	return m.cancelIdle(stored)
}

// cancelIdle finalizes a job that was cancelled before any worker took it.
func (m *Manager) cancelIdle(j *models.Job) error {
	if err := j.MarkCancelled(); err != nil {
		return err
	}
	if err := m.persistJob(j); err != nil {
		return err
	}
	m.forgetURL(j.URL)
	m.recordEvent(j.ID, consts.EventCancelled, "cancelled before start")
	logging.I("Cancelled queued job %q", j.ID)
	return nil
}

// Status returns the job's current persisted state.
func (m *Manager) Status(jobID string) (*models.Job, error) {
	j, hasRow, err := m.store.JobStore().GetJob(jobID)
	if err != nil {
		return nil, err
	}
	if !hasRow {
		return nil, fmt.Errorf("no job with ID %q", jobID)
	}
	return j, nil
}

// List returns jobs filtered to the given statuses, or all jobs when no
// filter is given.
func (m *Manager) List(statuses ...consts.JobStatus) ([]*models.Job, error) {
	return m.store.JobStore().GetJobs(statuses...)
}

// Subscribe registers an event consumer with the given channel buffer. The
// returned func unsubscribes. Lifecycle events are always delivered while
// subscribed; progress events may be dropped when the buffer is full.
func (m *Manager) Subscribe(buffer int) (<-chan models.DownloadEvent, func()) {
	return m.events.subscribe(buffer)
}

// PublishProgress forwards a downloader progress callback to subscribers.
// Progress never reaches the persisted event log, only the live stream.
func (m *Manager) PublishProgress(p models.Progress) {
	detail, err := json.Marshal(p)
	if err != nil {
		logging.E("Failed to encode progress for job %q: %v", p.JobID, err)
		return
	}
	m.events.publishProgress(models.DownloadEvent{
		JobID:     p.JobID,
		Type:      consts.EventProgress,
		Detail:    string(detail),
		CreatedAt: time.Now(),
	})
}

// recordEvent appends one event to the job's persisted stream and publishes
// it to subscribers.
func (m *Manager) recordEvent(jobID string, typ consts.EventType, detail string) {
	e := models.DownloadEvent{
		JobID:     jobID,
		Type:      typ,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := m.store.EventStore().AddEvent(&e); err != nil {
		m.persistFault(err)
	}
	m.events.publish(e)
}

// persistJob writes the job's current state, reporting store failures to
// the fault latch.
func (m *Manager) persistJob(j *models.Job) error {
	if err := m.store.JobStore().UpdateJob(j); err != nil {
		m.persistFault(err)
		return err
	}
	return nil
}

// persistFault latches the first persistence failure and halts new intake.
// Durability is part of the contract, so a broken store must be surfaced
// rather than quietly accumulating unrecorded state.
func (m *Manager) persistFault(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.faultErr == nil {
		m.faultErr = err
		logging.E("Halting job intake after persistence failure: %v", err)
	}
}

// forgetURL releases the URL's dedup reservation.
func (m *Manager) forgetURL(u string) {
	m.mu.Lock()
	delete(m.activeURLs, u)
	m.mu.Unlock()
}

// enqueueReady moves a job whose backoff elapsed into the ready set.
func (m *Manager) enqueueReady(j *models.Job) {
	m.mu.Lock()
	m.ready.add(j)
	m.mu.Unlock()
	m.signal()
	logging.D("Job %q eligible for retry", j.ID)
}

// signal nudges the worker pool to rescan the ready set. The buffered
// channel coalesces bursts; workers re-signal while work remains.
func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}
