package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/contracts"
	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
	"github.com/primoscope/CoomerDL-sub000/internal/models"
	"github.com/primoscope/CoomerDL-sub000/internal/net"
	"github.com/primoscope/CoomerDL-sub000/internal/utils/logging"
)

// worker pulls eligible jobs from the ready set until shutdown.
func (m *Manager) worker(id int) {
	defer m.wg.Done()

	for {
		select {
		case <-m.runCtx.Done():
			return
		case <-m.wake:
		}

		for {
			if m.runCtx.Err() != nil {
				return
			}
			j := m.dequeue()
			if j == nil {
				break
			}
			// Leftover ready jobs belong to the idle workers.
			m.signal()
			logging.D("Worker %d picked up job %q (%s)", id, j.ID, j.URL)
			m.runJob(j)
		}
	}
}

// dequeue scans the ready set in dispatch order and takes the first job
// whose domain grants a permit. Jobs on jammed domains keep their place so
// a congested domain never blocks the rest of the queue.
func (m *Manager) dequeue() *models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		skipped []*readyItem
		picked  *models.Job
	)
	for {
		it := m.ready.popItem()
		if it == nil {
			break
		}
		if m.limiter.TryAcquire(it.job.Domain) {
			picked = it.job
			break
		}
		skipped = append(skipped, it)
	}
	for _, it := range skipped {
		m.ready.push(it)
	}
	return picked
}

// runJob drives one download attempt. The caller holds the job's domain
// permit; it is released here once the attempt settles.
func (m *Manager) runJob(j *models.Job) {
	defer func() {
		m.limiter.Release(j.Domain)
		m.signal()
	}()

	jobCtx, cancelJob := context.WithCancel(m.runCtx)
	defer cancelJob()

	aj := &activeJob{job: j, cancel: cancelJob}
	m.mu.Lock()
	m.active[j.ID] = aj
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.active, j.ID)
		m.mu.Unlock()
	}()

	// Sit out the domain's spacing window before counting the attempt.
	if err := m.limiter.WaitTurn(jobCtx, j.Domain); err != nil {
		m.abortBeforeStart(aj)
		return
	}

	if err := j.MarkRunning(); err != nil {
		logging.E("Job %q could not start: %v", j.ID, err)
		return
	}
	if err := m.persistJob(j); err != nil {
		// Without a durable RUNNING record the attempt must not
		// proceed; the row stays pending for a healthier run.
		return
	}
	m.recordEvent(j.ID, consts.EventStarted, fmt.Sprintf("attempt %d of %d", j.AttemptCount, j.MaxAttempts))

	dl, ok := m.factory.GetDownloader(j.URL)
	if !ok {
		m.finishFailed(j, consts.ErrKindUnsupported, "no downloader supports this URL")
		return
	}

	m.mu.Lock()
	aj.dl = dl
	cancelled := aj.userCancel
	m.mu.Unlock()
	if cancelled {
		dl.RequestCancel()
	}

	logging.I("Job %q attempt %d: %s via %s", j.ID, j.AttemptCount, j.URL, dl.SiteName())

	res, err := dl.Download(jobCtx, contracts.DownloadRequest{
		JobID: j.ID,
		URL:   j.URL,
		Dir:   j.DownloadDir,
	})
	m.routeResult(aj, res, err)
}

// abortBeforeStart unwinds a job whose attempt never began. A user cancel
// finalizes the job; a shutdown leaves it pending for the next run.
func (m *Manager) abortBeforeStart(aj *activeJob) {
	m.mu.Lock()
	cancelled := aj.userCancel
	m.mu.Unlock()

	if !cancelled {
		return
	}

	j := aj.job
	if err := j.MarkCancelled(); err != nil {
		logging.E("Failed to finalize cancelled job %q: %v", j.ID, err)
		return
	}
	if err := m.persistJob(j); err != nil {
		return
	}
	m.forgetURL(j.URL)
	m.recordEvent(j.ID, consts.EventCancelled, "cancelled before start")
}

// routeResult maps one finished download attempt onto the job state
// machine: success completes, cancellation finalizes or requeues, transient
// failures schedule a retry, everything else fails the job.
func (m *Manager) routeResult(aj *activeJob, res *models.DownloadResult, err error) {
	j := aj.job

	m.mu.Lock()
	cancelled := aj.userCancel
	m.mu.Unlock()

	switch {
	case err == nil:
		if markErr := j.MarkCompleted(); markErr != nil {
			logging.E("Failed to complete job %q: %v", j.ID, markErr)
			return
		}
		if persistErr := m.persistJob(j); persistErr != nil {
			return
		}
		m.forgetURL(j.URL)
		m.recordEvent(j.ID, consts.EventDone, resultDetail(res))
		logging.S("Job %q completed: %s", j.ID, resultDetail(res))

	case errors.Is(err, context.Canceled) || aj.dl.Cancelled():
		if cancelled {
			if markErr := j.MarkCancelled(); markErr != nil {
				logging.E("Failed to finalize cancelled job %q: %v", j.ID, markErr)
				return
			}
			if persistErr := m.persistJob(j); persistErr != nil {
				return
			}
			m.forgetURL(j.URL)
			m.recordEvent(j.ID, consts.EventCancelled, "cancelled during download")
			logging.I("Job %q cancelled", j.ID)
			return
		}

		// Shutdown interrupted the attempt. Hand the job back without
		// consuming an attempt so the next run resumes it.
		if markErr := j.Requeue(); markErr != nil {
			logging.E("Failed to requeue interrupted job %q: %v", j.ID, markErr)
			return
		}
		if persistErr := m.persistJob(j); persistErr != nil {
			return
		}
		logging.I("Job %q returned to the backlog by shutdown", j.ID)

	default:
		kind := net.Classify(err)

		pol := m.policy
		pol.MaxAttempts = j.MaxAttempts
		if pol.ShouldRetry(j.AttemptCount, kind) {
			delay := pol.NextDelay(j.AttemptCount)
			nextAt := time.Now().Add(delay)
			if markErr := j.MarkPendingRetry(string(kind), err.Error(), nextAt); markErr != nil {
				logging.E("Failed to requeue job %q for retry: %v", j.ID, markErr)
				return
			}
			if persistErr := m.persistJob(j); persistErr != nil {
				return
			}
			m.recordEvent(j.ID, consts.EventRetry,
				fmt.Sprintf("attempt %d failed (%s), next attempt in %s: %v", j.AttemptCount, kind, delay.Round(time.Millisecond), err))
			m.delay.add(j, nextAt)
			logging.W("Job %q attempt %d failed, retrying in %s: %v", j.ID, j.AttemptCount, delay.Round(time.Millisecond), err)
			return
		}

		m.finishFailed(j, kind, err.Error())
	}
}

// finishFailed moves a job into its failed terminal state.
func (m *Manager) finishFailed(j *models.Job, kind consts.ErrorKind, msg string) {
	if err := j.MarkFailed(string(kind), msg); err != nil {
		logging.E("Failed to finalize failed job %q: %v", j.ID, err)
		return
	}
	if err := m.persistJob(j); err != nil {
		return
	}
	m.forgetURL(j.URL)
	m.recordEvent(j.ID, consts.EventFailed, fmt.Sprintf("%s: %s", kind, msg))
	logging.E("Job %q failed after %d attempt(s): %s", j.ID, j.AttemptCount, msg)
}

// resultDetail summarizes a download result for the event log.
func resultDetail(res *models.DownloadResult) string {
	if res == nil {
		return "download finished"
	}
	return fmt.Sprintf("%d of %d item(s) downloaded, %d skipped, %d failed, %d bytes in %s",
		res.CompletedCount, res.TotalCount, len(res.SkippedItems), len(res.FailedItems),
		res.TotalBytes, res.ElapsedTime.Round(time.Millisecond))
}
