package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/models"
)

// delayItem is one job waiting out its retry backoff.
type delayItem struct {
	job     *models.Job
	readyAt time.Time
	idx     int
}

// delayHeap is a min-heap on eligibility time.
type delayHeap []*delayItem

func (h delayHeap) Len() int           { return len(h) }
func (h delayHeap) Less(i, j int) bool { return h[i].readyAt.Before(h[j].readyAt) }

func (h delayHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].idx = i
	h[j].idx = j
}

func (h *delayHeap) Push(x any) {
	it := x.(*delayItem)
	it.idx = len(*h)
	*h = append(*h, it)
}

func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.idx = -1
	*h = old[:n-1]
	return it
}

// delayQueue holds retry-pending jobs until their backoff elapses, then
// hands each to the release callback. A single goroutine sleeps on a timer
// armed for the earliest eligibility; adding an earlier job re-arms it.
type delayQueue struct {
	release func(*models.Job)

	mu   sync.Mutex
	heap delayHeap
	byID map[string]*delayItem
	wake chan struct{}
}

func newDelayQueue(release func(*models.Job)) *delayQueue {
	return &delayQueue{
		release: release,
		byID:    make(map[string]*delayItem),
		wake:    make(chan struct{}, 1),
	}
}

// add schedules a job to become eligible at readyAt.
func (q *delayQueue) add(j *models.Job, readyAt time.Time) {
	q.mu.Lock()
	it := &delayItem{job: j, readyAt: readyAt}
	heap.Push(&q.heap, it)
	q.byID[j.ID] = it
	q.mu.Unlock()
	q.signal()
}

// remove takes a waiting job out of the queue, returning nil if the job
// already became eligible.
func (q *delayQueue) remove(jobID string) *models.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.byID[jobID]
	if !ok {
		return nil
	}
	heap.Remove(&q.heap, it.idx)
	delete(q.byID, jobID)
	return it.job
}

func (q *delayQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

func (q *delayQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// run pumps eligible jobs to the release callback until ctx ends. The timer
// fires exactly when the earliest job becomes eligible; there is no
// periodic polling.
func (q *delayQueue) run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	if !timer.Stop() {
		<-timer.C
	}

	for {
		q.mu.Lock()
		var wait time.Duration
		armed := false
		for len(q.heap) > 0 {
			next := q.heap[0]
			wait = time.Until(next.readyAt)
			if wait > 0 {
				armed = true
				break
			}
			heap.Pop(&q.heap)
			delete(q.byID, next.job.ID)
			q.mu.Unlock()
			q.release(next.job)
			q.mu.Lock()
		}
		q.mu.Unlock()

		if armed {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			case <-timer.C:
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
	}
}
